package workflow

import (
	"fmt"
	"strings"
)

// PaymentMethod is the settlement channel chosen when a mission is paid.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "EFECTIVO"
	PaymentTransfer PaymentMethod = "TRANSFERENCIA"
	PaymentACH      PaymentMethod = "ACH"
)

// ParsePaymentMethod normalizes a caller-supplied method name.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(raw)))
	switch m {
	case PaymentCash, PaymentTransfer, PaymentACH:
		return m, nil
	case "":
		return "", fmt.Errorf("%w: metodo_pago is required", ErrValidation)
	default:
		return "", fmt.Errorf("%w: unsupported metodo_pago %q", ErrValidation, raw)
	}
}

// IsElectronic reports whether settlement needs a separate signature step.
func (m PaymentMethod) IsElectronic() bool {
	return m == PaymentTransfer || m == PaymentACH
}

// RoutePayment returns the stage a mission enters when paid with method.
// Cash settles immediately, electronic channels wait for signature.
func RoutePayment(method PaymentMethod) (Stage, error) {
	switch method {
	case PaymentCash:
		return StagePaid, nil
	case PaymentTransfer, PaymentACH:
		return StagePendingSignature, nil
	case "":
		return "", fmt.Errorf("%w: metodo_pago is required", ErrValidation)
	default:
		return "", fmt.Errorf("%w: unsupported metodo_pago %q", ErrValidation, method)
	}
}
