package workflow

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	domainwf "github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
)

// Payload keys as sent by the front office
const (
	KeyComments          = "comentarios"
	KeyAllocations       = "partidas"
	KeyApprovedAmount    = "monto_aprobado"
	KeyPaymentMethod     = "metodo_pago"
	KeyTransactionNumber = "numero_transaccion"
	KeyPaymentDate       = "fecha_pago"
	KeySourceBank        = "banco_origen"
	KeyVoucherNumber     = "numero_comprobante"
	KeyCountersignNumber = "numero_refrendo"
)

// ActionPayload is the decoded, stage-specific part of a command
type ActionPayload struct {
	Comments          string            `mapstructure:"comentarios"`
	Allocations       []AllocationInput `mapstructure:"partidas"`
	ApprovedAmount    *entity.Money     `mapstructure:"monto_aprobado"`
	PaymentMethod     string            `mapstructure:"metodo_pago"`
	TransactionNumber string            `mapstructure:"numero_transaccion"`
	PaymentDate       *time.Time        `mapstructure:"fecha_pago"`
	SourceBank        string            `mapstructure:"banco_origen"`
	VoucherNumber     string            `mapstructure:"numero_comprobante"`
	CountersignNumber string            `mapstructure:"numero_refrendo"`
}

// AllocationInput is one budget line in the budget-stage payload
type AllocationInput struct {
	Code        string       `mapstructure:"codigo_partida"`
	Amount      entity.Money `mapstructure:"monto"`
	Description string       `mapstructure:"descripcion"`
}

var (
	moneyType = reflect.TypeOf(entity.Money(0))
	timeType  = reflect.TypeOf(time.Time{})
)

// DecodePayload decodes a raw payload. Type mismatches return ErrValidation.
func DecodePayload(raw map[string]interface{}) (*ActionPayload, error) {
	var p ActionPayload
	if len(raw) == 0 {
		return &p, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			moneyHook,
			timeHook,
		),
		WeaklyTypedInput: true,
		Result:           &p,
	})
	if err != nil {
		return nil, fmt.Errorf("create payload decoder: %w", err)
	}

	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domainwf.ErrValidation, err)
	}

	p.PaymentMethod = strings.TrimSpace(p.PaymentMethod)
	p.TransactionNumber = strings.TrimSpace(p.TransactionNumber)
	return &p, nil
}

// rawString reads a top-level string value without full decoding
func rawString(raw map[string]interface{}, key string) string {
	if v, ok := raw[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func moneyHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != moneyType {
		return data, nil
	}

	switch v := data.(type) {
	case float64:
		return entity.MoneyFromFloat(v), nil
	case float32:
		return entity.MoneyFromFloat(float64(v)), nil
	case int:
		return entity.Money(int64(v) * 100), nil
	case int64:
		return entity.Money(v * 100), nil
	case json.Number:
		return entity.ParseMoney(v.String())
	case string:
		return entity.ParseMoney(v)
	default:
		return nil, fmt.Errorf("unsupported amount type %s", from)
	}
}

func timeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != timeType || from.Kind() != reflect.String {
		return data, nil
	}

	s := strings.TrimSpace(data.(string))
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", s)
}
