package workflow

import (
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/registry"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	domainwf "github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
)

// PaymentRouter maps a settlement method to the stage it leads to
type PaymentRouter struct {
	registry *registry.Registry
}

// NewPaymentRouter creates a router over the stage registry
func NewPaymentRouter(reg *registry.Registry) *PaymentRouter {
	return &PaymentRouter{registry: reg}
}

// Route returns PAGADO for cash and PENDIENTE_FIRMA_ELECTRONICA for
// transfer or ACH. Any other method returns ErrValidation.
func (r *PaymentRouter) Route(method domainwf.PaymentMethod) (*entity.Stage, error) {
	name, err := domainwf.RoutePayment(method)
	if err != nil {
		return nil, err
	}
	return r.registry.StageByName(name)
}
