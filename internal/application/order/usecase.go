package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-cart/internal/application"
	domain "github.com/Zhima-Mochi/minishop-cart/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	orderService    = "order-service"
	useCaseOrderGet = "order.get"
)

var (
	ErrNotFound   = domain.ErrNotFound
	ErrRepository = errors.New("order: repository failure")
)

var _ application.UseCase[GetOrderInput, *domain.Order] = (*GetOrderUseCase)(nil)

type GetOrderInput struct {
	OrderID string
}

// GetOrderUseCase reads the order record a checkout produced.
type GetOrderUseCase struct {
	repo domain.Repository
	in   application.Instruments
}

func NewGetOrderUseCase(repo domain.Repository, tel observability.Observability) *GetOrderUseCase {
	return &GetOrderUseCase{repo: repo, in: application.NewInstruments(tel, orderService)}
}

func (uc *GetOrderUseCase) Execute(ctx context.Context, cmd GetOrderInput) (_ *domain.Order, err error) {
	ctx, run := uc.in.Begin(ctx, useCaseOrderGet, "GetOrder", attribute.String("order.id", cmd.OrderID))
	defer func() { run.End(err) }()

	if cmd.OrderID == "" {
		run.Fail("ORDER_ID_REQUIRED")
		return nil, application.Validation("order id is required")
	}
	o, err := uc.repo.Get(ctx, cmd.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("ORDER_NOT_FOUND")
			return nil, ErrNotFound
		}
		run.Fail("REPOSITORY_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	run.Span().SetAttributes(attribute.String("order.status", string(o.Status)))
	return o, nil
}
