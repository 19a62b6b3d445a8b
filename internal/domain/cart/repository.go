package cart

import "context"

type Repository interface {
	Insert(ctx context.Context, c *Cart) error
	Get(ctx context.Context, id string) (*Cart, error)
	Update(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, id string) error
}
