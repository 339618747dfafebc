package plan

import "context"

// Store persists the plan catalogue in the shared schema.
type Store interface {
	Create(ctx context.Context, p *Plan) error
	Get(ctx context.Context, id string) (*Plan, error)
	ListActive(ctx context.Context) ([]*Plan, error)
	Update(ctx context.Context, p *Plan) error
}
