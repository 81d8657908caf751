package assessment

import "context"

// Store persists assessments with their question trees. Mutations are
// all-or-nothing.
type Store interface {
	Create(ctx context.Context, authorID string, d Draft) (Assessment, error)
	ReplaceQuestions(ctx context.Context, id string, d Draft) (Assessment, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Assessment, error) // full tree, with answers
	List(ctx context.Context, opts ListOpts) ([]Summary, error)
}
