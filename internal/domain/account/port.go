package account

import "context"

type Repo interface {
	// Create inserts a and fills ID and CreatedAt. Returns ErrEmailExists
	// when the email is already taken.
	Create(ctx context.Context, a *Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
	List(ctx context.Context) ([]*Account, error)
}
