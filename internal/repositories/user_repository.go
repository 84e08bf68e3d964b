package repositories

import (
	"context"

	"github.com/clipstream/backend/internal/models"
)

// UserRepository defines the data access contract for users. It doubles as
// the session manager's credential store: the refresh-token methods operate
// on the single live token column of the users table.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	Update(ctx context.Context, user models.User) error
	SetRefreshToken(ctx context.Context, userID, token string) error
	SwapRefreshToken(ctx context.Context, userID, expected, replacement string) error
}
