package contract

import (
	"context"

	"semantic-notes-be/internal/entity"
	"semantic-notes-be/internal/repository/specification"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	Update(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *entity.UserRefreshToken) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserRefreshToken, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeAllForUser(ctx context.Context, userId uuid.UUID) error
}
