package unitofwork

import (
	"context"

	"semantic-notes-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	RefreshTokenRepository() contract.RefreshTokenRepository
	NoteRepository() contract.NoteRepository
	NoteVectorRepository() contract.NoteVectorRepository
}
