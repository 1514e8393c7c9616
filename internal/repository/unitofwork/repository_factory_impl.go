package unitofwork

import (
	"context"

	"gorm.io/gorm"
)

type RepositoryFactoryImpl struct {
	db         *gorm.DB
	dimensions int
}

func NewRepositoryFactory(db *gorm.DB, embeddingDimensions int) RepositoryFactory {
	return &RepositoryFactoryImpl{
		db:         db,
		dimensions: embeddingDimensions,
	}
}

func (f *RepositoryFactoryImpl) NewUnitOfWork(ctx context.Context) UnitOfWork {
	// UoW is short lived, one per request or per consumed message.
	return NewUnitOfWork(f.db, f.dimensions)
}
