package repository

import (
	"context"

	"trainhub-billing/internal/domain/model"
)

// PackageRepository is the port for training package persistence.
type PackageRepository interface {
	Save(ctx context.Context, tx Tx, pkg *model.TrainingPackage) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.TrainingPackage, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.TrainingPackage, error)
}
