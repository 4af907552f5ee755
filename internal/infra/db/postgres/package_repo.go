package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trainhub-billing/internal/domain"
	"trainhub-billing/internal/domain/model"
	"trainhub-billing/internal/domain/ports/repository"
)

var _ repository.PackageRepository = (*packageRepo)(nil)

const packageColumns = `id, trainer_id, name, price_amount, currency, billing_term_days, fee_percent, created_at`

type packageRepo struct{ pool *pgxpool.Pool }

func NewPackageRepo(pool *pgxpool.Pool) *packageRepo {
	return &packageRepo{pool: pool}
}

func scanPackage(row pgx.Row) (*model.TrainingPackage, error) {
	p := &model.TrainingPackage{}
	if err := row.Scan(&p.ID, &p.TrainerID, &p.Name, &p.PriceAmount, &p.Currency, &p.BillingTermDays, &p.FeePercent, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *packageRepo) Save(ctx context.Context, tx repository.Tx, pkg *model.TrainingPackage) error {
	const q = `
INSERT INTO training_packages (` + packageColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  name=EXCLUDED.name,
  price_amount=EXCLUDED.price_amount,
  currency=EXCLUDED.currency,
  billing_term_days=EXCLUDED.billing_term_days,
  fee_percent=EXCLUDED.fee_percent;`
	_, err := execSQL(ctx, r.pool, tx, q,
		pkg.ID, pkg.TrainerID, pkg.Name, pkg.PriceAmount, pkg.Currency, pkg.BillingTermDays, pkg.FeePercent, pkg.CreatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *packageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.TrainingPackage, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+packageColumns+` FROM training_packages WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanPackage(row)
}

func (r *packageRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.TrainingPackage, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+packageColumns+` FROM training_packages ORDER BY created_at ASC;`)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.TrainingPackage
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
