package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmeshcher/coffee-rent-bot/internal/model"
)

// ListModels возвращает каталог моделей кофемашин.
func (r *PostgresRepository) ListModels(ctx context.Context) ([]model.MachineModel, error) {
	var res []model.MachineModel

	err := r.withRetry(ctx, func() error {
		res = res[:0]

		rows, err := r.db.QueryContext(ctx,
			`SELECT id, name, default_rent, full_price FROM machine_models ORDER BY name`,
		)
		if err != nil {
			return fmt.Errorf("select models: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var m model.MachineModel
			if err := rows.Scan(&m.ID, &m.Name, &m.DefaultRent, &m.FullPrice); err != nil {
				return fmt.Errorf("scan model: %w", err)
			}
			res = append(res, m)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		return nil
	})

	return res, err
}

// GetModel возвращает модель по идентификатору.
func (r *PostgresRepository) GetModel(ctx context.Context, id int64) (*model.MachineModel, error) {
	var m model.MachineModel
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, default_rent, full_price FROM machine_models WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.Name, &m.DefaultRent, &m.FullPrice)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("get model: %w", err)
	}
	return &m, nil
}

// CreateModel добавляет модель в каталог.
func (r *PostgresRepository) CreateModel(ctx context.Context, name string, defaultRent, fullPrice float64) (*model.MachineModel, error) {
	m := model.MachineModel{Name: name, DefaultRent: defaultRent, FullPrice: fullPrice}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO machine_models (name, default_rent, full_price) VALUES ($1, $2, $3) RETURNING id`,
		name, defaultRent, fullPrice,
	).Scan(&m.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelExists, name)
		}
		return nil, fmt.Errorf("create model: %w", err)
	}
	return &m, nil
}

// DeleteModel удаляет модель из каталога. Сделки, ссылающиеся на модель по названию, не затрагиваются.
func (r *PostgresRepository) DeleteModel(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM machine_models WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrModelNotFound
	}
	return nil
}
