package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmeshcher/coffee-rent-bot/internal/model"
)

const paymentColumns = `id, machine_id, tenant, amount, payment_date, is_deposit, is_buyout`

func scanPayment(row rowScanner) (model.Payment, error) {
	var p model.Payment
	err := row.Scan(&p.ID, &p.DealID, &p.Tenant, &p.Amount, &p.Date, &p.IsDeposit, &p.IsBuyout)
	return p, err
}

func (r *PostgresRepository) listPayments(ctx context.Context, query string, args ...any) ([]model.Payment, error) {
	var res []model.Payment

	err := r.withRetry(ctx, func() error {
		res = res[:0]

		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("select payments: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPayment(rows)
			if err != nil {
				return fmt.Errorf("scan payment: %w", err)
			}
			res = append(res, p)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		return nil
	})

	return res, err
}

// ListPayments возвращает все платежи по дате.
func (r *PostgresRepository) ListPayments(ctx context.Context) ([]model.Payment, error) {
	return r.listPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments ORDER BY payment_date, id`,
	)
}

// ListPaymentsByDeal возвращает платежи сделки по дате.
func (r *PostgresRepository) ListPaymentsByDeal(ctx context.Context, dealID int64) ([]model.Payment, error) {
	return r.listPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE machine_id = $1 ORDER BY payment_date, id`,
		dealID,
	)
}

// RecordPayment сохраняет платёж по активной сделке. Платёж-выкуп в той же транзакции переводит сделку в статус выкупа.
func (r *PostgresRepository) RecordPayment(ctx context.Context, np model.NewPayment) (*model.Payment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var tenant, status string
	err = tx.QueryRowContext(ctx,
		`SELECT tenant, status FROM coffee_machines WHERE id = $1 FOR UPDATE`,
		np.DealID,
	).Scan(&tenant, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDealNotFound
		}
		return nil, fmt.Errorf("lock deal for update: %w", err)
	}
	if model.DealStatus(status) != model.DealStatusActive {
		return nil, fmt.Errorf("%w: %s", ErrDealClosed, status)
	}
	if np.Tenant == "" {
		np.Tenant = tenant
	}

	p := model.Payment{
		DealID:    np.DealID,
		Tenant:    np.Tenant,
		Amount:    np.Amount,
		Date:      np.Date,
		IsDeposit: np.Kind == model.PaymentKindDeposit,
		IsBuyout:  np.Kind == model.PaymentKindBuyout,
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO payments (machine_id, tenant, amount, payment_date, is_deposit, is_buyout)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.DealID, p.Tenant, p.Amount, p.Date, p.IsDeposit, p.IsBuyout,
	).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	if p.IsBuyout {
		_, err = tx.ExecContext(ctx,
			`UPDATE coffee_machines SET status = $2, buyout = TRUE, buyout_date = $3 WHERE id = $1`,
			p.DealID, string(model.DealStatusBuyout), p.Date,
		)
		if err != nil {
			return nil, fmt.Errorf("mark deal buyout: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &p, nil
}

// DeletePayment удаляет платёж по идентификатору.
func (r *PostgresRepository) DeletePayment(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete payment: %w", err)
	}
	return res.RowsAffected()
}

// DeletePaymentsByTenant удаляет все платежи арендатора.
func (r *PostgresRepository) DeletePaymentsByTenant(ctx context.Context, tenant string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE tenant = $1`, tenant)
	if err != nil {
		return 0, fmt.Errorf("delete payments by tenant: %w", err)
	}
	return res.RowsAffected()
}
