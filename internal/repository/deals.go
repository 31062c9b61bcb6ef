package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmeshcher/coffee-rent-bot/internal/model"
)

const dealColumns = `id, model, barcode, rent_price, tenant, phone, deposit, start_date,
	in_ledger, status, buyout, buyout_date, deal_type, comment, full_price`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeal(row rowScanner) (model.Deal, error) {
	var (
		d          model.Deal
		status     string
		dealType   string
		buyoutDate sql.NullTime
		comment    sql.NullString
		fullPrice  sql.NullFloat64
	)

	err := row.Scan(
		&d.ID, &d.Model, &d.Barcode, &d.RentPrice, &d.Tenant, &d.Phone, &d.Deposit, &d.StartDate,
		&d.InLedger, &status, &d.Buyout, &buyoutDate, &dealType, &comment, &fullPrice,
	)
	if err != nil {
		return d, err
	}

	d.Status = model.DealStatus(status)
	d.DealType = model.DealType(dealType)
	d.Comment = comment.String
	if buyoutDate.Valid {
		t := buyoutDate.Time
		d.BuyoutDate = &t
	}
	if fullPrice.Valid {
		v := fullPrice.Float64
		d.FullPrice = &v
	}
	return d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// CreateDeal создаёт активную сделку.
func (r *PostgresRepository) CreateDeal(ctx context.Context, nd model.NewDeal) (*model.Deal, error) {
	d := model.Deal{
		Barcode:   nd.Barcode,
		Model:     nd.Model,
		RentPrice: nd.RentPrice,
		Deposit:   nd.Deposit,
		FullPrice: nd.FullPrice,
		DealType:  nd.DealType,
		Tenant:    nd.Tenant,
		Phone:     nd.Phone,
		StartDate: nd.StartDate,
		Status:    model.DealStatusActive,
		InLedger:  nd.InLedger,
		Comment:   nd.Comment,
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO coffee_machines
			(model, barcode, rent_price, tenant, phone, deposit, start_date, in_ledger, status, buyout, deal_type, comment, full_price)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10, $11, $12)
		 RETURNING id`,
		d.Model, d.Barcode, d.RentPrice, d.Tenant, d.Phone, d.Deposit, d.StartDate, d.InLedger,
		string(d.Status), string(d.DealType), nullString(d.Comment), nullFloat(d.FullPrice),
	).Scan(&d.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrBarcodeExists, d.Barcode)
		}
		return nil, fmt.Errorf("create deal: %w", err)
	}

	return &d, nil
}

// GetDeal возвращает сделку по идентификатору.
func (r *PostgresRepository) GetDeal(ctx context.Context, id int64) (*model.Deal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+dealColumns+` FROM coffee_machines WHERE id = $1`,
		id,
	)

	d, err := scanDeal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDealNotFound
		}
		return nil, fmt.Errorf("get deal: %w", err)
	}
	return &d, nil
}

// ListDeals возвращает все сделки в порядке создания.
func (r *PostgresRepository) ListDeals(ctx context.Context) ([]model.Deal, error) {
	var res []model.Deal

	err := r.withRetry(ctx, func() error {
		res = res[:0]

		rows, err := r.db.QueryContext(ctx, `SELECT `+dealColumns+` FROM coffee_machines ORDER BY id`)
		if err != nil {
			return fmt.Errorf("select deals: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			d, err := scanDeal(rows)
			if err != nil {
				return fmt.Errorf("scan deal: %w", err)
			}
			res = append(res, d)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		return nil
	})

	return res, err
}

func (r *PostgresRepository) updateDeal(ctx context.Context, query string, id int64, value any) error {
	res, err := r.db.ExecContext(ctx, query, id, value)
	if err != nil {
		return fmt.Errorf("update deal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrDealNotFound
	}
	return nil
}

// UpdateDealFullPrice устанавливает индивидуальную полную стоимость сделки.
func (r *PostgresRepository) UpdateDealFullPrice(ctx context.Context, id int64, price float64) error {
	return r.updateDeal(ctx, `UPDATE coffee_machines SET full_price = $2 WHERE id = $1`, id, price)
}

// UpdateDealRentPrice изменяет сумму аренды.
func (r *PostgresRepository) UpdateDealRentPrice(ctx context.Context, id int64, rent float64) error {
	return r.updateDeal(ctx, `UPDATE coffee_machines SET rent_price = $2 WHERE id = $1`, id, rent)
}

// UpdateDealType изменяет тип сделки.
func (r *PostgresRepository) UpdateDealType(ctx context.Context, id int64, dealType model.DealType) error {
	return r.updateDeal(ctx, `UPDATE coffee_machines SET deal_type = $2 WHERE id = $1`, id, string(dealType))
}

// UpdateDealLedger изменяет отметку об учёте во внешней бухгалтерии.
func (r *PostgresRepository) UpdateDealLedger(ctx context.Context, id int64, inLedger bool) error {
	return r.updateDeal(ctx, `UPDATE coffee_machines SET in_ledger = $2 WHERE id = $1`, id, inLedger)
}

// UpdateDealStatus переводит активную сделку в статус status.
func (r *PostgresRepository) UpdateDealStatus(ctx context.Context, id int64, status model.DealStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE coffee_machines SET status = $2 WHERE id = $1 AND status = $3`,
		id, string(status), string(model.DealStatusActive),
	)
	if err != nil {
		return fmt.Errorf("update deal status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var current string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM coffee_machines WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDealNotFound
		}
		return fmt.Errorf("select deal status: %w", err)
	}
	return fmt.Errorf("%w: %s", ErrDealClosed, current)
}

// DeleteDeal удаляет сделку вместе с её платежами.
func (r *PostgresRepository) DeleteDeal(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM coffee_machines WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete deal: %w", err)
	}
	return res.RowsAffected()
}

// DeleteDealsByTenant удаляет все сделки арендатора вместе с их платежами.
func (r *PostgresRepository) DeleteDealsByTenant(ctx context.Context, tenant string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM coffee_machines WHERE tenant = $1`, tenant)
	if err != nil {
		return 0, fmt.Errorf("delete deals by tenant: %w", err)
	}
	return res.RowsAffected()
}
