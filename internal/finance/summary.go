package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coffee-rent-bot/internal/model"
)

// Summary это сводка по портфелю сделок.
type Summary struct {
	ActiveDeals      int
	OverdueDeals     int
	DepositsHeld     float64
	ProjectedRevenue float64
	OutsideLedger    int
}

// Summarize строит сводку по сделкам. Ожидаемая выручка месяца равна сумме аренды активных
// сделок, чей следующий платёж приходится на текущий календарный месяц.
func Summarize(deals []model.Deal, payments map[int64][]model.Payment, today time.Time) Summary {
	var (
		s        Summary
		deposits = decimal.Zero
		revenue  = decimal.Zero
		current  = MonthOf(today)
	)

	for _, d := range deals {
		if d.Status != model.DealStatusActive {
			continue
		}
		ps := payments[d.ID]

		s.ActiveDeals++
		if IsOverdue(d, ps, today) {
			s.OverdueDeals++
		}
		if !d.InLedger {
			s.OutsideLedger++
		}
		deposits = deposits.Add(decimal.NewFromFloat(DepositsPaid(ps)))
		if MonthOf(NextPaymentDue(d, ps)) == current {
			revenue = revenue.Add(decimal.NewFromFloat(d.RentPrice))
		}
	}

	s.DepositsHeld = deposits.InexactFloat64()
	s.ProjectedRevenue = revenue.InexactFloat64()
	return s
}
