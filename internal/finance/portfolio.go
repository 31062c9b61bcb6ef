package finance

import (
	"time"

	"github.com/mmeshcher/coffee-rent-bot/internal/model"
)

// Portfolio это согласованный срез сделок, платежей и каталога для расчётов и отчётов.
type Portfolio struct {
	Deals    []model.Deal
	Payments map[int64][]model.Payment
	Catalog  Catalog
}

// NewPortfolio группирует платежи по сделкам. Порядок платежей внутри сделки сохраняется.
func NewPortfolio(deals []model.Deal, payments []model.Payment, models []model.MachineModel) Portfolio {
	byDeal := make(map[int64][]model.Payment, len(deals))
	for _, p := range payments {
		byDeal[p.DealID] = append(byDeal[p.DealID], p)
	}
	return Portfolio{
		Deals:    deals,
		Payments: byDeal,
		Catalog:  NewCatalog(models),
	}
}

// PaymentsOf возвращает платежи сделки.
func (p Portfolio) PaymentsOf(dealID int64) []model.Payment {
	return p.Payments[dealID]
}

// Evaluate вычисляет состояние сделки портфеля на дату today.
func (p Portfolio) Evaluate(deal model.Deal, today time.Time) State {
	return Evaluate(deal, p.Payments[deal.ID], p.Catalog, today)
}

// Summary строит сводку по портфелю.
func (p Portfolio) Summary(today time.Time) Summary {
	return Summarize(p.Deals, p.Payments, today)
}
