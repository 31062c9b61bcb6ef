// Package finance вычисляет финансовое состояние сделки по истории её платежей.
//
// Все функции пакета чистые: они не обращаются к хранилищу и не изменяют аргументы.
// Депозит учитывается только как платёж с флагом is_deposit; поле Deal.Deposit хранит
// договорную сумму залога и в расчёт оплаченного не прибавляется.
package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coffee-rent-bot/internal/model"
)

const (
	// DueGraceDays это срок от последнего платежа до следующего, используемый для статуса.
	DueGraceDays = 32
	// RescheduleDays это срок следующего напоминания сразу после арендного платежа.
	RescheduleDays = 30
)

// Catalog сопоставляет название модели с позицией каталога.
type Catalog map[string]model.MachineModel

// NewCatalog строит каталог из списка моделей.
func NewCatalog(models []model.MachineModel) Catalog {
	c := make(Catalog, len(models))
	for _, m := range models {
		c[m.Name] = m
	}
	return c
}

// FullPrice возвращает индивидуальную стоимость сделки, иначе стоимость модели из каталога, иначе 0.
func FullPrice(deal model.Deal, catalog Catalog) float64 {
	if deal.FullPrice != nil {
		return *deal.FullPrice
	}
	if m, ok := catalog[deal.Model]; ok {
		return m.FullPrice
	}
	return 0
}

func sumPayments(payments []model.Payment, keep func(model.Payment) bool) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if keep(p) {
			total = total.Add(decimal.NewFromFloat(p.Amount))
		}
	}
	return total
}

// TotalPaid возвращает сумму платежей. При includeDeposit=false платежи-депозиты не учитываются.
func TotalPaid(payments []model.Payment, includeDeposit bool) float64 {
	return sumPayments(payments, func(p model.Payment) bool {
		return includeDeposit || !p.IsDeposit
	}).InexactFloat64()
}

// DepositsPaid возвращает сумму внесённых депозитов.
func DepositsPaid(payments []model.Payment) float64 {
	return sumPayments(payments, func(p model.Payment) bool { return p.IsDeposit }).InexactFloat64()
}

// RemainingBalance возвращает остаток к выплате, никогда не отрицательный.
func RemainingBalance(deal model.Deal, payments []model.Payment, catalog Catalog) float64 {
	return remaining(deal, catalog, sumPayments(payments, func(model.Payment) bool { return true }))
}

// RemainingAsOf возвращает остаток с учётом только платежей, внесённых не позже date.
func RemainingAsOf(deal model.Deal, payments []model.Payment, catalog Catalog, date time.Time) float64 {
	day := Day(date)
	paid := sumPayments(payments, func(p model.Payment) bool {
		return !Day(p.Date).After(day)
	})
	return remaining(deal, catalog, paid)
}

func remaining(deal model.Deal, catalog Catalog, paid decimal.Decimal) float64 {
	rest := decimal.NewFromFloat(FullPrice(deal, catalog)).Sub(paid)
	if rest.IsNegative() {
		return 0
	}
	return rest.InexactFloat64()
}

// LastPaymentDate возвращает дату последнего платежа или дату начала сделки, если платежей нет.
func LastPaymentDate(deal model.Deal, payments []model.Payment) time.Time {
	last := Day(deal.StartDate)
	found := false
	for _, p := range payments {
		d := Day(p.Date)
		if !found || d.After(last) {
			last = d
			found = true
		}
	}
	return last
}

// NextPaymentDue возвращает ожидаемую дату следующего платежа.
func NextPaymentDue(deal model.Deal, payments []model.Payment) time.Time {
	return LastPaymentDate(deal, payments).AddDate(0, 0, DueGraceDays)
}

// NextReminderAfterRent возвращает дату следующего напоминания после арендного платежа.
func NextReminderAfterRent(paymentDate time.Time) time.Time {
	return Day(paymentDate).AddDate(0, 0, RescheduleDays)
}

// IsOverdue сообщает, просрочен ли платёж по активной сделке. Закрытые сделки не просрочены.
func IsOverdue(deal model.Deal, payments []model.Payment, today time.Time) bool {
	if deal.Status != model.DealStatusActive {
		return false
	}
	return NextPaymentDue(deal, payments).Before(Day(today))
}

// State это вычисленное финансовое состояние сделки на дату.
type State struct {
	FullPrice   float64
	TotalPaid   float64
	Deposits    float64
	Remaining   float64
	LastPayment time.Time
	NextDue     time.Time
	Status      PaymentStatus
	Overdue     bool
}

// Evaluate вычисляет состояние сделки на дату today.
func Evaluate(deal model.Deal, payments []model.Payment, catalog Catalog, today time.Time) State {
	next := NextPaymentDue(deal, payments)
	return State{
		FullPrice:   FullPrice(deal, catalog),
		TotalPaid:   TotalPaid(payments, true),
		Deposits:    DepositsPaid(payments),
		Remaining:   RemainingBalance(deal, payments, catalog),
		LastPayment: LastPaymentDate(deal, payments),
		NextDue:     next,
		Status:      Classify(next, today),
		Overdue:     IsOverdue(deal, payments, today),
	}
}
