package finance

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coffee-rent-bot/internal/model"
)

// Ставки комиссии партнёра.
const (
	shareRentHigh     = 10000
	shareRentMiddle   = 8000
	shareHigh         = 1500
	shareMiddle       = 1000
	shareLow          = 500
	bonusPriceHigh    = 80000
	bonusPriceMiddle  = 30000
	bonusHigh         = 2000
	bonusMiddle       = 1000
	bonusLow          = 500
	firstMonthDivisor = 4
)

// Accrual это начисление комиссии за один месяц.
type Accrual struct {
	Month  Month
	Amount float64
	Buyout bool
}

// ProfitShare это помесячный график начисления комиссии, упорядоченный по месяцам.
type ProfitShare []Accrual

// Total возвращает сумму всех начислений.
func (s ProfitShare) Total() float64 {
	total := decimal.Zero
	for _, a := range s {
		total = total.Add(decimal.NewFromFloat(a.Amount))
	}
	return total.InexactFloat64()
}

// ByLabel возвращает начисления с ключами "YYYY-MM".
func (s ProfitShare) ByLabel() map[string]float64 {
	res := make(map[string]float64, len(s))
	for _, a := range s {
		res[a.Month.String()] = a.Amount
	}
	return res
}

// MonthlyShare возвращает фиксированную месячную комиссию по уровню арендной платы.
func MonthlyShare(rent float64) float64 {
	switch {
	case rent >= shareRentHigh:
		return shareHigh
	case rent >= shareRentMiddle:
		return shareMiddle
	default:
		return shareLow
	}
}

// FirstMonthShare возвращает комиссию за первый месяц: четверть арендной платы.
func FirstMonthShare(rent float64) float64 {
	return decimal.NewFromFloat(rent).Div(decimal.NewFromInt(firstMonthDivisor)).InexactFloat64()
}

// BuyoutBonus возвращает разовую комиссию за выкуп по полной стоимости машины.
func BuyoutBonus(fullPrice float64) float64 {
	switch {
	case fullPrice > bonusPriceHigh:
		return bonusHigh
	case fullPrice > bonusPriceMiddle:
		return bonusMiddle
	default:
		return bonusLow
	}
}

// FirstMonth возвращает месяц первого платежа, а без платежей месяц начала сделки.
func FirstMonth(deal model.Deal, payments []model.Payment) Month {
	if len(payments) == 0 {
		return MonthOf(deal.StartDate)
	}
	first := MonthOf(payments[0].Date)
	for _, p := range payments[1:] {
		if m := MonthOf(p.Date); m.Before(first) {
			first = m
		}
	}
	return first
}

func buyoutMonth(deal model.Deal, payments []model.Payment) (Month, bool) {
	var (
		month Month
		found bool
	)
	for _, p := range payments {
		if !p.IsBuyout {
			continue
		}
		if m := MonthOf(p.Date); !found || m.Before(month) {
			month = m
			found = true
		}
	}
	if !found && deal.Status == model.DealStatusBuyout && deal.BuyoutDate != nil {
		return MonthOf(*deal.BuyoutDate), true
	}
	return month, found
}

// ProfitShareSchedule строит график начисления комиссии партнёра по сделке до месяца asOf включительно.
//
// Первый месяц приносит четверть аренды, последующие фиксированную ставку по уровню аренды.
// Выкуп приносит разовый бонус и прекращает начисления с месяца выкупа. Сделка, закрытая
// без выкупа, начисляет до месяца последнего платежа. Депозиты начислений не дают.
func ProfitShareSchedule(deal model.Deal, payments []model.Payment, catalog Catalog, asOf Month) ProfitShare {
	first := FirstMonth(deal, payments)
	buyout, hasBuyout := buyoutMonth(deal, payments)
	if hasBuyout && buyout.Before(first) {
		first = buyout
	}

	var end Month
	switch {
	case hasBuyout:
		end = buyout.Prev()
	case deal.Status.IsClosed():
		end = first
		if len(payments) > 0 {
			end = MonthOf(LastPaymentDate(deal, payments))
		}
	default:
		end = asOf
	}

	var schedule ProfitShare
	for m := first; !end.Before(m); m = m.Next() {
		amount := MonthlyShare(deal.RentPrice)
		if m == first {
			amount = FirstMonthShare(deal.RentPrice)
		}
		schedule = append(schedule, Accrual{Month: m, Amount: amount})
	}

	if hasBuyout {
		schedule = append(schedule, Accrual{
			Month:  buyout,
			Amount: BuyoutBonus(FullPrice(deal, catalog)),
			Buyout: true,
		})
	}

	return schedule
}
