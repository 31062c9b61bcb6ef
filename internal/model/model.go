// Package model содержит доменные сущности учёта сделок по кофемашинам.
package model

import "time"

// DealStatus описывает жизненный цикл сделки.
type DealStatus string

const (
	DealStatusActive   DealStatus = "active"
	DealStatusBuyout   DealStatus = "buyout"
	DealStatusReturned DealStatus = "returned"
	DealStatusDamaged  DealStatus = "damaged"
)

// IsClosed сообщает, закрыта ли сделка (выкуп, возврат или повреждение).
func (s DealStatus) IsClosed() bool {
	return s != DealStatusActive
}

// Title возвращает человекочитаемое название статуса.
func (s DealStatus) Title() string {
	switch s {
	case DealStatusActive:
		return "Открыта"
	case DealStatusBuyout:
		return "Закрыта (выкуп)"
	case DealStatusReturned:
		return "Закрыта (возврат)"
	case DealStatusDamaged:
		return "Закрыта (повреждена)"
	}
	return string(s)
}

// DealType описывает тип сделки.
type DealType string

const (
	DealTypeRent        DealType = "rent"
	DealTypeInstallment DealType = "installment"
)

// Title возвращает название типа сделки.
func (t DealType) Title() string {
	if t == DealTypeInstallment {
		return "Рассрочка"
	}
	return "Аренда"
}

// PaymentKind описывает вид платежа.
type PaymentKind string

const (
	PaymentKindRent    PaymentKind = "rent"
	PaymentKindDeposit PaymentKind = "deposit"
	PaymentKindBuyout  PaymentKind = "buyout"
)

// ParsePaymentKind разбирает вид платежа из строки.
func ParsePaymentKind(s string) (PaymentKind, bool) {
	switch PaymentKind(s) {
	case PaymentKindRent, PaymentKindDeposit, PaymentKindBuyout:
		return PaymentKind(s), true
	}
	return "", false
}

// Title возвращает название вида платежа.
func (k PaymentKind) Title() string {
	switch k {
	case PaymentKindDeposit:
		return "Депозит"
	case PaymentKindBuyout:
		return "Выкуп"
	}
	return "Аренда"
}

// Deal описывает одну сделку аренды или рассрочки кофемашины.
type Deal struct {
	ID         int64
	Barcode    string
	Model      string
	RentPrice  float64
	Deposit    float64
	FullPrice  *float64
	DealType   DealType
	Tenant     string
	Phone      string
	StartDate  time.Time
	Status     DealStatus
	Buyout     bool
	BuyoutDate *time.Time
	InLedger   bool
	Comment    string
}

// NewDeal содержит данные для создания сделки.
type NewDeal struct {
	Barcode   string
	Model     string
	RentPrice float64
	Deposit   float64
	FullPrice *float64
	DealType  DealType
	Tenant    string
	Phone     string
	StartDate time.Time
	InLedger  bool
	Comment   string
}

// Payment описывает платёж по сделке. Платежи не изменяются после создания.
type Payment struct {
	ID        int64
	DealID    int64
	Tenant    string
	Amount    float64
	Date      time.Time
	IsDeposit bool
	IsBuyout  bool
}

// Kind возвращает вид платежа по его флагам.
func (p Payment) Kind() PaymentKind {
	switch {
	case p.IsDeposit:
		return PaymentKindDeposit
	case p.IsBuyout:
		return PaymentKindBuyout
	}
	return PaymentKindRent
}

// NewPayment содержит данные для записи платежа.
type NewPayment struct {
	DealID int64
	Tenant string
	Amount float64
	Date   time.Time
	Kind   PaymentKind
}

// MachineModel описывает позицию каталога моделей кофемашин.
type MachineModel struct {
	ID          int64
	Name        string
	DefaultRent float64
	FullPrice   float64
}
