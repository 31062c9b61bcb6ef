package finance

import "time"

// Tier это степень срочности следующего платежа.
type Tier string

const (
	TierOverdue   Tier = "overdue"
	TierDueToday  Tier = "due_today"
	TierUrgent    Tier = "urgent"
	TierAttention Tier = "attention"
	TierNormal    Tier = "normal"
)

// Верхние границы уровней включительно.
const (
	urgentMaxDays    = 3
	attentionMaxDays = 7
)

// PaymentStatus описывает срочность следующего платежа.
type PaymentStatus struct {
	DaysLeft int
	Tier     Tier
}

// DaysOverdue возвращает число дней просрочки, 0 если платёж не просрочен.
func (s PaymentStatus) DaysOverdue() int {
	if s.DaysLeft >= 0 {
		return 0
	}
	return -s.DaysLeft
}

// Classify классифицирует срочность платежа со сроком nextDue относительно today.
func Classify(nextDue, today time.Time) PaymentStatus {
	days := DaysBetween(today, nextDue)
	return PaymentStatus{DaysLeft: days, Tier: TierFor(days)}
}

// TierFor возвращает уровень срочности для числа оставшихся дней.
func TierFor(daysLeft int) Tier {
	switch {
	case daysLeft < 0:
		return TierOverdue
	case daysLeft == 0:
		return TierDueToday
	case daysLeft <= urgentMaxDays:
		return TierUrgent
	case daysLeft <= attentionMaxDays:
		return TierAttention
	default:
		return TierNormal
	}
}
