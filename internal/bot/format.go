package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmeshcher/coffee-rent-bot/internal/finance"
	"github.com/mmeshcher/coffee-rent-bot/internal/model"
	"github.com/mmeshcher/coffee-rent-bot/internal/report"
	"github.com/mmeshcher/coffee-rent-bot/internal/repository"
	"github.com/mmeshcher/coffee-rent-bot/internal/service"
	"github.com/mmeshcher/coffee-rent-bot/internal/telegram"
)

const displayDate = "02.01.2006"

// Префиксы данных inline-кнопок.
const (
	cbModel    = "model"
	cbDeal     = "deal"
	cbKind     = "kind"
	cbLedger   = "ledger"
	cbDealType = "dtype"
	cbEdit     = "edit"
	cbClose    = "close"
	cbClient   = "client"
	cbAddModel = "addmodel"
	cbDelModel = "delmodel"
	cbPlot     = "plot"
)

func callbackData(prefix, value string) string {
	return prefix + ":" + value
}

func splitCallback(data string) (string, string) {
	prefix, value, _ := strings.Cut(data, ":")
	return prefix, value
}

// callbackValue возвращает значение кнопки с ожидаемым префиксом.
func callbackValue(in input, prefix string) (string, bool) {
	if !in.callback {
		return "", false
	}
	p, v := splitCallback(in.data)
	if p != prefix {
		return "", false
	}
	return v, true
}

func callbackID(in input, prefix string) (int64, bool) {
	v, ok := callbackValue(in, prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func button(text, data string) telegram.InlineKeyboardButton {
	return telegram.InlineKeyboardButton{Text: text, CallbackData: data}
}

func keyboard(rows ...[]telegram.InlineKeyboardButton) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func row(buttons ...telegram.InlineKeyboardButton) []telegram.InlineKeyboardButton {
	return buttons
}

func menuKeyboard() *telegram.InlineKeyboardMarkup {
	return keyboard(
		row(button("☕️ Добавить сделку", "/add_machine")),
		row(button("💳 Платежи", "/payments")),
		row(button("💎 Модели кофемашин", "/models")),
		row(button("👨‍🦰 Мои арендаторы", "/clients")),
		row(button("📑 Отчёт (Excel)", "/report")),
		row(button("🤝 Комиссия партнёра (Excel)", "/profit")),
		row(button("📈 Графики", "/plot")),
		row(button("🌡 Выжимка", "/summary")),
	)
}

func ledgerKeyboard() *telegram.InlineKeyboardMarkup {
	return keyboard(row(
		button("В 1С", callbackData(cbLedger, "true")),
		button("Без 1С", callbackData(cbLedger, "false")),
	))
}

func dealTypeKeyboard() *telegram.InlineKeyboardMarkup {
	return keyboard(row(
		button(model.DealTypeRent.Title(), callbackData(cbDealType, string(model.DealTypeRent))),
		button(model.DealTypeInstallment.Title(), callbackData(cbDealType, string(model.DealTypeInstallment))),
	))
}

func closeKeyboard() *telegram.InlineKeyboardMarkup {
	return keyboard(row(
		button("↩️ "+model.DealStatusReturned.Title(), callbackData(cbClose, string(model.DealStatusReturned))),
		button("🛠 "+model.DealStatusDamaged.Title(), callbackData(cbClose, string(model.DealStatusDamaged))),
	))
}

func paymentKindKeyboard() *telegram.InlineKeyboardMarkup {
	return keyboard(
		row(button("💰 "+model.PaymentKindRent.Title(), callbackData(cbKind, string(model.PaymentKindRent)))),
		row(button("💳 "+model.PaymentKindDeposit.Title(), callbackData(cbKind, string(model.PaymentKindDeposit)))),
		row(button("🛒 "+model.PaymentKindBuyout.Title(), callbackData(cbKind, string(model.PaymentKindBuyout)))),
	)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func ledgerTitle(inLedger bool) string {
	if inLedger {
		return "✅ В 1С"
	}
	return "❌ Без 1С"
}

// badge это краткая метка срочности для списков.
func badge(st finance.PaymentStatus) string {
	switch st.Tier {
	case finance.TierOverdue:
		return "🔴 ПРОШЛА"
	case finance.TierDueToday:
		return "🔴 СЕГОДНЯ"
	case finance.TierUrgent:
		return fmt.Sprintf("🟡 %dд", st.DaysLeft)
	case finance.TierAttention:
		return fmt.Sprintf("🟠 %dд", st.DaysLeft)
	default:
		return fmt.Sprintf("🟢 %dд", st.DaysLeft)
	}
}

// statusLine это развёрнутая метка срочности для карточки сделки.
func statusLine(st finance.PaymentStatus) string {
	switch st.Tier {
	case finance.TierOverdue:
		return fmt.Sprintf("🔴 ПРОШЛА (%d дн. назад)", st.DaysOverdue())
	case finance.TierDueToday:
		return "🔴 СЕГОДНЯ ПЛАТЁЖ!"
	case finance.TierUrgent:
		return fmt.Sprintf("🟡 Через %d дн.", st.DaysLeft)
	case finance.TierAttention:
		return fmt.Sprintf("🟠 Через %d дн.", st.DaysLeft)
	default:
		return fmt.Sprintf("🟢 Через %d дн.", st.DaysLeft)
	}
}

const statusLegend = "🔴 ПРОШЛА - платёж просрочен\n" +
	"🔴 СЕГОДНЯ - платёж сегодня\n" +
	"🟡 Xд - платёж через X дней (срочно)\n" +
	"🟠 Xд - платёж через X дней (внимание)\n" +
	"🟢 Xд - платёж через X дней (нормально)"

func dealCard(v service.DealView) string {
	d, st := v.Deal, v.State

	var b strings.Builder
	fmt.Fprintf(&b, "👤 %s (ID %d)\n", d.Tenant, d.ID)
	fmt.Fprintf(&b, "📱 Телефон: %s\n", d.Phone)
	fmt.Fprintf(&b, "☕️ Модель: %s, штрих-код %s\n", d.Model, d.Barcode)
	fmt.Fprintf(&b, "📅 Дата начала: %s\n", d.StartDate.Format(displayDate))
	fmt.Fprintf(&b, "💰 Аренда: %s\n", money(d.RentPrice))
	fmt.Fprintf(&b, "💳 Депозит: %s\n", money(d.Deposit))
	fmt.Fprintf(&b, "💵 Полная стоимость: %s\n", money(st.FullPrice))
	fmt.Fprintf(&b, "📊 Тип сделки: %s\n", d.DealType.Title())
	fmt.Fprintf(&b, "🏢 1С: %s\n", ledgerTitle(d.InLedger))
	fmt.Fprintf(&b, "💸 Оплачено (с депозитом): %s\n", money(st.TotalPaid))
	fmt.Fprintf(&b, "⚖️ Остаток: %s\n", money(st.Remaining))
	fmt.Fprintf(&b, "📅 Последний платёж: %s\n", st.LastPayment.Format(displayDate))
	if d.Status == model.DealStatusActive {
		fmt.Fprintf(&b, "⏰ Следующий платёж: %s\n", st.NextDue.Format(displayDate))
		fmt.Fprintf(&b, "📊 Статус: %s\n", statusLine(st.Status))
	} else {
		fmt.Fprintf(&b, "📊 Статус: %s\n", d.Status.Title())
	}
	if d.Comment != "" {
		fmt.Fprintf(&b, "💬 Комментарий: %s\n", d.Comment)
	}
	return b.String()
}

func summaryText(s finance.Summary) string {
	return fmt.Sprintf("🌡 Выжимка\n"+
		"Кофемашин в аренде: %d\n"+
		"Просрочено платежей: %d\n"+
		"Сумма денег в депозитах: %s\n"+
		"Планируемая выручка за месяц: %s\n"+
		"Сделок без 1С: %d",
		s.ActiveDeals, s.OverdueDeals, money(s.DepositsHeld), money(s.ProjectedRevenue), s.OutsideLedger)
}

// userMessage переводит известные ошибки в сообщения для оператора.
func userMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, repository.ErrDealNotFound):
		return "❌ Сделка не найдена", true
	case errors.Is(err, repository.ErrModelNotFound):
		return "❌ Модель не найдена", true
	case errors.Is(err, repository.ErrBarcodeExists):
		return "❌ Кофемашина с таким штрих-кодом уже добавлена", true
	case errors.Is(err, repository.ErrModelExists):
		return "❌ Такая модель уже есть в каталоге", true
	case errors.Is(err, service.ErrDealClosed):
		return "❌ Сделка закрыта, платежи по ней не принимаются", true
	case errors.Is(err, service.ErrInvalidStatus):
		return "❌ Сделку можно закрыть только возвратом или повреждением", true
	case errors.Is(err, service.ErrInvalidPhone):
		return "Телефон должен быть в формате 996XXXXXXXXX", true
	case errors.Is(err, service.ErrNegativeAmount):
		return "❌ Сумма не может быть отрицательной", true
	case errors.Is(err, service.ErrAmountRequired):
		return "Для выкупа нужно указать конкретную сумму", true
	case errors.Is(err, service.ErrEmptyField):
		return "❌ Заполнены не все обязательные поля", true
	case errors.Is(err, service.ErrEmptyKey):
		return "Укажите ID или имя арендатора", true
	case errors.Is(err, report.ErrNoData):
		return "Нет данных для отчёта", true
	}
	return "", false
}
