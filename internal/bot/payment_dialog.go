package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/coffee-rent-bot/internal/model"
	"github.com/mmeshcher/coffee-rent-bot/internal/service"
	"github.com/mmeshcher/coffee-rent-bot/internal/telegram"
	"github.com/mmeshcher/coffee-rent-bot/internal/validation"
)

func (b *Bot) cmdPayments(ctx context.Context, chatID int64, _ *session, _ input) (state, error) {
	views, err := b.svc.ListDealViews(ctx, model.DealStatusActive)
	if err != nil {
		return stateIdle, err
	}
	if len(views) == 0 {
		b.send(ctx, chatID, "Нет активных кофемашин для внесения платежей.", nil)
		return stateIdle, nil
	}

	rows := make([][]telegram.InlineKeyboardButton, 0, len(views))
	for _, v := range views {
		text := fmt.Sprintf("%s - %s - Остаток: %s", v.Deal.Tenant, v.Deal.Model, money(v.State.Remaining))
		rows = append(rows, row(button(text, callbackData(cbDeal, strconv.FormatInt(v.Deal.ID, 10)))))
	}
	b.send(ctx, chatID, "Выберите кофемашину для внесения платежа:", keyboard(rows...))
	return statePaymentDeal, nil
}

func (b *Bot) paymentDeal(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	id, ok := callbackID(in, cbDeal)
	if !ok {
		b.send(ctx, chatID, "Выберите кофемашину кнопкой выше или /cancel", nil)
		return statePaymentDeal, nil
	}
	s.dealID = id

	b.send(ctx, chatID, "Выберите тип платежа:", paymentKindKeyboard())
	return statePaymentKind, nil
}

func (b *Bot) paymentKind(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	v, ok := callbackValue(in, cbKind)
	kind, valid := model.ParsePaymentKind(v)
	if !ok || !valid {
		b.send(ctx, chatID, "Выберите тип платежа кнопкой", paymentKindKeyboard())
		return statePaymentKind, nil
	}

	view, err := b.svc.GetDealView(ctx, s.dealID)
	if err != nil {
		return stateIdle, err
	}
	s.kind = kind
	s.defaultAmount, s.hasDefault = service.DefaultAmount(view.Deal, kind)

	if s.hasDefault {
		b.send(ctx, chatID, fmt.Sprintf("Введите сумму (%s, по умолчанию %s) или '%s' для значения по умолчанию:",
			strings.ToLower(kind.Title()), money(s.defaultAmount), validation.DefaultToken), nil)
	} else {
		b.send(ctx, chatID, "Введите сумму выкупа:", nil)
	}
	return statePaymentAmount, nil
}

func (b *Bot) paymentAmount(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	if validation.IsDefault(in.text) {
		if !s.hasDefault {
			b.send(ctx, chatID, "Для выкупа нужно указать конкретную сумму", nil)
			return statePaymentAmount, nil
		}
		s.amount = s.defaultAmount
	} else {
		amount, err := validation.ParseAmount(in.text)
		if err != nil {
			b.send(ctx, chatID, fmt.Sprintf("Введите корректную сумму (число) или '%s' для значения по умолчанию", validation.DefaultToken), nil)
			return statePaymentAmount, nil
		}
		s.amount = amount
	}

	b.send(ctx, chatID, fmt.Sprintf("Введите дату платежа (ГГГГ-ММ-ДД или ДД.ММ.ГГГГ) или '%s' для сегодняшней даты:", validation.DefaultToken), nil)
	return statePaymentDate, nil
}

func (b *Bot) paymentDate(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	date, err := validation.ParseDate(in.text, b.svc.Today())
	if err != nil {
		b.send(ctx, chatID, fmt.Sprintf("Введите дату в формате ГГГГ-ММ-ДД или '%s' для сегодняшней даты", validation.DefaultToken), nil)
		return statePaymentDate, nil
	}

	amount := s.amount
	receipt, err := b.svc.RecordPayment(ctx, service.PaymentRequest{
		DealID: s.dealID,
		Kind:   s.kind,
		Amount: &amount,
		Date:   &date,
	})
	if err != nil {
		return stateIdle, err
	}

	b.logger.Info("payment recorded",
		zap.Int64("deal_id", receipt.Deal.ID),
		zap.Int64("payment_id", receipt.Payment.ID),
		zap.String("kind", string(s.kind)),
	)

	var msg strings.Builder
	fmt.Fprintf(&msg, "✅ Платёж сохранён: %s %s от %s (%s)",
		receipt.Payment.Kind().Title(), money(receipt.Payment.Amount),
		receipt.Payment.Date.Format(displayDate), receipt.Deal.Tenant)
	if receipt.NextReminder != nil {
		fmt.Fprintf(&msg, "\n⏰ Следующее напоминание: %s", receipt.NextReminder.Format(displayDate))
	}
	if receipt.Deal.Status == model.DealStatusBuyout {
		msg.WriteString("\n🛒 Сделка закрыта выкупом")
	}
	b.send(ctx, chatID, msg.String(), nil)
	return stateIdle, nil
}
