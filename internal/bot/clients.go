package bot

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/mmeshcher/coffee-rent-bot/internal/model"
	"github.com/mmeshcher/coffee-rent-bot/internal/telegram"
	"github.com/mmeshcher/coffee-rent-bot/internal/validation"
)

// Действия редактирования сделки.
const (
	editPrice  = "price"
	editRent   = "rent"
	editType   = "type"
	editLedger = "ledger"
	editClose  = "close"
)

func (b *Bot) cmdClients(ctx context.Context, chatID int64, _ *session, _ input) (state, error) {
	views, err := b.svc.ListDealViews(ctx, model.DealStatusActive)
	if err != nil {
		return stateIdle, err
	}
	if len(views) == 0 {
		b.send(ctx, chatID, "📋 Нет активных клиентов", nil)
		return stateIdle, nil
	}

	rows := make([][]telegram.InlineKeyboardButton, 0, len(views))
	for _, v := range views {
		text := fmt.Sprintf("%s | %s | %s | %s", v.Deal.Tenant, v.Deal.Model, badge(v.State.Status), money(v.Deal.RentPrice))
		rows = append(rows, row(button(text, callbackData(cbClient, strconv.FormatInt(v.Deal.ID, 10)))))
	}

	text := fmt.Sprintf("📋 Активные клиенты (%d)\n\n%s\n\nВыберите клиента для просмотра подробной информации:",
		len(views), statusLegend)
	b.send(ctx, chatID, text, keyboard(rows...))
	return stateIdle, nil
}

func editKeyboard() *telegram.InlineKeyboardMarkup {
	return keyboard(
		row(
			button("💵 Полная стоимость", callbackData(cbEdit, editPrice)),
			button("💰 Аренда", callbackData(cbEdit, editRent)),
		),
		row(
			button("📊 Тип сделки", callbackData(cbEdit, editType)),
			button("🏢 1С", callbackData(cbEdit, editLedger)),
		),
		row(button("🔒 Закрыть сделку", callbackData(cbEdit, editClose))),
	)
}

func (b *Bot) onClient(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	id, ok := callbackID(in, cbClient)
	if !ok {
		return stateIdle, nil
	}

	view, err := b.svc.GetDealView(ctx, id)
	if err != nil {
		return stateIdle, err
	}
	s.dealID = id

	b.send(ctx, chatID, dealCard(*view), editKeyboard())
	return stateEditAction, nil
}

func (b *Bot) editAction(ctx context.Context, chatID int64, _ *session, in input) (state, error) {
	action, ok := callbackValue(in, cbEdit)
	if !ok {
		b.send(ctx, chatID, "Выберите действие кнопкой или /cancel", nil)
		return stateEditAction, nil
	}

	switch action {
	case editPrice:
		b.send(ctx, chatID, "Введите новую полную стоимость кофемашины:", nil)
		return stateEditPrice, nil
	case editRent:
		b.send(ctx, chatID, "Введите новую сумму аренды:", nil)
		return stateEditRent, nil
	case editType:
		b.send(ctx, chatID, "Выберите тип сделки:", dealTypeKeyboard())
		return stateEditType, nil
	case editLedger:
		b.send(ctx, chatID, "Отметка о 1С:", ledgerKeyboard())
		return stateEditLedger, nil
	case editClose:
		b.send(ctx, chatID, "Как закрывается сделка?", closeKeyboard())
		return stateEditClose, nil
	}
	return stateEditAction, nil
}

func (b *Bot) editPrice(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	price, err := validation.ParseAmount(in.text)
	if err != nil {
		b.send(ctx, chatID, "Введите число", nil)
		return stateEditPrice, nil
	}
	if err := b.svc.UpdateFullPrice(ctx, s.dealID, price); err != nil {
		return stateIdle, err
	}
	b.send(ctx, chatID, fmt.Sprintf("✅ Полная стоимость обновлена: %s", money(price)), nil)
	return stateIdle, nil
}

func (b *Bot) editRent(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	rent, err := validation.ParseAmount(in.text)
	if err != nil {
		b.send(ctx, chatID, "Введите число", nil)
		return stateEditRent, nil
	}
	if err := b.svc.UpdateRentPrice(ctx, s.dealID, rent); err != nil {
		return stateIdle, err
	}
	b.send(ctx, chatID, fmt.Sprintf("✅ Сумма аренды обновлена: %s", money(rent)), nil)
	return stateIdle, nil
}

func (b *Bot) editType(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	v, ok := callbackValue(in, cbDealType)
	if !ok {
		b.send(ctx, chatID, "Выберите тип сделки кнопкой", dealTypeKeyboard())
		return stateEditType, nil
	}
	dealType := model.DealType(v)
	if err := b.svc.UpdateDealType(ctx, s.dealID, dealType); err != nil {
		return stateIdle, err
	}
	b.send(ctx, chatID, fmt.Sprintf("✅ Тип сделки: %s", dealType.Title()), nil)
	return stateIdle, nil
}

func (b *Bot) editLedger(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	v, ok := callbackValue(in, cbLedger)
	if !ok {
		b.send(ctx, chatID, "Выберите вариант кнопкой", ledgerKeyboard())
		return stateEditLedger, nil
	}
	inLedger := v == "true"
	if err := b.svc.UpdateLedger(ctx, s.dealID, inLedger); err != nil {
		return stateIdle, err
	}
	b.send(ctx, chatID, fmt.Sprintf("✅ Статус 1С: %s", ledgerTitle(inLedger)), nil)
	return stateIdle, nil
}

func (b *Bot) editClose(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	v, ok := callbackValue(in, cbClose)
	if !ok {
		b.send(ctx, chatID, "Выберите вариант кнопкой", closeKeyboard())
		return stateEditClose, nil
	}
	status := model.DealStatus(v)
	if err := b.svc.CloseDeal(ctx, s.dealID, status); err != nil {
		return stateIdle, err
	}
	b.logger.Info("deal closed", zap.Int64("deal_id", s.dealID), zap.String("status", v))
	b.send(ctx, chatID, fmt.Sprintf("✅ Статус сделки: %s", status.Title()), nil)
	return stateIdle, nil
}
