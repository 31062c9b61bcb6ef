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

func (b *Bot) cmdStart(ctx context.Context, chatID int64, _ *session, _ input) (state, error) {
	b.send(ctx, chatID, "Добро пожаловать! Выберите действие:", menuKeyboard())
	return stateIdle, nil
}

func (b *Bot) cmdCancel(ctx context.Context, chatID int64, _ *session, _ input) (state, error) {
	b.send(ctx, chatID, "Действие отменено. /start — главное меню", nil)
	return stateIdle, nil
}

func (b *Bot) cmdAddMachine(ctx context.Context, chatID int64, _ *session, _ input) (state, error) {
	models, err := b.svc.ListModels(ctx)
	if err != nil {
		return stateIdle, err
	}
	if len(models) == 0 {
		b.send(ctx, chatID, "Нет доступных моделей. Добавьте их через /models", nil)
		return stateIdle, nil
	}

	rows := make([][]telegram.InlineKeyboardButton, 0, len(models))
	for _, m := range models {
		rows = append(rows, row(button(m.Name, callbackData(cbModel, strconv.FormatInt(m.ID, 10)))))
	}
	b.send(ctx, chatID, "Выберите модель кофемашины:", keyboard(rows...))
	return stateDealModel, nil
}

func (b *Bot) dealModel(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	id, ok := callbackID(in, cbModel)
	if !ok {
		b.send(ctx, chatID, "Выберите модель кнопкой выше или /cancel", nil)
		return stateDealModel, nil
	}

	m, err := b.svc.GetModel(ctx, id)
	if err != nil {
		return stateIdle, err
	}
	s.deal.Model = m.Name
	s.deal.RentPrice = m.DefaultRent

	b.send(ctx, chatID, fmt.Sprintf("Вы выбрали: %s. Введите штрих-код:", m.Name), nil)
	return stateDealBarcode, nil
}

func (b *Bot) dealBarcode(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	if in.callback || in.text == "" {
		b.send(ctx, chatID, "Введите штрих-код текстом:", nil)
		return stateDealBarcode, nil
	}
	s.deal.Barcode = in.text

	b.send(ctx, chatID, fmt.Sprintf(
		"Цена аренды по умолчанию: %s\nВведите новую цену или '%s' для значения по умолчанию.",
		money(s.deal.RentPrice), validation.DefaultToken), nil)
	return stateDealRent, nil
}

func (b *Bot) dealRent(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	if !validation.IsDefault(in.text) {
		rent, err := validation.ParseAmount(in.text)
		if err != nil {
			b.send(ctx, chatID, fmt.Sprintf("Введите число или '%s' для значения по умолчанию", validation.DefaultToken), nil)
			return stateDealRent, nil
		}
		s.deal.RentPrice = rent
	}

	b.send(ctx, chatID, "Введите ФИО арендатора:", nil)
	return stateDealTenant, nil
}

func (b *Bot) dealTenant(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	if in.callback || in.text == "" {
		b.send(ctx, chatID, "Введите ФИО арендатора текстом:", nil)
		return stateDealTenant, nil
	}
	s.deal.Tenant = in.text

	b.send(ctx, chatID, "Введите телефон арендатора (996XXXXXXXXX):", nil)
	return stateDealPhone, nil
}

func (b *Bot) dealPhone(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	phone, err := validation.NormalizePhone(in.text)
	if err != nil {
		b.send(ctx, chatID, "Телефон должен быть в формате 996XXXXXXXXX", nil)
		return stateDealPhone, nil
	}
	s.deal.Phone = phone

	b.send(ctx, chatID, "Введите сумму залога:", nil)
	return stateDealDeposit, nil
}

func (b *Bot) dealDeposit(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	deposit, err := validation.ParseAmount(in.text)
	if err != nil {
		b.send(ctx, chatID, "Введите число", nil)
		return stateDealDeposit, nil
	}
	s.deal.Deposit = deposit

	b.send(ctx, chatID, "Добавить отметку о 1С?", ledgerKeyboard())
	return stateDealLedger, nil
}

func (b *Bot) dealLedger(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	v, ok := callbackValue(in, cbLedger)
	if !ok {
		b.send(ctx, chatID, "Выберите вариант кнопкой", ledgerKeyboard())
		return stateDealLedger, nil
	}
	s.deal.InLedger = v == "true"

	b.send(ctx, chatID, "Выберите тип сделки:", dealTypeKeyboard())
	return stateDealType, nil
}

func (b *Bot) dealType(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	v, ok := callbackValue(in, cbDealType)
	if !ok {
		b.send(ctx, chatID, "Выберите тип сделки кнопкой", dealTypeKeyboard())
		return stateDealType, nil
	}
	s.deal.DealType = model.DealType(v)

	b.send(ctx, chatID, fmt.Sprintf("Введите комментарий (или '%s', если не требуется):", validation.NoneToken), nil)
	return stateDealComment, nil
}

func (b *Bot) dealComment(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	if in.callback {
		return stateDealComment, nil
	}
	s.deal.Comment = validation.ParseComment(in.text)
	s.deal.StartDate = b.svc.Today()

	d, err := b.svc.AddDeal(ctx, s.deal)
	if err != nil {
		return stateIdle, err
	}

	b.logger.Info("deal created", zap.Int64("deal_id", d.ID), zap.Int64("chat_id", chatID))
	b.send(ctx, chatID, fmt.Sprintf("✅ Кофемашина успешно добавлена! ID сделки: %d", d.ID), nil)
	return stateIdle, nil
}
