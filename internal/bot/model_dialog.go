package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmeshcher/coffee-rent-bot/internal/telegram"
	"github.com/mmeshcher/coffee-rent-bot/internal/validation"
)

func (b *Bot) cmdModels(ctx context.Context, chatID int64, _ *session, _ input) (state, error) {
	return stateIdle, b.showModels(ctx, chatID)
}

func (b *Bot) showModels(ctx context.Context, chatID int64) error {
	models, err := b.svc.ListModels(ctx)
	if err != nil {
		return err
	}

	var text strings.Builder
	if len(models) == 0 {
		text.WriteString("Список моделей пуст. Добавьте новую модель.")
	} else {
		text.WriteString("Список моделей кофемашин:")
		for _, m := range models {
			fmt.Fprintf(&text, "\n%d. %s (аренда: %s, стоимость: %s)", m.ID, m.Name, money(m.DefaultRent), money(m.FullPrice))
		}
	}

	rows := [][]telegram.InlineKeyboardButton{row(button("➕ Добавить модель", cbAddModel))}
	for _, m := range models {
		rows = append(rows, row(button("❌ "+m.Name, callbackData(cbDelModel, strconv.FormatInt(m.ID, 10)))))
	}
	b.send(ctx, chatID, text.String(), keyboard(rows...))
	return nil
}

func (b *Bot) onAddModel(ctx context.Context, chatID int64, _ *session, _ input) (state, error) {
	b.send(ctx, chatID, "Введите название новой модели кофемашины:", nil)
	return stateModelName, nil
}

func (b *Bot) onDeleteModel(ctx context.Context, chatID int64, _ *session, in input) (state, error) {
	id, ok := callbackID(in, cbDelModel)
	if !ok {
		return stateIdle, nil
	}
	if err := b.svc.DeleteModel(ctx, id); err != nil {
		return stateIdle, err
	}
	b.send(ctx, chatID, "Модель удалена!", nil)
	return stateIdle, b.showModels(ctx, chatID)
}

func (b *Bot) modelName(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	if in.callback || in.text == "" {
		b.send(ctx, chatID, "Введите название модели текстом:", nil)
		return stateModelName, nil
	}
	s.modelName = in.text

	b.send(ctx, chatID, "Введите цену аренды по умолчанию для этой модели:", nil)
	return stateModelRent, nil
}

func (b *Bot) modelRent(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	rent, err := validation.ParseAmount(in.text)
	if err != nil {
		b.send(ctx, chatID, "Введите число", nil)
		return stateModelRent, nil
	}
	s.modelRent = rent

	b.send(ctx, chatID, "Введите полную стоимость кофемашины:", nil)
	return stateModelPrice, nil
}

func (b *Bot) modelPrice(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	price, err := validation.ParseAmount(in.text)
	if err != nil {
		b.send(ctx, chatID, "Введите число", nil)
		return stateModelPrice, nil
	}

	m, err := b.svc.AddModel(ctx, s.modelName, s.modelRent, price)
	if err != nil {
		return stateIdle, err
	}
	b.send(ctx, chatID, fmt.Sprintf("Модель %s добавлена!", m.Name), nil)
	return stateIdle, b.showModels(ctx, chatID)
}
