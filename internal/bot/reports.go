package bot

import (
	"context"
	"fmt"

	"github.com/mmeshcher/coffee-rent-bot/internal/report"
)

func (b *Bot) cmdReport(ctx context.Context, chatID int64, _ *session, _ input) (state, error) {
	data, err := b.svc.DealsReport(ctx)
	if err != nil {
		return stateIdle, err
	}
	return stateIdle, b.client.SendDocument(ctx, chatID, "coffee_report.xlsx", data, "📑 Отчёт по сделкам")
}

func (b *Bot) cmdProfit(ctx context.Context, chatID int64, _ *session, _ input) (state, error) {
	data, err := b.svc.ProfitShareReport(ctx)
	if err != nil {
		return stateIdle, err
	}
	return stateIdle, b.client.SendDocument(ctx, chatID, "profit_share.xlsx", data, "🤝 Комиссия партнёра по месяцам")
}

func (b *Bot) cmdPlot(ctx context.Context, chatID int64, _ *session, _ input) (state, error) {
	b.send(ctx, chatID, "Выберите тип графика:", keyboard(
		row(button("🏆 Модели", callbackData(cbPlot, string(report.ChartModels)))),
		row(button("📅 Новые сделки по дням", callbackData(cbPlot, string(report.ChartStartsByDay)))),
		row(button("🗓 Новые сделки по неделям", callbackData(cbPlot, string(report.ChartStartsByWeek)))),
		row(button("💰 Ожидаемые платежи", callbackData(cbPlot, string(report.ChartExpected)))),
		row(button("⚠️ Просрочки", callbackData(cbPlot, string(report.ChartOverdue)))),
	))
	return stateIdle, nil
}

func (b *Bot) onPlot(ctx context.Context, chatID int64, _ *session, in input) (state, error) {
	v, _ := callbackValue(in, cbPlot)
	kind, ok := report.ParseChartKind(v)
	if !ok {
		b.send(ctx, chatID, "Неизвестный тип графика", nil)
		return stateIdle, nil
	}

	png, err := b.svc.Chart(ctx, kind)
	if err != nil {
		return stateIdle, err
	}
	return stateIdle, b.client.SendPhoto(ctx, chatID, "plot.png", png, "📈 Ваш график")
}

func (b *Bot) cmdSummary(ctx context.Context, chatID int64, _ *session, _ input) (state, error) {
	s, err := b.svc.Summary(ctx)
	if err != nil {
		return stateIdle, err
	}
	b.send(ctx, chatID, summaryText(s), nil)
	return stateIdle, nil
}

const deleteKeyPrompt = "Введите ID или имя арендатора:"

func (b *Bot) cmdDeleteMachine(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	if in.text == "" {
		b.send(ctx, chatID, "Удаление сделки. "+deleteKeyPrompt, nil)
		return stateDeleteDeal, nil
	}
	return b.deleteDeal(ctx, chatID, s, in)
}

func (b *Bot) cmdDeletePayment(ctx context.Context, chatID int64, s *session, in input) (state, error) {
	if in.text == "" {
		b.send(ctx, chatID, "Удаление платежа. "+deleteKeyPrompt, nil)
		return stateDeletePayment, nil
	}
	return b.deletePayment(ctx, chatID, s, in)
}

func (b *Bot) deleteDeal(ctx context.Context, chatID int64, _ *session, in input) (state, error) {
	if in.callback || in.text == "" {
		b.send(ctx, chatID, deleteKeyPrompt, nil)
		return stateDeleteDeal, nil
	}
	n, err := b.svc.DeleteDeals(ctx, in.text)
	if err != nil {
		return stateIdle, err
	}
	b.reportDeleted(ctx, chatID, "сделок", n)
	return stateIdle, nil
}

func (b *Bot) deletePayment(ctx context.Context, chatID int64, _ *session, in input) (state, error) {
	if in.callback || in.text == "" {
		b.send(ctx, chatID, deleteKeyPrompt, nil)
		return stateDeletePayment, nil
	}
	n, err := b.svc.DeletePayments(ctx, in.text)
	if err != nil {
		return stateIdle, err
	}
	b.reportDeleted(ctx, chatID, "платежей", n)
	return stateIdle, nil
}

func (b *Bot) reportDeleted(ctx context.Context, chatID int64, what string, n int64) {
	if n == 0 {
		b.send(ctx, chatID, "Ничего не найдено для удаления", nil)
		return
	}
	b.send(ctx, chatID, fmt.Sprintf("🗑 Удалено %s: %d", what, n), nil)
}
