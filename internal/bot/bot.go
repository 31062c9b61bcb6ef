// Package bot реализует чат-интерфейс оператора поверх Telegram Bot API.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/coffee-rent-bot/internal/finance"
	"github.com/mmeshcher/coffee-rent-bot/internal/model"
	"github.com/mmeshcher/coffee-rent-bot/internal/report"
	"github.com/mmeshcher/coffee-rent-bot/internal/service"
	"github.com/mmeshcher/coffee-rent-bot/internal/telegram"
)

const pollErrorDelay = 3 * time.Second

// Client описывает используемую часть Telegram Bot API.
type Client interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error
	SendPhoto(ctx context.Context, chatID int64, filename string, data []byte, caption string) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// Service описывает бизнес-операции, доступные из чата.
type Service interface {
	Today() time.Time

	ListModels(ctx context.Context) ([]model.MachineModel, error)
	GetModel(ctx context.Context, id int64) (*model.MachineModel, error)
	AddModel(ctx context.Context, name string, defaultRent, fullPrice float64) (*model.MachineModel, error)
	DeleteModel(ctx context.Context, id int64) error

	AddDeal(ctx context.Context, nd model.NewDeal) (*model.Deal, error)
	ListDealViews(ctx context.Context, status model.DealStatus) ([]service.DealView, error)
	GetDealView(ctx context.Context, id int64) (*service.DealView, error)
	UpdateFullPrice(ctx context.Context, id int64, price float64) error
	UpdateRentPrice(ctx context.Context, id int64, rent float64) error
	UpdateDealType(ctx context.Context, id int64, dealType model.DealType) error
	UpdateLedger(ctx context.Context, id int64, inLedger bool) error
	CloseDeal(ctx context.Context, id int64, status model.DealStatus) error

	RecordPayment(ctx context.Context, req service.PaymentRequest) (*service.Receipt, error)
	DeleteDeals(ctx context.Context, key string) (int64, error)
	DeletePayments(ctx context.Context, key string) (int64, error)

	Summary(ctx context.Context) (finance.Summary, error)
	DealsReport(ctx context.Context) ([]byte, error)
	ProfitShareReport(ctx context.Context) ([]byte, error)
	Chart(ctx context.Context, kind report.ChartKind) ([]byte, error)
}

// Bot маршрутизирует обновления по командам и шагам диалогов.
type Bot struct {
	svc         Service
	client      Client
	logger      *zap.Logger
	adminChatID int64

	sessions  *sessions
	commands  map[string]step
	callbacks map[string]step
	steps     map[state]step
}

// NewBot создаёт бота. При adminChatID != 0 бот обслуживает только этот чат.
func NewBot(svc Service, client Client, adminChatID int64, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bot{
		svc:         svc,
		client:      client,
		logger:      logger,
		adminChatID: adminChatID,
		sessions:    newSessions(),
	}

	b.commands = map[string]step{
		"/start":          b.cmdStart,
		"/cancel":         b.cmdCancel,
		"/add_machine":    b.cmdAddMachine,
		"/payments":       b.cmdPayments,
		"/models":         b.cmdModels,
		"/clients":        b.cmdClients,
		"/report":         b.cmdReport,
		"/profit":         b.cmdProfit,
		"/plot":           b.cmdPlot,
		"/summary":        b.cmdSummary,
		"/delete_machine": b.cmdDeleteMachine,
		"/delete_payment": b.cmdDeletePayment,
	}

	b.callbacks = map[string]step{
		cbClient:   b.onClient,
		cbAddModel: b.onAddModel,
		cbDelModel: b.onDeleteModel,
		cbPlot:     b.onPlot,
	}

	b.steps = map[state]step{
		stateDealModel:   b.dealModel,
		stateDealBarcode: b.dealBarcode,
		stateDealRent:    b.dealRent,
		stateDealTenant:  b.dealTenant,
		stateDealPhone:   b.dealPhone,
		stateDealDeposit: b.dealDeposit,
		stateDealLedger:  b.dealLedger,
		stateDealType:    b.dealType,
		stateDealComment: b.dealComment,

		statePaymentDeal:   b.paymentDeal,
		statePaymentKind:   b.paymentKind,
		statePaymentAmount: b.paymentAmount,
		statePaymentDate:   b.paymentDate,

		stateModelName:  b.modelName,
		stateModelRent:  b.modelRent,
		stateModelPrice: b.modelPrice,

		stateEditAction: b.editAction,
		stateEditPrice:  b.editPrice,
		stateEditRent:   b.editRent,
		stateEditType:   b.editType,
		stateEditLedger: b.editLedger,
		stateEditClose:  b.editClose,

		stateDeleteDeal:    b.deleteDeal,
		stateDeletePayment: b.deletePayment,
	}

	return b
}

// Run опрашивает Telegram до отмены ctx. Обновления обрабатываются последовательно.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("bot polling started", zap.Int64("admin_chat_id", b.adminChatID))

	var offset int64
	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := b.client.GetUpdates(ctx, offset, telegram.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			delay := pollErrorDelay
			var retry *telegram.RetryAfterError
			if errors.As(err, &retry) && retry.After > 0 {
				delay = retry.After
			}
			b.logger.Warn("get updates failed", zap.Error(err), zap.Duration("retry_in", delay))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			b.Handle(ctx, u)
		}
	}
}

// Notify отправляет текст в чат администратора.
func (b *Bot) Notify(ctx context.Context, text string) error {
	if b.adminChatID == 0 {
		return errors.New("admin chat id is not configured")
	}
	return b.client.SendMessage(ctx, b.adminChatID, text, nil)
}

// Handle обрабатывает одно обновление.
func (b *Bot) Handle(ctx context.Context, u telegram.Update) {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		if err := b.client.AnswerCallbackQuery(ctx, cq.ID, ""); err != nil {
			b.logger.Warn("answer callback failed", zap.Error(err))
		}
		if cq.Message == nil {
			return
		}
		b.dispatch(ctx, cq.Message.Chat.ID, input{data: cq.Data, callback: true})
	case u.Message != nil:
		b.dispatch(ctx, u.Message.Chat.ID, input{text: strings.TrimSpace(u.Message.Text)})
	}
}

func (b *Bot) dispatch(ctx context.Context, chatID int64, in input) {
	if b.adminChatID != 0 && chatID != b.adminChatID {
		b.logger.Warn("message from unknown chat", zap.Int64("chat_id", chatID))
		b.send(ctx, chatID, "⛔ Доступ запрещён", nil)
		return
	}

	raw := in.text
	if in.callback {
		raw = in.data
	}

	if strings.HasPrefix(raw, "/") {
		name, args := splitCommand(raw)
		if cmd, ok := b.commands[name]; ok {
			b.run(ctx, chatID, b.sessions.reset(chatID), cmd, input{text: args})
			return
		}
	}

	if in.callback {
		prefix, _ := splitCallback(in.data)
		if cb, ok := b.callbacks[prefix]; ok {
			b.run(ctx, chatID, b.sessions.reset(chatID), cb, in)
			return
		}
	}

	s := b.sessions.get(chatID)
	fn, ok := b.steps[s.state]
	if !ok {
		b.send(ctx, chatID, "Не понимаю команду. Нажмите /start", nil)
		return
	}
	b.run(ctx, chatID, s, fn, in)
}

func (b *Bot) run(ctx context.Context, chatID int64, s *session, fn step, in input) {
	next, err := fn(ctx, chatID, s, in)
	if err != nil {
		b.fail(ctx, chatID, err)
		b.sessions.drop(chatID)
		return
	}
	if next == stateIdle {
		b.sessions.drop(chatID)
		return
	}
	s.state = next
}

// splitCommand отделяет имя команды от аргументов и отбрасывает суффикс @botname.
func splitCommand(text string) (string, string) {
	name, args, _ := strings.Cut(strings.TrimSpace(text), " ")
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	return name, strings.TrimSpace(args)
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) {
	if err := b.client.SendMessage(ctx, chatID, text, markup); err != nil {
		b.logger.Error("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// fail сообщает пользователю об ошибке. Неожиданные ошибки логируются.
func (b *Bot) fail(ctx context.Context, chatID int64, err error) {
	if text, ok := userMessage(err); ok {
		b.send(ctx, chatID, text, nil)
		return
	}
	b.logger.Error("dialog step failed", zap.Int64("chat_id", chatID), zap.Error(err))
	b.send(ctx, chatID, fmt.Sprintf("⚠️ Не удалось выполнить действие: %v", err), nil)
}
