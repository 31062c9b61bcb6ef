package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/coffee-rent-bot/internal/finance"
	"github.com/mmeshcher/coffee-rent-bot/internal/model"
	"github.com/mmeshcher/coffee-rent-bot/internal/report"
	"github.com/mmeshcher/coffee-rent-bot/internal/repository"
	"github.com/mmeshcher/coffee-rent-bot/internal/service"
	"github.com/mmeshcher/coffee-rent-bot/internal/telegram"
)

const adminChat int64 = 100

type sentMessage struct {
	chatID int64
	text   string
	markup *telegram.InlineKeyboardMarkup
}

type fakeClient struct {
	mu        sync.Mutex
	messages  []sentMessage
	documents []string
	photos    []string
	answered  []string

	updates [][]telegram.Update
	offsets []int64
}

func (c *fakeClient) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error) {
	c.mu.Lock()
	c.offsets = append(c.offsets, offset)
	if len(c.updates) > 0 {
		batch := c.updates[0]
		c.updates = c.updates[1:]
		c.mu.Unlock()
		return batch, nil
	}
	c.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *fakeClient) SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, sentMessage{chatID: chatID, text: text, markup: markup})
	return nil
}

func (c *fakeClient) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.documents = append(c.documents, filename)
	return nil
}

func (c *fakeClient) SendPhoto(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.photos = append(c.photos, filename)
	return nil
}

func (c *fakeClient) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answered = append(c.answered, callbackID)
	return nil
}

func (c *fakeClient) last() sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return sentMessage{}
	}
	return c.messages[len(c.messages)-1]
}

type stubService struct {
	today  time.Time
	models []model.MachineModel
	views  []service.DealView

	added     *model.NewDeal
	recorded  *service.PaymentRequest
	deleteKey string
	closed    model.DealStatus
	summary   finance.Summary
	err       error
}

func (s *stubService) Today() time.Time { return s.today }

func (s *stubService) ListModels(ctx context.Context) ([]model.MachineModel, error) {
	return s.models, nil
}

func (s *stubService) GetModel(ctx context.Context, id int64) (*model.MachineModel, error) {
	for _, m := range s.models {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, repository.ErrModelNotFound
}

func (s *stubService) AddModel(ctx context.Context, name string, defaultRent, fullPrice float64) (*model.MachineModel, error) {
	m := model.MachineModel{ID: int64(len(s.models) + 1), Name: name, DefaultRent: defaultRent, FullPrice: fullPrice}
	s.models = append(s.models, m)
	return &m, nil
}

func (s *stubService) DeleteModel(ctx context.Context, id int64) error { return nil }

func (s *stubService) AddDeal(ctx context.Context, nd model.NewDeal) (*model.Deal, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.added = &nd
	return &model.Deal{ID: 11, Tenant: nd.Tenant}, nil
}

func (s *stubService) ListDealViews(ctx context.Context, status model.DealStatus) ([]service.DealView, error) {
	return s.views, nil
}

func (s *stubService) GetDealView(ctx context.Context, id int64) (*service.DealView, error) {
	for _, v := range s.views {
		if v.Deal.ID == id {
			return &v, nil
		}
	}
	return nil, repository.ErrDealNotFound
}

func (s *stubService) UpdateFullPrice(ctx context.Context, id int64, price float64) error { return nil }
func (s *stubService) UpdateRentPrice(ctx context.Context, id int64, rent float64) error  { return nil }
func (s *stubService) UpdateDealType(ctx context.Context, id int64, dealType model.DealType) error {
	return nil
}
func (s *stubService) UpdateLedger(ctx context.Context, id int64, inLedger bool) error { return nil }

func (s *stubService) CloseDeal(ctx context.Context, id int64, status model.DealStatus) error {
	if status != model.DealStatusReturned && status != model.DealStatusDamaged {
		return service.ErrInvalidStatus
	}
	s.closed = status
	return nil
}

func (s *stubService) RecordPayment(ctx context.Context, req service.PaymentRequest) (*service.Receipt, error) {
	s.recorded = &req
	deal := s.views[0].Deal
	p := model.Payment{ID: 1, DealID: req.DealID, Amount: *req.Amount, Date: *req.Date, IsBuyout: req.Kind == model.PaymentKindBuyout}
	if req.Kind == model.PaymentKindBuyout {
		deal.Status = model.DealStatusBuyout
	}
	return &service.Receipt{Payment: p, Deal: deal}, nil
}

func (s *stubService) DeleteDeals(ctx context.Context, key string) (int64, error) {
	s.deleteKey = key
	return 1, nil
}

func (s *stubService) DeletePayments(ctx context.Context, key string) (int64, error) {
	s.deleteKey = key
	return 0, nil
}

func (s *stubService) Summary(ctx context.Context) (finance.Summary, error) {
	return s.summary, s.err
}

func (s *stubService) DealsReport(ctx context.Context) ([]byte, error)       { return []byte("xlsx"), nil }
func (s *stubService) ProfitShareReport(ctx context.Context) ([]byte, error) { return []byte("xlsx"), nil }

func (s *stubService) Chart(ctx context.Context, kind report.ChartKind) ([]byte, error) {
	return []byte("png"), nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestBot() (*Bot, *fakeClient, *stubService) {
	client := &fakeClient{}
	svc := &stubService{
		today:  day(2024, 3, 10),
		models: []model.MachineModel{{ID: 1, Name: "Jura", DefaultRent: 8000, FullPrice: 90000}},
		views: []service.DealView{{
			Deal: model.Deal{
				ID: 5, Tenant: "Ivan", Model: "Jura", RentPrice: 8000, Deposit: 4000,
				StartDate: day(2024, 2, 1), Status: model.DealStatusActive, DealType: model.DealTypeRent,
			},
			State: finance.State{Status: finance.PaymentStatus{DaysLeft: 2, Tier: finance.TierUrgent}},
		}},
	}
	return NewBot(svc, client, adminChat, nil), client, svc
}

func text(s string) telegram.Update {
	return telegram.Update{Message: &telegram.Message{Chat: telegram.Chat{ID: adminChat}, Text: s}}
}

func press(data string) telegram.Update {
	return telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb-" + data,
		Message: &telegram.Message{Chat: telegram.Chat{ID: adminChat}},
		Data:    data,
	}}
}

func feed(b *Bot, updates ...telegram.Update) {
	for _, u := range updates {
		b.Handle(context.Background(), u)
	}
}

func TestStart_SendsMenu(t *testing.T) {
	b, client, _ := newTestBot()

	feed(b, text("/start"))

	msg := client.last()
	assert.Equal(t, adminChat, msg.chatID)
	require.NotNil(t, msg.markup)
	assert.Equal(t, "/add_machine", msg.markup.InlineKeyboard[0][0].CallbackData)
}

func TestAddDealDialog(t *testing.T) {
	b, client, svc := newTestBot()

	feed(b,
		text("/add_machine"),
		press("model:1"),
		text("BC-001"),
		text("."),
		text("Ivan Petrov"),
		text("12345"),
	)
	assert.Equal(t, "Телефон должен быть в формате 996XXXXXXXXX", client.last().text)
	assert.Equal(t, stateDealPhone, b.sessions.get(adminChat).state)

	feed(b,
		text("+996 555 123 456"),
		text("5 000"),
		press("ledger:true"),
		press("dtype:installment"),
		text("-"),
	)

	require.NotNil(t, svc.added)
	assert.Equal(t, model.NewDeal{
		Barcode:   "BC-001",
		Model:     "Jura",
		RentPrice: 8000,
		Deposit:   5000,
		DealType:  model.DealTypeInstallment,
		Tenant:    "Ivan Petrov",
		Phone:     "996555123456",
		StartDate: day(2024, 3, 10),
		InLedger:  true,
	}, *svc.added)
	assert.Contains(t, client.last().text, "ID сделки: 11")
	assert.Equal(t, stateIdle, b.sessions.get(adminChat).state)
}

func TestAddDealDialog_CustomRentAndComment(t *testing.T) {
	b, _, svc := newTestBot()

	feed(b,
		text("/add_machine"),
		press("model:1"),
		text("BC-002"),
		text("9500"),
		text("Anna"),
		text("996555000111"),
		text("0"),
		press("ledger:false"),
		press("dtype:rent"),
		text("второй этаж"),
	)

	require.NotNil(t, svc.added)
	assert.Equal(t, 9500.0, svc.added.RentPrice)
	assert.Equal(t, "второй этаж", svc.added.Comment)
	assert.False(t, svc.added.InLedger)
}

func TestPaymentDialog_BuyoutRequiresAmount(t *testing.T) {
	b, client, svc := newTestBot()

	feed(b,
		text("/payments"),
		press("deal:5"),
		press("kind:buyout"),
		text("."),
	)
	assert.Equal(t, "Для выкупа нужно указать конкретную сумму", client.last().text)
	assert.Equal(t, statePaymentAmount, b.sessions.get(adminChat).state)

	feed(b, text("60000"), text("2024-03-09"))

	require.NotNil(t, svc.recorded)
	assert.Equal(t, int64(5), svc.recorded.DealID)
	assert.Equal(t, model.PaymentKindBuyout, svc.recorded.Kind)
	assert.Equal(t, 60000.0, *svc.recorded.Amount)
	assert.True(t, svc.recorded.Date.Equal(day(2024, 3, 9)))
	assert.Contains(t, client.last().text, "Сделка закрыта выкупом")
}

func TestPaymentDialog_DefaultRentToday(t *testing.T) {
	b, _, svc := newTestBot()

	feed(b,
		text("/payments"),
		press("deal:5"),
		press("kind:rent"),
		text("."),
		text("."),
	)

	require.NotNil(t, svc.recorded)
	assert.Equal(t, 8000.0, *svc.recorded.Amount)
	assert.True(t, svc.recorded.Date.Equal(day(2024, 3, 10)))
}

func TestCancelResetsDialog(t *testing.T) {
	b, _, svc := newTestBot()

	feed(b, text("/payments"), press("deal:5"), text("/cancel"), text("."))

	assert.Nil(t, svc.recorded)
	assert.Equal(t, stateIdle, b.sessions.get(adminChat).state)
}

func TestDeleteMachine_WithArgument(t *testing.T) {
	b, client, svc := newTestBot()

	feed(b, text("/delete_machine Ivan Petrov"))

	assert.Equal(t, "Ivan Petrov", svc.deleteKey)
	assert.Equal(t, "🗑 Удалено сделок: 1", client.last().text)
}

func TestDeletePayment_PromptsForKey(t *testing.T) {
	b, client, svc := newTestBot()

	feed(b, text("/delete_payment"))
	assert.Equal(t, stateDeletePayment, b.sessions.get(adminChat).state)

	feed(b, text("42"))
	assert.Equal(t, "42", svc.deleteKey)
	assert.Equal(t, "Ничего не найдено для удаления", client.last().text)
}

func TestClientCard_NotFound(t *testing.T) {
	b, client, _ := newTestBot()

	feed(b, press("client:999"))

	assert.Equal(t, "❌ Сделка не найдена", client.last().text)
	assert.Equal(t, stateIdle, b.sessions.get(adminChat).state)
}

func TestClientCard_EditRent(t *testing.T) {
	b, client, _ := newTestBot()

	feed(b, press("client:5"))
	assert.Contains(t, client.last().text, "Ivan")
	assert.Equal(t, stateEditAction, b.sessions.get(adminChat).state)

	feed(b, press("edit:rent"), text("9000"))
	assert.Equal(t, "✅ Сумма аренды обновлена: 9000", client.last().text)
}

func TestClientCard_CloseReturned(t *testing.T) {
	b, client, svc := newTestBot()

	feed(b, press("client:5"), press("edit:close"))
	assert.Equal(t, stateEditClose, b.sessions.get(adminChat).state)
	require.NotNil(t, client.last().markup)
	assert.Equal(t, "close:returned", client.last().markup.InlineKeyboard[0][0].CallbackData)

	feed(b, text("returned"))
	assert.Equal(t, stateEditClose, b.sessions.get(adminChat).state, "typed text re-prompts")

	feed(b, press("close:returned"))
	assert.Equal(t, model.DealStatusReturned, svc.closed)
	assert.Equal(t, "✅ Статус сделки: Закрыта (возврат)", client.last().text)
	assert.Equal(t, stateIdle, b.sessions.get(adminChat).state)
}

func TestClientCard_CloseRejectsBuyout(t *testing.T) {
	b, client, svc := newTestBot()

	feed(b, press("client:5"), press("edit:close"), press("close:buyout"))

	assert.Empty(t, svc.closed)
	assert.Equal(t, "❌ Сделку можно закрыть только возвратом или повреждением", client.last().text)
}

func TestClients_ShowsBadges(t *testing.T) {
	b, client, _ := newTestBot()

	feed(b, text("/clients"))

	msg := client.last()
	require.NotNil(t, msg.markup)
	assert.Equal(t, "Ivan | Jura | 🟡 2д | 8000", msg.markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "client:5", msg.markup.InlineKeyboard[0][0].CallbackData)
}

func TestReportsAndPlots(t *testing.T) {
	b, client, _ := newTestBot()

	feed(b, text("/report"), text("/profit"), press("plot:models"))

	assert.Equal(t, []string{"coffee_report.xlsx", "profit_share.xlsx"}, client.documents)
	assert.Equal(t, []string{"plot.png"}, client.photos)
	assert.Equal(t, []string{"cb-plot:models"}, client.answered)
}

func TestSummary_UnexpectedError(t *testing.T) {
	b, client, svc := newTestBot()
	svc.err = errors.New("db down")

	feed(b, text("/summary"))

	assert.True(t, strings.HasPrefix(client.last().text, "⚠️"))
}

func TestForeignChatDenied(t *testing.T) {
	b, client, svc := newTestBot()

	b.Handle(context.Background(), telegram.Update{
		Message: &telegram.Message{Chat: telegram.Chat{ID: 1}, Text: "/delete_machine 5"},
	})

	assert.Empty(t, svc.deleteKey)
	assert.Equal(t, int64(1), client.last().chatID)
	assert.Equal(t, "⛔ Доступ запрещён", client.last().text)
}

func TestNotify_SendsToAdmin(t *testing.T) {
	b, client, _ := newTestBot()

	require.NoError(t, b.Notify(context.Background(), "reminder"))
	assert.Equal(t, sentMessage{chatID: adminChat, text: "reminder"}, client.last())

	noAdmin := NewBot(&stubService{}, client, 0, nil)
	assert.Error(t, noAdmin.Notify(context.Background(), "reminder"))
}

func TestRun_AdvancesOffsetAndStops(t *testing.T) {
	b, client, _ := newTestBot()
	start := text("/start")
	start.UpdateID = 7
	client.updates = [][]telegram.Update{{start}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.offsets) == 2
	}, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop")
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, []int64{0, 8}, client.offsets)
}

func TestBadge(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{-3, "🔴 ПРОШЛА"},
		{0, "🔴 СЕГОДНЯ"},
		{3, "🟡 3д"},
		{7, "🟠 7д"},
		{8, "🟢 8д"},
	}
	for _, tt := range tests {
		st := finance.PaymentStatus{DaysLeft: tt.days, Tier: finance.TierFor(tt.days)}
		assert.Equal(t, tt.want, badge(st), "days=%d", tt.days)
	}
}

func TestSplitCommand(t *testing.T) {
	name, args := splitCommand("/delete_machine@coffee_bot  Ivan ")
	assert.Equal(t, "/delete_machine", name)
	assert.Equal(t, "Ivan", args)
}
