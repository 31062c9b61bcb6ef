package bot

import (
	"context"
	"sync"

	"github.com/mmeshcher/coffee-rent-bot/internal/model"
)

// state это шаг диалога. Пустое значение означает отсутствие активного диалога.
type state string

const (
	stateIdle state = ""

	stateDealModel   state = "deal_model"
	stateDealBarcode state = "deal_barcode"
	stateDealRent    state = "deal_rent"
	stateDealTenant  state = "deal_tenant"
	stateDealPhone   state = "deal_phone"
	stateDealDeposit state = "deal_deposit"
	stateDealLedger  state = "deal_ledger"
	stateDealType    state = "deal_type"
	stateDealComment state = "deal_comment"

	statePaymentDeal   state = "payment_deal"
	statePaymentKind   state = "payment_kind"
	statePaymentAmount state = "payment_amount"
	statePaymentDate   state = "payment_date"

	stateModelName  state = "model_name"
	stateModelRent  state = "model_rent"
	stateModelPrice state = "model_price"

	stateEditAction state = "edit_action"
	stateEditPrice  state = "edit_price"
	stateEditRent   state = "edit_rent"
	stateEditType   state = "edit_type"
	stateEditLedger state = "edit_ledger"
	stateEditClose  state = "edit_close"

	stateDeleteDeal    state = "delete_deal"
	stateDeletePayment state = "delete_payment"
)

// input это текст сообщения или данные нажатой кнопки.
type input struct {
	text     string
	data     string
	callback bool
}

// session хранит данные незавершённого диалога одного чата.
type session struct {
	state state

	deal model.NewDeal

	dealID        int64
	kind          model.PaymentKind
	amount        float64
	defaultAmount float64
	hasDefault    bool

	modelName string
	modelRent float64
}

// step обрабатывает ввод в текущем состоянии и возвращает следующее состояние.
// Некорректный ввод оставляет диалог в том же состоянии; ошибка завершает диалог.
type step func(ctx context.Context, chatID int64, s *session, in input) (state, error)

type sessions struct {
	mu sync.Mutex
	m  map[int64]*session
}

func newSessions() *sessions {
	return &sessions{m: make(map[int64]*session)}
}

func (ss *sessions) get(chatID int64) *session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s, ok := ss.m[chatID]
	if !ok {
		s = &session{}
		ss.m[chatID] = s
	}
	return s
}

func (ss *sessions) reset(chatID int64) *session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s := &session{}
	ss.m[chatID] = s
	return s
}

func (ss *sessions) drop(chatID int64) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.m, chatID)
}
