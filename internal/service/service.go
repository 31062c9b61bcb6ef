// Package service реализует бизнес-логику учёта аренды и рассрочки кофемашин.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmeshcher/coffee-rent-bot/internal/finance"
	"github.com/mmeshcher/coffee-rent-bot/internal/model"
	"github.com/mmeshcher/coffee-rent-bot/internal/report"
	"github.com/mmeshcher/coffee-rent-bot/internal/repository"
	"github.com/mmeshcher/coffee-rent-bot/internal/validation"
)

var (
	// ErrAmountRequired возвращается, если для платежа нет суммы по умолчанию и сумма не указана.
	ErrAmountRequired = errors.New("amount is required for this payment kind")
	// ErrDealClosed возвращается при попытке принять платёж по закрытой сделке.
	ErrDealClosed = repository.ErrDealClosed
	// ErrInvalidPhone возвращается, если телефон не приводится к формату 996XXXXXXXXX.
	ErrInvalidPhone = validation.ErrInvalidPhone
	// ErrNegativeAmount возвращается для отрицательных сумм.
	ErrNegativeAmount = errors.New("amount must not be negative")
	// ErrEmptyField возвращается, если обязательное текстовое поле пустое.
	ErrEmptyField = errors.New("required field is empty")
	// ErrInvalidStatus возвращается при попытке закрыть сделку иначе как возвратом или повреждением.
	ErrInvalidStatus = errors.New("deal can only be closed as returned or damaged")
	// ErrEmptyKey возвращается, если ключ удаления пустой.
	ErrEmptyKey = errors.New("delete key is empty")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	ListModels(ctx context.Context) ([]model.MachineModel, error)
	GetModel(ctx context.Context, id int64) (*model.MachineModel, error)
	CreateModel(ctx context.Context, name string, defaultRent, fullPrice float64) (*model.MachineModel, error)
	DeleteModel(ctx context.Context, id int64) error

	CreateDeal(ctx context.Context, nd model.NewDeal) (*model.Deal, error)
	GetDeal(ctx context.Context, id int64) (*model.Deal, error)
	ListDeals(ctx context.Context) ([]model.Deal, error)
	UpdateDealFullPrice(ctx context.Context, id int64, price float64) error
	UpdateDealRentPrice(ctx context.Context, id int64, rent float64) error
	UpdateDealType(ctx context.Context, id int64, dealType model.DealType) error
	UpdateDealLedger(ctx context.Context, id int64, inLedger bool) error
	UpdateDealStatus(ctx context.Context, id int64, status model.DealStatus) error
	DeleteDeal(ctx context.Context, id int64) (int64, error)
	DeleteDealsByTenant(ctx context.Context, tenant string) (int64, error)

	ListPayments(ctx context.Context) ([]model.Payment, error)
	ListPaymentsByDeal(ctx context.Context, dealID int64) ([]model.Payment, error)
	RecordPayment(ctx context.Context, np model.NewPayment) (*model.Payment, error)
	DeletePayment(ctx context.Context, id int64) (int64, error)
	DeletePaymentsByTenant(ctx context.Context, tenant string) (int64, error)
}

// Service содержит бизнес-логику учёта сделок.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService создаёт новый сервис с указанным репозиторием.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Today возвращает текущую календарную дату.
func (s *Service) Today() time.Time {
	return finance.Day(s.now())
}

// DealView это сделка вместе с платежами и вычисленным состоянием.
type DealView struct {
	Deal     model.Deal
	Payments []model.Payment
	State    finance.State
}

// Portfolio загружает согласованный срез всех сделок, платежей и каталога.
func (s *Service) Portfolio(ctx context.Context) (finance.Portfolio, error) {
	deals, err := s.repo.ListDeals(ctx)
	if err != nil {
		return finance.Portfolio{}, err
	}
	payments, err := s.repo.ListPayments(ctx)
	if err != nil {
		return finance.Portfolio{}, err
	}
	models, err := s.repo.ListModels(ctx)
	if err != nil {
		return finance.Portfolio{}, err
	}
	return finance.NewPortfolio(deals, payments, models), nil
}

// ListDealViews возвращает сделки с вычисленным состоянием. Пустой status означает все сделки.
func (s *Service) ListDealViews(ctx context.Context, status model.DealStatus) ([]DealView, error) {
	p, err := s.Portfolio(ctx)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	res := make([]DealView, 0, len(p.Deals))
	for _, d := range p.Deals {
		if status != "" && d.Status != status {
			continue
		}
		res = append(res, DealView{
			Deal:     d,
			Payments: p.PaymentsOf(d.ID),
			State:    p.Evaluate(d, today),
		})
	}
	return res, nil
}

// GetDealView возвращает одну сделку с её платежами и состоянием.
func (s *Service) GetDealView(ctx context.Context, id int64) (*DealView, error) {
	deal, err := s.repo.GetDeal(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPaymentsByDeal(ctx, id)
	if err != nil {
		return nil, err
	}
	models, err := s.repo.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	return &DealView{
		Deal:     *deal,
		Payments: payments,
		State:    finance.Evaluate(*deal, payments, finance.NewCatalog(models), s.Today()),
	}, nil
}

// ProfitShare возвращает график партнёрских начислений по сделке на текущий месяц.
func (s *Service) ProfitShare(ctx context.Context, id int64) (finance.ProfitShare, error) {
	deal, err := s.repo.GetDeal(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPaymentsByDeal(ctx, id)
	if err != nil {
		return nil, err
	}
	models, err := s.repo.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	return finance.ProfitShareSchedule(*deal, payments, finance.NewCatalog(models), finance.MonthOf(s.Today())), nil
}

// Summary возвращает сводку по портфелю на сегодня.
func (s *Service) Summary(ctx context.Context) (finance.Summary, error) {
	p, err := s.Portfolio(ctx)
	if err != nil {
		return finance.Summary{}, err
	}
	return p.Summary(s.Today()), nil
}

// AddDeal проверяет и сохраняет новую сделку.
func (s *Service) AddDeal(ctx context.Context, nd model.NewDeal) (*model.Deal, error) {
	nd.Barcode = strings.TrimSpace(nd.Barcode)
	nd.Model = strings.TrimSpace(nd.Model)
	nd.Tenant = strings.TrimSpace(nd.Tenant)

	if nd.Barcode == "" || nd.Model == "" || nd.Tenant == "" {
		return nil, ErrEmptyField
	}
	if nd.RentPrice < 0 || nd.Deposit < 0 || (nd.FullPrice != nil && *nd.FullPrice < 0) {
		return nil, ErrNegativeAmount
	}

	phone, err := validation.NormalizePhone(nd.Phone)
	if err != nil {
		return nil, err
	}
	nd.Phone = phone

	if nd.StartDate.IsZero() {
		nd.StartDate = s.Today()
	}
	if nd.DealType == "" {
		nd.DealType = model.DealTypeRent
	}

	return s.repo.CreateDeal(ctx, nd)
}

// PaymentRequest содержит данные для записи платежа. Nil-поля заменяются значениями по умолчанию.
type PaymentRequest struct {
	DealID int64
	Kind   model.PaymentKind
	Amount *float64
	Date   *time.Time
}

// Receipt это результат записи платежа.
type Receipt struct {
	Payment model.Payment
	Deal    model.Deal
	// NextReminder задан только для арендного платежа.
	NextReminder *time.Time
}

// DefaultAmount возвращает сумму платежа по умолчанию для вида платежа.
func DefaultAmount(deal model.Deal, kind model.PaymentKind) (float64, bool) {
	switch kind {
	case model.PaymentKindRent:
		return deal.RentPrice, true
	case model.PaymentKindDeposit:
		return deal.Deposit, true
	}
	return 0, false
}

// RecordPayment записывает платёж по активной сделке.
func (s *Service) RecordPayment(ctx context.Context, req PaymentRequest) (*Receipt, error) {
	deal, err := s.repo.GetDeal(ctx, req.DealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != model.DealStatusActive {
		return nil, fmt.Errorf("%w: %s", ErrDealClosed, deal.Status)
	}

	kind := req.Kind
	if kind == "" {
		kind = model.PaymentKindRent
	}

	var amount float64
	if req.Amount != nil {
		amount = *req.Amount
	} else {
		v, ok := DefaultAmount(*deal, kind)
		if !ok {
			return nil, ErrAmountRequired
		}
		amount = v
	}
	if amount < 0 {
		return nil, ErrNegativeAmount
	}

	date := s.Today()
	if req.Date != nil {
		date = finance.Day(*req.Date)
	}

	p, err := s.repo.RecordPayment(ctx, model.NewPayment{
		DealID: deal.ID,
		Tenant: deal.Tenant,
		Amount: amount,
		Date:   date,
		Kind:   kind,
	})
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{Payment: *p, Deal: *deal}
	switch kind {
	case model.PaymentKindRent:
		next := finance.NextReminderAfterRent(date)
		receipt.NextReminder = &next
	case model.PaymentKindBuyout:
		receipt.Deal.Status = model.DealStatusBuyout
		receipt.Deal.Buyout = true
		receipt.Deal.BuyoutDate = &date
	}
	return receipt, nil
}

// UpdateFullPrice устанавливает индивидуальную полную стоимость сделки.
func (s *Service) UpdateFullPrice(ctx context.Context, id int64, price float64) error {
	if price < 0 {
		return ErrNegativeAmount
	}
	return s.repo.UpdateDealFullPrice(ctx, id, price)
}

// UpdateRentPrice изменяет сумму аренды сделки.
func (s *Service) UpdateRentPrice(ctx context.Context, id int64, rent float64) error {
	if rent < 0 {
		return ErrNegativeAmount
	}
	return s.repo.UpdateDealRentPrice(ctx, id, rent)
}

// UpdateDealType изменяет тип сделки.
func (s *Service) UpdateDealType(ctx context.Context, id int64, dealType model.DealType) error {
	if dealType != model.DealTypeRent && dealType != model.DealTypeInstallment {
		return fmt.Errorf("unknown deal type %q", dealType)
	}
	return s.repo.UpdateDealType(ctx, id, dealType)
}

// UpdateLedger изменяет отметку об учёте во внешней бухгалтерии.
func (s *Service) UpdateLedger(ctx context.Context, id int64, inLedger bool) error {
	return s.repo.UpdateDealLedger(ctx, id, inLedger)
}

// CloseDeal закрывает активную сделку возвратом или повреждением. Выкуп оформляется только платежом.
func (s *Service) CloseDeal(ctx context.Context, id int64, status model.DealStatus) error {
	if status != model.DealStatusReturned && status != model.DealStatusDamaged {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.repo.UpdateDealStatus(ctx, id, status)
}

// ListModels возвращает каталог моделей.
func (s *Service) ListModels(ctx context.Context) ([]model.MachineModel, error) {
	return s.repo.ListModels(ctx)
}

// GetModel возвращает модель каталога.
func (s *Service) GetModel(ctx context.Context, id int64) (*model.MachineModel, error) {
	return s.repo.GetModel(ctx, id)
}

// AddModel добавляет модель в каталог.
func (s *Service) AddModel(ctx context.Context, name string, defaultRent, fullPrice float64) (*model.MachineModel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyField
	}
	if defaultRent < 0 || fullPrice < 0 {
		return nil, ErrNegativeAmount
	}
	return s.repo.CreateModel(ctx, name, defaultRent, fullPrice)
}

// DeleteModel удаляет модель из каталога.
func (s *Service) DeleteModel(ctx context.Context, id int64) error {
	return s.repo.DeleteModel(ctx, id)
}

// DeleteDeals удаляет сделку по идентификатору либо все сделки арендатора. Возвращает число удалённых сделок.
func (s *Service) DeleteDeals(ctx context.Context, key string) (int64, error) {
	id, tenant, ok := validation.ParseKey(key)
	if !ok {
		return 0, ErrEmptyKey
	}
	if id > 0 {
		return s.repo.DeleteDeal(ctx, id)
	}
	return s.repo.DeleteDealsByTenant(ctx, tenant)
}

// DeletePayments удаляет платёж по идентификатору либо все платежи арендатора. Возвращает число удалённых платежей.
func (s *Service) DeletePayments(ctx context.Context, key string) (int64, error) {
	id, tenant, ok := validation.ParseKey(key)
	if !ok {
		return 0, ErrEmptyKey
	}
	if id > 0 {
		return s.repo.DeletePayment(ctx, id)
	}
	return s.repo.DeletePaymentsByTenant(ctx, tenant)
}

// DealsReport строит книгу Excel со сделками и платежами.
func (s *Service) DealsReport(ctx context.Context) ([]byte, error) {
	p, err := s.Portfolio(ctx)
	if err != nil {
		return nil, err
	}
	return report.DealsWorkbook(p)
}

// ProfitShareReport строит книгу Excel с партнёрскими начислениями по месяцам.
func (s *Service) ProfitShareReport(ctx context.Context) ([]byte, error) {
	p, err := s.Portfolio(ctx)
	if err != nil {
		return nil, err
	}
	return report.ProfitShareWorkbook(p, finance.MonthOf(s.Today()))
}

// Chart строит PNG-диаграмму указанного вида.
func (s *Service) Chart(ctx context.Context, kind report.ChartKind) ([]byte, error) {
	p, err := s.Portfolio(ctx)
	if err != nil {
		return nil, err
	}
	return report.Chart(kind, p, s.Today())
}
