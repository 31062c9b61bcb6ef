// Package handler содержит HTTP-обработчики административного API учёта сделок.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/coffee-rent-bot/internal/finance"
	"github.com/mmeshcher/coffee-rent-bot/internal/middleware"
	"github.com/mmeshcher/coffee-rent-bot/internal/model"
	"github.com/mmeshcher/coffee-rent-bot/internal/repository"
	"github.com/mmeshcher/coffee-rent-bot/internal/service"
	"github.com/mmeshcher/coffee-rent-bot/internal/validation"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Today() time.Time
	ListDealViews(ctx context.Context, status model.DealStatus) ([]service.DealView, error)
	GetDealView(ctx context.Context, id int64) (*service.DealView, error)
	ProfitShare(ctx context.Context, id int64) (finance.ProfitShare, error)
	RecordPayment(ctx context.Context, req service.PaymentRequest) (*service.Receipt, error)
	Summary(ctx context.Context) (finance.Summary, error)
	DealsReport(ctx context.Context) ([]byte, error)
	ProfitShareReport(ctx context.Context) ([]byte, error)
}

// Handler реализует HTTP-обработчики административного API.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type paymentResponse struct {
	ID     int64   `json:"id"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
	Kind   string  `json:"kind"`
}

type dealResponse struct {
	ID          int64             `json:"id"`
	Barcode     string            `json:"barcode"`
	Model       string            `json:"model"`
	Tenant      string            `json:"tenant"`
	Phone       string            `json:"phone"`
	DealType    string            `json:"deal_type"`
	Status      string            `json:"status"`
	RentPrice   float64           `json:"rent_price"`
	Deposit     float64           `json:"deposit"`
	FullPrice   float64           `json:"full_price"`
	TotalPaid   float64           `json:"total_paid"`
	Remaining   float64           `json:"remaining"`
	StartDate   string            `json:"start_date"`
	BuyoutDate  string            `json:"buyout_date,omitempty"`
	NextDue     string            `json:"next_due,omitempty"`
	DaysLeft    *int              `json:"days_left,omitempty"`
	Tier        string            `json:"tier,omitempty"`
	InLedger    bool              `json:"in_ledger"`
	Comment     string            `json:"comment,omitempty"`
	Payments    []paymentResponse `json:"payments,omitempty"`
	LastPayment string            `json:"last_payment,omitempty"`
}

func newDealResponse(v service.DealView, withPayments bool) dealResponse {
	d := v.Deal
	resp := dealResponse{
		ID:          d.ID,
		Barcode:     d.Barcode,
		Model:       d.Model,
		Tenant:      d.Tenant,
		Phone:       d.Phone,
		DealType:    string(d.DealType),
		Status:      string(d.Status),
		RentPrice:   d.RentPrice,
		Deposit:     d.Deposit,
		FullPrice:   v.State.FullPrice,
		TotalPaid:   v.State.TotalPaid,
		Remaining:   v.State.Remaining,
		StartDate:   d.StartDate.Format(validation.DateLayout),
		InLedger:    d.InLedger,
		Comment:     d.Comment,
		LastPayment: v.State.LastPayment.Format(validation.DateLayout),
	}
	if d.BuyoutDate != nil {
		resp.BuyoutDate = d.BuyoutDate.Format(validation.DateLayout)
	}
	if !d.Status.IsClosed() {
		days := v.State.Status.DaysLeft
		resp.NextDue = v.State.NextDue.Format(validation.DateLayout)
		resp.DaysLeft = &days
		resp.Tier = string(v.State.Status.Tier)
	}
	if withPayments {
		resp.Payments = make([]paymentResponse, 0, len(v.Payments))
		for _, p := range v.Payments {
			resp.Payments = append(resp.Payments, paymentResponse{
				ID:     p.ID,
				Amount: p.Amount,
				Date:   p.Date.Format(validation.DateLayout),
				Kind:   string(p.Kind()),
			})
		}
	}
	return resp
}

// ListDeals возвращает сделки с вычисленным состоянием, с необязательным фильтром status.
func (h *Handler) ListDeals(w http.ResponseWriter, r *http.Request) {
	status := model.DealStatus(r.URL.Query().Get("status"))
	switch status {
	case "", model.DealStatusActive, model.DealStatusBuyout, model.DealStatusReturned, model.DealStatusDamaged:
	default:
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	views, err := h.service.ListDealViews(r.Context(), status)
	if err != nil {
		h.logger.Error("list deals error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(views) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]dealResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, newDealResponse(v, false))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetDeal возвращает сделку вместе с платежами.
func (h *Handler) GetDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := dealID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	view, err := h.service.GetDealView(r.Context(), id)
	if err != nil {
		h.writeError(w, "get deal error", err, id)
		return
	}

	h.writeJSON(w, http.StatusOK, newDealResponse(*view, true))
}

type accrualResponse struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
	Buyout bool    `json:"buyout,omitempty"`
}

type profitShareResponse struct {
	DealID   int64             `json:"deal_id"`
	Total    float64           `json:"total"`
	Accruals []accrualResponse `json:"accruals"`
}

// GetProfitShare возвращает график партнёрской комиссии по сделке.
func (h *Handler) GetProfitShare(w http.ResponseWriter, r *http.Request) {
	id, ok := dealID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	schedule, err := h.service.ProfitShare(r.Context(), id)
	if err != nil {
		h.writeError(w, "profit share error", err, id)
		return
	}

	resp := profitShareResponse{
		DealID:   id,
		Total:    schedule.Total(),
		Accruals: make([]accrualResponse, 0, len(schedule)),
	}
	for _, a := range schedule {
		resp.Accruals = append(resp.Accruals, accrualResponse{
			Month:  a.Month.String(),
			Amount: a.Amount,
			Buyout: a.Buyout,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type paymentRequest struct {
	Kind   string   `json:"kind"`
	Amount *float64 `json:"amount"`
	Date   string   `json:"date"`
}

type receiptResponse struct {
	Payment      paymentResponse `json:"payment"`
	DealStatus   string          `json:"deal_status"`
	NextReminder string          `json:"next_reminder,omitempty"`
}

// RecordPayment записывает платёж по сделке. Пустые сумма и дата заменяются значениями по умолчанию.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := dealID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	preq := service.PaymentRequest{DealID: id, Amount: req.Amount}
	if req.Kind != "" {
		kind, ok := model.ParsePaymentKind(req.Kind)
		if !ok {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		preq.Kind = kind
	}
	if req.Date != "" {
		date, err := validation.ParseDate(req.Date, h.service.Today())
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		preq.Date = &date
	}

	receipt, err := h.service.RecordPayment(r.Context(), preq)
	if err != nil {
		h.writeError(w, "record payment error", err, id)
		return
	}

	resp := receiptResponse{
		Payment: paymentResponse{
			ID:     receipt.Payment.ID,
			Amount: receipt.Payment.Amount,
			Date:   receipt.Payment.Date.Format(validation.DateLayout),
			Kind:   string(receipt.Payment.Kind()),
		},
		DealStatus: string(receipt.Deal.Status),
	}
	if receipt.NextReminder != nil {
		resp.NextReminder = receipt.NextReminder.Format(validation.DateLayout)
	}
	h.logger.Info("payment recorded", zap.Int64("deal_id", id), zap.Float64("amount", receipt.Payment.Amount))
	h.writeJSON(w, http.StatusCreated, resp)
}

type summaryResponse struct {
	ActiveDeals      int     `json:"active_deals"`
	OverdueDeals     int     `json:"overdue_deals"`
	DepositsHeld     float64 `json:"deposits_held"`
	ProjectedRevenue float64 `json:"projected_revenue"`
	OutsideLedger    int     `json:"outside_ledger"`
}

// GetSummary возвращает сводку по портфелю.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("summary error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, summaryResponse{
		ActiveDeals:      s.ActiveDeals,
		OverdueDeals:     s.OverdueDeals,
		DepositsHeld:     s.DepositsHeld,
		ProjectedRevenue: s.ProjectedRevenue,
		OutsideLedger:    s.OutsideLedger,
	})
}

// DealsReport отдаёт выгрузку сделок и платежей в формате xlsx.
func (h *Handler) DealsReport(w http.ResponseWriter, r *http.Request) {
	h.writeWorkbook(w, r, "coffee_report.xlsx", h.service.DealsReport)
}

// ProfitShareReport отдаёт выгрузку партнёрской комиссии в формате xlsx.
func (h *Handler) ProfitShareReport(w http.ResponseWriter, r *http.Request) {
	h.writeWorkbook(w, r, "profit_share.xlsx", h.service.ProfitShareReport)
}

// Health сообщает, что сервис запущен.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) writeWorkbook(w http.ResponseWriter, r *http.Request, name string, build func(context.Context) ([]byte, error)) {
	data, err := build(r.Context())
	if err != nil {
		h.logger.Error("build report error", zap.Error(err), zap.String("report", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("write report error", zap.Error(err))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response error", zap.Error(err))
	}
}

// writeError сопоставляет ошибки сервиса с кодами ответа; неожиданные ошибки логируются.
func (h *Handler) writeError(w http.ResponseWriter, msg string, err error, id int64) {
	var code int
	switch {
	case errors.Is(err, repository.ErrDealNotFound):
		code = http.StatusNotFound
	case errors.Is(err, service.ErrDealClosed):
		code = http.StatusConflict
	case errors.Is(err, service.ErrAmountRequired), errors.Is(err, service.ErrNegativeAmount):
		code = http.StatusUnprocessableEntity
	default:
		h.logger.Error(msg, zap.Error(err), zap.Int64("deal_id", id))
		code = http.StatusInternalServerError
	}
	http.Error(w, http.StatusText(code), code)
}

func dealID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
