// Package report строит выгрузки Excel и PNG-диаграммы по портфелю сделок.
package report

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/mmeshcher/coffee-rent-bot/internal/finance"
	"github.com/mmeshcher/coffee-rent-bot/internal/model"
)

// Названия листов выгрузки сделок.
const (
	SheetActive   = "Active Deals"
	SheetPayments = "Payments"
	SheetClosed   = "Closed Deals"
)

const (
	dateLayout   = "2006-01-02"
	minColWidth  = 6
	maxColWidth  = 60
	widthPadding = 2
)

// ErrNoData возвращается, если для отчёта нет данных.
var ErrNoData = errors.New("no data for report")

var dealHeaders = []string{
	"ID", "Start Date", "Tenant", "Model", "Barcode", "Rent", "Deposit", "Full Price",
	"Phone", "In Ledger", "Status", "Deal Type", "Buyout Date", "Comment", "Remaining",
}

var paymentHeaders = []string{
	"ID", "Deal ID", "Model", "Tenant", "Amount", "Payment Date", "Type", "Remaining",
}

// DealsWorkbook строит книгу с листами активных сделок, платежей и закрытых сделок.
// Лист закрытых сделок не создаётся, если закрытых сделок нет.
func DealsWorkbook(p finance.Portfolio) ([]byte, error) {
	var active, closed [][]any
	byID := make(map[int64]model.Deal, len(p.Deals))

	for _, d := range p.Deals {
		byID[d.ID] = d
		row := dealRow(d, finance.RemainingBalance(d, p.PaymentsOf(d.ID), p.Catalog))
		if d.Status.IsClosed() {
			closed = append(closed, row)
		} else {
			active = append(active, row)
		}
	}

	var payments []model.Payment
	for _, ps := range p.Payments {
		payments = append(payments, ps...)
	}
	sort.SliceStable(payments, func(i, j int) bool {
		if !payments[i].Date.Equal(payments[j].Date) {
			return payments[i].Date.Before(payments[j].Date)
		}
		return payments[i].ID < payments[j].ID
	})

	paymentRows := make([][]any, 0, len(payments))
	for _, pm := range payments {
		d, ok := byID[pm.DealID]
		var modelName, remaining any = "", ""
		if ok {
			modelName = d.Model
			remaining = finance.RemainingAsOf(d, p.PaymentsOf(d.ID), p.Catalog, pm.Date)
		}
		paymentRows = append(paymentRows, []any{
			pm.ID, pm.DealID, modelName, pm.Tenant, pm.Amount,
			pm.Date.Format(dateLayout), string(pm.Kind()), remaining,
		})
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetActive); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSheet(f, SheetActive, dealHeaders, active); err != nil {
		return nil, err
	}
	if err := writeSheet(f, SheetPayments, paymentHeaders, paymentRows); err != nil {
		return nil, err
	}
	if len(closed) > 0 {
		if err := writeSheet(f, SheetClosed, dealHeaders, closed); err != nil {
			return nil, err
		}
	}

	return toBytes(f)
}

func dealRow(d model.Deal, remaining float64) []any {
	var fullPrice, buyoutDate any = "", ""
	if d.FullPrice != nil {
		fullPrice = *d.FullPrice
	}
	if d.BuyoutDate != nil {
		buyoutDate = d.BuyoutDate.Format(dateLayout)
	}
	return []any{
		d.ID, d.StartDate.Format(dateLayout), d.Tenant, d.Model, d.Barcode, d.RentPrice, d.Deposit, fullPrice,
		d.Phone, yesNo(d.InLedger), string(d.Status), string(d.DealType), buyoutDate, d.Comment, remaining,
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// writeSheet создаёт лист при необходимости, записывает заголовок и строки и подбирает ширину колонок.
func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return fmt.Errorf("sheet index: %w", err)
	}
	if idx == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("new sheet %s: %w", sheet, err)
		}
	}

	widths := make([]int, len(headers))
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
		widths[i] = utf8.RuneCountInString(h)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
		for i, v := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], utf8.RuneCountInString(cellText(v)))
			}
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := float64(min(max(w+widthPadding, minColWidth), maxColWidth))
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("set width: %w", err)
		}
	}
	return nil
}

func cellText(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(dateLayout)
	default:
		return fmt.Sprint(x)
	}
}

func toBytes(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
