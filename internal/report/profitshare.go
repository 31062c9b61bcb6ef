package report

import (
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/mmeshcher/coffee-rent-bot/internal/finance"
	"github.com/mmeshcher/coffee-rent-bot/internal/model"
)

// SheetProfitShare это лист пустой выгрузки комиссии.
const SheetProfitShare = "Profit Share"

var profitHeaders = []string{"ID", "Tenant", "Model", "Barcode", "Rent", "Status", "Start Date", "Total"}

type profitRow struct {
	deal     model.Deal
	schedule finance.ProfitShare
	byLabel  map[string]float64
}

// ProfitShareWorkbook строит книгу комиссии партнёра: по листу на месяц первого платежа,
// строка на сделку, колонка на месяц начисления. Месяцы без начислений в колонки не попадают.
func ProfitShareWorkbook(p finance.Portfolio, asOf finance.Month) ([]byte, error) {
	groups := make(map[string][]profitRow)
	for _, d := range p.Deals {
		payments := p.PaymentsOf(d.ID)
		schedule := finance.ProfitShareSchedule(d, payments, p.Catalog, asOf)
		label := finance.FirstMonth(d, payments).String()
		groups[label] = append(groups[label], profitRow{
			deal:     d,
			schedule: schedule,
			byLabel:  schedule.ByLabel(),
		})
	}

	labels := make([]string, 0, len(groups))
	for l := range groups {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	f := excelize.NewFile()
	defer f.Close()

	if len(labels) == 0 {
		if err := f.SetSheetName("Sheet1", SheetProfitShare); err != nil {
			return nil, err
		}
		if err := writeSheet(f, SheetProfitShare, profitHeaders, nil); err != nil {
			return nil, err
		}
		return toBytes(f)
	}

	if err := f.SetSheetName("Sheet1", labels[0]); err != nil {
		return nil, err
	}
	for _, label := range labels {
		headers, rows := profitSheet(groups[label])
		if err := writeSheet(f, label, headers, rows); err != nil {
			return nil, err
		}
	}

	return toBytes(f)
}

func profitSheet(group []profitRow) ([]string, [][]any) {
	months := make(map[string]bool)
	for _, r := range group {
		for label, amount := range r.byLabel {
			if amount != 0 {
				months[label] = true
			}
		}
	}

	columns := make([]string, 0, len(months))
	for m := range months {
		columns = append(columns, m)
	}
	sort.Strings(columns)

	headers := append(append([]string{}, profitHeaders...), columns...)

	rows := make([][]any, 0, len(group))
	for _, r := range group {
		d := r.deal
		row := []any{
			d.ID, d.Tenant, d.Model, d.Barcode, d.RentPrice, string(d.Status),
			d.StartDate.Format(dateLayout), r.schedule.Total(),
		}
		for _, m := range columns {
			if v, ok := r.byLabel[m]; ok && v != 0 {
				row = append(row, v)
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return headers, rows
}
