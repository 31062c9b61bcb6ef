package report

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/mmeshcher/coffee-rent-bot/internal/finance"
	"github.com/mmeshcher/coffee-rent-bot/internal/model"
)

// ChartKind это вид диаграммы.
type ChartKind string

const (
	ChartModels       ChartKind = "models"
	ChartStartsByDay  ChartKind = "starts_day"
	ChartStartsByWeek ChartKind = "starts_week"
	ChartOverdue      ChartKind = "overdue"
	ChartExpected     ChartKind = "expected"
)

// ParseChartKind проверяет название вида диаграммы.
func ParseChartKind(s string) (ChartKind, bool) {
	switch k := ChartKind(s); k {
	case ChartModels, ChartStartsByDay, ChartStartsByWeek, ChartOverdue, ChartExpected:
		return k, true
	}
	return "", false
}

var (
	barColor     = color.RGBA{R: 0x4e, G: 0x79, B: 0xa7, A: 0xff}
	overdueColor = color.RGBA{R: 0xe1, G: 0x57, B: 0x59, A: 0xff}
)

// Chart строит PNG-диаграмму по портфелю на дату today.
func Chart(kind ChartKind, p finance.Portfolio, today time.Time) ([]byte, error) {
	if len(p.Deals) == 0 {
		return nil, ErrNoData
	}

	var (
		title string
		key   func(model.Deal) string
	)
	switch kind {
	case ChartModels:
		title = "Deals by model"
		key = func(d model.Deal) string { return d.Model }
	case ChartStartsByDay:
		title = "Deal starts by day"
		key = func(d model.Deal) string { return d.StartDate.Format(dateLayout) }
	case ChartStartsByWeek:
		title = "Deal starts by week"
		key = func(d model.Deal) string {
			y, w := d.StartDate.ISOWeek()
			return fmt.Sprintf("%d-W%02d", y, w)
		}
	case ChartOverdue:
		labels, values := overdueDays(p, today)
		if len(labels) == 0 {
			return nil, ErrNoData
		}
		return barChart("Overdue days by tenant", "Days", overdueColor, labels, values)
	case ChartExpected:
		labels, values := expectedPayments(p, today)
		if len(labels) == 0 {
			return nil, ErrNoData
		}
		return barChart("Expected payments this month", "Amount", barColor, labels, values)
	default:
		return nil, fmt.Errorf("unknown chart kind %q", kind)
	}

	labels, values := countBy(p.Deals, key)
	return barChart(title, "Deals", barColor, labels, values)
}

// overdueDays возвращает наибольшую просрочку в днях по каждому арендатору активных сделок.
func overdueDays(p finance.Portfolio, today time.Time) ([]string, plotter.Values) {
	days := make(map[string]float64)
	for _, d := range p.Deals {
		if d.Status != model.DealStatusActive {
			continue
		}
		overdue := p.Evaluate(d, today).Status.DaysOverdue()
		if overdue > 0 {
			days[d.Tenant] = max(days[d.Tenant], float64(overdue))
		}
	}
	return sortedValues(days)
}

// expectedPayments суммирует аренду активных сделок, чей следующий платёж приходится на текущий месяц.
func expectedPayments(p finance.Portfolio, today time.Time) ([]string, plotter.Values) {
	current := finance.MonthOf(today)
	sums := make(map[string]decimal.Decimal)
	for _, d := range p.Deals {
		if d.Status != model.DealStatusActive {
			continue
		}
		if finance.MonthOf(finance.NextPaymentDue(d, p.PaymentsOf(d.ID))) != current {
			continue
		}
		sums[d.Tenant] = sums[d.Tenant].Add(decimal.NewFromFloat(d.RentPrice))
	}

	res := make(map[string]float64, len(sums))
	for tenant, sum := range sums {
		res[tenant] = sum.InexactFloat64()
	}
	return sortedValues(res)
}

func sortedValues(m map[string]float64) ([]string, plotter.Values) {
	labels := make([]string, 0, len(m))
	for k := range m {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	values := make(plotter.Values, len(labels))
	for i, l := range labels {
		values[i] = m[l]
	}
	return labels, values
}

func countBy(deals []model.Deal, key func(model.Deal) string) ([]string, plotter.Values) {
	counts := make(map[string]float64)
	for _, d := range deals {
		counts[key(d)]++
	}
	return sortedValues(counts)
}

func barChart(title, yLabel string, fill color.Color, labels []string, values plotter.Values) ([]byte, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("bar chart: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = fill
	p.Add(bars)

	p.NominalX(labels...)
	if len(labels) > 6 {
		p.X.Tick.Label.Rotation = math.Pi / 4
	}

	width := vg.Length(max(len(labels), 6)) * vg.Centimeter * 1.5
	w, err := p.WriterTo(width, 12*vg.Centimeter, "png")
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}
