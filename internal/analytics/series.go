package analytics

import (
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// NewObservation builds a demand observation with its calendar features
func NewObservation(date time.Time, quantity int) domain.DemandObservation {
	date = Day(date)
	dow := int(date.Weekday())
	return domain.DemandObservation{
		Date:       date,
		Quantity:   quantity,
		DayOfWeek:  dow,
		DayOfMonth: date.Day(),
		Month:      int(date.Month()),
		IsWeekend:  dow == int(time.Saturday) || dow == int(time.Sunday),
	}
}

// BuildDailySeries aggregates movements into one observation per calendar day
// from start to end inclusive. Days without movements have quantity 0 and
// movements outside the window are ignored.
func BuildDailySeries(movements []domain.Movement, start, end time.Time) []domain.DemandObservation {
	start, end = Day(start), Day(end)
	if end.Before(start) {
		return []domain.DemandObservation{}
	}

	totals := make(map[time.Time]int, len(movements))
	for _, m := range movements {
		day := Day(m.Date)
		if day.Before(start) || day.After(end) {
			continue
		}
		q := m.Quantity
		if q < 0 {
			q = -q
		}
		totals[day] += q
	}

	days := int(end.Sub(start).Hours()/24) + 1
	series := make([]domain.DemandObservation, 0, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		series = append(series, NewObservation(d, totals[d]))
	}
	return series
}

// ActiveSpan returns the tail of the series starting at the first day with
// demand. Leading zero days precede the product's first sale and carry no signal.
func ActiveSpan(series []domain.DemandObservation) []domain.DemandObservation {
	for i, o := range series {
		if o.Quantity > 0 {
			return series[i:]
		}
	}
	return series[:0]
}

// Quantities extracts the demand values of a series
func Quantities(series []domain.DemandObservation) []float64 {
	values := make([]float64, len(series))
	for i, o := range series {
		values[i] = float64(o.Quantity)
	}
	return values
}

// NextDay returns the first day after the series, or the day after now when empty
func NextDay(series []domain.DemandObservation, now time.Time) time.Time {
	if len(series) == 0 {
		return Day(now).AddDate(0, 0, 1)
	}
	return series[len(series)-1].Date.AddDate(0, 0, 1)
}
