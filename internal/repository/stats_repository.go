package repository

import (
	"context"
	"database/sql"
)

// StatsSummary aggregates reservation counts and revenue over common
// windows. Cancelled rows are excluded everywhere; revenue is the sum
// of unit_price * quantity in yen.
type StatsSummary struct {
	Today     PeriodStats `json:"today"`
	ThisWeek  PeriodStats `json:"this_week"`
	ThisMonth PeriodStats `json:"this_month"`
	Total     PeriodStats `json:"total"`
}

// PeriodStats is one window of the summary.
type PeriodStats struct {
	Reservations uint64 `json:"reservations"`
	Items        uint64 `json:"items"`
	Revenue      uint64 `json:"revenue"`
}

// MenuCount is one row of the per-item breakdown, grouped by the
// denormalized item name so renamed or removed items keep their history.
type MenuCount struct {
	ItemName     string `json:"item_name"`
	Reservations uint64 `json:"reservations"`
	Items        uint64 `json:"items"`
	Revenue      uint64 `json:"revenue"`
}

// SlotCount is one row of the per-time-slot breakdown.
type SlotCount struct {
	TimeSlot     string `json:"time_slot"`
	Reservations uint64 `json:"reservations"`
	Items        uint64 `json:"items"`
}

const statsAggregate = `COUNT(*), COALESCE(SUM(quantity), 0), COALESCE(SUM(unit_price * quantity), 0)`

// Summary computes today/week/month/total stats in four point queries.
// The week starts on Monday, matching the shop's business week.
func (r *ReservationRepo) Summary(ctx context.Context) (StatsSummary, error) {
	var s StatsSummary
	queries := []struct {
		dst   *PeriodStats
		where string
	}{
		{&s.Today, `reservation_date = CURDATE()`},
		{&s.ThisWeek, `reservation_date >= DATE_SUB(CURDATE(), INTERVAL WEEKDAY(CURDATE()) DAY)
		               AND reservation_date < DATE_ADD(DATE_SUB(CURDATE(), INTERVAL WEEKDAY(CURDATE()) DAY), INTERVAL 7 DAY)`},
		{&s.ThisMonth, `reservation_date LIKE CONCAT(DATE_FORMAT(CURDATE(), '%Y-%m'), '%')`},
		{&s.Total, `1=1`},
	}
	for _, q := range queries {
		err := r.db.QueryRowContext(ctx,
			`SELECT `+statsAggregate+` FROM reservations WHERE status != 'cancelled' AND `+q.where).
			Scan(&q.dst.Reservations, &q.dst.Items, &q.dst.Revenue)
		if err != nil && err != sql.ErrNoRows {
			return StatsSummary{}, err
		}
	}
	return s, nil
}

// CountByMenu breaks non-cancelled reservations down per item name,
// busiest first.
func (r *ReservationRepo) CountByMenu(ctx context.Context) ([]MenuCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT item_name, `+statsAggregate+`
		 FROM reservations WHERE status != 'cancelled'
		 GROUP BY item_name
		 ORDER BY SUM(quantity) DESC, item_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]MenuCount, 0)
	for rows.Next() {
		var c MenuCount
		if err := rows.Scan(&c.ItemName, &c.Reservations, &c.Items, &c.Revenue); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountByTimeSlot breaks non-cancelled reservations down per time slot
// in slot order, showing where the lunch rush lands.
func (r *ReservationRepo) CountByTimeSlot(ctx context.Context) ([]SlotCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT time_slot, COUNT(*), COALESCE(SUM(quantity), 0)
		 FROM reservations WHERE status != 'cancelled'
		 GROUP BY time_slot
		 ORDER BY time_slot`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]SlotCount, 0)
	for rows.Next() {
		var c SlotCount
		if err := rows.Scan(&c.TimeSlot, &c.Reservations, &c.Items); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
