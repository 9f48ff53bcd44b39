package events

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// LabelCount is one row of the top-items breakdown.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// CategoryCount is one row of the material breakdown.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// DailyCount is one day's event total, keyed by ISO date.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Stats aggregates the whole event history.
type Stats struct {
	TotalDisposals    int64           `json:"total_disposals"`
	RecyclableCount   int64           `json:"recyclable_count"`
	TrashCount        int64           `json:"trash_count"`
	RecyclingRate     float64         `json:"recycling_rate"`
	TodayCount        int64           `json:"today_count"`
	AvgConfidence     float64         `json:"avg_confidence"`
	StdDevConfidence  float64         `json:"stddev_confidence"`
	TopLabels         []LabelCount    `json:"top_labels"`
	CategoryBreakdown []CategoryCount `json:"category_breakdown"`
}

// QueryStats computes the aggregate view. Safe to call concurrently with
// writes.
func (s *Store) QueryStats() (*Stats, error) {
	out := &Stats{}

	if err := s.QueryRow(`SELECT COUNT(*) FROM disposal_events`).Scan(&out.TotalDisposals); err != nil {
		return nil, classifyStoreError(err)
	}
	if err := s.QueryRow(`SELECT COUNT(*) FROM disposal_events WHERE is_recyclable = 1`).Scan(&out.RecyclableCount); err != nil {
		return nil, classifyStoreError(err)
	}
	out.TrashCount = out.TotalDisposals - out.RecyclableCount
	if out.TotalDisposals > 0 {
		out.RecyclingRate = float64(out.RecyclableCount) / float64(out.TotalDisposals)
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := s.QueryRow(
		`SELECT COUNT(*) FROM disposal_events WHERE timestamp >= ?`,
		float64(midnight.Unix()),
	).Scan(&out.TodayCount); err != nil {
		return nil, classifyStoreError(err)
	}

	confidences, err := s.confidences()
	if err != nil {
		return nil, err
	}
	if len(confidences) > 0 {
		out.AvgConfidence = stat.Mean(confidences, nil)
		out.StdDevConfidence = stat.StdDev(confidences, nil)
	}

	rows, err := s.Query(`
		SELECT item_label, COUNT(*) AS n
		FROM disposal_events
		GROUP BY item_label
		ORDER BY n DESC, item_label ASC
		LIMIT 10`)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var lc LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, err
		}
		out.TopLabels = append(out.TopLabels, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	catRows, err := s.Query(`
		SELECT material_category, COUNT(*) AS n
		FROM disposal_events
		GROUP BY material_category
		ORDER BY n DESC, material_category ASC`)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var cc CategoryCount
		if err := catRows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, err
		}
		out.CategoryBreakdown = append(out.CategoryBreakdown, cc)
	}
	if err := catRows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// DailyCounts returns per-day event totals for the most recent days,
// oldest first. Used by the reporting tool.
func (s *Store) DailyCounts(days int) ([]DailyCount, error) {
	if days <= 0 {
		days = 30
	}
	rows, err := s.Query(`
		SELECT date(datetime) AS day, COUNT(*) AS n
		FROM disposal_events
		GROUP BY day
		ORDER BY day DESC
		LIMIT ?`, days)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	defer rows.Close()

	var counts []DailyCount
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(counts)-1; i < j; i, j = i+1, j-1 {
		counts[i], counts[j] = counts[j], counts[i]
	}
	return counts, nil
}

// Confidences returns every recorded confidence value, insertion order.
func (s *Store) confidences() ([]float64, error) {
	rows, err := s.Query(`SELECT confidence FROM disposal_events`)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Confidences exposes the recorded confidence series for reporting.
func (s *Store) Confidences() ([]float64, error) {
	return s.confidences()
}
