// Package shape converts raw observation lists into the tabular shapes the
// formula layer renders into the host grid.
package shape

import (
	"sort"
	"time"

	"seriesbridge/internal/datasetiq"
)

// Dated rows always start with this fixed two-column header; the formula
// layer depends on it for fixed-column output.
var headerRow = []any{"Date", "Value"}

// Truncation notice appended for free-tier tables that hit the
// observation cap.
var noticeRows = [][]any{
	{"", ""},
	{"⚠️ Free tier limited to 100 most recent observations", ""},
	{"Upgrade for full access: datasetiq.com/pricing", ""},
}

// Table renders observations as grid rows: the header first, then one row
// per observation sorted by calendar date descending. Empty input yields
// just the header row.
func Table(obs []datasetiq.Observation) [][]any {
	rows := make([][]any, 0, len(obs)+1)
	rows = append(rows, headerRow)
	if len(obs) == 0 {
		return rows
	}

	sorted := make([]datasetiq.Observation, len(obs))
	copy(sorted, obs)
	// Calendar-date comparison, not lexical, so ordering is stable across
	// locales and zero-padding. Stable sort keeps ties in input order.
	sort.SliceStable(sorted, func(i, j int) bool {
		return parseDate(sorted[i].Date).After(parseDate(sorted[j].Date))
	})

	for _, o := range sorted {
		rows = append(rows, []any{o.Date, o.Value})
	}
	return rows
}

// AppendTruncationNotice adds a blank spacer row and the two-row free-tier
// notice block. The caller applies it only when no credential was sent and
// the observation count reached the free-tier cap; hitting the cap signals
// likely truncation, not a certainty.
func AppendTruncationNotice(rows [][]any) [][]any {
	return append(rows, noticeRows...)
}

func parseDate(s string) time.Time {
	for _, layout := range []string{time.DateOnly, "2006-1-2", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
