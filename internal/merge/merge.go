// Package merge reconciles per-source daily series into one row per calendar
// date.
package merge

import (
	"sort"

	"github.com/mcamposv/metrica/internal/models"
)

type mergedDay struct {
	counters models.Counters
	sources  map[string]struct{}
}

// Merge combines same-date records from every source into a single row per
// calendar date, ascending. The result covers the union of all dates seen
// across sources; counters of a source absent on a date stay zero (absence is
// "zero activity", not "unknown" — no interpolation, no forward fill).
// Keyed by date, so the outcome is independent of source order.
func Merge(bySource map[string][]models.DailyMetric) []models.MergedDailyRow {
	days := make(map[string]*mergedDay)
	for tag, series := range bySource {
		for _, m := range series {
			k := models.Day(m.Date).Format(models.DateFormat)
			d, ok := days[k]
			if !ok {
				d = &mergedDay{sources: make(map[string]struct{})}
				days[k] = d
			}
			d.counters.Add(m.Counters)
			d.sources[tag] = struct{}{}
		}
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	// orden determinista: YYYY-MM-DD ordena lexicográfica = cronológica
	sort.Strings(keys)

	rows := make([]models.MergedDailyRow, 0, len(keys))
	for _, k := range keys {
		d := days[k]
		tags := make([]string, 0, len(d.sources))
		for t := range d.sources {
			tags = append(tags, t)
		}
		sort.Strings(tags)
		rows = append(rows, models.MergedDailyRow{
			Date:     k,
			Counters: d.counters,
			Sources:  tags,
		})
	}
	return rows
}
