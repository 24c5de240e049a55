package weather

import (
	"math"
	"sort"
	"time"
)

// AggregateDaily groups forecast steps by calendar day in the forecast's own
// timezone and summarises each day. Min/max are taken across steps; the
// description is the most frequent one (earliest seen wins a tie).
// At most days entries are returned, ordered by date ascending.
func AggregateDaily(f Forecast, days int) []DailyForecast {
	if len(f.Entries) == 0 || days <= 0 {
		return nil
	}

	zone := time.FixedZone("", f.TimezoneOffset)

	type bucket struct {
		date   time.Time
		min    float64
		max    float64
		counts map[string]int
		order  []Condition
	}

	buckets := make(map[string]*bucket)
	for _, e := range f.Entries {
		local := e.Time.In(zone)
		key := local.Format("2006-01-02")

		b, ok := buckets[key]
		if !ok {
			b = &bucket{
				date:   time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone),
				min:    math.Inf(1),
				max:    math.Inf(-1),
				counts: make(map[string]int),
			}
			buckets[key] = b
		}

		b.min = math.Min(b.min, math.Min(e.TempMin, e.Temp))
		b.max = math.Max(b.max, math.Max(e.TempMax, e.Temp))

		if len(e.Conditions) > 0 {
			c := e.Conditions[0]
			if b.counts[c.Description] == 0 {
				b.order = append(b.order, c)
			}
			b.counts[c.Description]++
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]DailyForecast, 0, min(days, len(keys)))
	for _, k := range keys {
		if len(out) >= days {
			break
		}
		b := buckets[k]

		day := DailyForecast{Date: b.date, Min: b.min, Max: b.max}
		best := 0
		for _, c := range b.order {
			if n := b.counts[c.Description]; n > best {
				best = n
				day.Description = c.Description
				day.Icon = c.Icon
			}
		}
		out = append(out, day)
	}

	return out
}

// UpcomingSteps returns up to count forecast steps ordered by time, starting
// at the first step after now. When every step is in the past it starts at
// the earliest one.
func UpcomingSteps(f Forecast, now time.Time, count int) []ForecastEntry {
	if len(f.Entries) == 0 || count <= 0 {
		return nil
	}

	sorted := make([]ForecastEntry, len(f.Entries))
	copy(sorted, f.Entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	start := sort.Search(len(sorted), func(i int) bool { return sorted[i].Time.After(now) })
	if start == len(sorted) {
		start = 0
	}
	end := min(start+count, len(sorted))
	return sorted[start:end]
}
