// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package docstore

import (
	"cmp"
	"slices"
	"time"
)

// apply filters, orders and limits docs in place and returns the result.
// Without OrderBy documents are ordered by ID. Documents missing the order
// field sort after all others in either direction.
func apply(docs []Document, q Query) []Document {
	out := docs[:0]
	for _, d := range docs {
		if matches(d, q.Filters) {
			out = append(out, d)
		}
	}

	if q.OrderBy == "" {
		slices.SortFunc(out, func(a, b Document) int { return cmp.Compare(a.ID, b.ID) })
	} else {
		slices.SortStableFunc(out, func(a, b Document) int {
			av, aok := a.Data[q.OrderBy]
			bv, bok := b.Data[q.OrderBy]
			switch {
			case !aok && !bok:
				return cmp.Compare(a.ID, b.ID)
			case !aok:
				return 1
			case !bok:
				return -1
			}
			c := compareValues(av, bv)
			if q.Direction == Descending {
				c = -c
			}
			if c == 0 {
				return cmp.Compare(a.ID, b.ID)
			}
			return c
		})
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func matches(d Document, filters []Filter) bool {
	for _, f := range filters {
		v, ok := d.Data[f.Field]
		if !ok || compareValues(v, f.Value) != 0 {
			return false
		}
	}
	return true
}

// typeRank orders values of different types: null, bool, number, string, time.
func typeRank(v any) int {
	switch normalize(v).(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	case time.Time:
		return 4
	default:
		return 5
	}
}

// normalize widens Go numeric types to float64 so filter values written as
// int literals compare equal to decoded JSON numbers.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case uint:
		return float64(n)
	default:
		return v
	}
}

func compareValues(a, b any) int {
	a, b = normalize(a), normalize(b)
	if ra, rb := typeRank(a), typeRank(b); ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch av := a.(type) {
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case float64:
		return cmp.Compare(av, b.(float64))
	case string:
		return cmp.Compare(av, b.(string))
	case time.Time:
		return av.Compare(b.(time.Time))
	case nil:
		return 0
	default:
		return 0
	}
}
