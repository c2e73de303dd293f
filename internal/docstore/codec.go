// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package docstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// timestampKey tags encoded timestamps so they decode back into time.Time.
const timestampKey = "$ts"

// encode serialises document data. Timestamps are tagged; everything else
// uses plain JSON, so numbers come back as float64 and lists as []any.
func encode(data map[string]any) ([]byte, error) {
	b, err := json.Marshal(tagTimes(data))
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return b, nil
}

// decode is the inverse of encode.
func decode(b []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	for k, v := range m {
		m[k] = untagTimes(v)
	}
	return m, nil
}

func tagTimes(v any) any {
	switch t := v.(type) {
	case time.Time:
		return map[string]any{timestampKey: t.UTC().Format(time.RFC3339Nano)}
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = tagTimes(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = tagTimes(e)
		}
		return out
	default:
		return v
	}
}

func untagTimes(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if s, ok := t[timestampKey].(string); ok && len(t) == 1 {
			if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return ts
			}
		}
		for k, e := range t {
			t[k] = untagTimes(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = untagTimes(e)
		}
		return t
	default:
		return v
	}
}

// resolveSentinels replaces ServerTimestamp values with now.
func resolveSentinels(data map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch t := v.(type) {
		case serverTimestamp:
			out[k] = now
		case map[string]any:
			out[k] = resolveSentinels(t, now)
		default:
			out[k] = v
		}
	}
	return out
}
