// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"context"
	"fmt"

	"github.com/olegiv/corpsite/internal/model"
)

// Counter counts inbox items by status.
type Counter interface {
	Count(ctx context.Context, collection string, status model.InboxStatus) (int, error)
}

// DigestSource is an inbox collection listed in the digest.
type DigestSource struct {
	Collection string
	Label      string
}

// DigestJob mails the number of new items of each source.
type DigestJob struct {
	Counter  Counter
	Notifier *Notifier
	Sources  []DigestSource
}

// Run counts and sends the digest.
func (j *DigestJob) Run(ctx context.Context) error {
	rows := make([]DigestRow, 0, len(j.Sources))
	for _, src := range j.Sources {
		n, err := j.Counter.Count(ctx, src.Collection, model.InboxNew)
		if err != nil {
			return fmt.Errorf("counting %s: %w", src.Collection, err)
		}
		rows = append(rows, DigestRow{Label: src.Label, Count: n})
	}
	return j.Notifier.Digest(ctx, rows)
}
