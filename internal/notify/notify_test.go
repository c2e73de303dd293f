// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/resendlabs/resend-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/corpsite/internal/model"
	"github.com/olegiv/corpsite/internal/testutil"
)

type outbox struct {
	sent []Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg Message) error {
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, msg)
	return nil
}

func TestInboxItemNotification(t *testing.T) {
	box := &outbox{}
	n := New(box, []string{"boss@example.com"}, "Acme")

	err := n.InboxItem(context.Background(), model.InboxItem{
		Collection: "applications",
		FullName:   "Ada <script>",
		Email:      "ada@example.com",
		Position:   "Marketing",
		Message:    "Hello",
	})
	require.NoError(t, err)
	require.Len(t, box.sent, 1)
	msg := box.sent[0]
	assert.Equal(t, []string{"boss@example.com"}, msg.To)
	assert.Equal(t, "[Acme] New job application from Ada <script>", msg.Subject)
	assert.Contains(t, msg.HTML, "Ada &lt;script&gt;")
	assert.Contains(t, msg.HTML, "applying for Marketing")
}

func TestInboxItemWithoutAdmins(t *testing.T) {
	box := &outbox{}
	require.NoError(t, New(box, nil, "Acme").InboxItem(context.Background(), model.InboxItem{}))
	assert.Empty(t, box.sent)
}

type counts map[string]int

func (c counts) Count(_ context.Context, collection string, status model.InboxStatus) (int, error) {
	if status != model.InboxNew {
		return 0, errors.New("unexpected status")
	}
	if n, ok := c[collection]; ok {
		return n, nil
	}
	return 0, errors.New("store down")
}

func TestDigestJob(t *testing.T) {
	box := &outbox{}
	job := &DigestJob{
		Counter:  counts{"contactMessages": 2, "applications": 1},
		Notifier: New(box, []string{"boss@example.com"}, "Acme"),
		Sources: []DigestSource{
			{Collection: "contactMessages", Label: "Contact messages"},
			{Collection: "applications", Label: "Applications"},
		},
	}
	require.NoError(t, job.Run(context.Background()))
	require.Len(t, box.sent, 1)
	assert.Equal(t, "[Acme] 3 inbox items waiting", box.sent[0].Subject)
	assert.Contains(t, box.sent[0].HTML, "Contact messages: 2")

	job.Counter = counts{"contactMessages": 0, "applications": 0}
	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, box.sent, 1, "empty digest is not sent")

	job.Counter = counts{}
	assert.Error(t, job.Run(context.Background()))
}

func TestResendSend(t *testing.T) {
	var got *resend.SendEmailRequest
	r := &Resend{from: "Acme <noreply@example.com>", send: func(req *resend.SendEmailRequest) error {
		got = req
		return nil
	}}
	require.NoError(t, r.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "Hi", HTML: "<p>x</p>"}))
	assert.Equal(t, "Acme <noreply@example.com>", got.From)
	assert.Equal(t, []string{"a@example.com"}, got.To)
	assert.Equal(t, "<p>x</p>", got.Html)

	r.send = func(*resend.SendEmailRequest) error { return errors.New("rate limited") }
	err := r.Send(context.Background(), Message{})
	assert.ErrorContains(t, err, "rate limited")
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, Log{Logger: testutil.TestLoggerSilent()}.Send(context.Background(), Message{Subject: "x"}))
}
