// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package notify e-mails administrators about new inbox items.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/resendlabs/resend-go"

	"github.com/olegiv/corpsite/internal/model"
)

// Message is an outgoing e-mail.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Resend sends through the Resend API.
type Resend struct {
	from string
	send func(*resend.SendEmailRequest) error
}

// NewResend returns a sender using apiKey and the from address.
func NewResend(apiKey, from string) *Resend {
	client := resend.NewClient(apiKey)
	return &Resend{
		from: from,
		send: func(req *resend.SendEmailRequest) error {
			_, err := client.Emails.Send(req)
			return err
		},
	}
}

// Send implements Sender.
func (r *Resend) Send(_ context.Context, msg Message) error {
	req := &resend.SendEmailRequest{
		From:    r.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	if err := r.send(req); err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}
	return nil
}

// Log writes messages to the log instead of sending them.
type Log struct {
	Logger *slog.Logger
}

// Send implements Sender.
func (l Log) Send(_ context.Context, msg Message) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("email not sent (no mail provider configured)",
		"to", strings.Join(msg.To, ","), "subject", msg.Subject)
	return nil
}

// Notifier composes admin notifications.
type Notifier struct {
	sender   Sender
	admins   []string
	siteName string
}

// New returns a notifier mailing admins through sender.
func New(sender Sender, admins []string, siteName string) *Notifier {
	return &Notifier{sender: sender, admins: admins, siteName: siteName}
}

var itemTmpl = template.Must(template.New("item").Parse(`<p>A new {{.Kind}} arrived on {{.Site}}.</p>
<p><strong>{{.Item.FullName}}</strong> &lt;{{.Item.Email}}&gt;{{if .Item.Position}}, applying for {{.Item.Position}}{{end}}</p>
{{if .Item.Message}}<blockquote>{{.Item.Message}}</blockquote>{{end}}
{{if .Item.Country}}<p>Country: {{.Item.Country}}</p>{{end}}
`))

var digestTmpl = template.Must(template.New("digest").Parse(`<p>Inbox items waiting for review on {{.Site}}:</p>
<ul>{{range .Rows}}<li>{{.Label}}: {{.Count}}</li>{{end}}</ul>
`))

func kindOf(collection string) string {
	if collection == "applications" {
		return "job application"
	}
	return "contact message"
}

// InboxItem announces a new submission. Without admins it does nothing.
func (n *Notifier) InboxItem(ctx context.Context, item model.InboxItem) error {
	if len(n.admins) == 0 {
		return nil
	}
	var buf bytes.Buffer
	err := itemTmpl.Execute(&buf, map[string]any{
		"Kind": kindOf(item.Collection),
		"Site": n.siteName,
		"Item": item,
	})
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, Message{
		To:      n.admins,
		Subject: fmt.Sprintf("[%s] New %s from %s", n.siteName, kindOf(item.Collection), item.FullName),
		HTML:    buf.String(),
	})
}

// DigestRow is one line of the digest.
type DigestRow struct {
	Label string
	Count int
}

// Digest sends the count of unreviewed items. Nothing is sent when every
// count is zero.
func (n *Notifier) Digest(ctx context.Context, rows []DigestRow) error {
	total := 0
	for _, r := range rows {
		total += r.Count
	}
	if total == 0 || len(n.admins) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, map[string]any{"Site": n.siteName, "Rows": rows}); err != nil {
		return err
	}
	return n.sender.Send(ctx, Message{
		To:      n.admins,
		Subject: fmt.Sprintf("[%s] %d inbox items waiting", n.siteName, total),
		HTML:    buf.String(),
	})
}
