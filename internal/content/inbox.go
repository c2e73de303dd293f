// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/editor"
	"github.com/olegiv/corpsite/internal/geoip"
	"github.com/olegiv/corpsite/internal/imaging"
	"github.com/olegiv/corpsite/internal/media"
	"github.com/olegiv/corpsite/internal/model"
)

// CVFolder is the upload folder of application resumes.
const CVFolder = "applications"

const mimePDF = "application/pdf"

// Field messages shown next to inputs of the public forms.
const (
	msgRequired   = "This field is required"
	msgEmail      = "Enter a valid email"
	msgPhone      = "Enter a valid phone number"
	msgWhatsApp   = "Enter a valid WhatsApp number"
	msgSkills     = "Select at least one skill"
	msgCVMissing  = "Upload your CV/Resume"
	msgCVFormat   = "Please upload an image (JPG, PNG, GIF, WebP) or a PDF"
	minPhoneDigit = 10
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Application form fields. Only these are stored.
var (
	applicationRequired = []string{
		"fullName", "fatherName", "email", "phone", "cnic", "dob", "gender",
		"city", "address", "educationDegree", "educationInstitute",
		"educationYear", "experienceYears", "role", "responsibilities",
		"position", "expectedSalary", "availability", "shortBio", "jobType",
	}
	applicationOptional = []string{
		"whatsapp", "previousCompany", "portfolioLink", "githubLink", "linkedinLink",
	}
)

// Positions, availability and job types offered on the apply form.
var (
	Positions    = []string{"Frontend Engineer", "Backend Engineer", "Full Stack Engineer", "Product Designer", "QA Analyst", "Project Manager", "DevOps Engineer", "Marketing"}
	Availability = []string{"Immediate", "2 Weeks Notice", "1 Month Notice", "Other"}
	JobTypes     = []string{"Remote", "On-site", "Hybrid"}
	Skills       = []string{"JavaScript", "TypeScript", "React", "Node.js", "Go", "Python", "SQL", "Cloud", "UI/UX", "Testing", "SEO", "Content"}
)

// Meta describes the request a submission came from.
type Meta struct {
	IP        string
	UserAgent string
}

// ContactForm is the public contact form.
type ContactForm struct {
	FullName string
	Email    string
	Company  string
	Message  string
}

// ItemNotifier is told about every stored submission.
type ItemNotifier interface {
	InboxItem(ctx context.Context, item model.InboxItem) error
}

// StatusError rejects a status change that is not a forward move.
type StatusError struct {
	From model.InboxStatus
	To   model.InboxStatus
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cannot move item from %q to %q", e.From, e.To)
}

// Inbox stores and manages contact messages and job applications.
type Inbox struct {
	store    docstore.Store
	uploader media.Uploader
	locator  geoip.Locator
	notifier ItemNotifier
	logger   *slog.Logger
}

// InboxOption configures an Inbox.
type InboxOption func(*Inbox)

// WithLocator tags submissions with the sender's country.
func WithLocator(l geoip.Locator) InboxOption {
	return func(i *Inbox) { i.locator = l }
}

// WithNotifier notifies admins about new submissions.
func WithNotifier(n ItemNotifier) InboxOption {
	return func(i *Inbox) { i.notifier = n }
}

// NewInbox creates the inbox service.
func NewInbox(store docstore.Store, uploader media.Uploader, logger *slog.Logger, opts ...InboxOption) *Inbox {
	i := &Inbox{store: store, uploader: uploader, logger: logger}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IsInboxCollection reports whether collection holds inbox items.
func IsInboxCollection(collection string) bool {
	return collection == docstore.CollectionApplications || collection == docstore.CollectionContactMessages
}

// SubmitContact validates and stores a contact message.
func (i *Inbox) SubmitContact(ctx context.Context, form ContactForm, meta Meta) (string, error) {
	form.FullName = strings.TrimSpace(form.FullName)
	form.Email = strings.TrimSpace(form.Email)
	form.Company = strings.TrimSpace(form.Company)
	form.Message = strings.TrimSpace(form.Message)

	var v validator
	v.required("fullName", form.FullName)
	v.required("email", form.Email)
	v.required("message", form.Message)
	v.email("email", form.Email)
	if err := v.err(); err != nil {
		return "", err
	}

	return i.add(ctx, docstore.CollectionContactMessages, map[string]any{
		"fullName": form.FullName,
		"email":    form.Email,
		"company":  form.Company,
		"message":  form.Message,
	}, meta)
}

// SubmitApplication validates the apply form, uploads the CV and stores the
// application. Values outside the form's fields are ignored. A failed
// upload aborts the submit before anything is written.
func (i *Inbox) SubmitApplication(ctx context.Context, values map[string]string, skills []string, cv *media.File, meta Meta) (string, error) {
	fields := make(map[string]any, len(applicationRequired)+len(applicationOptional)+2)
	var v validator
	for _, name := range applicationRequired {
		value := strings.TrimSpace(values[name])
		v.required(name, value)
		fields[name] = value
	}
	for _, name := range applicationOptional {
		fields[name] = strings.TrimSpace(values[name])
	}
	v.email("email", fields["email"].(string))
	v.minLength("phone", fields["phone"].(string), minPhoneDigit, msgPhone)
	v.minLength("whatsapp", fields["whatsapp"].(string), minPhoneDigit, msgWhatsApp)

	picked := make([]any, 0, len(skills))
	for _, s := range skills {
		if s = strings.TrimSpace(s); s != "" {
			picked = append(picked, s)
		}
	}
	if len(picked) == 0 {
		v.add("skills", msgSkills)
	}
	fields["skills"] = picked

	switch {
	case cv == nil || len(cv.Data) == 0:
		v.add("cvFile", msgCVMissing)
	case !acceptedCV(cv.Data):
		v.add("cvFile", msgCVFormat)
	}
	if err := v.err(); err != nil {
		return "", err
	}

	url, err := i.uploader.Upload(ctx, *cv, CVFolder)
	if err != nil {
		return "", err
	}
	fields["cvUrl"] = url

	return i.add(ctx, docstore.CollectionApplications, fields, meta)
}

// add stores the submission with status new and tells the notifier.
// Notification failures are logged only.
func (i *Inbox) add(ctx context.Context, collection string, fields map[string]any, meta Meta) (string, error) {
	fields["status"] = string(model.InboxNew)
	fields["userAgent"] = summarizeUserAgent(meta.UserAgent)
	if i.locator != nil {
		fields["country"] = i.locator.LookupCountry(meta.IP)
	}
	fields[docstore.FieldCreatedAt] = docstore.ServerTimestamp
	fields[docstore.FieldUpdatedAt] = docstore.ServerTimestamp

	id, err := i.store.Add(ctx, collection, fields)
	if err != nil {
		i.logger.Error("storing inbox submission failed", "collection", collection, "error", err)
		return "", &editor.StoreWriteError{Op: "create", Collection: collection, Err: err}
	}
	i.logger.Info("inbox submission stored", "collection", collection, "id", id)

	if i.notifier != nil {
		item, err := i.Get(ctx, collection, id)
		if err == nil {
			err = i.notifier.InboxItem(ctx, item)
		}
		if err != nil {
			i.logger.Warn("inbox notification failed", "collection", collection, "id", id, "error", err)
		}
	}
	return id, nil
}

// Get returns one item.
func (i *Inbox) Get(ctx context.Context, collection, id string) (model.InboxItem, error) {
	doc, err := i.store.Get(ctx, collection, id)
	if err != nil {
		return model.InboxItem{}, err
	}
	return model.InboxItemFromDocument(collection, doc), nil
}

// List returns the items of collection, newest first.
func (i *Inbox) List(ctx context.Context, collection string) ([]model.InboxItem, error) {
	docs, err := i.store.Query(ctx, i.Query(collection))
	if err != nil {
		return nil, err
	}
	items := make([]model.InboxItem, len(docs))
	for n, d := range docs {
		items[n] = model.InboxItemFromDocument(collection, d)
	}
	return items, nil
}

// Query is the admin listing query of collection.
func (i *Inbox) Query(collection string) docstore.Query {
	return docstore.Query{
		Collection: collection,
		OrderBy:    docstore.FieldCreatedAt,
		Direction:  docstore.Descending,
	}
}

// Advance moves an item to next. Statuses only move forward.
func (i *Inbox) Advance(ctx context.Context, collection, id string, next model.InboxStatus) error {
	item, err := i.Get(ctx, collection, id)
	if err != nil {
		return &editor.StoreWriteError{Op: "update", Collection: collection, ID: id, Err: err}
	}
	if !item.Status.CanAdvance(next) {
		return &StatusError{From: item.Status, To: next}
	}
	err = i.store.Update(ctx, collection, id, map[string]any{
		"status":                string(next),
		docstore.FieldUpdatedAt: docstore.ServerTimestamp,
	})
	if err != nil {
		return &editor.StoreWriteError{Op: "update", Collection: collection, ID: id, Err: err}
	}
	i.logger.Info("inbox item status changed", "collection", collection, "id", id, "from", item.Status, "to", next)
	return nil
}

// Delete removes an item. It requires confirmation.
func (i *Inbox) Delete(ctx context.Context, collection, id string, confirmed bool) error {
	if !confirmed {
		return editor.ErrNotConfirmed
	}
	if err := i.store.Delete(ctx, collection, id); err != nil {
		return &editor.StoreWriteError{Op: "delete", Collection: collection, ID: id, Err: err}
	}
	i.logger.Info("inbox item deleted", "collection", collection, "id", id)
	return nil
}

// Count returns the number of items of collection in status.
func (i *Inbox) Count(ctx context.Context, collection string, status model.InboxStatus) (int, error) {
	docs, err := i.store.Query(ctx, docstore.Query{
		Collection: collection,
		Filters:    []docstore.Filter{{Field: "status", Value: string(status)}},
	})
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// acceptedCV reports whether data is an image or a PDF.
func acceptedCV(data []byte) bool {
	mimeType := imaging.DetectMimeType(data)
	return mimeType == mimePDF || imaging.IsImage(mimeType)
}

// validator collects field errors in form order.
type validator struct {
	fields []editor.FieldError
}

func (v *validator) add(field, msg string) {
	for _, f := range v.fields {
		if f.Field == field {
			return
		}
	}
	v.fields = append(v.fields, editor.FieldError{Field: field, Message: msg})
}

func (v *validator) required(field, value string) {
	if value == "" {
		v.add(field, msgRequired)
	}
}

func (v *validator) email(field, value string) {
	if value != "" && !emailPattern.MatchString(value) {
		v.add(field, msgEmail)
	}
}

func (v *validator) minLength(field, value string, n int, msg string) {
	if value != "" && len(value) < n {
		v.add(field, msg)
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &editor.ValidationError{Fields: v.fields}
}
