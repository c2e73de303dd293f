// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/corpsite/internal/config"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/media"
	"github.com/olegiv/corpsite/internal/testutil"
)

// clock is a settable store clock.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeUploader struct {
	err     error
	folders []string
}

func (f *fakeUploader) Upload(_ context.Context, file media.File, folder string) (string, error) {
	f.folders = append(f.folders, folder)
	if f.err != nil {
		return "", &media.UploadError{Folder: folder, Err: f.err}
	}
	return "https://cdn.example.com/" + folder + "/" + file.Name, nil
}

func newStore() (*docstore.Engine, *clock) {
	c := &clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	return docstore.NewMemory(docstore.WithClock(c.now)), c
}

func simpleSchema(collection string) Schema {
	return Schema{
		Collection: collection,
		Fields: []Field{
			{Name: "title", Label: "Title", Kind: Text{}},
			{Name: "priority", Label: "Priority", Kind: Number{}},
		},
		OrderBy:   docstore.FieldCreatedAt,
		Direction: docstore.Descending,
	}
}

func blogSchema(t *testing.T) Schema {
	t.Helper()
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	s, ok := reg.Lookup(docstore.CollectionBlogPosts)
	require.True(t, ok)
	return s
}

func newEditor(s Schema, store docstore.Store, up media.Uploader) *Editor {
	return New(s, store, up, WithLogger(testutil.TestLoggerSilent()))
}

func TestSubmitCreatesRecord(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	ed := newEditor(simpleSchema(docstore.CollectionServices), store, &fakeUploader{})

	id, err := ed.Submit(ctx, Input{Values: map[string]string{"title": "A", "priority": "1"}})
	require.NoError(t, err)

	docs, err := store.Query(ctx, docstore.Query{Collection: docstore.CollectionServices})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	doc := docs[0]
	assert.Equal(t, id, doc.ID)
	assert.Equal(t, "A", doc.Data["title"])
	assert.Equal(t, float64(1), doc.Data["priority"])
	assert.True(t, doc.Has(docstore.FieldCreatedAt))
	assert.True(t, doc.Has(docstore.FieldUpdatedAt))
	assert.False(t, doc.Has(docstore.FieldPublishedAt))

	assert.Empty(t, ed.EditingID())
	assert.Equal(t, Form{"title": "", "priority": ""}, ed.Form(), "form resets after success")
	assert.NoError(t, ed.Err())
}

func TestSubmitEmptyNumberStaysEmpty(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	ed := newEditor(simpleSchema(docstore.CollectionTeam), store, &fakeUploader{})

	id, err := ed.Submit(ctx, Input{Values: map[string]string{"title": "B", "priority": "  "}})
	require.NoError(t, err)
	doc, err := store.Get(ctx, docstore.CollectionTeam, id)
	require.NoError(t, err)
	assert.Equal(t, "", doc.Data["priority"])
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	s := simpleSchema(docstore.CollectionServices)
	s.Fields[0].Required = true
	s.Fields = append(s.Fields, Field{Name: "websiteUrl", Label: "Website", Kind: URL{}})
	ed := newEditor(s, store, &fakeUploader{})

	in := Input{Values: map[string]string{"title": " ", "priority": "high", "websiteUrl": "javascript:alert(1)"}}
	_, err := ed.Submit(ctx, in)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Title is required", verr.For("title"))
	assert.Equal(t, "Priority must be a number", verr.For("priority"))
	assert.NotEmpty(t, verr.For("websiteUrl"))
	assert.Equal(t, "high", ed.Form()["priority"], "input is retained")
	assert.Equal(t, err, ed.Err())

	docs, err := store.Query(ctx, docstore.Query{Collection: docstore.CollectionServices})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestBlogPublishedAtSetOnce(t *testing.T) {
	ctx := context.Background()
	store, clk := newStore()
	s := blogSchema(t)
	ed := newEditor(s, store, &fakeUploader{})

	id, err := ed.Submit(ctx, Input{Values: map[string]string{"title": "Launch day", "author": "Ada"}})
	require.NoError(t, err)

	created, err := store.Get(ctx, docstore.CollectionBlogPosts, id)
	require.NoError(t, err)
	published, ok := created.Time(docstore.FieldPublishedAt)
	require.True(t, ok)
	assert.Equal(t, "launch-day", created.String(FieldSlug))

	clk.advance(time.Hour)
	ed.Edit(created.Map())
	assert.Equal(t, id, ed.EditingID())
	_, err = ed.Submit(ctx, Input{Values: map[string]string{"title": "Launch day, updated"}})
	require.NoError(t, err)

	updated, err := store.Get(ctx, docstore.CollectionBlogPosts, id)
	require.NoError(t, err)
	gotPublished, _ := updated.Time(docstore.FieldPublishedAt)
	assert.True(t, published.Equal(gotPublished), "publishedAt unchanged")
	createdAt, _ := created.Time(docstore.FieldCreatedAt)
	gotCreated, _ := updated.Time(docstore.FieldCreatedAt)
	assert.True(t, createdAt.Equal(gotCreated), "createdAt unchanged")
	before, _ := created.Time(docstore.FieldUpdatedAt)
	after, _ := updated.Time(docstore.FieldUpdatedAt)
	assert.True(t, after.After(before), "updatedAt advances")
	assert.Equal(t, "launch-day", updated.String(FieldSlug), "slug is kept on update")
	assert.Equal(t, "Launch day, updated", updated.String("title"))
}

func TestSlugsAreUnique(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	s := simpleSchema(docstore.CollectionProjects)
	s.Slug = true

	var slugs []string
	for range 3 {
		ed := newEditor(s, store, &fakeUploader{})
		id, err := ed.Submit(ctx, Input{Values: map[string]string{"title": "Harbor"}})
		require.NoError(t, err)
		doc, err := store.Get(ctx, docstore.CollectionProjects, id)
		require.NoError(t, err)
		slugs = append(slugs, doc.String(FieldSlug))
	}
	assert.Equal(t, []string{"harbor", "harbor-2", "harbor-3"}, slugs)
}

func TestEditCancelLeavesRecordUnchanged(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	ed := newEditor(simpleSchema(docstore.CollectionServices), store, &fakeUploader{})
	id, err := ed.Submit(ctx, Input{Values: map[string]string{"title": "A", "priority": "2"}})
	require.NoError(t, err)
	before, err := store.Get(ctx, docstore.CollectionServices, id)
	require.NoError(t, err)

	require.NoError(t, ed.Load(ctx, id))
	assert.Equal(t, Form{"title": "A", "priority": "2"}, ed.Form())
	ed.Cancel()
	assert.Empty(t, ed.EditingID())

	after, err := store.Get(ctx, docstore.CollectionServices, id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEditDefaultsAbsentFields(t *testing.T) {
	s := Schema{Collection: "services", Fields: []Field{
		{Name: "title", Kind: Text{}},
		{Name: "highlights", Kind: StringList{}},
		{Name: "priority", Kind: Number{}},
	}}
	ed := newEditor(s, docstore.NewMemory(), &fakeUploader{})
	ed.Edit(map[string]any{"id": "s1", "highlights": []any{"fast", "safe"}, "priority": 2.5})

	assert.Equal(t, Form{"title": "", "highlights": "fast, safe", "priority": "2.5"}, ed.Form())
	assert.Equal(t, "s1", ed.EditingID())
}

func TestImageUploadedBeforeWrite(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	sliders, _ := reg.Lookup(docstore.CollectionSliders)
	up := &fakeUploader{}
	ed := newEditor(sliders, store, up)

	_, err = ed.Submit(ctx, Input{Values: map[string]string{"title": "Hello"}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr, "required image without a file")
	assert.Empty(t, up.folders)

	id, err := ed.Submit(ctx, Input{
		Values: map[string]string{"title": "Hello", "order": "1"},
		Files:  map[string]media.File{"imageUrl": {Name: "hero.jpg", Data: []byte("img")}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sliders"}, up.folders)

	doc, err := store.Get(ctx, docstore.CollectionSliders, id)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/sliders/hero.jpg", doc.String("imageUrl"))

	// Editing without a new file keeps the stored URL.
	require.NoError(t, ed.Load(ctx, id))
	_, err = ed.Submit(ctx, Input{Values: map[string]string{"title": "Hello again"}})
	require.NoError(t, err)
	doc, err = store.Get(ctx, docstore.CollectionSliders, id)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/sliders/hero.jpg", doc.String("imageUrl"))
	assert.Len(t, up.folders, 1)
}

func TestUploadFailureAbortsSubmit(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	up := &fakeUploader{err: errors.New("quota exceeded")}
	s := simpleSchema(docstore.CollectionTeam)
	s.Fields = append(s.Fields, Field{Name: "imageUrl", Label: "Photo", Kind: Image{Folder: "team"}})
	ed := newEditor(s, store, up)

	_, err := ed.Submit(ctx, Input{
		Values: map[string]string{"title": "Grace"},
		Files:  map[string]media.File{"imageUrl": {Name: "g.jpg", Data: []byte("img")}},
	})
	var upErr *media.UploadError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "Grace", ed.Form()["title"])
	assert.True(t, ed.PendingFile("imageUrl"), "chosen file is kept for retry")

	docs, err := store.Query(ctx, docstore.Query{Collection: docstore.CollectionTeam})
	require.NoError(t, err)
	assert.Empty(t, docs, "no record written")
}

func TestUnconfiguredUploaderAbortsSubmit(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	s := simpleSchema(docstore.CollectionTeam)
	s.Fields = append(s.Fields, Field{Name: "imageUrl", Kind: Image{Folder: "team"}})
	ed := newEditor(s, store, media.NewUnconfigured(testutil.TestLoggerSilent()))

	_, err := ed.Submit(ctx, Input{
		Values: map[string]string{"title": "Grace"},
		Files:  map[string]media.File{"imageUrl": {Name: "g.jpg", Data: []byte("img")}},
	})
	assert.ErrorIs(t, err, config.ErrNotConfigured)
}

func TestStoreWriteError(t *testing.T) {
	ctx := context.Background()
	ed := newEditor(simpleSchema(docstore.CollectionServices), docstore.Unconfigured{}, &fakeUploader{})

	_, err := ed.Submit(ctx, Input{Values: map[string]string{"title": "A"}})
	var werr *StoreWriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "create", werr.Op)
	assert.ErrorIs(t, err, config.ErrNotConfigured)
	assert.Equal(t, "A", ed.Form()["title"])
}

func TestUpdateOfDeletedRecord(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	ed := newEditor(simpleSchema(docstore.CollectionServices), store, &fakeUploader{})
	ed.Edit(map[string]any{"id": "gone", "title": "A"})

	_, err := ed.Submit(ctx, Input{Values: map[string]string{"title": "B"}})
	var werr *StoreWriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "update", werr.Op)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	assert.Equal(t, "gone", ed.EditingID(), "still editing after failure")
}

func TestRemoveRequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	ed := newEditor(simpleSchema(docstore.CollectionServices), store, &fakeUploader{})
	id, err := ed.Submit(ctx, Input{Values: map[string]string{"title": "A"}})
	require.NoError(t, err)

	assert.ErrorIs(t, ed.Remove(ctx, id, false), ErrNotConfirmed)
	_, err = store.Get(ctx, docstore.CollectionServices, id)
	require.NoError(t, err)

	require.NoError(t, ed.Load(ctx, id))
	require.NoError(t, ed.Remove(ctx, id, true))
	assert.Empty(t, ed.EditingID(), "removing the edited record leaves edit mode")
	_, err = store.Get(ctx, docstore.CollectionServices, id)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store, clk := newStore()
	ed := newEditor(simpleSchema(docstore.CollectionServices), store, &fakeUploader{})
	for _, title := range []string{"first", "second", "third"} {
		_, err := ed.Submit(ctx, Input{Values: map[string]string{"title": title}})
		require.NoError(t, err)
		clk.advance(time.Minute)
	}

	records, err := ed.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "third", records[0]["title"])
	assert.Equal(t, "first", records[2]["title"])

	live := ed.Watch(nil)
	defer live.Close()
	wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	state, err := live.Wait(wctx)
	require.NoError(t, err)
	assert.Equal(t, records, state.Data)
}

func TestParseList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a, b ,, c", []string{"a", "b", "c"}},
		{"", []string{}},
		{" , ,", []string{}},
		{"single", []string{"single"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseList(tt.in), "ParseList(%q)", tt.in)
	}
	assert.Equal(t, "a, b", FormatList([]string{"a", "b"}))
}
