// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package binding

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/corpsite/internal/config"
	"github.com/olegiv/corpsite/internal/docstore"
)

const waitFor = 2 * time.Second

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	t.Cleanup(cancel)
	return ctx
}

func seedPriorities(t *testing.T, s docstore.Store, priorities ...int) {
	t.Helper()
	for _, p := range priorities {
		_, err := s.Add(context.Background(), docstore.CollectionServices, map[string]any{"priority": p})
		require.NoError(t, err)
	}
}

func priorities(records []map[string]any) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i], _ = r["priority"].(float64)
	}
	return out
}

func TestCollectionOrderAndLimit(t *testing.T) {
	s := docstore.NewMemory()
	seedPriorities(t, s, 4, 2, 5, 1, 3)

	c := NewCollection(s, docstore.CollectionServices, Config{OrderBy: "priority", Limit: 3}, nil)
	defer c.Close()

	state, err := c.Wait(waitCtx(t))
	require.NoError(t, err)
	require.NoError(t, state.Err)
	assert.False(t, state.Loading)
	assert.Equal(t, []float64{1, 2, 3}, priorities(state.Data))
	for _, r := range state.Data {
		assert.NotEmpty(t, r["id"], "records carry their id")
	}

	require.True(t, c.Configure(Config{OrderBy: "priority", Limit: 5}))
	assert.Eventually(t, func() bool {
		s := c.State()
		return !s.Loading && len(s.Data) == 5
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, priorities(c.State().Data))
}

func TestCollectionConfigureStructuralEquality(t *testing.T) {
	s := docstore.NewMemory()
	cfg := Config{
		Filters: []docstore.Filter{{Field: "category", Value: "web"}},
		OrderBy: "priority",
	}
	c := NewCollection(s, docstore.CollectionProjects, cfg, nil)
	defer c.Close()

	same := Config{
		Filters: []docstore.Filter{{Field: "category", Value: "web"}},
		OrderBy: "priority",
	}
	assert.False(t, c.Configure(same), "equal configuration must not re-subscribe")
	assert.Equal(t, 1, s.Hub().Watchers())

	assert.True(t, c.Configure(Config{OrderBy: "priority", Direction: docstore.Descending}))
	assert.Equal(t, 1, s.Hub().Watchers(), "previous subscription is torn down")

	empty := NewCollection(s, docstore.CollectionProjects, Config{}, nil)
	defer empty.Close()
	assert.False(t, empty.Configure(Config{Filters: []docstore.Filter{}}))
}

func TestCollectionLiveUpdates(t *testing.T) {
	s := docstore.NewMemory()
	updates := make(chan State[[]map[string]any], 16)
	c := NewCollection(s, docstore.CollectionTeam, Config{OrderBy: "name"},
		func(st State[[]map[string]any]) { updates <- st })
	defer c.Close()

	first := <-updates
	assert.Empty(t, first.Data)
	assert.False(t, first.Loading)

	_, err := s.Add(context.Background(), docstore.CollectionTeam, map[string]any{"name": "Ada"})
	require.NoError(t, err)

	select {
	case st := <-updates:
		require.Len(t, st.Data, 1)
		assert.Equal(t, "Ada", st.Data[0]["name"])
	case <-time.After(waitFor):
		t.Fatal("no update after write")
	}
}

func TestCollectionCloseStopsListener(t *testing.T) {
	s := docstore.NewMemory()
	var calls atomic.Int32
	c := NewCollection(s, docstore.CollectionTeam, Config{}, func(State[[]map[string]any]) { calls.Add(1) })
	_, err := c.Wait(waitCtx(t))
	require.NoError(t, err)

	c.Close()
	c.Close()
	assert.Equal(t, 0, s.Hub().Watchers())
	assert.False(t, c.Configure(Config{Limit: 1}), "closed binding ignores Configure")

	before := calls.Load()
	_, err = s.Add(context.Background(), docstore.CollectionTeam, map[string]any{"name": "Grace"})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, calls.Load())
}

func TestCollectionUnconfigured(t *testing.T) {
	c := NewCollection(docstore.Unconfigured{}, docstore.CollectionServices, Config{}, nil)
	defer c.Close()

	// Resolved before the constructor returned.
	s := c.State()
	assert.False(t, s.Loading)
	assert.Empty(t, s.Data)
	assert.ErrorIs(t, s.Err, config.ErrNotConfigured)
}

func TestDocumentBinding(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemory()
	updates := make(chan State[map[string]any], 16)

	d := NewDocument(s, docstore.CollectionSiteSettings, docstore.SiteSettingsID,
		func(st State[map[string]any]) { updates <- st })
	defer d.Close()

	first := <-updates
	assert.False(t, first.Loading)
	assert.Nil(t, first.Data, "missing document is nil")
	assert.NoError(t, first.Err)

	require.NoError(t, s.Set(ctx, docstore.CollectionSiteSettings, docstore.SiteSettingsID, map[string]any{"tagline": "Hi"}))
	select {
	case st := <-updates:
		assert.Equal(t, "Hi", st.Data["tagline"])
		assert.Equal(t, docstore.SiteSettingsID, st.Data["id"])
	case <-time.After(waitFor):
		t.Fatal("no update after write")
	}
}

func TestDocumentLoadingUntilFirstDelivery(t *testing.T) {
	block := make(chan struct{})
	s := &gatedStore{Store: docstore.NewMemory(), gate: block}

	d := NewDocument(s, docstore.CollectionUsers, "u1", nil)
	defer d.Close()
	assert.True(t, d.State().Loading)
	assert.Nil(t, d.State().Data)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
	st, err := d.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.False(t, st.Loading)
}

func TestDocumentErrorKeepsStaleData(t *testing.T) {
	s := &scriptedStore{Store: docstore.NewMemory()}
	d := NewDocument(s, docstore.CollectionUsers, "u1", nil)
	defer d.Close()

	s.fire(&docstore.Document{ID: "u1", Data: map[string]any{"email": "a@example.com"}}, nil)
	require.Equal(t, "a@example.com", d.State().Data["email"])

	boom := errors.New("permission denied")
	s.fire(nil, boom)
	st := d.State()
	assert.ErrorIs(t, st.Err, boom)
	assert.False(t, st.Loading)
	assert.Equal(t, "a@example.com", st.Data["email"], "error does not clear data")
}

func TestDocumentUnconfigured(t *testing.T) {
	d := NewDocument(docstore.Unconfigured{}, docstore.CollectionSiteSettings, docstore.SiteSettingsID, nil)
	defer d.Close()

	st, err := d.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.False(t, st.Loading)
	assert.Nil(t, st.Data)
	assert.ErrorIs(t, st.Err, config.ErrNotConfigured)
}

func TestDocumentCloseDropsLateDelivery(t *testing.T) {
	s := &scriptedStore{Store: docstore.NewMemory()}
	var calls atomic.Int32
	d := NewDocument(s, docstore.CollectionUsers, "u1", func(State[map[string]any]) { calls.Add(1) })
	d.Close()

	// A delivery already in flight when Close ran.
	s.fire(&docstore.Document{ID: "u1"}, nil)
	assert.Equal(t, int32(0), calls.Load())
	assert.True(t, d.State().Loading)
}

// gatedStore delivers a missing document once gate is closed.
type gatedStore struct {
	docstore.Store
	gate chan struct{}
}

func (g *gatedStore) WatchDocument(_, _ string, fn func(*docstore.Document, error)) *docstore.Subscription {
	go func() {
		<-g.gate
		fn(nil, nil)
	}()
	return nil
}

// scriptedStore hands document deliveries to the test.
type scriptedStore struct {
	docstore.Store
	fn func(*docstore.Document, error)
}

func (s *scriptedStore) WatchDocument(_, _ string, fn func(*docstore.Document, error)) *docstore.Subscription {
	s.fn = fn
	return nil
}

func (s *scriptedStore) fire(doc *docstore.Document, err error) {
	s.fn(doc, err)
}
