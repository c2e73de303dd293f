// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/olegiv/corpsite/internal/config"
)

// Persistence remembers which principal a browser is signed in as.
type Persistence interface {
	Load(ctx context.Context) string
	Save(ctx context.Context, principalID string) error
	Clear(ctx context.Context) error
}

// MemoryPersistence keeps the signed-in principal id in memory.
type MemoryPersistence struct {
	mu sync.Mutex
	id string
}

func (m *MemoryPersistence) Load(context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

func (m *MemoryPersistence) Save(_ context.Context, id string) error {
	m.mu.Lock()
	m.id = id
	m.mu.Unlock()
	return nil
}

func (m *MemoryPersistence) Clear(context.Context) error {
	return m.Save(context.Background(), "")
}

// Listener receives the signed-in principal, or nil after sign-out.
type Listener func(ctx context.Context, p *Principal)

// Client is the provider handle of one browser session.
type Client struct {
	dir      Directory
	persist  Persistence
	verifier *FederatedVerifier
	logger   *slog.Logger

	mu        sync.Mutex
	resolved  bool
	current   *Principal
	listeners map[int]Listener
	nextID    int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithFederatedVerifier enables federated sign-in.
func WithFederatedVerifier(v *FederatedVerifier) ClientOption {
	return func(c *Client) { c.verifier = v }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client over dir that restores its state from persist.
func NewClient(dir Directory, persist Persistence, opts ...ClientOption) *Client {
	c := &Client{
		dir:       dir,
		persist:   persist,
		logger:    slog.Default(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns a ConfigurationError when the directory is unconfigured.
func (c *Client) Configured() error {
	if _, ok := c.dir.(UnconfiguredDirectory); ok {
		return ErrDirectoryNotConfigured
	}
	return nil
}

// FederatedEnabled reports whether federated sign-in is available.
func (c *Client) FederatedEnabled() bool {
	return c.verifier != nil
}

// OnAuthStateChanged registers fn and calls it with the current principal
// before returning. The returned function unregisters fn.
func (c *Client) OnAuthStateChanged(ctx context.Context, fn Listener) func() {
	current := c.resolve(ctx)

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	fn(ctx, current)

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// CurrentPrincipal returns the signed-in principal or nil.
func (c *Client) CurrentPrincipal(ctx context.Context) *Principal {
	return c.resolve(ctx)
}

// Register creates a password principal and signs it in.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (*Principal, error) {
	const op = "register"
	if err := c.Configured(); err != nil {
		return nil, &Error{Op: op, Code: CodeUnavailable, Err: err}
	}
	addr, ok := normalizeEmail(email)
	if !ok {
		return nil, &Error{Op: op, Code: CodeInvalidEmail}
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, &Error{Op: op, Code: CodeUnavailable, Err: err}
	}

	p := Principal{
		ID:          uuid.NewString(),
		Email:       addr,
		DisplayName: strings.TrimSpace(displayName),
		Provider:    ProviderPassword,
		CreatedAt:   now(),
	}
	if err := c.dir.Create(ctx, p, hash); err != nil {
		if errors.Is(err, errEmailTaken) {
			return nil, &Error{Op: op, Code: CodeEmailInUse}
		}
		return nil, &Error{Op: op, Code: CodeUnavailable, Err: err}
	}

	if err := c.signIn(ctx, &p); err != nil {
		return nil, &Error{Op: op, Code: CodeUnavailable, Err: err}
	}
	return &p, nil
}

// SignIn verifies an email and password and signs the principal in.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Principal, error) {
	const op = "sign-in"
	p, hash, err := c.dir.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			// Hash anyway so unknown emails cost the same as wrong passwords.
			_, _ = HashPassword(password)
			return nil, &Error{Op: op, Code: CodeInvalidCredential}
		}
		return nil, &Error{Op: op, Code: CodeUnavailable, Err: err}
	}

	ok, err := CheckPassword(password, hash)
	if err != nil || !ok {
		return nil, &Error{Op: op, Code: CodeInvalidCredential, Err: err}
	}

	if NeedsRehash(hash) {
		if newHash, err := HashPassword(password); err == nil {
			if err := c.dir.UpdatePasswordHash(ctx, p.ID, newHash); err != nil {
				c.logger.Warn("failed to upgrade password hash", "error", err, "principal_id", p.ID)
			}
		}
	}

	if err := c.signIn(ctx, &p); err != nil {
		return nil, &Error{Op: op, Code: CodeUnavailable, Err: err}
	}
	return &p, nil
}

// SignInFederated verifies an ID token and signs in the principal with its
// email, creating the principal on first use.
func (c *Client) SignInFederated(ctx context.Context, idToken string) (*Principal, error) {
	const op = "federated-sign-in"
	if c.verifier == nil {
		return nil, &Error{Op: op, Code: CodeUnavailable, Err: &config.ConfigurationError{
			Component: "federated sign-in",
			Hint:      "set CORPSITE_FEDERATED_SECRET",
		}}
	}
	claims, err := c.verifier.Verify(idToken)
	if err != nil {
		return nil, &Error{Op: op, Code: CodeInvalidToken, Err: err}
	}

	p, _, err := c.dir.ByEmail(ctx, claims.Email)
	switch {
	case errors.Is(err, ErrPrincipalNotFound):
		p = Principal{
			ID:          uuid.NewString(),
			Email:       strings.TrimSpace(claims.Email),
			DisplayName: claims.Name,
			PhotoURL:    claims.Picture,
			Provider:    ProviderFederated,
			CreatedAt:   now(),
		}
		if err := c.dir.Create(ctx, p, ""); err != nil {
			return nil, &Error{Op: op, Code: CodeUnavailable, Err: err}
		}
	case err != nil:
		return nil, &Error{Op: op, Code: CodeUnavailable, Err: err}
	}

	if err := c.signIn(ctx, &p); err != nil {
		return nil, &Error{Op: op, Code: CodeUnavailable, Err: err}
	}
	return &p, nil
}

// SignOut forgets the signed-in principal and notifies listeners.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.persist.Clear(ctx); err != nil {
		return &Error{Op: "sign-out", Code: CodeUnavailable, Err: err}
	}
	c.mu.Lock()
	c.resolved = true
	c.current = nil
	c.mu.Unlock()
	c.notify(ctx, nil)
	return nil
}

// UpdateDisplayName changes the display name of the signed-in principal.
// Listeners are not notified; sign-in state is unchanged.
func (c *Client) UpdateDisplayName(ctx context.Context, name string) error {
	const op = "update-profile"
	p := c.resolve(ctx)
	if p == nil {
		return &Error{Op: op, Code: CodeNotSignedIn}
	}
	name = strings.TrimSpace(name)
	if err := c.dir.UpdateDisplayName(ctx, p.ID, name); err != nil {
		return &Error{Op: op, Code: CodeUnavailable, Err: err}
	}
	c.mu.Lock()
	if c.current != nil && c.current.ID == p.ID {
		updated := *c.current
		updated.DisplayName = name
		c.current = &updated
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) signIn(ctx context.Context, p *Principal) error {
	if err := c.persist.Save(ctx, p.ID); err != nil {
		return err
	}
	c.mu.Lock()
	c.resolved = true
	c.current = p
	c.mu.Unlock()
	c.notify(ctx, p)
	return nil
}

// resolve loads the persisted principal on first use.
func (c *Client) resolve(ctx context.Context) *Principal {
	c.mu.Lock()
	if c.resolved {
		p := c.current
		c.mu.Unlock()
		return p
	}
	c.mu.Unlock()

	var current *Principal
	if id := c.persist.Load(ctx); id != "" {
		p, err := c.dir.ByID(ctx, id)
		switch {
		case err == nil:
			current = &p
		case errors.Is(err, ErrPrincipalNotFound):
			_ = c.persist.Clear(ctx)
		default:
			c.logger.Warn("failed to restore signed-in principal", "error", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.resolved {
		c.resolved = true
		c.current = current
	}
	return c.current
}

func (c *Client) notify(ctx context.Context, p *Principal) {
	c.mu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, p)
	}
}
