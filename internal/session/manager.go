// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session owns the signed-in state of one browser: who is signed
// in, their profile and role, and enforcement of blocked accounts.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/olegiv/corpsite/internal/auth"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/model"
)

// DefaultSupportName is used in the blocked-account message when no site
// name is configured.
const DefaultSupportName = "site"

// BlockedMessage returns the banner shown after a blocked account was signed out.
func BlockedMessage(siteName string) string {
	if siteName == "" {
		siteName = DefaultSupportName
	}
	return fmt.Sprintf("Your account has been blocked. Please contact %s support.", siteName)
}

// BlockedAccountError reports that a sign-in was reverted because the
// profile is blocked.
type BlockedAccountError struct {
	PrincipalID string
	Message     string
}

func (e *BlockedAccountError) Error() string {
	return e.Message
}

// ProfileError reports that a sign-in succeeded but the profile could not
// be loaded or created.
type ProfileError struct {
	PrincipalID string
	Err         error
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("profile of %s: %v", e.PrincipalID, e.Err)
}

func (e *ProfileError) Unwrap() error {
	return e.Err
}

var (
	// ErrNotAdmin is returned by admin-only operations for other sessions.
	ErrNotAdmin = errors.New("administrator access required")

	// ErrNotConfirmed is returned by destructive operations called without
	// confirmation.
	ErrNotConfirmed = errors.New("operation requires confirmation")

	// ErrInvalidStatus is returned by SetUserStatus for unknown statuses.
	ErrInvalidStatus = errors.New("invalid account status")
)

// State is a snapshot of the session.
type State struct {
	Principal    *auth.Principal
	Profile      *model.Profile
	Initializing bool
	LastError    string
}

// SignedIn reports whether a principal is signed in.
func (s State) SignedIn() bool {
	return s.Principal != nil
}

// Manager is the single source of truth for the session of one browser.
type Manager struct {
	client   *auth.Client
	store    docstore.Store
	allow    *AllowList
	logger   *slog.Logger
	siteName string

	mu          sync.Mutex
	state       State
	blockedID   string // principal signed out by the last blocked check
	profileErr  error  // profile failure of the last sign-in
	unsubscribe func()
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithSiteName sets the name used in the blocked-account message.
func WithSiteName(name string) Option {
	return func(m *Manager) { m.siteName = name }
}

// NewManager returns a manager in the initializing state. Call Start to
// resolve it.
func NewManager(client *auth.Client, store docstore.Store, allow *AllowList, opts ...Option) *Manager {
	m := &Manager{
		client: client,
		store:  store,
		allow:  allow,
		logger: slog.Default(),
		state:  State{Initializing: true},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start subscribes to auth state changes. The first delivery arrives
// before Start returns, so the state is resolved afterwards. An
// unconfigured provider leaves a resolved, signed-out session with the
// configuration error as LastError.
func (m *Manager) Start(ctx context.Context) {
	if err := m.client.Configured(); err != nil {
		m.logger.Warn("auth provider unavailable", "error", err)
		m.mu.Lock()
		m.state = State{LastError: err.Error()}
		m.mu.Unlock()
		return
	}

	unsubscribe := m.client.OnAuthStateChanged(ctx, m.onAuthStateChange)

	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
}

// Close stops listening for auth state changes.
func (m *Manager) Close() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// State returns a copy of the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state
	if s.Principal != nil {
		p := *s.Principal
		s.Principal = &p
	}
	if s.Profile != nil {
		p := *s.Profile
		s.Profile = &p
	}
	return s
}

// IsAdmin reports whether the signed-in principal has admin access. The
// allow-list is consulted on every call.
func (m *Manager) IsAdmin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Principal == nil {
		return false
	}
	var role model.Role
	if m.state.Profile != nil {
		role = m.state.Profile.Role
	}
	return IsAdmin(role, m.allow.Contains(m.state.Principal.Email))
}

// onAuthStateChange resolves the profile of p and enforces blocked status.
func (m *Manager) onAuthStateChange(ctx context.Context, p *auth.Principal) {
	if p == nil {
		m.mu.Lock()
		m.state.Principal = nil
		m.state.Profile = nil
		m.state.Initializing = false
		m.mu.Unlock()
		return
	}

	profile, err := m.ensureProfile(ctx, p)
	if err != nil {
		m.logger.Error("failed to load profile", "error", err, "principal_id", p.ID)
		principal := *p
		m.mu.Lock()
		m.state = State{Principal: &principal, LastError: err.Error()}
		m.profileErr = &ProfileError{PrincipalID: p.ID, Err: err}
		m.mu.Unlock()
		return
	}

	if profile.IsBlocked() {
		m.logger.Warn("blocked account signed out", "principal_id", p.ID)
		m.mu.Lock()
		m.state = State{LastError: BlockedMessage(m.siteName)}
		m.blockedID = p.ID
		m.mu.Unlock()
		if err := m.client.SignOut(ctx); err != nil {
			m.logger.Error("failed to sign out blocked account", "error", err, "principal_id", p.ID)
		}
		return
	}

	principal := *p
	m.mu.Lock()
	m.state = State{Principal: &principal, Profile: &profile}
	m.mu.Unlock()
}

// ensureProfile loads the profile of p, creating it on first sign-in.
func (m *Manager) ensureProfile(ctx context.Context, p *auth.Principal) (model.Profile, error) {
	doc, err := m.store.Get(ctx, docstore.CollectionUsers, p.ID)
	if err == nil {
		return model.ProfileFromDocument(doc), nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return model.Profile{}, err
	}

	role := m.allow.RoleFor(p.Email)
	fields := model.NewProfileFields(p.ID, p.Email, p.DisplayName, p.PhotoURL, role)
	if err := m.store.Set(ctx, docstore.CollectionUsers, p.ID, fields, docstore.Merge()); err != nil {
		return model.Profile{}, fmt.Errorf("creating profile: %w", err)
	}
	m.logger.Info("profile created", "principal_id", p.ID, "role", role)

	doc, err = m.store.Get(ctx, docstore.CollectionUsers, p.ID)
	if err != nil {
		return model.Profile{}, err
	}
	return model.ProfileFromDocument(doc), nil
}

// Register creates a principal with a password, signs it in and creates
// its profile. A profile that cannot be created yields a ProfileError.
func (m *Manager) Register(ctx context.Context, email, password, displayName string) error {
	m.resetResult()
	if _, err := m.client.Register(ctx, email, password, displayName); err != nil {
		return err
	}
	return m.signInResult()
}

// Login signs in with email and password. A blocked profile yields a
// BlockedAccountError and a signed-out session.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.resetResult()
	if _, err := m.client.SignIn(ctx, email, password); err != nil {
		return err
	}
	return m.signInResult()
}

// LoginWithFederatedProvider signs in with an ID token from the identity
// broker. The profile is created if it does not exist yet.
func (m *Manager) LoginWithFederatedProvider(ctx context.Context, idToken string) error {
	m.resetResult()
	if _, err := m.client.SignInFederated(ctx, idToken); err != nil {
		return err
	}
	return m.signInResult()
}

// Logout signs out and resets the session.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.client.SignOut(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.state = State{}
	m.mu.Unlock()
	return nil
}

// SetUserStatus blocks or unblocks the profile of principalID. Admin only.
func (m *Manager) SetUserStatus(ctx context.Context, principalID string, status model.Status) error {
	if !m.IsAdmin() {
		return ErrNotAdmin
	}
	if !status.Valid() {
		return ErrInvalidStatus
	}
	err := m.store.Update(ctx, docstore.CollectionUsers, principalID, map[string]any{
		model.FieldStatus:       string(status),
		docstore.FieldUpdatedAt: docstore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("updating status of %s: %w", principalID, err)
	}
	m.logger.Info("user status changed", "principal_id", principalID, "status", status)
	return nil
}

// UpdateProfile changes the display name and headline of the signed-in
// principal.
func (m *Manager) UpdateProfile(ctx context.Context, displayName, headline string) error {
	state := m.State()
	if state.Principal == nil {
		return &auth.Error{Op: "update-profile", Code: auth.CodeNotSignedIn}
	}
	displayName = strings.TrimSpace(displayName)
	headline = strings.TrimSpace(headline)

	if err := m.client.UpdateDisplayName(ctx, displayName); err != nil {
		return err
	}
	err := m.store.Update(ctx, docstore.CollectionUsers, state.Principal.ID, map[string]any{
		model.FieldDisplayName:  displayName,
		model.FieldHeadline:     headline,
		docstore.FieldUpdatedAt: docstore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}

	m.mu.Lock()
	if m.state.Principal != nil && m.state.Principal.ID == state.Principal.ID {
		m.state.Principal.DisplayName = displayName
		if m.state.Profile != nil {
			m.state.Profile.DisplayName = displayName
			m.state.Profile.Headline = headline
		}
	}
	m.mu.Unlock()
	return nil
}

// DeleteUser removes the profile of principalID. Admin only; the caller
// must have obtained confirmation.
func (m *Manager) DeleteUser(ctx context.Context, principalID string, confirmed bool) error {
	if !m.IsAdmin() {
		return ErrNotAdmin
	}
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := m.store.Delete(ctx, docstore.CollectionUsers, principalID); err != nil {
		return fmt.Errorf("deleting profile %s: %w", principalID, err)
	}
	m.logger.Info("user profile deleted", "principal_id", principalID)
	return nil
}

func (m *Manager) resetResult() {
	m.mu.Lock()
	m.blockedID = ""
	m.profileErr = nil
	m.mu.Unlock()
}

// signInResult returns a BlockedAccountError if the sign-in that just
// completed was reverted, or the ProfileError it ran into.
func (m *Manager) signInResult() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blockedID != "" {
		return &BlockedAccountError{PrincipalID: m.blockedID, Message: m.state.LastError}
	}
	return m.profileErr
}
