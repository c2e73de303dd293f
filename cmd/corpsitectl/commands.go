// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/olegiv/corpsite/internal/auth"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/model"
)

// app holds the backends a command works on.
type app struct {
	store        docstore.Store
	dir          auth.Directory
	out          io.Writer
	readPassword func(prompt string) (string, error)
}

// opener connects the app for one command run; the returned func releases it.
type opener func(out io.Writer) (*app, func(), error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:          "corpsitectl",
		Short:        "Administer corpsite accounts",
		SilenceUsage: true,
	}

	users := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}
	users.AddCommand(
		listCmd(open),
		createCmd(open),
		roleCmd(open, "promote", "Grant the admin role", model.RoleAdmin),
		roleCmd(open, "demote", "Revoke the admin role", model.RoleUser),
		statusCmd(open, "block", "Block an account", model.StatusBlocked),
		statusCmd(open, "unblock", "Unblock an account", model.StatusActive),
	)
	root.AddCommand(users)
	return root
}

// withApp opens the app around fn.
func withApp(cmd *cobra.Command, open opener, fn func(ctx context.Context, a *app) error) error {
	a, release, err := open(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer release()
	return fn(cmd.Context(), a)
}

func listCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List user profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app) error {
				return a.listUsers(ctx)
			})
		},
	}
}

func createCmd(open opener) *cobra.Command {
	var (
		name  string
		admin bool
	)
	cmd := &cobra.Command{
		Use:   "create EMAIL",
		Short: "Create a password account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app) error {
				role := model.RoleUser
				if admin {
					role = model.RoleAdmin
				}
				return a.createUser(ctx, args[0], name, role)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	return cmd
}

func roleCmd(open opener, use, short string, role model.Role) *cobra.Command {
	return &cobra.Command{
		Use:   use + " EMAIL",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app) error {
				return a.setField(ctx, args[0], model.FieldRole, string(role))
			})
		},
	}
}

func statusCmd(open opener, use, short string, status model.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " EMAIL",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app) error {
				return a.setField(ctx, args[0], model.FieldStatus, string(status))
			})
		},
	}
}

func (a *app) listUsers(ctx context.Context) error {
	docs, err := a.store.Query(ctx, docstore.Query{
		Collection: docstore.CollectionUsers,
		OrderBy:    docstore.FieldCreatedAt,
		Direction:  docstore.Ascending,
	})
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "EMAIL\tNAME\tROLE\tSTATUS\tCREATED")
	for _, doc := range docs {
		p := model.ProfileFromDocument(doc)
		created := "-"
		if !p.CreatedAt.IsZero() {
			created = p.CreatedAt.Format("2006-01-02")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Email, p.DisplayName, p.Role, p.Status, created)
	}
	return tw.Flush()
}

func (a *app) createUser(ctx context.Context, email, name string, role model.Role) error {
	password, err := a.readPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := a.readPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	client := auth.NewClient(a.dir, &auth.MemoryPersistence{})
	p, err := client.Register(ctx, email, password, name)
	if err != nil {
		return authError(err)
	}
	fields := model.NewProfileFields(p.ID, p.Email, p.DisplayName, p.PhotoURL, role)
	if err := a.store.Set(ctx, docstore.CollectionUsers, p.ID, fields); err != nil {
		return fmt.Errorf("creating profile: %w", err)
	}
	_, _ = fmt.Fprintf(a.out, "Created %s (%s) with role %s\n", p.Email, p.ID, role)
	return nil
}

// setField writes one profile field of the account with email, creating
// the profile when the principal has never signed in.
func (a *app) setField(ctx context.Context, email, field, value string) error {
	p, _, err := a.dir.ByEmail(ctx, email)
	if errors.Is(err, auth.ErrPrincipalNotFound) {
		return fmt.Errorf("no account with email %s", email)
	}
	if err != nil {
		return fmt.Errorf("looking up %s: %w", email, err)
	}

	_, err = a.store.Get(ctx, docstore.CollectionUsers, p.ID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		fields := model.NewProfileFields(p.ID, p.Email, p.DisplayName, p.PhotoURL, model.RoleUser)
		fields[field] = value
		err = a.store.Set(ctx, docstore.CollectionUsers, p.ID, fields)
	case err == nil:
		err = a.store.Update(ctx, docstore.CollectionUsers, p.ID, map[string]any{
			field:                   value,
			docstore.FieldUpdatedAt: docstore.ServerTimestamp,
		})
	}
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	_, _ = fmt.Fprintf(a.out, "%s: %s set to %s\n", p.Email, field, value)
	return nil
}

// authError turns an auth failure into its user-facing message.
func authError(err error) error {
	var ae *auth.Error
	if errors.As(err, &ae) {
		return errors.New(ae.Message())
	}
	return err
}
