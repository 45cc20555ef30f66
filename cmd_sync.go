package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lotas/readlater/internal/auth"
	"github.com/lotas/readlater/internal/syncer"
	"github.com/spf13/cobra"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile with the cloud and deliver queued changes",
		Long: `Sign in with the stored session, merge the cloud list into the local one
(cloud wins for pages both sides know, local-only pages are uploaded) and
deliver queued changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer a.close()
			if a.session == nil {
				return syncer.ErrSyncDisabled
			}
			if err := a.session.Restore(ctx, a.vault); err != nil {
				return err
			}
			id, ok := a.session.Identity()
			if !ok {
				return errors.New("not signed in; run readlater login first")
			}
			delivered, err := a.session.Flush(ctx)
			pending, perr := a.outbox.Pending()
			if perr != nil {
				return perr
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s as %s\n", a.session.State(), id.Display())
			fmt.Fprintf(out, "pages: %d  delivered: %d  pending: %d\n", len(a.store.Get()), delivered, len(pending))
			return err
		},
	}
}

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to cloud sync",
		Long: `Store a session and sign in. The session is either the auth provider's
session JSON (as the browser extension hands it over) or built from --user.

Examples:
  readlater login --session-file session.json
  readlater login --user 0f6c... --email me@example.com`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
	cmd.Flags().String("session", "", "Session JSON")
	cmd.Flags().String("session-file", "", "File holding the session JSON")
	cmd.Flags().String("user", "", "User id to sign in as")
	cmd.Flags().String("email", "", "Email shown for --user")
	return cmd
}

func sessionBlob(cmd *cobra.Command) (string, error) {
	if blob, _ := cmd.Flags().GetString("session"); blob != "" {
		return blob, nil
	}
	if path, _ := cmd.Flags().GetString("session-file"); path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // user-provided path
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}
	user, _ := cmd.Flags().GetString("user")
	email, _ := cmd.Flags().GetString("email")
	if user == "" {
		return "", errors.New("one of --session, --session-file or --user is required")
	}
	return auth.NewSession(user, email)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	blob, err := sessionBlob(cmd)
	if err != nil {
		return err
	}
	id, err := auth.ParseSession(blob)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.close()
	if a.session == nil {
		return syncer.ErrSyncDisabled
	}

	changed, err := a.session.Inject(ctx, a.vault, blob)
	if err == nil && !changed {
		err = a.session.Restore(ctx, a.vault)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "signed in as %s (%d pages)\n", id.Display(), len(a.store.Get()))
	if err != nil {
		fmt.Fprintf(out, "initial sync failed, continuing with local pages: %v\n", err)
	}
	return nil
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Long:  `Sign out. Local pages are kept; queued changes stay queued for the signed-out user.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer a.close()
			id, ok, err := a.vault.Load()
			if err != nil {
				return err
			}
			if err := a.vault.Clear(); err != nil {
				return err
			}
			if ok {
				fmt.Fprintf(cmd.OutOrStdout(), "signed out %s\n", id.Display())
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
			}
			return nil
		},
	}
}
