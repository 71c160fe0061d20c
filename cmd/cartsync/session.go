package main

import (
	"fmt"
	"net/http"

	"cartsync/internal/handler"

	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show or change the daemon's session",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return sessionRequest(cmd, http.MethodGet, nil)
			},
		},
		newSessionLoginCmd(),
		&cobra.Command{
			Use:   "logout",
			Short: "Sign out, clearing the local cart and wishlist",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return sessionRequest(cmd, http.MethodPut, handler.SessionRequest{})
			},
		},
	)
	return cmd
}

func newSessionLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in, merging the local cart into the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			if user == "" {
				return writeCommandError(cmd, fmt.Errorf("--user is required"))
			}
			token, _ := cmd.Flags().GetString("token")
			return sessionRequest(cmd, http.MethodPut, handler.SessionRequest{
				Authenticated: true,
				UserID:        user,
				Token:         token,
			})
		},
	}
	cmd.Flags().String("user", "", "account id")
	cmd.Flags().String("token", "", "bearer credential for the remote store")
	return cmd
}

func sessionRequest(cmd *cobra.Command, method string, body any) error {
	var view handler.SessionView
	raw, err := clientFor(cmd).do(cmd.Context(), method, "/session", body, &view)
	if err != nil {
		return writeCommandError(cmd, err)
	}
	if jsonMode(cmd) {
		return printRaw(cmd, raw)
	}
	out := cmd.OutOrStdout()
	if !view.Authenticated {
		fmt.Fprintln(out, "Signed out")
		return nil
	}
	fmt.Fprintf(out, "Signed in as %s", view.UserID)
	if view.MergeCompleted {
		fmt.Fprint(out, " (cart merged)")
	}
	fmt.Fprintln(out)
	return nil
}
