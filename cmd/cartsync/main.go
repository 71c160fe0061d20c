// cartsync drives a running cartsyncd over REST.
//
//	cartsync cart add --product 60 --size M --price 24.99 --qty 2
//	cartsync cart show
//	cartsync cart qty <id> 3
//	cartsync wishlist toggle --product 60
//	cartsync session login --user u-1 --token t0k
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const defaultDaemonURL = "http://localhost:8080"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cartsync",
		Short:         "Inspect and edit the cart and wishlist held by cartsyncd",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("daemon", envOr("CARTSYNC_DAEMON", defaultDaemonURL), "cartsyncd base URL")
	cmd.PersistentFlags().Duration("timeout", 30*time.Second, "request timeout")
	cmd.PersistentFlags().Bool("json", false, "print raw JSON responses")

	cmd.AddCommand(
		newCartCmd(),
		newWishlistCmd(),
		newSessionCmd(),
	)
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
	return err
}
