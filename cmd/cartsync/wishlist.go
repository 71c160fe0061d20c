package main

import (
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"

	"cartsync/internal/handler"

	"github.com/spf13/cobra"
)

func newWishlistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "wishlist",
		Aliases: []string{"wl"},
		Short:   "Show or edit the wishlist",
	}
	cmd.AddCommand(
		newWishlistShowCmd(),
		newWishlistToggleCmd(),
		newWishlistMoveCmd(),
		newWishlistClearCmd(),
	)
	return cmd
}

func newWishlistShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the wishlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return wishlistRequest(cmd, http.MethodGet, "/wishlist", nil)
		},
	}
}

func newWishlistToggleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Save a product, or unsave it if already saved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := itemFromFlags(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			var view handler.ToggleView
			raw, err := clientFor(cmd).do(cmd.Context(), http.MethodPost, "/wishlist/toggle", req, &view)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if jsonMode(cmd) {
				return printRaw(cmd, raw)
			}
			if view.Saved {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", req.ProductID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", req.ProductID)
			}
			printWishlist(cmd.OutOrStdout(), view.Wishlist)
			return nil
		},
	}
	addItemFlags(cmd)
	return cmd
}

func newWishlistMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move [id]",
		Short: "Move a saved product into the cart",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := lineRef(cmd, args)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			var view handler.MoveView
			raw, err := clientFor(cmd).do(cmd.Context(), http.MethodPost, "/wishlist/items/"+id+"/move-to-cart", nil, &view)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if jsonMode(cmd) {
				return printRaw(cmd, raw)
			}
			printCart(cmd.OutOrStdout(), view.Cart)
			printWishlist(cmd.OutOrStdout(), view.Wishlist)
			return nil
		},
	}
	addLineRefFlags(cmd)
	return cmd
}

func newWishlistClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the local wishlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return wishlistRequest(cmd, http.MethodDelete, "/wishlist", nil)
		},
	}
}

func wishlistRequest(cmd *cobra.Command, method, path string, body any) error {
	var view handler.WishlistView
	raw, err := clientFor(cmd).do(cmd.Context(), method, path, body, &view)
	if err != nil {
		return writeCommandError(cmd, err)
	}
	if jsonMode(cmd) {
		return printRaw(cmd, raw)
	}
	printWishlist(cmd.OutOrStdout(), view)
	return nil
}

func printWishlist(out io.Writer, view handler.WishlistView) {
	if len(view.Items) == 0 {
		fmt.Fprintln(out, "Wishlist is empty")
	} else {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tPRODUCT\tSIZE\tPRICE\tNAME")
		for _, item := range view.Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", item.ID, item.ProductID, dash(item.Size), item.Price, item.Name)
		}
		tw.Flush()
	}
	if view.Syncing {
		fmt.Fprintln(out, "(syncing with account)")
	}
}
