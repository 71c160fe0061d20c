package main

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"text/tabwriter"

	"cartsync/internal/handler"
	"cartsync/internal/model"

	"github.com/spf13/cobra"
)

func newCartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show or edit the cart",
	}
	cmd.AddCommand(
		newCartShowCmd(),
		newCartAddCmd(),
		newCartQtyCmd(),
		newCartRmCmd(),
		newCartClearCmd(),
	)
	return cmd
}

func newCartShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cartRequest(cmd, http.MethodGet, "/cart", nil)
		},
	}
}

func newCartAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product to the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := itemFromFlags(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			req.Qty, _ = cmd.Flags().GetInt("qty")
			return cartRequest(cmd, http.MethodPost, "/cart/items", req)
		},
	}
	addItemFlags(cmd)
	cmd.Flags().Int("qty", 1, "quantity to add")
	return cmd
}

func newCartQtyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qty [id] <qty>",
		Short: "Set a cart line's quantity",
		Long:  "Set a cart line's quantity. The line is named by the id printed by 'cart show' or by --product/--size/--custom.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[len(args)-1])
			if err != nil {
				return writeCommandError(cmd, fmt.Errorf("invalid quantity %q", args[len(args)-1]))
			}
			id, err := lineRef(cmd, args[:len(args)-1])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return cartRequest(cmd, http.MethodPatch, "/cart/items/"+id, handler.QtyRequest{Qty: qty})
		},
	}
	addLineRefFlags(cmd)
	return cmd
}

func newCartRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm [id]",
		Short: "Remove a cart line",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := lineRef(cmd, args)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return cartRequest(cmd, http.MethodDelete, "/cart/items/"+id, nil)
		},
	}
	addLineRefFlags(cmd)
	return cmd
}

func newCartClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cartRequest(cmd, http.MethodDelete, "/cart", nil)
		},
	}
}

func cartRequest(cmd *cobra.Command, method, path string, body any) error {
	var view handler.CartView
	raw, err := clientFor(cmd).do(cmd.Context(), method, path, body, &view)
	if err != nil {
		return writeCommandError(cmd, err)
	}
	if jsonMode(cmd) {
		return printRaw(cmd, raw)
	}
	printCart(cmd.OutOrStdout(), view)
	return nil
}

func printCart(out io.Writer, view handler.CartView) {
	if len(view.Items) == 0 {
		fmt.Fprintln(out, "Cart is empty")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tSIZE\tQTY\tPRICE\tNAME")
	for _, item := range view.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", item.ID, item.ProductID, dash(item.Size), item.Qty, item.Price, item.Name)
	}
	tw.Flush()
	fmt.Fprintf(out, "%d item(s), subtotal %s\n", view.TotalQuantity, view.Subtotal)
}

// addItemFlags registers the flags describing a product.
func addItemFlags(cmd *cobra.Command) {
	cmd.Flags().String("product", "", "product id (required)")
	cmd.Flags().String("size", "", "size variant")
	cmd.Flags().String("custom", "", "customization key")
	cmd.Flags().String("price", "", "unit price, e.g. 24.99")
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("image", "", "image URL")
}

func itemFromFlags(cmd *cobra.Command) (handler.ItemRequest, error) {
	product, _ := cmd.Flags().GetString("product")
	if product == "" {
		return handler.ItemRequest{}, fmt.Errorf("--product is required")
	}
	size, _ := cmd.Flags().GetString("size")
	custom, _ := cmd.Flags().GetString("custom")
	price, _ := cmd.Flags().GetString("price")
	name, _ := cmd.Flags().GetString("name")
	image, _ := cmd.Flags().GetString("image")
	return handler.ItemRequest{
		ProductID: product,
		Size:      size,
		CustomKey: custom,
		Price:     price,
		Name:      name,
		Image:     image,
	}, nil
}

func addLineRefFlags(cmd *cobra.Command) {
	cmd.Flags().String("product", "", "product id, instead of a line id")
	cmd.Flags().String("size", "", "size variant")
	cmd.Flags().String("custom", "", "customization key")
}

// lineRef returns the line token from args, or derives it from the
// product flags.
func lineRef(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		if _, err := handler.DecodeLineID(args[0]); err != nil {
			return "", fmt.Errorf("invalid line id %q", args[0])
		}
		return args[0], nil
	}
	product, _ := cmd.Flags().GetString("product")
	if product == "" {
		return "", fmt.Errorf("a line id or --product is required")
	}
	size, _ := cmd.Flags().GetString("size")
	custom, _ := cmd.Flags().GetString("custom")
	return handler.EncodeLineID(model.NewLineID(product, size, custom)), nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
