package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// resource describes one owned collection of the API
type resource struct {
	use     string
	short   string
	path    string
	single  string // response envelope key
	headers []string
	row     func(item map[string]any) []any
	closeOp string // "cancel" or "revoke"
}

func field(item map[string]any, keys ...string) any {
	var cur any = item
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[k]
	}
	if cur == nil {
		return ""
	}
	return cur
}

var resources = []resource{
	{
		use:     "bookings",
		short:   "Daycare bookings",
		path:    "/daycare/bookings",
		single:  "booking",
		headers: []string{"ID", "PET", "CENTER", "START", "END", "TOTAL", "STATUS"},
		row: func(b map[string]any) []any {
			return []any{field(b, "_id"), field(b, "petName"), field(b, "daycareCenter", "name"),
				field(b, "startDate"), field(b, "endDate"), field(b, "totalAmount"), field(b, "status")}
		},
		closeOp: "cancel",
	},
	{
		use:     "orders",
		short:   "Product orders",
		path:    "/products/orders",
		single:  "order",
		headers: []string{"ID", "ITEMS", "TOTAL", "CITY", "STATUS", "CREATED"},
		row: func(o map[string]any) []any {
			items, _ := o["items"].([]any)
			return []any{field(o, "_id"), len(items), field(o, "totalAmount"),
				field(o, "shippingAddress", "city"), field(o, "status"), field(o, "createdAt")}
		},
		closeOp: "cancel",
	},
	{
		use:     "applications",
		short:   "Adoption applications",
		path:    "/adoption/applications",
		single:  "application",
		headers: []string{"ID", "PET", "VISIT", "STATUS", "CREATED"},
		row: func(a map[string]any) []any {
			return []any{field(a, "_id"), field(a, "pet", "name"), field(a, "visitSchedule", "date"),
				field(a, "status"), field(a, "createdAt")}
		},
		closeOp: "revoke",
	},
}

var (
	bookingsCmd     = newResourceCmd(resources[0])
	ordersCmd       = newResourceCmd(resources[1])
	applicationsCmd = newResourceCmd(resources[2])
)

func printTable(out io.Writer, r resource, items []map[string]any) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, h := range r.headers {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, h)
	}
	fmt.Fprintln(w)
	for _, item := range items {
		for i, v := range r.row(item) {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, v)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func newResourceCmd(r resource) *cobra.Command {
	root := &cobra.Command{Use: r.use, Short: r.short}

	var search, sortSpec string
	list := &cobra.Command{
		Use:   "list",
		Short: "List your " + r.use,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := authed()
			if err != nil {
				return err
			}
			q := url.Values{}
			if search != "" {
				q.Set("search", search)
			}
			if sortSpec != "" {
				q.Set("sort", sortSpec)
			}
			path := r.path
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			var items []map[string]any
			if err := c.do(cmd.Context(), http.MethodGet, path, nil, &items); err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No %s found.\n", r.use)
				return nil
			}
			return printTable(cmd.OutOrStdout(), r, items)
		},
	}
	list.Flags().StringVar(&search, "search", "", "keyword filter")
	list.Flags().StringVar(&sortSpec, "sort", "", "sort order, e.g. createdAt-desc")

	closeCmd := &cobra.Command{
		Use:   r.closeOp + " <id>",
		Short: fmt.Sprintf("%s one of your %s", r.closeOp, r.use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := authed()
			if err != nil {
				return err
			}
			var resp map[string]any
			path := r.path + "/" + url.PathEscape(args[0]) + "/" + r.closeOp
			if err := c.do(cmd.Context(), http.MethodPatch, path, nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %s\n", field(resp, "message"), field(resp, r.single, "status"))
			return nil
		},
	}

	root.AddCommand(list, closeCmd)
	return root
}
