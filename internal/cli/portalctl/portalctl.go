// Package portalctl is the operator CLI: table provisioning and the admin
// console actions for inquiries and orders.
package portalctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"garment-portal-backend/internal/bootstrap"
	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/service/admin"
)

type TableCreator interface {
	EnsureTables(ctx context.Context, defs []model.TableDefinition) ([]string, error)
}

// Env is what a command runs against.
type Env struct {
	Admin  *admin.Service
	Tables TableCreator
	Close  func()
}

// Opener builds an Env from a config file path ("" for the default lookup).
type Opener func(ctx context.Context, configPath string) (*Env, error)

// OpenPlatform connects to the configured DynamoDB and Redis.
func OpenPlatform(ctx context.Context, configPath string) (*Env, error) {
	if configPath == "" {
		configPath = bootstrap.ConfigPath()
	}
	p, err := bootstrap.New(ctx, configPath, "portalctl")
	if err != nil {
		return nil, err
	}
	return &Env{
		Admin:  admin.New(p.Store),
		Tables: p.DB.Client,
		Close:  p.Close,
	}, nil
}

// New returns the root command.
func New(open Opener) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Garment portal operator CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	run := func(fn func(ctx context.Context, env *Env, out io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			env, err := open(cmd.Context(), cfgFile)
			if err != nil {
				return err
			}
			if env.Close != nil {
				defer env.Close()
			}
			return fn(cmd.Context(), env, cmd.OutOrStdout())
		}
	}

	root.AddCommand(tablesCommand(run), inquiriesCommand(run), ordersCommand(run))
	return root
}

type runner func(fn func(ctx context.Context, env *Env, out io.Writer) error) func(*cobra.Command, []string) error

func tablesCommand(run runner) *cobra.Command {
	cmd := &cobra.Command{Use: "tables", Short: "Manage DynamoDB tables"}
	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create any missing tables",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, env *Env, out io.Writer) error {
			created, err := env.Tables.EnsureTables(ctx, model.Tables())
			if err != nil {
				return err
			}
			if len(created) == 0 {
				fmt.Fprintln(out, "all tables exist")
				return nil
			}
			for _, name := range created {
				fmt.Fprintf(out, "created %s\n", name)
			}
			return nil
		}),
	})
	return cmd
}

func inquiriesCommand(run runner) *cobra.Command {
	cmd := &cobra.Command{Use: "inquiries", Short: "Review contact inquiries"}

	var status, query string
	list := &cobra.Command{
		Use:   "list",
		Short: "List inquiries, newest first",
		Args:  cobra.NoArgs,
	}
	list.Flags().StringVar(&status, "status", "", "only show this status")
	list.Flags().StringVarP(&query, "query", "q", "", "search name, company or email")
	list.RunE = run(func(ctx context.Context, env *Env, out io.Writer) error {
		inquiries, err := env.Admin.ListInquiries(ctx, query)
		if err != nil {
			return err
		}
		if status != "" {
			filtered := inquiries[:0]
			for _, inq := range inquiries {
				if string(inq.Status) == status {
					filtered = append(filtered, inq)
				}
			}
			inquiries = filtered
		}
		return printJSON(out, inquiries)
	})

	setStatus := &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Move an inquiry to a new status",
		Args:  cobra.ExactArgs(2),
	}
	setStatus.RunE = func(c *cobra.Command, args []string) error {
		return run(func(ctx context.Context, env *Env, out io.Writer) error {
			if _, err := env.Admin.UpdateInquiryStatus(ctx, args[0], model.InquiryStatus(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(out, "inquiry %s is now %s\n", args[0], args[1])
			return nil
		})(c, args)
	}

	cmd.AddCommand(list, setStatus)
	return cmd
}

func ordersCommand(run runner) *cobra.Command {
	cmd := &cobra.Command{Use: "orders", Short: "Manage client orders"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all orders, newest first",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, env *Env, out io.Writer) error {
			orders, err := env.Admin.ListOrders(ctx)
			if err != nil {
				return err
			}
			return printJSON(out, orders)
		}),
	}

	var params admin.CreateOrderParams
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an order for a client",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, env *Env, out io.Writer) error {
			order, err := env.Admin.CreateOrder(ctx, params)
			if err != nil {
				return err
			}
			return printJSON(out, order)
		}),
	}
	create.Flags().StringVar(&params.UserID, "user", "", "client user id")
	create.Flags().StringVar(&params.ProductType, "product", "", "product type")
	create.Flags().IntVar(&params.Quantity, "quantity", 0, "pieces")
	create.Flags().StringVar(&params.Notes, "notes", "", "free-form notes")
	_ = create.MarkFlagRequired("user")
	_ = create.MarkFlagRequired("product")
	_ = create.MarkFlagRequired("quantity")

	setStatus := &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Advance an order",
		Args:  cobra.ExactArgs(2),
	}
	setStatus.RunE = func(c *cobra.Command, args []string) error {
		return run(func(ctx context.Context, env *Env, out io.Writer) error {
			order, err := env.Admin.UpdateOrderStatus(ctx, args[0], model.OrderStatus(args[1]))
			if err != nil {
				return err
			}
			return printJSON(out, order)
		})(c, args)
	}

	cmd.AddCommand(list, create, setStatus)
	return cmd
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
