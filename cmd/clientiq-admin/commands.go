package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"clientiq/internal/app"
	authservice "clientiq/internal/auth/service"
	tenantmodels "clientiq/internal/tenant/models"
	tenantservice "clientiq/internal/tenant/service"
	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
)

// opener builds the application graph for one command run.
type opener func(ctx context.Context) (*app.App, error)

// flagBindings maps persistent flags onto configuration keys so a flag wins
// over the matching CLIENTIQ_* variable.
var flagBindings = map[string]string{
	"database-url": "database.url",
	"base-domain":  "tenancy.base_domain",
	"log-level":    "log_level",
	"bcrypt-cost":  "auth.bcrypt_cost",
}

func newRootCommand(v *viper.Viper, open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "clientiq-admin",
		Short:         "Administer ClientIQ tenants and users",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("database-url", "", "Postgres URL (CLIENTIQ_DATABASE_URL)")
	flags.String("base-domain", "", "base domain tenants are served under (CLIENTIQ_TENANCY_BASE_DOMAIN)")
	flags.String("log-level", "", "log level (CLIENTIQ_LOG_LEVEL)")
	flags.Int("bcrypt-cost", 0, "bcrypt cost for new passwords (CLIENTIQ_AUTH_BCRYPT_COST)")
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return bindFlags(v, cmd.Flags())
	}

	root.AddCommand(newTenantCommand(open), newUserCommand(open), newSeedDemoCommand(open))
	return root
}

// bindFlags binds only the flags the user set, leaving viper's defaults and
// environment in charge of the rest.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if key, ok := flagBindings[f.Name]; ok && err == nil {
			err = v.BindPFlag(key, f)
		}
	})
	return err
}

// withApp opens the application for the duration of fn.
func withApp(cmd *cobra.Command, open opener, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // command is finishing
	return fn(ctx, a)
}

func newTenantCommand(open opener) *cobra.Command {
	cmd := &cobra.Command{Use: "tenant", Short: "Manage tenants"}

	var (
		create tenantservice.CreateTenantCommand
		admin  tenantmodels.InitialAdmin
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a tenant, provision its schema and seed it",
		Long: `Register a tenant, provision its schema and seed it.

If provisioning or seeding fails the directory entry is removed again, so the
same schema and domain can be retried once the cause is fixed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				if admin.Email != "" {
					create.Admin = &admin
				}
				t, err := a.Tenants.CreateTenant(ctx, create)
				if err != nil {
					return err
				}
				return printTenants(cmd.OutOrStdout(), t)
			})
		},
	}
	f := createCmd.Flags()
	f.StringVar(&create.Name, "name", "", "display name")
	f.StringVar(&create.Schema, "schema", "", "Postgres schema name")
	f.StringVar(&create.Domain, "domain", "", "subdomain label")
	f.StringVar(&admin.Email, "admin-email", "", "first administrator email")
	f.StringVar(&admin.Password, "admin-password", "", "first administrator password")
	f.StringVar(&admin.FirstName, "admin-first-name", "", "first administrator first name")
	f.StringVar(&admin.LastName, "admin-last-name", "", "first administrator last name")
	for _, name := range []string{"name", "schema", "domain"} {
		_ = createCmd.MarkFlagRequired(name)
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				tenants, err := a.Tenants.ListTenants(ctx)
				if err != nil {
					return err
				}
				return printTenants(cmd.OutOrStdout(), tenants...)
			})
		},
	}

	deactivateCmd := &cobra.Command{
		Use:   "deactivate <tenant-id>",
		Short: "Stop serving a tenant; its schema is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := parseTenantID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				t, err := a.Tenants.DeactivateTenant(ctx, tenantID)
				if err != nil {
					return err
				}
				return printTenants(cmd.OutOrStdout(), t)
			})
		},
	}

	setDomainCmd := &cobra.Command{
		Use:   "set-domain <tenant-id> <domain>",
		Short: "Move a tenant to a new subdomain",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := parseTenantID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				t, err := a.Tenants.ChangeDomain(ctx, tenantID, args[1])
				if err != nil {
					return err
				}
				return printTenants(cmd.OutOrStdout(), t)
			})
		},
	}

	cmd.AddCommand(createCmd, listCmd, deactivateCmd, setDomainCmd)
	return cmd
}

func newUserCommand(open opener) *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage users of a tenant"}

	var (
		tenant  string
		role    string
		userCmd authservice.CreateUserCommand
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user inside a tenant schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				t, err := findTenant(ctx, a, tenant)
				if err != nil {
					return err
				}
				bound, release, err := a.Binder.Bind(ctx, t.Scope())
				if err != nil {
					return err
				}
				defer release()

				if role != "" {
					r, err := a.Authz.RoleByName(bound, role)
					if err != nil {
						return err
					}
					userCmd.RoleID = r.ID
				}
				u, err := a.Auth.CreateUser(bound, userCmd)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s) in %s\n", u.Email, u.ID, t.Schema)
				return err
			})
		},
	}
	f := createCmd.Flags()
	f.StringVar(&tenant, "tenant", "", "tenant schema, domain or id")
	f.StringVar(&userCmd.Email, "email", "", "login email")
	f.StringVar(&userCmd.Password, "password", "", "initial password")
	f.StringVar(&userCmd.FirstName, "first-name", "", "first name")
	f.StringVar(&userCmd.LastName, "last-name", "", "last name")
	f.StringVar(&role, "role", "", "role name, e.g. Administrator")
	f.BoolVar(&userCmd.Admin, "admin", false, "grant every permission")
	for _, name := range []string{"tenant", "email", "password"} {
		_ = createCmd.MarkFlagRequired(name)
	}

	cmd.AddCommand(createCmd)
	return cmd
}

func newSeedDemoCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-demo",
		Short: "Create the acme and widgets demo tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				if err := a.SeedDemo(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "demo tenants ready")
				return err
			})
		},
	}
}

func parseTenantID(raw string) (id.TenantID, error) {
	u, err := uuid.Parse(raw)
	if err != nil {
		return id.TenantID{}, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id")
	}
	return id.TenantID(u), nil
}

// findTenant accepts the schema, the subdomain or the id.
func findTenant(ctx context.Context, a *app.App, ref string) (*tenantmodels.Tenant, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	tenants, err := a.Tenants.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tenants {
		if t.Schema == ref || t.Domain == ref || t.ID.String() == ref {
			if !t.Active {
				return nil, dErrors.New(dErrors.CodeConflict, "tenant is inactive")
			}
			return t, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("tenant %q not found", ref))
}

func printTenants(out io.Writer, tenants ...*tenantmodels.Tenant) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSCHEMA\tDOMAIN\tACTIVE")
	for _, t := range tenants {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", t.ID, t.Name, t.Schema, t.Domain, t.Active)
	}
	return w.Flush()
}
