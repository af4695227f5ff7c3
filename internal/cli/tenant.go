package cli

import (
	"github.com/spf13/cobra"

	"github.com/TwigBush/restodir/internal/tenant"
)

type outcomeOut struct {
	Outcome string `json:"outcome"          yaml:"outcome"`
	Slug    string `json:"slug,omitempty"   yaml:"slug,omitempty"`
	Locale  string `json:"locale,omitempty" yaml:"locale,omitempty"`
	Path    string `json:"path,omitempty"   yaml:"path,omitempty"`
	URL     string `json:"url,omitempty"    yaml:"url,omitempty"`
	Error   string `json:"error,omitempty"  yaml:"error,omitempty"`
}

func cmdTenant() *cobra.Command {
	c := &cobra.Command{
		Use:   "tenant",
		Short: "Debug tenant subdomain routing",
	}
	c.AddCommand(cmdTenantResolve())
	return c
}

func cmdTenantResolve() *cobra.Command {
	var host, path, root string
	c := &cobra.Command{
		Use:     "resolve",
		Short:   "Show what the tenant middleware does with a host and path",
		Example: "  restodir tenant resolve --host casa-pepe.example.com --path /es",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			if root != "" {
				cfg.Tenant.RootDomain = root
			}
			res, err := tenant.NewResolver(cfg.Tenant.RootDomain,
				tenant.WithScheme(cfg.Tenant.RedirectScheme),
				tenant.WithLocales(cfg.Locale.Locales...))
			if err != nil {
				return err
			}
			o := res.Resolve(host, path)
			out := outcomeOut{
				Outcome: o.Kind.String(),
				Slug:    o.Slug,
				Locale:  o.Locale,
				Path:    o.Path,
				URL:     o.URL,
			}
			if o.Err != nil {
				out.Error = o.Err.Error()
			}
			return printOut(cmd.OutOrStdout(), out)
		},
	}
	c.Flags().StringVar(&host, "host", "", "request host")
	c.Flags().StringVar(&path, "path", "/", "locale-prefixed request path")
	c.Flags().StringVar(&root, "root", "", "root domain (defaults to tenant.root_domain)")
	_ = c.MarkFlagRequired("host")
	return c
}
