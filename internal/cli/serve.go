package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TwigBush/restodir/internal/config"
	"github.com/TwigBush/restodir/internal/di"
	"github.com/TwigBush/restodir/internal/identity"
	"github.com/TwigBush/restodir/internal/locale"
	"github.com/TwigBush/restodir/internal/metrics"
	"github.com/TwigBush/restodir/internal/server"
	"github.com/TwigBush/restodir/internal/store"
	"github.com/TwigBush/restodir/internal/tenant"
)

const shutdownTimeout = 5 * time.Second

func cmdServe() *cobra.Command {
	var (
		migrate bool
		devMode bool
	)
	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the metrics listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(true)
			if err != nil {
				return err
			}
			setupLogging(cfg.Log, cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, serveOpts{Migrate: migrate, DevNoStore: devMode})
		},
	}
	c.Flags().BoolVar(&migrate, "migrate", true, "create or update tables before serving")
	c.Flags().BoolVar(&devMode, "dev", false, "disable response caching")
	return c
}

type serveOpts struct {
	Migrate    bool
	DevNoStore bool
	// ready, when set, receives the bound app and metrics addresses
	ready func(app, metrics string)
}

func serve(ctx context.Context, cfg *config.Config, opts serveOpts) error {
	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Warn("store_close_failed", "err", err)
		}
	}()
	if opts.Migrate {
		if err := st.AutoMigrate(); err != nil {
			return err
		}
	}

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	h, err := buildHandler(cfg, st, m, opts)
	if err != nil {
		return err
	}

	appLn, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTP.Addr, err)
	}
	var metricsLn net.Listener
	if cfg.Metrics.Addr != "" {
		if metricsLn, err = net.Listen("tcp", cfg.Metrics.Addr); err != nil {
			_ = appLn.Close()
			return fmt.Errorf("listen %s: %w", cfg.Metrics.Addr, err)
		}
	}
	if opts.ready != nil {
		maddr := ""
		if metricsLn != nil {
			maddr = metricsLn.Addr().String()
		}
		opts.ready(appLn.Addr().String(), maddr)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return run(gctx, appLn, h, "app") })
	if metricsLn != nil {
		g.Go(func() error { return run(gctx, metricsLn, metricsMux(reg), "metrics") })
	}
	return g.Wait()
}

func buildHandler(cfg *config.Config, st *store.Store, m *metrics.Metrics, opts serveOpts) (http.Handler, error) {
	sessions, err := identity.NewSessions(identity.SessionConfig{
		Secret: cfg.Auth.SessionSecret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.SessionTTL,
	})
	if err != nil {
		return nil, err
	}
	az, err := di.ProvideAuthorizer(cfg.Authz, m)
	if err != nil {
		return nil, err
	}
	res, err := tenant.NewResolver(cfg.Tenant.RootDomain,
		tenant.WithScheme(cfg.Tenant.RedirectScheme),
		tenant.WithLocales(cfg.Locale.Locales...))
	if err != nil {
		// subdomain routing is off; everything else keeps serving
		slog.Error("tenant_routing_disabled", "root_domain", cfg.Tenant.RootDomain, "err", err)
		res = tenant.Disabled(err)
	}
	lr, err := locale.New(cfg.Locale.Locales, cfg.Locale.Default)
	if err != nil {
		return nil, err
	}
	return server.BuildRouter(server.Deps{
		Store:    st,
		Sessions: sessions,
		Authz:    az,
		Metrics:  m,
		Tenants:  res,
		Locales:  lr,
	}, server.Options{
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		TrustProxy:   cfg.HTTP.TrustProxy,
		SecureCookie: cfg.Auth.SecureCookie,
		DevNoStore:   opts.DevNoStore,
	}), nil
}

func metricsMux(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	return mux
}

// run serves on ln until ctx is done, then shuts down gracefully.
func run(ctx context.Context, ln net.Listener, h http.Handler, name string) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		slog.Info("listening", "name", name, "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()
	select {
	case <-ctx.Done():
		ctx2, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(ctx2)
		if serveErr := <-errc; !errors.Is(serveErr, http.ErrServerClosed) && err == nil {
			err = serveErr
		}
		slog.Info("stopped", "name", name)
		return err
	case err := <-errc:
		return err
	}
}
