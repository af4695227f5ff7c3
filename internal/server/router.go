package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/TwigBush/restodir/internal/authz"
	"github.com/TwigBush/restodir/internal/handlers"
	"github.com/TwigBush/restodir/internal/httpx"
	"github.com/TwigBush/restodir/internal/identity"
	"github.com/TwigBush/restodir/internal/locale"
	"github.com/TwigBush/restodir/internal/metrics"
	mw2 "github.com/TwigBush/restodir/internal/mw"
	"github.com/TwigBush/restodir/internal/store"
	"github.com/TwigBush/restodir/internal/tenant"
	"github.com/TwigBush/restodir/internal/version"
)

const (
	apiPrefix  = "/api/v1"
	pageMaxAge = 30 * time.Second
)

type Options struct {
	CORSOrigins  []string
	TrustProxy   bool
	SecureCookie bool
	DevNoStore   bool
}

type Deps struct {
	Store    *store.Store
	Sessions *identity.Sessions
	Authz    authz.Authorizer
	Metrics  *metrics.Metrics
	Tenants  *tenant.Resolver
	Locales  *locale.Router
}

func BuildRouter(d Deps, opts Options) http.Handler {
	r := chi.NewRouter()
	if opts.DevNoStore {
		r.Use(mw2.NoStore)
	}

	// baseline
	r.Use(middleware.RequestID)
	if opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(mw2.Trace())

	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			ExposedHeaders:   []string{"X-Trace-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// identity before the logger so failed requests log the caller
	r.Use(mw2.Identity(d.Sessions))
	r.Use(mw2.Logger(mw2.LogOpts{
		RedactHeaders: []string{"Authorization"},
	}))
	r.Use(mw2.Metrics(d.Metrics))

	// locale prefixing first; tenant resolution expects /{locale}/... paths
	r.Use(mw2.Locale(d.Locales))
	r.Use(mw2.Tenant(d.Tenants, mw2.TenantOpts{TrustProxy: opts.TrustProxy, Metrics: d.Metrics}))

	r.Get("/healthz", healthCheckHandler(d.Store))
	r.Get("/version", handlers.Version)

	auth := handlers.NewAuthHandler(d.Store, d.Sessions, d.Authz, opts.SecureCookie)
	restaurants := handlers.NewRestaurantHandler(d.Store, d.Authz)
	menus := handlers.NewMenuHandler(d.Store, d.Authz)
	social := handlers.NewSocialHandler(d.Store)
	content := handlers.NewContentHandler(d.Store)
	me := handlers.NewMeHandler(d.Store, d.Authz)
	pages := handlers.NewPageHandler(d.Store, d.Authz, d.Locales)

	r.Route(apiPrefix, func(api chi.Router) {
		api.Use(mw2.NoStore)
		api.Get("/", discoveryHandler(d.Tenants, d.Locales, identity.CookieName))

		api.Post("/auth/register", auth.Register)
		api.Post("/auth/login", auth.Login)
		api.Post("/auth/logout", auth.Logout)
		api.Get("/me", me.Get)

		api.Get("/tags", content.Tags)
		api.Get("/blog", content.Posts)
		api.Get("/blog/{slug}", content.Post)
		api.Get("/favorites", social.ListFavorites)

		api.Route("/restaurants", func(rr chi.Router) {
			rr.Get("/", restaurants.List)
			rr.Post("/", restaurants.Create)
			rr.Route("/{ref}", func(one chi.Router) {
				one.Get("/", restaurants.Get)
				one.Put("/", restaurants.Update)
				one.Delete("/", restaurants.Delete)
				one.Post("/claim", restaurants.Claim)
				one.Post("/suggest", restaurants.Suggest)
				one.Get("/suggestions", restaurants.Suggestions)

				one.Post("/favorites", social.AddFavorite)
				one.Delete("/favorites", social.RemoveFavorite)
				one.Post("/reviews", social.CreateReview)

				one.Post("/menus", menus.Create)
				one.Put("/menus/{menuID}", menus.Update)
				one.Delete("/menus/{menuID}", menus.Delete)
			})
		})

		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpx.WriteError(w, http.StatusNotFound, "generic.not_found")
		})
	})

	r.Route("/{locale}", func(lr chi.Router) {
		if !opts.DevNoStore {
			lr.Use(mw2.Private(pageMaxAge))
		}
		lr.Get("/", pages.Home)
		lr.Get("/restaurants/{slug}", pages.Restaurant)
		lr.Get("/restaurants/{slug}/website", pages.Website)
		lr.Get("/blog", pages.Blog)
		lr.Get("/blog/{slug}", pages.BlogPost)
	})

	return r
}

func healthCheckHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.Ping(ctx); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, code, map[string]string{
			"status":  status,
			"version": version.Version,
		})
	}
}
