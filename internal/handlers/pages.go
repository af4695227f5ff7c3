package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TwigBush/restodir/internal/authz"
	"github.com/TwigBush/restodir/internal/httpx"
	"github.com/TwigBush/restodir/internal/identity"
	"github.com/TwigBush/restodir/internal/locale"
	"github.com/TwigBush/restodir/internal/store"
	"github.com/TwigBush/restodir/internal/tenant"
)

// PageHandler serves the locale-prefixed pages as JSON view models for a
// rendering frontend.
type PageHandler struct {
	Store   *store.Store
	Authz   authz.Authorizer
	Locales *locale.Router
}

func NewPageHandler(s *store.Store, a authz.Authorizer, lr *locale.Router) *PageHandler {
	return &PageHandler{Store: s, Authz: a, Locales: lr}
}

type pageMeta struct {
	Locale  string   `json:"locale"`
	Locales []string `json:"locales"`
	Path    string   `json:"path"`
}

type homePage struct {
	pageMeta
	Restaurants listResponse `json:"restaurants"`
	Tags        []store.Tag  `json:"tags"`
}

type restaurantPage struct {
	pageMeta
	Restaurant   *store.Restaurant `json:"restaurant"`
	Favorite     bool              `json:"favorite"`
	Capabilities Capabilities      `json:"capabilities"`
}

type websitePage struct {
	pageMeta
	Tenant     string            `json:"tenant,omitempty"`
	Restaurant *store.Restaurant `json:"restaurant"`
}

type blogPage struct {
	pageMeta
	Posts postsResponse `json:"posts"`
}

type postPage struct {
	pageMeta
	Post *store.BlogPost `json:"post"`
}

func (h *PageHandler) meta(w http.ResponseWriter, r *http.Request) (pageMeta, bool) {
	l, ok := h.Locales.Match("/" + chi.URLParam(r, "locale"))
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, CodePageNotFound)
		return pageMeta{}, false
	}
	return pageMeta{Locale: l, Locales: h.Locales.Locales(), Path: r.URL.Path}, true
}

func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	meta, ok := h.meta(w, r)
	if !ok {
		return
	}
	f, ok := parseFilter(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, CodeInvalidQuery)
		return
	}
	page, err := h.Store.ListRestaurants(r.Context(), f)
	if err != nil {
		serverError(w, r, err)
		return
	}
	tags, err := h.Store.ListTags(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, homePage{
		pageMeta: meta,
		Restaurants: listResponse{
			Restaurants: page.Restaurants,
			Total:       page.Total,
			Page:        f.Offset/f.Limit + 1,
			PageSize:    f.Limit,
		},
		Tags: tags,
	})
}

func (h *PageHandler) restaurant(w http.ResponseWriter, r *http.Request) (*store.Restaurant, bool) {
	rest, err := h.Store.GetRestaurant(r.Context(), store.RefBySlug(chi.URLParam(r, "slug")))
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, CodeRestaurantNotFound)
		return nil, false
	case err != nil:
		serverError(w, r, err)
		return nil, false
	}
	return rest, true
}

func (h *PageHandler) Restaurant(w http.ResponseWriter, r *http.Request) {
	meta, ok := h.meta(w, r)
	if !ok {
		return
	}
	rest, ok := h.restaurant(w, r)
	if !ok {
		return
	}
	out := restaurantPage{pageMeta: meta, Restaurant: rest}

	own, err := h.Store.FetchOwnership(r.Context(), store.RefByID(rest.ID))
	if err != nil {
		serverError(w, r, err)
		return
	}
	if out.Capabilities, err = capabilities(r.Context(), h.Authz, rest.ID, own); err != nil {
		serverError(w, r, err)
		return
	}
	if caller := identity.CallerFrom(r.Context()); caller.Authenticated() {
		if out.Favorite, err = h.Store.IsFavorite(r.Context(), caller.ID, store.RefByID(rest.ID)); err != nil {
			serverError(w, r, err)
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Website is the public page of one restaurant. Requests on a tenant
// subdomain are rewritten here.
func (h *PageHandler) Website(w http.ResponseWriter, r *http.Request) {
	meta, ok := h.meta(w, r)
	if !ok {
		return
	}
	rest, ok := h.restaurant(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, websitePage{
		pageMeta:   meta,
		Tenant:     tenant.SlugFrom(r.Context()),
		Restaurant: rest,
	})
}

func (h *PageHandler) Blog(w http.ResponseWriter, r *http.Request) {
	meta, ok := h.meta(w, r)
	if !ok {
		return
	}
	offset, limit, ok := pageParams(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, CodeInvalidQuery)
		return
	}
	posts, total, err := h.Store.ListPublishedPosts(r.Context(), offset, limit)
	if err != nil {
		serverError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, blogPage{
		pageMeta: meta,
		Posts:    postsResponse{Posts: posts, Total: total, Page: offset/limit + 1, PageSize: limit},
	})
}

func (h *PageHandler) BlogPost(w http.ResponseWriter, r *http.Request) {
	meta, ok := h.meta(w, r)
	if !ok {
		return
	}
	p, err := h.Store.GetPublishedPost(r.Context(), chi.URLParam(r, "slug"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, CodePostNotFound)
	case err != nil:
		serverError(w, r, err)
	default:
		httpx.WriteJSON(w, http.StatusOK, postPage{pageMeta: meta, Post: p})
	}
}
