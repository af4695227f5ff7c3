package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/TwigBush/restodir/internal/authz"
	"github.com/TwigBush/restodir/internal/httpx"
	"github.com/TwigBush/restodir/internal/identity"
	"github.com/TwigBush/restodir/internal/policy"
	"github.com/TwigBush/restodir/internal/trace"
)

// Error codes returned in {"error": "<code>"} bodies.
const (
	CodeUnknown      = "generic.unknown_error"
	CodeInvalidBody  = "generic.invalid_body"
	CodeInvalidQuery = "generic.invalid_query"

	CodeUnauthenticated      = "auth.unauthenticated"
	CodeAlreadyAuthenticated = "auth.already_authenticated"
	CodeMissingCredentials   = "auth.missing_credentials"
	CodeInvalidCredentials   = "auth.invalid_credentials"
	CodeUserNotFound         = "auth.user_not_found"
	CodeUserExists           = "auth.user_already_exists"
	CodeAuthServerError      = "auth.server_error"

	CodeInvalidRestaurantID = "restaurants.invalid_restaurant_id"
	CodeRestaurantNotFound  = "restaurants.not_found"
	CodeInvalidEditionData  = "restaurants.invalid_edition_data"
	CodeAlreadyClaimed      = "restaurants.already_claimed"
	CodeSlugTaken           = "restaurants.slug_taken"

	CodeInvalidMenuID = "menus.invalid_menu_id"
	CodeInvalidMenu   = "menus.invalid_menu_data"
	CodeMenuNotFound  = "menus.not_found"

	CodeAlreadyFavorited = "favorites.already_favorited"
	CodeNotFavorited     = "favorites.not_favorited_found"
	CodeAlreadyReviewed  = "reviews.already_reviewed"
	CodePostNotFound     = "blog.not_found"
	CodePageNotFound     = "pages.not_found"
)

// forbiddenCode names a denied rule, e.g. menus.unauthorized_edit.
func forbiddenCode(r policy.Rule) string {
	var group string
	switch r.Subject {
	case policy.Session:
		return CodeAlreadyAuthenticated
	case policy.Restaurant:
		group = "restaurants"
	case policy.Menu:
		group = "menus"
	default:
		group = "generic"
	}
	return group + ".unauthorized_" + r.Action.Snake()
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("handler_error",
		trace.Attr(r.Context()),
		"m", r.Method, "path", r.URL.Path, "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, CodeUnknown)
}

// authorize asks a whether the request caller may apply rule to object. On a
// deny it writes 401 for anonymous callers and 403 otherwise.
func authorize(w http.ResponseWriter, r *http.Request, a authz.Authorizer, rule policy.Rule, object string, own policy.Ownership) bool {
	d, err := a.Check(r.Context(), authz.Request{
		Caller:    identity.CallerFrom(r.Context()),
		Subject:   rule.Subject,
		Action:    rule.Action,
		Object:    object,
		Ownership: own,
	})
	if err != nil {
		serverError(w, r, err)
		return false
	}
	if d.Allowed {
		return true
	}
	slog.Debug("policy_denied",
		trace.Attr(r.Context()),
		"rule", rule.String(), "object", object, "reason", d.Reason)
	if d.Reason == authz.ReasonAnonymous {
		httpx.WriteError(w, http.StatusUnauthorized, CodeUnauthenticated)
		return false
	}
	httpx.WriteError(w, http.StatusForbidden, forbiddenCode(rule))
	return false
}

// requireCaller writes 401 and returns false for anonymous requests.
func requireCaller(w http.ResponseWriter, r *http.Request) (policy.Caller, bool) {
	c := identity.CallerFrom(r.Context())
	if !c.Authenticated() {
		httpx.WriteError(w, http.StatusUnauthorized, CodeUnauthenticated)
		return c, false
	}
	return c, true
}

// writeRelationships mirrors ownership facts into a relationship store when
// the authorizer keeps one. Failures are logged; the database stays the
// source of truth.
func writeRelationships(ctx context.Context, a authz.Authorizer, rels ...authz.Relationship) {
	w, ok := a.(authz.RelationshipWriter)
	if !ok {
		return
	}
	if err := w.WriteRelationships(ctx, rels); err != nil {
		slog.Warn("relationship_write_failed", trace.Attr(ctx), "n", len(rels), "err", err)
	}
}

// deleteRelationships drops mirrored facts for a deleted row. A failure
// leaves stale tuples that point at an object that no longer exists.
func deleteRelationships(ctx context.Context, a authz.Authorizer, rels ...authz.Relationship) {
	d, ok := a.(authz.RelationshipDeleter)
	if !ok || len(rels) == 0 {
		return
	}
	if err := d.DeleteRelationships(ctx, rels); err != nil {
		slog.Warn("relationship_delete_failed", trace.Attr(ctx), "n", len(rels), "err", err)
	}
}

const maxPageSize = 100

// pageParams reads 1-based page and pageSize query values into an offset
// and limit.
func pageParams(r *http.Request) (offset, limit int, ok bool) {
	page, size := 1, 20
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, false
		}
		page = n
	}
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, false
		}
		size = min(n, maxPageSize)
	}
	return (page - 1) * size, size, true
}
