package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/TwigBush/restodir/internal/authz"
	"github.com/TwigBush/restodir/internal/httpx"
	"github.com/TwigBush/restodir/internal/identity"
	"github.com/TwigBush/restodir/internal/policy"
	"github.com/TwigBush/restodir/internal/store"
)

// Capabilities is what the caller may do with one restaurant. Pages use it
// to decide which controls to offer; every mutation is still checked again.
type Capabilities struct {
	Edit           bool `json:"edit"`
	Delete         bool `json:"delete"`
	Claim          bool `json:"claim"`
	SuggestChanges bool `json:"suggestChanges"`
	CreateMenu     bool `json:"createMenu"`
}

func capabilities(ctx context.Context, a authz.Authorizer, id uint, own policy.Ownership) (Capabilities, error) {
	caller := identity.CallerFrom(ctx)
	obj := authz.RestaurantObject(id)
	var (
		out Capabilities
		err error
	)
	check := func(rule policy.Rule, dst *bool) {
		if err != nil {
			return
		}
		var d authz.Decision
		d, err = a.Check(ctx, authz.Request{
			Caller: caller, Subject: rule.Subject, Action: rule.Action, Object: obj, Ownership: own,
		})
		*dst = d.Allowed
	}
	check(ruleRestaurantEdit, &out.Edit)
	check(ruleRestaurantDelete, &out.Delete)
	check(ruleRestaurantClaim, &out.Claim)
	check(ruleRestaurantSuggest, &out.SuggestChanges)
	check(ruleMenuCreate, &out.CreateMenu)
	return out, err
}

type MeHandler struct {
	Store *store.Store
	Authz authz.Authorizer
}

func NewMeHandler(s *store.Store, a authz.Authorizer) *MeHandler {
	return &MeHandler{Store: s, Authz: a}
}

type meResponse struct {
	Authenticated bool           `json:"authenticated"`
	Profile       *store.Profile `json:"profile,omitempty"`
	Restaurant    *uint          `json:"restaurantId,omitempty"`
	Capabilities  *Capabilities  `json:"capabilities,omitempty"`
}

// Get describes the current caller and, with ?restaurant=<id|slug>, what
// they may do with that restaurant.
func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	var resp meResponse
	ctx := r.Context()
	caller := identity.CallerFrom(ctx)
	if caller.Authenticated() {
		p, err := h.Store.ProfileByID(ctx, caller.ID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// a valid token for a deleted profile is treated as signed out
			ctx = identity.WithCaller(ctx, policy.Anonymous)
		case err != nil:
			serverError(w, r, err)
			return
		default:
			resp.Authenticated = true
			resp.Profile = p
		}
	}

	if raw := r.URL.Query().Get("restaurant"); raw != "" {
		id, own, ok := ownership(w, r, h.Store, store.ParseRef(raw))
		if !ok {
			return
		}
		caps, err := capabilities(ctx, h.Authz, id, own)
		if err != nil {
			serverError(w, r, err)
			return
		}
		resp.Restaurant = &id
		resp.Capabilities = &caps
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
