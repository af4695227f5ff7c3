package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/TwigBush/restodir/internal/authz"
	"github.com/TwigBush/restodir/internal/httpx"
	"github.com/TwigBush/restodir/internal/policy"
	"github.com/TwigBush/restodir/internal/slug"
	"github.com/TwigBush/restodir/internal/store"
	"github.com/TwigBush/restodir/internal/trace"
)

var (
	ruleRestaurantCreate  = policy.MustRule(policy.Restaurant, policy.Create)
	ruleRestaurantEdit    = policy.MustRule(policy.Restaurant, policy.Edit)
	ruleRestaurantDelete  = policy.MustRule(policy.Restaurant, policy.Delete)
	ruleRestaurantClaim   = policy.MustRule(policy.Restaurant, policy.Claim)
	ruleRestaurantSuggest = policy.MustRule(policy.Restaurant, policy.SuggestChanges)
)

const (
	defaultRadiusKm = 5
	slugAttempts    = 3
)

type RestaurantHandler struct {
	Store *store.Store
	Authz authz.Authorizer
}

func NewRestaurantHandler(s *store.Store, a authz.Authorizer) *RestaurantHandler {
	return &RestaurantHandler{Store: s, Authz: a}
}

type restaurantBody struct {
	Name        string   `json:"name"        validate:"required,max=100"`
	Description string   `json:"description" validate:"max=800"`
	Address     string   `json:"address"     validate:"max=200"`
	Schedule    string   `json:"schedule"    validate:"max=500"`
	CoverImgURL string   `json:"coverImgUrl" validate:"omitempty,url"`
	Phone       string   `json:"phone"       validate:"max=30"`
	Whatsapp    string   `json:"whatsapp"    validate:"max=30"`
	Lat         *float64 `json:"lat"         validate:"omitempty,gte=-90,lte=90"`
	Lng         *float64 `json:"lng"         validate:"omitempty,gte=-180,lte=180"`
	TagIDs      []uint   `json:"tagIds"`
}

func (b restaurantBody) input() store.RestaurantInput {
	return store.RestaurantInput{
		Name:        strings.TrimSpace(b.Name),
		Description: b.Description,
		Address:     b.Address,
		Schedule:    b.Schedule,
		CoverImgURL: b.CoverImgURL,
		Phone:       b.Phone,
		Whatsapp:    b.Whatsapp,
		Lat:         b.Lat,
		Lng:         b.Lng,
		TagIDs:      b.TagIDs,
	}
}

type suggestionBody struct {
	Name        string   `json:"name"        validate:"required,max=100"`
	Address     string   `json:"address"     validate:"max=200"`
	Description string   `json:"description" validate:"max=800"`
	Schedule    string   `json:"schedule"    validate:"max=500"`
	TagIDs      []uint   `json:"tagIds"`
	Lat         *float64 `json:"lat"         validate:"omitempty,gte=-90,lte=90"`
	Lng         *float64 `json:"lng"         validate:"omitempty,gte=-180,lte=180"`
}

type listResponse struct {
	Restaurants []store.Restaurant `json:"restaurants"`
	Total       int64              `json:"total"`
	Page        int                `json:"page"`
	PageSize    int                `json:"pageSize"`
}

// restaurantRef reads the {ref} path value as an id or a slug.
func restaurantRef(r *http.Request) store.RestaurantRef {
	return store.ParseRef(chi.URLParam(r, "ref"))
}

// restaurantIDParam requires {ref} to be a numeric id.
func restaurantIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	ref := restaurantRef(r)
	if ref.ID == 0 {
		httpx.WriteError(w, http.StatusBadRequest, CodeInvalidRestaurantID)
		return 0, false
	}
	return ref.ID, true
}

// ownership resolves ref and reads its current ownership facts.
func ownership(w http.ResponseWriter, r *http.Request, s *store.Store, ref store.RestaurantRef) (uint, policy.Ownership, bool) {
	id, err := s.RestaurantID(r.Context(), ref)
	if err == nil {
		var own policy.Ownership
		own, err = s.FetchOwnership(r.Context(), store.RefByID(id))
		if err == nil {
			return id, own, true
		}
	}
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, CodeRestaurantNotFound)
	} else {
		serverError(w, r, err)
	}
	return 0, policy.Ownership{}, false
}

func parseFilter(r *http.Request) (store.Filter, bool) {
	offset, limit, ok := pageParams(r)
	if !ok {
		return store.Filter{}, false
	}
	q := r.URL.Query()
	f := store.Filter{Offset: offset, Limit: limit, Query: strings.TrimSpace(q.Get("q"))}
	if raw := q.Get("tags"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
			if err != nil || n == 0 {
				return store.Filter{}, false
			}
			f.TagIDs = append(f.TagIDs, uint(n))
		}
	}
	lat, lng := q.Get("lat"), q.Get("lng")
	if lat == "" && lng == "" {
		return f, true
	}
	loc := store.Location{RadiusKm: defaultRadiusKm}
	var err error
	if loc.Lat, err = strconv.ParseFloat(lat, 64); err != nil || loc.Lat < -90 || loc.Lat > 90 {
		return store.Filter{}, false
	}
	if loc.Lng, err = strconv.ParseFloat(lng, 64); err != nil || loc.Lng < -180 || loc.Lng > 180 {
		return store.Filter{}, false
	}
	if raw := q.Get("radiusKm"); raw != "" {
		if loc.RadiusKm, err = strconv.ParseFloat(raw, 64); err != nil || loc.RadiusKm <= 0 {
			return store.Filter{}, false
		}
	}
	f.Near = &loc
	return f, true
}

func (h *RestaurantHandler) List(w http.ResponseWriter, r *http.Request) {
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
	httpx.WriteJSON(w, http.StatusOK, listResponse{
		Restaurants: page.Restaurants,
		Total:       page.Total,
		Page:        f.Offset/f.Limit + 1,
		PageSize:    f.Limit,
	})
}

func (h *RestaurantHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Authz, ruleRestaurantCreate, "", policy.Ownership{}) {
		return
	}
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var body restaurantBody
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, CodeInvalidEditionData)
		return
	}
	in := body.input()

	var (
		rest *store.Restaurant
		err  error
	)
	for range slugAttempts {
		in.Slug = slug.New(in.Name)
		rest, err = h.Store.CreateRestaurant(r.Context(), in, caller.ID)
		if !errors.Is(err, store.ErrSlugTaken) {
			break
		}
	}
	switch {
	case errors.Is(err, store.ErrSlugTaken):
		httpx.WriteError(w, http.StatusConflict, CodeSlugTaken)
		return
	case err != nil:
		serverError(w, r, err)
		return
	}

	obj := authz.RestaurantObject(rest.ID)
	writeRelationships(r.Context(), h.Authz,
		authz.Relationship{User: authz.UserRef(caller.ID), Relation: "creator", Object: obj},
		authz.Relationship{User: authz.AnyUser, Relation: "member", Object: obj},
	)
	slog.Info("restaurant_created", trace.Attr(r.Context()), "id", rest.ID, "slug", rest.Slug)
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"id": rest.ID, "slug": rest.Slug})
}

func (h *RestaurantHandler) Get(w http.ResponseWriter, r *http.Request) {
	rest, err := h.Store.GetRestaurant(r.Context(), restaurantRef(r))
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, CodeRestaurantNotFound)
	case err != nil:
		serverError(w, r, err)
	default:
		httpx.WriteJSON(w, http.StatusOK, rest)
	}
}

func (h *RestaurantHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := restaurantIDParam(w, r)
	if !ok {
		return
	}
	_, own, ok := ownership(w, r, h.Store, store.RefByID(id))
	if !ok || !authorize(w, r, h.Authz, ruleRestaurantEdit, authz.RestaurantObject(id), own) {
		return
	}
	var body restaurantBody
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, CodeInvalidEditionData)
		return
	}
	rest, err := h.Store.UpdateRestaurant(r.Context(), id, body.input())
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, CodeRestaurantNotFound)
	case err != nil:
		serverError(w, r, err)
	default:
		httpx.WriteJSON(w, http.StatusOK, rest)
	}
}

func (h *RestaurantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := restaurantIDParam(w, r)
	if !ok {
		return
	}
	_, own, ok := ownership(w, r, h.Store, store.RefByID(id))
	if !ok || !authorize(w, r, h.Authz, ruleRestaurantDelete, authz.RestaurantObject(id), own) {
		return
	}
	menus, err := h.Store.MenuIDs(r.Context(), id)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if err := h.Store.DeleteRestaurant(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, CodeRestaurantNotFound)
			return
		}
		serverError(w, r, err)
		return
	}
	deleteRelationships(r.Context(), h.Authz, restaurantRelationships(id, own, menus)...)
	slog.Info("restaurant_deleted", trace.Attr(r.Context()), "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// restaurantRelationships rebuilds every tuple written for restaurant id
// and its menus.
func restaurantRelationships(id uint, own policy.Ownership, menus []uint) []authz.Relationship {
	obj := authz.RestaurantObject(id)
	rels := []authz.Relationship{{User: authz.AnyUser, Relation: "member", Object: obj}}
	if own.CreatorID != "" {
		rels = append(rels, authz.Relationship{User: authz.UserRef(own.CreatorID), Relation: "creator", Object: obj})
	}
	for _, a := range own.Admins {
		rels = append(rels, authz.Relationship{User: authz.UserRef(a), Relation: "administrator", Object: obj})
	}
	if !own.Unclaimed() {
		rels = append(rels, authz.Relationship{User: authz.AnyUser, Relation: "claimed", Object: obj})
	}
	for _, m := range menus {
		rels = append(rels, authz.Relationship{User: obj, Relation: "restaurant", Object: authz.MenuObject(m)})
	}
	return rels
}

// Claim makes the caller the first administrator. Two callers racing past
// the policy check are serialized by the claim row; the loser gets 409.
func (h *RestaurantHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id, ok := restaurantIDParam(w, r)
	if !ok {
		return
	}
	_, own, ok := ownership(w, r, h.Store, store.RefByID(id))
	if !ok || !authorize(w, r, h.Authz, ruleRestaurantClaim, authz.RestaurantObject(id), own) {
		return
	}
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	_, err := h.Store.ClaimRestaurant(r.Context(), store.RefByID(id), caller.ID)
	switch {
	case errors.Is(err, store.ErrAlreadyClaimed):
		httpx.WriteError(w, http.StatusConflict, CodeAlreadyClaimed)
		return
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, CodeRestaurantNotFound)
		return
	case err != nil:
		serverError(w, r, err)
		return
	}

	obj := authz.RestaurantObject(id)
	writeRelationships(r.Context(), h.Authz,
		authz.Relationship{User: authz.UserRef(caller.ID), Relation: "administrator", Object: obj},
		authz.Relationship{User: authz.AnyUser, Relation: "claimed", Object: obj},
	)
	slog.Info("restaurant_claimed", trace.Attr(r.Context()), "id", id, "by", caller.ID)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"restaurantId": id, "profileId": caller.ID})
}

func (h *RestaurantHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	id, ok := restaurantIDParam(w, r)
	if !ok {
		return
	}
	_, own, ok := ownership(w, r, h.Store, store.RefByID(id))
	if !ok || !authorize(w, r, h.Authz, ruleRestaurantSuggest, authz.RestaurantObject(id), own) {
		return
	}
	var body suggestionBody
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, CodeInvalidEditionData)
		return
	}
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	cs, err := h.Store.CreateChangeSuggestion(r.Context(), store.RefByID(id), caller.ID, store.SuggestionData(body))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, CodeRestaurantNotFound)
			return
		}
		serverError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, cs)
}

// Suggestions lists change suggestions to whoever may edit the restaurant.
func (h *RestaurantHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := restaurantIDParam(w, r)
	if !ok {
		return
	}
	_, own, ok := ownership(w, r, h.Store, store.RefByID(id))
	if !ok || !authorize(w, r, h.Authz, ruleRestaurantEdit, authz.RestaurantObject(id), own) {
		return
	}
	out, err := h.Store.ListChangeSuggestions(r.Context(), id)
	if err != nil {
		serverError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"suggestions": out})
}
