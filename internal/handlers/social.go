package handlers

import (
	"errors"
	"net/http"

	"github.com/TwigBush/restodir/internal/httpx"
	"github.com/TwigBush/restodir/internal/store"
)

// SocialHandler serves favorites and reviews. Both only need a signed-in
// caller; they are not gated by the policy table.
type SocialHandler struct {
	Store *store.Store
}

func NewSocialHandler(s *store.Store) *SocialHandler {
	return &SocialHandler{Store: s}
}

type reviewBody struct {
	Rating  int    `json:"rating"  validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

func (h *SocialHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	err := h.Store.AddFavorite(r.Context(), caller.ID, restaurantRef(r))
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, CodeRestaurantNotFound)
	case errors.Is(err, store.ErrAlreadyFavorited):
		httpx.WriteError(w, http.StatusConflict, CodeAlreadyFavorited)
	case err != nil:
		serverError(w, r, err)
	default:
		httpx.WriteJSON(w, http.StatusCreated, map[string]bool{"favorite": true})
	}
}

func (h *SocialHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	err := h.Store.RemoveFavorite(r.Context(), caller.ID, restaurantRef(r))
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, CodeRestaurantNotFound)
	case errors.Is(err, store.ErrNotFavorited):
		httpx.WriteError(w, http.StatusNotFound, CodeNotFavorited)
	case err != nil:
		serverError(w, r, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *SocialHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	offset, limit, ok := pageParams(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, CodeInvalidQuery)
		return
	}
	page, err := h.Store.ListFavorites(r.Context(), caller.ID, offset, limit)
	if err != nil {
		serverError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse{
		Restaurants: page.Restaurants,
		Total:       page.Total,
		Page:        offset/limit + 1,
		PageSize:    limit,
	})
}

func (h *SocialHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var body reviewBody
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, CodeInvalidBody)
		return
	}
	rv, err := h.Store.CreateReview(r.Context(), restaurantRef(r), caller.ID, body.Rating, body.Comment)
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, CodeRestaurantNotFound)
	case errors.Is(err, store.ErrAlreadyReviewed):
		httpx.WriteError(w, http.StatusConflict, CodeAlreadyReviewed)
	case err != nil:
		serverError(w, r, err)
	default:
		httpx.WriteJSON(w, http.StatusCreated, rv)
	}
}
