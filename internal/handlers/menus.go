package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/TwigBush/restodir/internal/authz"
	"github.com/TwigBush/restodir/internal/httpx"
	"github.com/TwigBush/restodir/internal/policy"
	"github.com/TwigBush/restodir/internal/store"
)

var (
	ruleMenuCreate = policy.MustRule(policy.Menu, policy.Create)
	ruleMenuEdit   = policy.MustRule(policy.Menu, policy.Edit)
	ruleMenuDelete = policy.MustRule(policy.Menu, policy.Delete)
)

type MenuHandler struct {
	Store *store.Store
	Authz authz.Authorizer
}

func NewMenuHandler(s *store.Store, a authz.Authorizer) *MenuHandler {
	return &MenuHandler{Store: s, Authz: a}
}

type menuItemBody struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"        validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Price       *int   `json:"price"       validate:"required,gte=0"`
}

type menuCategoryBody struct {
	ID    uint           `json:"id"`
	Name  string         `json:"name"  validate:"required,max=100"`
	Items []menuItemBody `json:"items" validate:"min=1,dive"`
}

type menuBody struct {
	Name       string             `json:"name"       validate:"required,max=100"`
	Categories []menuCategoryBody `json:"categories" validate:"min=1,dive"`
}

func (b menuBody) input() store.MenuInput {
	in := store.MenuInput{Name: b.Name}
	for _, c := range b.Categories {
		ci := store.MenuCategoryInput{ID: c.ID, Name: c.Name}
		for _, it := range c.Items {
			ci.Items = append(ci.Items, store.MenuItemInput{
				ID:          it.ID,
				Name:        it.Name,
				Description: it.Description,
				Price:       *it.Price,
			})
		}
		in.Categories = append(in.Categories, ci)
	}
	return in
}

func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	rid, own, ok := ownership(w, r, h.Store, restaurantRef(r))
	if !ok || !authorize(w, r, h.Authz, ruleMenuCreate, authz.RestaurantObject(rid), own) {
		return
	}
	var body menuBody
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, CodeInvalidMenu)
		return
	}
	m, err := h.Store.CreateMenu(r.Context(), rid, body.input())
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeRelationships(r.Context(), h.Authz, authz.Relationship{
		User: authz.RestaurantObject(rid), Relation: "restaurant", Object: authz.MenuObject(m.ID),
	})
	httpx.WriteJSON(w, http.StatusCreated, m)
}

// menuOwnership resolves the restaurant in the path and re-checks that the
// menu in the path is one of its menus. It returns the menu and restaurant
// ids.
func (h *MenuHandler) menuOwnership(w http.ResponseWriter, r *http.Request) (uint, uint, policy.Ownership, bool) {
	n, err := strconv.ParseUint(chi.URLParam(r, "menuID"), 10, 64)
	if err != nil || n == 0 {
		httpx.WriteError(w, http.StatusBadRequest, CodeInvalidMenuID)
		return 0, 0, policy.Ownership{}, false
	}
	menuID := uint(n)
	rid, own, ok := ownership(w, r, h.Store, restaurantRef(r))
	if !ok {
		return 0, 0, own, false
	}
	own.BelongsToRestaurant, err = h.Store.MenuBelongsToRestaurant(r.Context(), menuID, store.RefByID(rid))
	if err != nil {
		serverError(w, r, err)
		return 0, 0, own, false
	}
	return menuID, rid, own, true
}

func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	menuID, _, own, ok := h.menuOwnership(w, r)
	if !ok || !authorize(w, r, h.Authz, ruleMenuEdit, authz.MenuObject(menuID), own) {
		return
	}
	var body menuBody
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, CodeInvalidMenu)
		return
	}
	m, err := h.Store.UpdateMenu(r.Context(), menuID, body.input())
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, CodeMenuNotFound)
	case err != nil:
		serverError(w, r, err)
	default:
		httpx.WriteJSON(w, http.StatusOK, m)
	}
}

func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	menuID, rid, own, ok := h.menuOwnership(w, r)
	if !ok || !authorize(w, r, h.Authz, ruleMenuDelete, authz.MenuObject(menuID), own) {
		return
	}
	if err := h.Store.DeleteMenu(r.Context(), menuID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, CodeMenuNotFound)
			return
		}
		serverError(w, r, err)
		return
	}
	deleteRelationships(r.Context(), h.Authz, authz.Relationship{
		User: authz.RestaurantObject(rid), Relation: "restaurant", Object: authz.MenuObject(menuID),
	})
	w.WriteHeader(http.StatusNoContent)
}
