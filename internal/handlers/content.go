package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TwigBush/restodir/internal/httpx"
	"github.com/TwigBush/restodir/internal/store"
)

type ContentHandler struct {
	Store *store.Store
}

func NewContentHandler(s *store.Store) *ContentHandler {
	return &ContentHandler{Store: s}
}

func (h *ContentHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.Store.ListTags(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

type postsResponse struct {
	Posts    []store.BlogPost `json:"posts"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
}

func (h *ContentHandler) Posts(w http.ResponseWriter, r *http.Request) {
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
	httpx.WriteJSON(w, http.StatusOK, postsResponse{Posts: posts, Total: total, Page: offset/limit + 1, PageSize: limit})
}

func (h *ContentHandler) Post(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetPublishedPost(r.Context(), chi.URLParam(r, "slug"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, CodePostNotFound)
	case err != nil:
		serverError(w, r, err)
	default:
		httpx.WriteJSON(w, http.StatusOK, p)
	}
}
