package handlers

import (
	"net/http"

	"github.com/TwigBush/restodir/internal/httpx"
	"github.com/TwigBush/restodir/internal/version"
)

func Version(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, version.Get())
}
