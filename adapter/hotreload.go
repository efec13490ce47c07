package adapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// reload unloads and loads a plugin again. The plugin's status handler must
// be registered anew by its Load.
func (h *handler) reload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.src.ReloadPlugin(name); err != nil {
		h.logger.Warn("plugin reload failed", zap.String("plugin", name), zap.Error(err))
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"plugin": name, "state": "loaded"})
}
