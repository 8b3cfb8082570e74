package audithttp

import (
	"github.com/go-chi/chi/v5"

	"github.com/clinicore/clinicore/internal/access"
)

// MountRoutes registers access-log routes. Reading the log is an
// accessManagement view; exporting requires the same capability since
// the CSV carries exactly the on-screen data.
func (h *Handler) MountRoutes(r chi.Router, mw access.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.Require(access.ModuleAccessManagement, access.CapabilityView))
		r.Get("/", h.handleList)
		r.Get("/export", h.handleExport)
	})
}
