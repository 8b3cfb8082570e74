package audithttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clinicore/clinicore/internal/audit"
	"github.com/clinicore/clinicore/internal/platform/httpx"
)

// LogService answers access-log queries.
type LogService interface {
	List(ctx context.Context, filters audit.Filters) ([]audit.ResolvedEntry, error)
}

// Handler serves the access-log screens: filtered history and CSV
// download.
type Handler struct {
	logger  *slog.Logger
	service LogService
	loc     *time.Location
	now     func() time.Time
}

// NewHandler builds a Handler. loc fixes the calendar used for display
// and export timestamps; nil means UTC.
func NewHandler(logger *slog.Logger, service LogService, loc *time.Location) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{logger: logger, service: service, loc: loc, now: time.Now}
}

type entryResponse struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actorId"`
	ActorName  string    `json:"actorName"`
	ActorEmail string    `json:"actorEmail"`
	Action     string    `json:"action"`
	TargetType string    `json:"targetType"`
	TargetID   string    `json:"targetId"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	entries, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list access log", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:         e.ID,
			ActorID:    e.ActorID,
			ActorName:  e.ActorName,
			ActorEmail: e.ActorEmail,
			Action:     string(e.Action),
			TargetType: string(e.TargetType),
			TargetID:   e.TargetID,
			Details:    e.Details,
			CreatedAt:  e.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	entries, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("export access log", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", audit.ExportFilename(h.now().In(h.loc))))
	if err := audit.WriteCSV(w, entries, h.loc); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) parseFilters(w http.ResponseWriter, r *http.Request) (audit.Filters, bool) {
	q := r.URL.Query()
	dateRange, ok := audit.ParseDateRange(strings.TrimSpace(q.Get("range")))
	if !ok {
		httpx.ValidationProblem(w, map[string]string{"range": "must be one of all, today, week, month"})
		return audit.Filters{}, false
	}
	return audit.Filters{
		Search:  strings.TrimSpace(q.Get("q")),
		ActorID: strings.TrimSpace(q.Get("actor")),
		Range:   dateRange,
	}, true
}
