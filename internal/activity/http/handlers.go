package activityhttp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/odyssey-erp/odyssey-accounts/internal/activity"
	"github.com/odyssey-erp/odyssey-accounts/internal/rbac"
	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
	"github.com/odyssey-erp/odyssey-accounts/internal/view"
)

// Service is the activity behaviour the handlers need.
type Service interface {
	List(ctx context.Context, actor rbac.Actor, page int) (activity.Listing, error)
	UserStats(ctx context.Context) ([]activity.UserStat, error)
	PageStats(ctx context.Context) ([]activity.PageStat, error)
}

// Handler serves the activity listing, statistics and CSV exports.
type Handler struct {
	logger    *slog.Logger
	service   Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     rbac.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service Service, templates *view.Engine, csrf *shared.CSRFManager, guard rbac.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, guard: guard}
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.List(r.Context(), rbac.ActorFromContext(r.Context()), parsePage(r.URL.Query().Get("page")))
	if err != nil {
		h.fail(w, "list activity", err)
		return
	}
	h.render(w, r, "pages/user_actions/index.html", "Activity log", listing)
}

func (h *Handler) handleUsersStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.UserStats(r.Context())
	if err != nil {
		h.fail(w, "user stats", err)
		return
	}
	h.render(w, r, "pages/user_actions/users_stats.html", "Visits by user", map[string]any{
		"Stats":          stats,
		"AnonymousNames": activity.AnonymousNames,
	})
}

func (h *Handler) handlePagesStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.PageStats(r.Context())
	if err != nil {
		h.fail(w, "page stats", err)
		return
	}
	h.render(w, r, "pages/user_actions/pages_stats.html", "Visits by page", map[string]any{"Stats": stats})
}

func (h *Handler) handleUserExport(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.UserStats(r.Context())
	if err != nil {
		h.fail(w, "user export", err)
		return
	}
	var buf bytes.Buffer
	if err := activity.WriteUserStatsCSV(&buf, stats); err != nil {
		h.fail(w, "user export", err)
		return
	}
	writeCSV(w, activity.UserExportFilename, buf.Bytes())
}

func (h *Handler) handlePageExport(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.PageStats(r.Context())
	if err != nil {
		h.fail(w, "page export", err)
		return
	}
	var buf bytes.Buffer
	if err := activity.WritePageStatsCSV(&buf, stats); err != nil {
		h.fail(w, "page export", err)
		return
	}
	writeCSV(w, activity.PageExportFilename, buf.Bytes())
}

func writeCSV(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	if err := h.templates.Render(w, name, view.BaseData(r, h.csrf, title, data)); err != nil {
		h.fail(w, "render template", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
