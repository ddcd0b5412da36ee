package invoicing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/devibrahimzy/OpticienPro-app/internal/platform/httpx"
	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

// Handler serves invoices.
type Handler struct {
	logger  *slog.Logger
	service *Service
	locale  language.Tag
}

// NewHandler builds Handler. Amounts are displayed for locale.
func NewHandler(logger *slog.Logger, service *Service, locale language.Tag) *Handler {
	return &Handler{logger: logger, service: service, locale: locale}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	year, err := httpx.QueryInt(r, "year", 0)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	limit, err := httpx.QueryInt(r, "limit", 0)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	offset, err := httpx.QueryInt(r, "offset", 0)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	invoices, err := h.service.ListInvoices(r.Context(), ListFilter{
		Status: Status(r.URL.Query().Get("status")),
		Year:   year,
		Page:   shared.Page{Limit: limit, Offset: offset},
	})
	if err != nil {
		h.logger.Warn("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]View, 0, len(invoices))
	for _, inv := range invoices {
		views = append(views, NewView(h.locale, inv))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.logger.Warn("get invoice", slog.Int64("invoice_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewView(h.locale, inv))
}
