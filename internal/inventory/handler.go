package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devibrahimzy/OpticienPro-app/internal/catalog"
	"github.com/devibrahimzy/OpticienPro-app/internal/platform/httpx"
	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/availability", h.handleAvailability)
	r.Get("/lots", h.handleListLots)
	r.Post("/lots", h.handleRegisterLot)
	r.Get("/lots/{id}", h.handleShowLot)
	r.Patch("/lots/{id}/status", h.handleLotStatus)
	r.Get("/levels/{kind}/{id}", h.handleStockLevel)
}

type availabilityRequest struct {
	Lines []Demand `json:"lines"`
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.CheckAvailability(r.Context(), req.Lines); err != nil {
		h.respond(w, r, "check availability", err)
		return
	}
	httpx.JSON(w, http.StatusOK, availabilityResponse{Available: true})
}

func (h *Handler) handleListLots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := LotFilter{Status: LotStatus(q.Get("status"))}
	if kind := q.Get("kind"); kind != "" {
		k, err := catalog.ParseKind(kind)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		id, err := httpx.QueryInt64(r, "product_id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		filter.Product = &catalog.ProductRef{Kind: k, ID: id}
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
	filter.Page = shared.Page{Limit: limit, Offset: offset}
	lots, err := h.service.ListLots(r.Context(), filter)
	if err != nil {
		h.respond(w, r, "list lots", err)
		return
	}
	if lots == nil {
		lots = []Lot{}
	}
	httpx.JSON(w, http.StatusOK, lots)
}

func (h *Handler) handleRegisterLot(w http.ResponseWriter, r *http.Request) {
	var in LotInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	lot, err := h.service.RegisterLot(r.Context(), in)
	if err != nil {
		h.respond(w, r, "register lot", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lot)
}

func (h *Handler) handleShowLot(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lot, err := h.service.GetLot(r.Context(), id)
	if err != nil {
		h.respond(w, r, "get lot", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lot)
}

type lotStatusRequest struct {
	Status LotStatus `json:"status"`
}

func (h *Handler) handleLotStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req lotStatusRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	lot, err := h.service.UpdateLotStatus(r.Context(), id, req.Status)
	if err != nil {
		h.respond(w, r, "update lot status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lot)
}

type stockLevelResponse struct {
	Product  catalog.ProductRef `json:"product"`
	Quantity int64              `json:"quantity"`
}

func (h *Handler) handleStockLevel(w http.ResponseWriter, r *http.Request) {
	kind, err := catalog.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ref := catalog.ProductRef{Kind: kind, ID: id}
	qty, err := h.service.StockLevel(r.Context(), ref)
	if err != nil {
		h.respond(w, r, "stock level", err)
		return
	}
	httpx.JSON(w, http.StatusOK, stockLevelResponse{Product: ref, Quantity: qty})
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Warn(op, slog.String("path", r.URL.Path), slog.String("kind", shared.ErrorKind(err)), slog.Any("error", err))
	httpx.RespondError(w, err)
}
