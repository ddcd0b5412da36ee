package insurance

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devibrahimzy/OpticienPro-app/internal/platform/httpx"
)

// Handler exposes insurance plans over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers plan endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Post("/{id}/deactivate", h.deactivate)
	r.Post("/{id}/reactivate", h.reactivate)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	plans, err := h.service.ListPlans(r.Context(), includeInactive)
	if err != nil {
		h.fail(w, r, "list plans", err)
		return
	}
	if plans == nil {
		plans = []Plan{}
	}
	httpx.JSON(w, http.StatusOK, plans)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in PlanInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	plan, err := h.service.CreatePlan(r.Context(), in)
	if err != nil {
		h.fail(w, r, "create plan", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, plan)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	plan, err := h.service.GetPlan(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get plan", err)
		return
	}
	httpx.JSON(w, http.StatusOK, plan)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in PlanInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	plan, err := h.service.UpdatePlan(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "update plan", err)
		return
	}
	httpx.JSON(w, http.StatusOK, plan)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, false)
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, true)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var plan Plan
	if active {
		plan, err = h.service.ReactivatePlan(r.Context(), id)
	} else {
		plan, err = h.service.DeactivatePlan(r.Context(), id)
	}
	if err != nil {
		h.fail(w, r, "toggle plan", err)
		return
	}
	httpx.JSON(w, http.StatusOK, plan)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Warn(op, slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, err)
}
