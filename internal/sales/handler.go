package sales

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/devibrahimzy/OpticienPro-app/internal/invoicing"
	"github.com/devibrahimzy/OpticienPro-app/internal/payments"
	"github.com/devibrahimzy/OpticienPro-app/internal/platform/httpx"
	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

// IdempotencyHeader carries the client generated key of a write.
const IdempotencyHeader = "Idempotency-Key"

// Handler wires HTTP endpoints for the sale orchestrator.
type Handler struct {
	logger  *slog.Logger
	service *Service
	locale  language.Tag
}

// NewHandler constructs sales handler. Invoice amounts are displayed for locale.
func NewHandler(logger *slog.Logger, service *Service, locale language.Tag) *Handler {
	return &Handler{logger: logger, service: service, locale: locale}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleShow)
	r.Put("/{id}", h.handleUpdate)
	r.Post("/{id}/cancel", h.handleCancel)
	r.Get("/{id}/payments", h.handleListPayments)
	r.Post("/{id}/payments", h.handleRecordPayment)
	r.Get("/{id}/invoice", h.handleInvoice)
}

type detailResponse struct {
	Sale     Sale               `json:"sale"`
	Invoice  invoicing.View     `json:"invoice"`
	Payments []payments.Payment `json:"payments"`
}

func (h *Handler) detail(d Detail) detailResponse {
	return detailResponse{Sale: d.Sale, Invoice: invoicing.NewView(h.locale, d.Invoice), Payments: d.Payments}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Status: Status(r.URL.Query().Get("status"))}
	var err error
	if filter.ClientID, err = httpx.QueryInt64(r, "client_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.SellerID, err = httpx.QueryInt64(r, "seller_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.Page.Limit, err = httpx.QueryInt(r, "limit", 0); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.Page.Offset, err = httpx.QueryInt(r, "offset", 0); err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.ListSales(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list sales", err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var cart Cart
	if err := httpx.DecodeJSON(w, r, &cart); err != nil {
		httpx.RespondError(w, err)
		return
	}
	d, err := h.service.CreateSale(r.Context(), cart, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.fail(w, r, "create sale", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.detail(d))
}

func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	d, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.detail(d))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var cart Cart
	if err := httpx.DecodeJSON(w, r, &cart); err != nil {
		httpx.RespondError(w, err)
		return
	}
	d, err := h.service.UpdateSale(r.Context(), id, cart)
	if err != nil {
		h.fail(w, r, "update sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.detail(d))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.CancelSale(r.Context(), id)
	if err != nil {
		h.fail(w, r, "cancel sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		h.fail(w, r, "list payments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in payments.Input
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	receipt, err := h.service.RecordPayment(r.Context(), id, in, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.fail(w, r, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) handleInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get sale invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoicing.NewView(h.locale, inv))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	level := slog.LevelWarn
	if shared.ErrorKind(err) == "error" {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, op, slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, err)
}
