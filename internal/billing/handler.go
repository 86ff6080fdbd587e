package billing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/marisol-pos/marisol/internal/platform/httpx"
	"github.com/marisol-pos/marisol/internal/shared"
)

// Handler exposes the sale operations over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validationf("malformed request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid sale: %v", err))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())

	inv, err := h.service.CreateSale(r.Context(), req, actor)
	if err != nil {
		h.logger.Error("create sale failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"batch_id": inv.BatchID.String(),
		"invoice":  inv,
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid batch id"))
		return
	}
	inv, err := h.service.GetSale(r.Context(), batchID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoice":  inv,
		"subtotal": inv.Subtotal(),
		"paid":     inv.TotalPaid(),
		"owing":    inv.TotalOwing(),
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListSalesRequest{
		Seller:      r.URL.Query().Get("seller"),
		IncludeVoid: r.URL.Query().Get("include_void") == "true",
		DateFrom:    parseDate(r.URL.Query().Get("date_from")),
		DateTo:      parseDate(r.URL.Query().Get("date_to")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		req.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		req.Offset, _ = strconv.Atoi(v)
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid listing filters"))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())

	invoices, total, err := h.service.ListSales(r.Context(), req, actor)
	if err != nil {
		h.logger.Error("list sales failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invoices, "total": total})
}

func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid batch id"))
		return
	}
	var req VoidSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validationf("malformed request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid void request: %v", err))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())

	inv, err := h.service.VoidSale(r.Context(), batchID, req.Reason, actor)
	if err != nil {
		h.logger.Error("void sale failed", slog.Any("error", err), slog.String("batch_id", batchID.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "sale voided",
		"invoice": inv,
	})
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid batch id"))
		return
	}
	var req EditSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validationf("malformed request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid edit request: %v", err))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())

	inv, err := h.service.EditSale(r.Context(), batchID, req, actor)
	if err != nil {
		h.logger.Error("edit sale failed", slog.Any("error", err), slog.String("batch_id", batchID.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "sale updated",
		"invoice": inv,
	})
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
