package shipments

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ternaklink/ternaklink/internal/platform/httpx"
	"github.com/ternaklink/ternaklink/internal/shared"
)

// Handler manages shipment endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers shipment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/live-shipments", h.listLive)
	r.Post("/live-shipments", h.createLive)
	r.Get("/live-shipments/{id}", h.showLive)
	r.Put("/live-shipments/{id}", h.updateLive)
	r.Delete("/live-shipments/{id}", h.deleteLive)

	r.Get("/meat-shipments", h.listMeat)
	r.Post("/meat-shipments", h.createMeat)
	r.Get("/meat-shipments/{id}", h.showMeat)
	r.Put("/meat-shipments/{id}", h.updateMeat)
	r.Delete("/meat-shipments/{id}", h.deleteMeat)
}

func (h *Handler) createLive(w http.ResponseWriter, r *http.Request) {
	var req LiveShipmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	result, err := h.service.CreateLive(r.Context(), req, actorID(r))
	if err != nil {
		h.logger.Error("create live shipment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) updateLive(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req LiveShipmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	result, err := h.service.UpdateLive(r.Context(), id, req, actorID(r))
	if err != nil {
		h.logger.Error("update live shipment", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) deleteLive(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteLive(r.Context(), id, actorID(r)); err != nil {
		h.logger.Error("delete live shipment", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) showLive(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sh, err := h.service.GetLive(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sh)
}

func (h *Handler) listLive(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListLive(r.Context(), parseListRequest(r))
	if err != nil {
		h.logger.Error("list live shipments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"shipments": items})
}

func (h *Handler) createMeat(w http.ResponseWriter, r *http.Request) {
	var req MeatShipmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	result, err := h.service.CreateMeat(r.Context(), req, actorID(r))
	if err != nil {
		h.logger.Error("create meat shipment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) updateMeat(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req MeatShipmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	result, err := h.service.UpdateMeat(r.Context(), id, req, actorID(r))
	if err != nil {
		h.logger.Error("update meat shipment", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) deleteMeat(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteMeat(r.Context(), id, actorID(r)); err != nil {
		h.logger.Error("delete meat shipment", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) showMeat(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sh, err := h.service.GetMeat(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sh)
}

func (h *Handler) listMeat(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListMeat(r.Context(), parseListRequest(r))
	if err != nil {
		h.logger.Error("list meat shipments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"shipments": items})
}

func parseListRequest(r *http.Request) ListRequest {
	var req ListRequest
	q := r.URL.Query()
	req.CustomerID, _ = strconv.ParseInt(q.Get("customer_id"), 10, 64)
	if t, err := time.Parse("2006-01-02", q.Get("from")); err == nil {
		req.FromDate = t
	}
	if t, err := time.Parse("2006-01-02", q.Get("to")); err == nil {
		req.ToDate = t
	}
	req.Limit, _ = strconv.Atoi(q.Get("limit"))
	req.Offset, _ = strconv.Atoi(q.Get("offset"))
	return req
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id", httpx.ErrValidation)
	}
	return id, nil
}

func actorID(r *http.Request) int64 {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess.UserID()
	}
	return 0
}
