package stock

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ternaklink/ternaklink/internal/platform/httpx"
)

// Handler manages stock endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock/{locationID}", h.availability)
	r.Post("/bird-receipts", h.createReceipt)
	r.Get("/bird-receipts", h.listReceipts)
	r.Post("/bird-deaths", h.createDeath)
	r.Get("/bird-deaths", h.listDeaths)
}

func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	locationID, err := strconv.ParseInt(chi.URLParam(r, "locationID"), 10, 64)
	if err != nil || locationID <= 0 {
		httpx.RespondError(w, fmt.Errorf("%w: invalid location id", httpx.ErrValidation))
		return
	}
	a, err := h.service.Availability(r.Context(), locationID)
	if err != nil {
		h.logger.Error("stock availability", slog.Any("error", err), slog.Int64("location_id", locationID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) createReceipt(w http.ResponseWriter, r *http.Request) {
	var in RecordInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	rec, err := h.service.RecordReceipt(r.Context(), in)
	if err != nil {
		h.logger.Error("record receipt", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) createDeath(w http.ResponseWriter, r *http.Request) {
	var in RecordInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	rec, err := h.service.RecordDeath(r.Context(), in)
	if err != nil {
		h.logger.Error("record death", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	locationID, limit := listParams(r)
	recs, err := h.service.ListReceipts(r.Context(), locationID, limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"receipts": recs})
}

func (h *Handler) listDeaths(w http.ResponseWriter, r *http.Request) {
	locationID, limit := listParams(r)
	recs, err := h.service.ListDeaths(r.Context(), locationID, limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deaths": recs})
}

func listParams(r *http.Request) (int64, int) {
	locationID, _ := strconv.ParseInt(r.URL.Query().Get("location_id"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return locationID, limit
}
