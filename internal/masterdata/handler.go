package masterdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ternaklink/ternaklink/internal/platform/httpx"
)

// RepositoryPort defines data access methods for master data.
type RepositoryPort interface {
	CreateLocation(ctx context.Context, name, address string) (*Location, error)
	GetLocation(ctx context.Context, id int64) (*Location, error)
	ListLocations(ctx context.Context) ([]Location, error)
	CreateMeatType(ctx context.Context, name string) (*MeatType, error)
	GetMeatType(ctx context.Context, id int64) (*MeatType, error)
	ListMeatTypes(ctx context.Context) ([]MeatType, error)
}

// Handler manages master data endpoints. The logic is thin enough that no
// separate service layer earns its keep here.
type Handler struct {
	logger   *slog.Logger
	repo     RepositoryPort
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, repo RepositoryPort) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/locations", h.listLocations)
	r.Post("/locations", h.createLocation)
	r.Get("/locations/{id}", h.showLocation)
	r.Get("/meat-types", h.listMeatTypes)
	r.Post("/meat-types", h.createMeatType)
	r.Get("/meat-types/{id}", h.showMeatType)
}

func (h *Handler) showLocation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid location id", httpx.ErrValidation))
		return
	}
	location, err := h.repo.GetLocation(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, mapNotFound(err))
		return
	}
	httpx.JSON(w, http.StatusOK, location)
}

func (h *Handler) showMeatType(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid meat type id", httpx.ErrValidation))
		return
	}
	meatType, err := h.repo.GetMeatType(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, mapNotFound(err))
		return
	}
	httpx.JSON(w, http.StatusOK, meatType)
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.repo.ListLocations(r.Context())
	if err != nil {
		h.logger.Error("list locations", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"locations": locations})
}

func (h *Handler) createLocation(w http.ResponseWriter, r *http.Request) {
	var req CreateLocationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	location, err := h.repo.CreateLocation(r.Context(), req.Name, req.Address)
	if err != nil {
		h.logger.Error("create location", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, location)
}

func (h *Handler) listMeatTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.repo.ListMeatTypes(r.Context())
	if err != nil {
		h.logger.Error("list meat types", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"meat_types": types})
}

func (h *Handler) createMeatType(w http.ResponseWriter, r *http.Request) {
	var req CreateMeatTypeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	meatType, err := h.repo.CreateMeatType(r.Context(), req.Name)
	if err != nil {
		h.logger.Error("create meat type", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, meatType)
}

func mapNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %s", httpx.ErrNotFound, err)
	}
	return err
}
