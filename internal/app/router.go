package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ternaklink/ternaklink/internal/auth"
	"github.com/ternaklink/ternaklink/internal/customers"
	"github.com/ternaklink/ternaklink/internal/invoices"
	"github.com/ternaklink/ternaklink/internal/masterdata"
	"github.com/ternaklink/ternaklink/internal/platform/httpx"
	"github.com/ternaklink/ternaklink/internal/receivables"
	"github.com/ternaklink/ternaklink/internal/shared"
	"github.com/ternaklink/ternaklink/internal/shipments"
	"github.com/ternaklink/ternaklink/internal/stock"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager

	AuthHandler        *auth.Handler
	CustomersHandler   *customers.Handler
	MasterDataHandler  *masterdata.Handler
	StockHandler       *stock.Handler
	ShipmentsHandler   *shipments.Handler
	InvoicesHandler    *invoices.Handler
	ReceivablesHandler *receivables.Handler
}

// NewRouter constructs the chi.Router for the back office API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	params.AuthHandler.MountRoutes(r)

	r.Route("/api", func(r chi.Router) {
		r.Use(shared.RequireRole(shared.RoleAdmin, shared.RoleOwner))
		params.CustomersHandler.MountRoutes(r)
		params.MasterDataHandler.MountRoutes(r)
		params.StockHandler.MountRoutes(r)
		params.ShipmentsHandler.MountRoutes(r)
		params.InvoicesHandler.MountRoutes(r)
		params.ReceivablesHandler.MountRoutes(r)
	})

	return r
}
