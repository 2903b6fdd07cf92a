// Package console exposes the checkout and fulfillment core over HTTP
// for the back-office operator and the storefront screens. Every
// surface goes through the same cart store instance, so the navbar
// badge, the storefront grid and the checkout panel always agree.
package console

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atelierpos/atelier/internal/cart"
	"github.com/atelierpos/atelier/internal/checkout"
	"github.com/atelierpos/atelier/internal/commerce"
	"github.com/atelierpos/atelier/internal/fiscal"
	"github.com/atelierpos/atelier/internal/loyalty"
)

// Handler holds the console's view of the core components.
type Handler struct {
	cart         *cart.Store
	client       *commerce.Client
	validator    *checkout.Validator
	orchestrator *checkout.Orchestrator
	fiscal       *fiscal.Tracker
	ledger       *loyalty.Ledger
	logger       *slog.Logger
}

// NewHandler creates a console handler over the shared core instances.
func NewHandler(
	cartStore *cart.Store,
	client *commerce.Client,
	validator *checkout.Validator,
	orchestrator *checkout.Orchestrator,
	tracker *fiscal.Tracker,
	ledger *loyalty.Ledger,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cart:         cartStore,
		client:       client,
		validator:    validator,
		orchestrator: orchestrator,
		fiscal:       tracker,
		ledger:       ledger,
		logger:       logger,
	}
}

// Router builds the console route tree.
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	h.Routes(r)
	return r
}

// Routes mounts the console endpoints on an existing router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/cart", h.GetCart)
	r.Post("/cart/items", h.AddCartItem)
	r.Patch("/cart/items/{key}", h.UpdateCartItem)
	r.Delete("/cart/items/{key}", h.RemoveCartItem)
	r.Delete("/cart", h.ClearCart)

	r.Post("/checkout/validate-discount", h.ValidateDiscount)
	r.Post("/checkout", h.SubmitCheckout)

	r.Get("/orders/{number}/fiscal", h.GetFiscal)
	r.Post("/orders/{number}/fiscal/retry", h.RetryFiscal)
	r.Get("/orders/{number}/fiscal/{format}", h.GetFiscalArtifact)

	r.Get("/loyalty/rewards", h.ListRewards)
	r.Get("/loyalty/{identification}/balance", h.GetBalance)
	r.Post("/loyalty/{identification}/redeem", h.Redeem)
	r.Post("/loyalty/earn", h.Earn)
	r.Post("/loyalty/reprocess", h.Reprocess)
}
