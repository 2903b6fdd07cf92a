// Package commercetest provides an in-memory fake of the remote
// commerce API for tests: seeded catalog, discount codes, customers,
// orders with a scriptable fiscal workflow, and a loyalty backend.
package commercetest

import (
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atelierpos/atelier/internal/commerce"
)

// Variant is the wire shape of a catalog variant.
type Variant struct {
	ID            string           `json:"id"`
	Size          string           `json:"size,omitempty"`
	Color         string           `json:"color,omitempty"`
	StockQuantity int              `json:"stock_quantity"`
	Price         *decimal.Decimal `json:"price,omitempty"`
}

// Extra is the wire shape of a product extra.
type Extra struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Product is the wire shape of a catalog product.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TracksStock   bool            `json:"tracks_stock"`
	StockQuantity int             `json:"stock_quantity"`
	Variants      []Variant       `json:"variants,omitempty"`
	Extras        []Extra         `json:"extras,omitempty"`
}

// Discount is a seeded coupon code.
type Discount struct {
	Code        string
	Type        string // fixed | percentage
	Value       decimal.Decimal
	MinOrder    decimal.Decimal
	Description string
}

// OrderRecord is a stored order with its fiscal document state.
type OrderRecord struct {
	Number  string
	Request commerce.OrderRequest

	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal

	FiscalStatus string
	FiscalReason string
	SRINumber    string
	AccessKey    string
}

// Server is the fake commerce backend. Fields are safe to adjust from
// tests before (or between) requests.
type Server struct {
	mu sync.Mutex

	Products  []Product
	Paginated bool // serve the catalog as {count, results[]} instead of a bare array

	Discounts map[string]Discount

	customers  map[string]commerce.Customer // by identification number
	nextCustID int

	Orders   map[string]*OrderRecord
	orderSeq int

	// FiscalScript maps an order number to the sequence of statuses
	// the authority reports on successive retries. Exhausted or absent
	// scripts authorize.
	FiscalScript map[string][]string
	// RetryCalls counts fiscal retry POSTs per order number.
	RetryCalls map[string]int
	sriSeq     int

	Balances map[string]int
	Rewards  []commerce.Reward
	Coupons  []commerce.Coupon

	// Failure injection.
	FailAccounts bool
	FailOrders   bool
	FailPoints   bool

	// OrderHook, when set, runs at the start of order creation. Tests
	// use it to hold a submission in flight.
	OrderHook func()
	// PointsHook, when set, runs at the start of a points credit.
	PointsHook func()
}

// New creates a seeded fake backend.
func New() *Server {
	s := &Server{
		Discounts:    make(map[string]Discount),
		customers:    make(map[string]commerce.Customer),
		Orders:       make(map[string]*OrderRecord),
		FiscalScript: make(map[string][]string),
		RetryCalls:   make(map[string]int),
		Balances:     make(map[string]int),
	}
	s.seed()
	return s
}

// Start runs the fake behind an httptest server and returns it with
// its base URL. The server is closed on test cleanup.
func Start(t *testing.T) (*Server, string) {
	t.Helper()
	s := New()
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return s, srv.URL
}

// Client returns a commerce.Client pointed at the fake.
func Client(t *testing.T) (*Server, *commerce.Client) {
	t.Helper()
	s, url := Start(t)
	return s, commerce.NewClient(url, "pos_test_key", "pos_test_secret", 0, nil)
}

// Router builds the fake's route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", s.handleCatalog)
		r.Post("/discounts/validate", s.handleValidateDiscount)
		r.Post("/accounts", s.handleCreateAccount)
		r.Post("/customers", s.handleUpsertCustomer)
		r.Post("/orders", s.handleCreateOrder)
		r.Get("/orders/{number}/fiscal", s.handleFiscalStatus)
		r.Post("/orders/{number}/fiscal/retry", s.handleFiscalRetry)
		r.Get("/orders/{number}/fiscal/{format}", s.handleFiscalArtifact)
		r.Get("/loyalty/rewards", s.handleListRewards)
		r.Post("/loyalty/balance", s.handleBalance)
		r.Post("/loyalty/points", s.handleAddPoints)
		r.Post("/loyalty/points/remove", s.handleRemovePoints)
		r.Post("/loyalty/redeem", s.handleRedeem)
	})
	return r
}

// CustomerCount reports how many distinct customer profiles exist.
func (s *Server) CustomerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.customers)
}

// Customer returns the stored profile for an identification number.
func (s *Server) Customer(identification string) (commerce.Customer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[identification]
	return c, ok
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func (s *Server) seed() {
	price45 := dec("45")

	s.Products = []Product{
		{
			ID: "p-tee", Name: "Linen Tee", Price: dec("20"),
			TracksStock: true, StockQuantity: 10,
			Extras: []Extra{{ID: "x-wrap", Name: "Gift Wrap", Price: dec("3")}},
		},
		{
			ID: "p-dress", Name: "Wrap Dress", Price: dec("50"),
			TracksStock: true,
			Variants: []Variant{
				{ID: "v-dress-s", Size: "S", StockQuantity: 3, Price: &price45},
				{ID: "v-dress-m", Size: "M", StockQuantity: 0},
			},
		},
		{
			ID: "p-scarf", Name: "Silk Scarf", Price: dec("30"),
			TracksStock: true,
			Variants: []Variant{
				{ID: "v-scarf-s-red", Size: "U", Color: "red", StockQuantity: 5},
				{ID: "v-scarf-s-blue", Size: "U", Color: "blue", StockQuantity: 2},
			},
		},
	}

	s.Discounts["SAVE5"] = Discount{
		Code: "SAVE5", Type: "fixed", Value: dec("5"), MinOrder: dec("10"),
		Description: "$5 off orders over $10",
	}
	s.Discounts["TENPCT"] = Discount{
		Code: "TENPCT", Type: "percentage", Value: dec("10"), MinOrder: dec("50"),
		Description: "10% off orders over $50",
	}

	s.Balances["0912345678"] = 80
	s.Balances["0999999999"] = 1000

	s.Rewards = []commerce.Reward{
		{ID: 1, Name: "$5 Off", PointsCost: 100, DiscountType: "fixed", DiscountValue: dec("5"), Active: true},
		{ID: 2, Name: "Birthday Treat", PointsCost: 250, DiscountType: "fixed", DiscountValue: dec("10"), Birthday: true, Active: true},
		{ID: 3, Name: "Retired Reward", PointsCost: 50, DiscountType: "fixed", DiscountValue: dec("2"), Active: false},
	}
}
