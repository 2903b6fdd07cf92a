// Package cart implements the shared cart store. Every UI surface
// (storefront grid, navbar badge, checkout panel) holds the same
// *Store, so mutations are observed consistently everywhere. Each
// mutation synchronously persists a snapshot to disk; the store
// rehydrates from it at startup.
package cart

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/atelierpos/atelier/internal/catalog"
)

// ErrZeroQuantity rejects additions or updates that would produce a
// line with quantity below one.
var ErrZeroQuantity = errors.New("quantity must be at least 1")

// ErrOutOfStock rejects additions whose resolved configuration has no
// stock left.
var ErrOutOfStock = errors.New("selected configuration is out of stock")

// ExtraSnapshot freezes an extra's name and price at add time, so
// later catalog edits do not retroactively change an open cart.
type ExtraSnapshot struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Line is one cart entry. Its Key is the composite of product,
// resolved variant ("standard" for simple products) and sorted extra
// IDs: two additions with the same key merge into one line.
type Line struct {
	Key         string          `json:"key"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	VariantID   string          `json:"variant_id"`
	SizeID      string          `json:"size,omitempty"`
	ColorID     string          `json:"color,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Extras      []ExtraSnapshot `json:"extras,omitempty"`
}

// Total returns (unit price + extras) x quantity for this line.
func (l Line) Total() decimal.Decimal {
	unit := l.UnitPrice
	for _, e := range l.Extras {
		unit = unit.Add(e.Price)
	}
	return unit.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineKey builds the composite line key. Extra IDs are sorted so the
// same set of extras always yields the same key.
func LineKey(productID, variantID string, extraIDs []string) string {
	parts := []string{productID, variantID}
	if len(extraIDs) > 0 {
		sorted := make([]string, len(extraIDs))
		copy(sorted, extraIDs)
		sort.Strings(sorted)
		parts = append(parts, sorted...)
	}
	return strings.Join(parts, "|")
}

// Store holds the cart lines in insertion order and persists a
// snapshot after every mutation.
type Store struct {
	mu      sync.Mutex
	lines   []Line
	index   map[string]int // key -> position in lines
	persist persister
	logger  *slog.Logger
}

// NewStore creates a Store persisting to snapshotPath and rehydrates
// any previously stored cart. A corrupted snapshot is discarded and
// the store starts empty rather than failing.
func NewStore(snapshotPath string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		index:   make(map[string]int),
		persist: &filePersister{path: snapshotPath},
		logger:  logger,
	}
	s.rehydrate()
	return s
}

// Add resolves the product's variant for the given selection and
// merges the result into the cart. An existing line with the same
// composite key has its quantity incremented; otherwise a new line is
// appended with the price and extras frozen at add time.
func (s *Store) Add(p catalog.Product, qty int, sel catalog.Selection, extraIDs []string) (Line, error) {
	if qty < 1 {
		return Line{}, ErrZeroQuantity
	}
	res, err := catalog.Resolve(p, sel)
	if err != nil {
		return Line{}, err
	}
	if res.OutOfStock {
		return Line{}, ErrOutOfStock
	}

	var extras []ExtraSnapshot
	for _, id := range extraIDs {
		e, ok := p.Extra(id)
		if !ok {
			return Line{}, errors.New("unknown extra: " + id)
		}
		extras = append(extras, ExtraSnapshot{ID: e.ID, Name: e.Name, Price: e.Price})
	}

	key := LineKey(p.ID, res.VariantID(), extraIDs)

	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[key]; ok {
		s.lines[i].Quantity += qty
		line := s.lines[i]
		s.persistLocked()
		return line, nil
	}

	line := Line{
		Key:         key,
		ProductID:   p.ID,
		ProductName: p.Name,
		VariantID:   res.VariantID(),
		SizeID:      sel.SizeID,
		ColorID:     sel.ColorID,
		Quantity:    qty,
		UnitPrice:   res.Price,
		Extras:      extras,
	}
	s.index[key] = len(s.lines)
	s.lines = append(s.lines, line)
	s.persistLocked()
	return line, nil
}

// Remove deletes the line with the given key. Returns false if no
// such line exists.
func (s *Store) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[key]
	if !ok {
		return false
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	delete(s.index, key)
	for j := i; j < len(s.lines); j++ {
		s.index[s.lines[j].Key] = j
	}
	s.persistLocked()
	return true
}

// SetQuantity replaces a line's quantity. Values below one are
// rejected; a line can never reach zero or negative quantity.
func (s *Store) SetQuantity(key string, n int) error {
	if n < 1 {
		return ErrZeroQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[key]
	if !ok {
		return errors.New("no such cart line: " + key)
	}
	s.lines[i].Quantity = n
	s.persistLocked()
	return nil
}

// Clear empties the cart. Called after a successful order submission
// or an explicit user action, never on failure.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.index = make(map[string]int)
	s.persistLocked()
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// ItemCount returns the sum of line quantities (navbar badge).
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Subtotal returns the client-side advisory total: the sum of line
// totals. The remote system remains authoritative for charged amounts.
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.Total())
	}
	return total
}

func (s *Store) persistLocked() {
	if err := s.persist.save(s.lines); err != nil {
		// Persistence is best-effort: the in-memory cart stays valid.
		s.logger.Warn("persisting cart snapshot", "err", err)
	}
}

func (s *Store) rehydrate() {
	lines, err := s.persist.load()
	if err != nil {
		s.logger.Warn("discarding unreadable cart snapshot", "err", err)
		return
	}
	s.lines = lines
	for i, l := range lines {
		s.index[l.Key] = i
	}
}
