package cart_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atelierpos/atelier/internal/cart"
	"github.com/atelierpos/atelier/internal/catalog"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func tee() catalog.Product {
	return catalog.Product{
		ID: "p-tee", Name: "Linen Tee",
		BasePrice: dec("20"), TracksStock: true, StockQuantity: 10,
		Extras: []catalog.Extra{{ID: "x-wrap", Name: "Gift Wrap", Price: dec("3")}},
	}
}

func dress() catalog.Product {
	override := dec("45")
	return catalog.Product{
		ID: "p-dress", Name: "Wrap Dress",
		BasePrice: dec("50"), TracksStock: true,
		Variants: []catalog.Variant{
			{ID: "v-s", ProductID: "p-dress", SizeID: "S", StockQuantity: 3, Price: &override},
			{ID: "v-m", ProductID: "p-dress", SizeID: "M", StockQuantity: 0},
		},
	}
}

func newStore(t *testing.T) (*cart.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cart.json")
	return cart.NewStore(path, nil), path
}

func TestAddMergesIdenticalSelections(t *testing.T) {
	s, _ := newStore(t)

	if _, err := s.Add(tee(), 1, catalog.Selection{}, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add(tee(), 2, catalog.Selection{}, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	lines := s.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected one merged line, got %d", len(lines))
	}
	if lines[0].Quantity != 3 {
		t.Errorf("expected merged quantity 3, got %d", lines[0].Quantity)
	}
}

func TestAddDistinctExtrasStayOnSeparateLines(t *testing.T) {
	s, _ := newStore(t)

	s.Add(tee(), 1, catalog.Selection{}, nil)
	s.Add(tee(), 1, catalog.Selection{}, []string{"x-wrap"})

	if len(s.Lines()) != 2 {
		t.Fatalf("expected two lines, got %d", len(s.Lines()))
	}
}

func TestSubtotalSimpleProduct(t *testing.T) {
	s, _ := newStore(t)
	if _, err := s.Add(tee(), 2, catalog.Selection{}, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := s.Subtotal(); !got.Equal(dec("40")) {
		t.Errorf("expected subtotal 40, got %s", got)
	}
	if s.ItemCount() != 2 {
		t.Errorf("expected item count 2, got %d", s.ItemCount())
	}
}

func TestSubtotalIncludesExtrasAndOverrides(t *testing.T) {
	s, _ := newStore(t)
	// (20 + 3 wrap) x 2 = 46
	s.Add(tee(), 2, catalog.Selection{}, []string{"x-wrap"})
	// variant override 45 x 1
	if _, err := s.Add(dress(), 1, catalog.Selection{SizeID: "S"}, nil); err != nil {
		t.Fatalf("Add dress: %v", err)
	}
	if got := s.Subtotal(); !got.Equal(dec("91")) {
		t.Errorf("expected subtotal 91, got %s", got)
	}
}

func TestAddRejectsZeroQuantity(t *testing.T) {
	s, _ := newStore(t)
	if _, err := s.Add(tee(), 0, catalog.Selection{}, nil); !errors.Is(err, cart.ErrZeroQuantity) {
		t.Fatalf("expected ErrZeroQuantity, got %v", err)
	}
	if len(s.Lines()) != 0 {
		t.Error("cart must stay empty after a rejected add")
	}
}

func TestAddBlocksIncompleteSelection(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.Add(dress(), 1, catalog.Selection{}, nil)
	var needs *catalog.NeedsSelectionError
	if !errors.As(err, &needs) {
		t.Fatalf("expected NeedsSelectionError, got %v", err)
	}
	if len(s.Lines()) != 0 {
		t.Error("add-to-cart must be blocked while selection is incomplete")
	}
}

func TestAddBlocksOutOfStock(t *testing.T) {
	s, _ := newStore(t)
	if _, err := s.Add(dress(), 1, catalog.Selection{SizeID: "M"}, nil); !errors.Is(err, cart.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
}

func TestSetQuantityRejectsBelowOne(t *testing.T) {
	s, _ := newStore(t)
	line, _ := s.Add(tee(), 2, catalog.Selection{}, nil)

	if err := s.SetQuantity(line.Key, 0); !errors.Is(err, cart.ErrZeroQuantity) {
		t.Fatalf("expected ErrZeroQuantity, got %v", err)
	}
	if s.Lines()[0].Quantity != 2 {
		t.Error("rejected update must leave the quantity unchanged")
	}

	if err := s.SetQuantity(line.Key, 5); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	if s.Lines()[0].Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", s.Lines()[0].Quantity)
	}
}

func TestRemove(t *testing.T) {
	s, _ := newStore(t)
	line, _ := s.Add(tee(), 1, catalog.Selection{}, nil)

	if !s.Remove(line.Key) {
		t.Fatal("expected Remove to report true")
	}
	if s.Remove(line.Key) {
		t.Error("second Remove of the same key should report false")
	}
	if len(s.Lines()) != 0 {
		t.Error("cart should be empty after Remove")
	}
}

func TestSnapshotSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")

	s := cart.NewStore(path, nil)
	s.Add(tee(), 2, catalog.Selection{}, []string{"x-wrap"})
	s.Add(dress(), 1, catalog.Selection{SizeID: "S"}, nil)
	want := s.Subtotal()

	reloaded := cart.NewStore(path, nil)
	if len(reloaded.Lines()) != 2 {
		t.Fatalf("expected 2 rehydrated lines, got %d", len(reloaded.Lines()))
	}
	if got := reloaded.Subtotal(); !got.Equal(want) {
		t.Errorf("expected subtotal %s after rehydration, got %s", want, got)
	}

	// The rehydrated price is the frozen snapshot, not the live catalog.
	if !reloaded.Lines()[1].UnitPrice.Equal(dec("45")) {
		t.Errorf("expected frozen override price 45, got %s", reloaded.Lines()[1].UnitPrice)
	}
}

func TestCorruptSnapshotIsDiscarded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := cart.NewStore(path, nil)
	if len(s.Lines()) != 0 {
		t.Fatal("corrupted snapshot must yield an empty cart, not an error")
	}

	// The store keeps working and overwrites the bad snapshot.
	if _, err := s.Add(tee(), 1, catalog.Selection{}, nil); err != nil {
		t.Fatalf("Add after corrupted snapshot: %v", err)
	}
	reloaded := cart.NewStore(path, nil)
	if len(reloaded.Lines()) != 1 {
		t.Errorf("expected 1 line after rewrite, got %d", len(reloaded.Lines()))
	}
}

func TestVersionMismatchResetsCart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")
	if err := os.WriteFile(path, []byte(`{"version":99,"lines":[{"key":"x"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	s := cart.NewStore(path, nil)
	if len(s.Lines()) != 0 {
		t.Error("unknown snapshot version must reset to an empty cart")
	}
}

func TestClear(t *testing.T) {
	s, path := newStore(t)
	s.Add(tee(), 3, catalog.Selection{}, nil)
	s.Clear()

	if s.ItemCount() != 0 {
		t.Error("expected empty cart after Clear")
	}
	// Clear persists too.
	reloaded := cart.NewStore(path, nil)
	if reloaded.ItemCount() != 0 {
		t.Error("expected persisted cart to be empty after Clear")
	}
}

func TestLineKeySortsExtras(t *testing.T) {
	a := cart.LineKey("p", "standard", []string{"x2", "x1"})
	b := cart.LineKey("p", "standard", []string{"x1", "x2"})
	if a != b {
		t.Errorf("extra order must not change the key: %q vs %q", a, b)
	}
}
