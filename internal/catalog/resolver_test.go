package catalog_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atelierpos/atelier/internal/catalog"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func simpleProduct() catalog.Product {
	return catalog.Product{
		ID: "p-tee", Name: "Linen Tee",
		BasePrice: dec("20"), TracksStock: true, StockQuantity: 10,
	}
}

func sizeOnlyProduct() catalog.Product {
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

func sizeColorProduct() catalog.Product {
	return catalog.Product{
		ID: "p-scarf", Name: "Silk Scarf",
		BasePrice: dec("30"), TracksStock: true,
		Variants: []catalog.Variant{
			{ID: "v-red", ProductID: "p-scarf", SizeID: "U", ColorID: "red", StockQuantity: 5},
			{ID: "v-blue", ProductID: "p-scarf", SizeID: "U", ColorID: "blue", StockQuantity: 2},
		},
	}
}

func TestResolveSimpleProduct(t *testing.T) {
	res, err := catalog.Resolve(simpleProduct(), catalog.Selection{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Variant != nil {
		t.Error("simple product should not resolve to a variant")
	}
	if res.VariantID() != "standard" {
		t.Errorf("expected standard variant id, got %q", res.VariantID())
	}
	if !res.Price.Equal(dec("20")) {
		t.Errorf("expected price 20, got %s", res.Price)
	}
	if res.StockQuantity != 10 || res.OutOfStock {
		t.Errorf("expected stock 10 in stock, got %d out=%v", res.StockQuantity, res.OutOfStock)
	}
}

func TestResolveRequiresOnlyPresentDimensions(t *testing.T) {
	// Size-only variants must never require a color.
	_, err := catalog.Resolve(sizeOnlyProduct(), catalog.Selection{})
	var needs *catalog.NeedsSelectionError
	if !errors.As(err, &needs) {
		t.Fatalf("expected NeedsSelectionError, got %v", err)
	}
	if len(needs.Missing) != 1 || needs.Missing[0] != "size" {
		t.Errorf("expected only size missing, got %v", needs.Missing)
	}

	// Size+color variants require both.
	_, err = catalog.Resolve(sizeColorProduct(), catalog.Selection{})
	if !errors.As(err, &needs) {
		t.Fatalf("expected NeedsSelectionError, got %v", err)
	}
	if len(needs.Missing) != 2 {
		t.Errorf("expected size and color missing, got %v", needs.Missing)
	}

	_, err = catalog.Resolve(sizeColorProduct(), catalog.Selection{SizeID: "U"})
	if !errors.As(err, &needs) {
		t.Fatalf("expected NeedsSelectionError, got %v", err)
	}
	if len(needs.Missing) != 1 || needs.Missing[0] != "color" {
		t.Errorf("expected only color missing, got %v", needs.Missing)
	}
}

func TestResolveVariantMatch(t *testing.T) {
	res, err := catalog.Resolve(sizeOnlyProduct(), catalog.Selection{SizeID: "S"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Variant == nil || res.Variant.ID != "v-s" {
		t.Fatalf("expected variant v-s, got %+v", res.Variant)
	}
	// The variant's price override wins over the base price.
	if !res.Price.Equal(dec("45")) {
		t.Errorf("expected override price 45, got %s", res.Price)
	}
}

func TestResolveInheritsBasePriceWithoutOverride(t *testing.T) {
	res, err := catalog.Resolve(sizeColorProduct(), catalog.Selection{SizeID: "U", ColorID: "blue"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Price.Equal(dec("30")) {
		t.Errorf("expected base price 30, got %s", res.Price)
	}
}

func TestResolveNoMatchingVariant(t *testing.T) {
	_, err := catalog.Resolve(sizeOnlyProduct(), catalog.Selection{SizeID: "XL"})
	if !errors.Is(err, catalog.ErrNotAvailable) {
		t.Fatalf("expected ErrNotAvailable, got %v", err)
	}
}

func TestResolveOutOfStockVariant(t *testing.T) {
	res, err := catalog.Resolve(sizeOnlyProduct(), catalog.Selection{SizeID: "M"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.OutOfStock {
		t.Error("expected M variant to be flagged out of stock")
	}
}

func TestResolveUntrackedStockNeverOutOfStock(t *testing.T) {
	p := simpleProduct()
	p.TracksStock = false
	p.StockQuantity = 0
	res, err := catalog.Resolve(p, catalog.Selection{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.OutOfStock {
		t.Error("untracked product must never be out of stock")
	}
}

func TestNormalizeCatalogShapes(t *testing.T) {
	array := []byte(`[
		{"id":"p-1","name":"Tee","price":20,"tracks_stock":true,"stock_quantity":4},
		{"id":"p-2","name":"Dress","price":50,"tracks_stock":true,
		 "variants":[{"id":"v-1","size":"S","stock_quantity":2,"price":45}]}
	]`)
	paginated := []byte(`{"count":2,"results":[
		{"id":"p-1","name":"Tee","price":20,"tracks_stock":true,"stock_quantity":4},
		{"id":"p-2","name":"Dress","price":50,"tracks_stock":true,
		 "variants":[{"id":"v-1","size":"S","stock_quantity":2,"price":45}]}
	]}`)

	for name, payload := range map[string][]byte{"array": array, "paginated": paginated} {
		t.Run(name, func(t *testing.T) {
			products, err := catalog.NormalizeCatalog(payload)
			if err != nil {
				t.Fatalf("NormalizeCatalog: %v", err)
			}
			if len(products) != 2 {
				t.Fatalf("expected 2 products, got %d", len(products))
			}
			if products[0].HasVariants() {
				t.Error("p-1 should be a simple product")
			}
			if !products[1].HasVariants() {
				t.Fatal("p-2 should carry variants")
			}
			v := products[1].Variants[0]
			if v.ProductID != "p-2" || v.SizeID != "S" || v.Price == nil || !v.Price.Equal(dec("45")) {
				t.Errorf("unexpected variant: %+v", v)
			}
		})
	}
}

func TestNormalizeCatalogRejectsGarbage(t *testing.T) {
	if _, err := catalog.NormalizeCatalog([]byte(`"nope"`)); err == nil {
		t.Fatal("expected an error for a non-catalog payload")
	}
}
