package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Selection is the shopper's partial size/color choice.
type Selection struct {
	SizeID  string
	ColorID string
}

// Resolution is the outcome of resolving a product plus selection down
// to an exact purchasable configuration.
type Resolution struct {
	// Variant is nil for simple products.
	Variant       *Variant
	Price         decimal.Decimal
	StockQuantity int
	// OutOfStock is set when the resolved configuration tracks stock
	// and has none left. Callers must block add-to-cart.
	OutOfStock bool
}

// VariantID returns the resolved variant's ID, or "standard" for
// simple products. This is the variant component of the cart line key.
func (r Resolution) VariantID() string {
	if r.Variant == nil {
		return "standard"
	}
	return r.Variant.ID
}

// NeedsSelectionError reports which selection dimensions are still
// missing. It is user-correctable, not a fault.
type NeedsSelectionError struct {
	Missing []string // "size", "color"
}

func (e *NeedsSelectionError) Error() string {
	return fmt.Sprintf("selection required: %s", strings.Join(e.Missing, ", "))
}

// ErrNotAvailable means the selection was complete but no variant
// matches it exactly.
var ErrNotAvailable = errors.New("no variant matches the selected configuration")

// Resolve determines the exact purchasable configuration for a product
// and a (possibly partial) selection. It is a pure function over
// already-fetched catalog data.
//
// The required dimensions are inferred from the variants themselves:
// size is required iff any variant carries a size, and likewise for
// color. Simple products resolve to their own price and stock.
func Resolve(p Product, sel Selection) (Resolution, error) {
	if !p.HasVariants() {
		return Resolution{
			Price:         p.BasePrice,
			StockQuantity: p.StockQuantity,
			OutOfStock:    p.TracksStock && p.StockQuantity <= 0,
		}, nil
	}

	var needSize, needColor bool
	for _, v := range p.Variants {
		if v.SizeID != "" {
			needSize = true
		}
		if v.ColorID != "" {
			needColor = true
		}
	}

	var missing []string
	if needSize && sel.SizeID == "" {
		missing = append(missing, "size")
	}
	if needColor && sel.ColorID == "" {
		missing = append(missing, "color")
	}
	if len(missing) > 0 {
		return Resolution{}, &NeedsSelectionError{Missing: missing}
	}

	for i := range p.Variants {
		v := &p.Variants[i]
		if v.SizeID != sel.SizeID || v.ColorID != sel.ColorID {
			continue
		}
		price := p.BasePrice
		if v.Price != nil {
			price = *v.Price
		}
		return Resolution{
			Variant:       v,
			Price:         price,
			StockQuantity: v.StockQuantity,
			OutOfStock:    p.TracksStock && v.StockQuantity <= 0,
		}, nil
	}
	return Resolution{}, ErrNotAvailable
}
