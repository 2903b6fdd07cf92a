// Package catalog holds the normalized catalog model and the variant
// resolver. The remote API's loose payload shapes (optional fields,
// bare arrays vs paginated envelopes) are normalized here once, so the
// rest of the code never re-checks shape ad hoc.
package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Extra is an add-on purchasable alongside a product (gift wrap,
// engraving), carrying its own price.
type Extra struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Variant is a specific purchasable configuration of a product. Size
// and color are optional dimensions; a variant may carry either, both,
// or neither. Price, when set, overrides the product base price.
type Variant struct {
	ID            string `json:"id"`
	ProductID     string `json:"product_id"`
	SizeID        string `json:"size,omitempty"`
	ColorID       string `json:"color,omitempty"`
	StockQuantity int    `json:"stock_quantity"`
	// Price overrides the product base price when non-nil.
	Price *decimal.Decimal `json:"price,omitempty"`
}

// Product is a normalized catalog item. Variants is empty for simple
// products.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	BasePrice     decimal.Decimal `json:"base_price"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TracksStock   bool            `json:"tracks_stock"`
	StockQuantity int             `json:"stock_quantity"`
	Variants      []Variant       `json:"variants,omitempty"`
	Extras        []Extra         `json:"extras,omitempty"`
}

// HasVariants reports whether the product requires variant resolution.
func (p Product) HasVariants() bool { return len(p.Variants) > 0 }

// Extra returns the product extra with the given ID.
func (p Product) Extra(id string) (Extra, bool) {
	for _, e := range p.Extras {
		if e.ID == id {
			return e, true
		}
	}
	return Extra{}, false
}

// productDTO mirrors the wire shape of a catalog product. The remote
// API omits most optional fields and sends prices as JSON numbers.
type productDTO struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TracksStock   bool            `json:"tracks_stock"`
	StockQuantity int             `json:"stock_quantity"`
	Variants      []struct {
		ID            string           `json:"id"`
		Size          string           `json:"size"`
		Color         string           `json:"color"`
		StockQuantity int              `json:"stock_quantity"`
		Price         *decimal.Decimal `json:"price"`
	} `json:"variants"`
	Extras []struct {
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Price decimal.Decimal `json:"price"`
	} `json:"extras"`
}

// paginatedDTO is the alternative catalog envelope the remote API uses
// when the result set is paginated.
type paginatedDTO struct {
	Count   int          `json:"count"`
	Results []productDTO `json:"results"`
}

// NormalizeCatalog parses a catalog payload that may be either a bare
// JSON array of products or a paginated {count, results[]} envelope.
func NormalizeCatalog(data []byte) ([]Product, error) {
	var dtos []productDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		var page paginatedDTO
		if perr := json.Unmarshal(data, &page); perr != nil {
			return nil, fmt.Errorf("parsing catalog payload: %w", err)
		}
		dtos = page.Results
	}

	products := make([]Product, 0, len(dtos))
	for _, dto := range dtos {
		p := Product{
			ID:            dto.ID,
			Name:          dto.Name,
			BasePrice:     dto.Price,
			TaxRate:       dto.TaxRate,
			TracksStock:   dto.TracksStock,
			StockQuantity: dto.StockQuantity,
		}
		for _, v := range dto.Variants {
			p.Variants = append(p.Variants, Variant{
				ID:            v.ID,
				ProductID:     dto.ID,
				SizeID:        v.Size,
				ColorID:       v.Color,
				StockQuantity: v.StockQuantity,
				Price:         v.Price,
			})
		}
		for _, e := range dto.Extras {
			p.Extras = append(p.Extras, Extra{ID: e.ID, Name: e.Name, Price: e.Price})
		}
		products = append(products, p)
	}
	return products, nil
}
