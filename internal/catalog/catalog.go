// Package catalog defines the product store capability consumed by the
// bulk agent. The catalog itself is an external collaborator; this package
// holds the narrow interface the tool layer needs plus the product
// representation exchanged over it.
package catalog

import (
	"context"
	"errors"
)

// ErrProductNotFound is returned when a product lookup misses
var ErrProductNotFound = errors.New("product not found")

// Product is the plain representation of a catalog product
type Product struct {
	ID               int64    `json:"id"`
	Title            string   `json:"name"`
	Description      string   `json:"description"`
	ShortDescription string   `json:"short_description"`
	SKU              string   `json:"sku"`
	Status           string   `json:"status"`
	Type             string   `json:"type"`
	RegularPrice     string   `json:"regular_price"`
	SalePrice        string   `json:"sale_price,omitempty"`
	StockStatus      string   `json:"stock_status,omitempty"`
	StockQuantity    *int     `json:"stock_quantity,omitempty"`
	Tags             []string `json:"tags,omitempty"`
}

// Fields flattens the product to a plain field map, the shape tool results
// are serialized in before being fed back to the LLM.
func (p *Product) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"id":                p.ID,
		"title":             p.Title,
		"description":       p.Description,
		"short_description": p.ShortDescription,
		"sku":               p.SKU,
		"status":            p.Status,
		"type":              p.Type,
		"regular_price":     p.RegularPrice,
		"tags":              p.Tags,
	}
	if p.SalePrice != "" {
		fields["sale_price"] = p.SalePrice
	}
	if p.StockStatus != "" {
		fields["stock_status"] = p.StockStatus
	}
	if p.StockQuantity != nil {
		fields["stock_quantity"] = *p.StockQuantity
	}
	return fields
}

// ListFilter narrows a product listing query
type ListFilter struct {
	Status   string  `json:"status,omitempty"`
	Type     string  `json:"type,omitempty"`
	SKU      string  `json:"sku,omitempty"`
	Category string  `json:"category,omitempty"`
	Tag      string  `json:"tag,omitempty"`
	Include  []int64 `json:"include,omitempty"`
	Limit    int     `json:"limit,omitempty"`
}

// ProductPatch is a sparse update: only non-nil fields are written. Every
// write is idempotent, applying the same patch twice yields the same state.
type ProductPatch struct {
	Title            *string   `json:"name,omitempty"`
	Description      *string   `json:"description,omitempty"`
	ShortDescription *string   `json:"short_description,omitempty"`
	Tags             *[]string `json:"tags,omitempty"`
}

// Store is the product store capability. Mutations write through to the
// backing catalog immediately; there is no buffering.
type Store interface {
	GetProduct(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]Product, error)
	UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (*Product, error)
}
