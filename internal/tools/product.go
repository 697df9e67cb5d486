package tools

import (
	"context"
	"fmt"

	"github.com/epicwp/bulkagent/internal/catalog"
)

// RegisterProductTools registers the product read and update tools against
// the given catalog store. Registration order is stable, it is the order
// tools appear in the function-calling manifest.
func RegisterProductTools(r *Registry, store catalog.Store) {
	productIDParam := NamedParam{
		Name: "product_id",
		Param: Param{
			Type:        "integer",
			Description: "The product ID",
			Required:    true,
		},
	}

	r.Register(NewSpec(
		"get_product",
		"Get a product's details by ID",
		productIDParam,
	), func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		id, err := argInt64(args, "product_id")
		if err != nil {
			return nil, err
		}
		return store.GetProduct(ctx, id)
	})

	r.Register(NewSpec(
		"get_products",
		"Get a list of products matching a filter",
		NamedParam{Name: "status", Param: Param{Type: "string", Description: "Product status: draft, pending, private or publish"}},
		NamedParam{Name: "type", Param: Param{Type: "string", Description: "Product type: external, grouped, simple or variable"}},
		NamedParam{Name: "sku", Param: Param{Type: "string", Description: "Product SKU to search for"}},
		NamedParam{Name: "category", Param: Param{Type: "string", Description: "Product category slug"}},
		NamedParam{Name: "tag", Param: Param{Type: "string", Description: "Product tag slug"}},
		NamedParam{Name: "limit", Param: Param{Type: "integer", Description: "Maximum number of results to retrieve"}},
	), func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		filter := catalog.ListFilter{
			Status:   argStringOr(args, "status", ""),
			Type:     argStringOr(args, "type", ""),
			SKU:      argStringOr(args, "sku", ""),
			Category: argStringOr(args, "category", ""),
			Tag:      argStringOr(args, "tag", ""),
		}
		if limit, err := argInt64(args, "limit"); err == nil {
			filter.Limit = int(limit)
		}
		return store.ListProducts(ctx, filter)
	})

	r.Register(NewSpec(
		"get_product_title",
		"Get a product's title",
		productIDParam,
	), fetchField(store, func(p *catalog.Product) interface{} { return p.Title }))

	r.Register(NewSpec(
		"get_product_description",
		"Get a product's description",
		productIDParam,
	), fetchField(store, func(p *catalog.Product) interface{} { return p.Description }))

	r.Register(NewSpec(
		"get_product_short_description",
		"Get a product's short description",
		productIDParam,
	), fetchField(store, func(p *catalog.Product) interface{} { return p.ShortDescription }))

	r.Register(NewSpec(
		"get_product_tags",
		"Get a product's tags",
		productIDParam,
	), fetchField(store, func(p *catalog.Product) interface{} { return p.Tags }))

	r.Register(NewSpec(
		"update_product_title",
		"Update a product's title",
		productIDParam,
		NamedParam{Name: "title", Param: Param{Type: "string", Description: "The new title for the product", Required: true}},
	), updateField(store, "title", func(patch *catalog.ProductPatch, v string) { patch.Title = &v }))

	r.Register(NewSpec(
		"update_product_description",
		"Update a product's description",
		productIDParam,
		NamedParam{Name: "description", Param: Param{Type: "string", Description: "The new description for the product", Required: true}},
	), updateField(store, "description", func(patch *catalog.ProductPatch, v string) { patch.Description = &v }))

	r.Register(NewSpec(
		"update_product_short_description",
		"Update a product's short description",
		productIDParam,
		NamedParam{Name: "short_description", Param: Param{Type: "string", Description: "The new short description for the product", Required: true}},
	), updateField(store, "short_description", func(patch *catalog.ProductPatch, v string) { patch.ShortDescription = &v }))

	r.Register(NewSpec(
		"update_product_tags",
		"Replace a product's tags with the given list",
		productIDParam,
		NamedParam{Name: "tags", Param: Param{Type: "array", Description: "The full list of tags for the product", Required: true}},
	), func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		id, err := argInt64(args, "product_id")
		if err != nil {
			return nil, err
		}
		tags, err := argStringSlice(args, "tags")
		if err != nil {
			return nil, err
		}
		return store.UpdateProduct(ctx, id, catalog.ProductPatch{Tags: &tags})
	})
}

// fetchField builds a handler returning a single product field
func fetchField(store catalog.Store, field func(*catalog.Product) interface{}) HandlerFunc {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		id, err := argInt64(args, "product_id")
		if err != nil {
			return nil, err
		}
		product, err := store.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		return field(product), nil
	}
}

// updateField builds a handler writing a single string field through the store
func updateField(store catalog.Store, argKey string, set func(*catalog.ProductPatch, string)) HandlerFunc {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		id, err := argInt64(args, "product_id")
		if err != nil {
			return nil, err
		}
		value, err := argString(args, argKey)
		if err != nil {
			return nil, err
		}
		var patch catalog.ProductPatch
		set(&patch, value)
		return store.UpdateProduct(ctx, id, patch)
	}
}

// argInt64 reads an integer argument, accepting the float64 that JSON
// decoding produces for numbers
func argInt64(args map[string]interface{}, key string) (int64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	default:
		return 0, fmt.Errorf("argument %q must be an integer, got %T", key, v)
	}
}

// argString reads a required string argument
func argString(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", key, v)
	}
	return s, nil
}

// argStringOr reads an optional string argument with a fallback
func argStringOr(args map[string]interface{}, key, fallback string) string {
	if s, err := argString(args, key); err == nil {
		return s
	}
	return fallback
}

// argStringSlice reads a required list-of-strings argument
func argStringSlice(args map[string]interface{}, key string) ([]string, error) {
	v, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("missing argument %q", key)
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("argument %q must be a list of strings, got element %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("argument %q must be a list of strings, got %T", key, v)
	}
}
