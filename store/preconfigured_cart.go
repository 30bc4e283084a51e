package store

import (
	"context"

	"github.com/pkg/errors"
)

const (
	preconfiguredCartTable     = "preconfigured_carts"
	preconfiguredCartItemTable = "preconfigured_cart_items"
)

var (
	preconfiguredCartColumns     = []string{"id", "name", "description", "is_active", "created_ts"}
	preconfiguredCartItemColumns = []string{"id", "preconfigured_cart_id", "product_id", "quantity"}
)

// PreconfiguredCart is a curated bundle of products a user can copy into
// their personal cart.
type PreconfiguredCart struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedTs   int64

	Items []*PreconfiguredCartItem
}

type PreconfiguredCartItem struct {
	ID                  string
	PreconfiguredCartID string
	ProductID           string
	Quantity            int32

	Product *Product
}

type FindPreconfiguredCart struct {
	ID       *string
	IsActive *bool
}

// CreatePreconfiguredCart stores the bundle and its items.
func (s *Store) CreatePreconfiguredCart(ctx context.Context, create *PreconfiguredCart) (*PreconfiguredCart, error) {
	if create.ID == "" {
		create.ID = s.newID()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = s.now().Unix()
	}
	record, err := s.driver.Insert(ctx, &Insert{
		Table: preconfiguredCartTable,
		Values: Record{
			"id":          create.ID,
			"name":        create.Name,
			"description": create.Description,
			"is_active":   create.IsActive,
			"created_ts":  create.CreatedTs,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create preconfigured cart")
	}
	cart, err := convertPreconfiguredCart(record)
	if err != nil {
		return nil, err
	}

	for _, item := range create.Items {
		if item.ID == "" {
			item.ID = s.newID()
		}
		record, err := s.driver.Insert(ctx, &Insert{
			Table: preconfiguredCartItemTable,
			Values: Record{
				"id":                    item.ID,
				"preconfigured_cart_id": cart.ID,
				"product_id":            item.ProductID,
				"quantity":              item.Quantity,
			},
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create preconfigured cart item")
		}
		created, err := convertPreconfiguredCartItem(record)
		if err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, created)
	}
	return cart, nil
}

// ListPreconfiguredCarts returns bundles with their items and products.
func (s *Store) ListPreconfiguredCarts(ctx context.Context, find *FindPreconfiguredCart) ([]*PreconfiguredCart, error) {
	sel := &Select{
		Table:   preconfiguredCartTable,
		Columns: preconfiguredCartColumns,
		OrderBy: []Order{{Column: "name"}},
	}
	if find.ID != nil {
		sel.Filters = append(sel.Filters, Eq("id", *find.ID))
	}
	if find.IsActive != nil {
		sel.Filters = append(sel.Filters, Eq("is_active", *find.IsActive))
	}

	records, err := s.driver.Select(ctx, sel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list preconfigured carts")
	}
	if len(records) == 0 {
		return []*PreconfiguredCart{}, nil
	}

	list := make([]*PreconfiguredCart, 0, len(records))
	byID := make(map[string]*PreconfiguredCart, len(records))
	ids := make([]string, 0, len(records))
	for _, record := range records {
		cart, err := convertPreconfiguredCart(record)
		if err != nil {
			return nil, err
		}
		list = append(list, cart)
		byID[cart.ID] = cart
		ids = append(ids, cart.ID)
	}

	itemRecords, err := s.driver.Select(ctx, &Select{
		Table:   preconfiguredCartItemTable,
		Columns: preconfiguredCartItemColumns,
		Joins:   []Join{productJoin()},
		Filters: []Filter{In("preconfigured_cart_id", ids)},
		OrderBy: []Order{{Column: "id"}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list preconfigured cart items")
	}
	for _, record := range itemRecords {
		item, err := convertPreconfiguredCartItem(record)
		if err != nil {
			return nil, err
		}
		if cart, ok := byID[item.PreconfiguredCartID]; ok {
			cart.Items = append(cart.Items, item)
		}
	}
	return list, nil
}

// GetPreconfiguredCart returns nil when the bundle does not exist.
func (s *Store) GetPreconfiguredCart(ctx context.Context, id string) (*PreconfiguredCart, error) {
	list, err := s.ListPreconfiguredCarts(ctx, &FindPreconfiguredCart{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func convertPreconfiguredCart(r Record) (*PreconfiguredCart, error) {
	createdTs, err := recordInt64(r, "created_ts")
	if err != nil {
		return nil, errors.Wrap(err, "invalid preconfigured cart")
	}
	return &PreconfiguredCart{
		ID:          recordString(r, "id"),
		Name:        recordString(r, "name"),
		Description: recordString(r, "description"),
		IsActive:    recordBool(r, "is_active"),
		CreatedTs:   createdTs,
	}, nil
}

func convertPreconfiguredCartItem(r Record) (*PreconfiguredCartItem, error) {
	quantity, err := recordInt32(r, "quantity")
	if err != nil {
		return nil, errors.Wrap(err, "invalid preconfigured cart item")
	}
	return &PreconfiguredCartItem{
		ID:                  recordString(r, "id"),
		PreconfiguredCartID: recordString(r, "preconfigured_cart_id"),
		ProductID:           recordString(r, "product_id"),
		Quantity:            quantity,
		Product:             relatedProduct(r, ProductRelation),
	}, nil
}
