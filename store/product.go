package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hrygo/cartsync/internal/money"
)

const productTable = "products"

// ProductRelation is the alias under which cart items embed their product.
const ProductRelation = "products"

var productColumns = []string{"id", "name", "price", "image_url", "created_ts"}

// Product is a catalog product. Price is in minor currency units.
type Product struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Price     money.Money `json:"price"`
	ImageURL  string      `json:"image_url"`
	CreatedTs int64       `json:"created_ts"`
}

type FindProduct struct {
	ID  *string
	IDs []string
}

// productJoin embeds the product referenced by the product_id column.
func productJoin() Join {
	return Join{
		As:         ProductRelation,
		Table:      productTable,
		ForeignKey: "product_id",
		Columns:    []string{"id", "name", "price", "image_url"},
	}
}

func (s *Store) CreateProduct(ctx context.Context, create *Product) (*Product, error) {
	if create.ID == "" {
		create.ID = s.newID()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = s.now().Unix()
	}
	record, err := s.driver.Insert(ctx, &Insert{
		Table: productTable,
		Values: Record{
			"id":         create.ID,
			"name":       create.Name,
			"price":      create.Price.Cents(),
			"image_url":  create.ImageURL,
			"created_ts": create.CreatedTs,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create product")
	}
	return convertProduct(record)
}

func (s *Store) ListProducts(ctx context.Context, find *FindProduct) ([]*Product, error) {
	sel := &Select{
		Table:   productTable,
		Columns: productColumns,
		OrderBy: []Order{{Column: "name"}},
	}
	if find.ID != nil {
		sel.Filters = append(sel.Filters, Eq("id", *find.ID))
	}
	if find.IDs != nil {
		sel.Filters = append(sel.Filters, In("id", find.IDs))
	}

	records, err := s.driver.Select(ctx, sel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list products")
	}
	list := make([]*Product, 0, len(records))
	for _, record := range records {
		product, err := convertProduct(record)
		if err != nil {
			return nil, err
		}
		list = append(list, product)
	}
	return list, nil
}

// GetProduct returns nil when the product does not exist.
func (s *Store) GetProduct(ctx context.Context, id string) (*Product, error) {
	list, err := s.ListProducts(ctx, &FindProduct{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func convertProduct(r Record) (*Product, error) {
	price, err := recordInt64(r, "price")
	if err != nil {
		return nil, errors.Wrap(err, "invalid product")
	}
	createdTs, err := recordInt64(r, "created_ts")
	if err != nil {
		return nil, errors.Wrap(err, "invalid product")
	}
	return &Product{
		ID:        recordString(r, "id"),
		Name:      recordString(r, "name"),
		Price:     money.FromCents(price),
		ImageURL:  recordString(r, "image_url"),
		CreatedTs: createdTs,
	}, nil
}
