package store

import (
	"context"

	"github.com/pkg/errors"
)

const (
	personalCartTable     = "personal_carts"
	personalCartItemTable = "personal_cart_items"
)

var (
	personalCartColumns     = []string{"id", "user_id", "created_ts"}
	personalCartItemColumns = []string{"id", "personal_cart_id", "product_id", "quantity", "created_ts"}
)

// PersonalCart is the ad-hoc cart of a user. A user has at most one.
type PersonalCart struct {
	ID        string
	UserID    string
	CreatedTs int64
}

// PersonalCartItem is one product line of a personal cart. Product is nil
// when the referenced product could not be resolved.
type PersonalCartItem struct {
	ID             string
	PersonalCartID string
	ProductID      string
	Quantity       int32
	CreatedTs      int64

	Product *Product
}

type FindPersonalCartItem struct {
	ID             *string
	PersonalCartID *string
}

type UpdatePersonalCartItem struct {
	ID             string
	PersonalCartID string
	Quantity       *int32
}

type DeletePersonalCartItem struct {
	ID             string
	PersonalCartID string
}

// GetPersonalCart returns the personal cart of userID, or nil when the user
// has none yet.
func (s *Store) GetPersonalCart(ctx context.Context, userID string) (*PersonalCart, error) {
	records, err := s.driver.Select(ctx, &Select{
		Table:   personalCartTable,
		Columns: personalCartColumns,
		Filters: []Filter{Eq("user_id", userID)},
		OrderBy: []Order{{Column: "created_ts"}},
		Limit:   1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get personal cart")
	}
	if len(records) == 0 {
		return nil, nil
	}
	return convertPersonalCart(records[0])
}

func (s *Store) CreatePersonalCart(ctx context.Context, userID string) (*PersonalCart, error) {
	record, err := s.driver.Insert(ctx, &Insert{
		Table: personalCartTable,
		Values: Record{
			"id":         s.newID(),
			"user_id":    userID,
			"created_ts": s.now().Unix(),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create personal cart")
	}
	return convertPersonalCart(record)
}

func (s *Store) ListPersonalCartItems(ctx context.Context, find *FindPersonalCartItem) ([]*PersonalCartItem, error) {
	sel := &Select{
		Table:   personalCartItemTable,
		Columns: personalCartItemColumns,
		Joins:   []Join{productJoin()},
		OrderBy: []Order{{Column: "created_ts"}, {Column: "id"}},
	}
	if find.ID != nil {
		sel.Filters = append(sel.Filters, Eq("id", *find.ID))
	}
	if find.PersonalCartID != nil {
		sel.Filters = append(sel.Filters, Eq("personal_cart_id", *find.PersonalCartID))
	}

	records, err := s.driver.Select(ctx, sel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list personal cart items")
	}
	list := make([]*PersonalCartItem, 0, len(records))
	for _, record := range records {
		item, err := convertPersonalCartItem(record)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, nil
}

func (s *Store) CreatePersonalCartItem(ctx context.Context, create *PersonalCartItem) (*PersonalCartItem, error) {
	if create.ID == "" {
		create.ID = s.newID()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = s.now().Unix()
	}
	record, err := s.driver.Insert(ctx, &Insert{
		Table: personalCartItemTable,
		Values: Record{
			"id":               create.ID,
			"personal_cart_id": create.PersonalCartID,
			"product_id":       create.ProductID,
			"quantity":         create.Quantity,
			"created_ts":       create.CreatedTs,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create personal cart item")
	}
	return convertPersonalCartItem(record)
}

func (s *Store) UpdatePersonalCartItem(ctx context.Context, update *UpdatePersonalCartItem) (*PersonalCartItem, error) {
	values := Record{}
	if update.Quantity != nil {
		values["quantity"] = *update.Quantity
	}
	if len(values) == 0 {
		return nil, errors.New("no fields to update")
	}
	record, err := s.driver.Update(ctx, &Update{
		Table:   personalCartItemTable,
		Filters: []Filter{Eq("id", update.ID), Eq("personal_cart_id", update.PersonalCartID)},
		Values:  values,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to update personal cart item")
	}
	return convertPersonalCartItem(record)
}

func (s *Store) DeletePersonalCartItem(ctx context.Context, delete *DeletePersonalCartItem) error {
	err := s.driver.Delete(ctx, &Delete{
		Table:   personalCartItemTable,
		Filters: []Filter{Eq("id", delete.ID), Eq("personal_cart_id", delete.PersonalCartID)},
	})
	return errors.Wrap(err, "failed to delete personal cart item")
}

func convertPersonalCart(r Record) (*PersonalCart, error) {
	createdTs, err := recordInt64(r, "created_ts")
	if err != nil {
		return nil, errors.Wrap(err, "invalid personal cart")
	}
	return &PersonalCart{
		ID:        recordString(r, "id"),
		UserID:    recordString(r, "user_id"),
		CreatedTs: createdTs,
	}, nil
}

func convertPersonalCartItem(r Record) (*PersonalCartItem, error) {
	quantity, err := recordInt32(r, "quantity")
	if err != nil {
		return nil, errors.Wrap(err, "invalid personal cart item")
	}
	createdTs, err := recordInt64(r, "created_ts")
	if err != nil {
		return nil, errors.Wrap(err, "invalid personal cart item")
	}
	return &PersonalCartItem{
		ID:             recordString(r, "id"),
		PersonalCartID: recordString(r, "personal_cart_id"),
		ProductID:      recordString(r, "product_id"),
		Quantity:       quantity,
		CreatedTs:      createdTs,
		Product:        relatedProduct(r, ProductRelation),
	}, nil
}
