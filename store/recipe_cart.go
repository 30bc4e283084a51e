package store

import (
	"context"

	"github.com/pkg/errors"
)

const (
	recipeCartTable     = "recipe_user_carts"
	recipeCartItemTable = "recipe_cart_items"
)

var (
	recipeCartColumns     = []string{"id", "user_id", "recipe_id", "cart_name", "created_ts"}
	recipeCartItemColumns = []string{"id", "recipe_cart_id", "product_id", "quantity", "created_ts"}
)

// RecipeCart is a shopping list derived from one recipe.
type RecipeCart struct {
	ID        string
	UserID    string
	RecipeID  string
	CartName  string
	CreatedTs int64
}

// RecipeCartItem is one ingredient line of a recipe cart.
type RecipeCartItem struct {
	ID           string
	RecipeCartID string
	ProductID    string
	Quantity     int32
	CreatedTs    int64

	Product *Product
}

type FindRecipeCart struct {
	ID     *string
	UserID *string
}

type DeleteRecipeCart struct {
	ID     string
	UserID string
}

type FindRecipeCartItem struct {
	ID           *string
	RecipeCartID *string
}

type DeleteRecipeCartItem struct {
	ID           string
	RecipeCartID string
}

func (s *Store) CreateRecipeCart(ctx context.Context, create *RecipeCart) (*RecipeCart, error) {
	if create.ID == "" {
		create.ID = s.newID()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = s.now().Unix()
	}
	record, err := s.driver.Insert(ctx, &Insert{
		Table: recipeCartTable,
		Values: Record{
			"id":         create.ID,
			"user_id":    create.UserID,
			"recipe_id":  create.RecipeID,
			"cart_name":  create.CartName,
			"created_ts": create.CreatedTs,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create recipe cart")
	}
	return convertRecipeCart(record)
}

func (s *Store) ListRecipeCarts(ctx context.Context, find *FindRecipeCart) ([]*RecipeCart, error) {
	sel := &Select{
		Table:   recipeCartTable,
		Columns: recipeCartColumns,
		OrderBy: []Order{{Column: "created_ts"}, {Column: "id"}},
	}
	if find.ID != nil {
		sel.Filters = append(sel.Filters, Eq("id", *find.ID))
	}
	if find.UserID != nil {
		sel.Filters = append(sel.Filters, Eq("user_id", *find.UserID))
	}

	records, err := s.driver.Select(ctx, sel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recipe carts")
	}
	list := make([]*RecipeCart, 0, len(records))
	for _, record := range records {
		cart, err := convertRecipeCart(record)
		if err != nil {
			return nil, err
		}
		list = append(list, cart)
	}
	return list, nil
}

// DeleteRecipeCart deletes the cart and its items. The items go first so a
// failure never leaves orphaned lines behind a deleted cart.
func (s *Store) DeleteRecipeCart(ctx context.Context, delete *DeleteRecipeCart) error {
	carts, err := s.ListRecipeCarts(ctx, &FindRecipeCart{ID: &delete.ID, UserID: &delete.UserID})
	if err != nil {
		return err
	}
	if len(carts) == 0 {
		return errors.Wrap(ErrNotFound, "failed to delete recipe cart")
	}

	err = s.driver.Delete(ctx, &Delete{
		Table:   recipeCartItemTable,
		Filters: []Filter{Eq("recipe_cart_id", delete.ID)},
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return errors.Wrap(err, "failed to delete recipe cart items")
	}
	err = s.driver.Delete(ctx, &Delete{
		Table:   recipeCartTable,
		Filters: []Filter{Eq("id", delete.ID), Eq("user_id", delete.UserID)},
	})
	return errors.Wrap(err, "failed to delete recipe cart")
}

func (s *Store) CreateRecipeCartItem(ctx context.Context, create *RecipeCartItem) (*RecipeCartItem, error) {
	if create.ID == "" {
		create.ID = s.newID()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = s.now().Unix()
	}
	record, err := s.driver.Insert(ctx, &Insert{
		Table: recipeCartItemTable,
		Values: Record{
			"id":             create.ID,
			"recipe_cart_id": create.RecipeCartID,
			"product_id":     create.ProductID,
			"quantity":       create.Quantity,
			"created_ts":     create.CreatedTs,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create recipe cart item")
	}
	return convertRecipeCartItem(record)
}

func (s *Store) ListRecipeCartItems(ctx context.Context, find *FindRecipeCartItem) ([]*RecipeCartItem, error) {
	sel := &Select{
		Table:   recipeCartItemTable,
		Columns: recipeCartItemColumns,
		Joins:   []Join{productJoin()},
		OrderBy: []Order{{Column: "created_ts"}, {Column: "id"}},
	}
	if find.ID != nil {
		sel.Filters = append(sel.Filters, Eq("id", *find.ID))
	}
	if find.RecipeCartID != nil {
		sel.Filters = append(sel.Filters, Eq("recipe_cart_id", *find.RecipeCartID))
	}

	records, err := s.driver.Select(ctx, sel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recipe cart items")
	}
	list := make([]*RecipeCartItem, 0, len(records))
	for _, record := range records {
		item, err := convertRecipeCartItem(record)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, nil
}

func (s *Store) DeleteRecipeCartItem(ctx context.Context, delete *DeleteRecipeCartItem) error {
	err := s.driver.Delete(ctx, &Delete{
		Table:   recipeCartItemTable,
		Filters: []Filter{Eq("id", delete.ID), Eq("recipe_cart_id", delete.RecipeCartID)},
	})
	return errors.Wrap(err, "failed to delete recipe cart item")
}

func convertRecipeCart(r Record) (*RecipeCart, error) {
	createdTs, err := recordInt64(r, "created_ts")
	if err != nil {
		return nil, errors.Wrap(err, "invalid recipe cart")
	}
	return &RecipeCart{
		ID:        recordString(r, "id"),
		UserID:    recordString(r, "user_id"),
		RecipeID:  recordString(r, "recipe_id"),
		CartName:  recordString(r, "cart_name"),
		CreatedTs: createdTs,
	}, nil
}

func convertRecipeCartItem(r Record) (*RecipeCartItem, error) {
	quantity, err := recordInt32(r, "quantity")
	if err != nil {
		return nil, errors.Wrap(err, "invalid recipe cart item")
	}
	createdTs, err := recordInt64(r, "created_ts")
	if err != nil {
		return nil, errors.Wrap(err, "invalid recipe cart item")
	}
	return &RecipeCartItem{
		ID:           recordString(r, "id"),
		RecipeCartID: recordString(r, "recipe_cart_id"),
		ProductID:    recordString(r, "product_id"),
		Quantity:     quantity,
		CreatedTs:    createdTs,
		Product:      relatedProduct(r, ProductRelation),
	}, nil
}
