package cart

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hrygo/cartsync/store"
	"github.com/hrygo/cartsync/store/cache"
)

// Mutation kinds, used as the metrics label.
const (
	KindAddPersonalItem        = "add_personal_item"
	KindUpdatePersonalQuantity = "update_personal_quantity"
	KindRemovePersonalItem     = "remove_personal_item"
	KindRemoveRecipeCart       = "remove_recipe_cart"
	KindRemoveRecipeCartItem   = "remove_recipe_cart_item"
	KindApplyPreconfigured     = "apply_preconfigured_cart"
)

func validateQuantity(quantity int32) error {
	if quantity < 1 {
		return errors.Wrapf(ErrInvalidArgument, "quantity must be at least 1, got %d", quantity)
	}
	return nil
}

// existingPersonalCart returns the user's personal cart or a not-found error.
func (s *service) existingPersonalCart(ctx context.Context, userID string) (*store.PersonalCart, error) {
	cart, err := s.personalCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, errors.Wrapf(store.ErrNotFound, "personal cart of %s", userID)
	}
	return cart, nil
}

func (s *service) RemovePersonalItem(ctx context.Context, userID, itemID string) error {
	cart, err := s.existingPersonalCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.coordinator.Mutate(ctx, cache.MutationFunc{
		Name: KindRemovePersonalItem,
		Keys: []string{PersonalItemsKey(userID)},
		Fn: func(ctx context.Context) error {
			return s.store.DeletePersonalCartItem(ctx, &store.DeletePersonalCartItem{
				ID:             itemID,
				PersonalCartID: cart.ID,
			})
		},
	})
}

func (s *service) UpdatePersonalItemQuantity(ctx context.Context, userID, itemID string, quantity int32) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	cart, err := s.existingPersonalCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.coordinator.Mutate(ctx, cache.MutationFunc{
		Name: KindUpdatePersonalQuantity,
		Keys: []string{PersonalItemsKey(userID)},
		Fn: func(ctx context.Context) error {
			_, err := s.store.UpdatePersonalCartItem(ctx, &store.UpdatePersonalCartItem{
				ID:             itemID,
				PersonalCartID: cart.ID,
				Quantity:       &quantity,
			})
			return err
		},
	})
}

// line is a product and quantity to merge into the personal cart.
type line struct {
	productID string
	quantity  int32
}

// mergeIntoPersonalCart adds lines to the user's personal cart, creating the
// cart when cart is nil. A product already in the cart gets its quantity
// increased instead of a second line.
//
// The writes are not atomic. A failure after the first committed write is
// returned as a cache.PartialWrite so the caller's keys are still
// invalidated.
func (s *service) mergeIntoPersonalCart(ctx context.Context, userID string, cart *store.PersonalCart, lines []line) (err error) {
	wrote := false
	defer func() {
		if err != nil && wrote {
			err = cache.PartialWrite(err)
		}
	}()

	if cart == nil {
		created, err := s.store.CreatePersonalCart(ctx, userID)
		if err != nil {
			return errors.Wrapf(err, "failed to create personal cart of %s", userID)
		}
		cart = created
		wrote = true
	}

	existing, err := s.store.ListPersonalCartItems(ctx, &store.FindPersonalCartItem{PersonalCartID: &cart.ID})
	if err != nil {
		return errors.Wrapf(err, "failed to list items of personal cart %s", cart.ID)
	}
	byProduct := make(map[string]*store.PersonalCartItem, len(existing))
	for _, it := range existing {
		byProduct[it.ProductID] = it
	}

	for _, l := range lines {
		if it, ok := byProduct[l.productID]; ok {
			quantity := it.Quantity + l.quantity
			if _, err := s.store.UpdatePersonalCartItem(ctx, &store.UpdatePersonalCartItem{
				ID:             it.ID,
				PersonalCartID: cart.ID,
				Quantity:       &quantity,
			}); err != nil {
				return errors.Wrapf(err, "failed to update item %s", it.ID)
			}
			it.Quantity = quantity
			wrote = true
			continue
		}
		created, err := s.store.CreatePersonalCartItem(ctx, &store.PersonalCartItem{
			PersonalCartID: cart.ID,
			ProductID:      l.productID,
			Quantity:       l.quantity,
		})
		if err != nil {
			return errors.Wrapf(err, "failed to add product %s", l.productID)
		}
		byProduct[l.productID] = created
		wrote = true
	}
	return nil
}

func (s *service) AddPersonalItem(ctx context.Context, userID, productID string, quantity int32) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return errors.Wrapf(err, "failed to get product %s", productID)
	}
	if product == nil {
		return errors.Wrapf(store.ErrNotFound, "product %s", productID)
	}
	cart, err := s.personalCart(ctx, userID)
	if err != nil {
		return err
	}

	keys := []string{PersonalItemsKey(userID)}
	if cart == nil {
		keys = append(keys, PersonalCartKey(userID))
	}
	return s.coordinator.Mutate(ctx, cache.MutationFunc{
		Name: KindAddPersonalItem,
		Keys: keys,
		Fn: func(ctx context.Context) error {
			return s.mergeIntoPersonalCart(ctx, userID, cart, []line{{productID: productID, quantity: quantity}})
		},
	})
}

func (s *service) ApplyPreconfiguredCart(ctx context.Context, userID, bundleID string) error {
	bundle, err := s.store.GetPreconfiguredCart(ctx, bundleID)
	if err != nil {
		return errors.Wrapf(err, "failed to get preconfigured cart %s", bundleID)
	}
	if bundle == nil || !bundle.IsActive {
		return errors.Wrapf(store.ErrNotFound, "preconfigured cart %s", bundleID)
	}
	cart, err := s.personalCart(ctx, userID)
	if err != nil {
		return err
	}

	lines := make([]line, 0, len(bundle.Items))
	for _, it := range bundle.Items {
		lines = append(lines, line{productID: it.ProductID, quantity: it.Quantity})
	}
	return s.coordinator.Mutate(ctx, cache.MutationFunc{
		Name: KindApplyPreconfigured,
		Keys: []string{PersonalCartKey(userID), PersonalItemsKey(userID)},
		Fn: func(ctx context.Context) error {
			return s.mergeIntoPersonalCart(ctx, userID, cart, lines)
		},
	})
}

func (s *service) RemoveRecipeCart(ctx context.Context, userID, recipeCartID string) error {
	return s.coordinator.Mutate(ctx, cache.MutationFunc{
		Name: KindRemoveRecipeCart,
		Keys: []string{RecipeCartsKey(userID), RecipeItemsKey(recipeCartID)},
		Fn: func(ctx context.Context) error {
			return s.store.DeleteRecipeCart(ctx, &store.DeleteRecipeCart{ID: recipeCartID, UserID: userID})
		},
	})
}

func (s *service) RemoveRecipeCartItem(ctx context.Context, userID, recipeCartID, itemID string) error {
	if _, err := s.ownedRecipeCart(ctx, userID, recipeCartID); err != nil {
		return err
	}
	return s.coordinator.Mutate(ctx, cache.MutationFunc{
		Name: KindRemoveRecipeCartItem,
		Keys: []string{RecipeItemsKey(recipeCartID)},
		Fn: func(ctx context.Context) error {
			return s.store.DeleteRecipeCartItem(ctx, &store.DeleteRecipeCartItem{ID: itemID, RecipeCartID: recipeCartID})
		},
	})
}
