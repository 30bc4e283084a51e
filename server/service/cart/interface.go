package cart

import (
	"context"

	"github.com/hrygo/cartsync/internal/money"
	"github.com/hrygo/cartsync/store"
	"github.com/hrygo/cartsync/store/cache"
)

// Service is the cart business logic used by the HTTP layer. Reads are served
// from the query cache; writes go through the mutation coordinator.
type Service interface {
	// Overview returns the aggregated main view. Fetch failures degrade the
	// view instead of failing it.
	Overview(ctx context.Context, userID string) (*Overview, error)

	// PersonalCart returns the user's personal cart with its items.
	PersonalCart(ctx context.Context, userID string) (*PersonalCartView, error)

	// RecipeCarts lists the recipe carts of the user.
	RecipeCarts(ctx context.Context, userID string) ([]*store.RecipeCart, error)

	// RecipeCart returns one recipe cart with its items.
	RecipeCart(ctx context.Context, userID, recipeCartID string) (*RecipeDetail, error)

	// PreconfiguredCarts lists the active bundles.
	PreconfiguredCarts(ctx context.Context) ([]*store.PreconfiguredCart, error)

	AddPersonalItem(ctx context.Context, userID, productID string, quantity int32) error
	UpdatePersonalItemQuantity(ctx context.Context, userID, itemID string, quantity int32) error
	RemovePersonalItem(ctx context.Context, userID, itemID string) error
	RemoveRecipeCart(ctx context.Context, userID, recipeCartID string) error
	RemoveRecipeCartItem(ctx context.Context, userID, recipeCartID, itemID string) error

	// ApplyPreconfiguredCart copies a bundle into the personal cart, merging
	// quantities of products already present.
	ApplyPreconfiguredCart(ctx context.Context, userID, bundleID string) error

	// Watch reports cache transitions of every key that feeds the user's
	// views until the returned func is called.
	Watch(userID string, fn cache.Listener) (stop func())
}

// PersonalCartView is the personal cart detail. Cart is nil when the user
// never added anything.
type PersonalCartView struct {
	Cart      *store.PersonalCart `json:"cart"`
	Items     []Item              `json:"items"`
	ItemCount int                 `json:"item_count"`
	Subtotal  money.Money         `json:"subtotal"`
}

// Store is the subset of store.Store the cart service needs.
type Store interface {
	GetProduct(ctx context.Context, id string) (*store.Product, error)

	GetPersonalCart(ctx context.Context, userID string) (*store.PersonalCart, error)
	CreatePersonalCart(ctx context.Context, userID string) (*store.PersonalCart, error)
	ListPersonalCartItems(ctx context.Context, find *store.FindPersonalCartItem) ([]*store.PersonalCartItem, error)
	CreatePersonalCartItem(ctx context.Context, create *store.PersonalCartItem) (*store.PersonalCartItem, error)
	UpdatePersonalCartItem(ctx context.Context, update *store.UpdatePersonalCartItem) (*store.PersonalCartItem, error)
	DeletePersonalCartItem(ctx context.Context, delete *store.DeletePersonalCartItem) error

	ListRecipeCarts(ctx context.Context, find *store.FindRecipeCart) ([]*store.RecipeCart, error)
	DeleteRecipeCart(ctx context.Context, delete *store.DeleteRecipeCart) error
	ListRecipeCartItems(ctx context.Context, find *store.FindRecipeCartItem) ([]*store.RecipeCartItem, error)
	DeleteRecipeCartItem(ctx context.Context, delete *store.DeleteRecipeCartItem) error

	ListPreconfiguredCarts(ctx context.Context, find *store.FindPreconfiguredCart) ([]*store.PreconfiguredCart, error)
	GetPreconfiguredCart(ctx context.Context, id string) (*store.PreconfiguredCart, error)
}

var _ Store = (*store.Store)(nil)
