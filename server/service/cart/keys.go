package cart

// Cache keys. Every read of the cart service goes through one of these, and
// every mutation names the keys it invalidates.
const (
	personalCartPrefix    = "personal-cart:"
	personalItemsPrefix   = "personal-cart-items:"
	recipeCartsPrefix     = "recipe-carts:"
	recipeItemsPrefix     = "recipe-cart-items:"
	preconfiguredCartsKey = "preconfigured-carts"
)

// PersonalCartKey caches the personal cart row of a user.
func PersonalCartKey(userID string) string {
	return personalCartPrefix + userID
}

// PersonalItemsKey caches the items of a user's personal cart.
func PersonalItemsKey(userID string) string {
	return personalItemsPrefix + userID
}

// RecipeCartsKey caches the recipe carts owned by a user.
func RecipeCartsKey(userID string) string {
	return recipeCartsPrefix + userID
}

// RecipeItemsKey caches the detail of one recipe cart.
func RecipeItemsKey(recipeCartID string) string {
	return recipeItemsPrefix + recipeCartID
}

// PreconfiguredCartsKey caches the active bundle catalog, shared by all users.
func PreconfiguredCartsKey() string {
	return preconfiguredCartsKey
}
