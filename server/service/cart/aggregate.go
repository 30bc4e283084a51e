package cart

import (
	"github.com/hrygo/cartsync/internal/cartref"
	"github.com/hrygo/cartsync/internal/money"
	"github.com/hrygo/cartsync/store"
)

// Source names reported in Overview.Degraded.
const (
	SourcePersonal = "personal"
	SourceRecipe   = "recipe"
)

// Item is a normalized cart line. LineTotal is always derived from
// UnitPrice and Quantity, never read back from storage.
type Item struct {
	ID           string      `json:"id"`
	ParentCartID string      `json:"parent_cart_id"`
	ProductID    string      `json:"product_id"`
	ProductName  string      `json:"product_name"`
	ImageURL     string      `json:"image_url,omitempty"`
	UnitPrice    money.Money `json:"unit_price"`
	Quantity     int32       `json:"quantity"`
	LineTotal    money.Money `json:"line_total"`
	// Resolved is false when the product relation could not be loaded; the
	// line then counts at a zero unit price.
	Resolved bool `json:"resolved"`
}

func newItem(id, parentID, productID string, quantity int32, product *store.Product) Item {
	item := Item{
		ID:           id,
		ParentCartID: parentID,
		ProductID:    productID,
		Quantity:     quantity,
	}
	if product != nil {
		item.ProductName = product.Name
		item.ImageURL = product.ImageURL
		item.UnitPrice = product.Price
		item.Resolved = true
	}
	item.LineTotal = item.UnitPrice.Mul(item.Quantity)
	return item
}

// FromPersonalItems normalizes stored personal cart lines.
func FromPersonalItems(list []*store.PersonalCartItem) []Item {
	items := make([]Item, 0, len(list))
	for _, it := range list {
		items = append(items, newItem(it.ID, it.PersonalCartID, it.ProductID, it.Quantity, it.Product))
	}
	return items
}

// FromRecipeItems normalizes stored recipe cart lines.
func FromRecipeItems(list []*store.RecipeCartItem) []Item {
	items := make([]Item, 0, len(list))
	for _, it := range list {
		items = append(items, newItem(it.ID, it.RecipeCartID, it.ProductID, it.Quantity, it.Product))
	}
	return items
}

// FromPreconfiguredItem normalizes one bundle line.
func FromPreconfiguredItem(it *store.PreconfiguredCartItem) Item {
	return newItem(it.ID, it.PreconfiguredCartID, it.ProductID, it.Quantity, it.Product)
}

// RecipeDetail is the fetched content of one recipe cart.
type RecipeDetail struct {
	Cart      *store.RecipeCart `json:"cart"`
	Items     []Item            `json:"items"`
	ItemCount int               `json:"item_count"`
	Total     money.Money       `json:"total"`
}

func newRecipeDetail(c *store.RecipeCart, items []Item) RecipeDetail {
	detail := RecipeDetail{Cart: c, Items: items, ItemCount: len(items)}
	for _, it := range items {
		detail.Total = detail.Total.Add(it.LineTotal)
	}
	return detail
}

// Summary is the read-only projection of one cart shown in the main view.
type Summary struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	SourceType cartref.SourceType `json:"source_type"`
	ItemCount  int                `json:"item_count"`
	Total      money.Money        `json:"total"`
}

// Totals are the grand totals of the main view. Total = Subtotal + Shipping.
type Totals struct {
	Subtotal money.Money `json:"subtotal"`
	Shipping money.Money `json:"shipping"`
	Total    money.Money `json:"total"`
}

// Input is everything Aggregate needs, already fetched.
type Input struct {
	PersonalCart  *store.PersonalCart
	PersonalItems []Item
	PersonalErr   error

	RecipeCarts []*store.RecipeCart
	RecipeErr   error
	// RecipeDetails holds the recipe cart details present in the cache,
	// keyed by recipe cart id. Missing entries count as zero.
	RecipeDetails map[string]RecipeDetail
}

// Overview is the aggregated main view.
type Overview struct {
	Summaries []Summary `json:"summaries"`
	Totals    Totals    `json:"totals"`
	Empty     bool      `json:"empty"`
	// Degraded lists the sources that failed to load and were left out.
	Degraded []string `json:"degraded,omitempty"`
	// RecipeTotalsPending is set while recipe carts contribute a placeholder
	// zero to the totals.
	RecipeTotalsPending bool `json:"recipe_totals_pending"`
}

// shipping is always free.
const shipping = money.Zero

// recipeContribution is what recipe carts add to the subtotal. It stays zero
// until checkout prices recipe carts with their own query.
func recipeContribution([]*store.RecipeCart) money.Money {
	return money.Zero
}

// Aggregate merges the personal cart and the recipe carts into one list of
// summaries and computes the totals. It never fetches: recipe details are
// used only when the caller already had them.
func Aggregate(in Input) Overview {
	out := Overview{Summaries: []Summary{}}

	var subtotal money.Money
	if in.PersonalErr != nil {
		out.Degraded = append(out.Degraded, SourcePersonal)
	} else if in.PersonalCart != nil && len(in.PersonalItems) > 0 {
		var personal money.Money
		for _, it := range in.PersonalItems {
			personal = personal.Add(it.UnitPrice.Mul(it.Quantity))
		}
		out.Summaries = append(out.Summaries, Summary{
			ID:         in.PersonalCart.ID,
			Name:       cartref.Resolve(cartref.Personal).Label,
			SourceType: cartref.Personal,
			ItemCount:  len(in.PersonalItems),
			Total:      personal,
		})
		subtotal = subtotal.Add(personal)
	}

	if in.RecipeErr != nil {
		out.Degraded = append(out.Degraded, SourceRecipe)
	} else {
		for _, rc := range in.RecipeCarts {
			s := Summary{
				ID:         rc.ID,
				Name:       rc.CartName,
				SourceType: cartref.Recipe,
			}
			if detail, ok := in.RecipeDetails[rc.ID]; ok {
				s.ItemCount = detail.ItemCount
				s.Total = detail.Total
			}
			out.Summaries = append(out.Summaries, s)
		}
		subtotal = subtotal.Add(recipeContribution(in.RecipeCarts))
		out.RecipeTotalsPending = len(in.RecipeCarts) > 0
	}

	out.Totals = Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}
	out.Empty = len(out.Summaries) == 0
	return out
}
