package cart

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/cartsync/internal/cartref"
	"github.com/hrygo/cartsync/internal/money"
	"github.com/hrygo/cartsync/store"
)

func product(id string, cents int64) *store.Product {
	return &store.Product{ID: id, Name: id, Price: money.FromCents(cents)}
}

func TestAggregate(t *testing.T) {
	personal := &store.PersonalCart{ID: "pc1", UserID: "alice"}
	tart := &store.RecipeCart{ID: "rc1", UserID: "alice", CartName: "Tarte aux pommes"}
	soup := &store.RecipeCart{ID: "rc2", UserID: "alice", CartName: "Soupe"}

	twoLines := FromPersonalItems([]*store.PersonalCartItem{
		{ID: "i1", PersonalCartID: "pc1", ProductID: "apples", Quantity: 2, Product: product("apples", 250)},
		{ID: "i2", PersonalCartID: "pc1", ProductID: "milk", Quantity: 1, Product: product("milk", 100)},
	})

	t.Run("PersonalAndRecipe", func(t *testing.T) {
		out := Aggregate(Input{
			PersonalCart:  personal,
			PersonalItems: twoLines,
			RecipeCarts:   []*store.RecipeCart{tart},
		})

		require.Len(t, out.Summaries, 2)
		assert.Equal(t, Summary{
			ID:         "pc1",
			Name:       "Panier Personnel",
			SourceType: cartref.Personal,
			ItemCount:  2,
			Total:      money.FromCents(600),
		}, out.Summaries[0])
		assert.Equal(t, Summary{
			ID:         "rc1",
			Name:       "Tarte aux pommes",
			SourceType: cartref.Recipe,
		}, out.Summaries[1])

		assert.Equal(t, money.FromCents(600), out.Totals.Subtotal)
		assert.Equal(t, money.Zero, out.Totals.Shipping)
		assert.Equal(t, money.FromCents(600), out.Totals.Total)
		assert.False(t, out.Empty)
		assert.True(t, out.RecipeTotalsPending)
		assert.Empty(t, out.Degraded)
	})

	t.Run("Empty", func(t *testing.T) {
		out := Aggregate(Input{})
		assert.True(t, out.Empty)
		assert.NotNil(t, out.Summaries)
		assert.Empty(t, out.Summaries)
		assert.Equal(t, Totals{}, out.Totals)
		assert.False(t, out.RecipeTotalsPending)
	})

	t.Run("PersonalCartWithoutItemsIsHidden", func(t *testing.T) {
		out := Aggregate(Input{PersonalCart: personal, PersonalItems: []Item{}})
		assert.True(t, out.Empty)
	})

	t.Run("UnresolvedProductCountsAsZero", func(t *testing.T) {
		items := FromPersonalItems([]*store.PersonalCartItem{
			{ID: "i1", PersonalCartID: "pc1", ProductID: "apples", Quantity: 2, Product: product("apples", 250)},
			{ID: "i3", PersonalCartID: "pc1", ProductID: "gone", Quantity: 4},
		})
		require.False(t, items[1].Resolved)
		assert.Equal(t, money.Zero, items[1].LineTotal)

		out := Aggregate(Input{PersonalCart: personal, PersonalItems: items})
		require.Len(t, out.Summaries, 1)
		assert.Equal(t, 2, out.Summaries[0].ItemCount)
		assert.Equal(t, money.FromCents(500), out.Totals.Total)
	})

	t.Run("RecipeDetailsAlreadyFetched", func(t *testing.T) {
		detail := newRecipeDetail(tart, FromRecipeItems([]*store.RecipeCartItem{
			{ID: "r1", RecipeCartID: "rc1", ProductID: "apples", Quantity: 3, Product: product("apples", 250)},
		}))
		out := Aggregate(Input{
			RecipeCarts:   []*store.RecipeCart{tart, soup},
			RecipeDetails: map[string]RecipeDetail{"rc1": detail},
		})
		require.Len(t, out.Summaries, 2)
		assert.Equal(t, 1, out.Summaries[0].ItemCount)
		assert.Equal(t, money.FromCents(750), out.Summaries[0].Total)
		assert.Equal(t, 0, out.Summaries[1].ItemCount)
		// Recipe carts never feed the grand total.
		assert.Equal(t, money.Zero, out.Totals.Total)
	})

	t.Run("PersonalFailureDegrades", func(t *testing.T) {
		out := Aggregate(Input{
			PersonalCart:  personal,
			PersonalItems: twoLines,
			PersonalErr:   errors.New("boom"),
			RecipeCarts:   []*store.RecipeCart{tart},
		})
		require.Len(t, out.Summaries, 1)
		assert.Equal(t, cartref.Recipe, out.Summaries[0].SourceType)
		assert.Equal(t, []string{SourcePersonal}, out.Degraded)
		assert.Equal(t, money.Zero, out.Totals.Total)
	})

	t.Run("RecipeFailureDegrades", func(t *testing.T) {
		out := Aggregate(Input{
			PersonalCart:  personal,
			PersonalItems: twoLines,
			RecipeErr:     errors.New("boom"),
		})
		require.Len(t, out.Summaries, 1)
		assert.Equal(t, []string{SourceRecipe}, out.Degraded)
		assert.Equal(t, money.FromCents(600), out.Totals.Total)
	})
}

func TestLineTotalIsDerived(t *testing.T) {
	items := FromPersonalItems([]*store.PersonalCartItem{
		{ID: "i1", ProductID: "eggs", Quantity: 3, Product: product("eggs", 290)},
	})
	require.Len(t, items, 1)
	assert.Equal(t, money.FromCents(870), items[0].LineTotal)
	assert.Equal(t, items[0].UnitPrice.Mul(items[0].Quantity), items[0].LineTotal)
}
