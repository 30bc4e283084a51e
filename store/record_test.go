package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/cartsync/internal/money"
)

func TestConvertPersonalCartItemProductRelation(t *testing.T) {
	base := func(product any) Record {
		return Record{
			"id":               "i1",
			"personal_cart_id": "pc1",
			"product_id":       "p1",
			"quantity":         int64(2),
			"created_ts":       int64(100),
			ProductRelation:    product,
		}
	}

	t.Run("JoinedObject", func(t *testing.T) {
		item, err := convertPersonalCartItem(base(`{"id":"p1","name":"Lait","price":100}`))
		require.NoError(t, err)
		require.NotNil(t, item.Product)
		assert.Equal(t, "Lait", item.Product.Name)
		assert.Equal(t, money.FromCents(100), item.Product.Price)
	})

	t.Run("ErrorMarkedJoin", func(t *testing.T) {
		item, err := convertPersonalCartItem(base(map[string]any{"error": "unresolved relation products"}))
		require.NoError(t, err)
		assert.Nil(t, item.Product)
		assert.Equal(t, int32(2), item.Quantity)
	})

	t.Run("Absent", func(t *testing.T) {
		item, err := convertPersonalCartItem(base(nil))
		require.NoError(t, err)
		assert.Nil(t, item.Product)
	})
}
