package sqlcommon

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/cartsync/store"
)

var testDialect = Dialect{
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	JSONObject:  "json_build_object",
}

func TestBuildSelect(t *testing.T) {
	query, args, err := BuildSelect(testDialect, &store.Select{
		Table:   "personal_cart_items",
		Columns: []string{"id", "quantity"},
		Joins: []store.Join{{
			As:         "products",
			Table:      "products",
			ForeignKey: "product_id",
			Columns:    []string{"id", "price"},
		}},
		Filters: []store.Filter{store.Eq("personal_cart_id", "pc1")},
		OrderBy: []store.Order{{Column: "created_ts"}},
		Limit:   10,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT t.id, t.quantity, CASE WHEN t.product_id IS NULL THEN NULL "+
			"WHEN j0.id IS NULL THEN json_build_object('error', 'unresolved relation products') "+
			"ELSE json_build_object('id', j0.id, 'price', j0.price) END AS products "+
			"FROM personal_cart_items t LEFT JOIN products j0 ON j0.id = t.product_id "+
			"WHERE t.personal_cart_id = $1 ORDER BY t.created_ts ASC LIMIT 10",
		query)
	assert.Equal(t, []any{"pc1"}, args)
}

func TestBuildSelectInFilter(t *testing.T) {
	query, args, err := BuildSelect(testDialect, &store.Select{
		Table:   "products",
		Columns: []string{"id"},
		Filters: []store.Filter{store.In("id", []string{"a", "b"})},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT t.id FROM products t WHERE t.id IN ($1, $2)", query)
	assert.Equal(t, []any{"a", "b"}, args)

	query, args, err = BuildSelect(testDialect, &store.Select{
		Table:   "products",
		Columns: []string{"id"},
		Filters: []store.Filter{store.In("id", []string{})},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT t.id FROM products t WHERE 1 = 0", query)
	assert.Empty(t, args)
}

func TestBuildRejectsUnsafeInput(t *testing.T) {
	tests := []struct {
		name string
		sel  *store.Select
	}{
		{"Table", &store.Select{Table: "products; DROP TABLE products", Columns: []string{"id"}}},
		{"Column", &store.Select{Table: "products", Columns: []string{"id, price"}}},
		{"NoColumns", &store.Select{Table: "products"}},
		{"FilterType", &store.Select{Table: "products", Columns: []string{"id"}, Filters: []store.Filter{{Column: "id", Op: store.OpIn, Value: "a"}}}},
		{"FilterOp", &store.Select{Table: "products", Columns: []string{"id"}, Filters: []store.Filter{{Column: "id", Op: "like", Value: "a"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := BuildSelect(testDialect, tt.sel)
			assert.Error(t, err)
		})
	}
}

func TestBuildWrites(t *testing.T) {
	query, args, err := BuildInsert(testDialect, &store.Insert{
		Table:  "personal_carts",
		Values: store.Record{"user_id": "alice", "id": "pc1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO personal_carts (id, user_id) VALUES ($1, $2) RETURNING *", query)
	assert.Equal(t, []any{"pc1", "alice"}, args)

	query, args, err = BuildUpdate(testDialect, &store.Update{
		Table:   "personal_cart_items",
		Filters: []store.Filter{store.Eq("id", "i1"), store.Eq("personal_cart_id", "pc1")},
		Values:  store.Record{"quantity": int32(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE personal_cart_items SET quantity = $1 WHERE id = $2 AND personal_cart_id = $3 RETURNING *", query)
	assert.Equal(t, []any{int32(3), "i1", "pc1"}, args)

	query, args, err = BuildDelete(testDialect, &store.Delete{
		Table:   "recipe_cart_items",
		Filters: []store.Filter{store.Eq("recipe_cart_id", "rc1")},
	})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM recipe_cart_items WHERE recipe_cart_id = $1", query)
	assert.Equal(t, []any{"rc1"}, args)

	_, _, err = BuildUpdate(testDialect, &store.Update{Table: "products", Values: store.Record{"name": "x"}})
	assert.Error(t, err)
	_, _, err = BuildDelete(testDialect, &store.Delete{Table: "products"})
	assert.Error(t, err)
	_, _, err = BuildInsert(testDialect, &store.Insert{Table: "products"})
	assert.Error(t, err)
}
