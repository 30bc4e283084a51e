package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/cartsync/store"
)

type recorded struct {
	method string
	path   string
	query  map[string][]string
	header http.Header
	body   string
}

func newBackend(t *testing.T, status int, response string) (*DB, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.Query(),
			header: r.Header.Clone(),
			body:   string(body),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	db, err := New(srv.URL+"/rest/v1", "anon-key", srv.Client())
	require.NoError(t, err)
	return db, &calls
}

func TestSelect(t *testing.T) {
	db, calls := newBackend(t, http.StatusOK, `[
		{"id":"i1","quantity":2,"products":{"id":"p1","price":250}},
		{"id":"i2","quantity":1,"products":{"error":"relation products not found"}}
	]`)

	list, err := db.Select(context.Background(), &store.Select{
		Table:   "personal_cart_items",
		Columns: []string{"id", "quantity"},
		Joins: []store.Join{{
			As: "products", Table: "products", ForeignKey: "product_id", Columns: []string{"id", "price"},
		}},
		Filters: []store.Filter{store.Eq("personal_cart_id", "pc1"), store.In("id", []string{"i1", "i2"})},
		OrderBy: []store.Order{{Column: "created_ts", Desc: true}},
		Limit:   5,
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, json.Number("2"), list[0]["quantity"])
	assert.Contains(t, list[1]["products"], "error")

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodGet, call.method)
	assert.Equal(t, "/rest/v1/personal_cart_items", call.path)
	assert.Equal(t, "id,quantity,products:products!product_id(id,price)", call.query["select"][0])
	assert.Equal(t, "eq.pc1", call.query["personal_cart_id"][0])
	assert.Equal(t, `in.("i1","i2")`, call.query["id"][0])
	assert.Equal(t, "created_ts.desc", call.query["order"][0])
	assert.Equal(t, "5", call.query["limit"][0])
	assert.Equal(t, "anon-key", call.header.Get("apikey"))
	assert.Equal(t, "Bearer anon-key", call.header.Get("Authorization"))
	assert.Empty(t, call.header.Get("Prefer"))
}

func TestInsert(t *testing.T) {
	db, calls := newBackend(t, http.StatusCreated, `[{"id":"pc1","user_id":"alice"}]`)

	row, err := db.Insert(context.Background(), &store.Insert{
		Table:  "personal_carts",
		Values: store.Record{"id": "pc1", "user_id": "alice"},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", row["user_id"])

	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "return=representation", call.header.Get("Prefer"))
	assert.JSONEq(t, `{"id":"pc1","user_id":"alice"}`, call.body)
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	db, calls := newBackend(t, http.StatusOK, `[]`)
	ctx := context.Background()

	_, err := db.Update(ctx, &store.Update{
		Table:   "personal_cart_items",
		Filters: []store.Filter{store.Eq("id", "missing")},
		Values:  store.Record{"quantity": 3},
	})
	assert.True(t, errors.Is(err, store.ErrNotFound))

	err = db.Delete(ctx, &store.Delete{
		Table:   "personal_cart_items",
		Filters: []store.Filter{store.Eq("id", "missing")},
	})
	assert.True(t, errors.Is(err, store.ErrNotFound))

	require.Len(t, *calls, 2)
	assert.Equal(t, http.MethodPatch, (*calls)[0].method)
	assert.Equal(t, http.MethodDelete, (*calls)[1].method)
	assert.Equal(t, "eq.missing", (*calls)[1].query["id"][0])
}

func TestRefusesUnfilteredWrites(t *testing.T) {
	db, calls := newBackend(t, http.StatusOK, `[]`)
	ctx := context.Background()

	_, err := db.Update(ctx, &store.Update{Table: "products", Values: store.Record{"name": "x"}})
	assert.Error(t, err)
	assert.Error(t, db.Delete(ctx, &store.Delete{Table: "products"}))
	assert.Empty(t, *calls)
}

func TestBackendError(t *testing.T) {
	db, _ := newBackend(t, http.StatusForbidden, `{"code":"42501","message":"permission denied for table personal_carts"}`)

	_, err := db.Select(context.Background(), &store.Select{Table: "personal_carts", Columns: []string{"id"}})
	require.Error(t, err)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "42501", apiErr.Code)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestSchemaIsRemote(t *testing.T) {
	db, _ := newBackend(t, http.StatusOK, `[]`)
	ok, err := db.IsInitialized(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Error(t, db.ExecScript(context.Background(), []string{"SELECT 1"}))

	_, err = New("", "", nil)
	assert.Error(t, err)
}
