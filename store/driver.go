package store

import (
	"context"

	"github.com/pkg/errors"
)

// Record is one raw row as returned by a driver. Joined relations appear
// under their alias as an object, JSON text, nil, or an error-marker object.
type Record = map[string]any

// ErrNotFound is returned by Update and Delete when no row matched.
var ErrNotFound = errors.New("record not found")

// Op is a filter comparison.
type Op string

const (
	OpEq Op = "eq"
	OpIn Op = "in"
)

// Filter restricts a statement to rows where Column Op Value holds. For
// OpIn, Value must be a []string.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq is shorthand for an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// In is shorthand for a set-membership filter.
func In(column string, values []string) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

// Join embeds the row of Table whose id equals ForeignKey under As.
type Join struct {
	As         string
	Table      string
	ForeignKey string
	Columns    []string
}

// Order sorts by Column.
type Order struct {
	Column string
	Desc   bool
}

type Select struct {
	Table   string
	Columns []string
	Joins   []Join
	Filters []Filter
	OrderBy []Order
	Limit   int
}

type Insert struct {
	Table  string
	Values Record
}

type Update struct {
	Table   string
	Filters []Filter
	Values  Record
}

type Delete struct {
	Table   string
	Filters []Filter
}

// Driver is the backing-store contract. It only speaks records; typed
// decoding and relation sanitizing happen in Store.
type Driver interface {
	Select(ctx context.Context, sel *Select) ([]Record, error)
	// Insert returns the stored row.
	Insert(ctx context.Context, ins *Insert) (Record, error)
	// Update returns the first updated row, or ErrNotFound.
	Update(ctx context.Context, upd *Update) (Record, error)
	// Delete returns ErrNotFound when nothing was deleted.
	Delete(ctx context.Context, del *Delete) error

	IsInitialized(ctx context.Context) (bool, error)
	// ExecScript runs schema or seed statements in one transaction.
	ExecScript(ctx context.Context, statements []string) error
	Close() error
}
