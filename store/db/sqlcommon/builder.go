// Package sqlcommon builds and runs the record statements shared by the SQL
// drivers. Drivers differ only in their Dialect.
package sqlcommon

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/cartsync/store"
	"github.com/hrygo/cartsync/store/sanitize"
)

// Dialect captures the syntax differences between SQL backends.
type Dialect struct {
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// JSONObject is the function building a JSON object from key/value pairs.
	JSONObject string
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func ident(name string) (string, error) {
	if !identRe.MatchString(name) {
		return "", errors.Errorf("invalid identifier %q", name)
	}
	return name, nil
}

// statement accumulates SQL text and bind arguments.
type statement struct {
	d    Dialect
	args []any
}

func (s *statement) bind(v any) string {
	s.args = append(s.args, v)
	return s.d.Placeholder(len(s.args))
}

func (s *statement) where(alias string, filters []store.Filter) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	conds := make([]string, 0, len(filters))
	for _, f := range filters {
		col, err := ident(f.Column)
		if err != nil {
			return "", err
		}
		switch f.Op {
		case store.OpEq:
			conds = append(conds, prefix+col+" = "+s.bind(f.Value))
		case store.OpIn:
			values, ok := f.Value.([]string)
			if !ok {
				return "", errors.Errorf("filter on %s: in expects []string, got %T", col, f.Value)
			}
			if len(values) == 0 {
				conds = append(conds, "1 = 0")
				continue
			}
			holders := make([]string, 0, len(values))
			for _, v := range values {
				holders = append(holders, s.bind(v))
			}
			conds = append(conds, prefix+col+" IN ("+strings.Join(holders, ", ")+")")
		default:
			return "", errors.Errorf("unsupported filter op %q", f.Op)
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), nil
}

// BuildSelect renders sel. Each join becomes a LEFT JOIN whose row is folded
// into one JSON column named after the join alias: NULL when the foreign key
// is NULL, the joined object when the row exists, and an error-marker object
// when the foreign key points at a missing row.
func BuildSelect(d Dialect, sel *store.Select) (string, []any, error) {
	table, err := ident(sel.Table)
	if err != nil {
		return "", nil, err
	}
	if len(sel.Columns) == 0 {
		return "", nil, errors.New("select needs at least one column")
	}

	st := &statement{d: d}
	fields := make([]string, 0, len(sel.Columns)+len(sel.Joins))
	for _, c := range sel.Columns {
		col, err := ident(c)
		if err != nil {
			return "", nil, err
		}
		fields = append(fields, "t."+col)
	}

	var joins []string
	for i, j := range sel.Joins {
		as, err := ident(j.As)
		if err != nil {
			return "", nil, err
		}
		jt, err := ident(j.Table)
		if err != nil {
			return "", nil, err
		}
		fk, err := ident(j.ForeignKey)
		if err != nil {
			return "", nil, err
		}
		alias := fmt.Sprintf("j%d", i)
		pairs := make([]string, 0, len(j.Columns)*2)
		for _, c := range j.Columns {
			col, err := ident(c)
			if err != nil {
				return "", nil, err
			}
			pairs = append(pairs, "'"+col+"'", alias+"."+col)
		}
		marker := fmt.Sprintf("%s('%s', 'unresolved relation %s')", d.JSONObject, sanitize.ErrorMarkerKey, as)
		fields = append(fields, fmt.Sprintf(
			"CASE WHEN t.%s IS NULL THEN NULL WHEN %s.id IS NULL THEN %s ELSE %s(%s) END AS %s",
			fk, alias, marker, d.JSONObject, strings.Join(pairs, ", "), as))
		joins = append(joins, fmt.Sprintf(" LEFT JOIN %s %s ON %s.id = t.%s", jt, alias, alias, fk))
	}

	query := "SELECT " + strings.Join(fields, ", ") + " FROM " + table + " t" + strings.Join(joins, "")
	where, err := st.where("t", sel.Filters)
	if err != nil {
		return "", nil, err
	}
	query += where

	if len(sel.OrderBy) > 0 {
		orders := make([]string, 0, len(sel.OrderBy))
		for _, o := range sel.OrderBy {
			col, err := ident(o.Column)
			if err != nil {
				return "", nil, err
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			orders = append(orders, "t."+col+" "+dir)
		}
		query += " ORDER BY " + strings.Join(orders, ", ")
	}
	if sel.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", sel.Limit)
	}
	return query, st.args, nil
}

// sortedColumns returns the keys of values in a stable order.
func sortedColumns(values store.Record) ([]string, error) {
	cols := make([]string, 0, len(values))
	for k := range values {
		col, err := ident(k)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols, nil
}

func BuildInsert(d Dialect, ins *store.Insert) (string, []any, error) {
	table, err := ident(ins.Table)
	if err != nil {
		return "", nil, err
	}
	if len(ins.Values) == 0 {
		return "", nil, errors.New("insert needs at least one value")
	}
	cols, err := sortedColumns(ins.Values)
	if err != nil {
		return "", nil, err
	}
	st := &statement{d: d}
	holders := make([]string, 0, len(cols))
	for _, c := range cols {
		holders = append(holders, st.bind(ins.Values[c]))
	}
	query := "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(holders, ", ") + ") RETURNING *"
	return query, st.args, nil
}

func BuildUpdate(d Dialect, upd *store.Update) (string, []any, error) {
	table, err := ident(upd.Table)
	if err != nil {
		return "", nil, err
	}
	if len(upd.Values) == 0 {
		return "", nil, errors.New("update needs at least one value")
	}
	if len(upd.Filters) == 0 {
		return "", nil, errors.New("refusing to update without filters")
	}
	cols, err := sortedColumns(upd.Values)
	if err != nil {
		return "", nil, err
	}
	st := &statement{d: d}
	set := make([]string, 0, len(cols))
	for _, c := range cols {
		set = append(set, c+" = "+st.bind(upd.Values[c]))
	}
	where, err := st.where("", upd.Filters)
	if err != nil {
		return "", nil, err
	}
	return "UPDATE " + table + " SET " + strings.Join(set, ", ") + where + " RETURNING *", st.args, nil
}

func BuildDelete(d Dialect, del *store.Delete) (string, []any, error) {
	table, err := ident(del.Table)
	if err != nil {
		return "", nil, err
	}
	if len(del.Filters) == 0 {
		return "", nil, errors.New("refusing to delete without filters")
	}
	st := &statement{d: d}
	where, err := st.where("", del.Filters)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + table + where, st.args, nil
}

// Queryer is the subset of *sql.DB and *sql.Tx used here.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ScanRecords reads every row into a Record. Byte slices become strings.
func ScanRecords(rows *sql.Rows) ([]store.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read columns")
	}
	list := make([]store.Record, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		record := make(store.Record, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
				continue
			}
			record[col] = values[i]
		}
		list = append(list, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate rows")
	}
	return list, nil
}

// DB implements the record half of store.Driver for any dialect.
type DB struct {
	Conn    *sql.DB
	Dialect Dialect
}

func (d *DB) Select(ctx context.Context, sel *store.Select) ([]store.Record, error) {
	query, args, err := BuildSelect(d.Dialect, sel)
	if err != nil {
		return nil, err
	}
	return d.query(ctx, d.Conn, query, args)
}

func (d *DB) Insert(ctx context.Context, ins *store.Insert) (store.Record, error) {
	query, args, err := BuildInsert(d.Dialect, ins)
	if err != nil {
		return nil, err
	}
	list, err := d.query(ctx, d.Conn, query, args)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.Errorf("insert into %s returned no row", ins.Table)
	}
	return list[0], nil
}

func (d *DB) Update(ctx context.Context, upd *store.Update) (store.Record, error) {
	query, args, err := BuildUpdate(d.Dialect, upd)
	if err != nil {
		return nil, err
	}
	list, err := d.query(ctx, d.Conn, query, args)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, store.ErrNotFound
	}
	return list[0], nil
}

func (d *DB) Delete(ctx context.Context, del *store.Delete) error {
	query, args, err := BuildDelete(d.Dialect, del)
	if err != nil {
		return err
	}
	result, err := d.Conn.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "failed to delete from %s", del.Table)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ExecScript runs statements in one transaction.
func (d *DB) ExecScript(ctx context.Context, statements []string) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute statement %d", i+1)
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

func (d *DB) query(ctx context.Context, q Queryer, query string, args []any) ([]store.Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query")
	}
	defer rows.Close()
	return ScanRecords(rows)
}
