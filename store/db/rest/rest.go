// Package rest is a store driver for PostgREST-compatible HTTP backends such
// as Supabase. Relations are embedded by the server and passed through
// untouched, error markers included; Store sanitizes them.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/cartsync/internal/profile"
	"github.com/hrygo/cartsync/store"
)

const defaultTimeout = 10 * time.Second

type DB struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewDB creates a driver for the endpoint in profile.RESTURL, for example
// https://<project>.supabase.co/rest/v1.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	return New(profile.RESTURL, profile.RESTKey, &http.Client{Timeout: defaultTimeout})
}

// New creates a driver with an explicit client.
func New(baseURL, apiKey string, client *http.Client) (*DB, error) {
	if baseURL == "" {
		return nil, errors.New("rest base url required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, errors.Wrapf(err, "invalid rest base url %s", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &DB{baseURL: u, apiKey: apiKey, client: client, logger: slog.Default()}, nil
}

// Error is a non-2xx answer of the backend.
type Error struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("rest backend returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("rest backend returned %d: %s", e.Status, e.Message)
}

func (d *DB) Select(ctx context.Context, sel *store.Select) ([]store.Record, error) {
	q, err := filterQuery(sel.Filters)
	if err != nil {
		return nil, err
	}
	q.Set("select", selectClause(sel))
	if len(sel.OrderBy) > 0 {
		orders := make([]string, 0, len(sel.OrderBy))
		for _, o := range sel.OrderBy {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			orders = append(orders, o.Column+"."+dir)
		}
		q.Set("order", strings.Join(orders, ","))
	}
	if sel.Limit > 0 {
		q.Set("limit", strconv.Itoa(sel.Limit))
	}
	return d.do(ctx, http.MethodGet, sel.Table, q, nil)
}

func (d *DB) Insert(ctx context.Context, ins *store.Insert) (store.Record, error) {
	list, err := d.do(ctx, http.MethodPost, ins.Table, url.Values{}, ins.Values)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.Errorf("insert into %s returned no row", ins.Table)
	}
	return list[0], nil
}

func (d *DB) Update(ctx context.Context, upd *store.Update) (store.Record, error) {
	if len(upd.Filters) == 0 {
		return nil, errors.New("refusing to update without filters")
	}
	q, err := filterQuery(upd.Filters)
	if err != nil {
		return nil, err
	}
	list, err := d.do(ctx, http.MethodPatch, upd.Table, q, upd.Values)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, store.ErrNotFound
	}
	return list[0], nil
}

func (d *DB) Delete(ctx context.Context, del *store.Delete) error {
	if len(del.Filters) == 0 {
		return errors.New("refusing to delete without filters")
	}
	q, err := filterQuery(del.Filters)
	if err != nil {
		return err
	}
	list, err := d.do(ctx, http.MethodDelete, del.Table, q, nil)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return store.ErrNotFound
	}
	return nil
}

// IsInitialized is always true: the remote owns its schema.
func (d *DB) IsInitialized(context.Context) (bool, error) {
	return true, nil
}

func (d *DB) ExecScript(context.Context, []string) error {
	return errors.New("the rest backend manages its own schema")
}

func (d *DB) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

func (d *DB) do(ctx context.Context, method, table string, query url.Values, body any) ([]store.Record, error) {
	endpoint := d.baseURL.ResolveReference(&url.URL{Path: table, RawQuery: query.Encode()})

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request body")
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}
	if d.apiKey != "" {
		req.Header.Set("apikey", d.apiKey)
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, table)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		d.logger.Warn("rest backend error",
			slog.String("method", method),
			slog.String("table", table),
			slog.Int("status", resp.StatusCode),
			slog.String("code", apiErr.Code))
		return nil, apiErr
	}
	if resp.StatusCode == http.StatusNoContent {
		return []store.Record{}, nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var list []store.Record
	if err := dec.Decode(&list); err != nil {
		if errors.Is(err, io.EOF) {
			return []store.Record{}, nil
		}
		return nil, errors.Wrapf(err, "failed to decode %s response", table)
	}
	return list, nil
}

// selectClause renders columns and embedded relations, e.g.
// id,quantity,products:products!product_id(id,name).
func selectClause(sel *store.Select) string {
	parts := make([]string, 0, len(sel.Columns)+len(sel.Joins))
	parts = append(parts, sel.Columns...)
	for _, j := range sel.Joins {
		parts = append(parts, fmt.Sprintf("%s:%s!%s(%s)", j.As, j.Table, j.ForeignKey, strings.Join(j.Columns, ",")))
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, ",")
}

func filterQuery(filters []store.Filter) (url.Values, error) {
	q := url.Values{}
	for _, f := range filters {
		switch f.Op {
		case store.OpEq:
			q.Add(f.Column, "eq."+formatValue(f.Value))
		case store.OpIn:
			values, ok := f.Value.([]string)
			if !ok {
				return nil, errors.Errorf("filter on %s: in expects []string, got %T", f.Column, f.Value)
			}
			quoted := make([]string, 0, len(values))
			for _, v := range values {
				quoted = append(quoted, strconv.Quote(v))
			}
			q.Add(f.Column, "in.("+strings.Join(quoted, ",")+")")
		default:
			return nil, errors.Errorf("unsupported filter op %q", f.Op)
		}
	}
	return q, nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

var _ store.Driver = (*DB)(nil)
