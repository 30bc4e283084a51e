// Package cartref maps a cart's source type to its display metadata and to
// the detail tab an external router should open for it.
package cartref

import (
	"net/url"

	"github.com/pkg/errors"
)

// SourceType identifies which subsystem owns a cart's items.
type SourceType string

const (
	Personal      SourceType = "personal"
	Recipe        SourceType = "recipe"
	Preconfigured SourceType = "preconfigured"
)

// CartPath is the route serving every cart detail tab.
const CartPath = "/panier"

const (
	tabParam  = "tab"
	cartParam = "cart"
)

// Reference is the display metadata of a source type.
type Reference struct {
	Label string
	Badge string
	Icon  string
	Tab   string
}

var references = map[SourceType]Reference{
	Personal:      {Label: "Panier Personnel", Badge: "Personnel", Icon: "user", Tab: "personal"},
	Recipe:        {Label: "Panier Recette", Badge: "Recette", Icon: "chef-hat", Tab: "recipe"},
	Preconfigured: {Label: "Panier Préconfiguré", Badge: "Préconfiguré", Icon: "package", Tab: "preconfigured"},
}

var fallback = Reference{Label: "Panier", Badge: "Panier", Icon: "shopping-cart", Tab: "main"}

// Parse validates a raw source type.
func Parse(raw string) (SourceType, error) {
	st := SourceType(raw)
	if !st.Valid() {
		return "", errors.Errorf("unknown cart source type: %q", raw)
	}
	return st, nil
}

// Valid reports whether s belongs to the closed enumeration.
func (s SourceType) Valid() bool {
	_, ok := references[s]
	return ok
}

func (s SourceType) String() string {
	return string(s)
}

// Resolve returns the display metadata for s. Unknown types get a generic
// cart reference rather than an error.
func Resolve(s SourceType) Reference {
	if ref, ok := references[s]; ok {
		return ref
	}
	return fallback
}

// TabFor returns the tab identifier of the detail view for s, or "" when s
// has no detail tab.
func TabFor(s SourceType) string {
	if ref, ok := references[s]; ok {
		return ref.Tab
	}
	return ""
}

// DetailTarget builds the deep link into the detail tab of a cart. Existing
// query parameters unrelated to the tab selector are preserved; query itself
// is never modified.
func DetailTarget(s SourceType, cartID string, query url.Values) string {
	params := url.Values{}
	for k, v := range query {
		params[k] = append([]string(nil), v...)
	}
	if tab := TabFor(s); tab != "" {
		params.Set(tabParam, tab)
	}
	if cartID != "" {
		params.Set(cartParam, cartID)
	}

	encoded := params.Encode()
	if encoded == "" {
		return CartPath
	}
	return CartPath + "?" + encoded
}
