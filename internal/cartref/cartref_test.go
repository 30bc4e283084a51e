package cartref

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, raw := range []string{"personal", "recipe", "preconfigured"} {
		st, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, st.String())
	}

	_, err := Parse("wishlist")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		source SourceType
		icon   string
		tab    string
	}{
		{Personal, "user", "personal"},
		{Recipe, "chef-hat", "recipe"},
		{Preconfigured, "package", "preconfigured"},
		{SourceType("other"), "shopping-cart", "main"},
	}

	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			ref := Resolve(tt.source)
			assert.Equal(t, tt.icon, ref.Icon)
			assert.Equal(t, tt.tab, ref.Tab)
			assert.NotEmpty(t, ref.Label)
		})
	}
}

func TestDetailTarget(t *testing.T) {
	t.Run("PreservesUnrelatedParams", func(t *testing.T) {
		query := url.Values{"tab": {"main"}, "utm_source": {"mail"}}

		target := DetailTarget(Recipe, "", query)

		u, err := url.Parse(target)
		require.NoError(t, err)
		assert.Equal(t, CartPath, u.Path)
		assert.Equal(t, "recipe", u.Query().Get("tab"))
		assert.Equal(t, "mail", u.Query().Get("utm_source"))
		// Input is left untouched.
		assert.Equal(t, "main", query.Get("tab"))
	})

	t.Run("CartID", func(t *testing.T) {
		target := DetailTarget(Personal, "42", nil)
		assert.Equal(t, "/panier?cart=42&tab=personal", target)
	})

	t.Run("UnknownSourceKeepsTab", func(t *testing.T) {
		target := DetailTarget(SourceType("other"), "", url.Values{"tab": {"main"}})
		assert.Equal(t, "/panier?tab=main", target)
	})

	t.Run("NoParams", func(t *testing.T) {
		assert.Equal(t, CartPath, DetailTarget(SourceType("other"), "", nil))
	})
}
