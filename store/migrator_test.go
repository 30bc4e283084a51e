package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSQL(t *testing.T) {
	script := `-- demo catalog
INSERT INTO products (id, name) VALUES ('p1', 'Pâte; brisée');
INSERT INTO products (id, name) VALUES ('p2', 'Lait'); -- trailing
CREATE INDEX idx_products_name ON products (name);
`
	statements := splitSQL(script)
	assert.Equal(t, []string{
		"INSERT INTO products (id, name) VALUES ('p1', 'Pâte; brisée')",
		"INSERT INTO products (id, name) VALUES ('p2', 'Lait')",
		"CREATE INDEX idx_products_name ON products (name)",
	}, statements)

	assert.Empty(t, splitSQL("-- only a comment\n\n"))
}
