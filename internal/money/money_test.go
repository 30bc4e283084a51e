package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoney_Arithmetic(t *testing.T) {
	unit := FromCents(250)

	assert.Equal(t, FromCents(500), unit.Mul(2))
	assert.Equal(t, FromCents(350), unit.Add(FromCents(100)))
	assert.Equal(t, int64(250), unit.Cents())
	assert.Equal(t, Zero, FromCents(100).Mul(0))
}

func TestMoney_Sum(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		assert.True(t, Sum().IsZero())
	})

	t.Run("Mixed", func(t *testing.T) {
		assert.Equal(t, FromCents(600), Sum(FromCents(500), FromCents(100)))
	})
}

func TestMoney_Sign(t *testing.T) {
	assert.False(t, Zero.IsNegative())
	assert.True(t, FromCents(-1).IsNegative())
	assert.False(t, FromCents(1).IsZero())
}

func TestFormatterFunc(t *testing.T) {
	f := FormatterFunc(func(m Money) string {
		if m.IsZero() {
			return "free"
		}
		return "paid"
	})

	assert.Equal(t, "free", f.FormatPrice(Zero))
	assert.Equal(t, "paid", f.FormatPrice(FromCents(10)))
}
