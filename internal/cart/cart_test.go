package cart

import (
	"testing"

	"github.com/nachitzaid/food4u/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(id string, price float64, qty int) domain.LineItem {
	return domain.LineItem{MenuItemID: id, Name: id, UnitPrice: price, Quantity: qty}
}

func TestAdd_MergesSameKey(t *testing.T) {
	c := New(nil)

	a := line("pizza", 10, 1)
	a.RemovedIngredients = []string{"olives", "basil"}
	b := line("pizza", 10, 2)
	b.RemovedIngredients = []string{"basil", "olives"}

	assert.True(t, c.Add(a))
	assert.True(t, c.Add(b))

	require.Equal(t, 1, c.Len())
	assert.Equal(t, 3, c.Items()[0].Quantity)
}

func TestAdd_DifferentCustomizationsStaySeparate(t *testing.T) {
	c := New(nil)
	plain := line("pizza", 10, 1)
	large := line("pizza", 12, 1)
	large.Variant = "large"
	cheese := line("pizza", 10, 1)
	cheese.Extras = []domain.Extra{{Name: "cheese", Price: 1}}

	c.Add(plain)
	c.Add(large)
	c.Add(cheese)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 3, c.ItemCount())
}

func TestAdd_IgnoresNonPositiveQuantity(t *testing.T) {
	c := New(nil)
	assert.False(t, c.Add(line("pizza", 10, 0)))
	assert.False(t, c.Add(line("pizza", 10, -2)))
	assert.True(t, c.Empty())
}

func TestSetQuantity_ZeroRemovesLine(t *testing.T) {
	c := New([]domain.LineItem{line("pizza", 10, 2), line("soda", 2, 1)})
	key := line("pizza", 10, 1).Key()

	assert.True(t, c.SetQuantity(key, 0))
	require.Equal(t, 1, c.Len())
	for _, it := range c.Items() {
		assert.Greater(t, it.Quantity, 0)
	}

	assert.True(t, c.SetQuantity(line("soda", 2, 1).Key(), -1))
	assert.True(t, c.Empty())
}

func TestSetQuantity_AbsoluteAndNoopWhenMissing(t *testing.T) {
	c := New([]domain.LineItem{line("pizza", 10, 2)})
	key := line("pizza", 10, 1).Key()

	assert.True(t, c.SetQuantity(key, 5))
	assert.Equal(t, 5, c.ItemCount())
	assert.False(t, c.SetQuantity(key, 5), "same quantity is not a change")
	assert.False(t, c.SetQuantity(domain.LineKey("missing|||"), 3))
}

func TestRemoveLine_Idempotent(t *testing.T) {
	c := New([]domain.LineItem{line("pizza", 10, 2), line("soda", 2, 1)})
	key := line("pizza", 10, 1).Key()

	assert.True(t, c.RemoveLine(key))
	after := c.Items()
	assert.False(t, c.RemoveLine(key))
	assert.Equal(t, after, c.Items())
}

func TestSubtotal_IncludesExtras(t *testing.T) {
	withExtra := line("burger", 5, 2)
	withExtra.Extras = []domain.Extra{{Name: "bacon", Price: 1}}
	c := New([]domain.LineItem{withExtra, line("fries", 3, 1)})

	assert.Equal(t, "15.00", c.Subtotal().StringFixed(2))
	assert.Equal(t, 3, c.ItemCount())
}

func TestSubtotal_RoundsOnceOnFinalSum(t *testing.T) {
	c := New([]domain.LineItem{line("a", 0.105, 1), line("b", 0.105, 1)})
	assert.Equal(t, "0.21", c.Subtotal().StringFixed(2))

	c = New([]domain.LineItem{line("a", 0.1, 3)})
	assert.Equal(t, "0.30", c.Subtotal().StringFixed(2))
}

func TestAdd_SeparatorsInNamesDoNotCollide(t *testing.T) {
	combined := line("salad", 5, 1)
	combined.Extras = []domain.Extra{{Name: "pepper,salt", Price: 3}}
	split := line("salad", 5, 1)
	split.Extras = []domain.Extra{{Name: "salt", Price: 0.2}, {Name: "pepper", Price: 0.2}}
	piped := line("salad", 5, 1)
	piped.Variant = "large|extra"

	assert.NotEqual(t, combined.Key(), split.Key())

	c := New(nil)
	c.Add(combined)
	c.Add(split)
	c.Add(piped)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, "18.40", c.Subtotal().StringFixed(2))
	assert.Equal(t, domain.LineKey("salad|||pepper,salt"), split.Key())
	assert.Equal(t, domain.LineKey(`salad|||pepper\,salt`), combined.Key())
}

func TestRemoveAllVariants(t *testing.T) {
	large := line("pizza", 12, 1)
	large.Variant = "large"
	noOlives := line("pizza", 10, 1)
	noOlives.RemovedIngredients = []string{"olives"}
	c := New([]domain.LineItem{line("pizza", 10, 1), large, noOlives, line("soda", 2, 1)})

	assert.True(t, c.RemoveAllVariants("pizza"))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "soda", items[0].MenuItemID)
	assert.False(t, c.RemoveAllVariants("pizza"))
}

func TestSetAllVariantsQuantity(t *testing.T) {
	large := line("pizza", 12, 1)
	large.Variant = "large"
	c := New([]domain.LineItem{line("pizza", 10, 1), large, line("soda", 2, 1)})

	assert.True(t, c.SetAllVariantsQuantity("pizza", 4))
	assert.Equal(t, 9, c.ItemCount())

	assert.True(t, c.SetAllVariantsQuantity("pizza", 0))
	assert.Equal(t, 1, c.Len())
}

func TestReplace_MergesIntoCollidingLine(t *testing.T) {
	large := line("pizza", 12, 2)
	large.Variant = "large"
	small := line("pizza", 10, 1)
	small.Variant = "small"
	c := New([]domain.LineItem{large, small, line("soda", 2, 1)})

	moved := small
	moved.Variant = "large"
	moved.UnitPrice = 12
	assert.True(t, c.Replace(small.Key(), moved))

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, large.Key(), items[0].Key())
	assert.Equal(t, 3, items[0].Quantity)
	for i := range items {
		for j := i + 1; j < len(items); j++ {
			assert.NotEqual(t, items[i].Key(), items[j].Key())
		}
	}
}

func TestReplace_OnMissingKeyStillAdds(t *testing.T) {
	c := New(nil)
	assert.True(t, c.Replace(domain.LineKey("gone|||"), line("pizza", 10, 1)))
	assert.Equal(t, 1, c.Len())
}

func TestNew_NormalizesStoredItems(t *testing.T) {
	c := New([]domain.LineItem{
		line("pizza", 10, 1),
		line("pizza", 10, 2),
		line("soda", 2, 0),
	})

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestItems_ReturnsCopies(t *testing.T) {
	it := line("pizza", 10, 1)
	it.Extras = []domain.Extra{{Name: "cheese", Price: 1}}
	c := New([]domain.LineItem{it})

	items := c.Items()
	items[0].Quantity = 99
	items[0].Extras[0].Price = 100

	fresh := c.Items()
	assert.Equal(t, 1, fresh[0].Quantity)
	assert.Equal(t, 1.0, fresh[0].Extras[0].Price)
}

func TestClear(t *testing.T) {
	c := New([]domain.LineItem{line("pizza", 10, 1)})
	assert.True(t, c.Clear())
	assert.True(t, c.Empty())
	assert.False(t, c.Clear())
	assert.Equal(t, "0.00", c.Subtotal().StringFixed(2))
}
