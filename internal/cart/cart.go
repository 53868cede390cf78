package cart

import (
	"github.com/nachitzaid/food4u/internal/domain"
	"github.com/shopspring/decimal"
)

// Cart holds the line items of one session. Keys are unique: adding a line
// whose key already exists merges quantities instead of duplicating it.
// Cart is not safe for concurrent use; Session serializes access.
type Cart struct {
	items []domain.LineItem
}

// New builds a cart from stored items, merging duplicate keys and dropping
// lines with a non-positive quantity.
func New(items []domain.LineItem) *Cart {
	c := &Cart{}
	for _, it := range items {
		c.upsert(it)
	}
	return c
}

// Items returns a copy of the lines in display order.
func (c *Cart) Items() []domain.LineItem {
	out := make([]domain.LineItem, len(c.items))
	for i, it := range c.items {
		out[i] = it.Clone()
	}
	return out
}

func (c *Cart) Len() int { return len(c.items) }

func (c *Cart) Empty() bool { return len(c.items) == 0 }

// Add merges item into the line with the same key or appends it.
func (c *Cart) Add(item domain.LineItem) bool {
	return c.upsert(item)
}

// RemoveLine removes exactly the line with the given composite key.
func (c *Cart) RemoveLine(key domain.LineKey) bool {
	return c.removeWhere(func(it domain.LineItem) bool { return it.Key() == key })
}

// RemoveAllVariants removes every line of a dish, whatever its size or
// customizations.
func (c *Cart) RemoveAllVariants(menuItemID string) bool {
	return c.removeWhere(func(it domain.LineItem) bool { return it.MenuItemID == menuItemID })
}

// SetQuantity sets the quantity of one line. A quantity <= 0 removes it.
func (c *Cart) SetQuantity(key domain.LineKey, quantity int) bool {
	if quantity <= 0 {
		return c.RemoveLine(key)
	}
	return c.setWhere(quantity, func(it domain.LineItem) bool { return it.Key() == key })
}

// SetAllVariantsQuantity sets the quantity of every line of a dish.
// A quantity <= 0 removes all of them.
func (c *Cart) SetAllVariantsQuantity(menuItemID string, quantity int) bool {
	if quantity <= 0 {
		return c.RemoveAllVariants(menuItemID)
	}
	return c.setWhere(quantity, func(it domain.LineItem) bool { return it.MenuItemID == menuItemID })
}

// Replace removes the line at oldKey and upserts item against what is left.
// Used when a customization change moves a line to a new key.
func (c *Cart) Replace(oldKey domain.LineKey, item domain.LineItem) bool {
	removed := c.RemoveLine(oldKey)
	added := c.upsert(item)
	return removed || added
}

func (c *Cart) Clear() bool {
	if len(c.items) == 0 {
		return false
	}
	c.items = nil
	return true
}

// ItemCount is the sum of all quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Subtotal sums (unit price + extras) x quantity over all lines, rounding
// once on the final sum.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(LineTotal(it))
	}
	return total.Round(2)
}

// LineTotal is the unrounded price of one line.
func LineTotal(it domain.LineItem) decimal.Decimal {
	unit := decimal.NewFromFloat(it.UnitPrice)
	for _, e := range it.Extras {
		unit = unit.Add(decimal.NewFromFloat(e.Price))
	}
	return unit.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

func (c *Cart) upsert(item domain.LineItem) bool {
	if item.Quantity <= 0 {
		return false
	}
	key := item.Key()
	for i := range c.items {
		if c.items[i].Key() == key {
			c.items[i].Quantity += item.Quantity
			return true
		}
	}
	c.items = append(c.items, item.Clone())
	return true
}

func (c *Cart) removeWhere(match func(domain.LineItem) bool) bool {
	kept := c.items[:0]
	for _, it := range c.items {
		if !match(it) {
			kept = append(kept, it)
		}
	}
	changed := len(kept) != len(c.items)
	// zero the tail so dropped lines are not retained
	for i := len(kept); i < len(c.items); i++ {
		c.items[i] = domain.LineItem{}
	}
	c.items = kept
	return changed
}

func (c *Cart) setWhere(quantity int, match func(domain.LineItem) bool) bool {
	changed := false
	for i := range c.items {
		if match(c.items[i]) && c.items[i].Quantity != quantity {
			c.items[i].Quantity = quantity
			changed = true
		}
	}
	return changed
}
