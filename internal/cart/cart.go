// Package cart is the in-memory cart model: ordered lines priced from
// snapshots taken when each line was added.
package cart

import (
	"fmt"
	"strconv"
	"strings"

	"tux-order-services/internal/menu"
	"tux-order-services/internal/money"
)

const (
	MinQuantity = 1
	MaxQuantity = 99
)

type Line struct {
	ItemID    string       `json:"itemId"`
	Name      string       `json:"name"`
	UnitPrice float64      `json:"price"`
	Quantity  int          `json:"quantity"`
	Extras    []menu.Extra `json:"extras"`
}

func (l Line) ExtrasTotal() float64 {
	sum := 0.0
	for _, e := range l.Extras {
		sum += e.Price
	}
	return sum
}

// Total is (unit price + extras) x quantity, never negative.
func (l Line) Total() float64 {
	total := money.Round2((l.UnitPrice + l.ExtrasTotal()) * float64(l.Quantity))
	if total < 0 {
		return 0
	}
	return total
}

func (l Line) clone() Line {
	out := l
	out.Extras = append([]menu.Extra(nil), l.Extras...)
	return out
}

// Cart is not safe for concurrent use; owners serialize access.
type Cart struct {
	catalog *menu.Catalog
	lines   []Line
}

func New(catalog *menu.Catalog) *Cart {
	if catalog == nil {
		catalog = menu.Default()
	}
	return &Cart{catalog: catalog}
}

func (c *Cart) Catalog() *menu.Catalog {
	return c.catalog
}

// AddItem appends a new line for itemID. Unknown items are ignored; unknown
// or repeated extra ids are dropped. Lines are never merged.
func (c *Cart) AddItem(itemID string, quantity int, extraIDs []string) (Line, bool) {
	item, ok := c.catalog.Item(strings.TrimSpace(itemID))
	if !ok {
		return Line{}, false
	}

	wanted := make(map[string]struct{}, len(extraIDs))
	for _, id := range extraIDs {
		wanted[strings.TrimSpace(id)] = struct{}{}
	}
	extras := make([]menu.Extra, 0, len(wanted))
	for _, e := range item.Extras {
		if _, ok := wanted[e.ID]; ok {
			extras = append(extras, e)
		}
	}

	line := Line{
		ItemID:    item.ID,
		Name:      item.Name,
		UnitPrice: money.NormalizeCurrency(item.BasePrice),
		Quantity:  ClampQuantity(quantity),
		Extras:    extras,
	}
	c.lines = append(c.lines, line)
	return line.clone(), true
}

func (c *Cart) RemoveLine(index int) bool {
	if !c.inRange(index) {
		return false
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	return true
}

// SetQuantity applies a user-entered quantity. Non-numeric input or values
// below 1 leave the line untouched; the returned quantity is what the line
// now holds, so callers can restore the displayed value.
func (c *Cart) SetQuantity(index int, raw string) (int, bool) {
	if !c.inRange(index) {
		return 0, false
	}
	current := c.lines[index].Quantity
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < MinQuantity {
		return current, false
	}
	c.lines[index].Quantity = ClampQuantity(n)
	return c.lines[index].Quantity, true
}

func (c *Cart) SetQuantityInt(index int, n int) bool {
	if !c.inRange(index) {
		return false
	}
	c.lines[index].Quantity = ClampQuantity(n)
	return true
}

func (c *Cart) Increment(index int) bool {
	if !c.inRange(index) {
		return false
	}
	c.lines[index].Quantity = ClampQuantity(c.lines[index].Quantity + 1)
	return true
}

func (c *Cart) Decrement(index int) bool {
	if !c.inRange(index) {
		return false
	}
	c.lines[index].Quantity = ClampQuantity(c.lines[index].Quantity - 1)
	return true
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Replace swaps in lines wholesale, clamping quantities and dropping lines
// without an item id.
func (c *Cart) Replace(lines []Line) {
	next := make([]Line, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l.ItemID) == "" {
			continue
		}
		l = l.clone()
		l.Quantity = ClampQuantity(l.Quantity)
		l.UnitPrice = money.NormalizeCurrency(l.UnitPrice)
		next = append(next, l)
	}
	c.lines = next
}

func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	for i, l := range c.lines {
		out[i] = l.clone()
	}
	return out
}

func (c *Cart) Line(index int) (Line, bool) {
	if !c.inRange(index) {
		return Line{}, false
	}
	return c.lines[index].clone(), true
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// ItemCount is the sum of quantities, used for the cart badge.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Subtotal() float64 {
	sum := 0.0
	for _, l := range c.lines {
		sum += l.Total()
	}
	return money.NormalizeCurrency(sum)
}

// Summary renders one "2× Name + Extra, Extra" row per line.
func (c *Cart) Summary() string {
	rows := make([]string, 0, len(c.lines))
	for _, l := range c.lines {
		row := fmt.Sprintf("%d× %s", l.Quantity, l.Name)
		if len(l.Extras) > 0 {
			names := make([]string, 0, len(l.Extras))
			for _, e := range l.Extras {
				names = append(names, e.Name)
			}
			row += " + " + strings.Join(names, ", ")
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

func (c *Cart) Clone() *Cart {
	return &Cart{catalog: c.catalog, lines: c.Lines()}
}

func (c *Cart) inRange(index int) bool {
	return index >= 0 && index < len(c.lines)
}

func ClampQuantity(n int) int {
	if n < MinQuantity {
		return MinQuantity
	}
	if n > MaxQuantity {
		return MaxQuantity
	}
	return n
}
