// Package menu holds the fixed TUX menu and the delivery zones.
package menu

import "strings"

type Extra struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type Item struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	BasePrice   float64 `json:"price"`
	Category    string  `json:"category"`
	Extras      []Extra `json:"extras"`
}

// Extra looks up one of the extras offered for this item.
func (i Item) Extra(id string) (Extra, bool) {
	for _, e := range i.Extras {
		if e.ID == id {
			return e, true
		}
	}
	return Extra{}, false
}

type Category struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	items []Item
	index map[string]int
}

func NewCatalog(items []Item) *Catalog {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for _, item := range items {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		if _, dup := c.index[id]; dup {
			continue
		}
		item.ID = id
		c.index[id] = len(c.items)
		c.items = append(c.items, item)
	}
	return c
}

func (c *Catalog) Item(id string) (Item, bool) {
	idx, ok := c.index[id]
	if !ok {
		return Item{}, false
	}
	return c.items[idx], true
}

func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Categories groups items in first-seen category order.
func (c *Catalog) Categories() []Category {
	var out []Category
	pos := map[string]int{}
	for _, item := range c.items {
		idx, ok := pos[item.Category]
		if !ok {
			idx = len(out)
			pos[item.Category] = idx
			out = append(out, Category{Name: item.Category})
		}
		out[idx].Items = append(out[idx].Items, item)
	}
	return out
}
