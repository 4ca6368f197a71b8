// Package corpus selects and bounds the normalized items fed to generation.
package corpus

import (
	"errors"
	"sort"
	"unicode/utf8"

	"reddit-persona/normalize"
)

// ErrEmpty is returned when there is no source material to build from.
var ErrEmpty = errors.New("empty corpus: no usable items")

// Order controls how items are arranged before the budget is applied.
type Order string

const (
	// OrderRecency keeps the most recent items first (default).
	OrderRecency Order = "recency"
	// OrderScore keeps the highest-scoring items first.
	OrderScore Order = "score"
)

// Config bounds the corpus.
type Config struct {
	MaxItems int
	MaxChars int
	Order    Order
}

// Corpus is a bounded, ordered selection of normalized items.
type Corpus struct {
	Items     []normalize.Item `json:"items"`
	Truncated bool             `json:"truncated"`

	ids map[string]bool
}

// Build applies the ordering and budget policy. The last included item is
// truncated rather than dropped when the character budget runs out, so its
// id stays citable.
func Build(items []normalize.Item, cfg Config) (*Corpus, error) {
	if len(items) == 0 {
		return nil, ErrEmpty
	}

	ordered := make([]normalize.Item, len(items))
	copy(ordered, items)
	sortItems(ordered, cfg.Order)

	if cfg.MaxItems > 0 && len(ordered) > cfg.MaxItems {
		ordered = ordered[:cfg.MaxItems]
	}

	c := &Corpus{ids: make(map[string]bool)}
	chars := 0
	for _, item := range ordered {
		if cfg.MaxChars > 0 && chars+len(item.Content) > cfg.MaxChars {
			if remaining := cfg.MaxChars - chars; remaining > 0 {
				item.Content = truncateToRune(item.Content, remaining)
				if item.Content != "" {
					c.Items = append(c.Items, item)
					c.ids[item.ID] = true
				}
			}
			c.Truncated = true
			break
		}
		chars += len(item.Content)
		c.Items = append(c.Items, item)
		c.ids[item.ID] = true
	}

	if len(c.Items) == 0 {
		return nil, ErrEmpty
	}
	return c, nil
}

// truncateToRune cuts s to at most max bytes without splitting a rune.
func truncateToRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = s[:max]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

func sortItems(items []normalize.Item, order Order) {
	switch order {
	case OrderScore:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Score > items[j].Score
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedUTC > items[j].CreatedUTC
		})
	}
}

// Has reports whether an item id is part of the corpus.
func (c *Corpus) Has(id string) bool {
	if c.ids == nil {
		c.ids = make(map[string]bool, len(c.Items))
		for _, item := range c.Items {
			c.ids[item.ID] = true
		}
	}
	return c.ids[id]
}

// IDs returns the item ids in corpus order.
func (c *Corpus) IDs() []string {
	ids := make([]string, len(c.Items))
	for i, item := range c.Items {
		ids[i] = item.ID
	}
	return ids
}

// Chars is the total content size in bytes.
func (c *Corpus) Chars() int {
	total := 0
	for _, item := range c.Items {
		total += len(item.Content)
	}
	return total
}

// Lookup returns the item with the given id, if present.
func (c *Corpus) Lookup(id string) (normalize.Item, bool) {
	for _, item := range c.Items {
		if item.ID == id {
			return item, true
		}
	}
	return normalize.Item{}, false
}
