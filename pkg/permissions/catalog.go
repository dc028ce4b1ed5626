package permissions

import (
	"fmt"
	"sort"
)

// Key identifies a single permission flag. Keys are drawn from a closed
// set defined by the catalog; a key that is not in the catalog is a
// configuration error, not a runtime condition.
type Key string

// Set is the effective assignment of permission keys for one principal.
// A missing key is treated as false (default deny).
type Set map[Key]bool

// Enabled reports whether the key is explicitly set to true.
func (s Set) Enabled(k Key) bool {
	return s != nil && s[k]
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// CountEnabled returns the number of keys set to true.
func (s Set) CountEnabled() int {
	n := 0
	for _, v := range s {
		if v {
			n++
		}
	}
	return n
}

// SubItem is a leaf permission nested under a parent item. SidebarID is
// the navigation identifier governed by this key; it belongs to the nav
// resolver, not to the permission model itself.
type SubItem struct {
	Key       Key    `json:"key" yaml:"key"`
	Label     string `json:"label" yaml:"label"`
	SidebarID string `json:"sidebar_id" yaml:"sidebar_id"`
}

// Item is a catalog entry. An item with children is a parent: its own
// key is an aggregate flag derived from the children and is rewritten
// by the cascade engine on every child edit.
type Item struct {
	Key         Key       `json:"key" yaml:"key"`
	Label       string    `json:"label" yaml:"label"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Children    []SubItem `json:"children,omitempty" yaml:"children,omitempty"`
}

// HasChildren reports whether the item is a parent.
func (i Item) HasChildren() bool {
	return len(i.Children) > 0
}

// ChildKeys returns the keys of the item's children in catalog order.
func (i Item) ChildKeys() []Key {
	if len(i.Children) == 0 {
		return nil
	}
	keys := make([]Key, len(i.Children))
	for n, c := range i.Children {
		keys[n] = c.Key
	}
	return keys
}

// Category groups items for presentation. Categories do not nest.
type Category struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Icon  string `json:"icon,omitempty" yaml:"icon,omitempty"`
	Items []Item `json:"items" yaml:"items"`
}

// Catalog is the closed set of permission keys and their organization
// into categories, items and children. It is built once at process
// start and is immutable afterwards; every component (templates, route
// and nav tables, the cascade engine) is validated against it.
type Catalog struct {
	categories []Category

	keys     []Key
	items    map[Key]Item
	parents  map[Key]Key
	children map[Key][]Key

	categoryIndex map[string]int
	categoryKeys  map[string][]Key
}

// NewCatalog validates the category tree and builds the catalog. Every
// key must appear in exactly one category/item/child position; a
// duplicate or empty key fails construction.
func NewCatalog(categories []Category) (*Catalog, error) {
	c := &Catalog{
		categories:    categories,
		items:         make(map[Key]Item),
		parents:       make(map[Key]Key),
		children:      make(map[Key][]Key),
		categoryIndex: make(map[string]int),
		categoryKeys:  make(map[string][]Key),
	}

	seen := make(map[Key]string)
	register := func(k Key, where string) error {
		if k == "" {
			return fmt.Errorf("empty permission key in %s", where)
		}
		if prev, dup := seen[k]; dup {
			return fmt.Errorf("duplicate permission key %q (in %s and %s)", k, prev, where)
		}
		seen[k] = where
		c.keys = append(c.keys, k)
		return nil
	}

	for ci, cat := range categories {
		if cat.ID == "" {
			return nil, fmt.Errorf("category at index %d has no id", ci)
		}
		if _, dup := c.categoryIndex[cat.ID]; dup {
			return nil, fmt.Errorf("duplicate category id %q", cat.ID)
		}
		c.categoryIndex[cat.ID] = ci

		var catKeys []Key
		for _, item := range cat.Items {
			where := fmt.Sprintf("category %q", cat.ID)
			if err := register(item.Key, where); err != nil {
				return nil, err
			}
			c.items[item.Key] = item
			catKeys = append(catKeys, item.Key)

			for _, child := range item.Children {
				childWhere := fmt.Sprintf("item %q in category %q", item.Key, cat.ID)
				if err := register(child.Key, childWhere); err != nil {
					return nil, err
				}
				c.parents[child.Key] = item.Key
				c.children[item.Key] = append(c.children[item.Key], child.Key)
				catKeys = append(catKeys, child.Key)
			}
		}
		c.categoryKeys[cat.ID] = catKeys
	}

	if len(c.keys) == 0 {
		return nil, fmt.Errorf("catalog has no permission keys")
	}

	return c, nil
}

// MustCatalog builds a catalog from static definitions and panics on
// failure. Intended for compiled-in catalogs whose validity is covered
// by tests.
func MustCatalog(categories []Category) *Catalog {
	c, err := NewCatalog(categories)
	if err != nil {
		panic(fmt.Sprintf("permissions: invalid catalog: %v", err))
	}
	return c
}

// Categories returns the category tree. Callers must treat the returned
// slice as read-only.
func (c *Catalog) Categories() []Category {
	return c.categories
}

// Keys returns every permission key in catalog order. Callers must
// treat the returned slice as read-only.
func (c *Catalog) Keys() []Key {
	return c.keys
}

// Len returns the total number of permission keys.
func (c *Catalog) Len() int {
	return len(c.keys)
}

// Contains reports whether the key exists in the catalog.
func (c *Catalog) Contains(k Key) bool {
	if _, ok := c.items[k]; ok {
		return true
	}
	_, ok := c.parents[k]
	return ok
}

// Item returns the catalog item for a key. Child keys are not items;
// use ParentOf to find the item that owns them.
func (c *Catalog) Item(k Key) (Item, bool) {
	item, ok := c.items[k]
	return item, ok
}

// ChildKeys returns the child keys of a parent item in catalog order,
// or nil when the key has no children.
func (c *Catalog) ChildKeys(parent Key) []Key {
	return c.children[parent]
}

// ParentOf returns the parent item key for a child key.
func (c *Catalog) ParentOf(child Key) (Key, bool) {
	p, ok := c.parents[child]
	return p, ok
}

// Category returns a category by id.
func (c *Catalog) Category(id string) (Category, bool) {
	i, ok := c.categoryIndex[id]
	if !ok {
		return Category{}, false
	}
	return c.categories[i], true
}

// CategoryKeys returns every key in the category, item and child keys
// alike, in catalog order.
func (c *Catalog) CategoryKeys(id string) []Key {
	return c.categoryKeys[id]
}

// Sanitize copies the set, dropping any key not present in the catalog.
// It is the guard applied at deserialization boundaries so that unknown
// keys from storage or requests never reach the cascade engine. The
// dropped keys are returned sorted for logging.
func (c *Catalog) Sanitize(s Set) (Set, []Key) {
	out := make(Set, len(s))
	var dropped []Key
	for k, v := range s {
		if c.Contains(k) {
			out[k] = v
		} else {
			dropped = append(dropped, k)
		}
	}
	sort.Slice(dropped, func(i, j int) bool { return dropped[i] < dropped[j] })
	return out, dropped
}

// ValidateKeys returns an error naming the first key in ks that is not
// part of the catalog. Used to fail fast when templates and resolver
// tables are constructed.
func (c *Catalog) ValidateKeys(ks ...Key) error {
	for _, k := range ks {
		if !c.Contains(k) {
			return fmt.Errorf("%w: %q", ErrUnknownKey, k)
		}
	}
	return nil
}
