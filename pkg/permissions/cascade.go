package permissions

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownKey is returned when an operation names a key that is
	// not part of the catalog.
	ErrUnknownKey = errors.New("unknown permission key")
	// ErrUnknownCategory is returned when an operation names a category
	// id that is not part of the catalog.
	ErrUnknownCategory = errors.New("unknown category")
)

// Stats summarizes the enabled state of a group of permissions.
type Stats struct {
	Enabled int `json:"enabled"`
	Total   int `json:"total"`
}

// AllEnabled reports whether every counted permission is on.
func (s Stats) AllEnabled() bool {
	return s.Total > 0 && s.Enabled == s.Total
}

// Indeterminate reports the mixed state: some but not all enabled.
// UIs render this as a dash instead of a checkmark.
func (s Stats) Indeterminate() bool {
	return s.Enabled > 0 && s.Enabled < s.Total
}

// Editor applies cascade toggles to a draft permission set. It holds a
// private copy of the initial state, so the caller's map is never
// mutated and ChangedKeys can diff against where the draft started.
//
// An Editor is not safe for concurrent use. The intended pattern is one
// Editor per edit session, with Snapshot() handed to Store.Save when
// the session commits.
type Editor struct {
	catalog  *Catalog
	draft    Set
	original Set
}

// NewEditor starts an edit session over state. Keys not present in the
// catalog are dropped from the draft; the dropped keys are returned so
// the caller can log them.
func NewEditor(catalog *Catalog, state Set) (*Editor, []Key) {
	draft, dropped := catalog.Sanitize(state)
	return &Editor{
		catalog:  catalog,
		draft:    draft,
		original: draft.Clone(),
	}, dropped
}

// Get returns the draft value for a key. Keys missing from the draft
// read as disabled.
func (e *Editor) Get(k Key) bool {
	return e.draft.Enabled(k)
}

// Toggle flips a single key, cascading according to its position in
// the catalog: a parent item fans out to its children, a child
// recomputes its parent's aggregate, and a plain leaf just flips.
func (e *Editor) Toggle(k Key) error {
	if !e.catalog.Contains(k) {
		return fmt.Errorf("%w: %q", ErrUnknownKey, k)
	}
	if item, ok := e.catalog.Item(k); ok && item.HasChildren() {
		return e.ToggleParent(k)
	}
	if _, ok := e.catalog.ParentOf(k); ok {
		return e.ToggleChild(k)
	}
	e.draft[k] = !e.draft.Enabled(k)
	return nil
}

// ToggleParent switches a parent item and all of its children together.
// The target value is the inverse of "all children enabled": if every
// child is on the whole group turns off, otherwise the whole group
// turns on. There is no partial outcome.
func (e *Editor) ToggleParent(parent Key) error {
	item, ok := e.catalog.Item(parent)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, parent)
	}
	children := e.catalog.ChildKeys(parent)
	if len(children) == 0 {
		// leaf item, plain flip
		e.draft[parent] = !e.draft.Enabled(parent)
		return nil
	}

	target := !e.allEnabled(children)
	for _, child := range children {
		e.draft[child] = target
	}
	e.draft[item.Key] = target
	return nil
}

// ToggleChild flips one child and recomputes the parent key as the OR
// of all sibling values. The parent key therefore means "at least one
// child enabled", which is what route guards check for parent-level
// routes.
func (e *Editor) ToggleChild(child Key) error {
	parent, ok := e.catalog.ParentOf(child)
	if !ok {
		if !e.catalog.Contains(child) {
			return fmt.Errorf("%w: %q", ErrUnknownKey, child)
		}
		return fmt.Errorf("key %q has no parent", child)
	}

	e.draft[child] = !e.draft.Enabled(child)

	any := false
	for _, sibling := range e.catalog.ChildKeys(parent) {
		if e.draft.Enabled(sibling) {
			any = true
			break
		}
	}
	e.draft[parent] = any
	return nil
}

// ToggleCategory switches every key in a category at once, items and
// children alike. Like ToggleParent the outcome is all-or-nothing: the
// target is the inverse of "everything in the category enabled".
func (e *Editor) ToggleCategory(id string) error {
	keys := e.catalog.CategoryKeys(id)
	if len(keys) == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, id)
	}

	target := !e.allEnabled(keys)
	for _, k := range keys {
		e.draft[k] = target
	}
	return nil
}

func (e *Editor) allEnabled(keys []Key) bool {
	for _, k := range keys {
		if !e.draft.Enabled(k) {
			return false
		}
	}
	return true
}

// ItemStats counts the enabled state of one item. For a parent item the
// children are counted and the parent's own aggregate key is ignored;
// for a leaf item the item itself is the single counted permission.
func (e *Editor) ItemStats(k Key) (Stats, error) {
	item, ok := e.catalog.Item(k)
	if !ok {
		return Stats{}, fmt.Errorf("%w: %q", ErrUnknownKey, k)
	}

	if !item.HasChildren() {
		s := Stats{Total: 1}
		if e.draft.Enabled(k) {
			s.Enabled = 1
		}
		return s, nil
	}

	children := e.catalog.ChildKeys(k)
	s := Stats{Total: len(children)}
	for _, child := range children {
		if e.draft.Enabled(child) {
			s.Enabled++
		}
	}
	return s, nil
}

// CategoryStats counts the enabled state of a whole category. Parent
// aggregate keys are excluded from the count, matching ItemStats: each
// parent item contributes its children, each leaf item contributes
// itself.
func (e *Editor) CategoryStats(id string) (Stats, error) {
	cat, ok := e.catalog.Category(id)
	if !ok {
		return Stats{}, fmt.Errorf("%w: %q", ErrUnknownCategory, id)
	}

	var s Stats
	for _, item := range cat.Items {
		is, err := e.ItemStats(item.Key)
		if err != nil {
			return Stats{}, err
		}
		s.Enabled += is.Enabled
		s.Total += is.Total
	}
	return s, nil
}

// Snapshot returns a copy of the draft, detached from the editor.
func (e *Editor) Snapshot() Set {
	return e.draft.Clone()
}

// ChangedKeys lists the keys whose draft value differs from the state
// the editor started with, in catalog order.
func (e *Editor) ChangedKeys() []Key {
	var changed []Key
	for _, k := range e.catalog.Keys() {
		if e.draft.Enabled(k) != e.original.Enabled(k) {
			changed = append(changed, k)
		}
	}
	return changed
}

// Dirty reports whether any key differs from the initial state.
func (e *Editor) Dirty() bool {
	for _, k := range e.catalog.Keys() {
		if e.draft.Enabled(k) != e.original.Enabled(k) {
			return true
		}
	}
	return false
}

// Revert discards all draft changes, returning to the initial state.
func (e *Editor) Revert() {
	e.draft = e.original.Clone()
}
