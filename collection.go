package parse

// CollectionProxy is an ordered container of Values with its own dirty
// flag for structural changes: add, remove, bulk replace. Mutating an
// element's own fields goes through that element's journal and never
// reaches the owner, which is the central contract of this type.
//
// While held by a Record field the proxy reports structural changes to
// the owning record's journal; element journals are never inspected or
// forwarded.
type CollectionProxy struct {
	items []Value
	dirty bool

	owner *Record
	field string

	// legacyPointers forces pointers-only serialization no matter what
	// options AsJSON receives. Kept for callers of the old proxy shape.
	legacyPointers bool
}

func NewCollection(items ...Value) *CollectionProxy {
	c := &CollectionProxy{items: make([]Value, len(items))}
	copy(c.items, items)
	return c
}

// NewPointerCollection is the legacy proxy variant: serialization always
// renders reference-capable elements as pointers.
func NewPointerCollection(items ...Value) *CollectionProxy {
	c := NewCollection(items...)
	c.legacyPointers = true
	return c
}

func (c *CollectionProxy) bind(owner *Record, field string) {
	c.owner = owner
	c.field = field
}

// touch runs before every structural mutation: it hands the owner a
// pre-mutation snapshot to pin the journal baseline, then flips the
// proxy's own dirty flag.
func (c *CollectionProxy) touch() {
	if c.owner != nil {
		before := make([]Value, len(c.items))
		for i := range c.items {
			before[i] = c.items[i].Clone()
		}
		c.owner.noteStructuralChange(c.field, before)
	}

	c.dirty = true
}

func (c *CollectionProxy) Add(v Value) {
	c.touch()
	c.items = append(c.items, v)
}

func (c *CollectionProxy) AddAll(vs []Value) {
	if len(vs) == 0 {
		return
	}

	c.touch()
	c.items = append(c.items, vs...)
}

// Remove deletes the first element matching v by identity equality and
// reports whether anything was removed.
func (c *CollectionProxy) Remove(v Value) bool {
	for i := range c.items {
		if identityEqual(c.items[i], v) {
			c.touch()
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}

	return false
}

// Replace swaps the membership wholesale.
func (c *CollectionProxy) Replace(vs []Value) {
	c.touch()
	c.items = make([]Value, len(vs))
	copy(c.items, vs)
}

func (c *CollectionProxy) Contains(v Value) bool {
	for i := range c.items {
		if identityEqual(c.items[i], v) {
			return true
		}
	}

	return false
}

func (c *CollectionProxy) Len() int {
	return len(c.items)
}

func (c *CollectionProxy) At(i int) Value {
	return c.items[i]
}

// Items returns the membership in order. The slice is a copy; elements
// keep reference semantics.
func (c *CollectionProxy) Items() []Value {
	out := make([]Value, len(c.items))
	copy(out, c.items)
	return out
}

// Dirty reports structural changes only. Element content changes belong
// to the elements' own records.
func (c *CollectionProxy) Dirty() bool {
	return c.dirty
}

func (c *CollectionProxy) clearDirty() {
	c.dirty = false
}
