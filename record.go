package parse

import (
	"context"
	"time"
)

// Record is the local representation of a remote-backed record: fetch
// state, a field map of Values and a change journal, composed into the
// unit application code manipulates.
//
// A Record is not internally synchronized. Callers sharing one instance
// across goroutines must serialize access themselves.
type Record struct {
	className string
	id        string
	createdAt *time.Time
	updatedAt *time.Time

	fields Fields

	// fetchedKeys is nil when every field is known, and a restricted
	// set of names when the record was only partially retrieved. A name
	// in fetchedKeys but missing from fields is confirmed absent, which
	// is not the same as unknown.
	fetchedKeys map[string]struct{}

	autofetch bool
	state     fetchState
	journal   *changeTracker

	schema *Schema
	repo   Repository
}

type Fields map[string]Value

// NewRecord creates a fresh local record with no remote counterpart yet.
// All of its (zero) fields are considered known.
func NewRecord(className string) *Record {
	return &Record{
		className: className,
		fields:    make(Fields),
		autofetch: true,
		journal:   newChangeTracker(),
	}
}

// NewPointerRecord creates a record in pointer state: believed to exist
// remotely, identifier only, no confirmed field content.
func NewPointerRecord(className, id string) *Record {
	r := NewRecord(className)
	r.id = id
	r.fetchedKeys = make(map[string]struct{})
	return r
}

// NewPartialRecord creates a record whose content is only guaranteed
// present for the given keys, as after a selective retrieval.
func NewPartialRecord(className, id string, fields Fields, keys []string) *Record {
	r := NewPointerRecord(className, id)
	for _, k := range keys {
		r.fetchedKeys[k] = struct{}{}
	}

	for name, v := range fields {
		r.fetchedKeys[name] = struct{}{}
		r.storeField(name, v)
	}

	return r
}

func (r *Record) ClassName() string { return r.className }

func (r *Record) ID() string { return r.id }

func (r *Record) CreatedAt() (time.Time, bool) {
	if r.createdAt == nil {
		return time.Time{}, false
	}
	return *r.createdAt, true
}

func (r *Record) UpdatedAt() (time.Time, bool) {
	if r.updatedAt == nil {
		return time.Time{}, false
	}
	return *r.updatedAt, true
}

func (r *Record) Schema() *Schema { return r.schema }

// BindRepository attaches the repository this record autofetches from,
// overriding the process-wide default.
func (r *Record) BindRepository(repo Repository) {
	r.repo = repo
}

func (r *Record) ToPointer() Pointer {
	return Pointer{ClassName: r.className, ObjectID: r.id}
}

// Get returns the value of a field, autofetching full content from the
// repository when the field is unknown, autofetch is enabled and the
// record is a pointer or was partially retrieved. A fetch failure is
// returned to the caller; local state and the journal are untouched.
func (r *Record) Get(ctx context.Context, name string) (Value, error) {
	if v, ok := r.fields[name]; ok {
		return v, nil
	}

	if r.knownAbsent(name) || !r.autofetchAllowed() {
		return Absent(), nil
	}

	if err := r.Fetch(ctx); err != nil {
		return Absent(), err
	}

	if v, ok := r.fields[name]; ok {
		return v, nil
	}

	return Absent(), nil
}

// Peek returns a field value without ever triggering a fetch.
func (r *Record) Peek(name string) (Value, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Set writes a field through the journal. On a partially-fetched record
// the name is added to fetchedKeys first, so assigning a brand-new field
// is always legal and ends up both known and dirty.
func (r *Record) Set(name string, v Value) {
	if r.fetchedKeys != nil {
		r.fetchedKeys[name] = struct{}{}
	}

	r.journal.willChange(name, r.fields[name], v)
	r.storeField(name, v)
}

// Unset removes a field, leaving it confirmed absent rather than unknown.
func (r *Record) Unset(name string) {
	if r.fetchedKeys != nil {
		r.fetchedKeys[name] = struct{}{}
	}

	current, ok := r.fields[name]
	if !ok {
		return
	}

	r.journal.willChange(name, current, Absent())
	r.dropField(name)
}

func (r *Record) storeField(name string, v Value) {
	if v.IsAbsent() {
		r.dropField(name)
		return
	}

	r.detachProxy(name)

	r.fields[name] = v
	if c, ok := v.Collection(); ok {
		c.bind(r, name)
	}
}

// dropField removes a field and detaches any proxy it held.
func (r *Record) dropField(name string) {
	r.detachProxy(name)
	delete(r.fields, name)
}

// detachProxy stops an outgoing collection from reporting structural
// changes to a field it no longer backs.
func (r *Record) detachProxy(name string) {
	if prev, ok := r.fields[name]; ok {
		if c, ok := prev.Collection(); ok {
			c.bind(nil, "")
		}
	}
}

// FieldNames lists the names currently present in the field map.
func (r *Record) FieldNames() []string {
	names := make([]string, 0, len(r.fields))
	for n := range r.fields {
		names = append(names, n)
	}

	return names
}

func (r *Record) Dirty() bool {
	return r.journal.dirty()
}

func (r *Record) FieldChanged(name string) bool {
	return r.journal.contains(name)
}

func (r *Record) Changes() map[string]Change {
	return r.journal.changes()
}

// Was returns the pre-change value of a field within the current dirty
// window, or its current value when the field is clean.
func (r *Record) Was(name string) Value {
	if old, ok := r.journal.old(name); ok {
		return old
	}

	return r.fields[name]
}

// AttributeUpdates is the minimal patch set for persistence: exactly the
// journaled fields, expressed as their new values.
func (r *Record) AttributeUpdates() map[string]Value {
	return r.journal.attributeUpdates()
}

// ClearChanges empties the journal; current values become the baseline.
// Structural dirty flags of held collections reset with it.
func (r *Record) ClearChanges() {
	r.journal.clear()
	for _, v := range r.fields {
		if c, ok := v.Collection(); ok {
			c.clearDirty()
		}
	}
}

// noteStructuralChange is the observer collections call just before a
// membership mutation. The pre-mutation snapshot pins the journal's old
// value; the live collection stays the new one.
func (r *Record) noteStructuralChange(name string, before []Value) {
	live, ok := r.fields[name]
	if !ok {
		return
	}

	r.journal.pin(name, ListOf(before...), live)
}

// absorb merges fields of a fully fetched server copy. Dirty fields keep
// their local values and their journal entries; everything else is
// populated from the server. Afterwards the record is fully known.
func (r *Record) absorb(server *Record) {
	for name, v := range server.fields {
		if r.journal.contains(name) {
			continue
		}
		r.storeField(name, v.Clone())
	}

	if r.id == "" {
		r.id = server.id
	}
	if server.createdAt != nil {
		t := *server.createdAt
		r.createdAt = &t
	}
	if server.updatedAt != nil {
		t := *server.updatedAt
		r.updatedAt = &t
	}

	r.fetchedKeys = nil
}

// applyPersisted merges a successful persist result and clears journal
// entries for exactly the fields that were part of the persisted patch.
func (r *Record) applyPersisted(server *Record, patch map[string]Value) {
	if server != nil {
		if r.id == "" {
			r.id = server.id
		}
		if server.createdAt != nil {
			t := *server.createdAt
			r.createdAt = &t
		}
		if server.updatedAt != nil {
			t := *server.updatedAt
			r.updatedAt = &t
		}
	}

	for name := range patch {
		r.journal.remove(name)
	}
}

func (r *Record) repository() Repository {
	if r.repo != nil {
		return r.repo
	}

	return CurrentConfig().Repository
}
