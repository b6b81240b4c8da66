package parse

// Change is one journal entry: the value observed at the first mutation
// since the last ClearChanges, and the value the field holds now.
type Change struct {
	Old Value
	New Value
}

// changeTracker is the per-record journal of baseline -> current pairs.
// It belongs to exactly one owner; nothing outside that owner may clear
// or rewrite it as a side effect.
type changeTracker struct {
	journal map[string]Change
}

func newChangeTracker() *changeTracker {
	return &changeTracker{journal: make(map[string]Change)}
}

// willChange records an upcoming write. The first write since the last
// clear pins Old to the current value; later writes to the same field
// update New only. Writing a value that deep-equals the current one is
// a no-op.
func (ct *changeTracker) willChange(name string, current, next Value) {
	if entry, ok := ct.journal[name]; ok {
		entry.New = next
		ct.journal[name] = entry
		return
	}

	if deepEqual(current, next) {
		return
	}

	ct.journal[name] = Change{Old: current.Clone(), New: next}
}

// pin records a change unconditionally, without the deep-equal guard.
// Structural collection changes use it: at notification time the live
// value still equals the snapshot, the mutation lands right after.
func (ct *changeTracker) pin(name string, old, live Value) {
	if _, ok := ct.journal[name]; ok {
		return
	}

	ct.journal[name] = Change{Old: old, New: live}
}

func (ct *changeTracker) changes() map[string]Change {
	out := make(map[string]Change, len(ct.journal))
	for n, c := range ct.journal {
		out[n] = c
	}

	return out
}

func (ct *changeTracker) clear() {
	ct.journal = make(map[string]Change)
}

func (ct *changeTracker) remove(name string) {
	delete(ct.journal, name)
}

func (ct *changeTracker) dirty() bool {
	return len(ct.journal) > 0
}

func (ct *changeTracker) contains(name string) bool {
	_, ok := ct.journal[name]
	return ok
}

func (ct *changeTracker) old(name string) (Value, bool) {
	c, ok := ct.journal[name]
	if !ok {
		return Absent(), false
	}

	return c.Old, true
}

// attributeUpdates is the minimal patch for persistence: the new value
// of every journaled field, and nothing else.
func (ct *changeTracker) attributeUpdates() map[string]Value {
	out := make(map[string]Value, len(ct.journal))
	for n, c := range ct.journal {
		out[n] = c.New
	}

	return out
}
