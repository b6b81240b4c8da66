package parse

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/tidwall/btree"
)

// FieldDef declares one field of a class: its name, the value kind it
// must hold (KindAbsent means any) and whether persistence requires it.
type FieldDef struct {
	Name     string
	Kind     Kind
	Required bool
}

// FieldOps is the static operation table generated once per declared
// field at schema definition time. It replaces catch-all dynamic
// dispatch for the accessor/mutator/changed/was call surface.
type FieldOps struct {
	Get     func(ctx context.Context, r *Record) (Value, error)
	Set     func(r *Record, v Value)
	Changed func(r *Record) bool
	Was     func(r *Record) Value
}

// Schema is the static field table of one record class.
type Schema struct {
	className string
	defs      []FieldDef
	byName    map[string]FieldDef
	ops       map[string]FieldOps
}

func NewSchema(className string, defs ...FieldDef) *Schema {
	s := &Schema{
		className: className,
		defs:      defs,
		byName:    make(map[string]FieldDef, len(defs)),
		ops:       make(map[string]FieldOps, len(defs)),
	}

	for _, def := range defs {
		name := def.Name
		s.byName[name] = def
		s.ops[name] = FieldOps{
			Get: func(ctx context.Context, r *Record) (Value, error) {
				return r.Get(ctx, name)
			},
			Set: func(r *Record, v Value) {
				r.Set(name, v)
			},
			Changed: func(r *Record) bool {
				return r.FieldChanged(name)
			},
			Was: func(r *Record) Value {
				return r.Was(name)
			},
		}
	}

	return s
}

func (s *Schema) ClassName() string { return s.className }

func (s *Schema) Fields() []FieldDef {
	out := make([]FieldDef, len(s.defs))
	copy(out, s.defs)
	return out
}

func (s *Schema) Field(name string) (FieldDef, bool) {
	def, ok := s.byName[name]
	return def, ok
}

func (s *Schema) Ops(name string) (FieldOps, bool) {
	ops, ok := s.ops[name]
	return ops, ok
}

// New creates a fresh record of this class.
func (s *Schema) New() *Record {
	r := NewRecord(s.className)
	r.schema = s
	return r
}

// Pointer creates a pointer-state record of this class.
func (s *Schema) Pointer(id string) *Record {
	r := NewPointerRecord(s.className, id)
	r.schema = s
	return r
}

// Validate checks the record against the declared field table. Failures
// collect into a ValidationError; the journal is not touched and the
// record stays dirty with the attempted values, so the caller can
// correct and retry.
func (s *Schema) Validate(r *Record) error {
	failures := make(map[string]string)

	for _, def := range s.defs {
		v, present := r.Peek(def.Name)

		if def.Required && (!present || v.IsNull()) {
			failures[def.Name] = "is required"
			continue
		}

		if present && def.Kind != KindAbsent && !v.IsNull() && v.Kind() != def.Kind {
			failures[def.Name] = "has wrong kind " + v.Kind().String() + ", want " + def.Kind.String()
		}
	}

	if len(failures) == 0 {
		return nil
	}

	return &ValidationError{ClassName: s.className, Failures: failures}
}

func byClassName(a, b interface{}) bool {
	s1, s2 := a.(*Schema), b.(*Schema)
	return s1.className < s2.className
}

var classRegistry = struct {
	mu   sync.RWMutex
	tree *btree.BTree
}{tree: btree.NewNonConcurrent(byClassName)}

// RegisterClass adds a schema to the process-wide class registry.
func RegisterClass(s *Schema) error {
	classRegistry.mu.Lock()
	defer classRegistry.mu.Unlock()

	if classRegistry.tree.Get(s) != nil {
		return errors.Wrapf(ErrClassAlreadyRegistered, "%s", s.className)
	}

	classRegistry.tree.Set(s)
	return nil
}

func LookupClass(className string) (*Schema, bool) {
	classRegistry.mu.RLock()
	defer classRegistry.mu.RUnlock()

	item := classRegistry.tree.Get(&Schema{className: className})
	if item == nil {
		return nil, false
	}

	return item.(*Schema), true
}

func UnregisterClass(className string) {
	classRegistry.mu.Lock()
	defer classRegistry.mu.Unlock()

	classRegistry.tree.Delete(&Schema{className: className})
}

// Classes lists registered class names in ascending order.
func Classes() []string {
	classRegistry.mu.RLock()
	defer classRegistry.mu.RUnlock()

	names := make([]string, 0, classRegistry.tree.Len())
	classRegistry.tree.Ascend(nil, func(item interface{}) bool {
		names = append(names, item.(*Schema).className)
		return true
	})

	return names
}
