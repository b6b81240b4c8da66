package parse

import (
	"reflect"
	"strings"
	"time"
	"unicode"
)

// Kind enumerates the closed set of shapes a field value can take.
// Serialization and equality switch over it exhaustively instead of
// type-checking at runtime.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindScalar
	KindPointer
	KindRecord
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindScalar:
		return "scalar"
	case KindPointer:
		return "pointer"
	case KindRecord:
		return "record"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Pointer is a reference to a remote record: class name plus identifier,
// no field content.
type Pointer struct {
	ClassName string
	ObjectID  string
}

func (p Pointer) Zero() bool {
	return p.ClassName == "" && p.ObjectID == ""
}

// ParseRef parses the legacy "ClassName$objectId" string encoding into a
// Pointer. The conversion is explicit and opt-in: plain strings in result
// sets are never reinterpreted automatically.
func ParseRef(s string) (Pointer, bool) {
	idx := strings.IndexByte(s, '$')
	if idx <= 0 || idx == len(s)-1 {
		return Pointer{}, false
	}

	class := s[:idx]
	for i, r := range class {
		if i == 0 && !unicode.IsLetter(r) && r != '_' {
			return Pointer{}, false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return Pointer{}, false
		}
	}

	return Pointer{ClassName: class, ObjectID: s[idx+1:]}, true
}

func (p Pointer) Ref() string {
	return p.ClassName + "$" + p.ObjectID
}

// Value is the tagged union a field holds: a scalar, a reference to a
// record, an embedded full record, or an ordered collection of Values.
// The zero Value is "absent".
type Value struct {
	kind   Kind
	scalar interface{}
	ptr    Pointer
	rec    *Record
	coll   *CollectionProxy
}

func Absent() Value {
	return Value{}
}

// Null is an explicit null scalar, distinct from an absent value.
func Null() Value {
	return Value{kind: KindScalar}
}

func Scalar(v interface{}) Value {
	return Value{kind: KindScalar, scalar: v}
}

func Ref(className, objectID string) Value {
	return Value{kind: KindPointer, ptr: Pointer{ClassName: className, ObjectID: objectID}}
}

func RefValue(p Pointer) Value {
	return Value{kind: KindPointer, ptr: p}
}

func RecordValue(r *Record) Value {
	if r == nil {
		return Absent()
	}
	return Value{kind: KindRecord, rec: r}
}

func ListOf(items ...Value) Value {
	return Value{kind: KindList, coll: NewCollection(items...)}
}

func CollectionValue(c *CollectionProxy) Value {
	if c == nil {
		return Absent()
	}
	return Value{kind: KindList, coll: c}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

func (v Value) IsNull() bool { return v.kind == KindScalar && v.scalar == nil }

func (v Value) Raw() interface{} {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

func (v Value) Pointer() (Pointer, bool) {
	if v.kind != KindPointer {
		return Pointer{}, false
	}
	return v.ptr, true
}

func (v Value) Record() (*Record, bool) {
	if v.kind != KindRecord {
		return nil, false
	}
	return v.rec, true
}

func (v Value) Collection() (*CollectionProxy, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.coll, true
}

// ref reports the remote reference a value can stand for, if any.
// Pointers carry one directly; records do once they have an identifier.
func (v Value) ref() (Pointer, bool) {
	switch v.kind {
	case KindPointer:
		return v.ptr, true
	case KindRecord:
		if v.rec.id != "" {
			return Pointer{ClassName: v.rec.className, ObjectID: v.rec.id}, true
		}
	}

	return Pointer{}, false
}

// deepEqual compares content for scalars and lists, and identity for
// pointers and records. Used to decide whether a write is a real change.
func deepEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}

	switch a.kind {
	case KindAbsent:
		return true
	case KindScalar:
		if at, ok := a.scalar.(time.Time); ok {
			bt, ok := b.scalar.(time.Time)
			return ok && at.Equal(bt)
		}
		return reflect.DeepEqual(a.scalar, b.scalar)
	case KindPointer:
		return a.ptr == b.ptr
	case KindRecord:
		return Equal(a.rec, b.rec)
	case KindList:
		as, bs := a.coll.Items(), b.coll.Items()
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !deepEqual(as[i], bs[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// identityEqual is the comparison CollectionProxy.Remove and Uniq use:
// reference-capable values match by (class, id), records without an
// identifier only match themselves, scalars match by content.
func identityEqual(a, b Value) bool {
	ar, aok := a.ref()
	br, bok := b.ref()
	if aok && bok {
		return ar == br
	}

	if a.kind == KindRecord && b.kind == KindRecord {
		return a.rec == b.rec
	}

	return deepEqual(a, b)
}

// Clone snapshots a value for journal baselines. Lists are copied into a
// detached collection, composite scalars are copied element by element.
// Records and pointers keep reference semantics.
func (v Value) Clone() Value {
	switch v.kind {
	case KindScalar:
		return Value{kind: KindScalar, scalar: cloneScalar(v.scalar)}
	case KindList:
		items := v.coll.Items()
		cp := make([]Value, len(items))
		for i := range items {
			cp[i] = items[i].Clone()
		}
		return Value{kind: KindList, coll: NewCollection(cp...)}
	default:
		return v
	}
}

func cloneScalar(v interface{}) interface{} {
	switch tv := v.(type) {
	case M:
		cp := make(M, len(tv))
		for k, el := range tv {
			cp[k] = cloneScalar(el)
		}
		return cp
	case map[string]interface{}:
		cp := make(map[string]interface{}, len(tv))
		for k, el := range tv {
			cp[k] = cloneScalar(el)
		}
		return cp
	case []interface{}:
		cp := make([]interface{}, len(tv))
		for i, el := range tv {
			cp[i] = cloneScalar(el)
		}
		return cp
	default:
		return v
	}
}
