package parse

import (
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	typeKey     = "__type"
	pointerType = "Pointer"
	dateType    = "Date"
	objectType  = "Object"

	iso8601 = "2006-01-02T15:04:05.000Z07:00"
)

// asJSON renders the 3-key reference object a pointer travels as.
func (p Pointer) asJSON() M {
	return M{
		typeKey:     pointerType,
		"className": p.ClassName,
		"objectId":  p.ObjectID,
	}
}

func dateJSON(t time.Time) M {
	return M{
		typeKey: dateType,
		"iso":   t.UTC().Format(iso8601),
	}
}

// AsJSON renders a value for the wire. Scalars pass through (timestamps
// become Date objects), pointers become reference objects, records embed
// their full representation, lists delegate to their proxy.
func (v Value) AsJSON(opts M) interface{} {
	switch v.kind {
	case KindAbsent:
		return nil
	case KindScalar:
		if t, ok := v.scalar.(time.Time); ok {
			return dateJSON(t)
		}
		return v.scalar
	case KindPointer:
		return v.ptr.asJSON()
	case KindRecord:
		out := v.rec.AsJSON(opts)
		out[typeKey] = objectType
		return out
	case KindList:
		return v.coll.AsJSON(opts)
	default:
		return nil
	}
}

// AsJSON renders the membership in order. By default every element is
// serialized through its full representation. Under pointers_only (which
// the legacy proxy variant always forces) reference-capable elements
// render as 3-key reference objects and the rest pass through unchanged.
// The option key may be spelled "pointers_only" or ":pointers_only".
func (c *CollectionProxy) AsJSON(opts M) []interface{} {
	pointersOnly := c.legacyPointers || opts.flag("pointers_only")

	out := make([]interface{}, 0, len(c.items))
	for _, v := range c.items {
		if pointersOnly {
			if ref, ok := v.ref(); ok {
				out = append(out, ref.asJSON())
				continue
			}
		}

		out = append(out, v.AsJSON(opts))
	}

	return out
}

// AsJSON renders the record's full representation: metadata when present,
// then every locally known field.
func (r *Record) AsJSON(opts M) M {
	out := M{}
	if r.className != "" {
		out["className"] = r.className
	}
	if r.id != "" {
		out["objectId"] = r.id
	}
	if r.createdAt != nil {
		out["createdAt"] = dateJSON(*r.createdAt)
	}
	if r.updatedAt != nil {
		out["updatedAt"] = dateJSON(*r.updatedAt)
	}

	for name, v := range r.fields {
		out[name] = v.AsJSON(opts)
	}

	return out
}

// DecodeRecordJSON builds a fully known, clean record from a JSON
// payload. A className in the payload wins over the argument. Pointer
// and Date objects are recognized; nothing else is reinterpreted.
func DecodeRecordJSON(className string, data []byte) (*Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.Wrap(ErrInvalidJSON, "record payload")
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errors.Wrap(ErrInvalidJSON, "record payload is not an object")
	}

	return recordFromResult(className, root), nil
}

func recordFromResult(className string, res gjson.Result) *Record {
	if cn := res.Get("className"); cn.Exists() {
		className = cn.String()
	}

	r := NewRecord(className)
	if s, ok := LookupClass(className); ok {
		r.schema = s
	}

	res.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case typeKey, "className":
		case "objectId":
			r.id = value.String()
		case "createdAt":
			if t, ok := timeFromResult(value); ok {
				r.createdAt = &t
			}
		case "updatedAt":
			if t, ok := timeFromResult(value); ok {
				r.updatedAt = &t
			}
		default:
			r.storeField(key.String(), valueFromResult(value))
		}

		return true
	})

	return r
}

func timeFromResult(res gjson.Result) (time.Time, bool) {
	s := res.String()
	if res.IsObject() {
		s = res.Get("iso").String()
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

func valueFromResult(res gjson.Result) Value {
	switch {
	case res.IsArray():
		arr := res.Array()
		items := make([]Value, 0, len(arr))
		for _, el := range arr {
			items = append(items, valueFromResult(el))
		}
		return ListOf(items...)
	case res.IsObject():
		switch res.Get(typeKey).String() {
		case pointerType:
			return Ref(res.Get("className").String(), res.Get("objectId").String())
		case dateType:
			if t, ok := timeFromResult(res); ok {
				return Scalar(t)
			}
			return Null()
		case objectType:
			return RecordValue(recordFromResult(res.Get("className").String(), res))
		default:
			m, _ := res.Value().(map[string]interface{})
			return Scalar(M(m))
		}
	case res.Type == gjson.Null:
		return Null()
	default:
		return Scalar(res.Value())
	}
}
