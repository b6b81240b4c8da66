package parse

import (
	"time"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot encoding keeps a compact local copy of a record for
// disconnected operation. Field content, identity and fetch coverage
// round-trip; the journal deliberately does not.

type snapshotValue struct {
	Kind   uint8           `msgpack:"k"`
	Scalar interface{}     `msgpack:"s,omitempty"`
	Class  string          `msgpack:"c,omitempty"`
	ID     string          `msgpack:"i,omitempty"`
	Rec    *snapshotRecord `msgpack:"r,omitempty"`
	List   []snapshotValue `msgpack:"l,omitempty"`
}

type snapshotRecord struct {
	ClassName string                   `msgpack:"class"`
	ObjectID  string                   `msgpack:"id,omitempty"`
	CreatedAt *time.Time               `msgpack:"ca,omitempty"`
	UpdatedAt *time.Time               `msgpack:"ua,omitempty"`
	Fields    map[string]snapshotValue `msgpack:"f,omitempty"`
	HasKeys   bool                     `msgpack:"hk,omitempty"`
	Keys      []string                 `msgpack:"keys,omitempty"`
}

func EncodeSnapshot(r *Record) ([]byte, error) {
	b, err := msgpack.Marshal(toSnapshotRecord(r))
	if err != nil {
		return nil, errors.Wrapf(err, "could not encode snapshot of %s %s", r.className, r.id)
	}

	return b, nil
}

func DecodeSnapshot(data []byte) (*Record, error) {
	var sr snapshotRecord
	if err := msgpack.Unmarshal(data, &sr); err != nil {
		return nil, errors.Wrap(err, "could not decode record snapshot")
	}

	return fromSnapshotRecord(&sr), nil
}

func toSnapshotRecord(r *Record) *snapshotRecord {
	sr := &snapshotRecord{
		ClassName: r.className,
		ObjectID:  r.id,
		CreatedAt: r.createdAt,
		UpdatedAt: r.updatedAt,
	}

	if len(r.fields) > 0 {
		sr.Fields = make(map[string]snapshotValue, len(r.fields))
		for name, v := range r.fields {
			sr.Fields[name] = toSnapshotValue(v)
		}
	}

	if r.fetchedKeys != nil {
		sr.HasKeys = true
		sr.Keys = make([]string, 0, len(r.fetchedKeys))
		for k := range r.fetchedKeys {
			sr.Keys = append(sr.Keys, k)
		}
	}

	return sr
}

func toSnapshotValue(v Value) snapshotValue {
	sv := snapshotValue{Kind: uint8(v.kind)}

	switch v.kind {
	case KindScalar:
		sv.Scalar = v.scalar
	case KindPointer:
		sv.Class, sv.ID = v.ptr.ClassName, v.ptr.ObjectID
	case KindRecord:
		sv.Rec = toSnapshotRecord(v.rec)
	case KindList:
		items := v.coll.Items()
		sv.List = make([]snapshotValue, len(items))
		for i := range items {
			sv.List[i] = toSnapshotValue(items[i])
		}
	}

	return sv
}

func fromSnapshotRecord(sr *snapshotRecord) *Record {
	r := NewRecord(sr.ClassName)
	r.id = sr.ObjectID
	r.createdAt = sr.CreatedAt
	r.updatedAt = sr.UpdatedAt
	if s, ok := LookupClass(sr.ClassName); ok {
		r.schema = s
	}

	if sr.HasKeys {
		r.fetchedKeys = make(map[string]struct{}, len(sr.Keys))
		for _, k := range sr.Keys {
			r.fetchedKeys[k] = struct{}{}
		}
	}

	for name, sv := range sr.Fields {
		r.storeField(name, fromSnapshotValue(sv))
	}

	return r
}

func fromSnapshotValue(sv snapshotValue) Value {
	switch Kind(sv.Kind) {
	case KindScalar:
		return Scalar(normalizeScalar(sv.Scalar))
	case KindPointer:
		return Ref(sv.Class, sv.ID)
	case KindRecord:
		return RecordValue(fromSnapshotRecord(sv.Rec))
	case KindList:
		items := make([]Value, len(sv.List))
		for i := range sv.List {
			items[i] = fromSnapshotValue(sv.List[i])
		}
		return ListOf(items...)
	default:
		return Absent()
	}
}

// normalizeScalar maps msgpack decode artifacts back to the forms the
// JSON path produces, so a snapshot round-trip stays deep-equal.
func normalizeScalar(v interface{}) interface{} {
	switch tv := v.(type) {
	case int8:
		return int(tv)
	case int16:
		return int(tv)
	case int32:
		return int(tv)
	case int64:
		return int(tv)
	case uint8:
		return int(tv)
	case uint16:
		return int(tv)
	case uint32:
		return int(tv)
	case uint64:
		return int(tv)
	case float32:
		return float64(tv)
	case map[string]interface{}:
		cp := make(M, len(tv))
		for k, el := range tv {
			cp[k] = normalizeScalar(el)
		}
		return cp
	case []interface{}:
		for i := range tv {
			tv[i] = normalizeScalar(tv[i])
		}
		return tv
	default:
		return v
	}
}
