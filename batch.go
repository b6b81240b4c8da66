package parse

import (
	"context"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
)

const (
	MethodCreate = "create"
	MethodUpdate = "update"
	MethodDelete = "delete"
)

// reservedPatchKeys are identity fields a patch may carry when it was
// built from a decoded record. They travel in Operation.ClassName and
// Operation.ObjectID, never through Set.
var reservedPatchKeys = []string{"objectId", "createdAt", "updatedAt"}

// Operation is one mutation in a batch: a method, the target identity
// and the field patch to apply.
type Operation struct {
	Method    string
	ClassName string
	ObjectID  string
	Patch     M
}

// OpResult is the outcome of one operation. Results always correlate
// positionally with the submitted operations.
type OpResult struct {
	ClassName string
	ObjectID  string
	Err       error
}

// BatchRunner executes an ordered sequence of mutations and returns one
// result per operation in input order. The wire format is the runner's
// business, not the core's.
type BatchRunner interface {
	Run(ctx context.Context, ops []Operation, transactional bool) ([]OpResult, error)
}

// SequentialRunner applies operations one by one through a Repository.
// With the transactional flag the first failure aborts the remainder,
// which is reported as ErrBatchAborted.
type SequentialRunner struct {
	repo Repository
}

func NewSequentialRunner(repo Repository) *SequentialRunner {
	return &SequentialRunner{repo: repo}
}

func (sr *SequentialRunner) Run(ctx context.Context, ops []Operation, transactional bool) ([]OpResult, error) {
	results := make([]OpResult, len(ops))

	for i := range ops {
		// the runner works on a detached copy so normalizing the patch
		// never reaches into the caller's maps
		var op Operation
		if err := copier.CopyWithOption(&op, &ops[i], copier.Option{DeepCopy: true}); err != nil {
			results[i] = OpResult{ClassName: ops[i].ClassName, ObjectID: ops[i].ObjectID, Err: err}
		} else {
			results[i] = sr.apply(ctx, op)
		}

		if results[i].Err != nil && transactional {
			for j := i + 1; j < len(ops); j++ {
				results[j] = OpResult{
					ClassName: ops[j].ClassName,
					ObjectID:  ops[j].ObjectID,
					Err:       ErrBatchAborted,
				}
			}

			return results, errors.Wrapf(results[i].Err, "batch aborted at operation %d", i)
		}
	}

	return results, nil
}

func (sr *SequentialRunner) apply(ctx context.Context, op Operation) OpResult {
	res := OpResult{ClassName: op.ClassName, ObjectID: op.ObjectID}

	switch op.Method {
	case MethodCreate, MethodUpdate:
		var rec *Record
		if op.Method == MethodCreate {
			rec = NewRecord(op.ClassName)
		} else {
			rec = NewPointerRecord(op.ClassName, op.ObjectID)
		}

		for _, name := range reservedPatchKeys {
			delete(op.Patch, name)
		}

		for name, v := range op.Patch {
			rec.Set(name, valueOf(v))
		}

		if err := Save(ctx, sr.repo, rec); err != nil {
			res.Err = err
			return res
		}

		res.ObjectID = rec.ID()
	case MethodDelete:
		d, ok := sr.repo.(Deleter)
		if !ok {
			res.Err = errors.Wrapf(ErrUnsupportedOperation, "%s", op.Method)
			return res
		}

		if err := d.Delete(ctx, op.ClassName, op.ObjectID); err != nil {
			res.Err = err
		}
	default:
		res.Err = errors.Wrapf(ErrUnsupportedOperation, "%s", op.Method)
	}

	return res
}

// valueOf lifts plain Go values from a patch map into the Value union.
func valueOf(v interface{}) Value {
	switch tv := v.(type) {
	case Value:
		return tv
	case *Record:
		return RecordValue(tv)
	case Pointer:
		return RefValue(tv)
	case *CollectionProxy:
		return CollectionValue(tv)
	case []Value:
		return ListOf(tv...)
	case []interface{}:
		items := make([]Value, len(tv))
		for i := range tv {
			items[i] = valueOf(tv[i])
		}
		return ListOf(items...)
	case nil:
		return Null()
	default:
		return Scalar(v)
	}
}
