package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Value_KindsAndAccessors(t *testing.T) {
	tt := []struct {
		name string
		v    Value
		kind Kind
	}{
		{"absent", Absent(), KindAbsent},
		{"null", Null(), KindScalar},
		{"scalar", Scalar("x"), KindScalar},
		{"pointer", Ref("Song", "s1"), KindPointer},
		{"record", RecordValue(NewRecord("Song")), KindRecord},
		{"list", ListOf(Scalar(1)), KindList},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.v.Kind())
		})
	}

	assert.True(t, Null().IsNull())
	assert.False(t, Scalar("x").IsNull())
	assert.True(t, RecordValue(nil).IsAbsent())
	assert.True(t, CollectionValue(nil).IsAbsent())

	p, ok := Ref("Song", "s1").Pointer()
	require.True(t, ok)
	assert.Equal(t, "Song", p.ClassName)

	_, ok = Scalar("x").Pointer()
	assert.False(t, ok)
}

func Test_Value_DeepEqual(t *testing.T) {
	now := time.Now()
	sameInstant := now.Add(0)

	recA := NewPointerRecord("Song", "s1")
	recB := NewPartialRecord("Song", "s1", Fields{"name": Scalar("x")}, nil)

	tt := []struct {
		name string
		a    Value
		b    Value
		want bool
	}{
		{"absent vs absent", Absent(), Absent(), true},
		{"absent vs null", Absent(), Null(), false},
		{"equal strings", Scalar("a"), Scalar("a"), true},
		{"different strings", Scalar("a"), Scalar("b"), false},
		{"int vs float", Scalar(1), Scalar(1.0), false},
		{"times by instant", Scalar(now), Scalar(sameInstant), true},
		{"equal pointers", Ref("S", "1"), Ref("S", "1"), true},
		{"different pointers", Ref("S", "1"), Ref("S", "2"), false},
		{"records by identity", RecordValue(recA), RecordValue(recB), true},
		{"equal lists", ListOf(Scalar(1), Scalar(2)), ListOf(Scalar(1), Scalar(2)), true},
		{"different length lists", ListOf(Scalar(1)), ListOf(Scalar(1), Scalar(2)), false},
		{"maps by content", Scalar(M{"a": 1}), Scalar(M{"a": 1}), true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, deepEqual(tc.a, tc.b))
		})
	}
}

func Test_Value_CloneDetachesListsAndComposites(t *testing.T) {
	t.Run("lists", func(t *testing.T) {
		original := ListOf(Scalar("a"))
		cp := original.Clone()

		origColl, _ := original.Collection()
		cpColl, _ := cp.Collection()

		origColl.Add(Scalar("b"))
		assert.Equal(t, 2, origColl.Len())
		assert.Equal(t, 1, cpColl.Len())
	})

	t.Run("maps", func(t *testing.T) {
		m := M{"nested": M{"k": "v"}}
		original := Scalar(m)
		cp := original.Clone()

		m["nested"].(M)["k"] = "changed"

		cpm := cp.Raw().(M)
		assert.Equal(t, "v", cpm["nested"].(M).String("k"))
	})

	t.Run("records stay shared", func(t *testing.T) {
		rec := NewPointerRecord("Song", "s1")
		cp := RecordValue(rec).Clone()

		got, ok := cp.Record()
		require.True(t, ok)
		assert.Equal(t, rec, got)
	})
}

func Test_Value_RefCapability(t *testing.T) {
	withID := NewPointerRecord("Song", "s1")
	withoutID := NewRecord("Song")

	_, ok := RecordValue(withID).ref()
	assert.True(t, ok)

	_, ok = RecordValue(withoutID).ref()
	assert.False(t, ok)

	_, ok = Scalar("Song$s1").ref()
	assert.False(t, ok)
}
