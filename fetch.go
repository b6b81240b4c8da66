package parse

import (
	"context"

	"github.com/pkg/errors"
)

type fetchState uint8

const (
	stateUnfetched fetchState = iota
	stateFetching
	stateFetched
)

// Pointer reports whether the record is in pointer state: identifier
// present, both timestamps absent.
func (r *Record) Pointer() bool {
	return r.id != "" && r.createdAt == nil && r.updatedAt == nil
}

// Full reports whether the record carries confirmed full content, which
// both timestamps being present implies regardless of fetchedKeys.
func (r *Record) Full() bool {
	return r.createdAt != nil && r.updatedAt != nil
}

// FieldWasFetched reports whether a field is guaranteed present-or-absent
// locally: always true on a fully known record, otherwise only for names
// the partial retrieval covered (or later writes added).
func (r *Record) FieldWasFetched(name string) bool {
	if r.fetchedKeys == nil {
		return true
	}

	_, ok := r.fetchedKeys[name]
	return ok
}

// knownAbsent distinguishes "confirmed absent" from "unknown" for a name
// missing from the field map.
func (r *Record) knownAbsent(name string) bool {
	return r.FieldWasFetched(name)
}

func (r *Record) autofetchAllowed() bool {
	if !r.autofetch || r.id == "" || r.state == stateFetched {
		return false
	}

	return r.Pointer() || r.fetchedKeys != nil
}

// DisableAutofetch pins the fetch machine: reads of unknown fields
// resolve to absent instead of reaching for the repository.
func (r *Record) DisableAutofetch() {
	r.autofetch = false
}

func (r *Record) EnableAutofetch() {
	r.autofetch = true
}

func (r *Record) AutofetchEnabled() bool {
	return r.autofetch
}

// Fetch retrieves the full record from the repository and merges it in.
// Dirty fields survive the merge with their original baselines; a failed
// fetch leaves the record unfetched and the journal untouched. There is
// no automatic retry.
func (r *Record) Fetch(ctx context.Context) error {
	repo := r.repository()
	if repo == nil {
		return errors.Wrapf(ErrNoRepository, "cannot fetch %s", r.className)
	}

	log := CurrentConfig().Logger
	log.Debug("fetching full record", "class", r.className, "id", r.id)

	r.state = stateFetching
	server, err := repo.FetchFull(ctx, r.className, r.id)
	if err != nil {
		r.state = stateUnfetched
		log.Error("fetch failed", "class", r.className, "id", r.id, "err", err)
		return &FetchError{ClassName: r.className, ObjectID: r.id, Cause: err}
	}

	r.absorb(server)
	r.state = stateFetched

	return nil
}

// Fetched reports whether a full fetch has completed for this record.
func (r *Record) Fetched() bool {
	return r.state == stateFetched
}
