// Package memstore is an in-memory implementation of db.Database.
//
// Records live in per-entity maps keyed by id and reference each other only by
// id. A transaction works on a private copy of every map and swaps it in on
// success, so a failed transaction leaves no trace. Transactions are serialised
// by a single mutex.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/jakechorley/volts/pkg/db"
)

type state struct {
	users          map[string]db.User
	organizations  map[string]db.Organization
	members        map[string]db.OrganizationMember
	groups         map[string]db.Group
	groupMembers   map[string]db.GroupMember
	positions      map[string]db.Position
	shifts         map[string]db.Shift
	shiftPositions map[string]db.ShiftPosition
	assignments    map[string]db.Assignment
}

func newState() *state {
	return &state{
		users:          map[string]db.User{},
		organizations:  map[string]db.Organization{},
		members:        map[string]db.OrganizationMember{},
		groups:         map[string]db.Group{},
		groupMembers:   map[string]db.GroupMember{},
		positions:      map[string]db.Position{},
		shifts:         map[string]db.Shift{},
		shiftPositions: map[string]db.ShiftPosition{},
		assignments:    map[string]db.Assignment{},
	}
}

func (s *state) clone() *state {
	return &state{
		users:          cloneMap(s.users),
		organizations:  cloneMap(s.organizations),
		members:        cloneMap(s.members),
		groups:         cloneMap(s.groups),
		groupMembers:   cloneMap(s.groupMembers),
		positions:      cloneMap(s.positions),
		shifts:         cloneMap(s.shifts),
		shiftPositions: cloneMap(s.shiftPositions),
		assignments:    cloneMap(s.assignments),
	}
}

func cloneMap[T any](m map[string]T) map[string]T {
	out := make(map[string]T, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store is an in-memory db.Database
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{st: newState()}
}

// InTx runs fn against a private snapshot of the store and publishes the
// snapshot only if fn succeeds
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, q db.Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, &queries{st: work}); err != nil {
		return err
	}

	s.st = work
	return nil
}

// queries implements db.Queries over one transaction's snapshot
type queries struct {
	st *state
}

var _ db.Queries = (*queries)(nil)

// sortedValues returns the map values matching keep, ordered by creation time then id
func sortedValues[T any](m map[string]T, keep func(T) bool, created func(T) (int64, string)) []T {
	out := make([]T, 0)
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, idi := created(out[i])
		tj, idj := created(out[j])
		if ti != tj {
			return ti < tj
		}
		return idi < idj
	})
	return out
}
