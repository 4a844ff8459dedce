// Package deploymentstest provides in-memory deployment stores for tests.
package deploymentstest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"Web3-Scaffold/internal/deployments"
	xerrors "Web3-Scaffold/internal/errors"
)

// Store keeps records in a map keyed by network and contract.
type Store struct {
	mu      sync.Mutex
	records map[string]deployments.Record
	saves   int
}

// NewStore returns a store holding recs.
func NewStore(recs ...deployments.Record) *Store {
	s := &Store{records: make(map[string]deployments.Record)}
	for _, rec := range recs {
		s.records[key(rec.Network, rec.Contract)] = rec
	}
	return s
}

func (s *Store) Lookup(ctx context.Context, network, contract string) (deployments.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key(network, contract)]
	if !ok {
		return deployments.Record{}, xerrors.Wrap(xerrors.CodeNotFound, deployments.ErrNotFound,
			fmt.Sprintf("未找到部署记录 %s/%s", network, contract))
	}
	return rec, nil
}

func (s *Store) Save(ctx context.Context, rec deployments.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key(rec.Network, rec.Contract)] = rec
	s.saves++
	return nil
}

// List returns records ordered by network then contract.
func (s *Store) List(ctx context.Context) ([]deployments.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]deployments.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return key(out[i].Network, out[i].Contract) < key(out[j].Network, out[j].Contract)
	})
	return out, nil
}

// Saves reports how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Cache records invalidated keys.
type Cache struct {
	mu   sync.Mutex
	keys []string
	Err  error
}

func (c *Cache) Invalidate(ctx context.Context, network, contract string) error {
	if c.Err != nil {
		return c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key(network, contract))
	return nil
}

// Invalidated returns the "network/contract" keys dropped so far.
func (c *Cache) Invalidated() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.keys...)
}

func key(network, contract string) string { return network + "/" + contract }

var (
	_ deployments.Store       = (*Store)(nil)
	_ deployments.Invalidator = (*Cache)(nil)
)
