// Package memory is an in-process backend holding every record in maps. It
// serves local development, demos and tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"pfm/internal/core"
)

type Store struct {
	mu          sync.Mutex
	txs         []core.Transaction
	groups      map[string]core.Group
	members     map[string][]core.Member
	invitations []core.Invitation
	archives    map[string]core.Archive
}

func New() *Store {
	return &Store{
		groups:   make(map[string]core.Group),
		members:  make(map[string][]core.Member),
		archives: make(map[string]core.Archive),
	}
}

// NewFromFile seeds personal records of owner from a file with one
// "date;amount;item;category;payer" line per record. Blank lines and lines
// starting with # are skipped, as are lines that fail to parse.
func NewFromFile(path, owner string) *Store {
	s := New()
	for i, line := range readLines(path) {
		fields := strings.Split(line, ";")
		if len(fields) < 4 {
			continue
		}
		date, err := core.ParseDate(fields[0])
		if err != nil {
			continue
		}
		amount, err := core.ParseAmount(fields[1])
		if err != nil {
			continue
		}
		raw := core.RawTransaction{
			ID:       fmt.Sprintf("seed-%d", i+1),
			Amount:   &amount,
			Item:     &fields[2],
			Category: &fields[3],
			Date:     &date,
			OwnerRef: owner,
		}
		if len(fields) > 4 {
			raw.Payer = &fields[4]
		}
		s.txs = append(s.txs, raw.Normalize(date))
	}
	return s
}

// Append stores the transaction.
func (s *Store) Append(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.txs {
		if existing.ID == t.ID {
			return core.Transaction{}, fmt.Errorf("transaction %s already exists", t.ID)
		}
	}
	s.txs = append(s.txs, t)
	return t, nil
}

func (s *Store) FetchTransactions(_ context.Context, scope core.Scope, start, end core.Date) ([]core.Transaction, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.txs {
		if !scope.Contains(t) || t.Date.Before(start) || t.Date.After(end) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListRecent(_ context.Context, scope core.Scope, limit int) ([]core.Transaction, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.txs {
		if scope.Contains(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.txs {
		if existing.ID == t.ID {
			t.OwnerRef, t.GroupRef, t.CreatedAt = existing.OwnerRef, existing.GroupRef, existing.CreatedAt
			s.txs[i] = t
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", t.ID, core.ErrNotFound)
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.txs {
		if t.ID == id {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

func (s *Store) ListOwners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var owners []string
	for _, t := range s.txs {
		if t.GroupRef == "" && t.OwnerRef != "" {
			owners = append(owners, t.OwnerRef)
		}
	}
	owners = dedupe(owners)
	sort.Strings(owners)
	return owners, nil
}

func (s *Store) SaveArchive(_ context.Context, a core.Archive) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives[a.ScopeKey+"|"+a.Period] = a
	return nil
}

func (s *Store) ListArchives(_ context.Context, scopeKey string) ([]core.Archive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Archive
	for _, a := range s.archives {
		if a.ScopeKey == scopeKey {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period > out[j].Period })
	return out, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(context.Context) error { return nil }

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
