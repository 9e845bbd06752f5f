package search

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
)

// MemoryIndex is an in-process index with the same match rules as the
// RediSearch backend. It backs single-node dev setups and tests.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]Document
	down bool
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]Document)}
}

// SetAvailable toggles a simulated outage.
func (m *MemoryIndex) SetAvailable(ok bool) {
	m.mu.Lock()
	m.down = !ok
	m.mu.Unlock()
}

func (m *MemoryIndex) Upsert(ctx context.Context, docs []Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return ErrUnavailable
	}
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return nil
}

func (m *MemoryIndex) Delete(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return ErrUnavailable
	}
	for _, id := range ids {
		delete(m.docs, id)
	}
	return nil
}

// Get returns the stored copy of a document.
func (m *MemoryIndex) Get(id string) (Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	return d, ok
}

func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

type scored struct {
	doc   Document
	score int
}

func (m *MemoryIndex) Search(ctx context.Context, q Query) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.down {
		return nil, ErrUnavailable
	}
	if !Searchable(q.Text) {
		return nil, nil
	}

	wild := HasWildcard(q.Text)
	pattern := globPattern(q.Text)
	whole := wholeQuery(q.Text)
	terms := Terms(q.Text)

	var hits []scored
	for _, d := range m.docs {
		if d.OwnerID != q.OwnerID {
			continue
		}
		if q.StorageType != "" && d.StorageType != q.StorageType {
			continue
		}
		if q.Filetype != "" && !strings.EqualFold(d.Filetype, q.Filetype) {
			continue
		}
		name := strings.ToLower(d.Filename)
		if wild {
			if globMatch(pattern, name) {
				hits = append(hits, scored{doc: d, score: 0})
			}
			continue
		}
		if score, ok := matchQuery(whole, terms, name); ok {
			hits = append(hits, scored{doc: d, score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score < hits[j].score
		}
		if !hits[i].doc.CreatedAt.Equal(hits[j].doc.CreatedAt) {
			return hits[i].doc.CreatedAt.Before(hits[j].doc.CreatedAt)
		}
		return hits[i].doc.ID < hits[j].doc.ID
	})

	limit := capLimit(q.Limit)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]Document, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.doc)
	}
	return out, nil
}

func (m *MemoryIndex) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.down {
		return ErrUnavailable
	}
	return nil
}

func (m *MemoryIndex) Close() error { return nil }

// matchQuery accepts a name when any alternative hits: the whole query as a
// prefix, suffix or substring, or any single term as a substring or within
// its fuzzy edit budget. Lower scores rank first; every missed term costs
// more than any edit distance.
func matchQuery(whole string, terms []string, name string) (int, bool) {
	if len([]rune(whole)) >= minAffixLen && strings.Contains(name, whole) {
		return 0, true
	}
	tokens := Terms(name)
	matched, total := 0, 0
	for _, t := range terms {
		if d, ok := matchTerm(t, name, tokens); ok {
			matched++
			total += d
		}
	}
	if matched == 0 {
		return 0, false
	}
	return total + 3*(len(terms)-matched), true
}

func matchTerm(t, name string, tokens []string) (int, bool) {
	if len([]rune(t)) < minAffixLen {
		return 0, containsToken(tokens, t)
	}
	if strings.Contains(name, t) {
		return 0, true
	}
	best := -1
	budget := fuzzyDistance(t)
	for _, tok := range tokens {
		if d := levenshtein.ComputeDistance(t, tok); d <= budget && (best < 0 || d < best) {
			best = d
		}
	}
	return best, best >= 0
}

func containsToken(tokens []string, t string) bool {
	for _, tok := range tokens {
		if tok == t {
			return true
		}
	}
	return false
}

// globMatch supports only '*', matching any run of characters.
func globMatch(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for _, p := range parts[1 : len(parts)-1] {
		i := strings.Index(s, p)
		if i < 0 {
			return false
		}
		s = s[i+len(p):]
	}
	return strings.HasSuffix(s, parts[len(parts)-1])
}
