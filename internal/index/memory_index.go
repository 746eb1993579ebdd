// Package index holds the in-memory inverted index: one postings list per
// term. It is the concurrency boundary for postings lists; callers never see
// the live lists, only clones.
package index

import (
	"fmt"
	"net/http"
	"slices"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/postings"
	apperrors "github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/errors"
)

// TermEntry is a term and its ascending document ids.
type TermEntry struct {
	Term   string `json:"term"`
	DocIDs []int  `json:"doc_ids"`
}

type MemoryIndex struct {
	mu    sync.RWMutex
	terms map[string]*postings.List
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		terms: make(map[string]*postings.List),
	}
}

// Add records docID under term and reports whether the index changed.
func (m *MemoryIndex) Add(term string, docID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	list, ok := m.terms[term]
	if !ok {
		list = &postings.List{}
		m.terms[term] = list
	}
	return list.Add(docID)
}

// Remove drops docID from term. A term whose list empties is forgotten.
func (m *MemoryIndex) Remove(term string, docID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	list, ok := m.terms[term]
	if !ok {
		return false
	}
	changed := list.Remove(docID)
	if list.IsEmpty() {
		delete(m.terms, term)
	}
	return changed
}

// RemoveDocument drops docID from every term and returns how many postings
// lists changed.
func (m *MemoryIndex) RemoveDocument(docID int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := 0
	for term, list := range m.terms {
		if list.Remove(docID) {
			changed++
		}
		if list.IsEmpty() {
			delete(m.terms, term)
		}
	}
	return changed
}

// Lookup returns a copy of term's postings list, empty for unknown terms.
func (m *MemoryIndex) Lookup(term string) *postings.List {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.terms[term].Clone()
}

func (m *MemoryIndex) DocFreq(term string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.terms[term].Len()
}

// MergeTerms folds from's postings into into's list and forgets from. The
// nodes of from's list move, they are not copied. It returns the document
// frequency of into afterwards.
func (m *MemoryIndex) MergeTerms(into, from string) (int, error) {
	if into == from {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "cannot merge term %q into itself", from)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.terms[from]
	if !ok {
		return 0, fmt.Errorf("merging %q into %q: %w", from, into, apperrors.ErrTermNotFound)
	}
	dst, ok := m.terms[into]
	if !ok {
		dst = &postings.List{}
		m.terms[into] = dst
	}
	dst.Merge(src)
	delete(m.terms, from)
	return dst.Len(), nil
}

// Absorb moves every postings list of delta into m, leaving delta empty.
// Typical use is building a batch in a private index and folding it in under
// a single lock acquisition.
func (m *MemoryIndex) Absorb(delta *MemoryIndex) {
	if delta == m {
		return
	}
	delta.mu.Lock()
	moved := delta.terms
	delta.terms = make(map[string]*postings.List)
	delta.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	for term, src := range moved {
		dst, ok := m.terms[term]
		if !ok {
			m.terms[term] = src
			continue
		}
		dst.Merge(src)
	}
}

// Snapshot returns every term with its ids, sorted by term.
func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.terms))
	for term, list := range m.terms {
		entries = append(entries, TermEntry{
			Term:   term,
			DocIDs: list.Slice(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Restore replaces the index contents with entries. Ids need not be sorted;
// a term listed more than once gets the union of its entries.
func (m *MemoryIndex) Restore(entries []TermEntry) error {
	terms := make(map[string]*postings.List, len(entries))
	for _, e := range entries {
		if len(e.DocIDs) == 0 {
			continue
		}
		ids := slices.Compact(slices.Sorted(slices.Values(e.DocIDs)))
		list, err := postings.FromSorted(ids...)
		if err != nil {
			return fmt.Errorf("restoring term %q: %w", e.Term, err)
		}
		if prev, ok := terms[e.Term]; ok {
			prev.Merge(list)
			continue
		}
		terms[e.Term] = list
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terms = terms
	return nil
}

// Verify runs the ordering check over every postings list.
func (m *MemoryIndex) Verify() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for term, list := range m.terms {
		if err := list.Check(); err != nil {
			return fmt.Errorf("term %q: %w", term, err)
		}
	}
	return nil
}

func (m *MemoryIndex) Terms() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.terms)
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terms = make(map[string]*postings.List)
}
