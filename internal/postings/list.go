// Package postings implements the postings list of the inverted index: an
// ascending, duplicate-free chain of document ids together with the set
// algebra used to evaluate boolean queries.
//
// A List is not safe for concurrent use. Ownership of nodes only moves
// between lists through Merge; Intersect and Union always build a new list
// from freshly allocated nodes.
package postings

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
)

// ErrCorrupt is returned by Check when a list breaks its ordering invariant.
var ErrCorrupt = errors.New("postings list corrupt")

type node struct {
	id   int
	next *node
}

// List is an ascending, duplicate-free sequence of document ids.
// The zero value is an empty list.
type List struct {
	head  *node
	count int
}

// New returns a list holding ids. Duplicates are ignored.
func New(ids ...int) *List {
	l := &List{}
	for _, id := range ids {
		l.Add(id)
	}
	return l
}

// FromSorted builds a list from strictly ascending ids in a single pass.
func FromSorted(ids ...int) (*List, error) {
	l := &List{}
	tail := &l.head
	for i, id := range ids {
		if i > 0 && ids[i-1] >= id {
			return nil, fmt.Errorf("%w: %d followed by %d at position %d", ErrCorrupt, ids[i-1], id, i-1)
		}
		*tail = &node{id: id}
		tail = &(*tail).next
		l.count++
	}
	return l, nil
}

// Len returns the number of ids in the list.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return l.count
}

func (l *List) IsEmpty() bool {
	return l.Len() == 0
}

// Add inserts id at its ascending position. It reports whether the list
// changed, i.e. false when id was already present.
func (l *List) Add(id int) bool {
	link := &l.head
	for *link != nil && (*link).id < id {
		link = &(*link).next
	}
	if *link != nil && (*link).id == id {
		return false
	}
	*link = &node{id: id, next: *link}
	l.count++
	return true
}

// Remove detaches id from the list and reports whether it was present.
func (l *List) Remove(id int) bool {
	link := &l.head
	for *link != nil && (*link).id < id {
		link = &(*link).next
	}
	if *link == nil || (*link).id != id {
		return false
	}
	*link = (*link).next
	l.count--
	return true
}

// Contains reports whether id is in the list.
func (l *List) Contains(id int) bool {
	if l == nil {
		return false
	}
	for n := l.head; n != nil && n.id <= id; n = n.next {
		if n.id == id {
			return true
		}
	}
	return false
}

// Merge moves every node of other into l, keeping l ascending, and leaves
// other empty. No node is allocated. When both lists hold the same id, l
// keeps its own node and the one from other is dropped.
//
// Merging a list into itself, or merging nil, is a no-op.
func (l *List) Merge(other *List) {
	if other == nil || other == l {
		return
	}
	link := &l.head
	o := other.head
	for *link != nil && o != nil {
		switch cur := *link; {
		case o.id < cur.id:
			next := o.next
			o.next = cur
			*link = o
			link = &o.next
			o = next
			l.count++
		case o.id == cur.id:
			o = o.next
		default:
			link = &cur.next
		}
	}
	if o != nil {
		*link = o
		for ; o != nil; o = o.next {
			l.count++
		}
	}
	other.head = nil
	other.count = 0
}

// RemoveAll detaches every id of other from l in one co-walk and returns how
// many were removed. other is not modified.
func (l *List) RemoveAll(other *List) int {
	if l == nil || other == nil {
		return 0
	}
	if other == l {
		removed := l.count
		l.head, l.count = nil, 0
		return removed
	}
	removed := 0
	link := &l.head
	o := other.head
	for *link != nil && o != nil {
		switch cur := *link; {
		case cur.id < o.id:
			link = &cur.next
		case o.id < cur.id:
			o = o.next
		default:
			*link = cur.next
			removed++
			o = o.next
		}
	}
	l.count -= removed
	return removed
}

// Intersect returns a new list with the ids present in both l and other.
// Neither input is modified.
func (l *List) Intersect(other *List) *List {
	out := &List{}
	if l == nil || other == nil {
		return out
	}
	tail := &out.head
	a, b := l.head, other.head
	for a != nil && b != nil {
		switch {
		case a.id == b.id:
			*tail = &node{id: a.id}
			tail = &(*tail).next
			out.count++
			a, b = a.next, b.next
		case a.id < b.id:
			a = a.next
		default:
			b = b.next
		}
	}
	return out
}

// Union returns a new list with the ids present in l or other.
// Neither input is modified.
func (l *List) Union(other *List) *List {
	out := &List{}
	var a, b *node
	if l != nil {
		a = l.head
	}
	if other != nil {
		b = other.head
	}
	tail := &out.head
	for a != nil || b != nil {
		var id int
		switch {
		case b == nil || (a != nil && a.id < b.id):
			id = a.id
			a = a.next
		case a == nil || b.id < a.id:
			id = b.id
			b = b.next
		default:
			id = a.id
			a, b = a.next, b.next
		}
		*tail = &node{id: id}
		tail = &(*tail).next
		out.count++
	}
	return out
}

// Clone returns an independent copy of l.
func (l *List) Clone() *List {
	return l.Union(nil)
}

// All yields the ids in ascending order.
func (l *List) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		if l == nil {
			return
		}
		for n := l.head; n != nil; n = n.next {
			if !yield(n.id) {
				return
			}
		}
	}
}

// Slice returns the ids in ascending order. The result is never nil.
func (l *List) Slice() []int {
	ids := make([]int, 0, l.Len())
	for id := range l.All() {
		ids = append(ids, id)
	}
	return ids
}

// String renders the ids ascending and space-separated.
func (l *List) String() string {
	var sb strings.Builder
	for id := range l.All() {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(id))
	}
	return sb.String()
}

// Check walks the chain and verifies it is strictly ascending and that the
// cached length matches.
func (l *List) Check() error {
	if l == nil {
		return nil
	}
	seen := 0
	for n := l.head; n != nil; n = n.next {
		if n.next != nil && n.next.id <= n.id {
			return fmt.Errorf("%w: %d followed by %d at position %d", ErrCorrupt, n.id, n.next.id, seen)
		}
		seen++
	}
	if seen != l.count {
		return fmt.Errorf("%w: length %d, counted %d nodes", ErrCorrupt, l.count, seen)
	}
	return nil
}
