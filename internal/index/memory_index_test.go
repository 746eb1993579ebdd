package index

import (
	"fmt"
	"sync"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestAddRemoveLookup(t *testing.T) {
	mi := NewMemoryIndex()
	require.True(t, mi.Add("go", 5))
	require.True(t, mi.Add("go", 3))
	require.False(t, mi.Add("go", 5))
	require.Equal(t, "3 5", mi.Lookup("go").String())
	require.Equal(t, 2, mi.DocFreq("go"))

	require.True(t, mi.Remove("go", 3))
	require.False(t, mi.Remove("go", 3))
	require.False(t, mi.Remove("rust", 1))
	require.True(t, mi.Remove("go", 5))
	require.Equal(t, 0, mi.Terms())
	require.True(t, mi.Lookup("go").IsEmpty())
}

func TestLookupReturnsCopy(t *testing.T) {
	mi := NewMemoryIndex()
	mi.Add("go", 1)
	got := mi.Lookup("go")
	got.Add(2)
	require.Equal(t, "1", mi.Lookup("go").String())
}

func TestRemoveDocument(t *testing.T) {
	mi := NewMemoryIndex()
	mi.Add("a", 1)
	mi.Add("a", 2)
	mi.Add("b", 1)
	mi.Add("c", 3)
	require.Equal(t, 2, mi.RemoveDocument(1))
	require.Equal(t, []TermEntry{
		{Term: "a", DocIDs: []int{2}},
		{Term: "c", DocIDs: []int{3}},
	}, mi.Snapshot())
}

func TestMergeTerms(t *testing.T) {
	mi := NewMemoryIndex()
	for _, id := range []int{1, 3, 5} {
		mi.Add("colour", id)
	}
	for _, id := range []int{3, 5, 7} {
		mi.Add("color", id)
	}

	n, err := mi.MergeTerms("color", "colour")
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, "1 3 5 7", mi.Lookup("color").String())
	require.Equal(t, 0, mi.DocFreq("colour"))
	require.NoError(t, mi.Verify())

	_, err = mi.MergeTerms("color", "colour")
	require.ErrorIs(t, err, apperrors.ErrTermNotFound)

	_, err = mi.MergeTerms("color", "color")
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	n, err = mi.MergeTerms("hue", "color")
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, 1, mi.Terms())
}

func TestAbsorb(t *testing.T) {
	base := NewMemoryIndex()
	base.Add("go", 1)
	base.Add("go", 4)

	delta := NewMemoryIndex()
	delta.Add("go", 2)
	delta.Add("go", 4)
	delta.Add("rust", 9)

	base.Absorb(delta)
	require.Equal(t, "1 2 4", base.Lookup("go").String())
	require.Equal(t, "9", base.Lookup("rust").String())
	require.Equal(t, 0, delta.Terms())
	require.NoError(t, base.Verify())

	base.Absorb(base)
	require.Equal(t, 2, base.Terms())
}

func TestSnapshotRestore(t *testing.T) {
	mi := NewMemoryIndex()
	require.NoError(t, mi.Restore([]TermEntry{
		{Term: "b", DocIDs: []int{9, 1, 1}},
		{Term: "a", DocIDs: []int{2}},
		{Term: "b", DocIDs: []int{4}},
		{Term: "empty"},
	}))
	require.Equal(t, []TermEntry{
		{Term: "a", DocIDs: []int{2}},
		{Term: "b", DocIDs: []int{1, 4, 9}},
	}, mi.Snapshot())
	require.NoError(t, mi.Verify())

	mi.Reset()
	require.Empty(t, mi.Snapshot())
}

func TestConcurrentAccess(t *testing.T) {
	mi := NewMemoryIndex()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			term := fmt.Sprintf("t%d", w%2)
			for i := 0; i < 200; i++ {
				mi.Add(term, i*8+w)
				_ = mi.Lookup(term)
				if i%10 == 0 {
					mi.Remove(term, i*8+w)
				}
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, mi.Verify())
	require.Equal(t, 2, mi.Terms())
	require.Equal(t, 8*180, mi.DocFreq("t0")+mi.DocFreq("t1"))
}
