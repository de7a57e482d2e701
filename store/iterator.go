package store

import (
	"bytes"

	"github.com/google/btree"
)

// ascendBtree collects all cached items in [start, end) in ascending order.
func ascendBtree(bt *btree.BTree, start, end []byte) []keyer {
	var items []keyer
	collect := func(i btree.Item) bool {
		items = append(items, i.(keyer))
		return true
	}
	switch {
	case start == nil && end == nil:
		bt.Ascend(collect)
	case start == nil:
		bt.AscendLessThan(bkey{end}, collect)
	case end == nil:
		bt.AscendGreaterOrEqual(bkey{start}, collect)
	default:
		bt.AscendRange(bkey{start}, bkey{end}, collect)
	}
	return items
}

// descendBtree collects all cached items in [start, end) in descending order.
func descendBtree(bt *btree.BTree, start, end []byte) []keyer {
	var items []keyer
	collect := func(i btree.Item) bool {
		k := i.(keyer).Key()
		if end != nil && bytes.Compare(k, end) >= 0 {
			return true
		}
		if start != nil && bytes.Compare(k, start) < 0 {
			return false
		}
		items = append(items, i.(keyer))
		return true
	}
	if end == nil {
		bt.Descend(collect)
	} else {
		bt.DescendLessOrEqual(bkey{end}, collect)
	}
	return items
}

// mergedIterator combines the items cached in a btree with the iterator of
// the parent store. Cached items shadow the parent entries with the same
// key and deleted items hide them.
type mergedIterator struct {
	cached  []keyer
	parent  Iterator
	reverse bool
}

var _ Iterator = (*mergedIterator)(nil)

func newMergedIterator(cached []keyer, parent Iterator, reverse bool) (*mergedIterator, error) {
	it := &mergedIterator{
		cached:  cached,
		parent:  parent,
		reverse: reverse,
	}
	if err := it.skipDeleted(); err != nil {
		parent.Close()
		return nil, err
	}
	return it, nil
}

// source marks where the current item comes from
type source int32

const (
	none source = iota
	cache
	parent
	both
)

// current returns the source of the item the iterator points at.
func (i *mergedIterator) current() source {
	hasCache := len(i.cached) > 0
	hasParent := i.parent != nil && i.parent.Valid()
	switch {
	case !hasCache && !hasParent:
		return none
	case !hasParent:
		return cache
	case !hasCache:
		return parent
	}

	cmp := bytes.Compare(i.cached[0].Key(), i.parent.Key())
	if i.reverse {
		cmp = -cmp
	}
	switch {
	case cmp < 0:
		return cache
	case cmp > 0:
		return parent
	default:
		return both
	}
}

// skipDeleted advances over all deleted cache entries, together with the
// parent entries they hide.
func (i *mergedIterator) skipDeleted() error {
	for {
		src := i.current()
		if src != cache && src != both {
			return nil
		}
		if _, ok := i.cached[0].(deletedItem); !ok {
			return nil
		}
		i.cached = i.cached[1:]
		if src == both {
			if err := i.parent.Next(); err != nil {
				return err
			}
		}
	}
}

// Valid implements Iterator and returns true iff it can be read
func (i *mergedIterator) Valid() bool {
	return i.current() != none
}

// Next moves the iterator to the next sequential key in the database, as
// defined by order of iteration.
//
// If Valid returns false, this method will panic.
func (i *mergedIterator) Next() error {
	switch i.current() {
	case cache:
		i.cached = i.cached[1:]
	case both:
		i.cached = i.cached[1:]
		if err := i.parent.Next(); err != nil {
			return err
		}
	case parent:
		if err := i.parent.Next(); err != nil {
			return err
		}
	default:
		panic("advanced past the end")
	}
	return i.skipDeleted()
}

// Key returns the key of the cursor.
func (i *mergedIterator) Key() []byte {
	switch i.current() {
	case cache, both:
		return i.cached[0].Key()
	case parent:
		return i.parent.Key()
	default:
		panic("advanced past the end")
	}
}

// Value returns the value of the cursor.
func (i *mergedIterator) Value() []byte {
	switch i.current() {
	case cache, both:
		return i.cached[0].(setItem).value
	case parent:
		return i.parent.Value()
	default:
		panic("advanced past the end")
	}
}

// Close releases the Iterator.
func (i *mergedIterator) Close() {
	i.cached = nil
	if i.parent != nil {
		i.parent.Close()
	}
}
