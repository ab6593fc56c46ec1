package memdb

import "github.com/google/btree"

type cursor struct {
	tr    *btree.BTree
	cur   *kvItem
	valid bool
}

func newCursor(tr *btree.BTree) *cursor {
	return &cursor{tr: tr}
}

func (c *cursor) First() ([]byte, []byte, error) {
	item := c.tr.Min()
	return c.set(item)
}

func (c *cursor) Last() ([]byte, []byte, error) {
	item := c.tr.Max()
	return c.set(item)
}

func (c *cursor) Seek(key []byte) ([]byte, []byte, error) {
	var found btree.Item
	c.tr.AscendGreaterOrEqual(kvItem{key: key}, func(i btree.Item) bool {
		found = i
		return false
	})
	return c.set(found)
}

func (c *cursor) Next() ([]byte, []byte, error) {
	if !c.valid {
		return nil, nil, nil
	}
	var next btree.Item
	seen := false
	c.tr.AscendGreaterOrEqual(*c.cur, func(i btree.Item) bool {
		if !seen {
			seen = true
			return true // skip current item itself
		}
		next = i
		return false
	})
	return c.set(next)
}

func (c *cursor) Prev() ([]byte, []byte, error) {
	if !c.valid {
		return nil, nil, nil
	}
	var prev btree.Item
	c.tr.DescendLessOrEqual(*c.cur, func(i btree.Item) bool {
		it := i.(kvItem)
		if it.Less(*c.cur) {
			prev = i
			return false
		}
		return true // skip current item itself
	})
	return c.set(prev)
}

func (c *cursor) set(item btree.Item) ([]byte, []byte, error) {
	if item == nil {
		c.valid = false
		c.cur = nil
		return nil, nil, nil
	}
	it := item.(kvItem)
	c.cur = &it
	c.valid = true
	return it.key, it.value, nil
}

func (c *cursor) Close() {}

type rwCursor struct {
	cursor
}

func newRwCursor(tr *btree.BTree) *rwCursor {
	return &rwCursor{cursor: cursor{tr: tr}}
}

func (c *rwCursor) Put(k, v []byte) error {
	key := make([]byte, len(k))
	copy(key, k)
	val := make([]byte, len(v))
	copy(val, v)
	c.tr.ReplaceOrInsert(kvItem{key: key, value: val})
	return nil
}

func (c *rwCursor) Delete(k []byte) error {
	c.tr.Delete(kvItem{key: k})
	return nil
}
