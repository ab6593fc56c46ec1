package mdbx

import (
	"github.com/erigontech/mdbx-go/mdbx"
	"github.com/pkg/errors"
)

type cursor struct {
	c *mdbx.Cursor
}

func translate(k, v []byte, err error) ([]byte, []byte, error) {
	if mdbx.IsNotFound(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "mdbx: cursor op")
	}
	return k, v, nil
}

func (c *cursor) First() ([]byte, []byte, error) {
	k, v, err := c.c.Get(nil, nil, mdbx.First)
	return translate(k, v, err)
}

func (c *cursor) Last() ([]byte, []byte, error) {
	k, v, err := c.c.Get(nil, nil, mdbx.Last)
	return translate(k, v, err)
}

func (c *cursor) Seek(key []byte) ([]byte, []byte, error) {
	k, v, err := c.c.Get(key, nil, mdbx.SetRange)
	return translate(k, v, err)
}

func (c *cursor) Next() ([]byte, []byte, error) {
	k, v, err := c.c.Get(nil, nil, mdbx.Next)
	return translate(k, v, err)
}

func (c *cursor) Prev() ([]byte, []byte, error) {
	k, v, err := c.c.Get(nil, nil, mdbx.Prev)
	return translate(k, v, err)
}

func (c *cursor) Close() { c.c.Close() }

type rwCursor struct {
	cursor
}

func (c *rwCursor) Put(k, v []byte) error {
	if err := c.c.Put(k, v, 0); err != nil {
		return errors.Wrap(err, "mdbx: cursor put")
	}
	return nil
}

func (c *rwCursor) Delete(k []byte) error {
	if _, _, err := c.c.Get(k, nil, mdbx.SetKey); err != nil {
		if mdbx.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, "mdbx: cursor seek for delete")
	}
	if err := c.c.Del(0); err != nil {
		return errors.Wrap(err, "mdbx: cursor delete")
	}
	return nil
}
