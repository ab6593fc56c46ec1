package rawdb

import (
	"encoding/binary"

	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/kv"
)

func ConfirmationHeightPut(tx kv.RwTx, account common.Account, height uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	return tx.Put(kv.ConfirmationHeight, account[:], buf[:])
}

// ConfirmationHeightGet returns the confirmed height for account, or 0
// if no row exists (an account with no confirmation-height row has
// nothing confirmed yet).
func ConfirmationHeightGet(tx kv.Tx, account common.Account) (uint64, error) {
	raw, err := tx.GetOne(kv.ConfirmationHeight, account[:])
	if err != nil || raw == nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, ErrCorrupted("confirmation height wrong length")
	}
	return binary.BigEndian.Uint64(raw), nil
}

func ConfirmationHeightDel(tx kv.RwTx, account common.Account) error {
	return tx.Delete(kv.ConfirmationHeight, account[:])
}

// ConfirmationHeightClear removes every row. No schema step in this
// package calls it.
func ConfirmationHeightClear(tx kv.RwTx) error {
	c, err := tx.RwCursor(kv.ConfirmationHeight)
	if err != nil {
		return err
	}
	defer c.Close()
	k, _, err := c.First()
	for k != nil && err == nil {
		if err := c.Delete(k); err != nil {
			return err
		}
		k, _, err = c.Next()
	}
	return err
}
