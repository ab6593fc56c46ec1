package repweight

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btcnew-node/ledger/common"
)

func blob(maxBlocks uint64, tuples ...[48]byte) []byte {
	var buf bytes.Buffer
	var head [16]byte
	binary.BigEndian.PutUint64(head[8:], maxBlocks)
	buf.Write(head[:])
	for _, tup := range tuples {
		buf.Write(tup[:])
	}
	return buf.Bytes()
}

func tuple(account common.Account, weight common.Amount) [48]byte {
	var out [48]byte
	copy(out[:32], account[:])
	copy(out[32:], weight.Bytes())
	return out
}

func TestBootstrapLoadAndWeight(t *testing.T) {
	rep := common.Account{1}
	data := blob(100, tuple(rep, common.NewAmount(500)))

	b, err := Load(bytes.NewReader(data))
	require.NoError(t, err)

	w, ok := b.Weight(rep)
	require.True(t, ok)
	require.Equal(t, 0, w.Cmp(common.NewAmount(500)))

	_, ok = b.Weight(common.Account{2})
	require.False(t, ok)
}

func TestBootstrapCheckLatchesOffPermanently(t *testing.T) {
	b, err := Load(bytes.NewReader(blob(10)))
	require.NoError(t, err)

	require.True(t, b.Check(5))
	require.False(t, b.Check(10))
	// Once latched off, a later call with a block count under the
	// threshold must still report false.
	require.False(t, b.Check(3))

	_, ok := b.Weight(common.Account{1})
	require.False(t, ok)
}

func TestBootstrapLoadRejectsTruncatedTuple(t *testing.T) {
	data := blob(10)
	data = append(data, []byte{1, 2, 3}...)
	_, err := Load(bytes.NewReader(data))
	require.ErrorIs(t, err, ErrBootstrapBlobTruncated)
}

func TestBootstrapLoadRejectsOversizedMaxBlockCount(t *testing.T) {
	var head [16]byte
	head[0] = 1 // non-zero high 64 bits
	_, err := Load(bytes.NewReader(head[:]))
	require.Error(t, err)
}
