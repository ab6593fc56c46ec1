package types

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/btcnew-node/ledger/common"
)

func randHash(t *rapid.T, label string) common.Hash {
	var h common.Hash
	copy(h[:], rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, label))
	return h
}

func randAmount(t *rapid.T, label string) common.Amount {
	return common.NewAmount(rapid.Uint64().Draw(t, label))
}

// TestBlockCodecRoundTrip checks Decode(Encode(b)) == b for every block
// kind, generating field values with rapid rather than a fixed table
// (spec.md §8 "round-trip encode/decode" law).
func TestBlockCodecRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		kind := rapid.SampledFrom([]BlockType{
			BlockTypeOpen, BlockTypeSend, BlockTypeReceive, BlockTypeChange, BlockTypeState,
		}).Draw(rt, "kind")

		var b Block
		switch kind {
		case BlockTypeOpen:
			b = &OpenBlock{
				Source:         randHash(rt, "source"),
				Representative: randHash(rt, "rep"),
				Account:        randHash(rt, "account"),
			}
		case BlockTypeSend:
			b = &SendBlock{
				Previous:    randHash(rt, "previous"),
				Destination: randHash(rt, "destination"),
				Balance:     randAmount(rt, "balance"),
			}
		case BlockTypeReceive:
			b = &ReceiveBlock{
				Previous: randHash(rt, "previous"),
				Source:   randHash(rt, "source"),
			}
		case BlockTypeChange:
			b = &ChangeBlock{
				Previous:       randHash(rt, "previous"),
				Representative: randHash(rt, "rep"),
			}
		case BlockTypeState:
			b = &StateBlock{
				Account:        randHash(rt, "account"),
				Previous:       randHash(rt, "previous"),
				Representative: randHash(rt, "rep"),
				Balance:        randAmount(rt, "balance"),
				Link:           randHash(rt, "link"),
			}
		}

		var work common.Work = common.Work(rapid.Uint64().Draw(rt, "work"))
		b.SetWork(work)
		var sig common.Signature
		copy(sig[:], rapid.SliceOfN(rapid.Byte(), 64, 64).Draw(rt, "sig"))
		b.SetSignature(sig)

		encoded := Encode(b)
		decoded, err := Decode(kind, encoded)
		if err != nil {
			rt.Fatalf("decode: %v", err)
		}
		if Hash(decoded) != Hash(b) {
			rt.Fatalf("hash mismatch after round-trip: %v != %v", Hash(decoded), Hash(b))
		}
		if decoded.Work() != b.Work() {
			rt.Fatalf("work mismatch: %v != %v", decoded.Work(), b.Work())
		}
		if decoded.Signature() != b.Signature() {
			rt.Fatalf("signature mismatch")
		}
	})
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	_, err := Decode(BlockTypeSend, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	b := &StateBlock{
		Account:        common.ZeroHash,
		Previous:       common.ZeroHash,
		Representative: common.ZeroHash,
		Balance:        common.NewAmount(1),
		Link:           common.ZeroHash,
	}
	Sign(b, priv)

	var key [32]byte
	copy(key[:], pub)
	require.True(t, Verify(b, key))

	// Flipping a signature byte must invalidate it.
	sig := b.Signature()
	sig[0] ^= 0xFF
	b.SetSignature(sig)
	require.False(t, Verify(b, key))
}

func TestEncodedLenMatchesEncode(t *testing.T) {
	b := &OpenBlock{Source: common.ZeroHash, Representative: common.ZeroHash, Account: common.ZeroHash}
	encoded := Encode(b)
	wantLen, err := EncodedLen(BlockTypeOpen)
	require.NoError(t, err)
	require.Len(t, encoded, wantLen)
}
