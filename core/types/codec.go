package types

import (
	"encoding/binary"
	"fmt"

	"github.com/btcnew-node/ledger/common"
	"golang.org/x/crypto/blake2b"
)

// Canonical encoded lengths (spec.md §6). Each is signing-input length +
// SignatureLength + WorkLength.
const (
	workLength = 8

	openEncodedLen    = 32 + 32 + 32 + common.SignatureLength + workLength
	sendEncodedLen    = 32 + 32 + common.AmountLength + common.SignatureLength + workLength
	receiveEncodedLen = 32 + 32 + common.SignatureLength + workLength
	changeEncodedLen  = 32 + 32 + common.SignatureLength + workLength
	stateEncodedLen   = 32 + 32 + 32 + common.AmountLength + 32 + common.SignatureLength + workLength
)

// SigningInput implementations: the canonical field layout a block is
// hashed and signed over, excluding signature and work.

func (b *OpenBlock) SigningInput() []byte {
	out := make([]byte, 0, 96)
	out = append(out, b.Source[:]...)
	out = append(out, b.Representative[:]...)
	out = append(out, b.Account[:]...)
	return out
}

func (b *SendBlock) SigningInput() []byte {
	out := make([]byte, 0, 80)
	out = append(out, b.Previous[:]...)
	out = append(out, b.Destination[:]...)
	out = append(out, b.Balance.Bytes()...)
	return out
}

func (b *ReceiveBlock) SigningInput() []byte {
	out := make([]byte, 0, 64)
	out = append(out, b.Previous[:]...)
	out = append(out, b.Source[:]...)
	return out
}

func (b *ChangeBlock) SigningInput() []byte {
	out := make([]byte, 0, 64)
	out = append(out, b.Previous[:]...)
	out = append(out, b.Representative[:]...)
	return out
}

func (b *StateBlock) SigningInput() []byte {
	out := make([]byte, 0, 144)
	out = append(out, b.Account[:]...)
	out = append(out, b.Previous[:]...)
	out = append(out, b.Representative[:]...)
	out = append(out, b.Balance.Bytes()...)
	out = append(out, b.Link[:]...)
	return out
}

// Hash returns the block hash: blake2b-256 over the signing input.
func Hash(b Block) common.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only fails for an invalid key length; we pass no key.
		panic(err)
	}
	h.Write(b.SigningInput())
	var out common.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Encode renders b in its canonical wire layout: signing input ||
// signature || work(little-endian 8 bytes).
func Encode(b Block) []byte {
	out := append([]byte{}, b.SigningInput()...)
	sig := b.Signature()
	out = append(out, sig[:]...)
	var workBuf [workLength]byte
	binary.LittleEndian.PutUint64(workBuf[:], uint64(b.Work()))
	out = append(out, workBuf[:]...)
	return out
}

// Decode parses the canonical encoding of a block of the given type.
func Decode(t BlockType, data []byte) (Block, error) {
	switch t {
	case BlockTypeOpen:
		return decodeOpen(data)
	case BlockTypeSend:
		return decodeSend(data)
	case BlockTypeReceive:
		return decodeReceive(data)
	case BlockTypeChange:
		return decodeChange(data)
	case BlockTypeState:
		return decodeState(data)
	default:
		return nil, fmt.Errorf("types: unknown block type %d", t)
	}
}

func readSigWork(data []byte, sigOff int) (common.Signature, common.Work) {
	var sig common.Signature
	copy(sig[:], data[sigOff:sigOff+common.SignatureLength])
	w := binary.LittleEndian.Uint64(data[sigOff+common.SignatureLength : sigOff+common.SignatureLength+workLength])
	return sig, common.Work(w)
}

func decodeOpen(data []byte) (*OpenBlock, error) {
	if len(data) != openEncodedLen {
		return nil, fmt.Errorf("types: open block wrong length %d", len(data))
	}
	b := &OpenBlock{}
	copy(b.Source[:], data[0:32])
	copy(b.Representative[:], data[32:64])
	copy(b.Account[:], data[64:96])
	b.Sig, b.W = readSigWork(data, 96)
	return b, nil
}

func decodeSend(data []byte) (*SendBlock, error) {
	if len(data) != sendEncodedLen {
		return nil, fmt.Errorf("types: send block wrong length %d", len(data))
	}
	b := &SendBlock{}
	copy(b.Previous[:], data[0:32])
	copy(b.Destination[:], data[32:64])
	amt, err := common.AmountFromBytes(data[64:80])
	if err != nil {
		return nil, err
	}
	b.Balance = amt
	b.Sig, b.W = readSigWork(data, 80)
	return b, nil
}

func decodeReceive(data []byte) (*ReceiveBlock, error) {
	if len(data) != receiveEncodedLen {
		return nil, fmt.Errorf("types: receive block wrong length %d", len(data))
	}
	b := &ReceiveBlock{}
	copy(b.Previous[:], data[0:32])
	copy(b.Source[:], data[32:64])
	b.Sig, b.W = readSigWork(data, 64)
	return b, nil
}

func decodeChange(data []byte) (*ChangeBlock, error) {
	if len(data) != changeEncodedLen {
		return nil, fmt.Errorf("types: change block wrong length %d", len(data))
	}
	b := &ChangeBlock{}
	copy(b.Previous[:], data[0:32])
	copy(b.Representative[:], data[32:64])
	b.Sig, b.W = readSigWork(data, 64)
	return b, nil
}

func decodeState(data []byte) (*StateBlock, error) {
	if len(data) != stateEncodedLen {
		return nil, fmt.Errorf("types: state block wrong length %d", len(data))
	}
	b := &StateBlock{}
	copy(b.Account[:], data[0:32])
	copy(b.Previous[:], data[32:64])
	copy(b.Representative[:], data[64:96])
	amt, err := common.AmountFromBytes(data[96:112])
	if err != nil {
		return nil, err
	}
	b.Balance = amt
	copy(b.Link[:], data[112:144])
	b.Sig, b.W = readSigWork(data, 144)
	return b, nil
}

// EncodedLen returns the canonical encoded length for a block type, used
// by the store to validate a row's length before decoding.
func EncodedLen(t BlockType) (int, error) {
	switch t {
	case BlockTypeOpen:
		return openEncodedLen, nil
	case BlockTypeSend:
		return sendEncodedLen, nil
	case BlockTypeReceive:
		return receiveEncodedLen, nil
	case BlockTypeChange:
		return changeEncodedLen, nil
	case BlockTypeState:
		return stateEncodedLen, nil
	default:
		return 0, fmt.Errorf("types: unknown block type %d", t)
	}
}
