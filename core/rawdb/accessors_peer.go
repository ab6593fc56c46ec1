package rawdb

import (
	"encoding/binary"
	"net"

	"github.com/btcnew-node/ledger/kv"
)

// PeerEndpoint is a 16-byte IPv6 (or IPv4-mapped) address plus port,
// the on-disk peer cache row key.
type PeerEndpoint struct {
	IP   net.IP
	Port uint16
}

func (e PeerEndpoint) bytes() []byte {
	out := make([]byte, 18)
	copy(out[0:16], e.IP.To16())
	binary.BigEndian.PutUint16(out[16:18], e.Port)
	return out
}

func peerEndpointFromBytes(b []byte) (PeerEndpoint, error) {
	if len(b) != 18 {
		return PeerEndpoint{}, ErrCorrupted("peer key wrong length")
	}
	ip := make(net.IP, 16)
	copy(ip, b[0:16])
	return PeerEndpoint{IP: ip, Port: binary.BigEndian.Uint16(b[16:18])}, nil
}

// PeerPut records that endpoint was reachable as of lastSeen (unix
// seconds). The peer cache is advisory bootstrap hinting only, never
// consulted by ledger processing itself.
func PeerPut(tx kv.RwTx, endpoint PeerEndpoint, lastSeen uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], lastSeen)
	return tx.Put(kv.Peers, endpoint.bytes(), buf[:])
}

func PeerDel(tx kv.RwTx, endpoint PeerEndpoint) error {
	return tx.Delete(kv.Peers, endpoint.bytes())
}

func PeerExists(tx kv.Tx, endpoint PeerEndpoint) (bool, error) {
	return tx.Has(kv.Peers, endpoint.bytes())
}

func PeerCount(tx kv.Tx) (uint64, error) {
	return tx.Count(kv.Peers)
}

// PeerForEach walks the whole cache; returning false from fn stops
// iteration early.
func PeerForEach(tx kv.Tx, fn func(endpoint PeerEndpoint, lastSeen uint64) (bool, error)) error {
	return tx.ForEach(kv.Peers, func(k, v []byte) (bool, error) {
		endpoint, err := peerEndpointFromBytes(k)
		if err != nil {
			return false, err
		}
		if len(v) != 8 {
			return false, ErrCorrupted("peer value wrong length")
		}
		return fn(endpoint, binary.BigEndian.Uint64(v))
	})
}

// OnlineWeightSamplePut records one periodic sample of total online
// voting weight, keyed by its unix-second timestamp, feeding the
// trimmed-mean online-weight quorum calculation (an external
// collaborator to this module — see spec.md Non-goals).
func OnlineWeightSamplePut(tx kv.RwTx, timestamp uint64, weight []byte) error {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], timestamp)
	return tx.Put(kv.OnlineWeightSamples, key[:], weight)
}

func OnlineWeightSampleDel(tx kv.RwTx, timestamp uint64) error {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], timestamp)
	return tx.Delete(kv.OnlineWeightSamples, key[:])
}

func OnlineWeightSampleCount(tx kv.Tx) (uint64, error) {
	return tx.Count(kv.OnlineWeightSamples)
}
