package ir

import (
	"encoding/binary"
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Domain prefixes for digests. The version suffix allows the layout of the
// hashed data to change without silently colliding with older digests.
const (
	DomainSignature = "tvs/signature/v1"
	DomainStructure = "tvs/structure/v1"
)

// Digest computes BLAKE3(domain || 0x00 || data). The null separator keeps
// the domain/data boundary unambiguous.
func Digest(domain string, data []byte) [32]byte {
	h := blake3.New(32, nil)
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// DigestHex returns the hex encoding of Digest.
func DigestHex(domain string, data []byte) string {
	d := Digest(domain, data)
	return hex.EncodeToString(d[:])
}

// Digest64 folds Digest to 64 bits for use as a bucket key.
func Digest64(domain string, data []byte) uint64 {
	d := Digest(domain, data)
	return binary.LittleEndian.Uint64(d[:8])
}
