// Package fingerprint computes the content hashes and symbol
// fingerprints the indexer uses to detect change: a file's content
// hash (spec §3 "content hash (hex)") and a symbol's fingerprint
// (spec §4.4 "hash(name|kind|signature|detailJSON)"), both backed by
// xxhash/2 the way the teacher repo uses it for fast content addressing.
package fingerprint

import (
	"encoding/hex"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ContentHash hashes raw file bytes, returned as lowercase hex (spec §3
// "content hash (hex)").
func ContentHash(content []byte) string {
	sum := xxhash.Sum64(content)
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(sum >> (56 - 8*i))
	}
	return hex.EncodeToString(buf[:])
}

// Symbol computes the stable fingerprint over a symbol's identity
// fields (spec §4.4: "fingerprint hash(name|kind|signature|detailJSON)").
func Symbol(name, kind, signature, detailJSON string) string {
	h := xxhash.New()
	_, _ = h.Write([]byte(name))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(kind))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(signature))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(detailJSON))
	return strconv.FormatUint(h.Sum64(), 16)
}
