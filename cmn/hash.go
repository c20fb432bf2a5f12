package cmn

import (
	"encoding/hex"
	"strings"

	"github.com/OneOfOne/xxhash"
)

// HashAlgo tags the digest algorithm so the on-disk/wire format can evolve
// without breaking older blobs, the way the packet log carries a legacy
// shape alongside the current one.
type HashAlgo string

const AlgoXXH64 HashAlgo = "xxh64"

// Hash is the integrity descriptor every CAS blob is addressed by: an
// algorithm tag plus a hex digest, e.g. "xxh64-1a79a4d60de6718e".
type Hash struct {
	Algo   HashAlgo
	Digest string
}

func (h Hash) String() string {
	if h.Algo == "" {
		return ""
	}
	return string(h.Algo) + "-" + h.Digest
}

func (h Hash) IsZero() bool { return h.Digest == "" }

// ParseHash parses the String() form back into a Hash.
func ParseHash(s string) (Hash, bool) {
	idx := strings.IndexByte(s, '-')
	if idx < 0 {
		return Hash{}, false
	}
	return Hash{Algo: HashAlgo(s[:idx]), Digest: s[idx+1:]}, true
}

// HashBytes computes the CAS integrity hash for content. Two identical byte
// sequences always hash to the same Hash, which is what makes the CAS
// content-addressed rather than id-addressed.
func HashBytes(content []byte) Hash {
	sum := xxhash.Checksum64(content)
	digest := hex.EncodeToString(encodeUint64(sum))
	return Hash{Algo: AlgoXXH64, Digest: digest}
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}
