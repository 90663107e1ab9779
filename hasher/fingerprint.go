package hasher

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/danthegoodman1/idhash/accumulator"
	"github.com/zeebo/xxh3"
)

// Fingerprint is the 128 bit ID hash of a dataset.
type Fingerprint struct {
	Hi, Lo uint64
}

func finalize(st accumulator.State, key accumulator.Digest) Fingerprint {
	var buf [32]byte
	s, k := st.Bytes(), key.Bytes()
	copy(buf[:16], s[:])
	copy(buf[16:], k[:])
	sum := xxh3.Hash128Seed(buf[:], finalizeSeed)
	return Fingerprint{Hi: sum.Hi, Lo: sum.Lo}
}

// BigInt returns the fingerprint as an unsigned integer.
func (f Fingerprint) BigInt() *big.Int {
	hi := new(big.Int).SetUint64(f.Hi)
	return hi.Lsh(hi, 64).Or(hi, new(big.Int).SetUint64(f.Lo))
}

// String renders the fingerprint in decimal.
func (f Fingerprint) String() string {
	return f.BigInt().String()
}

func (f Fingerprint) Hex() string {
	return fmt.Sprintf("%016x%016x", f.Hi, f.Lo)
}

func (f Fingerprint) Bytes() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], f.Hi)
	binary.BigEndian.PutUint64(b[8:], f.Lo)
	return b
}

// ParseFingerprint reads a decimal fingerprint as produced by String.
func ParseFingerprint(s string) (Fingerprint, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 || n.BitLen() > 128 {
		return Fingerprint{}, fmt.Errorf("invalid fingerprint %q", s)
	}
	lo := new(big.Int).And(n, new(big.Int).SetUint64(^uint64(0)))
	hi := new(big.Int).Rsh(n, 64)
	return Fingerprint{Hi: hi.Uint64(), Lo: lo.Uint64()}, nil
}
