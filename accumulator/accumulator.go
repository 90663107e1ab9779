// Package accumulator implements the multiset combiner behind the dataset
// fingerprint.
//
// State is an element of the integers modulo 2^128 under addition. Folding a
// row digest adds it, removing a row adds its additive inverse. Addition is
// commutative and associative, so the state does not depend on row order or
// on how rows were split into batches, and every fold can be undone exactly.
// Folding the same digest twice moves the state twice: duplicates count.
package accumulator

import (
	"encoding/binary"
	"math/bits"
)

type (
	// Digest is a 128 bit row or schema digest.
	Digest struct {
		Hi, Lo uint64
	}

	// State is the running sum of folded digests. The zero value is the
	// group identity.
	State struct {
		hi, lo uint64
	}

	Sign int8
)

const (
	Positive Sign = 1
	Negative Sign = -1
)

// Bytes returns the big endian encoding of d.
func (d Digest) Bytes() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], d.Hi)
	binary.BigEndian.PutUint64(b[8:], d.Lo)
	return b
}

// Fold adds d to the state, or subtracts it when sign is Negative.
func (s *State) Fold(d Digest, sign Sign) {
	if sign == Negative {
		s.sub(d.Hi, d.Lo)
		return
	}
	s.add(d.Hi, d.Lo)
}

// Merge adds another partial state, as if every digest folded into o had
// been folded into s.
func (s *State) Merge(o State) {
	s.add(o.hi, o.lo)
}

// MergeSigned merges o, or its inverse when sign is Negative.
func (s *State) MergeSigned(o State, sign Sign) {
	if sign == Negative {
		s.sub(o.hi, o.lo)
		return
	}
	s.add(o.hi, o.lo)
}

// Negate returns the additive inverse of s.
func (s State) Negate() State {
	var n State
	n.sub(s.hi, s.lo)
	return n
}

func (s State) IsIdentity() bool {
	return s.hi == 0 && s.lo == 0
}

// Bytes returns the big endian encoding of the state.
func (s State) Bytes() [16]byte {
	return Digest{Hi: s.hi, Lo: s.lo}.Bytes()
}

func (s *State) add(hi, lo uint64) {
	var carry uint64
	s.lo, carry = bits.Add64(s.lo, lo, 0)
	s.hi, _ = bits.Add64(s.hi, hi, carry)
}

func (s *State) sub(hi, lo uint64) {
	var borrow uint64
	s.lo, borrow = bits.Sub64(s.lo, lo, 0)
	s.hi, _ = bits.Sub64(s.hi, hi, borrow)
}
