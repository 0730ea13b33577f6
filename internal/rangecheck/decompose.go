// decompose.go - Out-of-circuit limb decomposition helpers.
//
// These are byte-packing utilities for tests and wire encoding. They are
// never used for witness assignment: the circuit path decomposes through a
// solver hint and fails closed on overflow, while these helpers truncate
// and report the truncation to the caller.

package rangecheck

import "math/big"

// DecomposeToBytes returns the little-endian byte decomposition of v padded
// or truncated to n bytes. The second return is true when the most
// significant bytes were truncated to fit.
func DecomposeToBytes(v *big.Int, n int) ([]byte, bool) {
	be := v.Bytes()
	le := make([]byte, len(be))
	for i, b := range be {
		le[len(be)-1-i] = b
	}

	for len(le) < n {
		le = append(le, 0)
	}
	if len(le) > n {
		return le[:n], true
	}
	return le, false
}

// DecomposeToBytePairs returns the little-endian 16-bit limb decomposition
// of v padded or truncated to n limbs, with a truncation flag.
func DecomposeToBytePairs(v *big.Int, n int) ([]uint16, bool) {
	bytes, _ := DecomposeToBytes(v, maxInt(byteLen(v), 2*n))
	if len(bytes)%2 != 0 {
		bytes = append(bytes, 0)
	}

	pairs := make([]uint16, 0, len(bytes)/2)
	for i := 0; i+1 < len(bytes); i += 2 {
		pairs = append(pairs, uint16(bytes[i])|uint16(bytes[i+1])<<8)
	}

	for len(pairs) < n {
		pairs = append(pairs, 0)
	}
	if len(pairs) > n {
		return pairs[:n], true
	}
	return pairs, false
}

func byteLen(v *big.Int) int {
	return len(v.Bytes())
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
