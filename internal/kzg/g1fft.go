// g1fft.go - Radix-2 FFT over G1 group elements.
//
// The scalar FFT package transforms []fr.Element only; the FK23 pipeline
// also needs the same transform with group elements in place of scalars and
// scalar multiplication in place of field multiplication. Input and output
// are in natural order: the points are bit-reverse permuted first, then the
// usual DIT butterfly stages run with precomputed twiddles.

package kzg

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// g1FFT transforms points in place by the n-th root of unity omega, where
// n = len(points) is a power of two.
func g1FFT(points []bn254.G1Jac, omega fr.Element) error {
	n := len(points)
	if n == 0 || n&(n-1) != 0 {
		return fmt.Errorf("kzg: fft length %d is not a power of two", n)
	}
	logN := bits.TrailingZeros(uint(n))

	for i := 0; i < n; i++ {
		j := int(bits.Reverse(uint(i)) >> (bits.UintSize - logN))
		if i < j {
			points[i], points[j] = points[j], points[i]
		}
	}

	// Twiddles for the widest stage; narrower stages stride through them.
	twiddles := make([]*big.Int, n/2)
	var w fr.Element
	w.SetOne()
	for i := range twiddles {
		twiddles[i] = w.BigInt(new(big.Int))
		w.Mul(&w, &omega)
	}

	var t bn254.G1Jac
	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		stride := n / size
		for start := 0; start < n; start += size {
			for j := 0; j < half; j++ {
				a := &points[start+j]
				b := &points[start+j+half]
				t.ScalarMultiplication(b, twiddles[j*stride])
				b.Set(a)
				b.SubAssign(&t)
				a.AddAssign(&t)
			}
		}
	}
	return nil
}

// g1FFTInverse transforms by omega^-1 and rescales by 1/n.
func g1FFTInverse(points []bn254.G1Jac, omega fr.Element) error {
	var omegaInv fr.Element
	omegaInv.Inverse(&omega)
	if err := g1FFT(points, omegaInv); err != nil {
		return err
	}

	var nInv fr.Element
	nInv.SetUint64(uint64(len(points)))
	nInv.Inverse(&nInv)
	scale := nInv.BigInt(new(big.Int))
	for i := range points {
		points[i].ScalarMultiplication(&points[i], scale)
	}
	return nil
}
