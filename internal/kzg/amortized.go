// amortized.go - FK23 amortized opening proofs.
//
// A single h-vector per committed column replaces one Kate division per
// query: computing h costs two length-2d FFTs and a Hadamard product, after
// which any single opening is one multi-scalar multiplication and all d
// domain openings at once are one more FFT. The results agree bit for bit
// with the naive Kate-division proofs.

package kzg

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"
	"golang.org/x/sync/errgroup"
)

// ComputeH builds the h-vector for one coefficient-form polynomial of
// power-of-two length d:
//
//	h = IFFT_2d( FFT_2d(reversed SRS powers) . FFT_2d(front-padded coeffs) )
//
// truncated to its first d entries. The two forward FFTs are independent
// and run concurrently. The vector is reused across every opening query
// against the same commitment and discarded when the column changes.
func (p *Params) ComputeH(poly []fr.Element) ([]bn254.G1Affine, error) {
	d := len(poly)
	if d == 0 || d&(d-1) != 0 {
		return nil, fmt.Errorf("kzg: polynomial length %d is not a power of two", d)
	}
	if len(p.SRS.Pk.G1) < d {
		return nil, fmt.Errorf("kzg: setup holds %d powers, polynomial needs %d: %w", len(p.SRS.Pk.G1), d, ErrSRSTooSmall)
	}
	n := 2 * d
	domain2d := fft.NewDomain(uint64(n))

	// y: the first d SRS powers reversed, zero-padded to 2d.
	y := make([]bn254.G1Jac, n)
	for i := 0; i < d; i++ {
		y[i].FromAffine(&p.SRS.Pk.G1[d-1-i])
	}

	// v: coefficients padded at the front, occupying the back half.
	v := make([]fr.Element, n)
	copy(v[d:], poly)

	var g errgroup.Group
	g.Go(func() error {
		return g1FFT(y, domain2d.Generator)
	})
	g.Go(func() error {
		domain2d.FFT(v, fft.DIF)
		fft.BitReverse(v)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Hadamard product, then back to coefficient space.
	for i := range y {
		y[i].ScalarMultiplication(&y[i], v[i].BigInt(new(big.Int)))
	}
	if err := g1FFTInverse(y, domain2d.Generator); err != nil {
		return nil, err
	}

	return bn254.BatchJacobianToAffineG1(y[:d]), nil
}

// ComputeHForColumns builds one h-vector per column polynomial, one
// goroutine per column. Each column owns its output slot.
func (p *Params) ComputeHForColumns(polys [][]fr.Element) ([][]bn254.G1Affine, error) {
	hs := make([][]bn254.G1Affine, len(polys))
	var g errgroup.Group
	for i := range polys {
		i := i
		g.Go(func() error {
			h, err := p.ComputeH(polys[i])
			if err != nil {
				return fmt.Errorf("column %d: %w", i, err)
			}
			hs[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return hs, nil
}

// OpenAllPoints produces the quotient commitment for every domain point in
// one pass: entry i of the result proves the opening at omega^i.
func (p *Params) OpenAllPoints(h []bn254.G1Affine) ([]bn254.G1Affine, error) {
	if uint64(len(h)) != p.Domain.Cardinality {
		return nil, fmt.Errorf("kzg: h-vector length %d does not match domain size %d", len(h), p.Domain.Cardinality)
	}
	points := make([]bn254.G1Jac, len(h))
	for i := range h {
		points[i].FromAffine(&h[i])
	}
	if err := g1FFT(points, p.Domain.Generator); err != nil {
		return nil, err
	}
	return bn254.BatchJacobianToAffineG1(points), nil
}

// OpenAtPointAmortized produces the quotient commitment for one arbitrary
// point as the multi-scalar multiplication of h by the point's powers.
func (p *Params) OpenAtPointAmortized(h []bn254.G1Affine, point fr.Element) (bn254.G1Affine, error) {
	powers := make([]fr.Element, len(h))
	powers[0].SetOne()
	for i := 1; i < len(powers); i++ {
		powers[i].Mul(&powers[i-1], &point)
	}
	var acc bn254.G1Jac
	if _, err := acc.MultiExp(h, powers, ecc.MultiExpConfig{}); err != nil {
		return bn254.G1Affine{}, fmt.Errorf("kzg: amortized opening: %w", err)
	}
	var res bn254.G1Affine
	res.FromJacobian(&acc)
	return res, nil
}
