// params.go - KZG setup parameters over BN254.
//
// Params couples an SRS with the 2^K evaluation domain used to index rows.
// Commitments are plain multi-scalar multiplications with zero blinding so
// that chunk commitments combine homomorphically.

package kzg

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"
	gkzg "github.com/consensys/gnark-crypto/ecc/bn254/kzg"
)

// ErrSRSTooSmall reports a requested circuit size k larger than the
// available trusted-setup parameters. Surfaced at setup time, before any
// proving attempt.
var ErrSRSTooSmall = errors.New("kzg: k is too large for the given params")

// Digest is a commitment to one column polynomial.
type Digest = gkzg.Digest

// Params holds the proving and verifying sides of the setup for one domain
// size 2^K.
type Params struct {
	SRS    *gkzg.SRS
	Domain *fft.Domain
	K      int
}

// NewParams runs a trusted setup for domain size 2^k with the given secret
// tau. The SRS holds 2^k G1 powers, enough to commit any column polynomial
// and its Kate quotients.
func NewParams(k int, tau *big.Int) (*Params, error) {
	if k <= 0 || k > 28 {
		return nil, fmt.Errorf("kzg: invalid domain exponent %d", k)
	}
	srs, err := gkzg.NewSRS(uint64(1)<<k, tau)
	if err != nil {
		return nil, fmt.Errorf("kzg: generating srs: %w", err)
	}
	return &Params{SRS: srs, Domain: fft.NewDomain(uint64(1) << k), K: k}, nil
}

// NewUnsafeParams runs the setup with a locally sampled tau. Test and
// benchmark use only; the sampled secret lives in this process.
func NewUnsafeParams(k int) (*Params, error) {
	tau, err := rand.Int(rand.Reader, fr.Modulus())
	if err != nil {
		return nil, fmt.Errorf("kzg: sampling tau: %w", err)
	}
	if tau.Sign() == 0 {
		tau = big.NewInt(1)
	}
	return NewParams(k, tau)
}

// Downsize returns parameters for a smaller domain 2^k backed by the same
// setup, truncating the G1 powers. Returns ErrSRSTooSmall when k exceeds
// the loaded setup.
func (p *Params) Downsize(k int) (*Params, error) {
	if k > p.K {
		return nil, fmt.Errorf("kzg: requested 2^%d from a 2^%d setup: %w", k, p.K, ErrSRSTooSmall)
	}
	if k == p.K {
		return p, nil
	}
	truncated := &gkzg.SRS{Vk: p.SRS.Vk}
	truncated.Pk.G1 = p.SRS.Pk.G1[:uint64(1)<<k]
	return &Params{SRS: truncated, Domain: fft.NewDomain(uint64(1) << k), K: k}, nil
}

// PolyLength is the evaluation-domain size 2^K. Grand-sum verifiers multiply
// disclosed constant terms by this to recover integer totals.
func (p *Params) PolyLength() uint64 { return p.Domain.Cardinality }

// Commit commits to a coefficient-form polynomial. Blinding is the additive
// identity for every commitment in this protocol.
func (p *Params) Commit(poly []fr.Element) (Digest, error) {
	digest, err := gkzg.Commit(poly, p.SRS.Pk)
	if err != nil {
		return Digest{}, fmt.Errorf("kzg: committing: %w", err)
	}
	return digest, nil
}

// Interpolate maps a column of row evaluations to coefficient form over the
// 2^K domain, zero-padding missing rows. f(omega^i) equals evals[i].
func (p *Params) Interpolate(evals []fr.Element) ([]fr.Element, error) {
	n := int(p.Domain.Cardinality)
	if len(evals) > n {
		return nil, fmt.Errorf("kzg: %d evaluations exceed domain size %d", len(evals), n)
	}
	coeffs := make([]fr.Element, n)
	copy(coeffs, evals)
	p.Domain.FFTInverse(coeffs, fft.DIF)
	fft.BitReverse(coeffs)
	return coeffs, nil
}

// Save writes the SRS to disk.
func (p *Params) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = p.SRS.WriteTo(f)
	return err
}

// LoadParams reads an SRS from disk and downsizes it to domain 2^k.
// Returns ErrSRSTooSmall when the stored setup has fewer than 2^k powers.
func LoadParams(path string, k int) (*Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var srs gkzg.SRS
	if _, err := srs.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("kzg: reading srs: %w", err)
	}
	if uint64(len(srs.Pk.G1)) < uint64(1)<<k {
		return nil, fmt.Errorf("kzg: stored setup has %d powers, need 2^%d: %w", len(srs.Pk.G1), k, ErrSRSTooSmall)
	}
	loaded := &Params{SRS: &srs, Domain: fft.NewDomain(uint64(len(srs.Pk.G1))), K: bitLen(uint64(len(srs.Pk.G1)))}
	return loaded.Downsize(k)
}

// G2Generator returns the setup's G2 generator and tau power used by
// pairing checks.
func (p *Params) G2Generator() (bn254.G2Affine, bn254.G2Affine) {
	return p.SRS.Vk.G2[0], p.SRS.Vk.G2[1]
}

func bitLen(n uint64) int {
	k := 0
	for (uint64(1) << k) < n {
		k++
	}
	return k
}
