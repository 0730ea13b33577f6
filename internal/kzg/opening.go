// opening.go - Batched KZG openings at a single evaluation point.
//
// Every opening in the protocol is a batch of column polynomials opened at
// one point: zero for grand sums, omega^i for user inclusion. Quotients stay
// independent per polynomial; the verifier folds the batch with one
// transcript-derived challenge and runs a single pairing check.

package kzg

import (
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	fiatshamir "github.com/consensys/gnark-crypto/fiat-shamir"
	"golang.org/x/crypto/sha3"
)

// BatchProof attests f_i(point) = ClaimedValues[i] for a batch of committed
// polynomials at one shared point.
type BatchProof struct {
	ClaimedValues []fr.Element
	Quotients     []bn254.G1Affine
}

// WriteTo serializes the proof in evaluate-then-quotient order.
func (p *BatchProof) WriteTo(w io.Writer) (int64, error) {
	enc := bn254.NewEncoder(w)
	if err := enc.Encode(p.ClaimedValues); err != nil {
		return enc.BytesWritten(), err
	}
	if err := enc.Encode(p.Quotients); err != nil {
		return enc.BytesWritten(), err
	}
	return enc.BytesWritten(), nil
}

// ReadFrom deserializes a proof written by WriteTo.
func (p *BatchProof) ReadFrom(r io.Reader) (int64, error) {
	dec := bn254.NewDecoder(r)
	if err := dec.Decode(&p.ClaimedValues); err != nil {
		return dec.BytesRead(), err
	}
	if err := dec.Decode(&p.Quotients); err != nil {
		return dec.BytesRead(), err
	}
	return dec.BytesRead(), nil
}

// OpeningProof is a single-polynomial opening, the unbatched special case.
type OpeningProof struct {
	Quotient     bn254.G1Affine
	ClaimedValue fr.Element
}

// OpenAtPoint opens every polynomial at the same point: evaluate, divide by
// (X - point), commit the quotient. The quotients share the transcript
// round but stay independent.
func (p *Params) OpenAtPoint(polys [][]fr.Element, point fr.Element) (*BatchProof, error) {
	proof := &BatchProof{
		ClaimedValues: make([]fr.Element, len(polys)),
		Quotients:     make([]bn254.G1Affine, len(polys)),
	}
	for i, poly := range polys {
		proof.ClaimedValues[i] = eval(poly, point)
		quotient := dividePolyByXminusA(append([]fr.Element(nil), poly...), proof.ClaimedValues[i], point)
		digest, err := p.Commit(quotient)
		if err != nil {
			return nil, fmt.Errorf("kzg: committing quotient %d: %w", i, err)
		}
		proof.Quotients[i] = digest
	}
	return proof, nil
}

// CreateNaiveProof opens one polynomial at one point by Kate division. The
// amortized openings must agree with it bit for bit.
func (p *Params) CreateNaiveProof(poly []fr.Element, point fr.Element) (OpeningProof, error) {
	value := eval(poly, point)
	quotient := dividePolyByXminusA(append([]fr.Element(nil), poly...), value, point)
	digest, err := p.Commit(quotient)
	if err != nil {
		return OpeningProof{}, fmt.Errorf("kzg: committing quotient: %w", err)
	}
	return OpeningProof{Quotient: digest, ClaimedValue: value}, nil
}

// VerifyOpening checks a batch proof against the column commitments. The
// batch is folded by a Keccak-derived challenge into one pairing check:
// any mismatch rejects the whole batch. On success the claimed evaluations
// are returned for the caller to post-process.
func (p *Params) VerifyOpening(commitments []Digest, point fr.Element, proof *BatchProof) (bool, []fr.Element, error) {
	if len(commitments) != len(proof.ClaimedValues) || len(commitments) != len(proof.Quotients) {
		return false, nil, fmt.Errorf("kzg: %d commitments against %d values and %d quotients",
			len(commitments), len(proof.ClaimedValues), len(proof.Quotients))
	}
	if len(commitments) == 0 {
		return false, nil, fmt.Errorf("kzg: empty batch")
	}

	gamma, err := deriveGamma(point, commitments, proof)
	if err != nil {
		return false, nil, err
	}

	// Fold commitments, claimed values and quotients by powers of gamma.
	powers := make([]fr.Element, len(commitments))
	powers[0].SetOne()
	for i := 1; i < len(powers); i++ {
		powers[i].Mul(&powers[i-1], &gamma)
	}

	var foldedC, foldedQ bn254.G1Jac
	if _, err := foldedC.MultiExp(commitments, powers, ecc.MultiExpConfig{}); err != nil {
		return false, nil, fmt.Errorf("kzg: folding commitments: %w", err)
	}
	if _, err := foldedQ.MultiExp(proof.Quotients, powers, ecc.MultiExpConfig{}); err != nil {
		return false, nil, fmt.Errorf("kzg: folding quotients: %w", err)
	}
	var foldedValue fr.Element
	for i := range proof.ClaimedValues {
		var term fr.Element
		term.Mul(&proof.ClaimedValues[i], &powers[i])
		foldedValue.Add(&foldedValue, &term)
	}

	ok, err := p.pairingCheck(foldedC, foldedQ, point, foldedValue)
	if err != nil {
		return false, nil, err
	}
	if !ok {
		return false, nil, nil
	}
	return true, append([]fr.Element(nil), proof.ClaimedValues...), nil
}

// VerifyPointProof checks one unbatched opening against its commitment.
func (p *Params) VerifyPointProof(commitment Digest, proof OpeningProof, point fr.Element) (bool, error) {
	var c, q bn254.G1Jac
	c.FromAffine(&commitment)
	q.FromAffine(&proof.Quotient)
	return p.pairingCheck(c, q, point, proof.ClaimedValue)
}

// pairingCheck verifies e(C - v*g1 + z*pi, g2) == e(pi, tau*g2), arranged as
// a product of two pairings equal to one.
func (p *Params) pairingCheck(commitment, quotient bn254.G1Jac, point, value fr.Element) (bool, error) {
	_, _, g1, _ := bn254.Generators()

	var vG1, zQ bn254.G1Jac
	vG1.FromAffine(&g1)
	vG1.ScalarMultiplication(&vG1, value.BigInt(new(big.Int)))
	zQ.Set(&quotient)
	zQ.ScalarMultiplication(&zQ, point.BigInt(new(big.Int)))

	var lhs bn254.G1Jac
	lhs.Set(&commitment)
	lhs.SubAssign(&vG1)
	lhs.AddAssign(&zQ)

	var lhsAff, quotientAff bn254.G1Affine
	lhsAff.FromJacobian(&lhs)
	quotientAff.FromJacobian(&quotient)

	g2, tauG2 := p.G2Generator()
	var negTauG2 bn254.G2Affine
	negTauG2.Neg(&tauG2)

	ok, err := bn254.PairingCheck(
		[]bn254.G1Affine{lhsAff, quotientAff},
		[]bn254.G2Affine{g2, negTauG2},
	)
	if err != nil {
		return false, fmt.Errorf("kzg: pairing check: %w", err)
	}
	return ok, nil
}

// deriveGamma binds the folding challenge to the point, the commitments and
// the full proof through a Keccak-256 Fiat-Shamir transcript.
func deriveGamma(point fr.Element, commitments []Digest, proof *BatchProof) (fr.Element, error) {
	var gamma fr.Element
	fs := fiatshamir.NewTranscript(sha3.NewLegacyKeccak256(), "gamma")

	pointBytes := point.Bytes()
	if err := fs.Bind("gamma", pointBytes[:]); err != nil {
		return gamma, err
	}
	for i := range commitments {
		b := commitments[i].RawBytes()
		if err := fs.Bind("gamma", b[:]); err != nil {
			return gamma, err
		}
	}
	for i := range proof.ClaimedValues {
		b := proof.ClaimedValues[i].Bytes()
		if err := fs.Bind("gamma", b[:]); err != nil {
			return gamma, err
		}
	}
	for i := range proof.Quotients {
		b := proof.Quotients[i].RawBytes()
		if err := fs.Bind("gamma", b[:]); err != nil {
			return gamma, err
		}
	}

	b, err := fs.ComputeChallenge("gamma")
	if err != nil {
		return gamma, err
	}
	gamma.SetBytes(b)
	return gamma, nil
}

// eval computes p(point) by Horner's rule.
func eval(p []fr.Element, point fr.Element) fr.Element {
	var res fr.Element
	n := len(p)
	res.Set(&p[n-1])
	for i := n - 2; i >= 0; i-- {
		res.Mul(&res, &point).Add(&res, &p[i])
	}
	return res
}

// dividePolyByXminusA computes (f-f(a))/(x-a) in canonical basis, in
// regular form. f memory is re-used for the result.
func dividePolyByXminusA(f []fr.Element, fa, a fr.Element) []fr.Element {
	// first we compute f-f(a)
	f[0].Sub(&f[0], &fa)

	// now we use synthetic division to divide by x-a
	var t fr.Element
	for i := len(f) - 2; i >= 0; i-- {
		t.Mul(&f[i+1], &a)
		f[i].Add(&f[i], &t)
	}

	// the result is of degree deg(f)-1
	return f[1:]
}
