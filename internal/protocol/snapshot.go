// snapshot.go - Committed view of one balance table.
//
// A snapshot interpolates the witness table into N_CURRENCIES+1 column
// polynomials over the 2^K domain (column 0 holds usernames, columns 1..N
// the currency balances, rows past the user count are zero) and commits to
// each column. The prover retains the polynomials to answer grand-sum and
// inclusion openings; verifiers only ever see the commitments.

package protocol

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/sync/errgroup"

	"solvency/internal/entries"
	"solvency/internal/kzg"
)

// Snapshot holds the column polynomials and their commitments for one
// proving round. Row order is fixed at construction: row i answers
// inclusion challenges at omega^i forever after.
type Snapshot struct {
	params      *kzg.Params
	nCurrencies int
	nUsers      int

	polynomials [][]fr.Element
	commitments []kzg.Digest

	// h-vectors, one per column, populated on demand by ComputeHVectors.
	hVectors [][]bn254.G1Affine
}

// NewSnapshot interpolates and commits every column, one goroutine per
// column. The user count may be any value up to the domain size; missing
// rows are zero-padded.
func NewSnapshot(params *kzg.Params, userEntries []*entries.Entry, nCurrencies int) (*Snapshot, error) {
	if nCurrencies <= 0 {
		return nil, entries.ErrNoCurrencies
	}
	if uint64(len(userEntries)) > params.PolyLength() {
		return nil, fmt.Errorf("protocol: %d users exceed domain size %d", len(userEntries), params.PolyLength())
	}
	for i, e := range userEntries {
		if len(e.Balances()) != nCurrencies {
			return nil, fmt.Errorf("protocol: row %d has %d balances, expected %d", i, len(e.Balances()), nCurrencies)
		}
	}

	nCols := nCurrencies + 1
	columns := make([][]fr.Element, nCols)
	for c := range columns {
		columns[c] = make([]fr.Element, len(userEntries))
	}
	for i, e := range userEntries {
		columns[0][i].SetBigInt(e.UsernameBigInt())
		for j, b := range e.Balances() {
			columns[j+1][i].SetBigInt(b)
		}
	}

	s := &Snapshot{
		params:      params,
		nCurrencies: nCurrencies,
		nUsers:      len(userEntries),
		polynomials: make([][]fr.Element, nCols),
		commitments: make([]kzg.Digest, nCols),
	}

	var g errgroup.Group
	for c := 0; c < nCols; c++ {
		c := c
		g.Go(func() error {
			poly, err := params.Interpolate(columns[c])
			if err != nil {
				return fmt.Errorf("column %d: %w", c, err)
			}
			digest, err := params.Commit(poly)
			if err != nil {
				return fmt.Errorf("column %d: %w", c, err)
			}
			s.polynomials[c] = poly
			s.commitments[c] = digest
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Snapshot) Params() *kzg.Params { return s.params }
func (s *Snapshot) NumUsers() int       { return s.nUsers }
func (s *Snapshot) NumColumns() int     { return s.nCurrencies + 1 }

// Commitments returns all column commitments in positional order, column 0
// first. Verifiers must read them back in the same order.
func (s *Snapshot) Commitments() []kzg.Digest {
	return append([]kzg.Digest(nil), s.commitments...)
}

// Polynomials exposes the retained column polynomials. Prover side only.
func (s *Snapshot) Polynomials() [][]fr.Element { return s.polynomials }

// BalanceColumnRange is the half-open column range covering the currency
// columns, excluding the username column. Grand-sum openings use exactly
// this range; hand-computing the offsets is how off-by-ones happen.
func (s *Snapshot) BalanceColumnRange() (int, int) {
	return 1, s.nCurrencies + 1
}

// UserChallenge is the evaluation point omega^userIndex for one row.
func (s *Snapshot) UserChallenge(userIndex int) (fr.Element, error) {
	var point fr.Element
	if userIndex < 0 || userIndex >= s.nUsers {
		return point, fmt.Errorf("protocol: user index %d out of range [0, %d)", userIndex, s.nUsers)
	}
	point.Exp(s.params.Domain.Generator, big.NewInt(int64(userIndex)))
	return point, nil
}

// OpenGrandSums opens the columns in [colStart, colEnd) at zero. The
// disclosed constant terms times the domain size are the grand totals.
func (s *Snapshot) OpenGrandSums(colStart, colEnd int) (*kzg.BatchProof, error) {
	if colStart < 0 || colEnd > s.NumColumns() || colStart >= colEnd {
		return nil, fmt.Errorf("protocol: invalid column range [%d, %d)", colStart, colEnd)
	}
	var zero fr.Element
	return s.params.OpenAtPoint(s.polynomials[colStart:colEnd], zero)
}

// OpenUserPoints opens every column, username included, at omega^userIndex.
func (s *Snapshot) OpenUserPoints(userIndex int) (*kzg.BatchProof, error) {
	point, err := s.UserChallenge(userIndex)
	if err != nil {
		return nil, err
	}
	return s.params.OpenAtPoint(s.polynomials, point)
}

// ComputeHVectors precomputes one FK23 h-vector per column. Call once per
// snapshot before serving amortized inclusion openings.
func (s *Snapshot) ComputeHVectors() error {
	hs, err := s.params.ComputeHForColumns(s.polynomials)
	if err != nil {
		return err
	}
	s.hVectors = hs
	return nil
}

// OpenUserPointsAmortized is OpenUserPoints served from the h-vectors: one
// multi-scalar multiplication per column instead of one Kate division.
func (s *Snapshot) OpenUserPointsAmortized(userIndex int) (*kzg.BatchProof, error) {
	if s.hVectors == nil {
		return nil, fmt.Errorf("protocol: h-vectors not computed")
	}
	point, err := s.UserChallenge(userIndex)
	if err != nil {
		return nil, err
	}
	proof := &kzg.BatchProof{
		ClaimedValues: make([]fr.Element, s.NumColumns()),
		Quotients:     make([]bn254.G1Affine, s.NumColumns()),
	}
	for c, poly := range s.polynomials {
		quotient, err := s.params.OpenAtPointAmortized(s.hVectors[c], point)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", c, err)
		}
		proof.Quotients[c] = quotient
		proof.ClaimedValues[c] = evalPoly(poly, point)
	}
	return proof, nil
}

// OpenAllUserPoints produces, per column, the quotient commitments for
// every row at once. Result[c][i] proves column c at omega^i. Columns run
// in parallel.
func (s *Snapshot) OpenAllUserPoints() ([][]bn254.G1Affine, error) {
	if s.hVectors == nil {
		return nil, fmt.Errorf("protocol: h-vectors not computed")
	}
	all := make([][]bn254.G1Affine, s.NumColumns())
	var g errgroup.Group
	for c := range s.hVectors {
		c := c
		g.Go(func() error {
			proofs, err := s.params.OpenAllPoints(s.hVectors[c])
			if err != nil {
				return fmt.Errorf("column %d: %w", c, err)
			}
			all[c] = proofs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

func evalPoly(p []fr.Element, point fr.Element) fr.Element {
	var res fr.Element
	for i := len(p) - 1; i >= 0; i-- {
		res.Mul(&res, &point).Add(&res, &p[i])
	}
	return res
}
