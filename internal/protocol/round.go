// round.go - Proving-round state machine.
//
// One round walks Committed -> GrandSumPublished -> InclusionProven. The
// custodian commits the table (and optionally attests range validity with
// a Groth16 proof over the same rows), then publishes the grand-sum claim,
// then serves per-user inclusion claims on demand. Grand-sum and inclusion
// claims verify independently against the same commitments.

package protocol

import (
	"fmt"
	"math/big"

	"solvency/internal/circuit"
	"solvency/internal/entries"
	"solvency/internal/kzg"
)

type RoundState int

const (
	StateCommitted RoundState = iota
	StateGrandSumPublished
	StateInclusionProven
)

func (s RoundState) String() string {
	switch s {
	case StateCommitted:
		return "committed"
	case StateGrandSumPublished:
		return "grand-sum-published"
	case StateInclusionProven:
		return "inclusion-proven"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// GrandSumClaim is what the custodian publishes at the grand-sum step:
// the column range opened, the plaintext totals, the batch opening at zero
// and, when a proof system is attached, the Groth16 range attestation.
type GrandSumClaim struct {
	ColStart int
	ColEnd   int
	Totals   []*big.Int
	Proof    *kzg.BatchProof

	SnarkProof []byte
}

// InclusionClaim is handed to one user: their row index, the claimed row
// values and a batch opening of every column at omega^userIndex.
type InclusionClaim struct {
	UserIndex int
	Username  *big.Int
	Balances  []*big.Int
	Proof     *kzg.BatchProof
}

// Round is the custodian-side state for one snapshot.
type Round struct {
	state    RoundState
	snapshot *Snapshot
	entries  []*entries.Entry
	totals   []*big.Int

	proofSystem *circuit.ProofSystem
	snarkProof  []byte
}

// NewRound commits the table and, when ps is non-nil, generates the
// Groth16 proof binding range validity to the published totals. The round
// starts in the Committed state.
func NewRound(params *kzg.Params, ps *circuit.ProofSystem, userEntries []*entries.Entry, totals []*big.Int, nCurrencies int) (*Round, error) {
	if len(totals) != nCurrencies {
		return nil, fmt.Errorf("protocol: %d totals for %d currencies", len(totals), nCurrencies)
	}
	snapshot, err := NewSnapshot(params, userEntries, nCurrencies)
	if err != nil {
		return nil, err
	}

	r := &Round{
		state:       StateCommitted,
		snapshot:    snapshot,
		entries:     userEntries,
		totals:      totals,
		proofSystem: ps,
	}
	if ps != nil {
		r.snarkProof, err = ps.Prove(userEntries, totals)
		if err != nil {
			return nil, fmt.Errorf("protocol: range attestation: %w", err)
		}
	}
	return r, nil
}

func (r *Round) State() RoundState   { return r.state }
func (r *Round) Snapshot() *Snapshot { return r.snapshot }

// PublishGrandSums opens the balance columns at zero and advances the
// round. The username column is excluded through the snapshot's balance
// column range.
func (r *Round) PublishGrandSums() (*GrandSumClaim, error) {
	if r.state != StateCommitted {
		return nil, fmt.Errorf("protocol: cannot publish grand sums in state %s", r.state)
	}
	colStart, colEnd := r.snapshot.BalanceColumnRange()
	proof, err := r.snapshot.OpenGrandSums(colStart, colEnd)
	if err != nil {
		return nil, err
	}
	r.state = StateGrandSumPublished
	return &GrandSumClaim{
		ColStart:   colStart,
		ColEnd:     colEnd,
		Totals:     r.totals,
		Proof:      proof,
		SnarkProof: r.snarkProof,
	}, nil
}

// ProveInclusion serves one user's claim. Requires the grand sums to be
// published first; every later call keeps the round in InclusionProven.
func (r *Round) ProveInclusion(userIndex int) (*InclusionClaim, error) {
	if r.state == StateCommitted {
		return nil, fmt.Errorf("protocol: grand sums not yet published")
	}
	proof, err := r.snapshot.OpenUserPoints(userIndex)
	if err != nil {
		return nil, err
	}
	r.state = StateInclusionProven
	return r.claimFor(userIndex, proof), nil
}

// ProveInclusionAmortized is ProveInclusion served from the FK23
// h-vectors, computing them on first use.
func (r *Round) ProveInclusionAmortized(userIndex int) (*InclusionClaim, error) {
	if r.state == StateCommitted {
		return nil, fmt.Errorf("protocol: grand sums not yet published")
	}
	if r.snapshot.hVectors == nil {
		if err := r.snapshot.ComputeHVectors(); err != nil {
			return nil, err
		}
	}
	proof, err := r.snapshot.OpenUserPointsAmortized(userIndex)
	if err != nil {
		return nil, err
	}
	r.state = StateInclusionProven
	return r.claimFor(userIndex, proof), nil
}

func (r *Round) claimFor(userIndex int, proof *kzg.BatchProof) *InclusionClaim {
	entry := r.entries[userIndex]
	return &InclusionClaim{
		UserIndex: userIndex,
		Username:  entry.UsernameBigInt(),
		Balances:  entry.Balances(),
		Proof:     proof,
	}
}

// VerifyGrandSumClaim checks a published claim against the positional
// commitments: the Groth16 attestation when present, then the opening at
// zero with the totals scaled by the domain size.
func VerifyGrandSumClaim(params *kzg.Params, ps *circuit.ProofSystem, commitments []kzg.Digest, claim *GrandSumClaim) (bool, []*big.Int, error) {
	if claim.ColStart < 0 || claim.ColEnd > len(commitments) || claim.ColStart >= claim.ColEnd {
		return false, nil, fmt.Errorf("protocol: invalid column range [%d, %d)", claim.ColStart, claim.ColEnd)
	}
	if ps != nil {
		if claim.SnarkProof == nil {
			return false, nil, fmt.Errorf("protocol: claim carries no range attestation")
		}
		if err := ps.Verify(claim.SnarkProof, claim.Totals); err != nil {
			return false, nil, fmt.Errorf("protocol: range attestation: %w", err)
		}
	}
	return VerifyGrandSumOpenings(params, commitments[claim.ColStart:claim.ColEnd], claim.Proof, claim.Totals)
}

// VerifyInclusionClaim checks one user's claim against the positional
// commitments.
func VerifyInclusionClaim(params *kzg.Params, commitments []kzg.Digest, claim *InclusionClaim) (bool, error) {
	return VerifyUserInclusion(params, commitments, claim.UserIndex, claim.Proof, claim.Username, claim.Balances)
}
