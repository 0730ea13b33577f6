// transcript.go - Positional wire format for commitments and claims.
//
// Order on the wire is the contract: column commitments first, in column
// order, then evaluations, then quotients. Readers must consume in exactly
// the write order; columns are positional, not named.

package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"solvency/internal/kzg"
)

// WriteCommitments serializes the column commitments positionally.
func WriteCommitments(w io.Writer, commitments []kzg.Digest) error {
	enc := bn254.NewEncoder(w)
	if err := enc.Encode(commitments); err != nil {
		return fmt.Errorf("protocol: writing commitments: %w", err)
	}
	return nil
}

// ReadCommitments reads back commitments written by WriteCommitments.
func ReadCommitments(r io.Reader) ([]kzg.Digest, error) {
	var commitments []kzg.Digest
	dec := bn254.NewDecoder(r)
	if err := dec.Decode(&commitments); err != nil {
		return nil, fmt.Errorf("protocol: reading commitments: %w", err)
	}
	return commitments, nil
}

// WriteInclusionClaim serializes a claim: row values first, then the batch
// proof in evaluate-then-quotient order.
func WriteInclusionClaim(w io.Writer, claim *InclusionClaim) error {
	if err := binary.Write(w, binary.BigEndian, uint64(claim.UserIndex)); err != nil {
		return fmt.Errorf("protocol: writing user index: %w", err)
	}

	enc := bn254.NewEncoder(w)
	var scratch fr.Element
	scratch.SetBigInt(claim.Username)
	if err := enc.Encode(&scratch); err != nil {
		return fmt.Errorf("protocol: writing username: %w", err)
	}
	balances := make([]fr.Element, len(claim.Balances))
	for i, b := range claim.Balances {
		balances[i].SetBigInt(b)
	}
	if err := enc.Encode(balances); err != nil {
		return fmt.Errorf("protocol: writing balances: %w", err)
	}
	if _, err := claim.Proof.WriteTo(w); err != nil {
		return fmt.Errorf("protocol: writing proof: %w", err)
	}
	return nil
}

// ReadInclusionClaim reads back a claim written by WriteInclusionClaim.
func ReadInclusionClaim(r io.Reader) (*InclusionClaim, error) {
	claim := &InclusionClaim{Proof: &kzg.BatchProof{}}

	var userIndex uint64
	if err := binary.Read(r, binary.BigEndian, &userIndex); err != nil {
		return nil, fmt.Errorf("protocol: reading user index: %w", err)
	}
	claim.UserIndex = int(userIndex)

	dec := bn254.NewDecoder(r)

	var username fr.Element
	if err := dec.Decode(&username); err != nil {
		return nil, fmt.Errorf("protocol: reading username: %w", err)
	}
	claim.Username = username.BigInt(new(big.Int))

	var balances []fr.Element
	if err := dec.Decode(&balances); err != nil {
		return nil, fmt.Errorf("protocol: reading balances: %w", err)
	}
	claim.Balances = make([]*big.Int, len(balances))
	for i := range balances {
		claim.Balances[i] = balances[i].BigInt(new(big.Int))
	}

	if _, err := claim.Proof.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("protocol: reading proof: %w", err)
	}
	return claim, nil
}
