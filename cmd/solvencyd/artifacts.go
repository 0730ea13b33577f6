// artifacts.go - CBOR envelopes for proof artifacts
//
// The envelope carries run parameters plus the positional byte streams
// (commitments first, then the opening proof) so a verifier process can
// reconstruct everything without the prover's state.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
)

// GrandSumArtifact is the published solvency claim for one round
type GrandSumArtifact struct {
	K           int      `cbor:"k"`
	NUsers      int      `cbor:"n_users"`
	NCurrencies int      `cbor:"n_currencies"`
	ColStart    int      `cbor:"col_start"`
	ColEnd      int      `cbor:"col_end"`
	Totals      []string `cbor:"totals"`
	Commitments []byte   `cbor:"commitments"`
	Proof       []byte   `cbor:"proof"`
	SnarkProof  []byte   `cbor:"snark_proof,omitempty"`
}

// InclusionArtifact is one user's inclusion claim
type InclusionArtifact struct {
	K           int    `cbor:"k"`
	NCurrencies int    `cbor:"n_currencies"`
	Commitments []byte `cbor:"commitments"`
	Claim       []byte `cbor:"claim"`
}

func writeArtifact(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}
	data, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	return nil
}

func readArtifact(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading artifact: %w", err)
	}
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding artifact: %w", err)
	}
	return nil
}
