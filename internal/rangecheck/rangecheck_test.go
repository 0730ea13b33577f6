package rangecheck

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
)

type checkCircuit struct {
	V frontend.Variable

	limbBits int
	nLimbs   int
}

func (c *checkCircuit) Define(api frontend.API) error {
	return New(api, c.limbBits, c.nLimbs).Check(c.V)
}

func TestCheckTwoByteBoundary(t *testing.T) {
	assert := test.NewAssert(t)
	circuit := &checkCircuit{limbBits: 8, nLimbs: 2}

	assert.ProverSucceeded(circuit, &checkCircuit{V: (1 << 16) - 2}, test.WithCurves(ecc.BN254))
	assert.ProverSucceeded(circuit, &checkCircuit{V: 2}, test.WithCurves(ecc.BN254))
	assert.ProverSucceeded(circuit, &checkCircuit{V: 0}, test.WithCurves(ecc.BN254))
	assert.ProverFailed(circuit, &checkCircuit{V: 1 << 16}, test.WithCurves(ecc.BN254))
}

func TestCheckWideLimbs(t *testing.T) {
	circuit := &checkCircuit{limbBits: 16, nLimbs: 2}

	if err := test.IsSolved(circuit, &checkCircuit{V: 0x1f2f3f4f}, ecc.BN254.ScalarField()); err != nil {
		t.Fatalf("in-range value rejected: %v", err)
	}
	if err := test.IsSolved(circuit, &checkCircuit{V: uint64(1) << 32}, ecc.BN254.ScalarField()); err == nil {
		t.Fatal("out-of-range value accepted")
	}
}

func TestCheckRejectsFieldWrap(t *testing.T) {
	// -1 in the field is a huge value and must not pass a 2-byte check.
	circuit := &checkCircuit{limbBits: 8, nLimbs: 2}
	if err := test.IsSolved(circuit, &checkCircuit{V: -1}, ecc.BN254.ScalarField()); err == nil {
		t.Fatal("field wrap-around accepted")
	}
}
