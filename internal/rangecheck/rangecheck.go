// rangecheck.go - In-circuit range check via limb decomposition and lookup.
//
// A checked value v is decomposed into little-endian limbs of limbBits bits
// each, every limb is constrained through a shared lookup table holding
// [0, 2^limbBits), and the limbs are recombined through a running-sum chain
// whose most significant cell starts at zero. This certifies
// v < 2^(limbBits*nLimbs) with no field wrap-around.

package rangecheck

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/lookup/logderivlookup"
)

func init() {
	solver.RegisterHint(decomposeHint)
}

// Chip checks values against a fixed [0, 2^limbBits) lookup table. The table
// is populated once at construction and shared by every Check call, so one
// chip per circuit column is enough regardless of the number of rows.
type Chip struct {
	api      frontend.API
	table    logderivlookup.Table
	limbBits int
	nLimbs   int
}

// New builds a chip whose Check constrains values to
// [0, 2^(limbBits*nLimbs)). The byte layout is limbBits=8, nLimbs=N_BYTES;
// the wide layout is limbBits=16, nLimbs=N_BYTES/2.
func New(api frontend.API, limbBits, nLimbs int) *Chip {
	table := logderivlookup.New(api)
	for i := 0; i < 1<<limbBits; i++ {
		table.Insert(i)
	}
	return &Chip{
		api:      api,
		table:    table,
		limbBits: limbBits,
		nLimbs:   nLimbs,
	}
}

// Check constrains v to [0, 2^(limbBits*nLimbs)).
func (c *Chip) Check(v frontend.Variable) error {
	limbs, err := c.api.Compiler().NewHint(decomposeHint, c.nLimbs, c.limbBits, v)
	if err != nil {
		return fmt.Errorf("decompose hint: %w", err)
	}

	// Looking a limb up binds it to a valid table index; the table stores
	// the identity so the returned entry must equal the limb itself.
	looked := c.table.Lookup(limbs...)
	for i := range limbs {
		c.api.AssertIsEqual(looked[i], limbs[i])
	}

	// Running-sum recombination, most significant limb first. Starting the
	// accumulator at zero is what rejects values above the limb capacity.
	base := new(big.Int).Lsh(big.NewInt(1), uint(c.limbBits))
	acc := frontend.Variable(0)
	for i := c.nLimbs - 1; i >= 0; i-- {
		acc = c.api.Add(c.api.Mul(acc, base), limbs[i])
	}
	c.api.AssertIsEqual(acc, v)
	return nil
}

// decomposeHint computes the little-endian limb decomposition out-circuit.
// inputs[0] is the limb width in bits, inputs[1] the value; outputs receive
// one limb each. A value exceeding the limb capacity leaves a remainder that
// the running-sum constraint then rejects.
func decomposeHint(_ *big.Int, inputs, outputs []*big.Int) error {
	if len(inputs) != 2 {
		return fmt.Errorf("expected 2 inputs, got %d", len(inputs))
	}
	limbBits := uint(inputs[0].Uint64())
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), limbBits), big.NewInt(1))

	rest := new(big.Int).Set(inputs[1])
	for i := range outputs {
		outputs[i].And(rest, mask)
		rest.Rsh(rest, limbBits)
	}
	return nil
}
