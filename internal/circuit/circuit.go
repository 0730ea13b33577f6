// circuit.go - Grand-sum circuit over the user balance table.
//
// One row per user, one column per currency plus a username column. Every
// balance cell is range checked, and for each currency the circuit asserts
// sum(balances) + negTotal == 0 against the public instance, so the single
// public input per currency is the negated grand total.

package circuit

import (
	"fmt"

	"github.com/consensys/gnark/frontend"

	"solvency/internal/rangecheck"
)

// Shape fixes the circuit dimensions for one deployment. Validated once at
// construction; the constraint builder iterates over it dynamically.
type Shape struct {
	NUsers      int
	NCurrencies int
	NBytes      int
}

func (s Shape) Validate() error {
	if s.NUsers <= 0 {
		return fmt.Errorf("circuit: invalid user count %d", s.NUsers)
	}
	if s.NCurrencies <= 0 {
		return fmt.Errorf("circuit: invalid currency count %d", s.NCurrencies)
	}
	if s.NBytes <= 0 || s.NBytes > 31 {
		return fmt.Errorf("circuit: invalid balance width %d bytes", s.NBytes)
	}
	return nil
}

// ColumnConfig selects how balance columns are constrained. The production
// config range checks every cell; the no-range-check config exists for
// prototyping only.
type ColumnConfig interface {
	constrainBalances(api frontend.API, shape Shape, balances []frontend.Variable) error
}

// RangeCheckConfig constrains every balance to [0, 2^(8*NBytes)) through a
// shared lookup table, loaded once per circuit.
type RangeCheckConfig struct {
	// LimbBits selects the decomposition width: 8 for byte limbs, 16 for
	// the wide layout. NBytes*8 must be a multiple of it.
	LimbBits int
}

func (cfg RangeCheckConfig) constrainBalances(api frontend.API, shape Shape, balances []frontend.Variable) error {
	limbBits := cfg.LimbBits
	if limbBits == 0 {
		limbBits = 16
	}
	if (8*shape.NBytes)%limbBits != 0 {
		return fmt.Errorf("circuit: %d-bit limbs do not divide %d-byte balances", limbBits, shape.NBytes)
	}
	nLimbs := 8 * shape.NBytes / limbBits

	chip := rangecheck.New(api, limbBits, nLimbs)
	for _, b := range balances {
		if err := chip.Check(b); err != nil {
			return err
		}
	}
	return nil
}

// NoRangeCheckConfig skips balance range checks entirely. It admits field
// wrap-around in the grand sum and must never back a claim handed to real
// verifiers; it exists so small prototypes can skip the lookup table.
type NoRangeCheckConfig struct{}

func (NoRangeCheckConfig) constrainBalances(frontend.API, Shape, []frontend.Variable) error {
	return nil
}

// GrandSumCircuit is the witness layout: usernames and balances are secret,
// the negated per-currency totals are the public instance. Balances are
// row-major, row*NCurrencies+currency. Usernames are carried as witness
// cells but not constrained; they are bound by the column commitment, not
// by the circuit.
type GrandSumCircuit struct {
	Usernames []frontend.Variable
	Balances  []frontend.Variable
	NegTotals []frontend.Variable `gnark:",public"`

	shape Shape
	cfg   ColumnConfig
}

// NewGrandSumCircuit allocates the circuit template for compilation.
func NewGrandSumCircuit(shape Shape, cfg ColumnConfig) (*GrandSumCircuit, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = RangeCheckConfig{}
	}
	return &GrandSumCircuit{
		Usernames: make([]frontend.Variable, shape.NUsers),
		Balances:  make([]frontend.Variable, shape.NUsers*shape.NCurrencies),
		NegTotals: make([]frontend.Variable, shape.NCurrencies),
		shape:     shape,
		cfg:       cfg,
	}, nil
}

func (c *GrandSumCircuit) Define(api frontend.API) error {
	if err := c.cfg.constrainBalances(api, c.shape, c.Balances); err != nil {
		return err
	}

	for j := 0; j < c.shape.NCurrencies; j++ {
		sum := frontend.Variable(0)
		for i := 0; i < c.shape.NUsers; i++ {
			sum = api.Add(sum, c.Balances[i*c.shape.NCurrencies+j])
		}
		api.AssertIsEqual(api.Add(sum, c.NegTotals[j]), 0)
	}
	return nil
}
