// prover.go - Groth16 proving and verification for the grand-sum circuit.

package circuit

import (
	"bytes"
	"fmt"
	"math/big"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"solvency/internal/entries"
)

// ProofSystem bundles the compiled constraint system and Groth16 keys for
// one circuit shape.
type ProofSystem struct {
	Shape Shape

	cfg ColumnConfig
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// Setup compiles the circuit for the given shape and runs the Groth16 setup.
func Setup(shape Shape, cfg ColumnConfig) (*ProofSystem, error) {
	template, err := NewGrandSumCircuit(shape, cfg)
	if err != nil {
		return nil, err
	}
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, template)
	if err != nil {
		return nil, fmt.Errorf("circuit compilation failed: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup failed: %w", err)
	}
	return &ProofSystem{Shape: shape, cfg: cfg, ccs: ccs, pk: pk, vk: vk}, nil
}

// SetupWithKeys compiles the circuit and loads or generates keys at the
// given paths.
func SetupWithKeys(shape Shape, cfg ColumnConfig, pkPath, vkPath string) (*ProofSystem, error) {
	template, err := NewGrandSumCircuit(shape, cfg)
	if err != nil {
		return nil, err
	}
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, template)
	if err != nil {
		return nil, fmt.Errorf("circuit compilation failed: %w", err)
	}
	pk, vk, err := SetupOrLoadKeys(ccs, pkPath, vkPath)
	if err != nil {
		return nil, err
	}
	return &ProofSystem{Shape: shape, cfg: cfg, ccs: ccs, pk: pk, vk: vk}, nil
}

// Prove generates a Groth16 proof that every balance is in range and that
// the per-currency sums equal the given totals. Entries beyond the input
// are padded with zero rows up to the circuit's user count.
func (ps *ProofSystem) Prove(userEntries []*entries.Entry, totals []*big.Int) ([]byte, error) {
	assignment, err := ps.newAssignment(userEntries, totals)
	if err != nil {
		return nil, err
	}
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("witness creation failed: %w", err)
	}
	proof, err := groth16.Prove(ps.ccs, ps.pk, w)
	if err != nil {
		return nil, fmt.Errorf("proof generation failed: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("proof marshaling failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Verify checks a serialized proof against the claimed plaintext totals.
func (ps *ProofSystem) Verify(proofBytes []byte, totals []*big.Int) error {
	if len(totals) != ps.Shape.NCurrencies {
		return fmt.Errorf("expected %d totals, got %d", ps.Shape.NCurrencies, len(totals))
	}
	public := &GrandSumCircuit{
		Usernames: make([]frontend.Variable, ps.Shape.NUsers),
		Balances:  make([]frontend.Variable, ps.Shape.NUsers*ps.Shape.NCurrencies),
		NegTotals: negateTotals(totals),
	}
	w, err := frontend.NewWitness(public, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("public witness creation failed: %w", err)
	}
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return fmt.Errorf("proof unmarshaling failed: %w", err)
	}
	if err := groth16.Verify(proof, ps.vk, w); err != nil {
		return fmt.Errorf("proof verification failed: %w", err)
	}
	return nil
}

func (ps *ProofSystem) newAssignment(userEntries []*entries.Entry, totals []*big.Int) (*GrandSumCircuit, error) {
	shape := ps.Shape
	if len(userEntries) > shape.NUsers {
		return nil, fmt.Errorf("got %d entries, circuit holds %d rows", len(userEntries), shape.NUsers)
	}
	if len(totals) != shape.NCurrencies {
		return nil, fmt.Errorf("expected %d totals, got %d", shape.NCurrencies, len(totals))
	}

	assignment := &GrandSumCircuit{
		Usernames: make([]frontend.Variable, shape.NUsers),
		Balances:  make([]frontend.Variable, shape.NUsers*shape.NCurrencies),
		NegTotals: negateTotals(totals),
	}
	for i := 0; i < shape.NUsers; i++ {
		entry := entries.EmptyEntry(shape.NCurrencies)
		if i < len(userEntries) {
			entry = userEntries[i]
		}
		if len(entry.Balances()) != shape.NCurrencies {
			return nil, fmt.Errorf("row %d: expected %d balances, got %d", i, shape.NCurrencies, len(entry.Balances()))
		}
		assignment.Usernames[i] = entry.UsernameBigInt()
		for j, b := range entry.Balances() {
			assignment.Balances[i*shape.NCurrencies+j] = b
		}
	}
	return assignment, nil
}

// negateTotals maps each plaintext total to its additive inverse in the
// scalar field, matching the circuit's sum + negTotal == 0 instance check.
func negateTotals(totals []*big.Int) []frontend.Variable {
	out := make([]frontend.Variable, len(totals))
	for i, total := range totals {
		var t fr.Element
		t.SetBigInt(total)
		t.Neg(&t)
		out[i] = t.BigInt(new(big.Int))
	}
	return out
}

// SaveProvingKey saves a Groth16 proving key to disk.
func SaveProvingKey(path string, pk groth16.ProvingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = pk.WriteTo(f)
	return err
}

// SaveVerifyingKey saves a Groth16 verifying key to disk.
func SaveVerifyingKey(path string, vk groth16.VerifyingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = vk.WriteTo(f)
	return err
}

// LoadProvingKey loads a Groth16 proving key from disk.
func LoadProvingKey(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BN254)
	_, err = pk.ReadFrom(f)
	return pk, err
}

// LoadVerifyingKey loads a Groth16 verifying key from disk.
func LoadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BN254)
	_, err = vk.ReadFrom(f)
	return vk, err
}

// SetupOrLoadKeys generates or loads Groth16 keys for the circuit.
// If keys exist on disk, loads them; otherwise, generates and saves new keys.
func SetupOrLoadKeys(ccs constraint.ConstraintSystem, pkPath, vkPath string) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pk, pkErr := LoadProvingKey(pkPath)
	vk, vkErr := LoadVerifyingKey(vkPath)
	if pkErr == nil && vkErr == nil {
		return pk, vk, nil
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, err
	}
	if err := SaveProvingKey(pkPath, pk); err != nil {
		return nil, nil, err
	}
	if err := SaveVerifyingKey(vkPath, vk); err != nil {
		return nil, nil, err
	}
	return pk, vk, nil
}
