package circuit

import (
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"

	"solvency/internal/entries"
)

func testEntries(t *testing.T, nBytes int) ([]*entries.Entry, []*big.Int) {
	t.Helper()
	input := "alice;100,2000\nbob;250,1\ncarol;13,999\n"
	got, totals, err := entries.ParseCSV(strings.NewReader(input), 2, nBytes)
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return got, totals
}

func TestGrandSumCircuitSolves(t *testing.T) {
	shape := Shape{NUsers: 4, NCurrencies: 2, NBytes: 2}
	ps := &ProofSystem{Shape: shape}
	users, totals := testEntries(t, shape.NBytes)

	assignment, err := ps.newAssignment(users, totals)
	if err != nil {
		t.Fatalf("building assignment: %v", err)
	}
	template, err := NewGrandSumCircuit(shape, RangeCheckConfig{LimbBits: 8})
	if err != nil {
		t.Fatalf("building circuit: %v", err)
	}
	if err := test.IsSolved(template, assignment, ecc.BN254.ScalarField()); err != nil {
		t.Fatalf("valid witness rejected: %v", err)
	}
}

func TestGrandSumCircuitWrongTotal(t *testing.T) {
	shape := Shape{NUsers: 4, NCurrencies: 2, NBytes: 2}
	ps := &ProofSystem{Shape: shape}
	users, totals := testEntries(t, shape.NBytes)
	totals[1] = new(big.Int).Add(totals[1], big.NewInt(1))

	assignment, err := ps.newAssignment(users, totals)
	if err != nil {
		t.Fatalf("building assignment: %v", err)
	}
	template, err := NewGrandSumCircuit(shape, RangeCheckConfig{LimbBits: 8})
	if err != nil {
		t.Fatalf("building circuit: %v", err)
	}
	if err := test.IsSolved(template, assignment, ecc.BN254.ScalarField()); err == nil {
		t.Fatal("wrong total accepted")
	}
}

func TestGrandSumCircuitOutOfRangeBalance(t *testing.T) {
	// A balance of 2^16 does not fit 2 bytes; the witness must be
	// unsatisfiable even though the sums still match.
	shape := Shape{NUsers: 2, NCurrencies: 1, NBytes: 2}
	template, err := NewGrandSumCircuit(shape, RangeCheckConfig{LimbBits: 8})
	if err != nil {
		t.Fatalf("building circuit: %v", err)
	}
	assignment := &GrandSumCircuit{
		Usernames: []frontend.Variable{1, 2},
		Balances:  []frontend.Variable{1 << 16, 5},
		NegTotals: negateTotals([]*big.Int{big.NewInt((1 << 16) + 5)}),
	}
	if err := test.IsSolved(template, assignment, ecc.BN254.ScalarField()); err == nil {
		t.Fatal("out-of-range balance accepted")
	}

	// The prototyping config skips range checks, so the same witness solves.
	loose, err := NewGrandSumCircuit(shape, NoRangeCheckConfig{})
	if err != nil {
		t.Fatalf("building circuit: %v", err)
	}
	if err := test.IsSolved(loose, assignment, ecc.BN254.ScalarField()); err != nil {
		t.Fatalf("no-range-check config rejected witness: %v", err)
	}
}

func TestProofSystemRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup is slow")
	}
	shape := Shape{NUsers: 4, NCurrencies: 2, NBytes: 2}
	ps, err := Setup(shape, RangeCheckConfig{LimbBits: 8})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	users, totals := testEntries(t, shape.NBytes)

	proof, err := ps.Prove(users, totals)
	if err != nil {
		t.Fatalf("prove failed: %v", err)
	}
	if err := ps.Verify(proof, totals); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	wrong := []*big.Int{new(big.Int).Add(totals[0], big.NewInt(7)), totals[1]}
	if err := ps.Verify(proof, wrong); err == nil {
		t.Fatal("verification accepted wrong totals")
	}
}

func TestKeyPersistence(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup is slow")
	}
	dir := t.TempDir()
	pkPath := filepath.Join(dir, "proving.key")
	vkPath := filepath.Join(dir, "verifying.key")

	shape := Shape{NUsers: 2, NCurrencies: 1, NBytes: 2}
	ps, err := SetupWithKeys(shape, RangeCheckConfig{LimbBits: 8}, pkPath, vkPath)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	// Second construction must load the persisted keys and still verify
	// proofs made with the first.
	reloaded, err := SetupWithKeys(shape, RangeCheckConfig{LimbBits: 8}, pkPath, vkPath)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	users, totals, err := entries.ParseCSV(strings.NewReader("dave;42\n"), 1, shape.NBytes)
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	proof, err := ps.Prove(users, totals)
	if err != nil {
		t.Fatalf("prove failed: %v", err)
	}
	if err := reloaded.Verify(proof, totals); err != nil {
		t.Fatalf("verify with reloaded keys failed: %v", err)
	}
}
