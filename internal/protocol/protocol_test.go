package protocol

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"solvency/internal/circuit"
	"solvency/internal/entries"
	"solvency/internal/kzg"
)

const (
	testCurrencies = 2
	testNBytes     = 4
)

func loadFixture(t *testing.T) ([]*entries.Entry, []*big.Int) {
	t.Helper()
	users, totals, err := entries.ParseCSVFile("testdata/entry_16.csv", testCurrencies, testNBytes)
	require.NoError(t, err)
	require.Len(t, users, 16)
	return users, totals
}

func testParams(t *testing.T, k int) *kzg.Params {
	t.Helper()
	params, err := kzg.NewUnsafeParams(k)
	require.NoError(t, err)
	return params
}

func TestGrandSumRound(t *testing.T) {
	users, totals := loadFixture(t)
	require.Equal(t, "556862", totals[0].String())
	require.Equal(t, "556862", totals[1].String())

	params := testParams(t, 5)
	round, err := NewRound(params, nil, users, totals, testCurrencies)
	require.NoError(t, err)
	require.Equal(t, StateCommitted, round.State())

	claim, err := round.PublishGrandSums()
	require.NoError(t, err)
	require.Equal(t, StateGrandSumPublished, round.State())
	require.Equal(t, 1, claim.ColStart)
	require.Equal(t, 3, claim.ColEnd)

	commitments := round.Snapshot().Commitments()
	ok, recovered, err := VerifyGrandSumClaim(params, nil, commitments, claim)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "556862", recovered[0].String())
	require.Equal(t, "556862", recovered[1].String())
}

func TestGrandSumWrongTotalRejected(t *testing.T) {
	users, totals := loadFixture(t)
	params := testParams(t, 5)
	round, err := NewRound(params, nil, users, totals, testCurrencies)
	require.NoError(t, err)
	claim, err := round.PublishGrandSums()
	require.NoError(t, err)

	commitments := round.Snapshot().Commitments()
	balanceCommitments := commitments[claim.ColStart:claim.ColEnd]

	// A valid opening checked against the wrong target value must fail.
	wrong := []*big.Int{big.NewInt(123), totals[1]}
	ok, _, err := VerifyGrandSumOpenings(params, balanceCommitments, claim.Proof, wrong)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInclusion(t *testing.T) {
	users, totals := loadFixture(t)
	params := testParams(t, 5)
	round, err := NewRound(params, nil, users, totals, testCurrencies)
	require.NoError(t, err)

	// Inclusion claims are gated on grand-sum publication.
	_, err = round.ProveInclusion(3)
	require.Error(t, err)

	_, err = round.PublishGrandSums()
	require.NoError(t, err)

	commitments := round.Snapshot().Commitments()
	for _, idx := range []int{0, 3, 15} {
		claim, err := round.ProveInclusion(idx)
		require.NoError(t, err)
		require.Equal(t, users[idx].Username(), string(claim.Username.Bytes()))

		ok, err := VerifyInclusionClaim(params, commitments, claim)
		require.NoError(t, err)
		require.True(t, ok, "user %d", idx)
	}
	require.Equal(t, StateInclusionProven, round.State())
}

func TestInclusionBadOmega(t *testing.T) {
	users, totals := loadFixture(t)
	params := testParams(t, 5)
	round, err := NewRound(params, nil, users, totals, testCurrencies)
	require.NoError(t, err)
	_, err = round.PublishGrandSums()
	require.NoError(t, err)

	claim, err := round.ProveInclusion(5)
	require.NoError(t, err)
	commitments := round.Snapshot().Commitments()

	// Recomputing the challenge from a wrong generator must not verify.
	var one, badOmega, badPoint fr.Element
	one.SetOne()
	badOmega.Sub(&params.Domain.Generator, &one)
	badPoint.Exp(badOmega, big.NewInt(5))

	ok, err := VerifyInclusionAt(params, commitments, badPoint, claim.Proof, claim.Username, claim.Balances)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInclusionWrongBalancesRejected(t *testing.T) {
	users, totals := loadFixture(t)
	params := testParams(t, 5)
	round, err := NewRound(params, nil, users, totals, testCurrencies)
	require.NoError(t, err)
	_, err = round.PublishGrandSums()
	require.NoError(t, err)

	claim, err := round.ProveInclusion(2)
	require.NoError(t, err)
	claim.Balances = []*big.Int{big.NewInt(123), claim.Balances[1]}

	ok, err := VerifyInclusionClaim(params, round.Snapshot().Commitments(), claim)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInclusionAmortized(t *testing.T) {
	users, totals := loadFixture(t)
	params := testParams(t, 4)
	round, err := NewRound(params, nil, users, totals, testCurrencies)
	require.NoError(t, err)
	_, err = round.PublishGrandSums()
	require.NoError(t, err)

	commitments := round.Snapshot().Commitments()
	for _, idx := range []int{1, 15} {
		amortized, err := round.ProveInclusionAmortized(idx)
		require.NoError(t, err)

		// The amortized quotients must match the Kate-division ones.
		naive, err := round.Snapshot().OpenUserPoints(idx)
		require.NoError(t, err)
		require.Equal(t, naive.Quotients, amortized.Proof.Quotients)
		require.Equal(t, naive.ClaimedValues, amortized.Proof.ClaimedValues)

		ok, err := VerifyInclusionClaim(params, commitments, amortized)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestOpenAllUserPoints(t *testing.T) {
	users, _ := loadFixture(t)
	params := testParams(t, 4)
	snapshot, err := NewSnapshot(params, users, testCurrencies)
	require.NoError(t, err)
	require.NoError(t, snapshot.ComputeHVectors())

	all, err := snapshot.OpenAllUserPoints()
	require.NoError(t, err)
	require.Len(t, all, testCurrencies+1)

	// Per-row proofs from the single FFT pass verify one by one.
	for idx := 0; idx < snapshot.NumUsers(); idx++ {
		naive, err := snapshot.OpenUserPoints(idx)
		require.NoError(t, err)
		for c := 0; c < snapshot.NumColumns(); c++ {
			require.True(t, naive.Quotients[c].Equal(&all[c][idx]), "column %d row %d", c, idx)
		}
	}
}

func TestChunkedHomomorphicCombination(t *testing.T) {
	users, totals := loadFixture(t)
	params := testParams(t, 5)

	first, err := NewSnapshot(params, users[:8], testCurrencies)
	require.NoError(t, err)
	second, err := NewSnapshot(params, users[8:], testCurrencies)
	require.NoError(t, err)

	combinedCommitments, err := CombineCommitments(first.Commitments(), second.Commitments())
	require.NoError(t, err)
	combinedPolys, err := CombinePolynomials(first.Polynomials(), second.Polynomials())
	require.NoError(t, err)

	// Point addition of chunk commitments equals the commitment to the
	// coefficient-wise polynomial sum.
	for c := range combinedPolys {
		direct, err := params.Commit(combinedPolys[c])
		require.NoError(t, err)
		require.True(t, direct.Equal(&combinedCommitments[c]), "column %d", c)
	}

	// Opening the summed balance columns at zero recovers the full totals.
	var zero fr.Element
	proof, err := params.OpenAtPoint(combinedPolys[1:], zero)
	require.NoError(t, err)
	ok, recovered, err := VerifyGrandSumOpenings(params, combinedCommitments[1:], proof, totals)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, totals[0], recovered[0])
	require.Equal(t, totals[1], recovered[1])
}

func TestNonPowerOfTwoUsers(t *testing.T) {
	users, _ := loadFixture(t)
	users = users[:11] // padded to the 32-row domain
	params := testParams(t, 5)

	snapshot, err := NewSnapshot(params, users, testCurrencies)
	require.NoError(t, err)

	proof, err := snapshot.OpenUserPoints(10)
	require.NoError(t, err)
	ok, err := VerifyUserInclusion(params, snapshot.Commitments(), 10, proof, users[10].UsernameBigInt(), users[10].Balances())
	require.NoError(t, err)
	require.True(t, ok)

	// Row indices past the user count are rejected on the prover side.
	_, err = snapshot.OpenUserPoints(11)
	require.Error(t, err)
}

func TestSnapshotNoCurrencies(t *testing.T) {
	users, _ := loadFixture(t)
	params := testParams(t, 5)
	_, err := NewSnapshot(params, users, 0)
	require.ErrorIs(t, err, entries.ErrNoCurrencies)
}

func TestTranscriptRoundTrip(t *testing.T) {
	users, totals := loadFixture(t)
	params := testParams(t, 4)
	round, err := NewRound(params, nil, users, totals, testCurrencies)
	require.NoError(t, err)
	_, err = round.PublishGrandSums()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCommitments(&buf, round.Snapshot().Commitments()))
	decoded, err := ReadCommitments(&buf)
	require.NoError(t, err)
	require.Equal(t, round.Snapshot().Commitments(), decoded)

	claim, err := round.ProveInclusion(7)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, WriteInclusionClaim(&buf, claim))
	decodedClaim, err := ReadInclusionClaim(&buf)
	require.NoError(t, err)

	ok, err := VerifyInclusionClaim(params, decoded, decodedClaim)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRoundWithRangeAttestation(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup is slow")
	}
	users, totals := loadFixture(t)
	params := testParams(t, 4)

	shape := circuit.Shape{NUsers: 16, NCurrencies: testCurrencies, NBytes: testNBytes}
	ps, err := circuit.Setup(shape, circuit.RangeCheckConfig{LimbBits: 8})
	require.NoError(t, err)

	round, err := NewRound(params, ps, users, totals, testCurrencies)
	require.NoError(t, err)
	claim, err := round.PublishGrandSums()
	require.NoError(t, err)
	require.NotNil(t, claim.SnarkProof)

	ok, recovered, err := VerifyGrandSumClaim(params, ps, round.Snapshot().Commitments(), claim)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, totals, recovered)

	// Tampered totals fail the Groth16 instance check.
	claim.Totals = []*big.Int{big.NewInt(1), totals[1]}
	_, _, err = VerifyGrandSumClaim(params, ps, round.Snapshot().Commitments(), claim)
	require.Error(t, err)
}
