// main.go - End-to-end proof-of-solvency demo round.
//
// This walks the whole protocol once with a small random balance table:
//   - generate a balance table with N users and two currencies
//   - run the trusted setup and commit the column polynomials
//   - generate the Groth16 range attestation and the grand-sum opening
//   - verify the published claim as an outside verifier would
//   - serve and verify per-user inclusion claims, naive and FK23-amortized
//   - split the table in two chunks and recombine the commitments
//
// Usage:
//
//	go run main.go
package main

import (
	"math/big"
	"os"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/rs/zerolog"

	"solvency/internal/circuit"
	"solvency/internal/entries"
	"solvency/internal/kzg"
	"solvency/internal/protocol"
)

const (
	nUsers      = 16
	nCurrencies = 2
	nBytes      = 4
	domainK     = 5
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	logger.Info().Msg("=== Proof of Solvency: demo round ===")

	// 1. Balance table
	currencies := []entries.Cryptocurrency{
		{Name: "ETH", Chain: "ETH"},
		{Name: "USDT", Chain: "ETH"},
	}
	users, err := entries.GenerateDummyEntries(nUsers, currencies, nBytes)
	if err != nil {
		logger.Fatal().Err(err).Msg("generating entries")
	}
	totals := make([]*big.Int, nCurrencies)
	for j := range totals {
		totals[j] = new(big.Int)
		for _, u := range users {
			totals[j].Add(totals[j], u.Balances()[j])
		}
	}
	logger.Info().Int("users", nUsers).Str("total_0", totals[0].String()).Str("total_1", totals[1].String()).Msg("balance table ready")

	// 2. Setup: KZG parameters and the Groth16 range-attestation circuit
	params, err := kzg.NewUnsafeParams(domainK)
	if err != nil {
		logger.Fatal().Err(err).Msg("kzg setup")
	}
	shape := circuit.Shape{NUsers: nUsers, NCurrencies: nCurrencies, NBytes: nBytes}
	start := time.Now()
	ps, err := circuit.Setup(shape, circuit.RangeCheckConfig{LimbBits: 8})
	if err != nil {
		logger.Fatal().Err(err).Msg("circuit setup")
	}
	logger.Info().Dur("took", time.Since(start)).Msg("circuit compiled and keys generated")

	// 3. Commit and publish the grand sums
	round, err := protocol.NewRound(params, ps, users, totals, nCurrencies)
	if err != nil {
		logger.Fatal().Err(err).Msg("committing round")
	}
	claim, err := round.PublishGrandSums()
	if err != nil {
		logger.Fatal().Err(err).Msg("publishing grand sums")
	}
	commitments := round.Snapshot().Commitments()
	logger.Info().Str("state", round.State().String()).Int("columns", len(commitments)).Msg("grand-sum claim published")

	// 4. Verifier side: range attestation plus opening at zero
	ok, recovered, err := protocol.VerifyGrandSumClaim(params, ps, commitments, claim)
	if err != nil {
		logger.Fatal().Err(err).Msg("verifying grand sums")
	}
	if !ok {
		logger.Fatal().Msg("grand-sum claim rejected")
	}
	for i, total := range recovered {
		logger.Info().Int("currency", i).Str("total", total.String()).Msg("grand sum verified")
	}

	// 5. Inclusion claims, naive and amortized
	for _, idx := range []int{0, nUsers - 1} {
		inclusion, err := round.ProveInclusion(idx)
		if err != nil {
			logger.Fatal().Err(err).Int("user", idx).Msg("proving inclusion")
		}
		ok, err := protocol.VerifyInclusionClaim(params, commitments, inclusion)
		if err != nil || !ok {
			logger.Fatal().Err(err).Int("user", idx).Msg("inclusion claim rejected")
		}
		logger.Info().Int("user", idx).Str("username", users[idx].Username()).Msg("inclusion verified")
	}

	start = time.Now()
	amortized, err := round.ProveInclusionAmortized(3)
	if err != nil {
		logger.Fatal().Err(err).Msg("amortized inclusion")
	}
	ok, err = protocol.VerifyInclusionClaim(params, commitments, amortized)
	if err != nil || !ok {
		logger.Fatal().Err(err).Msg("amortized inclusion claim rejected")
	}
	logger.Info().Dur("took", time.Since(start)).Msg("amortized inclusion verified")

	// 6. Chunked proving: two half-tables recombined homomorphically
	first, err := protocol.NewSnapshot(params, users[:nUsers/2], nCurrencies)
	if err != nil {
		logger.Fatal().Err(err).Msg("first chunk")
	}
	second, err := protocol.NewSnapshot(params, users[nUsers/2:], nCurrencies)
	if err != nil {
		logger.Fatal().Err(err).Msg("second chunk")
	}
	combined, err := protocol.CombineCommitments(first.Commitments(), second.Commitments())
	if err != nil {
		logger.Fatal().Err(err).Msg("combining commitments")
	}
	combinedPolys, err := protocol.CombinePolynomials(first.Polynomials(), second.Polynomials())
	if err != nil {
		logger.Fatal().Err(err).Msg("combining polynomials")
	}

	var zero fr.Element
	chunkProof, err := params.OpenAtPoint(combinedPolys[1:], zero)
	if err != nil {
		logger.Fatal().Err(err).Msg("opening combined columns")
	}
	ok, chunkTotals, err := protocol.VerifyGrandSumOpenings(params, combined[1:], chunkProof, totals)
	if err != nil || !ok {
		logger.Fatal().Err(err).Msg("combined grand sums rejected")
	}
	logger.Info().Str("total_0", chunkTotals[0].String()).Str("total_1", chunkTotals[1].String()).Msg("chunked grand sums verified")

	logger.Info().Msg("=== demo round complete ===")
}
