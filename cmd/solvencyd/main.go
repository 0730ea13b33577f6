// main.go - Operator CLI for the proof-of-solvency protocol.
//
// Subcommands:
//
//	setup             generate and persist the KZG setup parameters
//	gen-entries       generate a random balance table CSV
//	prove             commit a balance table and publish the grand-sum claim
//	verify            verify a published grand-sum claim
//	inclusion         produce one user's inclusion claim
//	verify-inclusion  verify an inclusion claim
//
// All subcommands read the JSON config (created with defaults on first
// use) and accept -config to point elsewhere.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"solvency/internal/circuit"
	"solvency/internal/entries"
	"solvency/internal/kzg"
	"solvency/internal/protocol"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "setup":
		err = runSetup(os.Args[2:])
	case "gen-entries":
		err = runGenEntries(os.Args[2:])
	case "prove":
		err = runProve(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	case "inclusion":
		err = runInclusion(os.Args[2:])
	case "verify-inclusion":
		err = runVerifyInclusion(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: solvencyd <setup|gen-entries|prove|verify|inclusion|verify-inclusion> [flags]")
}

func loadRun(fs *flag.FlagSet, args []string) (*Config, zerolog.Logger, error) {
	configPath := fs.String("config", "solvency.json", "path to the JSON config")
	if err := fs.Parse(args); err != nil {
		return nil, zerolog.Nop(), err
	}
	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid config: %w", err)
	}
	return cfg, NewLogger(cfg.LogLevel), nil
}

func runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	cfg, logger, err := loadRun(fs, args)
	if err != nil {
		return err
	}

	logger.Info().Int("k", cfg.K).Msg("generating setup parameters")
	bar := progressbar.Default(-1, "generating srs")
	params, err := kzg.NewUnsafeParams(cfg.K)
	_ = bar.Finish()
	if err != nil {
		return err
	}
	if err := params.Save(cfg.SRSPath); err != nil {
		return err
	}
	logger.Info().Str("path", cfg.SRSPath).Uint64("powers", params.PolyLength()).Msg("setup parameters written")
	return nil
}

func runGenEntries(args []string) error {
	fs := flag.NewFlagSet("gen-entries", flag.ExitOnError)
	nUsers := fs.Int("users", 16, "number of user rows")
	out := fs.String("out", "", "output CSV path (defaults to entries_csv from config)")
	cfg, logger, err := loadRun(fs, args)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = cfg.EntriesCSV
	}

	currencies := make([]entries.Cryptocurrency, cfg.NCurrencies)
	for i := range currencies {
		currencies[i] = entries.Cryptocurrency{Name: fmt.Sprintf("CUR%d", i), Chain: "ETH"}
	}
	rows, err := entries.GenerateDummyEntries(*nUsers, currencies, cfg.NBytes)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bar := progressbar.Default(int64(len(rows)), "writing entries")
	for _, e := range rows {
		line := e.Username() + ";"
		for j, b := range e.Balances() {
			if j > 0 {
				line += ","
			}
			line += b.String()
		}
		if _, err := fmt.Fprintln(f, line); err != nil {
			return err
		}
		_ = bar.Add(1)
	}
	logger.Info().Int("users", len(rows)).Str("path", path).Msg("entries written")
	return nil
}

func runProve(args []string) error {
	fs := flag.NewFlagSet("prove", flag.ExitOnError)
	cfg, logger, err := loadRun(fs, args)
	if err != nil {
		return err
	}
	metrics := NewMetricsCollector()

	params, err := kzg.LoadParams(cfg.SRSPath, cfg.K)
	if err != nil {
		return fmt.Errorf("loading setup parameters (run `solvencyd setup` first): %w", err)
	}

	users, totals, err := entries.ParseCSVFile(cfg.EntriesCSV, cfg.NCurrencies, cfg.NBytes)
	if err != nil {
		return err
	}
	for range users {
		metrics.IncrementCounter(MetricEntriesParsed)
	}
	logger.Info().Int("users", len(users)).Int("currencies", cfg.NCurrencies).Msg("entries loaded")

	ps, err := buildProofSystem(cfg, len(users), logger, metrics)
	if err != nil {
		return err
	}

	var round *protocol.Round
	err = metrics.Timed(MetricCommitTime, func() error {
		var err error
		round, err = protocol.NewRound(params, ps, users, totals, cfg.NCurrencies)
		return err
	})
	if err != nil {
		return err
	}

	var claim *protocol.GrandSumClaim
	err = metrics.Timed(MetricOpeningTime, func() error {
		var err error
		claim, err = round.PublishGrandSums()
		return err
	})
	if err != nil {
		return err
	}

	artifact := &GrandSumArtifact{
		K:           cfg.K,
		NUsers:      len(users),
		NCurrencies: cfg.NCurrencies,
		ColStart:    claim.ColStart,
		ColEnd:      claim.ColEnd,
		Totals:      make([]string, len(claim.Totals)),
		SnarkProof:  claim.SnarkProof,
	}
	for i, total := range claim.Totals {
		artifact.Totals[i] = total.String()
	}

	var buf bytes.Buffer
	if err := protocol.WriteCommitments(&buf, round.Snapshot().Commitments()); err != nil {
		return err
	}
	artifact.Commitments = append([]byte(nil), buf.Bytes()...)
	buf.Reset()
	if _, err := claim.Proof.WriteTo(&buf); err != nil {
		return err
	}
	artifact.Proof = append([]byte(nil), buf.Bytes()...)

	path := filepath.Join(cfg.OutputDir, "grand_sum.cbor")
	if err := writeArtifact(path, artifact); err != nil {
		return err
	}
	logger.Info().Str("path", path).Msg("grand-sum claim written")
	for name, value := range metrics.Summary() {
		logger.Debug().Str("metric", name).Str("value", value).Msg("timing")
	}
	return nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	artifactPath := fs.String("artifact", "artifacts/grand_sum.cbor", "grand-sum artifact path")
	cfg, logger, err := loadRun(fs, args)
	if err != nil {
		return err
	}

	var artifact GrandSumArtifact
	if err := readArtifact(*artifactPath, &artifact); err != nil {
		return err
	}

	params, err := kzg.LoadParams(cfg.SRSPath, artifact.K)
	if err != nil {
		return err
	}
	commitments, err := protocol.ReadCommitments(bytes.NewReader(artifact.Commitments))
	if err != nil {
		return err
	}
	proof := &kzg.BatchProof{}
	if _, err := proof.ReadFrom(bytes.NewReader(artifact.Proof)); err != nil {
		return err
	}

	claim := &protocol.GrandSumClaim{
		ColStart:   artifact.ColStart,
		ColEnd:     artifact.ColEnd,
		Totals:     make([]*big.Int, len(artifact.Totals)),
		Proof:      proof,
		SnarkProof: artifact.SnarkProof,
	}
	for i, s := range artifact.Totals {
		total, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return fmt.Errorf("malformed total %q in artifact", s)
		}
		claim.Totals[i] = total
	}

	// The Groth16 attestation is checked only when the claim carries one
	// and the circuit keys are available locally.
	var ps *circuit.ProofSystem
	if artifact.SnarkProof != nil {
		ps, err = buildProofSystem(cfg, artifact.NUsers, logger, NewMetricsCollector())
		if err != nil {
			logger.Warn().Err(err).Msg("range attestation present but circuit keys unavailable, checking openings only")
			ps = nil
			claim.SnarkProof = nil
		}
	}

	ok, totals, err := protocol.VerifyGrandSumClaim(params, ps, commitments, claim)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("grand-sum claim rejected")
	}
	for i, total := range totals {
		logger.Info().Int("currency", i).Str("total", total.String()).Msg("grand sum verified")
	}
	return nil
}

func runInclusion(args []string) error {
	fs := flag.NewFlagSet("inclusion", flag.ExitOnError)
	userIndex := fs.Int("user", 0, "row index of the user to prove")
	amortized := fs.Bool("amortized", false, "serve the opening from FK23 h-vectors")
	cfg, logger, err := loadRun(fs, args)
	if err != nil {
		return err
	}
	metrics := NewMetricsCollector()

	params, err := kzg.LoadParams(cfg.SRSPath, cfg.K)
	if err != nil {
		return err
	}
	users, _, err := entries.ParseCSVFile(cfg.EntriesCSV, cfg.NCurrencies, cfg.NBytes)
	if err != nil {
		return err
	}

	// Commitments are deterministic for a fixed table and setup, so the
	// snapshot is rebuilt rather than persisted.
	snapshot, err := protocol.NewSnapshot(params, users, cfg.NCurrencies)
	if err != nil {
		return err
	}

	var proof *kzg.BatchProof
	if *amortized {
		err = metrics.Timed(MetricHVectorTime, snapshot.ComputeHVectors)
		if err != nil {
			return err
		}
		err = metrics.Timed(MetricOpeningTime, func() error {
			var err error
			proof, err = snapshot.OpenUserPointsAmortized(*userIndex)
			return err
		})
	} else {
		err = metrics.Timed(MetricOpeningTime, func() error {
			var err error
			proof, err = snapshot.OpenUserPoints(*userIndex)
			return err
		})
	}
	if err != nil {
		return err
	}

	claim := &protocol.InclusionClaim{
		UserIndex: *userIndex,
		Username:  users[*userIndex].UsernameBigInt(),
		Balances:  users[*userIndex].Balances(),
		Proof:     proof,
	}

	var buf bytes.Buffer
	if err := protocol.WriteCommitments(&buf, snapshot.Commitments()); err != nil {
		return err
	}
	commitmentBytes := append([]byte(nil), buf.Bytes()...)
	buf.Reset()
	if err := protocol.WriteInclusionClaim(&buf, claim); err != nil {
		return err
	}

	artifact := &InclusionArtifact{
		K:           cfg.K,
		NCurrencies: cfg.NCurrencies,
		Commitments: commitmentBytes,
		Claim:       buf.Bytes(),
	}
	path := filepath.Join(cfg.OutputDir, fmt.Sprintf("inclusion_%d.cbor", *userIndex))
	if err := writeArtifact(path, artifact); err != nil {
		return err
	}
	logger.Info().Int("user", *userIndex).Str("path", path).Msg("inclusion claim written")
	return nil
}

func runVerifyInclusion(args []string) error {
	fs := flag.NewFlagSet("verify-inclusion", flag.ExitOnError)
	artifactPath := fs.String("artifact", "", "inclusion artifact path")
	cfg, logger, err := loadRun(fs, args)
	if err != nil {
		return err
	}
	if *artifactPath == "" {
		return fmt.Errorf("-artifact is required")
	}

	var artifact InclusionArtifact
	if err := readArtifact(*artifactPath, &artifact); err != nil {
		return err
	}
	params, err := kzg.LoadParams(cfg.SRSPath, artifact.K)
	if err != nil {
		return err
	}
	commitments, err := protocol.ReadCommitments(bytes.NewReader(artifact.Commitments))
	if err != nil {
		return err
	}
	claim, err := protocol.ReadInclusionClaim(bytes.NewReader(artifact.Claim))
	if err != nil {
		return err
	}

	ok, err := protocol.VerifyInclusionClaim(params, commitments, claim)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("inclusion claim rejected")
	}
	logger.Info().
		Int("user", claim.UserIndex).
		Str("username", string(claim.Username.Bytes())).
		Msg("inclusion verified")
	return nil
}

// buildProofSystem compiles the grand-sum circuit and loads or generates
// its Groth16 keys under the configured key directory.
func buildProofSystem(cfg *Config, nUsers int, logger zerolog.Logger, metrics *MetricsCollector) (*circuit.ProofSystem, error) {
	shape := circuit.Shape{NUsers: nUsers, NCurrencies: cfg.NCurrencies, NBytes: cfg.NBytes}

	var colCfg circuit.ColumnConfig = circuit.RangeCheckConfig{LimbBits: cfg.LimbBits}
	if cfg.NoRangeCheck {
		logger.Warn().Msg("range checks DISABLED, claims from this run give no overflow guarantee")
		colCfg = circuit.NoRangeCheckConfig{}
	}

	if err := os.MkdirAll(cfg.KeyDir, 0755); err != nil {
		return nil, err
	}
	pkPath := filepath.Join(cfg.KeyDir, fmt.Sprintf("grandsum_%dx%d_pk.bin", nUsers, cfg.NCurrencies))
	vkPath := filepath.Join(cfg.KeyDir, fmt.Sprintf("grandsum_%dx%d_vk.bin", nUsers, cfg.NCurrencies))

	var ps *circuit.ProofSystem
	err := metrics.Timed(MetricCircuitCompileTime, func() error {
		var err error
		ps, err = circuit.SetupWithKeys(shape, colCfg, pkPath, vkPath)
		return err
	})
	return ps, err
}
