// Package protocol implements the proof-of-solvency proving round.
//
// Overview:
//   - A Snapshot commits the user balance table as KZG column polynomials
//   - A Round walks Committed -> GrandSumPublished -> InclusionProven
//   - Grand-sum claims open the balance columns at zero; inclusion claims
//     open every column at omega^userIndex
//   - Chunked tables recombine homomorphically through commitment addition
//
// Security Model:
//   - Commitments are unblinded KZG over BN254; openings verify by pairing
//   - Batched openings are folded with a Keccak-256 Fiat-Shamir challenge
//   - Range validity of balances is attested by a Groth16 proof over the
//     same table when a proof system is attached to the round
//   - Row order is fixed at ingestion; row i answers challenges at omega^i
//
// Usage:
//   - NewRound, PublishGrandSums, ProveInclusion on the custodian side
//   - VerifyGrandSumClaim, VerifyInclusionClaim on the verifier side
//   - WriteCommitments/ReadCommitments define the positional wire format
package protocol
