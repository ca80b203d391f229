// Package api is the external interface surface named in spec.md §6: the
// seven-command request/response contract, the program-derived-address
// helpers a caller needs to locate a pool/curve/position account, and the
// Dispatcher that routes a command to the right native engine.
package api

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// ProgramID is illustrative: it matches the Anchor program this engine's
// state transitions were distilled from. Address and signature
// verification against it is out of scope (spec.md §1) — nothing in this
// module checks an account against ProgramID; it only participates in PDA
// derivation for callers that want the address a chain deployment would
// compute.
var ProgramID = solana.MustPublicKeyFromBase58("5cZM87xG3opyuDjBedCpxJ6mhDyztVXLEB18tcULCmmW")

// PoolAddress derives the pool PDA from seeds ["pool", token_mint],
// matching the Anchor program's account context.
func PoolAddress(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte("pool"), mint.Bytes()}, ProgramID)
}

// BondingCurveAddress derives the bonding-curve PDA from seeds
// ["bonding_curve", token_mint].
func BondingCurveAddress(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte("bonding_curve"), mint.Bytes()}, ProgramID)
}

// PositionAddress derives a position PDA from seeds
// ["position", pool, owner, nonce_le_bytes].
func PositionAddress(pool, owner solana.PublicKey, nonce uint64) (solana.PublicKey, uint8, error) {
	nonceLE := make([]byte, 8)
	binary.LittleEndian.PutUint64(nonceLE, nonce)
	return solana.FindProgramAddress([][]byte{[]byte("position"), pool.Bytes(), owner.Bytes(), nonceLE}, ProgramID)
}
