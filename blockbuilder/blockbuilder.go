// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package blockbuilder computes the height, previous-hash link, Merkle
// root, and block hash for a sealed batch of confirmed transactions
// (spec §4.3, component C3).
package blockbuilder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"

	"github.com/walletchain/ledger/iface"
	"github.com/walletchain/ledger/ledger"
)

// ConfirmedTx is one member of the batch being sealed: its row id (for
// the bulk status flip) and its external systemHash (for the Merkle
// commitment and block hash).
type ConfirmedTx struct {
	ID         string
	SystemHash string
}

// SealBlock implements spec §4.3: it reads the current chain head under
// storeTx, computes the next height/prevHash/Merkle root/block hash,
// and inserts the new Block row. confirmedSet must be non-empty — the
// PipelineLoop only calls this once its seal condition (§4.4 step 4)
// is met, which already requires a non-empty collected batch.
func SealBlock(ctx context.Context, clk iface.Clock, storeTx iface.Tx, confirmedSet []ConfirmedTx) (*ledger.Block, error) {
	if len(confirmedSet) == 0 {
		return nil, fmt.Errorf("blockbuilder: sealBlock called with an empty batch")
	}

	latest, err := storeTx.LatestBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("blockbuilder: read latest block: %w", err)
	}

	var height uint64
	var prevHash *string
	if latest != nil {
		height = latest.Height + 1
		h := latest.BlockHash
		prevHash = &h
	}

	timestamp := clk.Now()

	hashes := make([]string, len(confirmedSet))
	txIDs := make([]string, len(confirmedSet))
	for i, c := range confirmedSet {
		hashes[i] = c.SystemHash
		txIDs[i] = c.ID
	}
	slices.Sort(hashes)

	merkleRoot := MerkleRoot(hashes)
	blockHash := BlockHash(height, timestamp.Format("2006-01-02T15:04:05.000Z07:00"), prevHash, hashes)

	block := &ledger.Block{
		Height:            height,
		BlockHash:         blockHash,
		PreviousBlockHash: prevHash,
		Timestamp:         timestamp,
		MerkleRoot:        merkleRoot,
		TransactionIDs:    txIDs,
	}
	if err := storeTx.CreateBlock(ctx, block); err != nil {
		return nil, fmt.Errorf("blockbuilder: create block: %w", err)
	}
	return block, nil
}

// MerkleRoot computes the Merkle root over sortedHashes (already sorted
// ascending lexicographically by the caller, per spec §4.3 step 4 — the
// sort is what makes the commitment insensitive to batch order). Pairs
// are combined as SHA256(hex(left)+hex(right)); an odd node count at any
// level duplicates the last element. An empty input yields SHA256("")
// — unreachable from the sealing path (confirmedSet is always
// non-empty) but specified for uniformity.
func MerkleRoot(sortedHashes []string) string {
	if len(sortedHashes) == 0 {
		return hexSHA256("")
	}
	level := append([]string(nil), sortedHashes...)
	for len(level) > 1 {
		var next []string
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, hexSHA256(left+right))
		}
		level = next
	}
	return level[0]
}

// BlockHash computes the block commitment hash per spec §4.3 step 4:
// SHA256(height || timestamp.toISOString() || (prevHash ||
// GENESIS placeholder) || sorted_systemHashes joined).
func BlockHash(height uint64, isoTimestamp string, prevHash *string, sortedHashes []string) string {
	prev := ledger.GenesisPreviousHashPlaceholder
	if prevHash != nil {
		prev = *prevHash
	}
	var joined string
	for _, h := range sortedHashes {
		joined += h
	}
	input := strconv.FormatUint(height, 10) + isoTimestamp + prev + joined
	return hexSHA256(input)
}

func hexSHA256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
