// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/walletchain/ledger/amount"
	"github.com/walletchain/ledger/ledger"
)

// stuckTxsCommand surfaces the spec §7 "stuck transaction" query: a
// PROCESSING row with no block assignment older than --older-than.
// The spec is explicit that remediation is operator-driven — this
// command only reads, it never mutates (spec §7: "expose it as a
// query, not auto-resolve").
var stuckTxsCommand = &cli.Command{
	Name:  "stuck-txs",
	Usage: "list PROCESSING transactions with no block assignment older than --older-than",
	Flags: []cli.Flag{
		&cli.DurationFlag{Name: "older-than", Value: 2 * 15 * time.Second, Usage: "age threshold (spec recommends 2x BLOCK_TIME_MS)"},
	},
	Action: func(cctx *cli.Context) error {
		cfg, err := configFromCLI(cctx)
		if err != nil {
			return err
		}
		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}
		stuck, err := eng.janitor.StuckTransactions(cctx.Context, cctx.Duration("older-than"))
		if err != nil {
			return err
		}
		return printJSON(stuck)
	},
}

// deadLetterCommand lists ids pushed to the dead-letter list (spec §6:
// TX_DLQ_NAME). A peek, not a pop — an operator inspecting the DLQ
// should not silently drain it.
var deadLetterCommand = &cli.Command{
	Name:  "dead-letter",
	Usage: "list transaction ids in the dead-letter queue",
	Action: func(cctx *cli.Context) error {
		cfg, err := configFromCLI(cctx)
		if err != nil {
			return err
		}
		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}
		ids := eng.queue.Peek(cfg.DLQName)
		return printJSON(ids)
	},
}

// seedAccountInput is the JSON shape `ledgerd seed` reads: a list of
// accounts to install directly into the store, bypassing intake, for
// local demos and scenario setup (spec §8 scenarios S1-S6 seed
// accounts this way before exercising the pipeline).
type seedAccountInput struct {
	SystemAddress string `json:"systemAddress"`
	WalletID      string `json:"walletId"`
	UserID        string `json:"userId"`
	Currency      string `json:"currency"`
	Balance       string `json:"balance"`
	Locked        string `json:"locked"`
}

var seedCommand = &cli.Command{
	Name:      "seed",
	Usage:     "install accounts from a JSON file directly into the store (test/demo setup, bypasses intake)",
	ArgsUsage: "<accounts.json>",
	Action: func(cctx *cli.Context) error {
		if cctx.Args().Len() != 1 {
			return fmt.Errorf("seed: expected exactly one <accounts.json> argument")
		}
		raw, err := os.ReadFile(cctx.Args().First())
		if err != nil {
			return fmt.Errorf("seed: read %s: %w", cctx.Args().First(), err)
		}
		var inputs []seedAccountInput
		if err := json.Unmarshal(raw, &inputs); err != nil {
			return fmt.Errorf("seed: parse %s: %w", cctx.Args().First(), err)
		}

		cfg, err := configFromCLI(cctx)
		if err != nil {
			return err
		}
		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}

		for i, in := range inputs {
			bal, err := amount.Parse(in.Balance)
			if err != nil {
				return fmt.Errorf("seed: account %d balance: %w", i, err)
			}
			locked := amount.Zero
			if in.Locked != "" {
				locked, err = amount.Parse(in.Locked)
				if err != nil {
					return fmt.Errorf("seed: account %d locked: %w", i, err)
				}
			}
			eng.store.SeedAccount(ledger.Account{
				ID:            newSeedID(in.SystemAddress),
				SystemAddress: in.SystemAddress,
				WalletID:      in.WalletID,
				UserID:        in.UserID,
				Currency:      in.Currency,
				Balance:       bal,
				Locked:        locked,
			})
		}
		fmt.Printf("seeded %d account(s)\n", len(inputs))
		return nil
	},
}

// transferCommand drives TransferIntake.SubmitTransfer directly — a
// convenience for local smoke-testing the intake path without a host
// process, not a replacement for the HTTP surface the spec places out
// of scope (§1).
var transferCommand = &cli.Command{
	Name:      "transfer",
	Usage:     "submit a transfer through TransferIntake (demo/test use; state does not persist across process invocations)",
	ArgsUsage: "<userId> <fromAddr> <toAddr> <amount> <currency>",
	Action: func(cctx *cli.Context) error {
		args := cctx.Args()
		if args.Len() < 5 {
			return fmt.Errorf("transfer: expected <userId> <fromAddr> <toAddr> <amount> <currency>")
		}
		cfg, err := configFromCLI(cctx)
		if err != nil {
			return err
		}
		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}
		result, err := eng.intake.SubmitTransfer(cctx.Context,
			args.Get(0), args.Get(1), args.Get(2), args.Get(3), args.Get(4), "")
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

// balanceCommand reads the cached/available/locked/total snapshot for
// a systemAddress via BalanceView.
var balanceCommand = &cli.Command{
	Name:      "balance",
	Usage:     "read an account's available/locked/total snapshot",
	ArgsUsage: "<systemAddress>",
	Action: func(cctx *cli.Context) error {
		if cctx.Args().Len() != 1 {
			return fmt.Errorf("balance: expected exactly one <systemAddress> argument")
		}
		cfg, err := configFromCLI(cctx)
		if err != nil {
			return err
		}
		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}
		snap, err := eng.balance.View(cctx.Context, cctx.Args().First())
		if err != nil {
			return err
		}
		return printJSON(snap)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newSeedID derives a stable row id for a seeded account from its
// external address so re-seeding the same file is idempotent within
// one process lifetime.
func newSeedID(systemAddress string) string {
	return "seed_" + systemAddress
}
