// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strconv"

	log "github.com/ChainSafe/log15"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/constellation-labs/bridgeclient/chains"
	"github.com/constellation-labs/bridgeclient/config"
	"github.com/constellation-labs/bridgeclient/core"
	"github.com/constellation-labs/bridgeclient/internal/amount"
	"github.com/constellation-labs/bridgeclient/keystore"
	"github.com/constellation-labs/bridgeclient/pkg/notify"
	"github.com/constellation-labs/bridgeclient/transfer"
)

var app = cli.NewApp()

var cliFlags = []cli.Flag{
	config.ConfigFileFlag,
	config.VerbosityFlag,
	config.KeystorePathFlag,
	config.FromFlag,
}

var transferCommand = cli.Command{
	Name:        "transfer",
	Usage:       "move funds across the bridge",
	Description: "The transfer command deposits L1 funds to L2, or with --withdraw initiates an L2 to L1 withdrawal.",
	Action:      handleTransfer,
	Flags:       append(cliFlags, config.TokenFlag, config.AmountFlag, config.WithdrawFlag),
}

var depositsCommand = cli.Command{
	Name:        "deposits",
	Usage:       "list deposits for an address",
	Description: "The deposits command prints one page of the address's deposit history, newest first.",
	Action:      handleDeposits,
	Flags:       append(cliFlags, config.TokenFlag, config.AddressFlag, config.PageSizeFlag, config.OffsetFlag),
}

var withdrawalsCommand = cli.Command{
	Name:        "withdrawals",
	Usage:       "list withdrawals for an address",
	Description: "The withdrawals command prints one page of the address's withdrawal history, newest first.",
	Action:      handleWithdrawals,
	Flags:       append(cliFlags, config.TokenFlag, config.AddressFlag, config.PageSizeFlag, config.OffsetFlag),
}

var stepCommand = cli.Command{
	Name:        "step",
	Usage:       "advance a pending withdrawal",
	Description: "The step command broadcasts the next phase transition (prove or finalize) for the given withdrawal.",
	Action:      handleStep,
	Flags:       append(cliFlags, config.TokenFlag, config.TxHashFlag),
}

var balanceCommand = cli.Command{
	Name:        "balance",
	Usage:       "show L1/L2 balances for a token",
	Action:      handleBalance,
	Flags:       append(cliFlags, config.TokenFlag, config.AddressFlag),
}

func init() {
	app.Name = "bridgeclient"
	app.Usage = "L1/L2 bridge client"
	app.EnableBashCompletion = true
	app.Commands = []*cli.Command{
		&transferCommand,
		&depositsCommand,
		&withdrawalsCommand,
		&stepCommand,
		&balanceCommand,
	}
	app.Flags = append(app.Flags, cliFlags...)
}

func main() {
	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func startLogger(ctx *cli.Context) error {
	logger := log.Root()
	handler := logger.GetHandler()
	var lvl log.Lvl

	if lvlToInt, err := strconv.Atoi(ctx.String(config.VerbosityFlag.Name)); err == nil {
		lvl = log.Lvl(lvlToInt)
	} else if lvl, err = log.LvlFromString(ctx.String(config.VerbosityFlag.Name)); err != nil {
		return err
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, handler))
	return nil
}

// session bundles what every command needs: the loaded config, the selected
// token and the adapter for the configured bridge.
type session struct {
	cfg     *config.Config
	token   *config.Token
	adapter core.Adapter
	log     log.Logger
}

func newSession(ctx *cli.Context) (*session, error) {
	if err := startLogger(ctx); err != nil {
		return nil, err
	}
	logger := log.Root().New("system", "bridgeclient")

	cfg, err := config.Load(ctx.String(config.ConfigFileFlag.Name))
	if err != nil {
		return nil, err
	}
	name := ctx.String(config.TokenFlag.Name)
	token, ok := cfg.Token(name)
	if !ok {
		return nil, fmt.Errorf("token %q not in config", name)
	}
	adapter, err := chains.Create(&cfg.Bridge, logger, notify.NewLogSink(logger))
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, token: token, adapter: adapter, log: logger}, nil
}

// signerFor loads the --from key bound to the chain the operation signs on.
func (s *session) signerFor(ctx *cli.Context, isL1 bool) (core.Signer, error) {
	from := ctx.String(config.FromFlag.Name)
	if from == "" {
		return nil, fmt.Errorf("--from is required")
	}
	kp, err := keystore.KeypairFromAddress(from, ctx.String(config.KeystorePathFlag.Name))
	if err != nil {
		return nil, err
	}
	l1, l2 := s.cfg.Bridge.ChainIDs()
	chainID := l2
	if isL1 {
		chainID = l1
	}
	return keystore.NewSigner(kp, new(big.Int).SetUint64(chainID)), nil
}

func (s *session) queryAddress(ctx *cli.Context) (common.Address, error) {
	addr := ctx.String(config.AddressFlag.Name)
	if addr == "" {
		addr = ctx.String(config.FromFlag.Name)
	}
	if addr == "" {
		return common.Address{}, fmt.Errorf("--address or --from is required")
	}
	return common.HexToAddress(addr), nil
}

func handleTransfer(ctx *cli.Context) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	direction := core.Deposit
	if ctx.Bool(config.WithdrawFlag.Name) {
		direction = core.Withdraw
	}
	value, err := amount.Parse(ctx.String(config.AmountFlag.Name), s.token.DecimalsFor(direction.IsDeposit()))
	if err != nil {
		return err
	}
	signer, err := s.signerFor(ctx, direction.IsDeposit())
	if err != nil {
		return err
	}

	o := transfer.New(s.adapter, noWallet{}, noWallet{}, notify.NewLogSink(s.log), s.log.New("op", "transfer"))
	sess := &transfer.Session{Signer: signer}
	return o.Advance(ctx.Context, sess, s.token, value, direction)
}

// noWallet stands in for the wallet layer: a CLI signer is already bound to
// the right chain, so connect or switch requests signal a usage error.
type noWallet struct{}

func (noWallet) Connect(ctx context.Context, chainID uint64) (core.Signer, error) {
	return nil, fmt.Errorf("no wallet layer; pass --from with a keystore account")
}

func (noWallet) SwitchNetwork(ctx context.Context, chainID uint64) error {
	return fmt.Errorf("keystore signer is bound to chain %d; cannot switch", chainID)
}

func handleDeposits(ctx *cli.Context) error {
	return printHistory(ctx, true)
}

func handleWithdrawals(ctx *cli.Context) error {
	return printHistory(ctx, false)
}

func printHistory(ctx *cli.Context, deposits bool) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	address, err := s.queryAddress(ctx)
	if err != nil {
		return err
	}
	pageSize := ctx.Int(config.PageSizeFlag.Name)
	offset := ctx.Int(config.OffsetFlag.Name)

	var msgs []core.Message
	if deposits {
		msgs, err = s.adapter.DepositsForAddress(ctx.Context, address, s.token, pageSize, offset)
	} else {
		msgs, err = s.adapter.WithdrawalsForAddress(ctx.Context, address, s.token, pageSize, offset)
	}
	if err != nil {
		return err
	}
	decimals := s.token.DecimalsFor(deposits)
	for _, m := range msgs {
		amt := "?"
		if m.Amount() != nil {
			amt = amount.Format(m.Amount(), decimals)
		}
		line := fmt.Sprintf("%s  %s %s  [%s]",
			m.Hash().Hex(), amt, s.token.TokenName, m.Status())
		if step, ok := m.NextStepName(deposits); ok {
			line += fmt.Sprintf("  next: %s", step)
		}
		fmt.Println(line)
	}
	return nil
}

func handleStep(ctx *cli.Context) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	address, err := s.queryAddress(ctx)
	if err != nil {
		return err
	}
	target := common.HexToHash(ctx.String(config.TxHashFlag.Name))

	// Phase transitions sign on L1 for both backends.
	signer, err := s.signerFor(ctx, true)
	if err != nil {
		return err
	}

	// Walk the full withdrawal history for the hash; pages are small and a
	// step command is rare.
	for offset := 0; ; offset += 50 {
		msgs, err := s.adapter.WithdrawalsForAddress(ctx.Context, address, s.token, 50, offset)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			break
		}
		for _, m := range msgs {
			if m.Hash() != target {
				continue
			}
			step, ok := m.NextStepName(false)
			if !ok {
				return fmt.Errorf("withdrawal %s has no pending step (status %q)", target.Hex(), m.Status())
			}
			s.log.Info("Advancing withdrawal", "tx", target, "step", step)
			return m.TakeNextStep(ctx.Context, signer, s.token, false)
		}
	}
	return fmt.Errorf("withdrawal %s not found", target.Hex())
}

func handleBalance(ctx *cli.Context) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	address, err := s.queryAddress(ctx)
	if err != nil {
		return err
	}
	balances, err := transfer.TokenBalances(ctx.Context, address, s.token)
	if err != nil {
		return err
	}
	fmt.Printf("L1: %s %s\n", amount.Format(balances[0], s.token.DecimalsFor(true)), s.token.TokenName)
	fmt.Printf("L2: %s %s\n", amount.Format(balances[1], s.token.DecimalsFor(false)), s.token.TokenName)
	return nil
}
