// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package config

import (
	log "github.com/ChainSafe/log15"
	"github.com/urfave/cli/v2"
)

// Env vars
var (
	EnvKeystorePassword = "KEYSTORE_PASSWORD"
)

var (
	ConfigFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "JSON configuration file",
	}

	VerbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "Supports levels crit (silent) to trce (trace)",
		Value: log.LvlInfo.String(),
	}

	KeystorePathFlag = &cli.StringFlag{
		Name:  "keystore",
		Usage: "Path to keystore directory",
	}

	FromFlag = &cli.StringFlag{
		Name:  "from",
		Usage: "Address of the key to sign with",
	}

	TokenFlag = &cli.StringFlag{
		Name:  "token",
		Usage: "Token name from the config token list",
	}

	AmountFlag = &cli.StringFlag{
		Name:  "amount",
		Usage: "Human decimal amount, e.g. 1.5",
	}

	WithdrawFlag = &cli.BoolFlag{
		Name:  "withdraw",
		Usage: "Move funds from L2 to L1 instead of L1 to L2",
	}

	PageSizeFlag = &cli.IntFlag{
		Name:  "pageSize",
		Usage: "Number of history entries per page",
		Value: 10,
	}

	OffsetFlag = &cli.IntFlag{
		Name:  "offset",
		Usage: "History page offset",
	}

	TxHashFlag = &cli.StringFlag{
		Name:  "tx",
		Usage: "Transaction hash of the withdrawal to advance",
	}

	AddressFlag = &cli.StringFlag{
		Name:  "address",
		Usage: "Account address to query history for (defaults to --from)",
	}
)
