// Command ledgerctl is the ledger core's offline inspection CLI: it
// parses the node configuration, initializes subsystem logging, and
// prints a summary of the genesis state the configured parameters
// would produce. It does not run a server or join a network — those
// layers are explicitly out of this repository's scope.
package main

import (
	"fmt"
	"os"

	"github.com/duskchain/ledgercore/ledgerconfig"
	"github.com/duskchain/ledgercore/ledgerstate"
	"github.com/duskchain/ledgercore/logx"
)

func main() {
	defer handlePanic()

	cfg, err := ledgerconfig.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledgerctl: error parsing configuration: %s\n", err)
		os.Exit(1)
	}

	if err := logx.ParseAndSetLevel(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerctl: invalid log level %q: %s\n", cfg.LogLevel, err)
		os.Exit(1)
	}
	if cfg.DataDir != "" {
		if err := logx.InitLogRotator(cfg.DataDir, "ledgerctl.log"); err != nil {
			fmt.Fprintf(os.Stderr, "ledgerctl: %s\n", err)
			os.Exit(1)
		}
	}
	log, _ := logx.Get(logx.Tags.LedgerState)

	params := ledgerstate.DefaultParameters
	params.Dust = cfg.DustParameters()

	state := ledgerstate.New(params)
	log.WithFields(map[string]interface{}{
		"night_dust_ratio":       params.Dust.NightDustRatio,
		"generation_decay_rate":  params.Dust.GenerationDecayRate,
		"dust_grace_period":      params.Dust.DustGracePeriod,
		"initial_dust_fee_price": state.Fees.DustPerUnit.String(),
	}).Info("genesis state initialized")

	fmt.Printf("ledgercore genesis: night_dust_ratio=%d generation_decay_rate=%d dust_grace_period=%d\n",
		params.Dust.NightDustRatio, params.Dust.GenerationDecayRate, params.Dust.DustGracePeriod)
}

func handlePanic() {
	if r := recover(); r != nil {
		fmt.Fprintf(os.Stderr, "ledgerctl: panic: %v\n", r)
		os.Exit(2)
	}
}
