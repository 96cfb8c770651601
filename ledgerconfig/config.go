// Package ledgerconfig loads this ledger's runtime configuration from
// CLI flags merged with an optional YAML file, mirroring the teacher's
// kasparov/kasparovd/config package: a go-flags struct for the CLI
// surface, resolved against file-based defaults before being exposed
// through a package-level ActiveConfig().
package ledgerconfig

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/duskchain/ledgercore/dust"
	"github.com/duskchain/ledgercore/merkletree"
)

const (
	defaultConfigFile   = "ledgercore.yaml"
	defaultLogLevel     = "info"
	defaultGlobalTTL    = merkletree.Timestamp(86400)
	defaultBlockLimit   = 1.0
)

var activeConfig *Config

// Config is the ledger's full runtime configuration: the CLI-facing
// flags plus the Dust/fee parameters a YAML file is expected to supply
// (these rarely change at the command line, matching the teacher's
// split between Config's CLI-tunable fields and the file-sourced
// KasparovFlags it embeds).
type Config struct {
	ConfigFile string `long:"config" description:"path to a YAML configuration file" default:"ledgercore.yaml"`
	LogLevel   string `long:"loglevel" description:"log level: trace, debug, info, warn, error" default:"info"`
	DataDir    string `long:"datadir" description:"directory for on-disk arena/backend storage"`

	Params FileParams `yaml:"params"`
}

// FileParams is the subset of configuration this ledger expects to
// come from a YAML file rather than the command line: the protocol
// parameters a node operator tunes once per deployment, not per
// invocation.
type FileParams struct {
	NightDustRatio      uint64  `yaml:"night_dust_ratio"`
	GenerationDecayRate uint32  `yaml:"generation_decay_rate"`
	DustGracePeriod     int64   `yaml:"dust_grace_period_seconds"`
	GlobalTTL           int64   `yaml:"global_ttl_seconds"`
	BlockFullnessLimit  float64 `yaml:"block_fullness_limit"`
}

// ActiveConfig returns the most recently parsed configuration.
func ActiveConfig() *Config { return activeConfig }

// Parse parses CLI arguments, then merges in the YAML file named by
// --config (if it exists; a missing file is not an error, matching the
// teacher's "defaults, optionally overridden" posture).
func Parse(args []string) (*Config, error) {
	cfg := &Config{
		ConfigFile: defaultConfigFile,
		LogLevel:   defaultLogLevel,
		Params: FileParams{
			NightDustRatio:      dust.InitialDustParameters.NightDustRatio,
			GenerationDecayRate: dust.InitialDustParameters.GenerationDecayRate,
			DustGracePeriod:     int64(dust.InitialDustParameters.DustGracePeriod),
			GlobalTTL:           int64(defaultGlobalTTL),
			BlockFullnessLimit:  defaultBlockLimit,
		},
	}

	parser := flags.NewParser(cfg, flags.PrintErrors|flags.HelpFlag)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, errors.Wrap(err, "ledgerconfig: parse flags")
	}

	if err := mergeFile(cfg); err != nil {
		return nil, err
	}

	activeConfig = cfg
	return cfg, nil
}

func mergeFile(cfg *Config) error {
	data, err := os.ReadFile(cfg.ConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "ledgerconfig: read %s", cfg.ConfigFile)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "ledgerconfig: parse %s", cfg.ConfigFile)
	}
	return nil
}

// DustParameters projects the file-sourced params into dust.DustParameters.
func (c *Config) DustParameters() dust.DustParameters {
	return dust.DustParameters{
		NightDustRatio:      c.Params.NightDustRatio,
		GenerationDecayRate: c.Params.GenerationDecayRate,
		DustGracePeriod:     merkletree.Timestamp(c.Params.DustGracePeriod),
	}
}
