package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"

	"github.com/nspcc-dev/migration-contract/reconcile"
)

const (
	defaultDecimals    = 9
	defaultSymbol      = "DUSK"
	defaultMetricsAddr = ":9090"
	defaultRPCTimeout  = 15 * time.Second
	targetCheckNone    = "none"
	targetCheckBase58  = "base58"
)

// config is a YAML configuration of the command.
type config struct {
	RPC            rpcConfig     `yaml:"rpc"`
	Contract       string        `yaml:"contract"`
	Journal        string        `yaml:"journal"`
	TargetDecimals *int          `yaml:"target_decimals"`
	TargetSymbol   string        `yaml:"target_symbol"`
	TargetCheck    string        `yaml:"target_check"`
	TargetLength   int           `yaml:"target_length"`
	Metrics        metricsConfig `yaml:"metrics"`
	LogLevel       string        `yaml:"log_level"`
}

type rpcConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type metricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// loadConfig reads the configuration file if any and applies command line
// flags over it.
func loadConfig(c *cli.Context) (*config, error) {
	cfg := new(config)

	if path := c.GlobalString("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if c.GlobalIsSet("rpc") {
		cfg.RPC.Endpoint = c.GlobalString("rpc")
	}
	if c.GlobalIsSet("contract") {
		cfg.Contract = c.GlobalString("contract")
	}
	if c.GlobalIsSet("journal") {
		cfg.Journal = c.GlobalString("journal")
	}
	if c.GlobalIsSet("decimals") {
		d := c.GlobalInt("decimals")
		cfg.TargetDecimals = &d
	}
	if c.GlobalIsSet("symbol") {
		cfg.TargetSymbol = c.GlobalString("symbol")
	}
	if c.GlobalIsSet("target-check") {
		cfg.TargetCheck = c.GlobalString("target-check")
	}
	if c.GlobalIsSet("log-level") {
		cfg.LogLevel = c.GlobalString("log-level")
	}
	if c.IsSet("metrics") {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = c.String("metrics")
	}

	cfg.setDefaults()

	return cfg, cfg.validate()
}

func (x *config) setDefaults() {
	if x.RPC.DialTimeout == 0 {
		x.RPC.DialTimeout = defaultRPCTimeout
	}
	if x.RPC.RequestTimeout == 0 {
		x.RPC.RequestTimeout = defaultRPCTimeout
	}
	if x.TargetDecimals == nil {
		d := defaultDecimals
		x.TargetDecimals = &d
	}
	if x.TargetSymbol == "" {
		x.TargetSymbol = defaultSymbol
	}
	if x.TargetCheck == "" {
		x.TargetCheck = targetCheckNone
	}
	if x.Metrics.Enabled && x.Metrics.Address == "" {
		x.Metrics.Address = defaultMetricsAddr
	}
	if x.LogLevel == "" {
		x.LogLevel = "info"
	}
}

func (x *config) validate() error {
	switch {
	case x.RPC.Endpoint == "":
		return errors.New("missing RPC endpoint")
	case x.Contract == "":
		return errors.New("missing contract address")
	case *x.TargetDecimals < 0:
		return errors.New("negative target decimals")
	case x.TargetLength < 0:
		return errors.New("negative target length")
	}

	if _, err := x.validator(); err != nil {
		return err
	}

	_, err := x.contract()
	return err
}

// contract parses the contract address given either as Neo address or as
// LE hex script hash.
func (x *config) contract() (util.Uint160, error) {
	s := strings.TrimPrefix(x.Contract, "0x")

	h, err := util.Uint160DecodeStringLE(s)
	if err == nil {
		return h, nil
	}

	h, err = address.StringToUint160(x.Contract)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid contract address %q", x.Contract)
	}
	return h, nil
}

func (x *config) validator() (reconcile.TargetValidator, error) {
	switch x.TargetCheck {
	case targetCheckNone:
		return reconcile.PassThrough{}, nil
	case targetCheckBase58:
		return reconcile.Base58Target{Length: x.TargetLength}, nil
	default:
		return nil, fmt.Errorf("unknown target check %q", x.TargetCheck)
	}
}
