// Command migration-events reads Migration contract notifications from the
// chain: it replays the history or follows new blocks.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "migration-events"
	app.Usage = "Read token migration records from the chain"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "Path to the YAML configuration file"},
		cli.StringFlag{Name: "rpc, r", Usage: "Neo RPC endpoint (WebSocket one for 'listen')"},
		cli.StringFlag{Name: "contract", Usage: "Migration contract address or LE script hash"},
		cli.StringFlag{Name: "journal, j", Usage: "Path to the journal file keeping received records"},
		cli.IntFlag{Name: "decimals", Usage: "Number of decimals of the target unit used for output"},
		cli.StringFlag{Name: "symbol", Usage: "Symbol of the target token used for output"},
		cli.StringFlag{Name: "target-check", Usage: "Target address check: 'none' or 'base58'"},
		cli.StringFlag{Name: "log-level", Usage: "Logging level"},
	}
	app.Commands = []cli.Command{
		{
			Name:  "past",
			Usage: "Print migration records from the block range",
			Flags: []cli.Flag{
				cli.UintFlag{Name: "from", Usage: "First block of the range"},
				cli.StringFlag{Name: "to", Value: "latest", Usage: "Last block of the range or 'latest'"},
				cli.BoolFlag{Name: "audit", Usage: "Compare migrated amount with the contract custody"},
			},
			Action: pastAction,
		},
		{
			Name:  "listen",
			Usage: "Print migration records as they appear in new blocks",
			Flags: []cli.Flag{
				cli.UintFlag{Name: "from", Usage: "Replay records starting from this block first"},
				cli.StringFlag{Name: "metrics", Usage: "Serve Prometheus metrics at the given address"},
			},
			Action: listenAction,
		},
	}
	return app
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
