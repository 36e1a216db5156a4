package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/nspcc-dev/migration-contract/reconcile"
	"github.com/nspcc-dev/migration-contract/reconcile/journal"
)

// listenChain is a chain the listen command follows.
type listenChain interface {
	reconcile.Chain
	reconcile.Subscriber
}

type listenPrm struct {
	chain     listenChain
	contract  util.Uint160
	from      *uint32
	journal   string
	validator reconcile.TargetValidator
	metrics   *metrics
	out       printer
	log       *zap.Logger
}

func listenAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := rpcclient.NewWS(ctx, cfg.RPC.Endpoint, rpcclient.WSOptions{
		Options: rpcclient.Options{
			DialTimeout:    cfg.RPC.DialTimeout,
			RequestTimeout: cfg.RPC.RequestTimeout,
		},
	})
	if err != nil {
		return cli.NewExitError(fmt.Errorf("WS client dial: %w", err), 1)
	}
	defer client.Close()

	if err := client.Init(); err != nil {
		return cli.NewExitError(fmt.Errorf("WS client init: %w", err), 1)
	}

	contract, _ := cfg.contract()
	validator, _ := cfg.validator()

	prm := listenPrm{
		chain:     client,
		contract:  contract,
		journal:   cfg.Journal,
		validator: validator,
		out:       printer{w: os.Stdout, decimals: *cfg.TargetDecimals, symbol: cfg.TargetSymbol},
		log:       log,
	}
	if c.IsSet("from") {
		from := uint32(c.Uint("from"))
		prm.from = &from
	}
	if cfg.Metrics.Enabled {
		prm.metrics = newMetrics()
		prm.metrics.serve(ctx, cfg.Metrics.Address, log)
	}

	if err := runListen(ctx, prm); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

// runListen prints records until the context is done. Records already stored
// in the journal are skipped, so restarts with the same journal print every
// record once.
func runListen(ctx context.Context, prm listenPrm) error {
	reader, err := reconcile.NewReader(reconcile.Prm{
		Chain:    prm.chain,
		Contract: prm.contract,
		Logger:   prm.log,
	})
	if err != nil {
		return err
	}

	var j *journal.Journal
	if prm.journal != "" {
		j, err = journal.Open(prm.journal, prm.contract.BytesBE())
		if err != nil {
			return err
		}
		defer j.Close()

		if prm.from == nil {
			from, err := j.Resume()
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}
			prm.from = &from
		}
	}

	height, err := reader.Height()
	if err != nil {
		return err
	}
	prm.log.Info("connected", zap.Uint32("height", height))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		out   = make(chan reconcile.Record)
		errCh = make(chan error, 1)
	)

	go func() {
		if prm.from != nil {
			prm.log.Info("following migration records", zap.Uint32("from", *prm.from))
			errCh <- reader.Follow(ctx, prm.chain, *prm.from, out)
		} else {
			prm.log.Info("listening for migration records")
			errCh <- reader.Subscribe(ctx, prm.chain, out)
		}
	}()

	for {
		select {
		case rec := <-out:
			duplicate := false
			if j != nil {
				added, err := j.Put(rec)
				if err != nil {
					return fmt.Errorf("update journal: %w", err)
				}
				duplicate = added == 0
			}

			verr := prm.validator.ValidateTarget(rec.TargetAddress)
			if !duplicate {
				prm.out.record(rec)
				if verr != nil {
					prm.out.invalidTarget(rec, verr)
				}
			}

			if prm.metrics != nil {
				prm.metrics.observe(rec, duplicate, verr != nil)
			}
		case err := <-errCh:
			if errors.Is(err, context.Canceled) {
				prm.log.Info("stopped listening")
				return nil
			}
			return err
		}
	}
}
