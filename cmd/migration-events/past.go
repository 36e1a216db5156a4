package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/nep17"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/nspcc-dev/migration-contract/reconcile"
	"github.com/nspcc-dev/migration-contract/reconcile/journal"
	rpcmigration "github.com/nspcc-dev/migration-contract/rpc/migration"
)

var (
	errCustodyMismatch = errors.New("custody does not match migrated amount")

	// errJournalGap is returned when the scanned range starts above the block
	// the journal continues from: records in between would never be stored.
	errJournalGap = errors.New("range leaves a gap in the journal")
)

// pastChain is a chain the past command reads records and custody from.
type pastChain interface {
	reconcile.Chain
	invoker.RPCInvoke
}

type pastPrm struct {
	chain     pastChain
	contract  util.Uint160
	from      uint32
	to        string
	audit     bool
	journal   string
	validator reconcile.TargetValidator
	out       printer
	log       *zap.Logger
}

func pastAction(c *cli.Context) error {
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

	client, err := rpcclient.New(ctx, cfg.RPC.Endpoint, rpcclient.Options{
		DialTimeout:    cfg.RPC.DialTimeout,
		RequestTimeout: cfg.RPC.RequestTimeout,
	})
	if err != nil {
		return cli.NewExitError(fmt.Errorf("RPC client dial: %w", err), 1)
	}
	defer client.Close()

	if err := client.Init(); err != nil {
		return cli.NewExitError(fmt.Errorf("RPC client init: %w", err), 1)
	}

	contract, _ := cfg.contract()
	validator, _ := cfg.validator()

	err = runPast(ctx, pastPrm{
		chain:     client,
		contract:  contract,
		from:      uint32(c.Uint("from")),
		to:        c.String("to"),
		audit:     c.Bool("audit"),
		journal:   cfg.Journal,
		validator: validator,
		out: printer{
			w:        os.Stdout,
			header:   "Past Migration event detected:",
			decimals: *cfg.TargetDecimals,
			symbol:   cfg.TargetSymbol,
		},
		log: log,
	})
	if errors.Is(err, errCustodyMismatch) {
		return cli.NewExitError(err, 2)
	}
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func runPast(ctx context.Context, prm pastPrm) error {
	reader, err := reconcile.NewReader(reconcile.Prm{
		Chain:    prm.chain,
		Contract: prm.contract,
		Logger:   prm.log,
	})
	if err != nil {
		return err
	}

	height, err := reader.Height()
	if err != nil {
		return err
	}
	prm.log.Info("connected", zap.Uint32("height", height))

	to, err := parseHeight(prm.to, height)
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

		resume, err := j.Resume()
		if err != nil {
			return fmt.Errorf("read journal: %w", err)
		}
		if prm.from > resume {
			return fmt.Errorf("%w: scan starts at %d, journal continues from %d", errJournalGap, prm.from, resume)
		}
	}

	var (
		recs   []reconcile.Record
		totals = reconcile.NewTotals()
	)

	err = reader.Scan(ctx, prm.from, to, func(rec reconcile.Record) error {
		prm.out.record(rec)
		totals.Add(rec)
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan blocks %d..%d: %w", prm.from, to, err)
	}

	for _, inv := range reconcile.CheckTargets(prm.validator, recs) {
		prm.out.invalidTarget(inv.Record, inv.Err)
	}
	prm.out.totals(totals)

	if j != nil {
		added, err := j.Commit(to, recs)
		if err != nil {
			return fmt.Errorf("update journal: %w", err)
		}
		prm.log.Info("journal updated", zap.Int("new records", added), zap.Uint32("checkpoint", to))
	}

	if !prm.audit {
		return nil
	}

	if prm.from != 0 || to != height {
		prm.log.Warn("custody includes migrations outside of the scanned range")
	}

	res, err := audit(prm.chain, prm.contract, totals.Sum())
	if err != nil {
		return err
	}
	prm.out.audit(res)

	if !res.Balanced() {
		return errCustodyMismatch
	}
	return nil
}

// parseHeight parses block index, 'latest' and empty string mean the current
// height.
func parseHeight(s string, height uint32) (uint32, error) {
	if s == "" || s == "latest" {
		return height, nil
	}

	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid block index %q: %w", s, err)
	}
	return uint32(v), nil
}

func audit(chain invoker.RPCInvoke, contract util.Uint160, migrated *big.Int) (reconcile.AuditResult, error) {
	inv := invoker.New(chain, nil)
	migration := rpcmigration.NewReader(inv, contract)

	rate, err := migration.ConversionRate()
	if err != nil {
		return reconcile.AuditResult{}, fmt.Errorf("get conversion rate: %w", err)
	}

	token, err := migration.Token()
	if err != nil {
		return reconcile.AuditResult{}, fmt.Errorf("get source token: %w", err)
	}

	return reconcile.Audit(nep17.NewReader(inv, token), contract, migrated, rate)
}
