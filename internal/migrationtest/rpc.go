package migrationtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/config"
	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
	"github.com/nspcc-dev/neo-go/pkg/network"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/services/rpcsrv"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// NewRPC starts RPC server over the environment chain and returns in-process
// client connected to it. The client supports subscriptions the same way
// WebSocket client does.
func (x *Env) NewRPC(t testing.TB) *rpcclient.Internal {
	var (
		bc     = x.Executor.Chain
		logger = zaptest.NewLogger(t)
		cfg    = config.Config{ProtocolConfiguration: bc.GetConfig().ProtocolConfiguration}
	)

	serverConfig, err := network.NewServerConfig(cfg)
	require.NoError(t, err)
	serverConfig.UserAgent = fmt.Sprintf(config.UserAgentFormat, "migration-test")
	netSrv, err := network.NewServer(serverConfig, bc, bc.GetStateSyncModule(), logger)
	require.NoError(t, err)

	rpcCfg := config.RPC{
		BasicService: config.BasicService{
			Enabled: true,
		},
		MaxGasInvoke: fixedn.Fixed8FromInt64(50),
	}

	errCh := make(chan error, 2)
	rpcServer := rpcsrv.New(bc, rpcCfg, netSrv, nil, logger, errCh)
	rpcServer.Start()
	t.Cleanup(rpcServer.Shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	c, err := rpcclient.NewInternal(ctx, rpcServer.RegisterLocal)
	require.NoError(t, err)
	require.NoError(t, c.Init())
	t.Cleanup(c.Close)

	return c
}
