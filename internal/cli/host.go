package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gl-zkPass/zkpass-core/internal/config"
	"github.com/gl-zkPass/zkpass-core/internal/host/mainserver"
	"github.com/gl-zkPass/zkpass-core/internal/host/utilsock"
	"github.com/gl-zkPass/zkpass-core/internal/hostkeys"
	"github.com/gl-zkPass/zkpass-core/internal/proofgen"
	"github.com/gl-zkPass/zkpass-core/internal/wire"
	"github.com/gl-zkPass/zkpass-core/internal/zkvm"
	"github.com/gl-zkPass/zkpass-core/internal/zkvm/risc0"
	"github.com/gl-zkPass/zkpass-core/internal/zkvm/sp1"
)

func newHostServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the zkPass key-holding, zkVM-executing host process",
		RunE:  runHostServe,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runHostServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	path := resolveConfigPath("ZKPASS_HOST_CONFIG", "./configs/zkpass-host.yaml")
	loader, err := config.NewLoaderWithFlags(path, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg, err := loader.Get()
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	log := newLogger(cfg.Shared.LogLevel)

	backends, err := buildZkVMRegistry(cfg.Shared.ZkVMBackends)
	if err != nil {
		return fmt.Errorf("build zkvm registry: %w", err)
	}

	registry := wire.NewFDRegistry()
	defer registry.CloseAll()

	utilConn, err := wire.Connect(ctx, wire.UnixDialer(cfg.Shared.UtilLocalSocketFile), registry, log)
	if err != nil {
		return fmt.Errorf("connect to ws util socket: %w", err)
	}
	util := utilsock.New(utilConn)

	hostKeys := hostkeys.NewHostKeyPairs()
	if err := hostkeys.RunHandshake(ctx, util, hostKeys); err != nil {
		return fmt.Errorf("run startup key handshake: %w", err)
	}
	log.Info("startup key handshake complete")

	pipeline := proofgen.NewPipeline(hostKeys, util, backends)

	mainLn, err := wire.ListenUnix(cfg.Shared.LocalSocketFile)
	if err != nil {
		return fmt.Errorf("listen on main socket: %w", err)
	}

	log.WithField("socket", cfg.Shared.LocalSocketFile).Info("zkpass-host listening")
	err = wire.Serve(ctx, mainLn, registry, log, mainserver.NewHandler(pipeline, log))
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("serve main socket: %w", err)
	}
	return nil
}

// buildZkVMRegistry registers each backend named in names. An unrecognized
// name fails startup rather than silently running with fewer engines than
// the operator configured.
func buildZkVMRegistry(names []string) (*zkvm.Registry, error) {
	registry := zkvm.NewRegistry()
	for _, name := range names {
		var engine zkvm.ZkPassQueryEngine
		switch name {
		case risc0.Name:
			engine = risc0.New()
		case sp1.Name:
			engine = sp1.New()
		default:
			return nil, fmt.Errorf("unrecognized zkvm backend %q", name)
		}
		if err := registry.Register(name, zkvm.WithPanicRecovery(engine)); err != nil {
			return nil, fmt.Errorf("register backend %q: %w", name, err)
		}
	}
	return registry, nil
}
