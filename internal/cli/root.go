// Package cli builds the cobra command trees for zkpass-ws and
// zkpass-host: config loading, key material bootstrap, and the IPC/HTTP
// server wiring each process needs at startup.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configFile is the shared -c/--config flag both binaries expose.
var configFile string

// newRootCmd builds the common root command shape (a -c/--config persistent
// flag, silenced default usage/error printing so RunE's own error handling
// is the only thing that prints) that zkpass-ws and zkpass-host each add
// their serve command to.
func newRootCmd(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: ./configs/"+use+".yaml)")
	return cmd
}

// NewWSRootCmd builds zkpass-ws's root command.
func NewWSRootCmd() *cobra.Command {
	root := newRootCmd("zkpass-ws", "zkpass-ws - the internet-facing web service half of the zkPass attestation split")
	root.AddCommand(newWSServeCmd())
	return root
}

// NewHostRootCmd builds zkpass-host's root command.
func NewHostRootCmd() *cobra.Command {
	root := newRootCmd("zkpass-host", "zkpass-host - the key-holding, zkVM-executing half of the zkPass attestation split")
	root.AddCommand(newHostServeCmd())
	return root
}

// Execute runs cmd and exits 1 on failure, the shape both cmd/zkpass-*
// mains delegate to.
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfigPath applies the documented precedence for locating the
// config file itself (a chicken-and-egg case the loader can't resolve,
// since it needs a path before it can load anything): the -c/--config flag,
// then an env var, then a fixed default.
func resolveConfigPath(envVar, defaultPath string) string {
	if configFile != "" {
		return configFile
	}
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultPath
}
