// Command zkpass-host is the key-holding, zkVM-executing half of the
// zkPass attestation split: it never terminates a public network
// connection, speaking only to zkpass-ws over the paired IPC sockets.
package main

import "github.com/gl-zkPass/zkpass-core/internal/cli"

func main() {
	cli.Execute(cli.NewHostRootCmd())
}
