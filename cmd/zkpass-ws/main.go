// Command zkpass-ws is the internet-facing half of the zkPass attestation
// split: it terminates HTTP, holds the api-key and public-key caches, and
// forwards every proof request to zkpass-host over the main IPC socket.
package main

import "github.com/gl-zkPass/zkpass-core/internal/cli"

func main() {
	cli.Execute(cli.NewWSRootCmd())
}
