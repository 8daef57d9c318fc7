// Package sp1 adapts the SP1 zkVM prover/verifier binary to the
// zkvm.ZkPassQueryEngine interface via processadapter, registered in the
// backend registry under the name "sp1".
package sp1

import (
	"os"

	"github.com/gl-zkPass/zkpass-core/internal/zkvm"
	"github.com/gl-zkPass/zkpass-core/internal/zkvm/processadapter"
)

// Name is the DVR zkvm selector this backend registers under.
const Name = "sp1"

// binaryPathEnvVar and imagePathEnvVar name the environment variables
// locating the SP1 prover binary and its embedded program image.
const (
	binaryPathEnvVar = "SP1_PROVER_PATH"
	imagePathEnvVar  = "SP1_PROGRAM_IMAGE_PATH"
)

// New builds the sp1 engine from SP1_PROVER_PATH / SP1_PROGRAM_IMAGE_PATH.
func New() zkvm.ZkPassQueryEngine {
	return processadapter.New(processadapter.Config{
		BinaryPath:       os.Getenv(binaryPathEnvVar),
		ProgramImagePath: os.Getenv(imagePathEnvVar),
	})
}
