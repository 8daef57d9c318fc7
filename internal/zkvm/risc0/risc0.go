// Package risc0 adapts the RISC Zero zkVM prover/verifier binary to the
// zkvm.ZkPassQueryEngine interface via processadapter, registered in the
// backend registry under the name "r0".
package risc0

import (
	"os"

	"github.com/gl-zkPass/zkpass-core/internal/zkvm"
	"github.com/gl-zkPass/zkpass-core/internal/zkvm/processadapter"
)

// Name is the DVR zkvm selector this backend registers under.
const Name = "r0"

// binaryPathEnvVar and imagePathEnvVar name the environment variables
// locating the RISC Zero prover binary and its embedded program image.
const (
	binaryPathEnvVar = "RISC0_PROVER_PATH"
	imagePathEnvVar  = "RISC0_PROGRAM_IMAGE_PATH"
)

// New builds the r0 engine from RISC0_PROVER_PATH / RISC0_PROGRAM_IMAGE_PATH.
func New() zkvm.ZkPassQueryEngine {
	return processadapter.New(processadapter.Config{
		BinaryPath:       os.Getenv(binaryPathEnvVar),
		ProgramImagePath: os.Getenv(imagePathEnvVar),
	})
}
