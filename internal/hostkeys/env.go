package hostkeys

import (
	"fmt"
	"os"

	"github.com/gl-zkPass/zkpass-core/internal/zkerr"
)

func requireEnv(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", zkerr.New(zkerr.KindMissingEnv, fmt.Sprintf("required environment variable %s is not set", name))
	}
	return v, nil
}
