package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

// newLogger builds the process-wide structured logger, defaulting to info
// level when levelName is empty or unrecognized rather than failing
// startup over a config typo.
func newLogger(levelName string) *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// signalContext returns a context canceled on SIGINT/SIGTERM, the trigger
// for each binary's graceful shutdown sequence.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
