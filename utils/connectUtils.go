package utils

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

// Quit blocks until SIGINT or SIGTERM, then runs Close.
func Quit(serviceName string, log logrus.FieldLogger, Close func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	sig := <-quit
	log.WithField("signal", sig.String()).Infof("Closing %s", serviceName)
	Close()
}
