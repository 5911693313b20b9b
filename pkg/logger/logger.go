package logger

import (
	"log"

	"go.uber.org/zap"
)

// New builds the application logger. Production config (JSON, ISO8601
// timestamps) unless APP_ENV=development.
func New(env string) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)

	if env == "development" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	return l
}
