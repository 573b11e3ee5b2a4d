// Package logger builds the zap logger from environment-driven settings.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appConfig "github.com/reviewflow/reviewflow/internal/config"
)

// New builds a logger from the environment.
func New() (*zap.SugaredLogger, error) {
	return NewWithConfig(appConfig.LoadLoggerConfigFromEnv())
}

// NewWithConfig builds a logger from explicit settings. Production settings
// (json, non-debug) use zap's production profile with sampling; everything
// else uses the development profile.
func NewWithConfig(cfg appConfig.LoggerConfig) (*zap.SugaredLogger, error) {
	var zapConfig zap.Config
	if cfg.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	zapConfig.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	applyEncoding(&zapConfig, cfg.Format)

	zapConfig.OutputPaths = []string{outputPath(cfg.Output)}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	built, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return built.Sugar(), nil
}

func parseLevel(level string) zapcore.Level {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return parsed
}

func applyEncoding(zapConfig *zap.Config, format string) {
	if format == "console" {
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return
	}
	zapConfig.Encoding = "json"
}

// outputPath passes stdout/stderr/file paths through; zap opens file sinks
// itself.
func outputPath(output string) string {
	if output == "" {
		return "stdout"
	}
	return output
}
