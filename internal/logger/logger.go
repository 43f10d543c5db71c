package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "tux-order-services"

func New(env string) (*zap.Logger, error) {
	switch env {
	case "test":
		return zap.NewNop(), nil
	case "development", "local":
		return build(zap.NewDevelopmentConfig(), env)
	default:
		return build(zap.NewProductionConfig(), env)
	}
}

func build(cfg zap.Config, env string) (*zap.Logger, error) {
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]any{
		"service": serviceName,
		"env":     env,
	}
	return cfg.Build()
}
