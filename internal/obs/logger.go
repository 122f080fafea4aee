// Copyright 2025 James Ross
package obs

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the process-wide zap logger. Level comes from
// config (observability.log_level); when auditPath is non-empty, a
// second lumberjack-backed core writes every record there as well,
// matching the reference module's split console/audit logging.
func NewLogger(level string, auditPath string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(os.Stdout)),
		lvl,
	)

	cores := []zapcore.Core{consoleCore}
	if auditPath != "" {
		rotator := &lumberjack.Logger{
			Filename:   auditPath,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		auditCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.AddSync(rotator),
			lvl,
		)
		cores = append(cores, auditCore)
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return logger, nil
}

// JobFields builds the standard job_id/tenant_id/module_id zap fields
// for a job log line.
func JobFields(jobID, tenantID, moduleID string) []zap.Field {
	return []zap.Field{
		zap.String("job_id", jobID),
		zap.String("tenant_id", tenantID),
		zap.String("module_id", moduleID),
	}
}

func String(k, v string) zap.Field { return zap.String(k, v) }
func Int(k string, v int) zap.Field { return zap.Int(k, v) }
func Bool(k string, v bool) zap.Field { return zap.Bool(k, v) }
func Err(err error) zap.Field { return zap.Error(err) }
