// Package logger builds configured log/slog loggers.
//
// All components of the service log through *slog.Logger; this package owns
// handler construction so the binary decides format and level exactly once:
//
//	log := logger.New(
//	    logger.WithService("pushpipe"),
//	    logger.WithLevel(slog.LevelDebug),
//	    logger.WithFormat(logger.FormatText),
//	)
//
// Config can also be sourced from LOG_LEVEL / LOG_FORMAT environment
// variables via NewFromConfig.
package logger
