// Package log builds the slog loggers used by studyhelper.
//
// Console output goes through tint; an optional log file is rotated with
// lumberjack. Every logger is wrapped in SecureHandler, which masks API keys
// (such as the Gemini key), tokens and passwords before they reach any
// output, including in verbose mode.
//
//	logger, closer, err := log.NewLogger(log.Options{Writer: os.Stderr, Verbose: true})
//	if err != nil {
//		return err
//	}
//	defer closer.Close()
//	slog.SetDefault(logger)
package log
