//go:build !go1.22

package main

import "log/slog"

// slog.SetLogLoggerLevel does not exist before Go 1.22; the log-package
// bridge keeps its default level on older toolchains.
func setLogLoggerLevel(slog.Level) {}
