// Package logx wraps zerolog behind a small structured-logging API with
// runtime-reconfigurable sinks (console, file).
//
// Components hold a Logger value; the Service owns sink configuration and
// can swap outputs/levels at runtime without invalidating held Loggers.
package logx
