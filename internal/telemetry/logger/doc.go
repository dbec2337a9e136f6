// Package logger provides structured logging for the viewer token
// service.
//
// It wraps log/slog with JSON output, runtime level adjustment, and
// automatic redaction of sensitive attributes. Viewer tokens are
// bearer credentials: any attribute whose key suggests a credential is
// masked before it reaches the log sink.
package logger
