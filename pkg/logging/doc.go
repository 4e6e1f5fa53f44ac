// Package logging provides structured logging configuration for xrmsoap.
//
// This package wraps log/slog. Components accept a *slog.Logger through an
// option, tag it with Component and fall back to Nop when none is given:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.ParseLevel("debug"),
//	    Format: logging.FormatJSON,
//	})
//
//	client := orgservice.New(tr, orgservice.WithLogger(logger))
//
// Envelopes can be large; pass them through TruncateBody before logging.
package logging
