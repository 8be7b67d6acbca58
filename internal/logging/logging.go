// Package logging constructs the server's zap logger and a handful of
// field helpers (ClientID, Opcode); no other package calls the helpers
// at present. No package carries a package-level logger; callers receive
// a *zap.Logger from New and thread it down explicitly.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	// Verbose enables debug-level output (backend no-ops, per-request
	// tracing); otherwise the logger is set to Info.
	Verbose bool
	// Development enables human-readable console output instead of JSON,
	// matching zap's development preset.
	Development bool
}

// New builds a *zap.Logger per Options. Errors constructing the logger
// are treated as fatal misconfiguration by the caller (cmd/x11anywhere).
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if opts.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return cfg.Build()
}

// ClientID builds the structured fields every per-connection log line
// should carry: the client's resource id-base and current sequence.
func ClientID(idBase uint32, sequence uint16) []zap.Field {
	return []zap.Field{
		zap.Uint32("client_id_base", idBase),
		zap.Uint16("sequence", sequence),
	}
}

// Opcode adds the request opcode to a field set.
func Opcode(major uint8, minor uint16) zap.Field {
	return zap.Uint16("opcode", uint16(major)<<8|minor)
}
