// Package xauth implements the server's authorization acceptance policy.
// Unlike the teacher's x11/auth.go, which parses a client's .Xauthority
// file to present credentials, this server only needs to decide whether
// to accept credentials a client presents — so only the
// authorization-protocol name constant survives here (spec.md §4.2).
package xauth

import "github.com/KarpelesLab/x11anywhere/internal/config"

// AuthMITMagicCookie is the conventional authorization-protocol name
// almost every X11 client sends, carried over from x11/auth.go.
const AuthMITMagicCookie = "MIT-MAGIC-COOKIE-1"

// Decision is the outcome of evaluating a client's presented auth name.
type Decision struct {
	Accepted bool
	Reason   string // non-empty only when !Accepted
}

// Evaluate decides whether to accept a connection's auth-name/auth-data
// pair under the given security policy. A permissive server (the
// default) accepts any name, including the empty string clients send
// when no .Xauthority entry exists. An empty policy is treated as
// permissive.
func Evaluate(policy config.SecurityPolicy, authName string, authData []byte) Decision {
	switch policy {
	case config.SecurityPermissive, "":
		return Decision{Accepted: true}
	case config.SecurityDefault:
		if authName == "" {
			return Decision{Accepted: false, Reason: "no authorization protocol name supplied"}
		}
		return Decision{Accepted: true}
	case config.SecurityStrict:
		// No cookie database is implemented; strict mode currently
		// degrades to "name required", same as SecurityDefault;
		// internal/server logs a warning about this at startup.
		if authName == "" {
			return Decision{Accepted: false, Reason: "no authorization protocol name supplied"}
		}
		return Decision{Accepted: true}
	default:
		return Decision{Accepted: false, Reason: "unknown security policy"}
	}
}
