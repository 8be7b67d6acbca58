// Package config loads server configuration from flags, environment
// variables, a config file, and built-in defaults, in that priority
// order, using github.com/spf13/viper as the layering engine.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SecurityPolicy selects how permissive the handshake/auth layer is.
type SecurityPolicy string

const (
	// SecurityPermissive accepts any authorization name or none at all
	// (spec.md §4.2's default posture).
	SecurityPermissive SecurityPolicy = "permissive"
	// SecurityDefault requires an auth name to be present but does not
	// validate its value.
	SecurityDefault SecurityPolicy = "default"
	// SecurityStrict is reserved for a future cookie-validating mode;
	// currently behaves like SecurityDefault plus a logged warning.
	SecurityStrict SecurityPolicy = "strict"
)

// Config is the fully resolved server configuration.
type Config struct {
	// Display is the X display number; the listener binds TCP port
	// 6000+Display and/or the local socket path for this number.
	Display int
	// Backend is the registered backend.Backend name to use.
	Backend string
	// TCP enables the TCP listener (spec.md §6).
	TCP bool
	// Unix enables the local-domain-socket listener.
	Unix bool
	// Security selects the auth acceptance policy.
	Security SecurityPolicy
	// Vendor and ReleaseNumber are reported in SetupReply.
	Vendor        string
	ReleaseNumber uint32
	// Verbose raises the logger to debug level.
	Verbose bool
}

// DefaultVendor and DefaultRelease are the SetupReply vendor fields when
// no override is configured.
const (
	DefaultVendor  = "X11Anywhere"
	DefaultRelease = 11000000
)

// Defaults returns the built-in configuration before flags/env/file are
// layered on top.
func Defaults() Config {
	return Config{
		Display:       0,
		Backend:       "null",
		TCP:           true,
		Unix:          true,
		Security:      SecurityPermissive,
		Vendor:        DefaultVendor,
		ReleaseNumber: DefaultRelease,
		Verbose:       false,
	}
}

// Load builds a Config by layering, in increasing priority: built-in
// defaults, an optional config file, environment variables prefixed
// X11ANYWHERE_, and finally any flags already bound into fs.
func Load(fs *pflag.FlagSet, configFile string) (Config, error) {
	v := viper.New()
	d := Defaults()

	v.SetDefault("display", d.Display)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("tcp", d.TCP)
	v.SetDefault("unix", d.Unix)
	v.SetDefault("security", string(d.Security))
	v.SetDefault("vendor", d.Vendor)
	v.SetDefault("release-number", d.ReleaseNumber)
	v.SetDefault("verbose", d.Verbose)

	v.SetEnvPrefix("x11anywhere")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, fmt.Errorf("config: binding flags: %w", err)
		}
	}

	cfg := Config{
		Display:       v.GetInt("display"),
		Backend:       v.GetString("backend"),
		TCP:           v.GetBool("tcp"),
		Unix:          v.GetBool("unix"),
		Security:      SecurityPolicy(v.GetString("security")),
		Vendor:        v.GetString("vendor"),
		ReleaseNumber: uint32(v.GetInt("release-number")),
		Verbose:       v.GetBool("verbose"),
	}

	switch cfg.Security {
	case SecurityPermissive, SecurityDefault, SecurityStrict:
	default:
		return Config{}, fmt.Errorf("config: unknown security policy %q", cfg.Security)
	}
	if cfg.Display < 0 {
		return Config{}, fmt.Errorf("config: display number must be >= 0, got %d", cfg.Display)
	}
	if !cfg.TCP && !cfg.Unix {
		return Config{}, fmt.Errorf("config: at least one of -tcp/-unix must be enabled")
	}

	return cfg, nil
}
