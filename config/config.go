// Package config layers flags, environment variables, and defaults into
// the server's runtime configuration.
package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the fully resolved configuration for a server run.
type Config struct {
	Port            int
	DevicePreferred []string
	Debug           bool
}

var defaultDevicePreference = []string{"loopMIDI", "MIDI Controller", "Virtual", "IAC"}

// Load resolves configuration from cmd's bound flags, the JCMP_ environment
// prefix, and the JCMP_DEBUG variable named directly in the wire protocol,
// falling back to defaults for anything unset.
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	v.SetDefault("port", 5000)
	v.SetDefault("device-prefer", defaultDevicePreference)
	v.SetDefault("debug", false)

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	v.SetEnvPrefix("jcmp")
	if err := v.BindEnv("debug", "JCMP_DEBUG"); err != nil {
		return nil, err
	}
	v.AutomaticEnv()

	return &Config{
		Port:            v.GetInt("port"),
		DevicePreferred: v.GetStringSlice("device-prefer"),
		Debug:           v.GetBool("debug"),
	}, nil
}
