package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix      = "HRCTL"
	keyBaseURL     = "base_url"
	keySubject     = "subject"
	keySecret      = "secret"
	keyTimeout     = "refresh_timeout"
	keyringService = "hrctl"
)

type settings struct {
	BaseURL        string        `mapstructure:"base_url"`
	Subject        string        `mapstructure:"subject"`
	Secret         string        `mapstructure:"secret"`
	RefreshTimeout time.Duration `mapstructure:"refresh_timeout"`
}

// loadSettings reads an optional YAML file, then HRCTL_* env vars, then
// whatever flags v has been bound to. Each call gets its own viper.
func loadSettings(v *viper.Viper, cfgFile string) (settings, error) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyBaseURL, "http://localhost:8080")
	v.SetDefault(keySubject, "")
	v.SetDefault(keySecret, "")
	v.SetDefault(keyTimeout, 10*time.Second)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return settings{}, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	return s, nil
}

// keyringUser scopes stored tokens to one server. There is one session
// per server; logging in as another subject replaces it.
func (s settings) keyringUser() string {
	return s.BaseURL
}
