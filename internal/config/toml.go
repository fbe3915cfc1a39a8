// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Server ServerConfig `toml:"server"`
	Client ClientConfig `toml:"client"`
}

// ServerConfig maps settings of the history recorder service.
type ServerConfig struct {
	Addr         *string  `toml:"addr"`
	DB           *string  `toml:"db"`
	HistoryLimit *int     `toml:"history-limit"`
	Rate         *float64 `toml:"rate"`
	Burst        *int     `toml:"burst"`
	CORSOrigin   *string  `toml:"cors-origin"`
	Dialect      *string  `toml:"dialect"`
	MatchTimeout *string  `toml:"match-timeout"`
}

// ClientConfig maps settings of the terminal client and one-shot commands.
type ClientConfig struct {
	Server  *string `toml:"server"`
	Dialect *string `toml:"dialect"`
	Timeout *string `toml:"timeout"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Encode writes cfg as TOML. Unset fields are omitted.
func Encode(w io.Writer, cfg FileConfig) error {
	return toml.NewEncoder(w).Encode(cfg)
}
