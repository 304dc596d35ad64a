package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"
)

// config holds the resolved operator-facing settings. The activation retry
// budget is deliberately not here: it is part of the attach convention and
// only adjustable through the library's options.
type config struct {
	TmpDir          string
	LogLevel        zapcore.Level
	ResponseTimeout time.Duration
}

func defaultConfig() config {
	return config{
		LogLevel: zapcore.InfoLevel,
	}
}

// fileConfig is the TOML key mapping.
type fileConfig struct {
	TmpDir          string `toml:"tmp_dir"`
	LogLevel        string `toml:"log_level"`
	ResponseTimeout string `toml:"response_timeout"`
}

// loadFileConfig overlays settings from a TOML file onto cfg. Keys absent
// from the file leave the current value alone.
func loadFileConfig(path string, cfg config) (config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("loading config %q: %w", path, err)
	}
	if meta.IsDefined("tmp_dir") {
		cfg.TmpDir = raw.TmpDir
	}
	if meta.IsDefined("log_level") {
		level, err := zapcore.ParseLevel(raw.LogLevel)
		if err != nil {
			return config{}, fmt.Errorf("loading config %q: %w", path, err)
		}
		cfg.LogLevel = level
	}
	if meta.IsDefined("response_timeout") {
		d, err := time.ParseDuration(raw.ResponseTimeout)
		if err != nil {
			return config{}, fmt.Errorf("loading config %q: parsing response_timeout: %w", path, err)
		}
		cfg.ResponseTimeout = d
	}
	return cfg, nil
}

// resolveConfig layers defaults, then the config file, then explicit flags.
func resolveConfig(ctx *cli.Context) (config, error) {
	cfg := defaultConfig()

	if path := ctx.String("config"); path != "" {
		var err error
		cfg, err = loadFileConfig(path, cfg)
		if err != nil {
			return config{}, err
		}
	}

	if ctx.IsSet("log-level") {
		level, err := zapcore.ParseLevel(ctx.String("log-level"))
		if err != nil {
			return config{}, fmt.Errorf("parsing log-level: %w", err)
		}
		cfg.LogLevel = level
	}
	if ctx.IsSet("tmp-dir") {
		cfg.TmpDir = ctx.String("tmp-dir")
	}
	if ctx.IsSet("timeout") {
		cfg.ResponseTimeout = ctx.Duration("timeout")
	}
	return cfg, nil
}
