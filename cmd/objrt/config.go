package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/objrt/vm"
)

type fileConfig struct {
	InitialPages uint32     `toml:"initial_pages"`
	MaxPages     uint32     `toml:"max_pages"`
	Verbose      bool       `toml:"verbose"`
	Types        []typeDecl `toml:"types"`
}

// typeDecl declares a heap type created at startup.
type typeDecl struct {
	Name  string   `toml:"name"`
	Bases []string `toml:"bases"`
}

type cliConfig struct {
	VM      vm.Config
	Verbose bool
	Types   []typeDecl
}

func defaultConfig() cliConfig {
	return cliConfig{VM: vm.DefaultConfig()}
}

func loadConfig(path string) (cliConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliConfig{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cliConfig{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("initial_pages") {
		cfg.VM.InitialPages = raw.InitialPages
	}
	if meta.IsDefined("max_pages") {
		cfg.VM.MaxPages = raw.MaxPages
	}
	if cfg.VM.InitialPages == 0 || cfg.VM.MaxPages < cfg.VM.InitialPages {
		return cliConfig{}, fmt.Errorf("load config: need 0 < initial_pages <= max_pages, got %d and %d",
			cfg.VM.InitialPages, cfg.VM.MaxPages)
	}

	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}

	for i, d := range raw.Types {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return cliConfig{}, fmt.Errorf("load config: types[%d] has no name", i)
		}
		cfg.Types = append(cfg.Types, typeDecl{Name: name, Bases: normalizeNames(d.Bases)})
	}
	return cfg, nil
}

func normalizeNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := strings.TrimSpace(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}
