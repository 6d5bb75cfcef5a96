package emu

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"

	"phi2/emu/log"
)

type Config struct {
	Machine  MachineConfig `toml:"machine"`
	RPC      ListenConfig  `toml:"rpc"`
	Debugger ListenConfig  `toml:"debugger"`
	Log      LogConfig     `toml:"log"`
}

type MachineConfig struct {
	// Hz is the simulated clock rate the run loop paces itself to.
	Hz int64 `toml:"hz"`

	// Console maps the character I/O device when set.
	Console bool `toml:"console"`

	// Trace names the execution trace destination. Empty disables
	// tracing, "-" means stderr, anything else is a file path.
	Trace string `toml:"trace"`
}

type ListenConfig struct {
	Addr string `toml:"addr"`
}

type LogConfig struct {
	// Modules enables debug output for the named log modules,
	// "all" for every one.
	Modules string `toml:"modules"`
}

func DefaultConfig() Config {
	return Config{
		Machine: MachineConfig{Hz: 1_000_000},
	}
}

// ConfigDir resolves the per-user configuration directory, creating it
// on first use.
var ConfigDir = sync.OnceValue(func() string {
	dir := configdir.LocalConfig("phi2")
	if err := configdir.MakePath(dir); err != nil {
		log.ModEmu.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
})

const cfgFilename = "config.toml"

// LoadConfig loads the configuration file, or returns the defaults when
// there is none. A file that exists but does not parse is an error.
func LoadConfig() (Config, error) {
	return loadConfig(filepath.Join(ConfigDir(), cfgFilename))
}

func loadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to the configuration file.
func SaveConfig(cfg Config) error {
	return saveConfig(filepath.Join(ConfigDir(), cfgFilename), cfg)
}

func saveConfig(path string, cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}
