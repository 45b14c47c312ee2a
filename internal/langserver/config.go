package langserver

import (
	"os"

	"gopkg.in/yaml.v3"
)

// GCConfig tunes the incremental collector's per-recheck bounds,
// mirroring gc.rs's NUM_MODULE_MARKED_PER_SLICE/NUM_SWEEP_UNIT
// constants as overridable server settings instead of hardcoded
// values, the way the teacher's own internal/config separates
// runtime-tunable knobs from compiled-in defaults.
type GCConfig struct {
	ModuleMarkedPerSlice int `yaml:"module_marked_per_slice"`
	SweepUnit            int `yaml:"sweep_unit"`
}

// Config is the language service's YAML-loadable server configuration:
// how aggressively to collect, plus an EnableProfiling flag that is
// loaded and carried here but not read by the server, which records no
// timings.
type Config struct {
	GC              GCConfig `yaml:"gc"`
	EnableProfiling bool     `yaml:"enable_profiling"`
}

// DefaultConfig returns the package-default tuning (the
// moduleMarkedPerSlice and sweepUnit constants), used when no config
// file is supplied.
func DefaultConfig() Config {
	return Config{
		GC: GCConfig{
			ModuleMarkedPerSlice: moduleMarkedPerSlice,
			SweepUnit:            sweepUnit,
		},
	}
}

// LoadConfig reads a YAML server-configuration file, starting from
// DefaultConfig so a file that only overrides one field still gets
// sane values for the rest.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
