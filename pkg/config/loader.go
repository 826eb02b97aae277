package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Options controls where configuration is read from.
type Options struct {
	// Path is an explicit config file. A missing explicit file is an error.
	Path string
	// ProjectDir is searched for qodana.yaml when Path is empty.
	ProjectDir string
	// Overrides are key/value pairs that win over every other source,
	// typically the command-line flags the user changed.
	Overrides map[string]any
}

// Load reads defaults, the config file, QODANA_* environment variables and
// overrides, in increasing order of precedence, and validates the result.
func Load(opts Options) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType("yaml")
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	bindOptionalEnv(viperCfg)

	path, err := resolvePath(opts)
	if err != nil {
		return nil, err
	}

	if path != "" {
		viperCfg.SetConfigFile(path)

		readErr := viperCfg.ReadInConfig()
		if readErr != nil {
			return nil, fmt.Errorf("read config %s: %w", path, readErr)
		}
	}

	for key, value := range opts.Overrides {
		viperCfg.Set(key, value)
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func resolvePath(opts Options) (string, error) {
	if opts.Path != "" {
		return opts.Path, nil
	}

	if opts.ProjectDir == "" {
		return "", nil
	}

	for _, name := range configNames {
		candidate := filepath.Join(opts.ProjectDir, name)

		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}

		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat config %s: %w", candidate, err)
		}
	}

	return "", nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault(KeyResultsDir, DefaultResultsDir)

	viperCfg.SetDefault(KeyBaselinePath, "")
	viperCfg.SetDefault(KeyIncludeAbsent, DefaultIncludeAbsent)

	viperCfg.SetDefault(KeyQueueCapacity, DefaultQueueCapacity)
	viperCfg.SetDefault(KeyWorkers, DefaultWorkers)
	viperCfg.SetDefault(KeyDefaultQuota, DefaultQuota)

	viperCfg.SetDefault(KeyLogLevel, DefaultLogLevel)
	viperCfg.SetDefault(KeyLogJSON, DefaultLogJSON)

	viperCfg.SetDefault(KeyOTLPEndpoint, "")
	viperCfg.SetDefault(KeyOTLPHeaders, "")
	viperCfg.SetDefault(KeyOTLPInsecure, false)
	viperCfg.SetDefault(KeySampleRatio, DefaultSampleRatio)
	viperCfg.SetDefault(KeyMetricsTextfile, "")

	viperCfg.SetDefault(KeyCoverageFile, "")
	viperCfg.SetDefault(KeyChangesFile, "")
	viperCfg.SetDefault(KeyDiffStart, "")
	viperCfg.SetDefault(KeyCompressReport, DefaultCompressReport)
}

// bindOptionalEnv makes threshold keys visible to the environment without
// giving them a default value.
func bindOptionalEnv(viperCfg *viper.Viper) {
	keys := []string{KeyFailThreshold, KeySeverityAny, KeyCoverageTotal, KeyCoverageFresh}
	for _, sev := range []string{"critical", "high", "moderate", "low", "info"} {
		keys = append(keys, keySeverityPrefix+sev)
	}

	for _, key := range keys {
		// BindEnv only fails without a key.
		_ = viperCfg.BindEnv(key)
	}
}
