package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment variables read by LoadWithEnv
const EnvPrefix = "GTFCOL"

// Load loads a configuration from a YAML file
func Load(filePath string, config interface{}) error {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: File path is controlled by caller
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Substitute environment variables
	content := substituteEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(content), config); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// Save saves a configuration to a YAML file
func Save(filePath string, config interface{}) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadFile loads a YAML file over Default and validates the result
func LoadFile(filePath string) (*Config, error) {
	cfg := Default()
	if err := Load(filePath, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnv builds a configuration from Default, an optional YAML file and
// GTFCOL_* environment variables, in increasing order of precedence. Nested
// keys use underscores: GTFCOL_OUTPUT_FORMAT=parquet sets output.format.
// List values are comma separated.
func LoadWithEnv(filePath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filePath != "" {
		data, err := os.ReadFile(filePath) //nolint:gosec // G304: File path is controlled by caller
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		v.SetConfigType("yaml")
		if err := v.ReadConfig(strings.NewReader(substituteEnvVars(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key with viper so AutomaticEnv can resolve it
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("input.compression", d.Input.Compression)
	v.SetDefault("input.memory_map", d.Input.MemoryMap)
	v.SetDefault("input.s3_region", d.Input.S3Region)
	v.SetDefault("input.s3_endpoint", d.Input.S3Endpoint)
	v.SetDefault("input.s3_concurrency", d.Input.S3Concurrency)
	v.SetDefault("input.gcs_credentials_file", d.Input.GCSCredentialsFile)
	v.SetDefault("input.gcs_endpoint", d.Input.GCSEndpoint)

	v.SetDefault("parse.accepted_features", d.Parse.AcceptedFeatures)
	v.SetDefault("parse.zero_based_start", d.Parse.ZeroBasedStart)
	v.SetDefault("parse.retain_source_frame", d.Parse.RetainSourceFrame)

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.parquet_compression", d.Output.ParquetCompression)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.encoding", d.Logging.Encoding)
	v.SetDefault("logging.development", d.Logging.Development)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.textfile_path", d.Metrics.TextfilePath)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.sampling_rate", d.Tracing.SamplingRate)

	v.SetDefault("workers", d.Workers)
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}
