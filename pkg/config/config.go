package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/modgen/pkg/codegen/compiler"
	defaults "github.com/platinummonkey/modgen/pkg/codegen/config"
	"github.com/platinummonkey/modgen/pkg/codegen/protopath"
	"github.com/platinummonkey/modgen/pkg/codegen/registry"
	"github.com/platinummonkey/modgen/pkg/observability"
)

// ErrInvalidConfig is returned when the configuration cannot be loaded or is invalid
var ErrInvalidConfig = errors.New("invalid configuration")

// Environment variables
const (
	EnvExtraProtos         = "YRX_EXTRA_PROTOS"
	EnvExtraProtosBasePath = "YRX_EXTRA_PROTOS_BASE_PATH"
	EnvOutDir              = "OUT_DIR"
	EnvConfigFile          = "MODGEN_CONFIG"
	EnvEnvFile             = "MODGEN_ENV_FILE"
)

// Config holds all modgen configuration
type Config struct {
	// Generator configuration
	Generator GeneratorConfig `yaml:"generator"`

	// Extra schema files. Only read from the environment.
	Extra protopath.ExtraSpec `yaml:"-"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// GeneratorConfig holds schema discovery, compilation and output settings
type GeneratorConfig struct {
	Root           string   `yaml:"root"`
	SchemaDir      string   `yaml:"schema_dir"`
	SharedIncludes []string `yaml:"shared_includes"`
	SharedInputs   []string `yaml:"shared_inputs"`
	SchemaSuffix   string   `yaml:"schema_suffix"`
	Extension      string   `yaml:"extension"`

	// OutDir is the build output directory
	OutDir string `yaml:"out_dir"`
	// InclusionFile is relative to Root
	InclusionFile string `yaml:"inclusion_file"`
	// TableFile is relative to OutDir
	TableFile string `yaml:"table_file"`
	// BindingsDir is relative to OutDir
	BindingsDir string `yaml:"bindings_dir"`

	Dialect        string `yaml:"dialect"`
	GoPackage      string `yaml:"go_package"`
	GoModulePrefix string `yaml:"go_module_prefix"`

	Backend        string `yaml:"backend"`
	GoImportPrefix string `yaml:"go_import_prefix"`
	ProtocPath     string `yaml:"protoc_path"`
	DockerImage    string `yaml:"docker_image"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// MetricsFile receives run metrics in the Prometheus text format
	MetricsFile string `yaml:"metrics_file"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Generator: GeneratorConfig{
			SchemaDir:      defaults.DefaultSchemaDir,
			SharedIncludes: append([]string(nil), defaults.DefaultSharedIncludes...),
			SharedInputs:   append([]string(nil), defaults.DefaultSharedInputs...),
			SchemaSuffix:   defaults.DefaultSchemaSuffix,
			Extension:      defaults.DefaultModuleExtension,
			InclusionFile:  defaults.DefaultInclusionFile,
			TableFile:      defaults.DefaultTableFile,
			BindingsDir:    defaults.DefaultBindingsDir,
			Dialect:        defaults.DefaultDialect,
			GoPackage:      defaults.DefaultGoPackage,
			GoModulePrefix: defaults.DefaultGoModuleImportPrefix,
			Backend:        defaults.DefaultBackend,
			GoImportPrefix: defaults.DefaultGoImportPrefix,
			ProtocPath:     defaults.DefaultProtocPath,
			DockerImage:    defaults.DefaultDockerImage,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			LogFormat:          observability.FormatText,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "modgen",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig loads configuration. Sources, later ones winning: defaults, the
// dotenv file named by MODGEN_ENV_FILE (into the environment), the YAML file
// named by MODGEN_CONFIG, then environment variables.
func LoadConfig() (*Config, error) {
	if envFile := os.Getenv(EnvEnvFile); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("%w: failed to load env file %s: %w", ErrInvalidConfig, envFile, err)
		}
	}

	cfg := Default()

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile merges a YAML configuration file into c. Unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: failed to read %s: %w", ErrInvalidConfig, path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: failed to parse %s: %w", ErrInvalidConfig, path, err)
	}
	return nil
}

// applyEnv overrides c with the environment
func (c *Config) applyEnv() {
	g := &c.Generator
	g.Root = getEnv("MODGEN_ROOT", g.Root)
	g.SchemaDir = getEnv("MODGEN_SCHEMA_DIR", g.SchemaDir)
	g.SharedIncludes = getEnvList("MODGEN_SHARED_INCLUDES", g.SharedIncludes)
	g.SharedInputs = getEnvList("MODGEN_SHARED_INPUTS", g.SharedInputs)
	g.SchemaSuffix = getEnv("MODGEN_SCHEMA_SUFFIX", g.SchemaSuffix)
	g.Extension = getEnv("MODGEN_EXTENSION", g.Extension)
	g.OutDir = getEnv(EnvOutDir, g.OutDir)
	g.InclusionFile = getEnv("MODGEN_INCLUSION_FILE", g.InclusionFile)
	g.TableFile = getEnv("MODGEN_TABLE_FILE", g.TableFile)
	g.BindingsDir = getEnv("MODGEN_BINDINGS_DIR", g.BindingsDir)
	g.Dialect = getEnv("MODGEN_DIALECT", g.Dialect)
	g.GoPackage = getEnv("MODGEN_GO_PACKAGE", g.GoPackage)
	g.GoModulePrefix = getEnv("MODGEN_GO_MODULE_PREFIX", g.GoModulePrefix)
	g.Backend = getEnv("MODGEN_BACKEND", g.Backend)
	g.GoImportPrefix = getEnv("MODGEN_GO_IMPORT_PREFIX", g.GoImportPrefix)
	g.ProtocPath = getEnv("MODGEN_PROTOC", g.ProtocPath)
	g.DockerImage = getEnv("MODGEN_DOCKER_IMAGE", g.DockerImage)

	// An empty base path is still a base path; only an unset one falls back
	// to the tool's root.
	c.Extra.Raw = os.Getenv(EnvExtraProtos)
	c.Extra.BasePath, c.Extra.HasBasePath = os.LookupEnv(EnvExtraProtosBasePath)

	o := &c.Observability
	o.LogLevel = getEnv("MODGEN_LOG_LEVEL", o.LogLevel)
	o.LogFormat = getEnv("MODGEN_LOG_FORMAT", o.LogFormat)
	o.MetricsFile = getEnv("MODGEN_METRICS_FILE", o.MetricsFile)
	o.OTelEnabled = getEnvBool("MODGEN_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("MODGEN_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("MODGEN_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("MODGEN_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("MODGEN_OTEL_INSECURE", o.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	g := c.Generator
	if g.OutDir == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidConfig, EnvOutDir)
	}
	if g.SchemaDir == "" {
		return fmt.Errorf("%w: schema directory is required", ErrInvalidConfig)
	}
	if g.SchemaSuffix == "" {
		return fmt.Errorf("%w: schema suffix is required", ErrInvalidConfig)
	}
	if g.Extension == "" {
		return fmt.Errorf("%w: module options extension is required", ErrInvalidConfig)
	}
	if g.InclusionFile == "" || g.TableFile == "" {
		return fmt.Errorf("%w: inclusion and table files are required", ErrInvalidConfig)
	}
	if _, err := registry.ParseDialect(g.Dialect); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := compiler.ParseBackend(g.Backend); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if _, err := logrus.ParseLevel(c.Observability.LogLevel); err != nil {
		return fmt.Errorf("%w: log level: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Observability.LogFormat) {
	case observability.FormatText, observability.FormatJSON:
	default:
		return fmt.Errorf("%w: log format %q (must be text or json)", ErrInvalidConfig, c.Observability.LogFormat)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("%w: OpenTelemetry endpoint is required when OTel is enabled", ErrInvalidConfig)
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("%w: OpenTelemetry service name is required when OTel is enabled", ErrInvalidConfig)
		}
	}

	return nil
}

// RootDir returns the tool root, the working directory when unset
func (c *Config) RootDir() (string, error) {
	if c.Generator.Root != "" {
		return filepath.Abs(c.Generator.Root)
	}
	return os.Getwd()
}

// Layout returns the schema layout for the path resolver
func (c *Config) Layout() (protopath.Layout, error) {
	root, err := c.RootDir()
	if err != nil {
		return protopath.Layout{}, err
	}
	return protopath.Layout{
		Root:           root,
		SchemaDir:      c.Generator.SchemaDir,
		SharedIncludes: c.Generator.SharedIncludes,
		SharedInputs:   c.Generator.SharedInputs,
		Suffix:         c.Generator.SchemaSuffix,
	}, nil
}

// InclusionPath returns the absolute path of the module-inclusion file
func (c *Config) InclusionPath() (string, error) {
	if filepath.IsAbs(c.Generator.InclusionFile) {
		return c.Generator.InclusionFile, nil
	}
	root, err := c.RootDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, c.Generator.InclusionFile), nil
}

// TablePath returns the path of the registration-table file
func (c *Config) TablePath() string {
	return underOutDir(c.Generator.OutDir, c.Generator.TableFile)
}

// BindingsPath returns the directory compiled bindings are written to
func (c *Config) BindingsPath() string {
	return underOutDir(c.Generator.OutDir, c.Generator.BindingsDir)
}

func underOutDir(outDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(outDir, path)
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvList returns a space-separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Fields(value)
	}
	return defaultValue
}
