// Package config loads modgen configuration from the environment.
//
// # Overview
//
// Settings come from, in increasing precedence: built-in defaults (see
// pkg/codegen/config), an optional YAML file, and environment variables. An
// optional dotenv file is loaded into the environment first.
//
// # Build environment
//
//	OUT_DIR="/path/to/target/debug/build/x/out"  # required
//	YRX_EXTRA_PROTOS="a.proto sub/b.proto"        # extra schema files
//	YRX_EXTRA_PROTOS_BASE_PATH="../my-protos"     # base for relative entries
//
// # Generator settings
//
//	MODGEN_ROOT="."                        # tool root, default working dir
//	MODGEN_SCHEMA_DIR="src/modules/protos"
//	MODGEN_SHARED_INCLUDES="../proto/src ../proto-yaml/src"
//	MODGEN_SCHEMA_SUFFIX=".proto"
//	MODGEN_EXTENSION="yara.module_options"
//	MODGEN_INCLUSION_FILE="src/modules/modules.rs"
//	MODGEN_TABLE_FILE="add_modules.rs"
//	MODGEN_DIALECT="rust"                  # rust, go
//	MODGEN_BACKEND="pure"                  # pure, protoc, docker
//
// # Observability settings
//
//	MODGEN_LOG_LEVEL="info"                # debug, info, warn, error
//	MODGEN_LOG_FORMAT="text"               # text, json
//	MODGEN_METRICS_FILE="/var/lib/node_exporter/modgen.prom"
//	MODGEN_OTEL_ENABLED="true"
//	MODGEN_OTEL_ENDPOINT="otel-collector:4317"
//
// # Files
//
//	MODGEN_CONFIG="modgen.yaml"
//	MODGEN_ENV_FILE=".env"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		return err
//	}
//	layout, err := cfg.Layout()
package config
