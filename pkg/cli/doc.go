// Package cli implements the modgen command-line interface.
//
// # Commands
//
// generate: run the full pipeline once. This is what a build script calls.
// Build system directives go to stdout, logs to stderr.
//
//	OUT_DIR=/path/to/out modgen generate
//	modgen generate -dialect go -backend protoc
//
// watch: run generate, then again whenever a file in a schema directory
// changes. Events that leave a file's content unchanged are ignored.
//
//	modgen watch -debounce 1s
//
// modules: list the module declarations without writing anything
//
//	modgen modules
//	modgen modules -json
//
// descriptors: write the FileDescriptorSet of all schemas and their imports
//
//	modgen descriptors -o schemas.pb
//	modgen descriptors -format json
//
// All commands read their configuration from the environment, see package
// config.
package cli
