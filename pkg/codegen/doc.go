// Package codegen turns a directory of protobuf schemas into compiled Go
// bindings and a module registry for the host program.
//
// # Overview
//
// A host program ships a set of modules, each described by a schema file
// that carries a module options extension:
//
//	option (yara.module_options) = {
//	  name : "memory"
//	  root_message: "MemoryInfo"
//	  rust_module: "memory"
//	  cargo_feature: "memory_module"
//	};
//
// Every build, modgen compiles all schemas and writes two files: an
// inclusion file that pulls in the modules' implementations, and a table
// file that registers every declared module. Entries of modules with a
// feature are guarded by that feature in both files.
//
// # Architecture
//
// The pipeline consists of four components, run in order by the
// orchestrator (pkg/codegen/orchestrator):
//
//  1. Path Resolver (pkg/codegen/protopath): primary schemas, shared inputs
//     and extra files from YRX_EXTRA_PROTOS, with their include roots
//  2. Schema Compiler (pkg/codegen/compiler): descriptors with protocompile
//     and bindings with one of three backends
//  3. Descriptor Extractor (pkg/codegen/modules): module declarations from
//     the module options extension
//  4. Registry Emitter (pkg/codegen/registry): inclusion and table files in
//     the rust or go dialect
//
// Supporting packages: pkg/codegen/docker runs protoc in a container,
// pkg/codegen/cache remembers file fingerprints for watch mode, and
// pkg/codegen/config holds the defaults.
//
// # Binding Backends
//
//	Backend   Needs               Notes
//	-------   -----               -----
//	pure      nothing             protoc-gen-go runs in process (default)
//	protoc    protoc, protoc-gen-go on PATH
//	docker    a Docker daemon     image with protoc and protoc-gen-go
//
// All backends compile the same inputs with the same include paths as the
// descriptor pass.
//
// # Basic Usage
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		return err
//	}
//	runCfg, err := orchestrator.NewConfig(cfg)
//	if err != nil {
//		return err
//	}
//	orch, err := orchestrator.NewOrchestrator(runCfg, orchestrator.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	defer orch.Close()
//
//	result, err := orch.Run(ctx)
//
// # Determinism
//
// Identical inputs produce byte-identical output files. Declarations follow
// the order of the descriptor closure, which follows the order of the
// inputs: shared inputs, primary schemas in directory order, extra files in
// list order.
//
// # Errors
//
// Any error is fatal and is reported before the registry files are written.
// Partial outputs of an earlier stage, such as bindings, are left in place.
package codegen
