// Package comgr provides an embeddable code object manager for AMD GPU
// toolchains.
//
// It accepts source code, LLVM bitcode, relocatable objects and executable
// code objects, runs toolchain actions on them and lets callers inspect the
// metadata and symbols of the results. Everything is addressed through
// opaque handles, so the same Manager can be shared by many goroutines.
//
// # Core Concepts
//
// The comgr programming model is intentionally small:
//
//  1. Manager
//  2. Data and DataSet
//  3. ActionInfo
//  4. Processor
//  5. Pipeline
//
// # Manager
//
// A Manager owns every handle. It creates and releases data objects, data
// sets and action infos, runs actions with DoAction, and answers metadata
// and symbol queries. Errors map to status codes with StatusOf:
//
//   - StatusErrorInvalidArgument for contract violations such as stale
//     handles or a missing ISA
//   - StatusErrorOutOfResources when a handle table is full
//   - StatusError for stage failures and failed lookups
//
// Managers can cache stage results in different storage systems:
//
//   - In-memory
//   - SQLite
//   - Postgres
//   - Redis
//   - MongoDB
//
// # Data and DataSet
//
// A data object has a kind fixed at creation, a name, a payload and, for
// bitcode and machine code, an ISA name. Objects are reference counted: the
// creator holds one reference and every data set holding the object holds
// another. A DataSet is an ordered, duplicate-free collection used as the
// input and result of actions.
//
// # ActionInfo
//
// An ActionInfo carries the ISA, source language, options string, working
// directory and logging flag of an action. With logging enabled every
// action adds a log object to its result set.
//
// # Processor
//
// Stages of every action run through a Processor. The default processor
// runs clang, llvm-link, opt, llc, ld.lld, llvm-mc and llvm-objdump in a
// temporary workspace per stage. Tests and embedders can plug in their own
// with ProcessorFunc.
//
// # Pipeline
//
// Pipeline chains actions so that the results of one step feed the next:
//
//	out, err := comgr.NewPipeline("vadd").
//	    Then(api.ActionCompileSourceToBC).
//	    Then(api.ActionLinkBCToBC).WithDeviceLibraries().
//	    Then(api.ActionCodegenBCToRelocatable).
//	    Then(api.ActionLinkRelocatableToExecutable).
//	    Run(ctx, m, info, sources)
//
// # Configuration
//
// Open builds a Manager from COMGR_* environment variables, an optional
// .env file and an optional YAML file named by COMGR_CONFIG. The comgr
// command in cmd/comgr exposes the same operations on the command line.
//
// For examples, see the /examples directory.
package comgr
