// Package api contains the public building blocks of the comgr code object
// manager: status codes and error sentinels, the data/action/metadata/symbol
// enumerations, handle types, the Manager interface and the Observer hooks.
//
// Most users interact with the higher-level comgr package, which re-exports
// selected types and provides constructors. The api package is intended for
// custom integrations, for example an Observer that exports metrics.
//
// # Handles
//
// Data objects, data sets, action infos, metadata nodes and symbols are
// referenced through small value types wrapping a uint64 handle. A handle
// stays valid until the object it names is released or destroyed; using a
// stale handle fails with ErrInvalidArgument rather than touching another
// object.
//
// # Errors
//
// Every Manager method reports failures by wrapping one of ErrError,
// ErrInvalidArgument or ErrOutOfResources. StatusOf classifies an error into
// the matching Status code:
//
//	if err := mgr.DoAction(ctx, api.ActionCompileSourceToBC, info, in, out); err != nil {
//	    switch api.StatusOf(err) {
//	    case api.StatusErrorInvalidArgument:
//	        // fix the request
//	    case api.StatusError:
//	        // inspect the diagnostic and log objects in out
//	    }
//	}
//
// # Observability
//
// Observer receives action and stage lifecycle callbacks. LoggingObserver
// writes them to log/slog, BasicMetrics keeps counters, and
// NewCompositeObserver combines several observers.
package api
