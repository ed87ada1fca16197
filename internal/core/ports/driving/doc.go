// Package driving defines the interfaces through which the outside
// world drives the core: the pipeline orchestrator and the watch
// loop. CLI commands depend on these, never on concrete services.
package driving
