// Package app wires a slotflow engine together: logger, registry, pipeline
// loading, graph building, cache backend, event sinks and run store. It
// owns the run lifecycle independently of any entrypoint such as the CLI.
package app
