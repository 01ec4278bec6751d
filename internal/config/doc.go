// Package config defines the format-agnostic pipeline model and the engine
// settings, together with the Loader interface that concrete formats such as
// HCL implement.
//
// A Pipeline is only a declaration: names and addresses, not yet resolved
// against a registry. The builder package turns it into a graph.
package config
