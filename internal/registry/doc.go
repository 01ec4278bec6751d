// Package registry provides the explicit context object that knows every data
// kind and node type an application can use.
//
// A Registry is created once per application (or per test), populated by
// modules through Module.Register, validated, and then passed to graph and
// node construction. There is no package-level state: two registries never
// see each other's types.
//
// Data kinds form a tree rooted at AnyKind. A slot accepting kind K accepts
// any kind whose ancestor chain contains K.
package registry
