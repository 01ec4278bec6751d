/*
Package builder turns a declared pipeline (config.Pipeline) into a graph.

Construction runs in three passes:

 1. Compartments: every declared compartment is created. Names must be
    unique.

 2. Nodes: each declaration is instantiated through the registry, which
    checks its parameters and builds its algorithm. Flags and iteration
    options are applied and the node is placed in its compartment.

 3. Connections: both ends are resolved by address (compartment/node.slot)
    and connected through the graph, which rejects cycles, kind mismatches
    and over-full inputs.

Errors within a pass are collected so that one build reports every problem
of that pass; a failed pass stops the build. The returned graph is
structurally sound but not yet validated: the executor validates it before
every run.
*/
package builder
