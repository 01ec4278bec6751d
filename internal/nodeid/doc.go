/*
Package nodeid parses and formats the human-readable slot addresses used in
pipeline declarations and error messages.

The canonical form is `node.slot`, optionally qualified by the compartment
the node lives in: `compartment/node.slot`. A bare `node` (no slot) is also
accepted where only a node is meant, e.g. run targets.
*/
package nodeid
