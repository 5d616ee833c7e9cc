// Package serverun wires configuration, logging, the pipeline and the HTTP
// server into a long-running process. It holds a file lock in the work
// directory so only one server sweeps and serves a given tree.
package serverun
