// Package domain holds the core data model of the orchestrator: the
// per-request ExecutionState handed node-to-node, the immutable Topology
// graph, capability records, node outcomes and the error taxonomy.
//
// Everything here is transport- and storage-agnostic; adapters under
// internal/ map these types onto Redis, HTTP and files.
package domain
