// Package ports defines the interfaces between the execution core and its
// collaborators: node implementations, capability registries, the memory
// and cache service, topology storage and backend resolvers. Adapters and
// backends implement these; the engine depends on nothing else.
package ports
