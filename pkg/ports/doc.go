// Package ports defines the boundary interfaces of the Arbor core.
//
// Following the Hexagonal Architecture, the engine and pipeline depend
// only on these contracts; concrete implementations live under
// pkg/adapters (process sandbox, Anthropic gateway, memory/redis
// checkpoint stores, loam playbooks).
package ports
