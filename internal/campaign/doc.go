// Package campaign orchestrates the delivery of one campaign to an
// artist's fan list.
//
// The orchestrator is the engine's only entry point. It owns the
// campaign for the duration of a send and mutates it solely through the
// Store contract; recipients are read-only except for the outcome log.
// Queue backends and dispatcher wiring are injected so single-instance
// (in-memory) and multi-instance (durable, claim-and-lease) deployments
// share the same logic.
package campaign
