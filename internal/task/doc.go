// Package task holds the task binding model shared by the descriptor, the
// orchestrator and every capability: file mappings, merged options, the
// Handler contract and the capability registry.
package task
