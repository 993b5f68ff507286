// Package pipeline executes task specs: aliases are expanded in order, each
// step runs its selected targets concurrently, and the first failing step
// halts the sequence. Every run produces a Report.
package pipeline
