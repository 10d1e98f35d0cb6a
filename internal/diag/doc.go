// Package diag holds the diagnostics produced while checking definitions.
//
// Codes are grouped by range: TC (3000) for elaboration and comparison,
// LVL (4000) for universe levels, DEP (5000) for the definition graph,
// IO (6000) for input decoding and OBS (7000) for timings and
// interruption. The checker reports through a Reporter; the driver
// collects per-definition Bags and merges them once a definition commits.
package diag
