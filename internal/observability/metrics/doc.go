// Package metrics instruments the group stores.
//
// InstrumentCandidates and InstrumentReported wrap any repository
// implementation and record per-operation latency and failures under
// groupwatch_store_*; RegisterDBStats exports database/sql pool statistics
// when the Postgres store is in use.
package metrics
