// Package coordinator collapses concurrent identical data-fetch requests
// into a single in-flight network operation shared by all callers.
//
// Requests are identified by a canonical cache key: the path, plus a stable
// serialization of the parameter object with keys sorted recursively, so
// {b:2, a:1} and {a:1, b:2} always share one key. While an entry for a key
// is live and younger than the TTL, every caller attaches to its shared
// result instead of issuing a new request. Entries are removed the moment
// their fetch completes — success or failure — so a failed request is never
// served from cache to a later caller.
//
// The coordinator is process-wide: one instance serves every table on the
// page. Fetch spans are traced through OpenTelemetry, and Prometheus
// metrics (requests, in-flight joins, durations) attach via WithMetrics.
package coordinator
