// Package safety implements the obstacle-detection safety monitor.
//
// The monitor subscribes to a LiDAR sensor's range scans, tests every
// scan point against a set of angular safety zones, and publishes an
// emergency-stop command the instant a critical zone reports an
// obstacle. The stop is latched: exactly one command is published per
// incident, and the latch releases only after the rolling detection
// history has stayed free of critical detections for the configured
// clear window.
//
// Three concerns run concurrently:
//
//   - Scan analysis on the bus dispatch path. Kept fast; per-scan
//     processing time is sampled so the watchdog can tell when the
//     monitor itself threatens its response-time budget.
//   - A monitoring loop (5s) that checks scan-feed staleness, publishes
//     the periodic status message, and evaluates latch release.
//   - A watchdog loop that compares average processing latency against
//     the emergency-stop budget and verifies bus connectivity.
//
// A stale or absent scan feed is logged loudly but never stops
// processing: the feed, not the monitor, is the failing component, and
// the monitor must be ready the moment data returns.
//
// Detections and stop events are optionally persisted through a
// Recorder (backed by the SQLite journal). Persistence failures are
// logged and ignored; they must never delay a stop.
package safety
