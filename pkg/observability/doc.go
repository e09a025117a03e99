/*
Package observability turns engine lifecycle events into logs and Prometheus metrics.

Both are plain domain.LifecycleHooks values, so they compose with each other and
with user hooks through domain.ComposeHooks.
*/
package observability
