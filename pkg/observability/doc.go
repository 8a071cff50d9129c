/*
Package observability turns dialogue lifecycle events into Prometheus metrics
and structured log lines.

Both are exposed as domain.LifecycleHooks so the dispatcher stays unaware of
how events are consumed. Use Chain to combine several hook sets.
*/
package observability
