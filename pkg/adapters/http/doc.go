// Package http exposes the WhatsApp webhook, health and metrics endpoints
// on a chi router.
package http
