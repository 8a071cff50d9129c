// Package whatsapp is the WhatsApp transport: an outbound Client for the
// Cloud API (or an unofficial gateway) and the parser for Cloud API webhook
// envelopes.
package whatsapp
