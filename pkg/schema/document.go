// Package schema defines universal data structures used across the Celerix platform.
package schema

// Document is the schemaless profile value served by the daemon and the SDK.
// Any JSON object can be stored; typed callers convert through sdk.Get and sdk.Put.
type Document map[string]any

// ProfileEntry pairs a profile ID with its data, e.g. in CLI listings.
type ProfileEntry struct {
	ID   string   `json:"id"`
	Data Document `json:"data"`
}
