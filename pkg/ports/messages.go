package ports

// MessageCatalog resolves reply templates by dotted key.
// Missing keys must degrade to a visible placeholder, never panic.
type MessageCatalog interface {
	Get(key string, vars map[string]string) string
}
