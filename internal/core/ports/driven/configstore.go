package driven

// ConfigStore is one layer of raw configuration values. Keys are dotted
// paths such as "ingest.rate_limit_ms"; values keep the type their source
// decoded them as. Coercion and defaults are the resolver's job.
type ConfigStore interface {
	// Lookup returns the value stored under key.
	Lookup(key string) (any, bool)

	// Keys lists every stored key in sorted order.
	Keys() []string

	// Origin names the layer in messages, e.g. the file path.
	Origin() string
}
