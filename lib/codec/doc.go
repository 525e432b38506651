// Package codec provides the key and value encodings of dStore stores. A store
// marshals every key and value with its codec before handing it to the storage
// engine, and the codec name is recorded in the environment's encoding catalog so
// that a container is always reopened with the encoding it was written with.
//
// Key Components:
//
//   - Codec: Core interface that all codec implementations must satisfy.
//
//   - jsonCodecImpl: JSON encoding, the default. Human-readable and stable, which makes
//     the stored keys easy to inspect with the CLI.
//
//   - gobCodecImpl: Go's gob encoding. Preserves Go types (e.g. int vs. float) exactly,
//     at the cost of a type description in every encoded value.
//
//   - yamlCodecImpl: YAML encoding via gopkg.in/yaml.v3.
//
// Thread Safety:
//
//	All codec implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	c, err := codec.ByName("gob")
//	data, err := c.Marshal(value)
//	// ... store data ...
//	var restored Value
//	err = c.Unmarshal(data, &restored)
package codec
