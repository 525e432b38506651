package estore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ValentinKolb/dStore/lib/codec"
	"github.com/ValentinKolb/dStore/lib/db"
)

// ErrIncompatibleTypes is returned when a store is opened with other key or value
// types (or another codec) than it was created with
var ErrIncompatibleTypes = errors.New("incompatible store types")

// Binding records how the keys and values of one store are encoded
type Binding struct {
	KeyType   string `json:"key_type" yaml:"key_type"`
	ValueType string `json:"value_type" yaml:"value_type"`
	Codec     string `json:"codec" yaml:"codec"`
}

func (b Binding) String() string {
	return fmt.Sprintf("%s -> %s (%s)", b.KeyType, b.ValueType, b.Codec)
}

// Catalog is the encoding catalog of an environment. It lives in the reserved
// container db.CatalogContainerName and maps store names to their Binding.
type Catalog struct {
	mu        sync.Mutex // serializes Bind
	container db.Container
	codec     codec.Codec
}

// openCatalog opens (or creates) the catalog container of env
func openCatalog(env db.Environment, config db.ContainerConfig) (*Catalog, error) {
	container, err := env.OpenContainer(db.CatalogContainerName, config)
	if err != nil {
		return nil, fmt.Errorf("open encoding catalog: %w", err)
	}
	return &Catalog{
		container: container,
		codec:     codec.NewJSONCodec(),
	}, nil
}

// Lookup returns the binding recorded for the named store
func (c *Catalog) Lookup(name string) (Binding, bool, error) {
	raw, ok, err := c.container.Get([]byte(name))
	if err != nil || !ok {
		return Binding{}, false, err
	}
	var b Binding
	if err := c.codec.Unmarshal(raw, &b); err != nil {
		return Binding{}, false, fmt.Errorf("decode catalog entry %q: %w", name, err)
	}
	return b, true, nil
}

// Check fails with ErrIncompatibleTypes if the named store is bound to something other than b
func (c *Catalog) Check(name string, b Binding) error {
	_, err := c.check(name, b)
	return err
}

// check reports whether name is bound at all and whether that binding matches b
func (c *Catalog) check(name string, b Binding) (bool, error) {
	existing, ok, err := c.Lookup(name)
	if err != nil || !ok {
		return false, err
	}
	if existing != b {
		return true, fmt.Errorf("%w: %q holds %s, requested %s", ErrIncompatibleTypes, name, existing, b)
	}
	return true, nil
}

// Bind records b for the named store. If the store already has a different
// binding, ErrIncompatibleTypes is returned and nothing is changed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Catalog) Bind(name string, b Binding) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	bound, err := c.check(name, b)
	if err != nil || bound {
		return err
	}

	raw, err := c.codec.Marshal(b)
	if err != nil {
		return err
	}
	_, _, err = c.container.Put([]byte(name), raw)
	return err
}

// Close closes the catalog container
func (c *Catalog) Close() error {
	return c.container.Close()
}
