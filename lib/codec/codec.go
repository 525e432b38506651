package codec

import (
	"fmt"
	"sort"
)

// Codec turns keys and values of a store into bytes and back
type Codec interface {
	// Name returns the identifier recorded in the encoding catalog
	Name() string
	// Marshal encodes v
	// It returns the encoded bytes and an error if any
	Marshal(v any) ([]byte, error)
	// Unmarshal decodes b into the value pointed to by v
	// It returns an error if any
	Unmarshal(b []byte, v any) error
}

// Default is the codec used when no codec is configured
const Default = "json"

var codecs = map[string]func() Codec{
	"json": NewJSONCodec,
	"gob":  NewGOBCodec,
	"yaml": NewYAMLCodec,
}

// ByName returns the codec registered under name
func ByName(name string) (Codec, error) {
	if name == "" {
		name = Default
	}
	factory, ok := codecs[name]
	if !ok {
		return nil, fmt.Errorf("unknown codec %q (available: %v)", name, Names())
	}
	return factory(), nil
}

// Names returns the names of all available codecs
func Names() []string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
