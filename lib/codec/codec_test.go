package codec

import (
	"bytes"
	"reflect"
	"testing"
)

// testCodecs is a map of codec name to factory function
var testCodecs = map[string]func() Codec{
	"JSON": NewJSONCodec,
	"GOB":  NewGOBCodec,
	"YAML": NewYAMLCodec,
}

type testRecord struct {
	Name  string
	Tags  []string
	Count int
}

// TestCodecRoundTrip tests that values can be encoded and decoded correctly
func TestCodecRoundTrip(t *testing.T) {
	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			c := factory()

			var s string
			roundTrip(t, c, "test-value", &s)

			var n int64
			roundTrip(t, c, int64(-42), &n)

			var r testRecord
			roundTrip(t, c, testRecord{Name: "alice", Tags: []string{"a", "b"}, Count: 3}, &r)

			var m map[string]int
			roundTrip(t, c, map[string]int{"x": 1, "y": 2}, &m)
		})
	}
}

func roundTrip[T any](t *testing.T, c Codec, in T, out *T) {
	t.Helper()
	data, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("Failed to marshal %v: %v", in, err)
	}
	if err := c.Unmarshal(data, out); err != nil {
		t.Fatalf("Failed to unmarshal %v: %v", in, err)
	}
	if !reflect.DeepEqual(in, *out) {
		t.Errorf("Round trip mismatch: expected %v, got %v", in, *out)
	}
}

// TestCodecDeterministic checks that equal keys encode to equal bytes, which the
// stores rely on for key lookups
func TestCodecDeterministic(t *testing.T) {
	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			c := factory()
			a, err := c.Marshal(testRecord{Name: "k", Count: 1})
			if err != nil {
				t.Fatalf("Failed to marshal: %v", err)
			}
			b, _ := c.Marshal(testRecord{Name: "k", Count: 1})
			if !bytes.Equal(a, b) {
				t.Errorf("Expected identical encodings, got %q and %q", a, b)
			}
		})
	}
}

func TestByName(t *testing.T) {
	for _, name := range Names() {
		c, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%s) failed: %v", name, err)
		}
		if c.Name() != name {
			t.Errorf("Expected codec %s, got %s", name, c.Name())
		}
	}

	c, err := ByName("")
	if err != nil || c.Name() != Default {
		t.Errorf("Expected the default codec for an empty name, got %v (err=%v)", c, err)
	}

	if _, err := ByName("xml"); err == nil {
		t.Errorf("Expected an error for an unknown codec")
	}
}
