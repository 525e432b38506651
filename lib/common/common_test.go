package common

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() StoreConfig {
	return StoreConfig{
		DataDir:      "data",
		Engine:       "maple",
		Codec:        "json",
		CacheDivisor: 6,
		LogLevel:     "info",
		Output:       "text",
	}
}

func TestValidate(t *testing.T) {
	c := validConfig()
	require.NoError(t, c.Validate())

	tests := map[string]func(c *StoreConfig){
		"empty data dir":   func(c *StoreConfig) { c.DataDir = "" },
		"unknown engine":   func(c *StoreConfig) { c.Engine = "bolt" },
		"unknown codec":    func(c *StoreConfig) { c.Codec = "xml" },
		"unknown output":   func(c *StoreConfig) { c.Output = "csv" },
		"zero divisor":     func(c *StoreConfig) { c.CacheDivisor = 0 },
		"negative cache":   func(c *StoreConfig) { c.CacheSize = -1 },
		"invalid loglevel": func(c *StoreConfig) { c.LogLevel = "verbose" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestConfigString(t *testing.T) {
	c := validConfig()
	out := c.String()
	assert.Contains(t, out, "ENVIRONMENT")
	assert.Contains(t, out, "persistent")
	assert.Contains(t, out, "auto (free heap / 6)")
	assert.Contains(t, out, "Shards")

	c.Temporary = true
	c.DeleteOnExit = true
	c.Engine = "sqlite"
	out = c.String()
	assert.Contains(t, out, "temporary")
	assert.Contains(t, out, "Delete On Exit")
	assert.NotContains(t, out, "Shards")
}

func TestParseLogLevel(t *testing.T) {
	for input, want := range map[string]logger.LogLevel{
		"debug": logger.DEBUG,
		"INFO":  logger.INFO,
		"warn":  logger.WARNING,
		"error": logger.ERROR,
	} {
		got, err := ParseLogLevel(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLogLevel("loud")
	assert.Error(t, err)
	assert.Error(t, InitLoggers("loud"))
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)

	l := CreateLogger("estore")
	l.SetLevel(logger.WARNING)
	l.Infof("hidden")
	l.Warningf("disk %s", "full")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasSuffix(out, "WARN  | estore          | disk full\n"), "unexpected log line %q", out)
}
