package util

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/dStore/lib/db"
	"github.com/ValentinKolb/dStore/lib/store"
	"github.com/ValentinKolb/dStore/lib/store/estore"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useConfig points viper at a fresh data directory
func useConfig(t *testing.T, engine string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("data-dir", t.TempDir())
	viper.Set("engine", engine)
	viper.Set("codec", "json")
	viper.Set("output", "text")
	viper.Set("log-level", "error")
	viper.Set("cache-divisor", estore.DefaultCacheDivisor)
}

func TestWithFactoryClosesFactory(t *testing.T) {
	for _, engine := range []string{"maple", "sqlite"} {
		t.Run(engine, func(t *testing.T) {
			useConfig(t, engine)

			var factory *estore.Factory[string, string]
			var s store.Store[string, string]
			err := WithFactory(func(f *estore.Factory[string, string]) error {
				factory = f
				var err error
				s, err = f.GetInstance("users")
				return err
			})
			require.NoError(t, err)

			assert.True(t, factory.IsClosed())
			assert.True(t, s.IsClosed())
			assert.Equal(t, 0, factory.Coordinator().Len())

			_, err = factory.GetInstance("users")
			assert.ErrorIs(t, err, db.ErrClosed)
		})
	}
}

func TestWithFactoryReturnsCommandError(t *testing.T) {
	useConfig(t, "maple")

	failure := errors.New("command failed")
	var factory *estore.Factory[string, string]
	err := WithFactory(func(f *estore.Factory[string, string]) error {
		factory = f
		return failure
	})
	assert.ErrorIs(t, err, failure)
	assert.True(t, factory.IsClosed())
}

func TestWithFactoryRejectsInvalidConfig(t *testing.T) {
	useConfig(t, "bolt")

	called := false
	err := WithFactory(func(*estore.Factory[string, string]) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}
