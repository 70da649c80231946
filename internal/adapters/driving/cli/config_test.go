package cli

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

func TestConfigCmd_List(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "config", "list")

	require.NoError(t, err)
	for _, key := range []string{"index.nprocs", "index.stddev", "index.strict", "log.level", "store.dir"} {
		assert.Contains(t, out, key)
	}
	assert.Contains(t, out, "population")
}

func TestConfigCmd_DefaultsToList(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "config")

	require.NoError(t, err)
	assert.Contains(t, out, "index.nprocs")
}

func TestConfigCmd_Get(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.settings.settings.Index.Workers = 6

	out, err := execute(t, "config", "get", "index.nprocs")

	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(6), strings.TrimSpace(out))
}

func TestConfigCmd_GetUnknown(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "config", "get", "nope")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigCmd_Set(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "config", "set", "log.level", "debug")

	require.NoError(t, err)
	assert.Equal(t, "debug", mocks.settings.settings.Log.Level)
	assert.Contains(t, out, "log.level = debug")
}

func TestConfigCmd_SetStrict(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "config", "set", "index.strict", "true")

	require.NoError(t, err)
	assert.True(t, mocks.settings.settings.Index.Strict)
	assert.Contains(t, out, "index.strict = true")
}

func TestConfigCmd_SetInvalid(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "config", "set", "index.nprocs", "many")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigCmd_LoadError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.settings.err = errors.New("corrupt config")

	_, err := execute(t, "config", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt config")
}
