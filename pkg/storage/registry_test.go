package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/hostbroker/pkg/config"
)

func TestRegistryBuildsFileStrategy(t *testing.T) {
	s, err := New(config.StorageConfig{Kind: "file", FileBasePath: t.TempDir()})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save("requests", Record{ID: "req-1", Data: []byte(`{}`)}))
	_, ok, err := s.FindByID("requests", "req-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegistryRejectsUnknownKind(t *testing.T) {
	_, err := New(config.StorageConfig{Kind: "dynamodb"})
	assert.Error(t, err)
}
