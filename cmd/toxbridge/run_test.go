package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/storage"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStateFirstStart(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), databaseFile))
	require.NoError(t, err)
	defer db.Close()

	first, err := loadState(db)
	require.NoError(t, err)
	assert.Nil(t, first.State)

	second, err := loadState(db)
	require.NoError(t, err)
	require.NotNil(t, second.State)
	assert.Equal(t, first.Nospam, second.Nospam)
	assert.Same(t, db, second.Store)
}

func TestOpenData(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("data-dir", filepath.Join(t.TempDir(), "nested"))

	id, db, err := openData()
	require.NoError(t, err)
	db.Close()

	again, db, err := openData()
	require.NoError(t, err)
	db.Close()
	assert.Equal(t, id.PublicKey(), again.PublicKey())
}

func TestOpenStack(t *testing.T) {
	id, err := crypto.GenerateIdentity()
	require.NoError(t, err)
	t.Cleanup(viper.Reset)

	viper.Set("network", "sim")
	stack, err := openStack(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id.PublicKey(), stack.SelfPublicKey())
	require.NoError(t, stack.Close())

	viper.Set("network", "carrier-pigeon")
	_, err = openStack(context.Background(), id)
	assert.Error(t, err)
}
