package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

func initMockKeyring(t *testing.T) {
	t.Helper()
	t.Setenv("VITAE_API_KEY", "")
	gokeyring.MockInit()
	require.NoError(t, DeleteAPIKeyFromKeyring())
}

func TestKeyringRoundTrip(t *testing.T) {
	initMockKeyring(t)

	require.NoError(t, SaveAPIKeyToKeyring("round-trip-key"))

	key, err := GetAPIKeyFromKeyring()
	require.NoError(t, err)
	assert.Equal(t, "round-trip-key", key)

	require.NoError(t, DeleteAPIKeyFromKeyring())
	key, err = GetAPIKeyFromKeyring()
	require.NoError(t, err, "a missing key is not an error")
	assert.Empty(t, key)
}

func TestEnvAPIKeyTakesPrecedence(t *testing.T) {
	initMockKeyring(t)
	require.NoError(t, SaveAPIKeyToKeyring("stored-key"))
	t.Setenv("VITAE_API_KEY", "env-key")

	key, err := GetAPIKeyFromKeyring()
	require.NoError(t, err)
	assert.Equal(t, "env-key", key)
}

func TestDeleteMissingKeyIsNotAnError(t *testing.T) {
	initMockKeyring(t)
	assert.NoError(t, DeleteAPIKeyFromKeyring())
}
