package main

import (
	"fmt"
	"os"

	gokeyring "github.com/zalando/go-keyring"
)

const (
	keyringService = "sh.vitae.vitae-cli"
	keyringAPIKey  = "service_api_key"
)

// SaveAPIKeyToKeyring securely stores the service API key in the OS keyring
func SaveAPIKeyToKeyring(apiKey string) error {
	if err := gokeyring.Set(keyringService, keyringAPIKey, apiKey); err != nil {
		return fmt.Errorf("failed to store API key in keyring: %w", err)
	}
	return nil
}

// GetAPIKeyFromKeyring retrieves the service API key from the environment or
// the OS keyring. A missing key is not an error.
func GetAPIKeyFromKeyring() (string, error) {
	if key := os.Getenv("VITAE_API_KEY"); key != "" {
		return key, nil
	}

	key, err := gokeyring.Get(keyringService, keyringAPIKey)
	if err != nil {
		if err == gokeyring.ErrNotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to retrieve API key from keyring: %w", err)
	}
	return key, nil
}

// DeleteAPIKeyFromKeyring removes the stored API key, if any
func DeleteAPIKeyFromKeyring() error {
	err := gokeyring.Delete(keyringService, keyringAPIKey)
	if err != nil && err != gokeyring.ErrNotFound {
		return fmt.Errorf("failed to delete API key from keyring: %w", err)
	}
	return nil
}
