package main

import (
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/libp2p/go-libp2p/core/crypto"
)

const (
	identityFile    = "identity.pem"
	identityPEMType = "LIBP2P PRIVATE KEY"
)

// LoadOrCreateIdentity returns the host key stored in keysDir, generating and
// saving a new Ed25519 key on first use.
func LoadOrCreateIdentity(keysDir string) (crypto.PrivKey, error) {
	if err := os.MkdirAll(keysDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create keys directory: %w", err)
	}

	path := filepath.Join(keysDir, identityFile)
	if _, err := os.Stat(path); err == nil {
		priv, err := loadIdentity(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing identity: %w", err)
		}
		return priv, nil
	}

	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate identity: %w", err)
	}
	if err := saveIdentity(path, priv); err != nil {
		return nil, fmt.Errorf("failed to save identity: %w", err)
	}
	return priv, nil
}

// saveIdentity writes the key in libp2p's protobuf form, PEM wrapped.
func saveIdentity(path string, priv crypto.PrivKey) error {
	raw, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return err
	}
	data := pem.EncodeToMemory(&pem.Block{
		Type:  identityPEMType,
		Bytes: raw,
	})
	return os.WriteFile(path, data, 0600)
}

func loadIdentity(path string) (crypto.PrivKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != identityPEMType {
		return nil, errors.New("failed to decode identity key PEM")
	}

	priv, err := crypto.UnmarshalPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity key: %w", err)
	}
	return priv, nil
}
