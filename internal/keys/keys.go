// Package keys manages the agent's secp256k1 signing key. The key signs
// spawn attestations so a wolf owner can prove the service issued their wolf.
package keys

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// AddressPrefix is the bech32 human readable part of agent addresses.
const AddressPrefix = "wolf"

type StoredKey struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	PubKeyHex  string `json:"pubkey_hex"`
	PrivKeyHex string `json:"privkey_hex"`
	CreatedAt  string `json:"created_at"`
}

// EnsureKey loads the key at path, generating and saving one if none exists.
// created reports whether a new key was written.
func EnsureKey(path, name string) (key StoredKey, created bool, err error) {
	key, err = Load(path)
	if err == nil {
		return key, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return StoredKey{}, false, err
	}
	key, err = Generate(name)
	if err != nil {
		return StoredKey{}, false, err
	}
	if err := Save(path, key); err != nil {
		return StoredKey{}, false, err
	}
	return key, true, nil
}

func Generate(name string) (StoredKey, error) {
	priv := secp256k1.GenPrivKey()
	pub := priv.PubKey()
	addr, err := sdk.Bech32ifyAddressBytes(AddressPrefix, pub.Address())
	if err != nil {
		return StoredKey{}, err
	}
	return StoredKey{
		Name:       name,
		Address:    addr,
		PubKeyHex:  hex.EncodeToString(pub.Bytes()),
		PrivKeyHex: hex.EncodeToString(priv.Bytes()),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func Save(path string, key StoredKey) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	bz, err := json.MarshalIndent(key, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, bz, 0o600)
}

func Load(path string) (StoredKey, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return StoredKey{}, err
	}
	var key StoredKey
	if err := json.Unmarshal(bz, &key); err != nil {
		return StoredKey{}, err
	}
	if key.Address == "" {
		return StoredKey{}, fmt.Errorf("invalid key file: missing address")
	}
	return key, nil
}

func DefaultAgentKeyPath(base string) string {
	return filepath.Join(base, "agent.json")
}

// Signer signs attestations with a loaded key.
type Signer struct {
	key  StoredKey
	priv *secp256k1.PrivKey
}

func NewSigner(key StoredKey) (*Signer, error) {
	bz, err := hex.DecodeString(key.PrivKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(bz) != secp256k1.PrivKeySize {
		return nil, fmt.Errorf("invalid private key length %d", len(bz))
	}
	return &Signer{key: key, priv: &secp256k1.PrivKey{Key: bz}}, nil
}

func (s *Signer) Address() string { return s.key.Address }

// Attestation is a signed statement that a wolf was issued.
type Attestation struct {
	Signer    string `json:"signer"`
	PubKey    string `json:"pubkey"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// Attest signs the fields joined with "|".
func (s *Signer) Attest(fields ...string) (Attestation, error) {
	payload := strings.Join(fields, "|")
	sig, err := s.priv.Sign([]byte(payload))
	if err != nil {
		return Attestation{}, fmt.Errorf("sign attestation: %w", err)
	}
	return Attestation{
		Signer:    s.key.Address,
		PubKey:    hex.EncodeToString(s.priv.PubKey().Bytes()),
		Payload:   payload,
		Signature: hex.EncodeToString(sig),
	}, nil
}

// Verify checks the signature against the embedded public key and that the
// public key belongs to the claimed signer address.
func (a Attestation) Verify() error {
	pubBz, err := hex.DecodeString(a.PubKey)
	if err != nil {
		return fmt.Errorf("decode public key: %w", err)
	}
	sig, err := hex.DecodeString(a.Signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	pub := &secp256k1.PubKey{Key: pubBz}
	addr, err := sdk.Bech32ifyAddressBytes(AddressPrefix, pub.Address())
	if err != nil {
		return err
	}
	if addr != a.Signer {
		return fmt.Errorf("public key does not match signer %s", a.Signer)
	}
	if !pub.VerifySignature([]byte(a.Payload), sig) {
		return errors.New("invalid attestation signature")
	}
	return nil
}
