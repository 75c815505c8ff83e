// Package sign creates and checks detached OpenPGP signatures of build artifacts.
package sign

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/daedaleanai/vbt/util"
)

// SignatureSuffix is appended to the path of a signed file to name its signature.
const SignatureSuffix = ".asc"

// Signer signs files with the private key of an OpenPGP entity.
type Signer struct {
	entity *openpgp.Entity
}

// ReadKeyRing reads an armored or binary OpenPGP key ring.
func ReadKeyRing(path string) (openpgp.EntityList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to read key '%s': %w", path, err)
		}
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("no keys found in '%s'", path)
	}
	return entities, nil
}

// NewSigner loads the first private key from `keyPath`. Encrypted keys are unlocked
// with `passphrase`.
func NewSigner(keyPath string, passphrase []byte) (*Signer, error) {
	entities, err := ReadKeyRing(keyPath)
	if err != nil {
		return nil, err
	}

	for _, entity := range entities {
		if entity.PrivateKey == nil {
			continue
		}
		if err := unlock(entity, passphrase); err != nil {
			return nil, err
		}
		return &Signer{entity: entity}, nil
	}
	return nil, fmt.Errorf("'%s' does not contain a private key", keyPath)
}

func unlock(entity *openpgp.Entity, passphrase []byte) error {
	if entity.PrivateKey.Encrypted {
		if len(passphrase) == 0 {
			return errors.New("private key is encrypted but no passphrase was given")
		}
		if err := entity.PrivateKey.Decrypt(passphrase); err != nil {
			return fmt.Errorf("failed to unlock private key: %w", err)
		}
	}
	for _, subkey := range entity.Subkeys {
		if subkey.PrivateKey != nil && subkey.PrivateKey.Encrypted {
			if err := subkey.PrivateKey.Decrypt(passphrase); err != nil {
				return fmt.Errorf("failed to unlock private subkey: %w", err)
			}
		}
	}
	return nil
}

// KeyID returns the hexadecimal ID of the signing key.
func (s *Signer) KeyID() string {
	return s.entity.PrimaryKey.KeyIdString()
}

// SignFile writes an armored detached signature of `path` to `path`+SignatureSuffix
// and returns the path of the signature.
func (s *Signer) SignFile(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open '%s' for signing: %w", path, err)
	}
	defer in.Close()

	var signature bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&signature, s.entity, in, nil); err != nil {
		return "", fmt.Errorf("failed to sign '%s': %w", path, err)
	}

	sigPath := path + SignatureSuffix
	if err := os.WriteFile(sigPath, signature.Bytes(), util.FileMode); err != nil {
		return "", fmt.Errorf("failed to write signature '%s': %w", sigPath, err)
	}
	return sigPath, nil
}

// VerifyFile checks the signature `sigPath` of `path` against `keyring` and returns the
// signer.
func VerifyFile(keyring openpgp.EntityList, path, sigPath string) (*openpgp.Entity, error) {
	data, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer data.Close()

	sig, err := os.Open(sigPath)
	if err != nil {
		return nil, err
	}
	defer sig.Close()

	signer, err := openpgp.CheckArmoredDetachedSignature(keyring, data, sig, nil)
	if err != nil {
		return nil, fmt.Errorf("signature verification failed for '%s': %w", path, err)
	}
	return signer, nil
}
