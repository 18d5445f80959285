package snowflake

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/youmark/pkcs8"
)

const encryptedKeyBlockType = "ENCRYPTED PRIVATE KEY"

// LoadPrivateKey reads an RSA private key in PEM form for key-pair
// authentication. Encrypted PKCS#8 keys are decrypted with the passphrase;
// plain PKCS#8 and PKCS#1 keys are accepted as-is.
func LoadPrivateKey(path, passphrase string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("private key %s is not PEM encoded", path)
	}

	switch block.Type {
	case encryptedKeyBlockType:
		if passphrase == "" {
			return nil, fmt.Errorf("private key %s is encrypted and no passphrase was provided", path)
		}
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("decrypting private key: %w", err)
		}
		return key, nil

	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		return key, nil

	default:
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key %s is not an RSA key", path)
		}
		return rsaKey, nil
	}
}

// KeyIsEncrypted reports whether the PEM key at path needs a passphrase.
// Used by the CLI to decide whether to prompt.
func KeyIsEncrypted(path string) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading private key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return false, fmt.Errorf("private key %s is not PEM encoded", path)
	}
	return block.Type == encryptedKeyBlockType, nil
}
