package keygen

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Supported key types.
const (
	TypeED25519 = "ed25519"
	TypeRSA     = "rsa"
)

// RSABits is the modulus size used by Generate for RSA keys.
const RSABits = 3072

// KeyPair holds a key pair in ready-to-use formats.
type KeyPair struct {
	Type string
	// PrivateKey is the private key in PEM form.
	PrivateKey []byte
	// PublicKey is the public key in OpenSSH authorized_keys format.
	PublicKey []byte
	// Fingerprint is the SHA256 fingerprint of the public key.
	Fingerprint string
	// MD5Fingerprint is the legacy colon separated MD5 fingerprint.
	MD5Fingerprint string
}

// Generate creates a key pair of the given type. An empty type selects ed25519.
func Generate(keyType string) (*KeyPair, error) {
	switch strings.ToLower(keyType) {
	case "", TypeED25519:
		return GenerateED25519KeyPair()
	case TypeRSA:
		return GenerateRSAKeyPair(RSABits)
	default:
		return nil, fmt.Errorf("unsupported key type %q", keyType)
	}
}

// GenerateED25519KeyPair generates a new ed25519 key pair. The private key is
// written in the OpenSSH PEM format.
func GenerateED25519KeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ed25519 private key: %w", err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}
	return newKeyPair(TypeED25519, pem.EncodeToMemory(block), sshPub), nil
}

// GenerateRSAKeyPair generates a new RSA key pair with the specified bit size.
func GenerateRSAKeyPair(bits int) (*KeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA private key: %w", err)
	}

	if err := privateKey.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate RSA private key: %w", err)
	}

	privBlock := pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}

	sshPub, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}
	return newKeyPair(TypeRSA, pem.EncodeToMemory(&privBlock), sshPub), nil
}

// Fingerprint returns the SHA256 fingerprint of an authorized_keys line.
func Fingerprint(authorizedKey []byte) (string, error) {
	pub, _, _, _, err := ssh.ParseAuthorizedKey(authorizedKey)
	if err != nil {
		return "", fmt.Errorf("failed to parse public key: %w", err)
	}
	return ssh.FingerprintSHA256(pub), nil
}

func newKeyPair(keyType string, privPEM []byte, pub ssh.PublicKey) *KeyPair {
	return &KeyPair{
		Type:           keyType,
		PrivateKey:     privPEM,
		PublicKey:      []byte(strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pub)))),
		Fingerprint:    ssh.FingerprintSHA256(pub),
		MD5Fingerprint: ssh.FingerprintLegacyMD5(pub),
	}
}
