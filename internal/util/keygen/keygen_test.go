package keygen

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

func TestGenerate_Types(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		keyType    string
		wantType   string
		wantPrefix string
	}{
		{"default", "", TypeED25519, "ssh-ed25519 "},
		{"ed25519", "ed25519", TypeED25519, "ssh-ed25519 "},
		{"rsa upper case", "RSA", TypeRSA, "ssh-rsa "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kp, err := Generate(tt.keyType)
			if err != nil {
				t.Fatalf("Generate(%q) failed: %v", tt.keyType, err)
			}
			if kp.Type != tt.wantType {
				t.Errorf("expected type %q, got %q", tt.wantType, kp.Type)
			}
			if !strings.HasPrefix(string(kp.PublicKey), tt.wantPrefix) {
				t.Errorf("public key should start with %q, got %q", tt.wantPrefix, kp.PublicKey)
			}
			if bytes.HasSuffix(kp.PublicKey, []byte("\n")) {
				t.Error("public key should not end with a newline")
			}
			if !strings.HasPrefix(kp.Fingerprint, "SHA256:") {
				t.Errorf("unexpected fingerprint %q", kp.Fingerprint)
			}
			if strings.Count(kp.MD5Fingerprint, ":") != 15 {
				t.Errorf("unexpected md5 fingerprint %q", kp.MD5Fingerprint)
			}
		})
	}
}

func TestGenerate_UnsupportedType(t *testing.T) {
	t.Parallel()
	if _, err := Generate("dsa"); err == nil {
		t.Error("Generate(dsa) should have failed")
	}
}

func TestGenerateRSAKeyPair_InvalidBits(t *testing.T) {
	t.Parallel()
	for _, bits := range []int{0, -1} {
		if _, err := GenerateRSAKeyPair(bits); err == nil {
			t.Errorf("GenerateRSAKeyPair(%d) should have failed", bits)
		}
	}
}

func TestGenerateRSAKeyPair_PEMFormat(t *testing.T) {
	t.Parallel()
	kp, err := GenerateRSAKeyPair(2048)
	if err != nil {
		t.Fatalf("GenerateRSAKeyPair failed: %v", err)
	}

	block, _ := pem.Decode(kp.PrivateKey)
	if block == nil {
		t.Fatal("failed to decode PEM block")
	}
	if block.Type != "RSA PRIVATE KEY" {
		t.Errorf("expected PEM type 'RSA PRIVATE KEY', got %q", block.Type)
	}
	if _, err := x509.ParsePKCS1PrivateKey(block.Bytes); err != nil {
		t.Errorf("failed to parse PKCS1 private key: %v", err)
	}
}

func TestGenerateED25519KeyPair_Correspondence(t *testing.T) {
	t.Parallel()
	kp, err := GenerateED25519KeyPair()
	if err != nil {
		t.Fatalf("GenerateED25519KeyPair failed: %v", err)
	}

	signer, err := ssh.ParsePrivateKey(kp.PrivateKey)
	if err != nil {
		t.Fatalf("failed to parse private key: %v", err)
	}
	parsed, _, _, _, err := ssh.ParseAuthorizedKey(kp.PublicKey)
	if err != nil {
		t.Fatalf("failed to parse public key: %v", err)
	}
	if !bytes.Equal(parsed.Marshal(), signer.PublicKey().Marshal()) {
		t.Error("public key does not correspond to private key")
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()
	kp, err := GenerateED25519KeyPair()
	if err != nil {
		t.Fatalf("GenerateED25519KeyPair failed: %v", err)
	}

	fp, err := Fingerprint(kp.PublicKey)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if fp != kp.Fingerprint {
		t.Errorf("expected %q, got %q", kp.Fingerprint, fp)
	}

	if _, err := Fingerprint([]byte("not a key")); err == nil {
		t.Error("Fingerprint should fail on garbage input")
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	t.Parallel()
	a, err := Generate("")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate("")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a.PrivateKey, b.PrivateKey) || bytes.Equal(a.PublicKey, b.PublicKey) {
		t.Error("two generated key pairs should differ")
	}
}
