package adaptive

import (
	"bytes"
	"errors"
	"testing"
)

var (
	key16 = make([]byte, 16)
	key24 = make([]byte, 24)
	key32 = make([]byte, 32)
)

func init() {
	for _, k := range [][]byte{key16, key24, key32} {
		for i := range k {
			k[i] = byte(i)
		}
	}
}

func TestNew(t *testing.T) {
	c, err := New(key32)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if typ := c.Type(); typ != CipherAESGCM && typ != CipherChaCha20 {
		t.Errorf("New() returned unknown cipher type: %s", typ)
	}
}

func TestParseCipherType(t *testing.T) {
	tests := []struct {
		in      string
		want    CipherType
		wantErr bool
	}{
		{"", CipherAuto, false},
		{"auto", CipherAuto, false},
		{"AES-GCM", CipherAESGCM, false},
		{"aes-256-gcm", CipherAESGCM, false},
		{"chacha20-poly1305", CipherChaCha20, false},
		{"chacha20", CipherChaCha20, false},
		{"rot13", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCipherType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCipherType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCipherType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewWithType(t *testing.T) {
	for _, typ := range []CipherType{CipherAESGCM, CipherChaCha20} {
		c, err := NewWithType(key32, typ)
		if err != nil {
			t.Fatalf("NewWithType(%s) error = %v", typ, err)
		}
		if c.Type() != typ {
			t.Errorf("NewWithType(%s) type = %s", typ, c.Type())
		}
	}

	if _, err := NewWithType(key32, "unknown-cipher"); err == nil {
		t.Error("NewWithType(unknown) should return error")
	}
}

func TestKeySizes(t *testing.T) {
	tests := []struct {
		name    string
		build   func([]byte) (Cipher, error)
		key     []byte
		wantErr bool
	}{
		{"aes-128", NewAESGCM, key16, false},
		{"aes-192", NewAESGCM, key24, false},
		{"aes-256", NewAESGCM, key32, false},
		{"aes 15 bytes", NewAESGCM, make([]byte, 15), true},
		{"aes 33 bytes", NewAESGCM, make([]byte, 33), true},
		{"chacha 32 bytes", NewChaCha20, key32, false},
		{"chacha 16 bytes", NewChaCha20, key16, true},
		{"chacha 31 bytes", NewChaCha20, make([]byte, 31), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.build(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && c == nil {
				t.Error("returned nil cipher")
			}
		})
	}
}

func eachCipher(t *testing.T, fn func(t *testing.T, c Cipher)) {
	t.Helper()
	for _, typ := range []CipherType{CipherAESGCM, CipherChaCha20} {
		c, err := NewWithType(key32, typ)
		if err != nil {
			t.Fatalf("NewWithType(%s) error = %v", typ, err)
		}
		t.Run(string(typ), func(t *testing.T) { fn(t, c) })
	}
}

func TestSealOpen(t *testing.T) {
	eachCipher(t, func(t *testing.T, c Cipher) {
		tests := []struct {
			name      string
			plaintext []byte
			aad       []byte
		}{
			{"empty", []byte{}, nil},
			{"simple", []byte("hello world"), nil},
			{"with aad", []byte("secret data"), []byte("app:token")},
			{"large", bytes.Repeat([]byte("A"), 4096), nil},
			{"binary", []byte{0x00, 0xFF, 0x7F, 0x80}, []byte{0x01, 0x02}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				nonce, ct, err := c.Seal(tt.plaintext, tt.aad)
				if err != nil {
					t.Fatalf("Seal() error = %v", err)
				}
				if len(nonce) != c.NonceSize() {
					t.Errorf("nonce length = %d, want %d", len(nonce), c.NonceSize())
				}
				if len(ct) != len(tt.plaintext)+c.Overhead() {
					t.Errorf("ciphertext length = %d, want %d", len(ct), len(tt.plaintext)+c.Overhead())
				}

				pt, err := c.Open(nonce, ct, tt.aad)
				if err != nil {
					t.Fatalf("Open() error = %v", err)
				}
				if !bytes.Equal(pt, tt.plaintext) {
					t.Errorf("Open() = %v, want %v", pt, tt.plaintext)
				}
			})
		}
	})
}

func TestOpen_Tampered(t *testing.T) {
	eachCipher(t, func(t *testing.T, c Cipher) {
		aad := []byte("app:token")
		nonce, ct, err := c.Seal([]byte("secret message"), aad)
		if err != nil {
			t.Fatalf("Seal() error = %v", err)
		}

		tampered := append([]byte(nil), ct...)
		tampered[len(tampered)-1] ^= 0xFF
		if _, err := c.Open(nonce, tampered, aad); err == nil {
			t.Error("Open() should fail for tampered ciphertext")
		}

		if _, err := c.Open(nonce, ct, []byte("app:other")); err == nil {
			t.Error("Open() should fail for wrong additional data")
		}

		badNonce := append([]byte(nil), nonce...)
		badNonce[0] ^= 0x01
		if _, err := c.Open(badNonce, ct, aad); err == nil {
			t.Error("Open() should fail for wrong nonce")
		}

		if _, err := c.Open(nonce[:len(nonce)-1], ct, aad); !errors.Is(err, ErrInvalidNonce) {
			t.Errorf("Open() short nonce error = %v, want ErrInvalidNonce", err)
		}
	})
}

func TestOpen_WrongKey(t *testing.T) {
	a, _ := NewAESGCM(key32)
	other := bytes.Repeat([]byte{9}, 32)
	b, _ := NewAESGCM(other)

	nonce, ct, err := a.Seal([]byte("hello"), nil)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if _, err := b.Open(nonce, ct, nil); err == nil {
		t.Error("Open() with a different key should fail")
	}
}

func TestSeal_FreshNonce(t *testing.T) {
	c, err := NewAESGCM(key32)
	if err != nil {
		t.Fatalf("NewAESGCM() error = %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 16; i++ {
		nonce, _, err := c.Seal([]byte("same plaintext"), nil)
		if err != nil {
			t.Fatalf("Seal() error = %v", err)
		}
		if seen[string(nonce)] {
			t.Fatal("Seal() reused a nonce")
		}
		seen[string(nonce)] = true
	}
}

func BenchmarkAESGCM_Seal_1KB(b *testing.B) {
	c, _ := NewAESGCM(key32)
	plaintext := bytes.Repeat([]byte("A"), 1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.Seal(plaintext, nil)
	}
}

func BenchmarkChaCha20_Seal_1KB(b *testing.B) {
	c, _ := NewChaCha20(key32)
	plaintext := bytes.Repeat([]byte("A"), 1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.Seal(plaintext, nil)
	}
}

func BenchmarkAESGCM_Open_1KB(b *testing.B) {
	c, _ := NewAESGCM(key32)
	nonce, ct, _ := c.Seal(bytes.Repeat([]byte("A"), 1024), nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Open(nonce, ct, nil)
	}
}
