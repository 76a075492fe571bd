package extract

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"strings"
)

// Layout of an OpenSSL "Salted__" blob: 8 bytes of magic, 8 bytes of salt,
// then the AES-256-CBC ciphertext.
const (
	saltOffset  = 8
	headerLen   = 16
	keyLen      = 32
	ivLen       = aes.BlockSize
	materialLen = keyLen + ivLen

	saltedMagic = "Salted__"
)

// EncryptionContext is the per-call input to key derivation.
type EncryptionContext struct {
	Salt   [8]byte
	Secret []byte
}

func newEncryptionContext(raw, secret []byte) EncryptionContext {
	var ec EncryptionContext
	copy(ec.Salt[:], raw[saltOffset:headerLen])
	ec.Secret = secret
	return ec
}

// KeyIV returns the AES key and IV for this context.
func (ec EncryptionContext) KeyIV() (key, iv []byte) {
	m := DeriveKey(ec.Secret, ec.Salt[:])
	return m[:keyLen], m[keyLen:materialLen]
}

// DeriveKey is OpenSSL's EVP_BytesToKey with MD5 and one iteration:
// k0 = MD5(secret||salt), kn = MD5(k(n-1)||secret||salt), concatenated until
// at least 48 bytes are available.
func DeriveKey(secret, salt []byte) []byte {
	var out, prev []byte
	for len(out) < materialLen {
		h := md5.New()
		h.Write(prev)
		h.Write(secret)
		h.Write(salt)
		prev = h.Sum(nil)
		out = append(out, prev...)
	}
	return out
}

// Decrypt recovers the plaintext of a base64 OpenSSL-salted AES-256-CBC blob.
// On failure it returns a *DecryptionError and no plaintext.
func Decrypt(cipherTextBase64 string, secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, decryptionError("empty secret", nil)
	}

	raw, err := decodeBase64(cipherTextBase64)
	if err != nil {
		return nil, decryptionError("invalid base64", err)
	}
	if len(raw) < headerLen {
		return nil, decryptionError("ciphertext shorter than 16 bytes", nil)
	}

	body := raw[headerLen:]
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return nil, decryptionError("ciphertext is not a multiple of the block size", nil)
	}

	key, iv := newEncryptionContext(raw, secret).KeyIV()
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, decryptionError("creating cipher", err)
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	out, ok := pkcs7Unpad(plain, aes.BlockSize)
	if !ok {
		return nil, decryptionError("bad padding", nil)
	}
	return out, nil
}

// Encrypt is the inverse of Decrypt. It writes the "Salted__" magic and a
// random salt, as openssl enc does.
func Encrypt(plain, secret []byte) (string, error) {
	raw := make([]byte, headerLen, headerLen+len(plain)+aes.BlockSize)
	copy(raw, saltedMagic)
	if _, err := rand.Read(raw[saltOffset:headerLen]); err != nil {
		return "", err
	}

	key, iv := newEncryptionContext(raw, secret).KeyIV()
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	pad := aes.BlockSize - len(plain)%aes.BlockSize
	body := append(append([]byte{}, plain...), bytes.Repeat([]byte{byte(pad)}, pad)...)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(body, body)

	return base64.StdEncoding.EncodeToString(append(raw, body...)), nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if alt, altErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); altErr == nil {
			return alt, nil
		}
		return nil, err
	}
	return raw, nil
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}
