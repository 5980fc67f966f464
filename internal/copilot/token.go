package copilot

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lherron/tasklens/internal/domain"
)

// Session tokens are hex(iv || ciphertext): AES-128-CBC with PKCS#7
// padding, keyed by the first 16 bytes of SHA-256(api key). The plaintext
// is the JSON TokenPayload.

var errMalformedToken = errors.New("malformed session token")

func tokenKey(apiKey string) []byte {
	sum := sha256.Sum256([]byte(apiKey))
	return sum[:aes.BlockSize]
}

// DecodeToken decrypts and parses a session token.
func DecodeToken(apiKey, token string) (*domain.TokenPayload, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedToken, err)
	}
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: bad length %d", errMalformedToken, len(raw))
	}

	block, err := aes.NewCipher(tokenKey(apiKey))
	if err != nil {
		return nil, err
	}
	iv, ciphertext := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	plaintext, err = unpad(plaintext)
	if err != nil {
		return nil, err
	}

	var payload domain.TokenPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedToken, err)
	}
	return &payload, nil
}

// EncodeToken is the inverse of DecodeToken. iv must be 16 bytes.
func EncodeToken(apiKey string, payload domain.TokenPayload, iv []byte) (string, error) {
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("iv must be %d bytes", aes.BlockSize)
	}
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(tokenKey(apiKey))
	if err != nil {
		return "", err
	}

	padLen := aes.BlockSize - len(plaintext)%aes.BlockSize
	plaintext = append(plaintext, bytes.Repeat([]byte{byte(padLen)}, padLen)...)
	out := make([]byte, aes.BlockSize+len(plaintext))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], plaintext)
	return hex.EncodeToString(out), nil
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, errMalformedToken
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", errMalformedToken)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("%w: bad padding", errMalformedToken)
		}
	}
	return b[:len(b)-n], nil
}
