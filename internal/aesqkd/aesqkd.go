// Package aesqkd bridges a reconciled QKD key into an AES session key:
// PBKDF2-HMAC-SHA256 key derivation from the raw key bits, then
// GCM/CBC/CTR encryption behind a single interoperable blob format.
package aesqkd

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math"

	"golang.org/x/crypto/pbkdf2"

	"github.com/jaskrrish/qkdsim/internal/quantum"
)

// Mode selects the AES mode of operation.
type Mode string

const (
	ModeGCM Mode = "GCM"
	ModeCBC Mode = "CBC"
	ModeCTR Mode = "CTR"
)

const (
	saltSize       = 16
	nonceSize      = 16
	gcmTagSize     = 16
	pbkdf2IterCount = 100000
)

// Integration derives and applies AES keys from QKD key material.
type Integration struct {
	Mode      Mode
	KeyLength int // bits: 128, 192, or 256
}

// New validates mode and key length per spec 4.10.
func New(mode Mode, keyLengthBits int) (*Integration, error) {
	switch mode {
	case ModeGCM, ModeCBC, ModeCTR:
	default:
		return nil, fmt.Errorf("aesqkd: unsupported mode %q", mode)
	}
	switch keyLengthBits {
	case 128, 192, 256:
	default:
		return nil, fmt.Errorf("aesqkd: unsupported key length %d", keyLengthBits)
	}
	return &Integration{Mode: mode, KeyLength: keyLengthBits}, nil
}

// Result carries the outcome of an encrypt/round-trip-verify cycle.
type Result struct {
	OriginalMessage    string
	EncryptedMessage   string
	DecryptedMessage   string
	KeyUsed            string
	KeyLengthBits       int
	EncryptionSuccess  bool
	DecryptionSuccess  bool
	SecurityMetrics    SecurityMetrics
}

// SecurityMetrics reports entropy and nominal brute-force resistance for
// the derived key, surfaced to callers for display purposes only.
type SecurityMetrics struct {
	QKDKeyEntropy          float64
	QKDKeyLength           int
	AESKeyLengthBits       int
	Mode                   Mode
	BruteForceResistance   string
	EntropyPerBit          float64
}

// DeriveKey stretches QKD key bits into an AES key of the configured
// length via PBKDF2-HMAC-SHA256, generating a fresh salt when none is
// supplied.
func (in *Integration) DeriveKey(qkdKey []quantum.Bit, salt []byte) ([]byte, []byte, error) {
	if len(qkdKey) == 0 {
		return nil, nil, fmt.Errorf("aesqkd: qkd key cannot be empty")
	}
	if salt == nil {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, fmt.Errorf("aesqkd: generating salt: %w", err)
		}
	}

	keyBytes := quantum.BitsToBytes(qkdKey)
	derived := pbkdf2.Key(keyBytes, salt, pbkdf2IterCount, in.KeyLength/8, sha256.New)
	return derived, salt, nil
}

// Encrypt derives an AES key from qkdKey and encrypts message, returning a
// base64 blob of salt||mode-specific-framing||ciphertext.
func (in *Integration) Encrypt(message string, qkdKey []quantum.Bit) Result {
	aesKey, salt, err := in.DeriveKey(qkdKey, nil)
	if err != nil {
		return Result{OriginalMessage: message, SecurityMetrics: SecurityMetrics{}}
	}

	var blob []byte
	switch in.Mode {
	case ModeCBC:
		blob, err = encryptCBC([]byte(message), aesKey)
	case ModeCTR:
		blob, err = encryptCTR([]byte(message), aesKey)
	default:
		blob, err = encryptGCM([]byte(message), aesKey)
	}
	if err != nil {
		return Result{OriginalMessage: message}
	}

	encoded := base64.StdEncoding.EncodeToString(append(salt, blob...))
	decrypted, decErr := in.Decrypt(encoded, qkdKey)

	return Result{
		OriginalMessage:   message,
		EncryptedMessage:  encoded,
		DecryptedMessage:  decrypted,
		KeyUsed:           base64.StdEncoding.EncodeToString(aesKey),
		KeyLengthBits:     len(aesKey) * 8,
		EncryptionSuccess: true,
		DecryptionSuccess: decErr == nil && decrypted == message,
		SecurityMetrics:   in.securityMetrics(qkdKey, aesKey),
	}
}

// Decrypt reverses Encrypt: it splits the salt off the blob, re-derives the
// AES key, and dispatches to the mode-specific opener.
func (in *Integration) Decrypt(encryptedMessage string, qkdKey []quantum.Bit) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encryptedMessage)
	if err != nil {
		return "", fmt.Errorf("aesqkd: decoding blob: %w", err)
	}
	if len(raw) < saltSize {
		return "", fmt.Errorf("aesqkd: blob too short")
	}

	salt := raw[:saltSize]
	payload := raw[saltSize:]

	aesKey, _, err := in.DeriveKey(qkdKey, salt)
	if err != nil {
		return "", err
	}

	switch in.Mode {
	case ModeCBC:
		return decryptCBC(payload, aesKey)
	case ModeCTR:
		return decryptCTR(payload, aesKey)
	default:
		return decryptGCM(payload, aesKey)
	}
}

func encryptGCM(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, sealed...), nil
}

func decryptGCM(payload, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return "", err
	}
	ns := gcm.NonceSize()
	if len(payload) < ns {
		return "", fmt.Errorf("aesqkd: gcm payload too short")
	}
	nonce, ciphertext := payload[:ns], payload[ns:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("aesqkd: gcm open failed: %w", err)
	}
	return string(plaintext), nil
}

func encryptCBC(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return append(iv, ciphertext...), nil
}

func decryptCBC(payload, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	if len(payload) < aes.BlockSize {
		return "", fmt.Errorf("aesqkd: cbc payload too short")
	}
	iv, ciphertext := payload[:aes.BlockSize], payload[aes.BlockSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("aesqkd: cbc ciphertext not block-aligned")
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	unpadded, err := pkcs7Unpad(plaintext)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

func encryptCTR(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aes.BlockSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCTR(block, nonce).XORKeyStream(ciphertext, plaintext)
	return append(nonce, ciphertext...), nil
}

func decryptCTR(payload, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	if len(payload) < aes.BlockSize {
		return "", fmt.Errorf("aesqkd: ctr payload too short")
	}
	nonce, ciphertext := payload[:aes.BlockSize], payload[aes.BlockSize:]
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCTR(block, nonce).XORKeyStream(plaintext, ciphertext)
	return string(plaintext), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := make([]byte, padLen)
	for i := range padding {
		padding[i] = byte(padLen)
	}
	return append(append([]byte{}, data...), padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("aesqkd: empty padded data")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, fmt.Errorf("aesqkd: invalid padding")
	}
	return data[:len(data)-padLen], nil
}

func (in *Integration) securityMetrics(qkdKey []quantum.Bit, aesKey []byte) SecurityMetrics {
	entropy := bitEntropy(qkdKey)
	keyStrength := len(aesKey) * 8

	var resistance string
	switch keyStrength {
	case 128:
		resistance = "2^127 operations (AES-128)"
	case 192:
		resistance = "2^191 operations (AES-192)"
	case 256:
		resistance = "2^255 operations (AES-256)"
	default:
		resistance = "unknown"
	}

	entropyPerBit := 0.0
	if len(qkdKey) > 0 {
		entropyPerBit = entropy / float64(len(qkdKey))
	}

	return SecurityMetrics{
		QKDKeyEntropy:        entropy,
		QKDKeyLength:         len(qkdKey),
		AESKeyLengthBits:     keyStrength,
		Mode:                 in.Mode,
		BruteForceResistance: resistance,
		EntropyPerBit:        entropyPerBit,
	}
}

func bitEntropy(bits []quantum.Bit) float64 {
	if len(bits) == 0 {
		return 0
	}
	ones := 0
	for _, b := range bits {
		if b == quantum.One {
			ones++
		}
	}
	p1 := float64(ones) / float64(len(bits))
	p0 := 1 - p1
	h := 0.0
	if p0 > 0 {
		h -= p0 * math.Log2(p0)
	}
	if p1 > 0 {
		h -= p1 * math.Log2(p1)
	}
	return h
}
