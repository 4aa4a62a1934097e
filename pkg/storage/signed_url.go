package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors let callers distinguish a forged token from a stale one.
var (
	ErrTokenInvalid = errors.New("storage: invalid download token")
	ErrTokenExpired = errors.New("storage: download token expired")
)

// SignedURLSigner mints and verifies self-contained download tokens. A token
// is base64url(reportID "\n" expiryUnix "\n" relPath) "." base64url(HMAC):
// everything the download handler needs travels inside the token, so no
// server-side token table is required.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a signed token binding the report ID to its stored file.
func (s *SignedURLSigner) Generate(reportID, relPath string) (string, time.Time, error) {
	if reportID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("reportID and relPath required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	if strings.ContainsRune(reportID, '\n') || strings.ContainsRune(relPath, '\n') {
		return "", time.Time{}, fmt.Errorf("reportID and relPath must be single-line")
	}

	expiresAt := s.now().Add(s.ttl)
	payload := strings.Join([]string{reportID, strconv.FormatInt(expiresAt.Unix(), 10), relPath}, "\n")
	token := base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." +
		base64.RawURLEncoding.EncodeToString(s.sign(payload))
	return token, expiresAt, nil
}

// Parse verifies a token and returns the embedded metadata. When allowExpired
// is true the timestamp check is skipped, which cleanup routines use to map
// stale tokens back to their files.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (reportID, relPath string, expiresAt time.Time, err error) {
	encodedPayload, encodedSig, ok := strings.Cut(token, ".")
	if !ok {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	payload, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	sig, err := base64.RawURLEncoding.DecodeString(encodedSig)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	if !hmac.Equal(sig, s.sign(string(payload))) {
		return "", "", time.Time{}, ErrTokenInvalid
	}

	parts := strings.SplitN(string(payload), "\n", 3)
	if len(parts) != 3 {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	expiresAt = time.Unix(expUnix, 0)
	if !allowExpired && s.now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}
	return parts[0], parts[2], expiresAt, nil
}

func (s *SignedURLSigner) sign(payload string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return mac.Sum(nil)
}
