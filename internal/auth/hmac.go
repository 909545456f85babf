package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrTokenExpired distinguishes expiry from any other verification failure
// so the gate can tell clients to refresh.
var ErrTokenExpired = errors.New("token expired")

// HMACVerifier both issues and verifies signed bearer tokens. It stands in
// for the external identity provider in development and tests, and backs
// the email/password login flow.
//
// Token format: base64url(uid|email|expUnix) + "." + base64url(hmac-sha256).
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) sign(payload string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Issue creates a token attesting the given identity until now+ttl.
func (v *HMACVerifier) Issue(id Identity, ttl time.Duration) string {
	exp := time.Now().Add(ttl).Unix()
	payload := id.UID + "|" + id.Email + "|" + strconv.FormatInt(exp, 10)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return encoded + "." + v.sign(encoded)
}

func (v *HMACVerifier) Verify(_ context.Context, token string) (Identity, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return Identity{}, errors.New("malformed token")
	}
	encoded, sig := parts[0], parts[1]
	expected := v.sign(encoded)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return Identity{}, errors.New("bad signature")
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Identity{}, errors.New("malformed token payload")
	}
	fields := strings.Split(string(raw), "|")
	if len(fields) != 3 {
		return Identity{}, errors.New("malformed token payload")
	}
	exp, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return Identity{}, errors.New("malformed token expiry")
	}
	if time.Now().Unix() > exp {
		return Identity{}, ErrTokenExpired
	}
	return Identity{UID: fields[0], Email: fields[1]}, nil
}
