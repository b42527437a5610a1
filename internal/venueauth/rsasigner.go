// Package venueauth implements per-venue request signing: RSA-PSS for the
// ticker-market venue (its real API requires KALSHI-ACCESS-* headers) and a
// plain API-key header for the continuous-order-book venue.
package venueauth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"
)

// RSASigner signs venue-B requests with RSA-PSS/SHA-256, the scheme its
// REST and WebSocket APIs both require.
type RSASigner struct {
	keyID      string
	privateKey *rsa.PrivateKey
}

// NewRSASignerFromFile loads an RSA private key from a PEM file. Returns
// (nil, nil) when keyID or keyFilePath is empty so callers can run without
// venue-B credentials (e.g. venue-A-only mode).
func NewRSASignerFromFile(keyID, keyFilePath string) (*RSASigner, error) {
	if keyID == "" || keyFilePath == "" {
		return nil, nil
	}

	pemData, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, fmt.Errorf("read key file %s: %w", keyFilePath, err)
	}

	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", keyFilePath)
	}

	var rsaKey *rsa.PrivateKey
	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		var ok bool
		rsaKey, ok = parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("key in %s is not RSA (got %T)", keyFilePath, parsed)
		}
	} else if pk1, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		rsaKey = pk1
	} else {
		return nil, fmt.Errorf("parse private key in %s: not PKCS#8 or PKCS#1", keyFilePath)
	}

	return &RSASigner{keyID: keyID, privateKey: rsaKey}, nil
}

// SignRequest sets the access-key/signature/timestamp headers on req.
// No-op when s is nil.
func (s *RSASigner) SignRequest(req *http.Request) error {
	if s == nil {
		return nil
	}
	ts, sig, err := s.sign(req.Method, req.URL.Path)
	if err != nil {
		return err
	}
	req.Header.Set("KALSHI-ACCESS-KEY", s.keyID)
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", sig)
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", ts)
	return nil
}

// Headers returns auth headers suitable for a WebSocket dial. Returns nil
// when s is nil.
func (s *RSASigner) Headers(method, path string) http.Header {
	if s == nil {
		return nil
	}
	ts, sig, err := s.sign(method, path)
	if err != nil {
		return nil
	}
	h := http.Header{}
	h.Set("KALSHI-ACCESS-KEY", s.keyID)
	h.Set("KALSHI-ACCESS-SIGNATURE", sig)
	h.Set("KALSHI-ACCESS-TIMESTAMP", ts)
	return h
}

// Enabled reports whether this signer has credentials loaded.
func (s *RSASigner) Enabled() bool {
	return s != nil && s.keyID != ""
}

func (s *RSASigner) sign(method, path string) (timestamp, signature string, err error) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	message := ts + method + path

	hash := sha256.Sum256([]byte(message))

	sig, err := rsa.SignPSS(rand.Reader, s.privateKey, crypto.SHA256, hash[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return "", "", fmt.Errorf("rsa sign pss: %w", err)
	}

	return ts, base64.StdEncoding.EncodeToString(sig), nil
}
