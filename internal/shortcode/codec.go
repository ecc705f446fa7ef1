// Package shortcode implements the signed short-code codec at the heart of the
// URL shortener. A short code is not an opaque database key: it is the
// base64url encoding of the original URL followed by a truncated HMAC-SHA256
// signature computed with a server-held secret. That makes every code
// self-describing and tamper-evident: resolution can succeed with pure local
// computation (decode + signature check), without any storage lookup, and no
// valid code can be forged without the secret.
package shortcode

import (
	"bytes"
	"compress/zlib"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"strings"

	customerrors "github.com/llamino/UrlShortener/internal/errors"
)

// signatureLength is the number of hex characters of the HMAC-SHA256 digest
// appended to the encoded payload. Four characters (16 bits) is enough to stop
// casual forgery and code-space scanning while keeping codes short.
const signatureLength = 4

// Codec encodes URLs into signed short codes and decodes them back.
// It is stateless and safe for concurrent use; the secret is injected once at
// construction instead of being read from global state.
type Codec struct {
	secret []byte
}

// NewCodec creates a Codec signing with the given server secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Encode converts an original URL into its signed short code.
// The output is base64url (no padding) of the URL bytes, followed by the first
// four hex characters of the HMAC-SHA256 of that encoded payload.
func (c *Codec) Encode(originalURL string) string {
	encoded := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(originalURL))
	return encoded + c.sign(encoded)
}

// Decode converts a short code back to its original URL, verifying the
// embedded signature first. It returns:
//   - ErrInvalidFormat if the code is too short to carry a signature,
//   - ErrSignatureMismatch if the signature does not match (forged or
//     tampered code),
//   - ErrDecodeFailed if the payload is not valid base64url.
func (c *Codec) Decode(shortCode string) (string, error) {
	if len(shortCode) <= signatureLength {
		return "", customerrors.ErrInvalidFormat
	}

	encoded := shortCode[:len(shortCode)-signatureLength]
	signature := shortCode[len(shortCode)-signatureLength:]

	// Constant-time comparison so the signature can't be probed byte by byte.
	expected := c.sign(encoded)
	if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) != 1 {
		return "", customerrors.ErrSignatureMismatch
	}

	// The payload was encoded without padding; restore it before decoding.
	if padding := len(encoded) % 4; padding != 0 {
		encoded += strings.Repeat("=", 4-padding)
	}
	decoded, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", customerrors.ErrDecodeFailed
	}
	return string(decoded), nil
}

// sign computes the truncated hex HMAC-SHA256 signature of an encoded payload.
func (c *Codec) sign(encodedPayload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encodedPayload))
	return hex.EncodeToString(mac.Sum(nil))[:signatureLength]
}

// Canonicalize strips the query string and fragment from a URL, producing the
// canonical form used as the link's identity for deduplication and click
// accounting. It is idempotent: canonicalizing a canonical URL is a no-op.
func Canonicalize(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL %q: %w", rawURL, err)
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.RawFragment = ""
	return parsed.String(), nil
}

// IsValidURL reports whether a string is an absolute http(s) URL that can be
// shortened. Percent-encoded input is decoded first so that encoded URLs
// submitted by clients validate the same as their plain form.
func IsValidURL(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	if decoded, err := url.QueryUnescape(rawURL); err == nil {
		rawURL = decoded
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// CompressURL compresses a URL with zlib and base64url-encodes the result.
// Used to bound the size of accumulator hash fields keyed by canonical URL.
func CompressURL(originalURL string) string {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write([]byte(originalURL))
	w.Close()
	return base64.URLEncoding.EncodeToString(buf.Bytes())
}

// DecompressURL reverses CompressURL.
func DecompressURL(compressed string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(compressed)
	if err != nil {
		return "", fmt.Errorf("failed to base64-decode compressed URL: %w", err)
	}
	r, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to decompress URL: %w", err)
	}
	defer r.Close()
	decompressed, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to decompress URL: %w", err)
	}
	return string(decompressed), nil
}
