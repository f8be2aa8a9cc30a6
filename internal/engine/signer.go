/*
PURPOSE:
  Signs requests with an access key / secret key pair (HMAC-SHA256).

REQUIREMENTS:
  User-specified:
  - Alternative to bearer API keys.

  Implementation-discovered:
  - The gateway expects Action=ChatCompletion&Version=2024-01-01 in the query.
  - Signed headers: content-type, host, x-content-sha256, x-date.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/client.go (WithSigner)

ERROR HANDLING:
  - Missing keys are reported before any network call.

IMPLEMENTATION RULES:
  - Sign the exact body bytes that are sent.

USAGE:
    s := NewSigner(ak, sk, "cn-north-1", "volc_torchlight_api")
  err := s.Sign(req, body)

SELF-HEALING INSTRUCTIONS:
  - A 401/403 with valid keys usually means clock skew or a changed query.

RELATED FILES:
  - internal/config/config.go (DefaultAKSKEndpoint)

MAINTENANCE:
  - None.
*/

package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	signAlgorithm     = "HMAC-SHA256"
	signedHeaderNames = "content-type;host;x-content-sha256;x-date"
	jsonContentType   = "application/json"
)

// Signer authenticates requests with an access key / secret key pair
// using HMAC-SHA256 over a canonical request.
type Signer struct {
	AccessKey string
	SecretKey string
	Region    string
	Service   string
	// Query is merged into the request URL before signing.
	Query url.Values
	now   func() time.Time
}

// NewSigner returns a signer for the ChatCompletion action.
func NewSigner(accessKey, secretKey, region, service string) *Signer {
	return &Signer{
		AccessKey: accessKey,
		SecretKey: secretKey,
		Region:    region,
		Service:   service,
		Query:     url.Values{"Action": {"ChatCompletion"}, "Version": {"2024-01-01"}},
		now:       time.Now,
	}
}

// Sign sets the date, content hash and Authorization headers on req.
// body must be the exact bytes sent.
func (s *Signer) Sign(req *http.Request, body []byte) error {
	if s.AccessKey == "" || s.SecretKey == "" {
		return errors.New("signer: access key and secret key are required")
	}
	if len(s.Query) > 0 {
		q := req.URL.Query()
		for k, vs := range s.Query {
			q[k] = vs
		}
		req.URL.RawQuery = q.Encode()
	}

	xDate := s.now().UTC().Format("20060102T150405Z")
	shortDate := xDate[:8]
	contentHash := hashHex(body)
	host := req.URL.Host
	path := req.URL.Path
	if path == "" {
		path = "/"
	}

	canonical := strings.Join([]string{
		req.Method,
		path,
		canonicalQuery(req.URL.Query()),
		strings.Join([]string{
			"content-type:" + jsonContentType,
			"host:" + host,
			"x-content-sha256:" + contentHash,
			"x-date:" + xDate,
		}, "\n"),
		"",
		signedHeaderNames,
		contentHash,
	}, "\n")

	scope := strings.Join([]string{shortDate, s.Region, s.Service, "request"}, "/")
	stringToSign := strings.Join([]string{signAlgorithm, xDate, scope, hashHex([]byte(canonical))}, "\n")

	key := hmacSHA256([]byte(s.SecretKey), shortDate)
	key = hmacSHA256(key, s.Region)
	key = hmacSHA256(key, s.Service)
	key = hmacSHA256(key, "request")
	signature := hex.EncodeToString(hmacSHA256(key, stringToSign))

	req.Host = host
	req.Header.Set("Content-Type", jsonContentType)
	req.Header.Set("X-Content-Sha256", contentHash)
	req.Header.Set("X-Date", xDate)
	req.Header.Set("Authorization", signAlgorithm+" Credential="+s.AccessKey+"/"+scope+
		", SignedHeaders="+signedHeaderNames+", Signature="+signature)
	return nil
}

// canonicalQuery sorts keys and percent-encodes spaces as %20.
func canonicalQuery(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		for _, v := range q[k] {
			parts = append(parts, escape(k)+"="+escape(v))
		}
	}
	return strings.Join(parts, "&")
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func hashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, content string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(content))
	return mac.Sum(nil)
}
