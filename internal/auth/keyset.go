package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// defaultRefreshAfter bounds how stale a cached key set may get before the
// next lookup refetches it. Identity providers rotate signing keys rarely,
// but never refreshing at all leaves a restarted pool unusable until the
// process restarts.
const defaultRefreshAfter = 24 * time.Hour

// ErrKeyNotFound reports a token key id absent from the provider's key set.
var ErrKeyNotFound = errors.New("auth: signing key not found in key set")

// jwk is a single key entry in the provider's JSON Web Key Set.
type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

// KeySet fetches the identity provider's JSON Web Key Set on first use and
// caches the decoded RSA keys. Lookups after RefreshAfter refetch the set;
// a zero interval keeps the set for the life of the process.
type KeySet struct {
	url          string
	httpClient   *http.Client
	refreshAfter time.Duration

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// KeySetOption configures a KeySet.
type KeySetOption func(*KeySet)

// WithHTTPClient overrides the HTTP client used for key set fetches.
func WithHTTPClient(c *http.Client) KeySetOption {
	return func(ks *KeySet) { ks.httpClient = c }
}

// WithRefreshAfter overrides the cache refresh interval. Zero disables
// refresh entirely.
func WithRefreshAfter(d time.Duration) KeySetOption {
	return func(ks *KeySet) { ks.refreshAfter = d }
}

// NewKeySet creates a KeySet for the given JWKS URL. No fetch happens until
// the first Key call.
func NewKeySet(url string, opts ...KeySetOption) *KeySet {
	ks := &KeySet{
		url:          url,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		refreshAfter: defaultRefreshAfter,
	}
	for _, opt := range opts {
		opt(ks)
	}
	return ks
}

// Key returns the RSA public key with the given key id, fetching or
// refreshing the key set as needed.
func (ks *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	ks.mu.RLock()
	if ks.freshLocked() {
		key, ok := ks.keys[kid]
		ks.mu.RUnlock()
		if !ok {
			return nil, ErrKeyNotFound
		}
		return key, nil
	}
	ks.mu.RUnlock()

	ks.mu.Lock()
	defer ks.mu.Unlock()
	if !ks.freshLocked() {
		if err := ks.fetchLocked(ctx); err != nil {
			return nil, err
		}
	}
	key, ok := ks.keys[kid]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

func (ks *KeySet) freshLocked() bool {
	if ks.keys == nil {
		return false
	}
	if ks.refreshAfter <= 0 {
		return true
	}
	return time.Since(ks.fetchedAt) < ks.refreshAfter
}

func (ks *KeySet) fetchLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ks.url, nil)
	if err != nil {
		return fmt.Errorf("auth: create key set request: %w", err)
	}
	res, err := ks.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth: fetch key set: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: fetch key set: unexpected status %d from %s", res.StatusCode, ks.url)
	}

	var doc jwksDocument
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&doc); err != nil {
		return fmt.Errorf("auth: decode key set: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			return fmt.Errorf("auth: decode jwk %q: %w", k.Kid, err)
		}
		keys[k.Kid] = pub
	}
	ks.keys = keys
	ks.fetchedAt = time.Now()
	return nil
}

// publicKey decodes the base64url modulus and exponent into an RSA key.
func (k jwk) publicKey() (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	e := 0
	for _, b := range eb {
		e = e<<8 | int(b)
	}
	if e == 0 {
		return nil, errors.New("zero exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
