// Package resolver expands cross-vendor subscription requests into the
// concrete per-vendor stream identifiers a connection can subscribe
// with, performing credentialed REST lookups for coarse identifiers
// when possible.
package resolver

import (
	"fmt"
	"net/http"
	"os"

	"github.com/awnumar/memguard"

	"github.com/datavents/datavents/internal/adapter/kalshi"
)

// KalshiCredentials holds the API key and the RSA private key used to
// sign Kalshi requests. The PEM bytes are encrypted at rest in a
// memguard Enclave and only opened momentarily while signing.
type KalshiCredentials struct {
	apiKey  string
	enclave *memguard.Enclave
}

// NewKalshiCredentials seals pemBytes into locked memory. The caller
// must zero their copy of pemBytes afterwards.
func NewKalshiCredentials(apiKey string, pemBytes []byte) *KalshiCredentials {
	return &KalshiCredentials{
		apiKey:  apiKey,
		enclave: memguard.NewEnclave(pemBytes),
	}
}

// LoadKalshiCredentials reads the private key PEM from disk and seals it.
func LoadKalshiCredentials(apiKey, pemPath string) (*KalshiCredentials, error) {
	pemBytes, err := os.ReadFile(pemPath)
	if err != nil {
		return nil, fmt.Errorf("reading kalshi private key: %w", err)
	}
	return NewKalshiCredentials(apiKey, pemBytes), nil
}

// Headers opens the enclave momentarily and computes signed request
// headers for one call. It satisfies kalshi.HeaderFunc.
func (c *KalshiCredentials) Headers(method, path string) (http.Header, error) {
	buf, err := c.enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("opening credential enclave: %w", err)
	}
	defer buf.Destroy()

	return kalshi.SignedHeaders(c.apiKey, buf.Bytes(), method, path)
}
