package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"

	"golang.org/x/crypto/acme/autocert"
)

// ACMEManager obtains certificates from Let's Encrypt using the
// TLS-ALPN-01 challenge on the web listener itself
type ACMEManager struct {
	manager *autocert.Manager
	cache   autocert.DirCache
	domains []string
}

// NewACMEManager creates a new ACME manager
func NewACMEManager(email string, domains []string, cacheDir string) *ACMEManager {
	cache := autocert.DirCache(cacheDir)
	return &ACMEManager{
		manager: &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Email:      email,
			HostPolicy: autocert.HostWhitelist(domains...),
			Cache:      cache,
		},
		cache:   cache,
		domains: domains,
	}
}

// Domains returns the list of configured domains
func (a *ACMEManager) Domains() []string {
	return a.domains
}

// TLSConfig returns TLS configuration for use with servers
func (a *ACMEManager) TLSConfig() *tls.Config {
	cfg := a.manager.TLSConfig()
	cfg.MinVersion = tls.VersionTLS12
	return cfg
}

// CachedCertificates reads certificates from the cache directory without
// contacting the CA. Domains without a usable cached certificate are
// left out.
func (a *ACMEManager) CachedCertificates(ctx context.Context) map[string]*CertificateInfo {
	results := make(map[string]*CertificateInfo)

	for _, domain := range a.domains {
		data, err := a.cache.Get(ctx, domain)
		if err != nil {
			continue
		}

		// autocert stores the key and the chain in one PEM file
		pair, err := tls.X509KeyPair(data, data)
		if err != nil || len(pair.Certificate) == 0 {
			continue
		}
		leaf, err := x509.ParseCertificate(pair.Certificate[0])
		if err != nil {
			continue
		}
		results[domain] = newCertificateInfo(leaf)
	}

	return results
}
