// File: transfer/tls.go
// Author: momentics <momentics@gmail.com>
//
// TLS settings for https:// transfers: version floor, CA bundle, client
// key pair, and the two verification switches.

package transfer

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/momentics/hioload-batch/api"
)

const httpsPrefix = "https://"

// ErrTLSVersion is the configuration failure reported when TLS 1.2 cannot
// be pinned and StrictTLS is set.
var ErrTLSVersion = errors.New("the current transport isn't supporting TLS 1.2")

// IsHTTPS reports whether url uses the secure scheme. The check is a literal
// prefix match; a bare "https://" is not a URL.
func IsHTTPS(url string) bool {
	return len(url) > len(httpsPrefix) && strings.HasPrefix(url, httpsPrefix)
}

// tlsConfig builds the client TLS configuration for opts.
func (b *Builder) tlsConfig(opts api.TLSOptions) (*tls.Config, error) {
	cfg := &tls.Config{}

	if b.opts.TLSSupported(tls.VersionTLS12) {
		cfg.MinVersion = tls.VersionTLS12
	} else {
		b.log.Fatalf("setupTLS", "%v! (current: %s)", ErrTLSVersion, runtime.Version())
		if b.opts.StrictTLS {
			return nil, ErrTLSVersion
		}
	}

	if opts.CAPath != "" {
		roots, err := loadRoots(opts.CAPath)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = roots
	} else if b.opts.Roots != nil {
		cfg.RootCAs = b.opts.Roots
	}

	if opts.CertificatePath != "" && opts.KeyPath != "" {
		pair, err := loadKeyPair(opts.CertificatePath, opts.KeyPath, opts.KeyPassword)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{pair}
	}

	// Verification is on by default; only the opt-outs need wiring.
	switch {
	case opts.InsecureSkipPeer:
		cfg.InsecureSkipVerify = true
	case opts.InsecureSkipHost:
		cfg.InsecureSkipVerify = true
		cfg.VerifyConnection = verifyChain(cfg.RootCAs)
	}
	return cfg, nil
}

func loadRoots(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error setting certificate verify locations: CAfile: %s: %w", path, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("error setting certificate verify locations: CAfile: %s: no certificates found", path)
	}
	return pool, nil
}

func loadKeyPair(certPath, keyPath, password string) (tls.Certificate, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("could not load PEM client certificate %s: %w", certPath, err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("unable to set private key file %s: %w", keyPath, err)
	}
	if password != "" {
		if keyPEM, err = decryptKeyPEM(keyPEM, password); err != nil {
			return tls.Certificate{}, fmt.Errorf("unable to set private key file %s: %w", keyPath, err)
		}
	}
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("unable to use client certificate: %w", err)
	}
	return pair, nil
}

// decryptKeyPEM decrypts legacy RFC 1423 encrypted PEM blocks in data and
// passes every other block through unchanged.
func decryptKeyPEM(data []byte, password string) ([]byte, error) {
	var out []byte
	for {
		block, rest := pem.Decode(data)
		if block == nil {
			break
		}
		//nolint:staticcheck // legacy PEM encryption is what encrypted key files use.
		if x509.IsEncryptedPEMBlock(block) {
			//nolint:staticcheck
			der, err := x509.DecryptPEMBlock(block, []byte(password))
			if err != nil {
				return nil, err
			}
			block = &pem.Block{Type: block.Type, Bytes: der}
		}
		out = append(out, pem.EncodeToMemory(block)...)
		data = rest
	}
	if len(out) == 0 {
		return nil, errors.New("no PEM data found")
	}
	return out, nil
}

// verifyChain checks the peer chain against roots (system roots when nil)
// without matching the certificate to the dialled host name.
func verifyChain(roots *x509.CertPool) func(tls.ConnectionState) error {
	return func(cs tls.ConnectionState) error {
		if len(cs.PeerCertificates) == 0 {
			return errors.New("tls: server presented no certificates")
		}
		opts := x509.VerifyOptions{
			Roots:         roots,
			Intermediates: x509.NewCertPool(),
		}
		for _, c := range cs.PeerCertificates[1:] {
			opts.Intermediates.AddCert(c)
		}
		_, err := cs.PeerCertificates[0].Verify(opts)
		return err
	}
}
