package main

import (
	"crypto/tls"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
)

// certificate holds the TLS key pair served by the server. It is loaded
// again from disk whenever one of reloadSignals arrives.
type certificate struct {
	certFile, keyFile string
	current           atomic.Pointer[tls.Certificate]
}

func loadCertificate(certFile, keyFile string) (*certificate, error) {
	c := &certificate{certFile: certFile, keyFile: keyFile}
	if _, err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *certificate) load() (*tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(c.certFile, c.keyFile)
	if err != nil {
		return nil, err
	}
	c.current.Store(&cert)
	return &cert, nil
}

func (c *certificate) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return c.current.Load(), nil
}

// reloadOnSignal reloads the certificate on reloadSignals. A failed reload
// keeps serving the previous certificate.
func (c *certificate) reloadOnSignal(logger *log.Logger) {
	if len(reloadSignals) == 0 {
		return
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, reloadSignals...)

	go func() {
		for sig := range sigCh {
			logger.Printf("Received %v: reloading TLS certificate...", sig)
			cert, err := c.load()
			if err != nil {
				logger.Println("Failed to load x509 key pair:", err)
				continue
			}
			logger.Printf("Reloaded certificate with CN %s, valid until %s.",
				cert.Leaf.Subject.CommonName, cert.Leaf.NotAfter)
		}
	}()
}
