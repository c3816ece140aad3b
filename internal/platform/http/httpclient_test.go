package http

import (
	"crypto/tls"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTuneTransport(t *testing.T) {
	t.Parallel()

	tr := &http.Transport{}
	TuneTransport(tr)

	assert.Equal(t, 100, tr.MaxIdleConns)
	assert.Equal(t, 16, tr.MaxIdleConnsPerHost)
	assert.Equal(t, 90*time.Second, tr.IdleConnTimeout)
	assert.Equal(t, 5*time.Second, tr.TLSHandshakeTimeout)
	assert.NotNil(t, tr.Proxy)
	assert.NotNil(t, tr.DialContext)
}

func TestTuneTransport_KeepsTLSConfig(t *testing.T) {
	t.Parallel()

	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	tr := &http.Transport{TLSClientConfig: tlsCfg}

	TuneTransport(tr)

	assert.Same(t, tlsCfg, tr.TLSClientConfig)
	assert.Equal(t, 16, tr.MaxIdleConnsPerHost)
	assert.NotNil(t, tr.DialContext)
}
