package trace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitWithEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{
		Endpoint: "127.0.0.1:4318",
		URLPath:  "/v1/traces",
		APIKey:   "secret",
	})
	require.NoError(t, err)

	// Left open so shutdown has nothing to send to the unreachable
	// collector.
	_, span := Tracer().Start(context.Background(), "test.span")
	assert.True(t, span.SpanContext().IsValid())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want target
	}{
		{
			name: "bare host defaults to plaintext",
			cfg:  Config{Endpoint: "collector:4318"},
			want: target{host: "collector:4318"},
		},
		{
			name: "bare host with secure",
			cfg:  Config{Endpoint: "collector:4318", Secure: true, URLPath: "/v1/traces"},
			want: target{host: "collector:4318", path: "/v1/traces", secure: true},
		},
		{
			name: "https scheme enables TLS",
			cfg:  Config{Endpoint: "https://api.honeycomb.io"},
			want: target{host: "api.honeycomb.io", secure: true},
		},
		{
			name: "http scheme wins over secure",
			cfg:  Config{Endpoint: "http://localhost:4318", Secure: true},
			want: target{host: "localhost:4318"},
		},
		{
			name: "url path used when none configured",
			cfg:  Config{Endpoint: "https://otel.example.com/otlp/v1/traces"},
			want: target{host: "otel.example.com", path: "/otlp/v1/traces", secure: true},
		},
		{
			name: "configured path wins",
			cfg:  Config{Endpoint: "https://otel.example.com/ignored", URLPath: "/v1/traces"},
			want: target{host: "otel.example.com", path: "/v1/traces", secure: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolve(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRejectsUnknownScheme(t *testing.T) {
	_, err := resolve(Config{Endpoint: "grpc://collector:4317"})
	assert.ErrorContains(t, err, "unsupported scheme")
}
