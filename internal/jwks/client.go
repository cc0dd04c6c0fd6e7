package jwks

import (
	"context"
	"log/slog"

	jwkserrors "github.com/tendant/jwks-resolver/internal/errors"
	"github.com/tendant/jwks-resolver/internal/metrics"
)

// Client resolves the signing keys published at a JWKS URI.
// Every call fetches and resolves afresh; nothing is cached.
type Client struct {
	uri     string
	fetcher Fetcher
	logger  *slog.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithFetcher sets the fetcher used to retrieve the document.
func WithFetcher(fetcher Fetcher) ClientOption {
	return func(c *Client) {
		c.fetcher = fetcher
	}
}

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Client for uri.
func NewClient(uri string, opts ...ClientOption) *Client {
	c := &Client{
		uri:    uri,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.fetcher == nil {
		c.fetcher = NewHTTPFetcher(WithFetchLogger(c.logger))
	}

	return c
}

// URI returns the JWKS URI the client resolves.
func (c *Client) URI() string {
	return c.uri
}

// GetSigningKeys fetches the document and resolves its signing keys.
// Fetch and resolution errors are returned unchanged.
func (c *Client) GetSigningKeys(ctx context.Context) (SigningKeys, error) {
	doc, err := c.fetcher.Fetch(ctx, c.uri)
	if err != nil {
		metrics.RecordResolution(jwkserrors.CodeOf(err))
		return nil, err
	}

	var raw []RawKey
	if doc != nil {
		raw = doc.Keys
	}

	keys, err := Resolve(raw)
	if err != nil {
		metrics.RecordResolution(jwkserrors.CodeOf(err))
		return nil, err
	}

	metrics.RecordResolution("success")
	recordEncodings(keys)

	c.logger.Debug("resolved signing keys",
		"uri", c.uri,
		"key_count", len(keys),
		"kids", keys.Kids(),
	)
	return keys, nil
}

// GetSigningKey resolves the document and returns the first key matching kid.
func (c *Client) GetSigningKey(ctx context.Context, kid string) (SigningKey, error) {
	keys, err := c.GetSigningKeys(ctx)
	if err != nil {
		return SigningKey{}, err
	}

	key, err := keys.FindByKid(kid)
	metrics.RecordLookup(err == nil)
	if err != nil {
		return SigningKey{}, err
	}
	return key, nil
}

func recordEncodings(keys SigningKeys) {
	var certs, rsaKeys int
	for _, key := range keys {
		switch key.Material.(type) {
		case Certificate:
			certs++
		case RSAPublicKey:
			rsaKeys++
		}
	}
	if certs > 0 {
		metrics.RecordKeysResolved("certificate", certs)
	}
	if rsaKeys > 0 {
		metrics.RecordKeysResolved("rsa", rsaKeys)
	}
}
