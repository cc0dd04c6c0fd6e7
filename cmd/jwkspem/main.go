// Package main provides a utility that resolves the signing keys of a JWKS
// document and prints them as PEM, JSON or YAML.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tendant/jwks-resolver/internal/crypto"
	jwkserrors "github.com/tendant/jwks-resolver/internal/errors"
	"github.com/tendant/jwks-resolver/internal/jwks"
)

type options struct {
	uri     string
	file    string
	kid     string
	format  string
	verify  string
	timeout time.Duration
}

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "jwkspem: %v\n", err)
		os.Exit(1)
	}

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "jwkspem: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("jwkspem", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.uri, "uri", os.Getenv("JWKS_URI"), "JWKS endpoint URL (defaults to $JWKS_URI)")
	fs.StringVar(&opts.file, "file", "", "Read the JWKS document from a file instead of a URL")
	fs.StringVar(&opts.kid, "kid", "", "Print only the signing key with this key ID")
	fs.StringVar(&opts.format, "format", "pem", "Output format: pem, json or yaml")
	fs.StringVar(&opts.verify, "verify", "", "Verify a compact JWT against the key set and print its claims")
	fs.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Fetch timeout")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	uriSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "uri" {
			uriSet = true
		}
	})

	switch {
	case opts.file != "" && uriSet:
		return nil, errors.New("-uri and -file are mutually exclusive")
	case opts.file != "":
		opts.uri = ""
	case opts.uri == "":
		return nil, errors.New("one of -uri or -file is required")
	}

	switch opts.format {
	case "pem", "json", "yaml":
	default:
		return nil, fmt.Errorf("unknown format %q", opts.format)
	}

	if opts.verify != "" && opts.kid != "" {
		return nil, errors.New("-verify selects the key from the token header and cannot be combined with -kid")
	}
	if opts.timeout <= 0 {
		return nil, fmt.Errorf("-timeout must be positive, got %s", opts.timeout)
	}

	return opts, nil
}

func run(ctx context.Context, opts *options, w io.Writer) error {
	client := newClient(opts)

	if opts.verify != "" {
		keys, err := client.GetSigningKeys(ctx)
		if err != nil {
			return err
		}
		return verify(ctx, opts, keys, w)
	}

	if opts.kid != "" {
		key, err := client.GetSigningKey(ctx, opts.kid)
		if err != nil {
			return err
		}
		return write(w, opts.format, key)
	}

	keys, err := client.GetSigningKeys(ctx)
	if err != nil {
		return err
	}
	return write(w, opts.format, keys)
}

func newClient(opts *options) *jwks.Client {
	if opts.file != "" {
		return jwks.NewClient(opts.file, jwks.WithFetcher(fileFetcher{}))
	}
	return jwks.NewClient(opts.uri, jwks.WithFetcher(jwks.NewHTTPFetcher(jwks.WithTimeout(opts.timeout))))
}

func verify(ctx context.Context, opts *options, keys jwks.SigningKeys, w io.Writer) error {
	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(opts.verify, claims, crypto.Keyfunc(ctx, crypto.StaticLookup(keys))); err != nil {
		return fmt.Errorf("token rejected: %w", err)
	}

	format := opts.format
	if format == "pem" {
		format = "json"
	}
	return write(w, format, claims)
}

func write(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	switch v := v.(type) {
	case jwks.SigningKey:
		_, err := io.WriteString(w, v.PEM())
		return err
	case jwks.SigningKeys:
		for _, key := range v {
			if _, err := fmt.Fprintf(w, "# kid: %s\n%s", key.Kid, key.PEM()); err != nil {
				return err
			}
		}
	}
	return nil
}

// fileFetcher reads a JWKS document from the local filesystem.
type fileFetcher struct{}

func (fileFetcher) Fetch(_ context.Context, path string) (*jwks.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, jwkserrors.FetchFailed(path, err)
	}
	defer f.Close()

	doc, err := jwks.DecodeDocument(f)
	if err != nil {
		return nil, jwkserrors.FetchFailed(path, err)
	}
	return doc, nil
}
