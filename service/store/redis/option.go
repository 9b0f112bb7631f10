package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/viant/scy"
)

type config struct {
	addr      string
	password  string
	db        int
	secretURL string
	secretKey string
	client    redis.UniversalClient
}

// Option customises the redis store construction.
type Option func(*config)

// WithAddr sets the redis server address (host:port).
func WithAddr(addr string) Option {
	return func(c *config) { c.addr = addr }
}

// WithPassword sets a plain-text password. Prefer WithSecretURL in
// production so that credentials never live in configuration files.
func WithPassword(password string) Option {
	return func(c *config) { c.password = password }
}

// WithDB selects the redis logical database.
func WithDB(db int) Option {
	return func(c *config) { c.db = db }
}

// WithSecretURL resolves the redis password from an encrypted scy resource,
// e.g. a blowfish-encrypted file or a cloud secret manager URL.
func WithSecretURL(sourceURL, key string) Option {
	return func(c *config) {
		c.secretURL = sourceURL
		c.secretKey = key
	}
}

// WithClient supplies a pre-built client (cluster, sentinel, test double).
func WithClient(client redis.UniversalClient) Option {
	return func(c *config) { c.client = client }
}

func resolveSecret(ctx context.Context, sourceURL, key string) (string, error) {
	resource := scy.NewResource(nil, sourceURL, key)
	secret, err := scy.New().Load(ctx, resource)
	if err != nil {
		return "", fmt.Errorf("failed to load secret from %s: %w", sourceURL, err)
	}
	return secret.String(), nil
}
