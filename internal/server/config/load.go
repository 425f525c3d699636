package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const delim = "."

// RegisterFlags adds the server flags to fs. Flag names mirror the
// configuration keys, e.g. --auth.access_token_ttl=15m.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()

	fs.String("http.address", d.HTTP.Address, "HTTP listen address")
	fs.Duration("http.shutdown_timeout", d.HTTP.ShutdownTimeout, "graceful shutdown timeout")
	fs.Duration("http.request_timeout", d.HTTP.RequestTimeout, "per-request timeout")
	fs.String("grpc.address", d.GRPC.Address, "gRPC listen address")

	fs.String("database.dsn", d.Database.DSN, "PostgreSQL DSN")
	fs.Duration("database.connect_timeout", d.Database.ConnectTimeout, "how long to retry the initial database connection")
	fs.Int("database.max_open_conns", d.Database.MaxOpenConns, "maximum open database connections")

	fs.String("auth.secret_key", d.Auth.SecretKey, "HMAC key for signing access tokens")
	fs.String("auth.issuer", d.Auth.Issuer, "token issuer")
	fs.Duration("auth.access_token_ttl", d.Auth.AccessTokenTTL, "access token lifetime")
	fs.Duration("auth.refresh_token_ttl", d.Auth.RefreshTokenTTL, "refresh token lifetime")
	fs.Int("auth.bcrypt_cost", d.Auth.BcryptCost, "bcrypt cost for new password hashes")
	fs.StringSlice("auth.public_routes", DefaultPublicRoutes, "routes reachable without a token (METHOD /glob or /grpc/Method)")

	fs.String("crypto.encryption_key", d.Crypto.EncryptionKey, "passphrase credential secrets are sealed with")

	fs.String("s3.user", d.S3.User, "S3 access key")
	fs.String("s3.password", d.S3.Password, "S3 secret key")
	fs.String("s3.bucket", d.S3.Bucket, "S3 bucket for credential files; empty stores files in the database")
	fs.String("s3.region", d.S3.Region, "S3 region")
	fs.String("s3.endpoint", d.S3.Endpoint, "S3 endpoint override, e.g. http://127.0.0.1:9000")

	fs.String("log.level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("log.format", d.Log.Format, "log format (json, text, console)")
}

// Load merges defaults, the YAML file at path (if any) and the flags in fs
// (if any). Explicitly set flags win over the file; unset flags only fill
// keys the file does not provide.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(delim)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if fs != nil {
		if err := k.Load(posflag.Provider(fs, delim, k), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := Defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applySliceDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
