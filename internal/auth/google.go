// Package auth is the credential edge: it turns a service-account key file
// into an authenticated Google Indexing API service.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	indexing "google.golang.org/api/indexing/v3"
)

// Config locates the Google credentials.
type Config struct {
	// CredentialsFile is a service-account JSON key with the indexing scope
	// granted in Search Console.
	CredentialsFile string `mapstructure:"credentials_file"`
}

// GoogleAuthenticator builds indexing services from a credentials file.
type GoogleAuthenticator struct {
	credentialsFile string
	logger          *zap.Logger
}

// New constructs a GoogleAuthenticator.
func New(cfg Config, logger *zap.Logger) (*GoogleAuthenticator, error) {
	if cfg.CredentialsFile == "" {
		return nil, errors.New("credentials file is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleAuthenticator{
		credentialsFile: cfg.CredentialsFile,
		logger:          logger,
	}, nil
}

// TokenSource loads the key file and derives an OAuth2 token source scoped
// to the Indexing API.
func (a *GoogleAuthenticator) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(a.credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, indexing.IndexingScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return creds.TokenSource, nil
}

// NewService builds an authenticated indexing service.
func (a *GoogleAuthenticator) NewService(ctx context.Context) (*indexing.Service, error) {
	ts, err := a.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	service, err := indexing.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create indexing service: %w", err)
	}
	a.logger.Info("indexing service created", zap.String("credentials_file", a.credentialsFile))
	return service, nil
}
