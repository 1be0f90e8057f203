// Package googlecloud reads and writes spreadsheet rows as Cloud Datastore
// entities.
package googlecloud

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/datastore"
	"github.com/rs/zerolog"
)

// Client wraps the Google Cloud Datastore client.
type Client struct {
	ds  *datastore.Client
	log zerolog.Logger
}

// NewClient creates a new Google Cloud Datastore client.
// It checks for DATASTORE_EMULATOR_HOST to verify if running against an emulator.
func NewClient(ctx context.Context, projectID string, logger zerolog.Logger) (*Client, error) {
	// The official client detects DATASTORE_EMULATOR_HOST automatically.
	if emulatorHost := os.Getenv("DATASTORE_EMULATOR_HOST"); emulatorHost != "" {
		logger.Info().Str("emulator", emulatorHost).Msg("initializing datastore client against emulator")
	}

	ds, err := datastore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create datastore client: %w", err)
	}

	return &Client{ds: ds, log: logger}, nil
}

// Close closes the underlying datastore client.
func (c *Client) Close() error {
	return c.ds.Close()
}
