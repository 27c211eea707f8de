package clouddatastore

import (
	"context"
	"os"
	"sync"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/datastore"
	"go.mercari.io/worldstore"
	"google.golang.org/api/option"
)

var (
	projectIDOnce sync.Once
	projectID     string
)

func defaultProjectID() string {
	projectIDOnce.Do(func() {
		pID, err := metadata.ProjectID()
		if err != nil {
			// don't check again even if it was failed...
			pID = os.Getenv("DATASTORE_PROJECT_ID")
			if pID == "" {
				pID = os.Getenv("PROJECT_ID")
			}
		}
		projectID = pID
	})
	return projectID
}

func newClientSettings(opts ...ClientOption) *ClientSettings {
	settings := &ClientSettings{}
	for _, opt := range opts {
		opt.Apply(settings)
	}
	if settings.ProjectID == "" {
		settings.ProjectID = defaultProjectID()
	}
	return settings
}

// NewBackend dials Cloud Datastore, or its emulator when
// DATASTORE_EMULATOR_HOST is set.
func NewBackend(ctx context.Context, opts ...ClientOption) (*Backend, error) {
	settings := newClientSettings(opts...)
	origOpts := make([]option.ClientOption, 0, len(opts))
	if len(settings.Scopes) != 0 {
		origOpts = append(origOpts, option.WithScopes(settings.Scopes...))
	}
	if settings.TokenSource != nil {
		origOpts = append(origOpts, option.WithTokenSource(settings.TokenSource))
	}
	if settings.CredentialsFile != "" {
		origOpts = append(origOpts, option.WithCredentialsFile(settings.CredentialsFile))
	}
	if settings.HTTPClient != nil {
		origOpts = append(origOpts, option.WithHTTPClient(settings.HTTPClient))
	}

	client, err := datastore.NewClient(ctx, settings.ProjectID, origOpts...)
	if err != nil {
		return nil, err
	}

	return &Backend{client: client, namespace: settings.Namespace}, nil
}

// FromContext returns a worldstore.Client backed by Cloud Datastore.
func FromContext(ctx context.Context, opts ...ClientOption) (worldstore.Client, error) {
	b, err := NewBackend(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return worldstore.NewClient(b), nil
}
