package connection

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"firebase.google.com/go/auth"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"taskmate/config"
)

// Firebase bundles the clients created from one Firebase app.
type Firebase struct {
	Firestore *firestore.Client
	Auth      *auth.Client
}

func (f *Firebase) Close() error {
	if f == nil || f.Firestore == nil {
		return nil
	}
	return f.Firestore.Close()
}

// FBConnection initializes the Firebase app from the configured service
// account and opens Firestore. The auth client is created only when ID
// tokens are verified.
func FBConnection(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Firebase, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Firestore client: %w", err)
	}
	fb := &Firebase{Firestore: client}

	if cfg.AuthMode == config.AuthFirebase {
		authClient, err := app.Auth(ctx)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("error getting Auth client: %w", err)
		}
		fb.Auth = authClient
	}

	log.Info().Str("project", cfg.ProjectID).Msg("Firestore connection successful")
	return fb, nil
}
