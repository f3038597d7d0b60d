package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/ecovida/ecovida-backend/config"
)

// InitializeFirebase initializes the Firebase Admin SDK and returns a
// TokenVerifier backed by its Auth client.
func InitializeFirebase(cfg *config.FirebaseConfig) (TokenVerifier, error) {
	if cfg.CredentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	opt := option.WithCredentialsFile(cfg.CredentialsPath)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	authClient, err := app.Auth(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}

	return &firebaseVerifier{client: authClient}, nil
}

type firebaseVerifier struct {
	client *fbauth.Client
}

func (v *firebaseVerifier) Verify(ctx context.Context, token string) (*Profile, error) {
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}

	p := &Profile{UID: decoded.UID}
	if email, ok := decoded.Claims["email"].(string); ok {
		p.Email = email
	}
	if name, ok := decoded.Claims["name"].(string); ok {
		p.Name = name
	}
	if pic, ok := decoded.Claims["picture"].(string); ok {
		p.Picture = pic
	}
	return p, nil
}
