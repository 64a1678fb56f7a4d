// Package firebase verifies Firebase Authentication ID tokens.
package firebase

import (
	"context"
	"log/slog"

	"authcore/config"
	"authcore/internal/domain/entity"
	"authcore/internal/domain/service"
	"authcore/internal/errors"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// idTokenVerifier is the subset of *auth.Client used here.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type verifier struct {
	client idTokenVerifier
	logger *slog.Logger
}

// NewVerifier initializes a Firebase app for the configured project and returns an
// IdentityVerifier backed by its auth client.
func NewVerifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.IdentityVerifier, error) {
	if cfg.Identity == nil || !cfg.Identity.FirebaseEnabled() {
		return nil, errors.New("firebase verifier requires a project id")
	}

	var opts []option.ClientOption
	if path := cfg.Identity.Firebase.CredentialsPath; path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Identity.Firebase.ProjectID}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize Firebase app")
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get auth client")
	}

	return newVerifier(client, logger), nil
}

func newVerifier(client idTokenVerifier, logger *slog.Logger) *verifier {
	return &verifier{client: client, logger: logger}
}

// Verify checks signature, issuer, audience and expiry through the Firebase SDK.
func (v *verifier) Verify(ctx context.Context, assertion string) (*service.VerifiedIdentity, error) {
	token, err := v.client.VerifyIDToken(ctx, assertion)
	if err != nil {
		return nil, errors.Wrap(service.ErrAssertionInvalid, err.Error())
	}
	if token.UID == "" {
		return nil, errors.Wrap(service.ErrAssertionInvalid, "missing subject")
	}

	email, _ := token.Claims["email"].(string)
	emailVerified, _ := token.Claims["email_verified"].(bool)
	name, _ := token.Claims["name"].(string)

	if !emailVerified {
		return nil, errors.Wrap(service.ErrAssertionInvalid, "email not verified")
	}

	v.logger.DebugContext(ctx, "Firebase ID token verified",
		slog.String("subject", token.UID),
		slog.String("signInProvider", token.Firebase.SignInProvider))

	return &service.VerifiedIdentity{
		Subject:       token.UID,
		Email:         email,
		Name:          name,
		EmailVerified: emailVerified,
		Provider:      entity.ProviderTypeFirebase,
	}, nil
}

// Provider returns the provider type
func (v *verifier) Provider() entity.ProviderType {
	return entity.ProviderTypeFirebase
}
