// Package identitysvc verifies external sign-in credentials.
package identitysvc

import (
	"context"

	"firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core/session"
)

type firebaseProvider struct {
	client *auth.Client
}

var _ session.IdentityProvider = (*firebaseProvider)(nil)

// NewFirebaseProvider verifies Firebase Auth ID tokens.
func NewFirebaseProvider(client *auth.Client) session.IdentityProvider {
	return &firebaseProvider{client: client}
}

func (p *firebaseProvider) Verify(ctx context.Context, idToken string) (session.Identity, error) {
	if idToken == "" {
		return session.Identity{}, session.ErrInvalidCredential
	}
	tok, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return session.Identity{}, errors.Wrap(session.ErrInvalidCredential, err.Error())
	}
	email, _ := tok.Claims["email"].(string)
	return session.Identity{UID: tok.UID, Email: email}, nil
}
