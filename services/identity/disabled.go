package identitysvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core/session"
)

type disabledProvider struct{}

// NewDisabledProvider rejects every credential; used when no identity provider is configured.
func NewDisabledProvider() session.IdentityProvider { return disabledProvider{} }

func (disabledProvider) Verify(context.Context, string) (session.Identity, error) {
	return session.Identity{}, errors.Wrap(session.ErrInvalidCredential, "external sign-in is not configured")
}
