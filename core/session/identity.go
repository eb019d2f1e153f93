package session

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/user"
)

var ErrInvalidCredential = errors.New("invalid sign-in credential")

// Identity is a signed-in account of the external identity provider.
type Identity struct {
	UID   string
	Email string
}

type IdentityProvider interface {
	// Verify checks a sign-in credential (e.g. an ID token) and returns the identity it proves.
	Verify(ctx context.Context, credential string) (Identity, error)
}

// Cache keeps resolved users by identity UID.
type Cache interface {
	Get(ctx context.Context, uid string) (user.User, bool)
	Put(ctx context.Context, usr user.User)
	Purge(ctx context.Context)
}

type noopCache struct{}

// NoopCache is used when no cache server is configured.
var NoopCache Cache = noopCache{}

func (noopCache) Get(context.Context, string) (user.User, bool) { return user.User{}, false }
func (noopCache) Put(context.Context, user.User)                {}
func (noopCache) Purge(context.Context)                         {}

// Resolver maps external identities to users.
type Resolver struct {
	users  *user.Service
	cache  Cache
	logger core.Logger
}

func NewResolver(users *user.Service, cache Cache, logger core.Logger) *Resolver {
	if cache == nil {
		cache = NoopCache
	}
	return &Resolver{users: users, cache: cache, logger: logger}
}

// Resolve returns the user of ident, read from the remote database.
// An unknown identity with the bootstrap email becomes the default editor.
// Lookup failures are logged and resolve to no user.
func (r *Resolver) Resolve(ctx context.Context, ident Identity) (user.User, bool) {
	if usr, ok := r.cache.Get(ctx, ident.UID); ok {
		return usr, true
	}

	usr, err := r.users.Fetch(ctx, ident.UID)
	switch {
	case err == nil:
	case errors.Cause(err) == user.ErrNotFound && r.users.IsBootstrapEmail(ident.Email):
		usr, err = r.users.BootstrapEditor(ctx, ident.UID, ident.Email)
		if err != nil {
			r.logger.Error(fmt.Sprintf("bootstrapping editor %s: %v", ident.UID, err), err)
			return user.User{}, false
		}
		r.logger.Info("bootstrapped default editor " + ident.UID)
	case errors.Cause(err) == user.ErrNotFound:
		r.logger.Info("no user for identity " + ident.UID)
		return user.User{}, false
	default:
		r.logger.Error(fmt.Sprintf("resolving identity %s: %v", ident.UID, err), err)
		return user.User{}, false
	}

	r.cache.Put(ctx, usr)
	return usr, true
}

// Purge drops the cached users, after the users collection changed.
func (r *Resolver) Purge(ctx context.Context) {
	r.cache.Purge(ctx)
}
