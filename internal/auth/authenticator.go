package auth

import (
	"context"

	"github.com/folkout/folkout/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping the credential scheme without changing the
// account service.
type Authenticator interface {
	// Register creates a new member and returns it together with the secret
	// key the member will log in with. The key is only available here.
	Register(ctx context.Context) (*models.Member, string, error)

	// Authenticate verifies a secret key and returns the member it belongs to.
	Authenticate(ctx context.Context, secretKey string) (*models.Member, error)

	// ValidateCredential checks that the credential is well formed.
	ValidateCredential(credential string) error
}
