package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/folkout/folkout/internal/models"
)

const secretBytes = 16

var (
	ErrInvalidCredentials = errors.New("invalid secret key")
	ErrMalformedSecret    = errors.New("secret key must look like <id>.<hex>")
)

// MemberStorage defines the member persistence the authenticator needs.
type MemberStorage interface {
	CreateMember(ctx context.Context, capacity int, secretHash string) (*models.Member, error)
	GetMember(ctx context.Context, memberID int64) (*models.Member, error)
}

// SecretAuthenticator implements anonymous accounts keyed by a random secret.
// The key handed to the member is "<member ID>.<hex secret>"; only a bcrypt
// hash of the hex part is stored.
type SecretAuthenticator struct {
	storage  MemberStorage
	capacity int
	cost     int
}

// NewSecretAuthenticator creates an authenticator that places members into
// groups of at most capacity members.
func NewSecretAuthenticator(storage MemberStorage, capacity int) *SecretAuthenticator {
	return &SecretAuthenticator{
		storage:  storage,
		capacity: capacity,
		cost:     bcrypt.DefaultCost,
	}
}

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (a *SecretAuthenticator) WithCost(cost int) *SecretAuthenticator {
	a.cost = cost
	return a
}

// ValidateCredential checks the "<id>.<hex>" shape of a secret key.
func (a *SecretAuthenticator) ValidateCredential(credential string) error {
	_, _, err := splitSecret(credential)
	return err
}

// Register creates a member with a fresh secret.
func (a *SecretAuthenticator) Register(ctx context.Context) (*models.Member, string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, "", fmt.Errorf("failed to generate secret: %w", err)
	}
	secret := hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), a.cost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash secret: %w", err)
	}

	member, err := a.storage.CreateMember(ctx, a.capacity, string(hash))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create member: %w", err)
	}

	return member, strconv.FormatInt(member.ID, 10) + "." + secret, nil
}

// Authenticate resolves a secret key to its member.
func (a *SecretAuthenticator) Authenticate(ctx context.Context, secretKey string) (*models.Member, error) {
	memberID, secret, err := splitSecret(secretKey)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	member, err := a.storage.GetMember(ctx, memberID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.SecretHash), []byte(secret)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return member, nil
}

func splitSecret(key string) (int64, string, error) {
	idPart, secret, ok := strings.Cut(strings.TrimSpace(key), ".")
	if !ok || secret == "" {
		return 0, "", ErrMalformedSecret
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", ErrMalformedSecret
	}
	if _, err := hex.DecodeString(secret); err != nil {
		return 0, "", ErrMalformedSecret
	}
	return id, secret, nil
}
