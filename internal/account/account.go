// Package account manages anonymous member accounts: creation with group
// assignment, secret-key login, self-deletion and removal of inactive
// members.
package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/assets"
	"github.com/folkout/folkout/internal/auth"
	"github.com/folkout/folkout/internal/metrics"
	"github.com/folkout/folkout/internal/models"
)

// Store is the member persistence the account service needs.
type Store interface {
	GetMember(ctx context.Context, memberID int64) (*models.Member, error)
	RecordLogin(ctx context.Context, memberID int64, at time.Time) (bool, error)
	DeleteMember(ctx context.Context, memberID int64) (string, error)
	ListInactiveMembers(ctx context.Context, probationCutoff, dormantCutoff time.Time) ([]int64, error)
}

// Config holds the account lifetimes.
type Config struct {
	// ProbationPeriod is how long a member that never logged in is kept.
	ProbationPeriod time.Duration
	// DormantPeriod is how long after the last login a member is kept.
	DormantPeriod time.Duration
	// FirstLoginTTL is the token lifetime handed out on the first login.
	FirstLoginTTL time.Duration
	// SessionTTL is the token lifetime handed out on later logins.
	SessionTTL time.Duration
}

// DefaultConfig returns the production lifetimes.
func DefaultConfig() Config {
	return Config{
		ProbationPeriod: 7 * 24 * time.Hour,
		DormantPeriod:   365 * 24 * time.Hour,
		FirstLoginTTL:   time.Hour,
		SessionTTL:      365 * 24 * time.Hour,
	}
}

// Account is a freshly created member with its secret key. The key is not
// stored and cannot be shown again.
type Account struct {
	Member    *models.Member
	SecretKey string
}

// Session is the result of a successful login.
type Session struct {
	Member     *models.Member
	Token      string
	TTL        time.Duration
	FirstLogin bool
}

// Service implements account operations.
type Service struct {
	store   Store
	authn   auth.Authenticator
	tokens  *auth.JWTManager
	assets  assets.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	cfg     Config
	now     func() time.Time
}

// NewService creates a new account Service. assets and m may be nil.
func NewService(store Store, authn auth.Authenticator, tokens *auth.JWTManager, assetStore assets.Store, m *metrics.Metrics, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		authn:   authn,
		tokens:  tokens,
		assets:  assetStore,
		metrics: m,
		logger:  logger.With("component", "account"),
		cfg:     cfg,
		now:     time.Now,
	}
}

// CreateAccount registers a new member. Inactive members are swept first so
// their seats can be reused.
func (s *Service) CreateAccount(ctx context.Context) (*Account, error) {
	s.sweepQuietly(ctx)

	member, key, err := s.authn.Register(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account created", "member_id", member.ID, "group_id", member.GroupID)
	return &Account{Member: member, SecretKey: key}, nil
}

// Login exchanges a secret key for a session token.
func (s *Service) Login(ctx context.Context, secretKey string) (*Session, error) {
	if err := s.authn.ValidateCredential(secretKey); err != nil {
		return nil, apperr.Validation("%v", err)
	}

	s.sweepQuietly(ctx)

	member, err := s.authn.Authenticate(ctx, secretKey)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return nil, apperr.Authorization("invalid secret key")
	}
	if err != nil {
		return nil, err
	}

	first, err := s.store.RecordLogin(ctx, member.ID, s.now())
	if err != nil {
		return nil, err
	}

	ttl := s.cfg.SessionTTL
	if first {
		ttl = s.cfg.FirstLoginTTL
	}
	token, err := s.tokens.Generate(member, ttl)
	if err != nil {
		return nil, apperr.Storage("failed to issue token", err)
	}

	s.logger.Info("Member logged in", "member_id", member.ID, "first_login", first)
	return &Session{Member: member, Token: token, TTL: ttl, FirstLogin: first}, nil
}

// Me returns the member's profile.
func (s *Service) Me(ctx context.Context, memberID int64) (*models.Member, error) {
	return s.store.GetMember(ctx, memberID)
}

// DeleteAccount removes the member and everything it owns.
func (s *Service) DeleteAccount(ctx context.Context, memberID int64) error {
	if err := s.remove(ctx, memberID, "self"); err != nil {
		return err
	}
	s.logger.Info("Account deleted", "member_id", memberID)
	return nil
}

// SweepInactive deletes members that never logged in within the probation
// period or have not logged in within the dormant period.
func (s *Service) SweepInactive(ctx context.Context) (int, error) {
	now := s.now()
	ids, err := s.store.ListInactiveMembers(ctx, now.Add(-s.cfg.ProbationPeriod), now.Add(-s.cfg.DormantPeriod))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range ids {
		err := s.remove(ctx, id, "inactive")
		if apperr.Is(err, apperr.KindNotFound) {
			continue
		}
		if err != nil {
			return removed, err
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Removed inactive members", "count", removed)
	}
	return removed, nil
}

func (s *Service) sweepQuietly(ctx context.Context) {
	if _, err := s.SweepInactive(ctx); err != nil {
		s.logger.Warn("Inactive member sweep failed", "error", err)
	}
}

func (s *Service) remove(ctx context.Context, memberID int64, reason string) error {
	icon, err := s.store.DeleteMember(ctx, memberID)
	if err != nil {
		return err
	}

	s.metrics.MemberRemoved(reason)
	if icon != "" && s.assets != nil {
		if err := s.assets.Delete(ctx, icon); err != nil {
			s.logger.Warn("Failed to delete icon", "member_id", memberID, "icon", icon, "error", err)
		}
	}
	return nil
}
