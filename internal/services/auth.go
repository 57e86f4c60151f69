package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"eventhub/internal/domain"

	"github.com/google/uuid"
)

const (
	minPasswordLen = 8
	otpDigits      = 6
	tokenType      = "bearer"
)

var (
	emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	otpRegexp   = regexp.MustCompile(`^\d{6}$`)
)

// TokenCodec issues and verifies session tokens.
type TokenCodec interface {
	domain.TokenIssuer
	domain.TokenVerifier
}

// AuthConfig holds the lifetimes used by the auth service.
type AuthConfig struct {
	TokenExpiry time.Duration
	OTPExpiry   time.Duration
}

type authService struct {
	accountRepo    domain.AccountRepository
	otpRepo        domain.OTPCodeRepository
	sessionRepo    domain.AuthSessionRepository
	hasher         domain.PasswordHasher
	tokens         TokenCodec
	emailService   domain.EmailService
	profileService domain.ProfileService
	logger         *slog.Logger
	cfg            AuthConfig
	now            func() time.Time
}

// NewAuthService creates an AuthService. emailService may be nil, in which
// case sign-up codes are only logged at debug level.
func NewAuthService(accountRepo domain.AccountRepository,
	otpRepo domain.OTPCodeRepository,
	sessionRepo domain.AuthSessionRepository,
	hasher domain.PasswordHasher,
	tokens TokenCodec,
	emailService domain.EmailService,
	profileService domain.ProfileService,
	logger *slog.Logger,
	cfg AuthConfig,
) domain.AuthService {
	return &authService{
		accountRepo:    accountRepo,
		otpRepo:        otpRepo,
		sessionRepo:    sessionRepo,
		hasher:         hasher,
		tokens:         tokens,
		emailService:   emailService,
		profileService: profileService,
		logger:         logger,
		cfg:            cfg,
		now:            time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (s *authService) SignUp(ctx context.Context, in domain.SignUpInput) (*domain.Account, error) {
	email := normalizeEmail(in.Email)
	ve := &domain.ValidationError{}
	if !emailRegexp.MatchString(email) {
		ve.Fields = append(ve.Fields, domain.FieldError{Field: "email", Msg: "invalid email format"})
	}
	if len(in.Password) < minPasswordLen {
		ve.Fields = append(ve.Fields, domain.FieldError{Field: "password", Msg: fmt.Sprintf("must be at least %d characters", minPasswordLen)})
	}
	role := in.Role
	if role == "" {
		role = domain.RoleParticipant
	}
	if !role.Valid() {
		ve.Fields = append(ve.Fields, domain.FieldError{Field: "role", Msg: "must be participant or organization"})
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	md := domain.AccountMetadata{Role: &role}
	if name := strings.TrimSpace(in.FullName); name != "" {
		md.FullName = &name
		if role == domain.RoleOrganization {
			md.OrgName = &name
		}
	}
	acct := &domain.Account{Email: email, PasswordHash: hash, Metadata: md}
	if err := s.accountRepo.Create(ctx, acct); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	if err := s.sendCode(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

func (s *authService) sendCode(ctx context.Context, acct *domain.Account) error {
	code, err := generateOTP(otpDigits)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	if err := s.otpRepo.Create(ctx, acct.Email, hashOTP(code), s.now().Add(s.cfg.OTPExpiry)); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	if s.emailService == nil {
		s.logger.DebugContext(ctx, "no email service configured, sign-up code not sent", "email", acct.Email)
		return nil
	}
	data := &domain.SignupCodeEmailData{
		Email:            acct.Email,
		Code:             code,
		ExpiresInMinutes: int(s.cfg.OTPExpiry / time.Minute),
	}
	if acct.Metadata.FullName != nil {
		data.FullName = *acct.Metadata.FullName
	}
	if err := s.emailService.SendSignupCode(ctx, data); err != nil {
		return fmt.Errorf("send sign-up code: %w", err)
	}
	return nil
}

// VerifyOTP consumes the code, confirms the account, refreshes the profile
// from the sign-up metadata and opens a session.
func (s *authService) VerifyOTP(ctx context.Context, email, code string) (*domain.Session, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if !otpRegexp.MatchString(code) {
		return nil, domain.ErrInvalidCode
	}
	consumed, err := s.otpRepo.Consume(ctx, email, hashOTP(code))
	if err != nil {
		return nil, fmt.Errorf("verify code: %w", err)
	}
	if !consumed {
		return nil, domain.ErrInvalidCode
	}
	acct, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCode
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	now := s.now()
	if err := s.accountRepo.Confirm(ctx, acct.ID, now); err != nil {
		return nil, fmt.Errorf("confirm account: %w", err)
	}
	if acct.ConfirmedAt == nil {
		acct.ConfirmedAt = &now
	}
	s.syncProfile(ctx, acct)
	return s.openSession(ctx, acct)
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	acct, err := s.accountRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	if err := s.hasher.Compare(acct.PasswordHash, password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if acct.ConfirmedAt == nil {
		return nil, domain.ErrAccountNotConfirmed
	}
	return s.openSession(ctx, acct)
}

func (s *authService) openSession(ctx context.Context, acct *domain.Account) (*domain.Session, error) {
	now := s.now()
	sess := &domain.AuthSession{
		ID:        uuid.NewString(),
		AccountID: acct.ID,
		ExpiresAt: now.Add(s.cfg.TokenExpiry),
	}
	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	token, err := s.tokens.Issue(domain.TokenClaims{
		SessionID: sess.ID,
		UserID:    acct.ID,
		Email:     acct.Email,
		Role:      acct.RoleOrDefault(),
	}, s.cfg.TokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &domain.Session{
		Token:     token,
		TokenType: tokenType,
		ExpiresAt: sess.ExpiresAt,
		Account:   acct,
	}, nil
}

// Authenticate verifies the token and checks that its session is still live.
func (s *authService) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	sess, err := s.sessionRepo.GetActive(ctx, claims.SessionID, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.AccountID != claims.UserID {
		return nil, domain.ErrUnauthorized
	}
	return &domain.Principal{UserID: claims.UserID, SessionID: sess.ID, Role: claims.Role}, nil
}

func (s *authService) CurrentAccount(ctx context.Context, userID string) (*domain.Account, error) {
	acct, err := s.accountRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return acct, nil
}

func (s *authService) UpdateMetadata(ctx context.Context, userID string, patch domain.AccountMetadata) (*domain.Account, error) {
	if patch.Role != nil && !patch.Role.Valid() {
		return nil, domain.NewValidationError("role", "must be participant or organization")
	}
	if patch.Username != nil && *patch.Username != "" {
		uname := domain.SanitizeUsername(*patch.Username)
		if uname == "" {
			return nil, domain.NewValidationError("username", "use letters, numbers, dots, underscores or dashes")
		}
		ok, err := s.profileService.IsUsernameAvailable(ctx, uname, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrUsernameUnavailable
		}
		patch.Username = &uname
	}

	acct, err := s.CurrentAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	updated, err := s.accountRepo.UpdateMetadata(ctx, userID, acct.Metadata.Merge(patch))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update metadata: %w", err)
	}
	s.syncProfile(ctx, updated)
	return updated, nil
}

// syncProfile never fails the caller; errors are logged.
func (s *authService) syncProfile(ctx context.Context, acct *domain.Account) {
	if s.profileService == nil {
		return
	}
	if err := s.profileService.SyncFromAccount(ctx, acct); err != nil {
		s.logger.WarnContext(ctx, "profile sync failed", "user_id", acct.ID, "err", err)
	}
}

func (s *authService) SignOut(ctx context.Context, sessionID string) error {
	if err := s.sessionRepo.Revoke(ctx, sessionID, s.now()); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func generateOTP(digits int) (string, error) {
	const digitspace = "0123456789"
	b := make([]byte, digits)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = digitspace[int(b[i])%len(digitspace)]
	}
	return string(b), nil
}

func hashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
