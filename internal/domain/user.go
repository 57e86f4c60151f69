package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for account operations.
var (
	ErrDuplicateEmail      = errors.New("email already in use")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidCode         = errors.New("invalid or expired code")
	ErrAccountNotConfirmed = errors.New("account not confirmed")
	ErrUsernameUnavailable = errors.New("username unavailable")
)

// AccountMetadata is the free-form user metadata attached to an account.
// Nil fields are absent.
type AccountMetadata struct {
	Role      *Role   `json:"role,omitempty"`
	FullName  *string `json:"full_name,omitempty"`
	OrgName   *string `json:"org_name,omitempty"`
	Username  *string `json:"username,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Website   *string `json:"website,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Skills    *string `json:"skills,omitempty"`
	College   *string `json:"college,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// Merge returns md with every non-nil field of patch applied. An empty string
// in patch clears the field.
func (md AccountMetadata) Merge(patch AccountMetadata) AccountMetadata {
	set := func(dst **string, src *string) {
		if src == nil {
			return
		}
		if *src == "" {
			*dst = nil
			return
		}
		v := *src
		*dst = &v
	}
	if patch.Role != nil {
		r := *patch.Role
		md.Role = &r
	}
	set(&md.FullName, patch.FullName)
	set(&md.OrgName, patch.OrgName)
	set(&md.Username, patch.Username)
	set(&md.Bio, patch.Bio)
	set(&md.Website, patch.Website)
	set(&md.AvatarURL, patch.AvatarURL)
	set(&md.Skills, patch.Skills)
	set(&md.College, patch.College)
	set(&md.Email, patch.Email)
	return md
}

// Account is an authentication identity.
// swagger:model Account
type Account struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	Metadata     AccountMetadata `json:"user_metadata"`
	ConfirmedAt  *time.Time      `json:"confirmed_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// RoleOrDefault returns the metadata role, defaulting to participant.
func (a *Account) RoleOrDefault() Role {
	if a.Metadata.Role != nil && a.Metadata.Role.Valid() {
		return *a.Metadata.Role
	}
	return RoleParticipant
}

// AuthSession is a server-side record backing an issued token.
type AuthSession struct {
	ID        string     `json:"id"`
	AccountID string     `json:"account_id"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// Session is returned to clients after a successful sign-in.
// swagger:model Session
type Session struct {
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	Account   *Account  `json:"user"`
}

// Principal identifies the caller of an authenticated request.
type Principal struct {
	UserID    string
	SessionID string
	Role      Role
}

// TokenClaims are the verified contents of a session token.
type TokenClaims struct {
	SessionID string
	UserID    string
	Email     string
	Role      Role
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer issues signed session tokens.
type TokenIssuer interface {
	Issue(claims TokenClaims, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token's signature and expiry.
type TokenVerifier interface {
	Verify(token string) (*TokenClaims, error)
}

// Authenticator resolves a bearer token to a live principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// AccountRepository is the storage gateway for accounts.
type AccountRepository interface {
	Create(ctx context.Context, a *Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	UpdateMetadata(ctx context.Context, id string, md AccountMetadata) (*Account, error)
	Confirm(ctx context.Context, id string, at time.Time) error
}

// OTPCodeRepository stores hashed one-time codes.
type OTPCodeRepository interface {
	Create(ctx context.Context, email, codeHash string, expiresAt time.Time) error
	Consume(ctx context.Context, email, codeHash string) (consumed bool, err error)
}

// AuthSessionRepository stores sessions backing issued tokens.
type AuthSessionRepository interface {
	Create(ctx context.Context, s *AuthSession) error
	GetActive(ctx context.Context, id string, now time.Time) (*AuthSession, error)
	Revoke(ctx context.Context, id string, at time.Time) error
}

// SignUpInput is the payload for creating an account.
type SignUpInput struct {
	Email    string
	Password string
	FullName string
	Role     Role
}

// AuthService covers sign-up, one-time code verification and session handling.
type AuthService interface {
	Authenticator
	SignUp(ctx context.Context, in SignUpInput) (*Account, error)
	VerifyOTP(ctx context.Context, email, code string) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	CurrentAccount(ctx context.Context, userID string) (*Account, error)
	// UpdateMetadata merges patch into the account metadata, then syncs the
	// profile on a best-effort basis.
	UpdateMetadata(ctx context.Context, userID string, patch AccountMetadata) (*Account, error)
	SignOut(ctx context.Context, sessionID string) error
}
