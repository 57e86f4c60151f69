package domain

import (
	"context"
	"regexp"
	"strings"
)

// Role is the account type chosen at sign-up.
type Role string

const (
	RoleParticipant  Role = "participant"
	RoleOrganization Role = "organization"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleParticipant || r == RoleOrganization
}

// Profile is the public projection of an account's metadata.
// swagger:model Profile
type Profile struct {
	ID        string  `json:"id"`
	Username  *string `json:"username"`
	FullName  *string `json:"full_name"`
	Email     *string `json:"email"`
	Role      *Role   `json:"role"`
	Bio       *string `json:"bio"`
	Website   *string `json:"website"`
	AvatarURL *string `json:"avatar_url"`
	Skills    *string `json:"skills"`
	College   *string `json:"college"`
}

// MaxUsernameLength is the length sanitized usernames are truncated to.
const MaxUsernameLength = 30

var (
	usernameDisallowed = regexp.MustCompile(`[^a-z0-9._-]`)
)

// SanitizeUsername lowercases input, strips characters outside [a-z0-9._-],
// truncates to MaxUsernameLength and trims leading and trailing dots.
func SanitizeUsername(input string) string {
	s := strings.ToLower(input)
	s = usernameDisallowed.ReplaceAllString(s, "")
	if len(s) > MaxUsernameLength {
		s = s[:MaxUsernameLength]
	}
	return strings.Trim(s, ".")
}

// ProfileRepository is the storage gateway for profiles.
type ProfileRepository interface {
	// Upsert inserts or replaces the profile by id. A nil Email keeps the stored one.
	Upsert(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id string) (*Profile, error)
	// CountByUsername counts profiles with username, excluding excludeID.
	CountByUsername(ctx context.Context, username, excludeID string) (int, error)
}

// ProfileService keeps profiles in step with account metadata.
type ProfileService interface {
	SyncFromAccount(ctx context.Context, acct *Account) error
	GetProfile(ctx context.Context, id string) (*Profile, error)
	// IsUsernameAvailable sanitizes username first; an empty result is available.
	IsUsernameAvailable(ctx context.Context, username, currentUserID string) (bool, error)
}
