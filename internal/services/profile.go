package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/domain"
)

type profileService struct {
	profileRepo    domain.ProfileRepository
	contextTimeout time.Duration
}

// NewProfileService returns a ProfileService backed by profileRepo.
func NewProfileService(profileRepo domain.ProfileRepository, timeout time.Duration) domain.ProfileService {
	return &profileService{profileRepo: profileRepo, contextTimeout: timeout}
}

// ProfileFromAccount projects account metadata onto a profile row. full_name
// falls back to org_name, and the email is nil when neither the account nor
// its metadata carries one so an upsert keeps the stored value.
func ProfileFromAccount(acct *domain.Account) *domain.Profile {
	md := acct.Metadata
	p := &domain.Profile{
		ID:        acct.ID,
		FullName:  md.FullName,
		Role:      md.Role,
		Bio:       md.Bio,
		Website:   md.Website,
		AvatarURL: md.AvatarURL,
		Skills:    md.Skills,
		College:   md.College,
	}
	if p.FullName == nil {
		p.FullName = md.OrgName
	}
	if md.Username != nil {
		if u := domain.SanitizeUsername(*md.Username); u != "" {
			p.Username = &u
		}
	}
	switch {
	case acct.Email != "":
		email := acct.Email
		p.Email = &email
	case md.Email != nil && *md.Email != "":
		p.Email = md.Email
	}
	return p
}

func (s *profileService) SyncFromAccount(ctx context.Context, acct *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if acct == nil || acct.ID == "" {
		return nil
	}
	if err := s.profileRepo.Upsert(ctx, ProfileFromAccount(acct)); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *profileService) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	p, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *profileService) IsUsernameAvailable(ctx context.Context, username, currentUserID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	uname := domain.SanitizeUsername(username)
	if uname == "" {
		return true, nil
	}
	n, err := s.profileRepo.CountByUsername(ctx, uname, currentUserID)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return n == 0, nil
}
