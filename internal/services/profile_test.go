package services

import (
	"context"
	"testing"
	"time"

	"eventhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileFromAccount(t *testing.T) {
	org := domain.RoleOrganization

	tests := []struct {
		name         string
		acct         *domain.Account
		wantFullName *string
		wantEmail    *string
		wantUsername *string
	}{
		{
			name:         "full name and account email",
			acct:         &domain.Account{ID: "u-1", Email: "a@example.com", Metadata: domain.AccountMetadata{FullName: strPtr("Ada")}},
			wantFullName: strPtr("Ada"),
			wantEmail:    strPtr("a@example.com"),
		},
		{
			name:         "org name fallback",
			acct:         &domain.Account{ID: "u-1", Metadata: domain.AccountMetadata{OrgName: strPtr("Acme"), Role: &org}},
			wantFullName: strPtr("Acme"),
		},
		{
			name:      "metadata email when account has none",
			acct:      &domain.Account{ID: "u-1", Metadata: domain.AccountMetadata{Email: strPtr("m@example.com")}},
			wantEmail: strPtr("m@example.com"),
		},
		{
			name:         "username sanitized",
			acct:         &domain.Account{ID: "u-1", Metadata: domain.AccountMetadata{Username: strPtr(" My.Name_2! ")}},
			wantUsername: strPtr("my.name_2"),
		},
		{
			name: "username sanitized to empty is dropped",
			acct: &domain.Account{ID: "u-1", Metadata: domain.AccountMetadata{Username: strPtr("!!!")}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ProfileFromAccount(tt.acct)
			assert.Equal(t, tt.acct.ID, p.ID)
			assert.Equal(t, tt.wantFullName, p.FullName)
			assert.Equal(t, tt.wantEmail, p.Email)
			assert.Equal(t, tt.wantUsername, p.Username)
		})
	}
}

func TestProfileService_SyncKeepsStoredEmail(t *testing.T) {
	ctx := context.Background()
	repo := newFakeProfileRepo()
	svc := NewProfileService(repo, time.Second)

	require.NoError(t, svc.SyncFromAccount(ctx, &domain.Account{ID: "u-1", Email: "a@example.com"}))
	require.NoError(t, svc.SyncFromAccount(ctx, &domain.Account{ID: "u-1", Metadata: domain.AccountMetadata{Bio: strPtr("hi")}}))

	p, err := svc.GetProfile(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", *p.Email)
	assert.Equal(t, "hi", *p.Bio)
	assert.NoError(t, svc.SyncFromAccount(ctx, nil))
}

func TestProfileService_IsUsernameAvailable(t *testing.T) {
	ctx := context.Background()
	repo := newFakeProfileRepo()
	repo.byID["u-1"] = &domain.Profile{ID: "u-1", Username: strPtr("ada")}
	svc := NewProfileService(repo, time.Second)

	tests := []struct {
		name     string
		username string
		current  string
		want     bool
	}{
		{name: "taken by someone else", username: "ADA", current: "u-2", want: false},
		{name: "own username", username: "ada", current: "u-1", want: true},
		{name: "free", username: "grace", current: "u-2", want: true},
		{name: "empty after sanitizing", username: "..", current: "u-2", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := svc.IsUsernameAvailable(ctx, tt.username, tt.current)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestProfileService_GetProfileNotFound(t *testing.T) {
	svc := NewProfileService(newFakeProfileRepo(), time.Second)
	_, err := svc.GetProfile(context.Background(), "nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
