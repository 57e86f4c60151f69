package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"eventhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccountRepo struct {
	byID      map[string]*domain.Account
	nextID    int
	updateErr error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{byID: make(map[string]*domain.Account), nextID: 1}
}

func (f *fakeAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	for _, existing := range f.byID {
		if existing.Email == a.Email {
			return domain.ErrDuplicateEmail
		}
	}
	a.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	for _, a := range f.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, remote("accounts.select", domain.KindNotFound)
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if a, ok := f.byID[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, remote("accounts.select", domain.KindNotFound)
}

func (f *fakeAccountRepo) UpdateMetadata(ctx context.Context, id string, md domain.AccountMetadata) (*domain.Account, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, remote("accounts.update", domain.KindNotFound)
	}
	a.Metadata = md
	cp := *a
	return &cp, nil
}

func (f *fakeAccountRepo) Confirm(ctx context.Context, id string, at time.Time) error {
	a, ok := f.byID[id]
	if !ok {
		return remote("accounts.confirm", domain.KindNotFound)
	}
	if a.ConfirmedAt == nil {
		a.ConfirmedAt = &at
	}
	return nil
}

type fakeOTPRepo struct {
	codes map[string][]string
}

func (f *fakeOTPRepo) Create(ctx context.Context, email, codeHash string, expiresAt time.Time) error {
	if f.codes == nil {
		f.codes = make(map[string][]string)
	}
	f.codes[email] = append(f.codes[email], codeHash)
	return nil
}

func (f *fakeOTPRepo) Consume(ctx context.Context, email, codeHash string) (bool, error) {
	for i, h := range f.codes[email] {
		if h == codeHash {
			f.codes[email] = append(f.codes[email][:i], f.codes[email][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeSessionRepo struct {
	byID map[string]*domain.AuthSession
}

func (f *fakeSessionRepo) Create(ctx context.Context, s *domain.AuthSession) error {
	if f.byID == nil {
		f.byID = make(map[string]*domain.AuthSession)
	}
	cp := *s
	f.byID[s.ID] = &cp
	return nil
}

func (f *fakeSessionRepo) GetActive(ctx context.Context, id string, now time.Time) (*domain.AuthSession, error) {
	s, ok := f.byID[id]
	if !ok || s.RevokedAt != nil || !s.ExpiresAt.After(now) {
		return nil, remote("auth_sessions.select", domain.KindNotFound)
	}
	return s, nil
}

func (f *fakeSessionRepo) Revoke(ctx context.Context, id string, at time.Time) error {
	if s, ok := f.byID[id]; ok {
		s.RevokedAt = &at
	}
	return nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(pw string) (string, error) { return "hash:" + pw, nil }

func (fakeHasher) Compare(hash, pw string) error {
	if hash != "hash:"+pw {
		return errors.New("mismatch")
	}
	return nil
}

// fakeTokens encodes claims into a readable token.
type fakeTokens struct{}

func (fakeTokens) Issue(c domain.TokenClaims, expiry time.Duration) (string, error) {
	return strings.Join([]string{"tok", c.SessionID, c.UserID, string(c.Role)}, "|"), nil
}

func (fakeTokens) Verify(token string) (*domain.TokenClaims, error) {
	parts := strings.Split(token, "|")
	if len(parts) != 4 || parts[0] != "tok" {
		return nil, errors.New("bad token")
	}
	return &domain.TokenClaims{SessionID: parts[1], UserID: parts[2], Role: domain.Role(parts[3])}, nil
}

type recordingEmailService struct {
	sent []*domain.SignupCodeEmailData
	err  error
}

func (r *recordingEmailService) SendSignupCode(ctx context.Context, data *domain.SignupCodeEmailData) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, data)
	return nil
}

type authFixture struct {
	accounts *fakeAccountRepo
	otps     *fakeOTPRepo
	sessions *fakeSessionRepo
	profiles *fakeProfileRepo
	emails   *recordingEmailService
	svc      domain.AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		accounts: newFakeAccountRepo(),
		otps:     &fakeOTPRepo{},
		sessions: &fakeSessionRepo{},
		profiles: newFakeProfileRepo(),
		emails:   &recordingEmailService{},
	}
	svc := NewAuthService(f.accounts, f.otps, f.sessions, fakeHasher{}, fakeTokens{}, f.emails,
		NewProfileService(f.profiles, time.Second), discardLogger(),
		AuthConfig{TokenExpiry: time.Hour, OTPExpiry: 10 * time.Minute})
	svc.(*authService).now = func() time.Time { return testNow }
	f.svc = svc
	return f
}

// signUpAndVerify returns a confirmed session for a fresh account.
func (f *authFixture) signUpAndVerify(t *testing.T, email string, role domain.Role) *domain.Session {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.SignUp(ctx, domain.SignUpInput{Email: email, Password: "password1", FullName: "Ada Lovelace", Role: role})
	require.NoError(t, err)
	code := f.emails.sent[len(f.emails.sent)-1].Code
	sess, err := f.svc.VerifyOTP(ctx, email, code)
	require.NoError(t, err)
	return sess
}

func TestAuthService_SignUpValidation(t *testing.T) {
	tests := []struct {
		name       string
		in         domain.SignUpInput
		wantFields []string
	}{
		{name: "bad email", in: domain.SignUpInput{Email: "nope", Password: "password1"}, wantFields: []string{"email"}},
		{name: "short password", in: domain.SignUpInput{Email: "a@example.com", Password: "short"}, wantFields: []string{"password"}},
		{name: "unknown role", in: domain.SignUpInput{Email: "a@example.com", Password: "password1", Role: "admin"}, wantFields: []string{"role"}},
		{name: "everything", in: domain.SignUpInput{Email: "", Password: "", Role: "admin"}, wantFields: []string{"email", "password", "role"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture()
			_, err := f.svc.SignUp(context.Background(), tt.in)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			var fields []string
			for _, fe := range ve.Fields {
				fields = append(fields, fe.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
			assert.Empty(t, f.accounts.byID)
		})
	}
}

func TestAuthService_SignUp(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	acct, err := f.svc.SignUp(ctx, domain.SignUpInput{Email: "  Org@Example.com ", Password: "password1", FullName: "Acme", Role: domain.RoleOrganization})
	require.NoError(t, err)
	assert.Equal(t, "org@example.com", acct.Email)
	assert.Equal(t, domain.RoleOrganization, acct.RoleOrDefault())
	assert.Equal(t, "Acme", *acct.Metadata.OrgName)
	assert.Nil(t, acct.ConfirmedAt)

	require.Len(t, f.emails.sent, 1)
	sent := f.emails.sent[0]
	assert.Equal(t, "org@example.com", sent.Email)
	assert.Equal(t, "Acme", sent.FullName)
	assert.Regexp(t, `^\d{6}$`, sent.Code)
	assert.Equal(t, 10, sent.ExpiresInMinutes)
	require.Len(t, f.otps.codes["org@example.com"], 1)
	assert.NotEqual(t, sent.Code, f.otps.codes["org@example.com"][0], "codes are stored hashed")

	_, err = f.svc.SignUp(ctx, domain.SignUpInput{Email: "org@example.com", Password: "password2"})
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestAuthService_SignUpEmailFailure(t *testing.T) {
	f := newAuthFixture()
	f.emails.err = errBoom

	_, err := f.svc.SignUp(context.Background(), domain.SignUpInput{Email: "a@example.com", Password: "password1"})
	require.ErrorIs(t, err, errBoom)
}

func TestAuthService_VerifyOTP(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	sess := f.signUpAndVerify(t, "a@example.com", "")

	assert.Equal(t, "bearer", sess.TokenType)
	assert.Equal(t, testNow.Add(time.Hour), sess.ExpiresAt)
	require.NotNil(t, sess.Account.ConfirmedAt)
	assert.Equal(t, domain.RoleParticipant, sess.Account.RoleOrDefault())

	p, ok := f.profiles.byID[sess.Account.ID]
	require.True(t, ok, "verification creates the profile")
	assert.Equal(t, "Ada Lovelace", *p.FullName)
	assert.Equal(t, "a@example.com", *p.Email)

	code := f.emails.sent[0].Code
	_, err := f.svc.VerifyOTP(ctx, "a@example.com", code)
	require.ErrorIs(t, err, domain.ErrInvalidCode, "codes are single use")

	_, err = f.svc.VerifyOTP(ctx, "a@example.com", "12ab")
	require.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	_, err := f.svc.SignUp(ctx, domain.SignUpInput{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "a@example.com", "password1")
	require.ErrorIs(t, err, domain.ErrAccountNotConfirmed)

	_, err = f.svc.VerifyOTP(ctx, "a@example.com", f.emails.sent[0].Code)
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "ok", email: "A@example.com", password: "password1"},
		{name: "wrong password", email: "a@example.com", password: "password2", wantErr: domain.ErrInvalidCredentials},
		{name: "unknown email", email: "b@example.com", password: "password1", wantErr: domain.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := f.svc.Login(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, sess.Token)
		})
	}
}

func TestAuthService_AuthenticateAndSignOut(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	sess := f.signUpAndVerify(t, "org@example.com", domain.RoleOrganization)

	p, err := f.svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.Account.ID, p.UserID)
	assert.Equal(t, domain.RoleOrganization, p.Role)

	_, err = f.svc.Authenticate(ctx, "garbage")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	forged := strings.Replace(sess.Token, sess.Account.ID, "user-99", 1)
	_, err = f.svc.Authenticate(ctx, forged)
	require.ErrorIs(t, err, domain.ErrUnauthorized, "session must belong to the token subject")

	require.NoError(t, f.svc.SignOut(ctx, p.SessionID))
	_, err = f.svc.Authenticate(ctx, sess.Token)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_AuthenticateExpiredSession(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	sess := f.signUpAndVerify(t, "a@example.com", "")

	f.svc.(*authService).now = func() time.Time { return testNow.Add(2 * time.Hour) }
	_, err := f.svc.Authenticate(ctx, sess.Token)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_UpdateMetadata(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	first := f.signUpAndVerify(t, "a@example.com", "")
	second := f.signUpAndVerify(t, "b@example.com", "")

	acct, err := f.svc.UpdateMetadata(ctx, first.Account.ID, domain.AccountMetadata{Username: strPtr("Ada.L"), Bio: strPtr("math")})
	require.NoError(t, err)
	assert.Equal(t, "ada.l", *acct.Metadata.Username)
	assert.Equal(t, "Ada Lovelace", *acct.Metadata.FullName, "merge keeps untouched fields")
	assert.Equal(t, "ada.l", *f.profiles.byID[first.Account.ID].Username)

	_, err = f.svc.UpdateMetadata(ctx, second.Account.ID, domain.AccountMetadata{Username: strPtr("ADA.L")})
	require.ErrorIs(t, err, domain.ErrUsernameUnavailable)

	_, err = f.svc.UpdateMetadata(ctx, second.Account.ID, domain.AccountMetadata{Username: strPtr("!!!")})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "username", ve.Fields[0].Field)

	bad := domain.Role("admin")
	_, err = f.svc.UpdateMetadata(ctx, second.Account.ID, domain.AccountMetadata{Role: &bad})
	require.ErrorAs(t, err, &ve)

	acct, err = f.svc.UpdateMetadata(ctx, first.Account.ID, domain.AccountMetadata{Bio: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, acct.Metadata.Bio, "empty string clears a field")

	_, err = f.svc.UpdateMetadata(ctx, "user-404", domain.AccountMetadata{Bio: strPtr("x")})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuthService_UpdateMetadataProfileSyncFailure(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	sess := f.signUpAndVerify(t, "a@example.com", "")
	f.profiles.upsertErr = errBoom

	acct, err := f.svc.UpdateMetadata(ctx, sess.Account.ID, domain.AccountMetadata{College: strPtr("MIT")})
	require.NoError(t, err, "profile sync is best effort")
	assert.Equal(t, "MIT", *acct.Metadata.College)
}

func TestAuthService_NoEmailService(t *testing.T) {
	otps := &fakeOTPRepo{}
	svc := NewAuthService(newFakeAccountRepo(), otps, &fakeSessionRepo{}, fakeHasher{}, fakeTokens{}, nil,
		nil, discardLogger(), AuthConfig{TokenExpiry: time.Hour, OTPExpiry: time.Minute})

	_, err := svc.SignUp(context.Background(), domain.SignUpInput{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Len(t, otps.codes["a@example.com"], 1)
}
