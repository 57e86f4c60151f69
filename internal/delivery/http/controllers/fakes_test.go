package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	testEventID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	testUserID  = "0f8fad5b-d9cb-469f-a165-70867728950e"
)

func asUser(req *http.Request, userID string, role domain.Role) *http.Request {
	return req.WithContext(middleware.SetPrincipal(req.Context(), &domain.Principal{
		UserID:    userID,
		SessionID: "sess-1",
		Role:      role,
	}))
}

// decodeEnvelope decodes the response envelope and, when dst is non-nil,
// re-decodes the data half into it.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dst any) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
	if dst != nil {
		require.Nil(t, envelope.Error, "success response must have error nil")
		raw, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, dst))
	}
	return envelope
}

func multipartBody(t *testing.T, field string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "image.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	err           error
	event         *domain.Event
	withOrg       *domain.EventWithOrg
	items         []*domain.EventWithOrg
	events        []*domain.Event
	lastCreate    *domain.Event
	lastFilters   domain.FeedFilters
	lastStatus    domain.JoinedStatus
	lastAfter     *time.Time
	lastLimit     int
	lastID        string
	lastCallerID  string
	lastRole      domain.Role
	lastUpdate    domain.EventUpdate
	deleteCalls   int
	feedCallCount int
}

func (f *fakeEventService) CreateEvent(ctx context.Context, e *domain.Event) error {
	f.lastCreate = e
	if f.err != nil {
		return f.err
	}
	e.ID = testEventID
	return nil
}

func (f *fakeEventService) GetEventByID(ctx context.Context, id string) (*domain.Event, error) {
	f.lastID = id
	return f.event, f.err
}

func (f *fakeEventService) GetEventWithOrgByID(ctx context.Context, id string) (*domain.EventWithOrg, error) {
	f.lastID = id
	return f.withOrg, f.err
}

func (f *fakeEventService) UpdateEvent(ctx context.Context, id, callerID string, changes domain.EventUpdate) (*domain.Event, error) {
	f.lastID, f.lastCallerID, f.lastUpdate = id, callerID, changes
	return f.event, f.err
}

func (f *fakeEventService) DeleteEvent(ctx context.Context, id, callerID string) error {
	f.lastID, f.lastCallerID = id, callerID
	f.deleteCalls++
	return f.err
}

func (f *fakeEventService) ListEventsFor(ctx context.Context, role domain.Role, orgID string) ([]*domain.Event, error) {
	f.lastRole, f.lastCallerID = role, orgID
	return f.events, f.err
}

func (f *fakeEventService) ListUpcomingEventsWithOrg(ctx context.Context) ([]*domain.EventWithOrg, error) {
	return f.items, f.err
}

func (f *fakeEventService) FetchEventsFeed(ctx context.Context, filters domain.FeedFilters) ([]*domain.EventWithOrg, error) {
	f.lastFilters = filters
	f.feedCallCount++
	return f.items, f.err
}

func (f *fakeEventService) ListJoinedEvents(ctx context.Context, status domain.JoinedStatus, userID string, after *time.Time, limit int) ([]*domain.EventWithOrg, error) {
	f.lastStatus, f.lastCallerID, f.lastAfter, f.lastLimit = status, userID, after, limit
	return f.items, f.err
}

// fakeParticipationService implements domain.ParticipationService.
type fakeParticipationService struct {
	err            error
	countErr       error
	participants   int
	interested     int
	joined         bool
	isInterested   bool
	toggleResult   domain.ToggleResult
	ids            []string
	joinCalls      int
	unjoinCalls    int
	lastEventID    string
	lastUserID     string
	lastDesired    *bool
	toggleCalls    int
	listJoinedFor  string
	listLikedFor   string
	countCallCount int
}

func (f *fakeParticipationService) JoinEvent(ctx context.Context, eventID, userID string) error {
	f.joinCalls++
	f.lastEventID, f.lastUserID = eventID, userID
	return f.err
}

func (f *fakeParticipationService) UnjoinEvent(ctx context.Context, eventID, userID string) error {
	f.unjoinCalls++
	f.lastEventID, f.lastUserID = eventID, userID
	return f.err
}

func (f *fakeParticipationService) IsUserJoined(ctx context.Context, eventID, userID string) (bool, error) {
	return f.joined, f.err
}

func (f *fakeParticipationService) CountParticipants(ctx context.Context, eventID string) (int, error) {
	f.countCallCount++
	return f.participants, f.countErr
}

func (f *fakeParticipationService) ToggleInterested(ctx context.Context, eventID, userID string, desired *bool) (domain.ToggleResult, error) {
	f.toggleCalls++
	f.lastEventID, f.lastUserID, f.lastDesired = eventID, userID, desired
	return f.toggleResult, f.err
}

func (f *fakeParticipationService) CountInterested(ctx context.Context, eventID string) (int, error) {
	f.countCallCount++
	return f.interested, f.countErr
}

func (f *fakeParticipationService) IsInterested(ctx context.Context, eventID, userID string) (bool, error) {
	return f.isInterested, f.err
}

func (f *fakeParticipationService) ListInterestedEventIDs(ctx context.Context, userID string) ([]string, error) {
	f.listLikedFor = userID
	return f.ids, f.err
}

func (f *fakeParticipationService) ListJoinedEventIDs(ctx context.Context, userID string) ([]string, error) {
	f.listJoinedFor = userID
	return f.ids, f.err
}

// fakeAuthService implements domain.AuthService.
type fakeAuthService struct {
	err         error
	account     *domain.Account
	session     *domain.Session
	lastSignUp  domain.SignUpInput
	lastEmail   string
	lastCode    string
	lastPass    string
	lastUserID  string
	lastPatch   domain.AccountMetadata
	lastSession string
	calls       int
}

func (f *fakeAuthService) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	return nil, domain.ErrUnauthorized
}

func (f *fakeAuthService) SignUp(ctx context.Context, in domain.SignUpInput) (*domain.Account, error) {
	f.calls++
	f.lastSignUp = in
	return f.account, f.err
}

func (f *fakeAuthService) VerifyOTP(ctx context.Context, email, code string) (*domain.Session, error) {
	f.calls++
	f.lastEmail, f.lastCode = email, code
	return f.session, f.err
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	f.calls++
	f.lastEmail, f.lastPass = email, password
	return f.session, f.err
}

func (f *fakeAuthService) CurrentAccount(ctx context.Context, userID string) (*domain.Account, error) {
	f.calls++
	f.lastUserID = userID
	return f.account, f.err
}

func (f *fakeAuthService) UpdateMetadata(ctx context.Context, userID string, patch domain.AccountMetadata) (*domain.Account, error) {
	f.calls++
	f.lastUserID, f.lastPatch = userID, patch
	return f.account, f.err
}

func (f *fakeAuthService) SignOut(ctx context.Context, sessionID string) error {
	f.calls++
	f.lastSession = sessionID
	return f.err
}

// fakeProfileService implements domain.ProfileService.
type fakeProfileService struct {
	err         error
	profile     *domain.Profile
	available   bool
	lastID      string
	lastName    string
	lastExclude string
}

func (f *fakeProfileService) SyncFromAccount(ctx context.Context, acct *domain.Account) error {
	return f.err
}

func (f *fakeProfileService) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	f.lastID = id
	return f.profile, f.err
}

func (f *fakeProfileService) IsUsernameAvailable(ctx context.Context, username, currentUserID string) (bool, error) {
	f.lastName, f.lastExclude = username, currentUserID
	return f.available, f.err
}

// fakeMediaService implements domain.MediaService and records uploaded bytes.
type fakeMediaService struct {
	err          error
	event        *domain.Event
	account      *domain.Account
	uploaded     []byte
	lastEventID  string
	lastCallerID string
	deleteCalls  int
}

func (f *fakeMediaService) UploadBanner(ctx context.Context, eventID, callerID string, body io.Reader) (*domain.Event, error) {
	f.lastEventID, f.lastCallerID = eventID, callerID
	f.uploaded, _ = io.ReadAll(body)
	return f.event, f.err
}

func (f *fakeMediaService) UploadAvatar(ctx context.Context, userID string, body io.Reader) (*domain.Account, error) {
	f.lastCallerID = userID
	f.uploaded, _ = io.ReadAll(body)
	return f.account, f.err
}

func (f *fakeMediaService) DeleteAvatar(ctx context.Context, userID string) (*domain.Account, error) {
	f.lastCallerID = userID
	f.deleteCalls++
	return f.account, f.err
}
