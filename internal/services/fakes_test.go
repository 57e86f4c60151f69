package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"eventhub/internal/domain"
	"eventhub/internal/eventbus"
)

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func remote(op string, kind domain.ErrorKind) error {
	return &domain.RemoteError{Op: op, Kind: kind, Err: errBoom}
}

// fakeEventRepo is an in-memory EventRepository for tests.
type fakeEventRepo struct {
	byID      map[string]*domain.Event
	nextID    int
	createErr error
	withOrg   error // if set, GetWithOrgByID fails with it
	joinedErr error // if set, JoinedFeed fails with it
	orgNames  map[string]string

	feedArgs struct {
		search   *string
		category *domain.EventCategory
		after    *time.Time
		limit    int
	}
	joinedCalls int
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		byID:     make(map[string]*domain.Event),
		nextID:   1,
		orgNames: make(map[string]string),
	}
}

func (f *fakeEventRepo) put(e *domain.Event) *domain.Event {
	f.byID[e.ID] = e
	return e
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	if f.createErr != nil {
		return f.createErr
	}
	e.ID = fmt.Sprintf("ev-%d", f.nextID)
	f.nextID++
	f.byID[e.ID] = e
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if e, ok := f.byID[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, remote("events.select", domain.KindNotFound)
}

func (f *fakeEventRepo) GetWithOrgByID(ctx context.Context, id string) (*domain.EventWithOrg, error) {
	if f.withOrg != nil {
		return nil, f.withOrg
	}
	e, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &domain.EventWithOrg{Event: *e}
	if name, ok := f.orgNames[e.OrganizationID]; ok {
		out.OrgName = &name
	}
	return out, nil
}

func (f *fakeEventRepo) Update(ctx context.Context, id string, changes domain.EventUpdate) (*domain.Event, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, remote("events.update", domain.KindNotFound)
	}
	updated := changes.Apply(*e)
	f.byID[id] = &updated
	cp := updated
	return &cp, nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return remote("events.delete", domain.KindNotFound)
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeEventRepo) sorted(keep func(e *domain.Event) bool) []*domain.Event {
	out := []*domain.Event{}
	for _, e := range f.byID {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out
}

func (f *fakeEventRepo) ListByOrganizationID(ctx context.Context, orgID string) ([]*domain.Event, error) {
	return f.sorted(func(e *domain.Event) bool { return e.OrganizationID == orgID }), nil
}

func (f *fakeEventRepo) ListEndingAfter(ctx context.Context, t time.Time) ([]*domain.Event, error) {
	return f.sorted(func(e *domain.Event) bool { return !e.EndsAt.Before(t) }), nil
}

func (f *fakeEventRepo) ListEndingAfterWithOrg(ctx context.Context, t time.Time) ([]*domain.EventWithOrg, error) {
	var out []*domain.EventWithOrg
	for _, e := range f.sorted(func(e *domain.Event) bool { return !e.EndsAt.Before(t) }) {
		out = append(out, &domain.EventWithOrg{Event: *e})
	}
	return out, nil
}

func (f *fakeEventRepo) Feed(ctx context.Context, search *string, category *domain.EventCategory, after *time.Time, limit int) ([]*domain.EventWithOrg, error) {
	f.feedArgs.search, f.feedArgs.category, f.feedArgs.after, f.feedArgs.limit = search, category, after, limit
	return []*domain.EventWithOrg{}, nil
}

func (f *fakeEventRepo) JoinedFeed(ctx context.Context, userID string, status domain.JoinedStatus, after *time.Time, limit int) ([]*domain.EventWithOrg, error) {
	f.joinedCalls++
	if f.joinedErr != nil {
		return nil, f.joinedErr
	}
	org := "Acme"
	return []*domain.EventWithOrg{{Event: domain.Event{ID: "rpc-1"}, OrgName: &org}}, nil
}

// fakePairRepo is an in-memory PairRepository with per-call error hooks.
type fakePairRepo struct {
	mu        sync.Mutex
	rows      map[[2]string]time.Time
	addErr    error
	removeErr error
	existsErr error
	adds      int
	removes   int
	events    map[string]*domain.Event // for ListEventsByUser
	listErr   error
}

func newFakePairRepo() *fakePairRepo {
	return &fakePairRepo{rows: make(map[[2]string]time.Time), events: make(map[string]*domain.Event)}
}

func (f *fakePairRepo) Add(ctx context.Context, eventID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds++
	if f.addErr != nil {
		return f.addErr
	}
	k := [2]string{eventID, userID}
	if _, ok := f.rows[k]; ok {
		return remote("pairs.insert", domain.KindUniqueViolation)
	}
	f.rows[k] = time.Now()
	return nil
}

func (f *fakePairRepo) Remove(ctx context.Context, eventID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes++
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.rows, [2]string{eventID, userID})
	return nil
}

func (f *fakePairRepo) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.rows[[2]string{eventID, userID}]
	return ok, nil
}

func (f *fakePairRepo) CountByEvent(ctx context.Context, eventID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k := range f.rows {
		if k[0] == eventID {
			n++
		}
	}
	return n, nil
}

func (f *fakePairRepo) ListEventIDsByUser(ctx context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := []string{}
	for k := range f.rows {
		if k[1] == userID {
			ids = append(ids, k[0])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakePairRepo) ListEventsByUser(ctx context.Context, userID string) ([]*domain.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids, _ := f.ListEventIDsByUser(ctx, userID)
	out := []*domain.Event{}
	for _, id := range ids {
		if e, ok := f.events[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakePairRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// fakeProfileRepo is an in-memory ProfileRepository for tests.
type fakeProfileRepo struct {
	byID      map[string]*domain.Profile
	getErr    error
	upsertErr error
	upserts   []*domain.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{byID: make(map[string]*domain.Profile)}
}

func (f *fakeProfileRepo) Upsert(ctx context.Context, p *domain.Profile) error {
	f.upserts = append(f.upserts, p)
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if old, ok := f.byID[p.ID]; ok && p.Email == nil {
		p.Email = old.Email
	}
	f.byID[p.ID] = p
	return nil
}

func (f *fakeProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, remote("profiles.select", domain.KindNotFound)
}

func (f *fakeProfileRepo) CountByUsername(ctx context.Context, username, excludeID string) (int, error) {
	n := 0
	for id, p := range f.byID {
		if id != excludeID && p.Username != nil && *p.Username == username {
			n++
		}
	}
	return n, nil
}

// recordingPublisher captures published bus events.
type recordingPublisher struct {
	events []eventbus.AppEvent
}

func (p *recordingPublisher) Publish(ev eventbus.AppEvent) { p.events = append(p.events, ev) }

// fakeStorage records uploads and deletes.
type fakeStorage struct {
	base      string
	uploads   map[string][]byte
	deleted   []string
	uploadErr error
	deleteErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{base: "https://cdn.test/storage/v1/object/public", uploads: make(map[string][]byte)}
}

func (f *fakeStorage) Upload(ctx context.Context, bucket, path, contentType string, body io.Reader) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.uploads[bucket+"/"+path] = b
	return f.base + "/" + bucket + "/" + path, nil
}

func (f *fakeStorage) Delete(ctx context.Context, bucket, path string) error {
	f.deleted = append(f.deleted, bucket+"/"+path)
	return f.deleteErr
}

// fakeImages returns its input prefixed so tests can see it was processed.
type fakeImages struct {
	err error
}

func (f *fakeImages) NormalizeJPEG(r io.Reader, maxWidth, maxHeight int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return append([]byte(fmt.Sprintf("jpeg%dx%d:", maxWidth, maxHeight)), b...), nil
}

func reader(s string) io.Reader { return bytes.NewBufferString(s) }
