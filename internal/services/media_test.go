package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"eventhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAccountEditor applies metadata patches in memory.
type fakeAccountEditor struct {
	acct *domain.Account
}

func (f *fakeAccountEditor) CurrentAccount(ctx context.Context, userID string) (*domain.Account, error) {
	if f.acct == nil || f.acct.ID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *f.acct
	return &cp, nil
}

func (f *fakeAccountEditor) UpdateMetadata(ctx context.Context, userID string, patch domain.AccountMetadata) (*domain.Account, error) {
	if _, err := f.CurrentAccount(ctx, userID); err != nil {
		return nil, err
	}
	f.acct.Metadata = f.acct.Metadata.Merge(patch)
	cp := *f.acct
	return &cp, nil
}

type mediaFixture struct {
	events  *fakeEventRepo
	editor  *fakeAccountEditor
	storage *fakeStorage
	images  *fakeImages
	svc     *mediaService
}

func newMediaFixture() *mediaFixture {
	f := &mediaFixture{
		events:  newFakeEventRepo(),
		editor:  &fakeAccountEditor{acct: &domain.Account{ID: "user-1"}},
		storage: newFakeStorage(),
		images:  &fakeImages{},
	}
	f.svc = NewMediaService(f.events, f.editor, f.storage, f.images, discardLogger(), time.Second).(*mediaService)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func TestMediaService_UploadBanner(t *testing.T) {
	ctx := context.Background()
	f := newMediaFixture()
	oldURL := f.storage.base + "/event-banners/events/org-1/old.jpg"
	f.events.put(&domain.Event{ID: "ev-1", OrganizationID: "org-1", BannerURL: &oldURL})

	e, err := f.svc.UploadBanner(ctx, "ev-1", "org-1", reader("png-bytes"))
	require.NoError(t, err)
	require.NotNil(t, e.BannerURL)
	assert.True(t, strings.HasPrefix(*e.BannerURL, f.storage.base+"/event-banners/events/org-1/"))
	assert.True(t, strings.HasSuffix(*e.BannerURL, ".jpg"))

	path := domain.ExtractBucketPath(*e.BannerURL, domain.BucketEventBanners)
	assert.Equal(t, "jpeg1600x900:png-bytes", string(f.storage.uploads["event-banners/"+path]))
	assert.Equal(t, []string{"event-banners/events/org-1/old.jpg"}, f.storage.deleted)
}

func TestMediaService_UploadBannerErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("not owner", func(t *testing.T) {
		f := newMediaFixture()
		f.events.put(&domain.Event{ID: "ev-1", OrganizationID: "org-1"})
		_, err := f.svc.UploadBanner(ctx, "ev-1", "org-2", reader("x"))
		require.ErrorIs(t, err, domain.ErrForbidden)
		assert.Empty(t, f.storage.uploads)
	})

	t.Run("missing event", func(t *testing.T) {
		f := newMediaFixture()
		_, err := f.svc.UploadBanner(ctx, "ev-404", "org-1", reader("x"))
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("bad image", func(t *testing.T) {
		f := newMediaFixture()
		f.events.put(&domain.Event{ID: "ev-1", OrganizationID: "org-1"})
		f.images.err = domain.NewValidationError("file", "unsupported image")
		_, err := f.svc.UploadBanner(ctx, "ev-1", "org-1", reader("x"))
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("old banner delete failure is ignored", func(t *testing.T) {
		f := newMediaFixture()
		old := f.storage.base + "/event-banners/events/org-1/old.jpg"
		f.events.put(&domain.Event{ID: "ev-1", OrganizationID: "org-1", BannerURL: &old})
		f.storage.deleteErr = errBoom
		_, err := f.svc.UploadBanner(ctx, "ev-1", "org-1", reader("x"))
		require.NoError(t, err)
	})

	t.Run("upload failure keeps event", func(t *testing.T) {
		f := newMediaFixture()
		f.events.put(&domain.Event{ID: "ev-1", OrganizationID: "org-1"})
		f.storage.uploadErr = errBoom
		_, err := f.svc.UploadBanner(ctx, "ev-1", "org-1", reader("x"))
		require.ErrorIs(t, err, errBoom)
		assert.Nil(t, f.events.byID["ev-1"].BannerURL)
	})
}

func TestMediaService_Avatar(t *testing.T) {
	ctx := context.Background()
	f := newMediaFixture()

	acct, err := f.svc.UploadAvatar(ctx, "user-1", reader("face"))
	require.NoError(t, err)
	want := f.storage.base + "/avatars/avatars/user-1/avatar.jpg?v=" + "1780315200"
	assert.Equal(t, want, *acct.Metadata.AvatarURL)
	assert.Equal(t, "jpeg512x512:face", string(f.storage.uploads["avatars/avatars/user-1/avatar.jpg"]))

	acct, err = f.svc.DeleteAvatar(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, acct.Metadata.AvatarURL)
	assert.Equal(t, []string{"avatars/avatars/user-1/avatar.jpg"}, f.storage.deleted)

	acct, err = f.svc.DeleteAvatar(ctx, "user-1")
	require.NoError(t, err, "deleting a missing avatar is a no-op")
	assert.Nil(t, acct.Metadata.AvatarURL)
	assert.Len(t, f.storage.deleted, 1)
}

func TestMediaService_DeleteAvatarStorageFailure(t *testing.T) {
	f := newMediaFixture()
	url := f.storage.base + "/avatars/avatars/user-1/avatar.jpg?v=1"
	f.editor.acct.Metadata.AvatarURL = &url
	f.storage.deleteErr = errBoom

	_, err := f.svc.DeleteAvatar(context.Background(), "user-1")
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, url, *f.editor.acct.Metadata.AvatarURL)
}
