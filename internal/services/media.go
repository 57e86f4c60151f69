package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"eventhub/internal/domain"

	"github.com/google/uuid"
)

// Image bounds applied before upload.
const (
	bannerMaxWidth  = 1600
	bannerMaxHeight = 900
	avatarMaxSide   = 512
	jpegContentType = "image/jpeg"
)

// AccountEditor reads and patches account metadata.
type AccountEditor interface {
	CurrentAccount(ctx context.Context, userID string) (*domain.Account, error)
	UpdateMetadata(ctx context.Context, userID string, patch domain.AccountMetadata) (*domain.Account, error)
}

type mediaService struct {
	eventRepo      domain.EventRepository
	accounts       AccountEditor
	storage        domain.ObjectStorage
	images         domain.ImageProcessor
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewMediaService returns a MediaService storing banners and avatars in storage.
func NewMediaService(eventRepo domain.EventRepository,
	accounts AccountEditor,
	storage domain.ObjectStorage,
	images domain.ImageProcessor,
	logger *slog.Logger,
	timeout time.Duration,
) domain.MediaService {
	return &mediaService{
		eventRepo:      eventRepo,
		accounts:       accounts,
		storage:        storage,
		images:         images,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

// BannerPath is the object key for a new banner uploaded by userID.
func BannerPath(userID, objectID string) string {
	return "events/" + userID + "/" + objectID + ".jpg"
}

// AvatarPath is the object key for userID's avatar. Uploads replace it.
func AvatarPath(userID string) string {
	return "avatars/" + userID + "/avatar.jpg"
}

// UploadBanner stores a normalized banner and points the event at it. The
// previous banner object is removed on a best-effort basis.
func (s *mediaService) UploadBanner(ctx context.Context, eventID, callerID string, body io.Reader) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OrganizationID != callerID {
		return nil, domain.ErrForbidden
	}
	img, err := s.images.NormalizeJPEG(body, bannerMaxWidth, bannerMaxHeight)
	if err != nil {
		return nil, err
	}
	path := BannerPath(callerID, uuid.NewString())
	url, err := s.storage.Upload(ctx, domain.BucketEventBanners, path, jpegContentType, bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("upload banner: %w", err)
	}
	updated, err := s.eventRepo.Update(ctx, eventID, domain.EventUpdate{BannerURL: &url})
	if err != nil {
		return nil, fmt.Errorf("store banner url: %w", err)
	}
	if event.BannerURL != nil {
		if old := domain.ExtractBucketPath(*event.BannerURL, domain.BucketEventBanners); old != "" && old != path {
			if err := s.storage.Delete(ctx, domain.BucketEventBanners, old); err != nil {
				s.logger.WarnContext(ctx, "old banner delete failed", "event_id", eventID, "path", old, "err", err)
			}
		}
	}
	return updated, nil
}

// UploadAvatar overwrites the user's avatar object and records its URL with a
// version query so clients refetch it.
func (s *mediaService) UploadAvatar(ctx context.Context, userID string, body io.Reader) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	img, err := s.images.NormalizeJPEG(body, avatarMaxSide, avatarMaxSide)
	if err != nil {
		return nil, err
	}
	url, err := s.storage.Upload(ctx, domain.BucketAvatars, AvatarPath(userID), jpegContentType, bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}
	url += "?v=" + strconv.FormatInt(s.now().Unix(), 10)
	return s.accounts.UpdateMetadata(ctx, userID, domain.AccountMetadata{AvatarURL: &url})
}

// DeleteAvatar removes the avatar object, then clears avatar_url.
func (s *mediaService) DeleteAvatar(ctx context.Context, userID string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	acct, err := s.accounts.CurrentAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acct.Metadata.AvatarURL == nil {
		return acct, nil
	}
	if path := domain.ExtractBucketPath(*acct.Metadata.AvatarURL, domain.BucketAvatars); path != "" {
		if err := s.storage.Delete(ctx, domain.BucketAvatars, path); err != nil {
			return nil, fmt.Errorf("delete avatar: %w", err)
		}
	}
	none := ""
	return s.accounts.UpdateMetadata(ctx, userID, domain.AccountMetadata{AvatarURL: &none})
}
