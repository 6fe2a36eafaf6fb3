package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/contactsbook/apiserver/internal/imaging"
	"github.com/contactsbook/apiserver/internal/store"
	"github.com/contactsbook/apiserver/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// AvatarURLPrefix is the public path avatars are served under.
	AvatarURLPrefix = "/avatars/"
	// AvatarKeyPrefix is the object storage prefix for avatars.
	AvatarKeyPrefix = "avatars/"

	defaultAvatarSize = 250
)

// avatarFormats maps decoded image formats to the stored extension and content type.
var avatarFormats = map[string]struct{ ext, contentType string }{
	"png":  {".png", "image/png"},
	"jpeg": {".jpg", "image/jpeg"},
	"gif":  {".gif", "image/gif"},
}

func contentTypeByExt(ext string) (string, bool) {
	for _, f := range avatarFormats {
		if f.ext == ext {
			return f.contentType, true
		}
	}
	return "", false
}

// AvatarRepository persists the avatar URL of a user.
type AvatarRepository interface {
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
}

// ObjectStore is the subset of object storage used for avatars.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// AvatarUpload is an image received from a client. The stored extension and
// content type come from the decoded image, never from Filename.
type AvatarUpload struct {
	Filename string
	File     io.Reader
}

// AvatarOptions configures AvatarService.
type AvatarOptions struct {
	TmpDir string
	Size   int
	// StrictResize rejects images that cannot be resized. Otherwise the
	// original is kept. Files that are not png, jpeg or gif are always rejected.
	StrictResize bool
}

// AvatarService stores resized profile images and records their public URL.
type AvatarService struct {
	users   AvatarRepository
	objects ObjectStore
	opts    AvatarOptions
	detect  func(path string) (string, error)
	resize  func(path string, width, height int) error
	logger  *zap.Logger
}

func NewAvatarService(users AvatarRepository, objects ObjectStore, opts AvatarOptions, logger *zap.Logger) *AvatarService {
	if opts.TmpDir == "" {
		opts.TmpDir = os.TempDir()
	}
	if opts.Size <= 0 {
		opts.Size = defaultAvatarSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvatarService{
		users:   users,
		objects: objects,
		opts:    opts,
		detect:  imaging.DetectFormat,
		resize:  imaging.ResizeFile,
		logger:  logger,
	}
}

// Upload replaces the avatar of user and returns the new public URL.
//
// The URL is persisted before the object is written. When the write fails the
// previous URL is restored, so a failed upload leaves the user unchanged.
func (s *AvatarService) Upload(ctx context.Context, user *types.User, upload *AvatarUpload) (string, error) {
	if user == nil || user.ID == "" {
		return "", ErrNotAuthorized
	}
	if upload == nil || upload.File == nil {
		return "", newValidationError("avatar", "No file provided")
	}

	id := uuid.NewString()
	tmpPath := filepath.Join(s.opts.TmpDir, id+".upload")
	size, err := writeTempFile(tmpPath, upload.File)
	defer os.Remove(tmpPath)
	if err != nil {
		return "", fmt.Errorf("write temp avatar: %w", err)
	}

	format, err := s.detect(tmpPath)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupportedImage) {
			s.logger.Info("avatar rejected",
				zap.String("user_id", user.ID),
				zap.String("filename", upload.Filename),
				zap.Error(err),
			)
			return "", newValidationError("avatar", "Unsupported image")
		}
		return "", fmt.Errorf("inspect avatar: %w", err)
	}
	kind := avatarFormats[format]
	name := id + kind.ext

	if err := s.resize(tmpPath, s.opts.Size, s.opts.Size); err != nil {
		if s.opts.StrictResize {
			return "", newValidationError("avatar", "Unsupported image")
		}
		s.logger.Warn("avatar resize failed, keeping original",
			zap.String("user_id", user.ID),
			zap.String("file", name),
			zap.Error(err),
		)
	}

	info, err := os.Stat(tmpPath)
	if err == nil {
		size = info.Size()
	}

	avatarURL := AvatarURLPrefix + name
	if err := s.users.UpdateAvatar(ctx, user.ID, avatarURL); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotAuthorized
		}
		return "", err
	}

	if err := s.relocate(ctx, tmpPath, name, size, kind.contentType); err != nil {
		if rbErr := s.users.UpdateAvatar(ctx, user.ID, user.AvatarURL); rbErr != nil {
			s.logger.Error("restore previous avatar failed",
				zap.String("user_id", user.ID),
				zap.Error(rbErr),
			)
		}
		return "", fmt.Errorf("store avatar: %w", err)
	}

	s.removePrevious(ctx, user)
	user.AvatarURL = avatarURL
	return avatarURL, nil
}

// Open streams a stored avatar by its file name.
func (s *AvatarService) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	if !IsAvatarName(name) {
		return nil, "", store.ErrNotFound
	}
	rc, err := s.objects.Get(ctx, AvatarKeyPrefix+name)
	if err != nil {
		return nil, "", err
	}
	contentType, _ := contentTypeByExt(filepath.Ext(name))
	return rc, contentType, nil
}

func (s *AvatarService) relocate(ctx context.Context, path, name string, size int64, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return s.objects.Put(ctx, AvatarKeyPrefix+name, f, size, contentType)
}

func (s *AvatarService) removePrevious(ctx context.Context, user *types.User) {
	previous := strings.TrimPrefix(user.AvatarURL, AvatarURLPrefix)
	if previous == user.AvatarURL || !IsAvatarName(previous) {
		return
	}
	if err := s.objects.Delete(ctx, AvatarKeyPrefix+previous); err != nil {
		s.logger.Warn("delete previous avatar failed",
			zap.String("user_id", user.ID),
			zap.String("file", previous),
			zap.Error(err),
		)
	}
}

// IsAvatarName reports whether name looks like a generated avatar file name:
// a uuid followed by .png, .jpg or .gif.
func IsAvatarName(name string) bool {
	ext := filepath.Ext(name)
	if _, ok := contentTypeByExt(ext); !ok {
		return false
	}
	base := strings.TrimSuffix(name, ext)
	_, err := uuid.Parse(base)
	return err == nil && len(base) == 36
}

func writeTempFile(path string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return n, err
}
