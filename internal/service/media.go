package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lineaapp/linea/internal/id"
	"github.com/lineaapp/linea/internal/media"
	"github.com/lineaapp/linea/internal/metrics"
	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/repository"
	"github.com/lineaapp/linea/internal/storage"
	"github.com/lineaapp/linea/internal/validation"
	"golang.org/x/sync/errgroup"
)

var ErrQuotaExceeded = errors.New("storage quota exceeded")

// MediaUpload is one file received from the client.
type MediaUpload struct {
	Filename string
	Data     []byte
}

// UploadFailure tells the client which file was left out and why.
type UploadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

type UploadResult struct {
	Media  []model.Media   `json:"media"`
	Failed []UploadFailure `json:"failed"`
}

type StorageUsage struct {
	Used      int64 `json:"used"`
	Quota     int64 `json:"quota"`
	Remaining int64 `json:"remaining"`
}

type MediaConfig struct {
	Bucket       string
	Concurrency  int
	QuotaFree    int64
	QuotaPremium int64
}

type MediaService struct {
	files   repository.FileRepository
	storage storage.Storage
	metrics *metrics.Collector
	cfg     MediaConfig
}

func NewMediaService(files repository.FileRepository, store storage.Storage, m *metrics.Collector, cfg MediaConfig) *MediaService {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.QuotaFree == 0 {
		cfg.QuotaFree = model.StorageQuotaFree
	}
	if cfg.QuotaPremium == 0 {
		cfg.QuotaPremium = model.StorageQuotaPremium
	}
	return &MediaService{files: files, storage: store, metrics: m, cfg: cfg}
}

func (s *MediaService) quota(user *model.User) int64 {
	if user.IsPremium() {
		return s.cfg.QuotaPremium
	}
	return s.cfg.QuotaFree
}

func (s *MediaService) Usage(user *model.User) (*StorageUsage, error) {
	used, err := s.files.TotalSize(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute storage usage: %w", err)
	}
	quota := s.quota(user)
	return &StorageUsage{Used: used, Quota: quota, Remaining: max(quota-used, 0)}, nil
}

// Upload stores each file for the event. Files that fail are reported in
// Failed and left out of Media, which keeps the input order.
func (s *MediaService) Upload(ctx context.Context, user *model.User, eventID string, uploads []MediaUpload) (*UploadResult, error) {
	usage, err := s.Usage(user)
	if err != nil {
		return nil, err
	}

	q := &quotaGuard{remaining: usage.Remaining}
	results := make([]*model.Media, len(uploads))
	failures := make([]*UploadFailure, len(uploads))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, up := range uploads {
		g.Go(func() error {
			m, err := s.uploadOne(ctx, user.ID, eventID, up, q)
			if err != nil {
				slog.Warn("media upload failed", "error", err, "user_id", user.ID, "event_id", eventID, "filename", up.Filename)
				failures[i] = &UploadFailure{Filename: up.Filename, Error: uploadErrorMessage(err)}
				return nil
			}
			results[i] = m
			return nil
		})
	}
	_ = g.Wait()

	res := &UploadResult{Media: []model.Media{}, Failed: []UploadFailure{}}
	for i := range uploads {
		if results[i] != nil {
			res.Media = append(res.Media, *results[i])
		}
		if failures[i] != nil {
			res.Failed = append(res.Failed, *failures[i])
		}
	}
	return res, nil
}

func (s *MediaService) uploadOne(ctx context.Context, userID, eventID string, up MediaUpload, q *quotaGuard) (*model.Media, error) {
	detected, err := validation.DetectMedia(up.Data)
	if err != nil {
		s.metrics.Upload("unknown", metrics.UploadRejected, 0)
		return nil, err
	}
	kind := string(detected.Type)

	size := int64(len(up.Data))
	if !q.reserve(size) {
		s.metrics.Upload(kind, metrics.UploadRejected, 0)
		return nil, ErrQuotaExceeded
	}

	mediaID := id.MustGenerate(id.PrefixMedia)
	dir := path.Join("users", userID, "events", eventID)
	name := mediaID + detected.Extension
	storagePath := path.Join(dir, name)

	url, err := s.storage.Upload(ctx, s.cfg.Bucket, storagePath, up.Data, detected.MimeType)
	if err != nil {
		q.release(size)
		s.metrics.Upload(kind, metrics.UploadFailed, 0)
		return nil, fmt.Errorf("failed to upload media: %w", err)
	}

	file := &model.File{
		ID:           uuid.New().String(),
		UserID:       userID,
		OwnerType:    model.OwnerTypeEvent,
		OwnerID:      eventID,
		Type:         model.FileTypeMedia,
		Filename:     name,
		OriginalName: up.Filename,
		MimeType:     detected.MimeType,
		Size:         size,
		StoragePath:  storagePath,
		URL:          url,
		CreatedAt:    time.Now().UTC(),
	}
	err = s.files.Create(file)
	if err != nil {
		q.release(size)
		s.removeObject(ctx, storagePath)
		s.metrics.Upload(kind, metrics.UploadFailed, 0)
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	s.metrics.Upload(kind, metrics.UploadSucceeded, size)

	m := &model.Media{
		ID:        mediaID,
		EventID:   eventID,
		Type:      detected.Type,
		FileURL:   url,
		FileID:    file.ID,
		CreatedAt: file.CreatedAt,
	}

	if detected.Type == model.MediaTypePhoto {
		s.attachPreview(ctx, userID, eventID, dir, m, up, q)
	}
	return m, nil
}

// attachPreview is best effort: the photo is kept without a preview on
// failure or when the thumbnail would not fit in the quota.
func (s *MediaService) attachPreview(ctx context.Context, userID, eventID, dir string, m *model.Media, up MediaUpload, q *quotaGuard) {
	preview, err := media.NewPreview(up.Data)
	if errors.Is(err, media.ErrUnsupportedImage) {
		return
	}
	if err != nil {
		slog.Warn("failed to build photo preview", "error", err, "media_id", m.ID)
		return
	}
	m.BlurHash = preview.BlurHash

	size := int64(len(preview.JPEG))
	if !q.reserve(size) {
		slog.Info("thumbnail skipped, quota reached", "media_id", m.ID, "size", size)
		return
	}

	name := m.ID + "_thumb.jpg"
	thumbPath := path.Join(dir, name)
	url, err := s.storage.Upload(ctx, s.cfg.Bucket, thumbPath, preview.JPEG, "image/jpeg")
	if err != nil {
		q.release(size)
		slog.Warn("failed to upload thumbnail", "error", err, "media_id", m.ID)
		return
	}

	err = s.files.Create(&model.File{
		ID:           uuid.New().String(),
		UserID:       userID,
		OwnerType:    model.OwnerTypeEvent,
		OwnerID:      eventID,
		Type:         model.FileTypeThumbnail,
		Filename:     name,
		OriginalName: up.Filename,
		MimeType:     "image/jpeg",
		Size:         size,
		StoragePath:  thumbPath,
		URL:          url,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("failed to record thumbnail", "error", err, "media_id", m.ID)
		q.release(size)
		s.removeObject(ctx, thumbPath)
		return
	}
	m.ThumbnailURL = url
}

// DiscardEvent removes every stored file of a deleted event.
func (s *MediaService) DiscardEvent(ctx context.Context, userID, eventID string) error {
	files, err := s.files.Files(model.OwnerTypeEvent, eventID)
	if err != nil {
		return fmt.Errorf("failed to list event files: %w", err)
	}

	var errs []error
	for _, f := range files {
		if f.UserID != userID {
			continue
		}
		errs = append(errs, s.deleteFile(ctx, f))
	}
	return errors.Join(errs...)
}

// DeleteAllUserFiles removes the user's objects from storage. Records go
// with the user row.
func (s *MediaService) DeleteAllUserFiles(ctx context.Context, userID string) error {
	files, err := s.files.AllUserFiles(userID)
	if err != nil {
		return fmt.Errorf("failed to list user files: %w", err)
	}

	var errs []error
	for _, f := range files {
		err := s.storage.Delete(ctx, s.cfg.Bucket, f.StoragePath)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", f.StoragePath, err))
		}
	}

	slog.Info("user files deleted from storage", "user_id", userID, "count", len(files), "failed", len(errs))
	return errors.Join(errs...)
}

// DiscardBefore removes the user's files created before cutoff, objects and
// records. Timelines live in memory, so a fresh session starts with no media
// and anything stored earlier belongs to no event.
func (s *MediaService) DiscardBefore(ctx context.Context, userID string, cutoff time.Time) error {
	files, err := s.files.AllUserFiles(userID)
	if err != nil {
		return fmt.Errorf("failed to list user files: %w", err)
	}

	var errs []error
	count := 0
	for _, f := range files {
		if !f.CreatedAt.Before(cutoff) {
			continue
		}
		count++
		errs = append(errs, s.deleteFile(ctx, f))
	}
	if count > 0 {
		slog.Info("orphaned files discarded", "user_id", userID, "count", count)
	}
	return errors.Join(errs...)
}

func (s *MediaService) deleteFile(ctx context.Context, f *model.File) error {
	err := s.storage.Delete(ctx, s.cfg.Bucket, f.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", f.StoragePath, err)
	}
	err = s.files.Delete(f.ID)
	if err != nil && !errors.Is(err, repository.ErrFileNotFound) {
		return fmt.Errorf("failed to delete file record: %w", err)
	}
	return nil
}

func (s *MediaService) removeObject(ctx context.Context, storagePath string) {
	err := s.storage.Delete(ctx, s.cfg.Bucket, storagePath)
	if err != nil {
		slog.Error("failed to delete file from storage during cleanup", "error", err, "path", storagePath)
	}
}

// quotaGuard shares the remaining quota between concurrent uploads.
type quotaGuard struct {
	mu        sync.Mutex
	remaining int64
}

func (q *quotaGuard) reserve(n int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > q.remaining {
		return false
	}
	q.remaining -= n
	return true
}

func (q *quotaGuard) release(n int64) {
	q.mu.Lock()
	q.remaining += n
	q.mu.Unlock()
}

// uploadErrorMessage is the user-facing reason for a failed file.
func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return "Espace de stockage insuffisant"
	case errors.Is(err, validation.ErrUnsupportedMedia):
		return "Format de fichier non pris en charge"
	case errors.Is(err, validation.ErrMediaTooLarge):
		return "Fichier trop volumineux"
	case errors.Is(err, validation.ErrEmptyMedia):
		return "Fichier vide"
	case errors.Is(err, storage.ErrUnavailable):
		return "Stockage momentanément indisponible, réessayez plus tard"
	default:
		return "Échec de l'envoi"
	}
}
