package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lineaapp/linea/internal/metrics"
	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/repository"
	"github.com/lineaapp/linea/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mediaFixture struct {
	svc   *MediaService
	files repository.FileRepository
	root  string
	user  *model.User
}

func setupMedia(t *testing.T, store storage.Storage, cfg MediaConfig) *mediaFixture {
	t.Helper()

	conn := setupTestDB(t)
	users := repository.NewUserRepository(conn)
	files := repository.NewFileRepository(conn)
	user := createUser(t, users, "u1", "marie@example.com")

	root := t.TempDir()
	if store == nil {
		local, err := storage.NewLocalStorage(root, "http://localhost:8090/uploads")
		require.NoError(t, err)
		store = local
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "media"
	}

	return &mediaFixture{
		svc:   NewMediaService(files, store, metrics.NewCollector("test"), cfg),
		files: files,
		root:  root,
		user:  user,
	}
}

// failingStorage rejects uploads whose path contains fail.
type failingStorage struct {
	mu      sync.Mutex
	fail    string
	deleted []string
}

func (s *failingStorage) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	if s.fail != "" && strings.Contains(path, s.fail) {
		return "", storage.ErrUnavailable
	}
	return "https://cdn.example.com/" + bucket + "/" + path, nil
}

func (s *failingStorage) Delete(ctx context.Context, bucket, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, path)
	return nil
}

func TestMediaServiceUploadPhoto(t *testing.T) {
	f := setupMedia(t, nil, MediaConfig{})

	res, err := f.svc.Upload(context.Background(), f.user, "evt-1", []MediaUpload{
		{Filename: "plage.png", Data: testPNG(t, 600, 300)},
	})
	require.NoError(t, err)
	require.Empty(t, res.Failed)
	require.Len(t, res.Media, 1)

	m := res.Media[0]
	assert.Equal(t, model.MediaTypePhoto, m.Type)
	assert.Equal(t, "evt-1", m.EventID)
	assert.True(t, strings.HasPrefix(m.FileURL, "http://localhost:8090/uploads/media/users/u1/events/evt-1/media-"))
	assert.True(t, strings.HasSuffix(m.FileURL, ".png"))
	assert.True(t, strings.HasSuffix(m.ThumbnailURL, "_thumb.jpg"))
	assert.NotEmpty(t, m.BlurHash)

	files, err := f.files.Files(model.OwnerTypeEvent, "evt-1")
	require.NoError(t, err)
	assert.Len(t, files, 2, "original and thumbnail are recorded")

	stored, err := os.ReadDir(filepath.Join(f.root, "media", "users", "u1", "events", "evt-1"))
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestMediaServiceUploadReportsFailuresPerFile(t *testing.T) {
	f := setupMedia(t, nil, MediaConfig{Concurrency: 3})

	res, err := f.svc.Upload(context.Background(), f.user, "evt-1", []MediaUpload{
		{Filename: "a.png", Data: testPNG(t, 10, 10)},
		{Filename: "notes.txt", Data: []byte("pas une image")},
		{Filename: "b.png", Data: testPNG(t, 20, 20)},
		{Filename: "vide.jpg", Data: nil},
	})
	require.NoError(t, err)

	require.Len(t, res.Media, 2)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, "notes.txt", res.Failed[0].Filename)
	assert.Equal(t, "Format de fichier non pris en charge", res.Failed[0].Error)
	assert.Equal(t, "vide.jpg", res.Failed[1].Filename)
	assert.Equal(t, "Fichier vide", res.Failed[1].Error)
}

func TestMediaServiceQuota(t *testing.T) {
	img := testPNG(t, 40, 40)
	f := setupMedia(t, &failingStorage{}, MediaConfig{QuotaFree: int64(len(img)) + 10, QuotaPremium: 1 << 30})

	res, err := f.svc.Upload(context.Background(), f.user, "evt-1", []MediaUpload{
		{Filename: "1.png", Data: img},
		{Filename: "2.png", Data: img},
	})
	require.NoError(t, err)
	assert.Len(t, res.Media, 1)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "Espace de stockage insuffisant", res.Failed[0].Error)

	usage, err := f.svc.Usage(f.user)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, usage.Used, int64(len(img)))
	assert.LessOrEqual(t, usage.Used, usage.Quota)
	assert.Equal(t, int64(len(img))+10, usage.Quota)

	premium := *f.user
	premium.SubscriptionStatus = model.SubscriptionStatusPremium
	usage, err = f.svc.Usage(&premium)
	require.NoError(t, err)
	assert.Equal(t, int64(1<<30), usage.Quota)
}

func TestMediaServiceStorageUnavailable(t *testing.T) {
	f := setupMedia(t, &failingStorage{fail: "events"}, MediaConfig{})

	res, err := f.svc.Upload(context.Background(), f.user, "evt-1", []MediaUpload{
		{Filename: "a.png", Data: testPNG(t, 10, 10)},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Media)
	require.Len(t, res.Failed, 1)
	assert.Contains(t, res.Failed[0].Error, "indisponible")

	total, err := f.files.TotalSize(f.user.ID)
	require.NoError(t, err)
	assert.Zero(t, total, "failed uploads are not counted")
}

func TestMediaServiceDiscardEvent(t *testing.T) {
	store := &failingStorage{}
	f := setupMedia(t, store, MediaConfig{})

	_, err := f.svc.Upload(context.Background(), f.user, "evt-1", []MediaUpload{
		{Filename: "a.png", Data: testPNG(t, 10, 10)},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DiscardEvent(context.Background(), f.user.ID, "evt-1"))

	files, err := f.files.Files(model.OwnerTypeEvent, "evt-1")
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Len(t, store.deleted, 2)

	require.NoError(t, f.svc.DiscardEvent(context.Background(), f.user.ID, "evt-1"))
}

func TestMediaServiceDeleteAllUserFiles(t *testing.T) {
	store := &failingStorage{}
	f := setupMedia(t, store, MediaConfig{})

	for _, evt := range []string{"evt-1", "evt-2"} {
		_, err := f.svc.Upload(context.Background(), f.user, evt, []MediaUpload{
			{Filename: "a.png", Data: testPNG(t, 10, 10)},
		})
		require.NoError(t, err)
	}

	require.NoError(t, f.svc.DeleteAllUserFiles(context.Background(), f.user.ID))
	assert.Len(t, store.deleted, 4)
}

func TestMediaServiceThumbnailCountsTowardQuota(t *testing.T) {
	img := testPNG(t, 200, 120)
	f := setupMedia(t, nil, MediaConfig{QuotaFree: int64(len(img))})

	res, err := f.svc.Upload(context.Background(), f.user, "evt-1", []MediaUpload{
		{Filename: "plage.png", Data: img},
	})
	require.NoError(t, err)
	require.Empty(t, res.Failed)
	require.Len(t, res.Media, 1)
	assert.Empty(t, res.Media[0].ThumbnailURL, "no room left for the thumbnail")
	assert.NotEmpty(t, res.Media[0].BlurHash)

	files, err := f.files.Files(model.OwnerTypeEvent, "evt-1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, model.FileTypeMedia, files[0].Type)

	usage, err := f.svc.Usage(f.user)
	require.NoError(t, err)
	assert.Equal(t, int64(len(img)), usage.Used)
	assert.Zero(t, usage.Remaining)
}

func TestMediaServiceDiscardBefore(t *testing.T) {
	store := &failingStorage{}
	f := setupMedia(t, store, MediaConfig{})
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, f.user, "evt-old", []MediaUpload{
		{Filename: "a.png", Data: testPNG(t, 10, 10)},
	})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	cutoff := time.Now()
	time.Sleep(5 * time.Millisecond)

	_, err = f.svc.Upload(ctx, f.user, "evt-new", []MediaUpload{
		{Filename: "b.png", Data: testPNG(t, 10, 10)},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DiscardBefore(ctx, f.user.ID, cutoff))

	old, err := f.files.Files(model.OwnerTypeEvent, "evt-old")
	require.NoError(t, err)
	assert.Empty(t, old)

	kept, err := f.files.Files(model.OwnerTypeEvent, "evt-new")
	require.NoError(t, err)
	assert.Len(t, kept, 2, "files stored after the cutoff stay")

	require.Len(t, store.deleted, 2)
	for _, p := range store.deleted {
		assert.Contains(t, p, "evt-old")
	}

	require.NoError(t, f.svc.DiscardBefore(ctx, f.user.ID, cutoff))
	assert.Len(t, store.deleted, 2)
}
