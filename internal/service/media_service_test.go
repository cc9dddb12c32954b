package service

import (
	"Warbler/internal/api/dto"
	"Warbler/internal/pkg/consts"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testMediaBase = "https://cdn.test/media/"

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeStorage) Upload(_ context.Context, objectName string, reader io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectName] = data
	f.types[objectName] = contentType
	return nil
}

func (f *fakeStorage) Delete(_ context.Context, objectName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectName)
	return nil
}

func (f *fakeStorage) PublicURL(objectName string) string {
	return testMediaBase + objectName
}

func (f *fakeStorage) ObjectName(url string) (string, bool) {
	if !strings.HasPrefix(url, testMediaBase) {
		return "", false
	}
	return strings.TrimPrefix(url, testMediaBase), true
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newMediaFixture(t *testing.T) (*MediaServiceImpl, *fakeStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	storage := newFakeStorage()
	svc := NewMediaService(storage, rdb).(*MediaServiceImpl)
	return svc, storage, mr
}

func TestUploadImageWithThumbnail(t *testing.T) {
	svc, storage, mr := newMediaFixture(t)
	data := pngBytes(t, 800, 600)

	res, err := svc.Upload(context.Background(), primitive.NewObjectID(), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Type != "image" || !strings.HasSuffix(res.URL, ".png") || res.Thumbnail == "" {
		t.Fatalf("result = %+v", res)
	}

	thumbName, _ := storage.ObjectName(res.Thumbnail)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(storage.objects[thumbName]))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if format != "jpeg" || cfg.Width != thumbnailWidth || cfg.Height != 300 {
		t.Errorf("thumbnail = %s %dx%d, want jpeg 400x300", format, cfg.Width, cfg.Height)
	}
	if storage.types[thumbName] != "image/jpeg" {
		t.Errorf("thumbnail content type = %s", storage.types[thumbName])
	}

	objectName, _ := storage.ObjectName(res.URL)
	raw := mr.HGet(consts.MediaTempKey, objectName)
	var temp dto.TempMedia
	if err = json.Unmarshal([]byte(raw), &temp); err != nil {
		t.Fatalf("temp entry %q: %v", raw, err)
	}
	if temp.ThumbnailName != thumbName {
		t.Errorf("temp thumbnail = %s, want %s", temp.ThumbnailName, thumbName)
	}
}

func TestUploadRejectsUnsupported(t *testing.T) {
	svc, _, _ := newMediaFixture(t)
	ctx := context.Background()
	text := []byte("just some plain text, definitely not media")

	if _, err := svc.Upload(ctx, primitive.NewObjectID(), bytes.NewReader(text), int64(len(text))); !errors.Is(err, ErrFileNotSupported) {
		t.Errorf("text upload err = %v", err)
	}
	if _, err := svc.Upload(ctx, primitive.NewObjectID(), bytes.NewReader(nil), 0); !errors.Is(err, ErrFileRequired) {
		t.Errorf("empty upload err = %v", err)
	}
	if _, err := svc.Upload(ctx, primitive.NewObjectID(), bytes.NewReader(nil), maxUploadSize+1); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("oversized upload err = %v", err)
	}

	disabled := NewMediaService(nil, nil)
	if _, err := disabled.Upload(ctx, primitive.NewObjectID(), bytes.NewReader(text), 1); !errors.Is(err, ErrMediaStorageDisabled) {
		t.Errorf("disabled storage err = %v", err)
	}
}

func TestClaimAndCleanup(t *testing.T) {
	svc, storage, mr := newMediaFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	data := pngBytes(t, 50, 50)
	kept, err := svc.Upload(ctx, primitive.NewObjectID(), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	orphan, err := svc.Upload(ctx, primitive.NewObjectID(), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	svc.Claim(ctx, []string{kept.URL, "https://elsewhere/x.png"})

	keptName, _ := storage.ObjectName(kept.URL)
	orphanName, _ := storage.ObjectName(orphan.URL)
	if mr.HGet(consts.MediaTempKey, keptName) != "" {
		t.Fatalf("claimed media still registered")
	}

	count, err := svc.CleanupExpired(ctx, time.Hour)
	if err != nil || count != 0 {
		t.Fatalf("fresh cleanup count=%d err=%v", count, err)
	}

	now = now.Add(2 * time.Hour)
	count, err = svc.CleanupExpired(ctx, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("cleaned = %d, want 1", count)
	}
	if _, ok := storage.objects[orphanName]; ok {
		t.Errorf("orphan object not deleted")
	}
	if _, ok := storage.objects[keptName]; !ok {
		t.Errorf("claimed object deleted")
	}
	orphanThumb, _ := storage.ObjectName(orphan.Thumbnail)
	if _, ok := storage.objects[orphanThumb]; ok {
		t.Errorf("orphan thumbnail not deleted")
	}
	if mr.HGet(consts.MediaTempKey, orphanName) != "" {
		t.Errorf("orphan entry not removed from registry")
	}
}
