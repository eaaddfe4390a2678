package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/franckalain/foodmonster/internal/database"
	"github.com/franckalain/foodmonster/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type stubRecognizer struct {
	result models.RecognitionResult
	delay  time.Duration
	calls  atomic.Int32
}

func (r *stubRecognizer) Recognize(ctx context.Context, imagePath string) models.RecognitionResult {
	r.calls.Add(1)
	if _, err := os.Stat(imagePath); err != nil {
		return models.Failed(models.KindRecognitionTransport, err.Error(), "")
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return r.result
}

type fixture struct {
	svc        *Service
	repo       *database.Repository
	images     *DiskImages
	recognizer *stubRecognizer
	metaPath   string
}

func newFixture(t *testing.T, result models.RecognitionResult, opts ...Option) *fixture {
	t.Helper()
	dir := t.TempDir()
	images, err := NewDiskImages(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatal(err)
	}
	metaPath := filepath.Join(dir, "uploads", "metadata.json")
	backend, err := database.NewJSONFileBackend(metaPath)
	if err != nil {
		t.Fatal(err)
	}
	repo := database.NewRepository(backend, zap.NewNop())
	t.Cleanup(func() { repo.Close() })

	rec := &stubRecognizer{result: result}
	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	return &fixture{
		svc:        NewService(images, rec, repo, opts...),
		repo:       repo,
		images:     images,
		recognizer: rec,
		metaPath:   metaPath,
	}
}

func appleResult() models.RecognitionResult {
	return models.Succeeded(models.Recognition{
		FoodName:         "apple",
		EstimatedWeightG: 150,
		TotalNutrition:   models.NutritionVector{Calories: 78},
	})
}

func TestHandleUpload(t *testing.T) {
	at := time.Date(2024, 1, 2, 13, 4, 5, 123456789, time.Local)
	f := newFixture(t, appleResult(), WithClock(func() time.Time { return at }))
	ctx := context.Background()

	up, err := f.svc.HandleUpload(ctx, []byte("jpegdata"), "lunch.JPG", "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if up.Filename != "20240102_130405_123456.JPG" {
		t.Errorf("filename: %s", up.Filename)
	}
	if up.Record.UploadDate != "2024-01-02" || up.Record.FileSize != 8 || up.Record.OriginalName != "lunch.JPG" {
		t.Errorf("record: %+v", up.Record)
	}

	data, err := os.ReadFile(filepath.Join(f.images.Dir(), up.Filename))
	if err != nil || string(data) != "jpegdata" {
		t.Errorf("image not stored: %q, %v", data, err)
	}

	rec, ok, err := f.svc.Get(ctx, up.Filename)
	if err != nil || !ok {
		t.Fatalf("record not persisted: %v", err)
	}
	if !rec.Recognition.OK() || rec.Recognition.Success.FoodName != "apple" {
		t.Errorf("recognition: %+v", rec.Recognition)
	}
}

func TestHandleUpload_RejectsNonImage(t *testing.T) {
	f := newFixture(t, appleResult())
	if _, err := f.repo.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(f.metaPath)
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.HandleUpload(context.Background(), []byte("hello"), "notes.txt", "text/plain")
	if !errors.Is(err, models.ErrInvalidContentType) {
		t.Fatalf("expected ErrInvalidContentType, got %v", err)
	}

	entries, _ := os.ReadDir(f.images.Dir())
	for _, e := range entries {
		if e.Name() != "metadata.json" {
			t.Errorf("unexpected file written: %s", e.Name())
		}
	}
	after, _ := os.ReadFile(f.metaPath)
	if string(before) != string(after) {
		t.Error("store was modified")
	}
	if f.recognizer.calls.Load() != 0 {
		t.Error("recognizer was called")
	}
}

func TestHandleUpload_FailedRecognitionIsStored(t *testing.T) {
	f := newFixture(t, models.Failed(models.KindNoFood, "no food detected", ""))

	up, err := f.svc.HandleUpload(context.Background(), []byte("png"), "desk.png", "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if up.Record.Recognition.OK() {
		t.Fatal("expected failure variant")
	}
	store, err := f.repo.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	got, ok := store[up.Filename]
	if !ok || got.Recognition.Failure == nil || got.Recognition.Failure.Error != "no food detected" {
		t.Errorf("stored record: %+v", got)
	}
}

func TestHandleUpload_CollisionIsAnError(t *testing.T) {
	at := time.Date(2024, 1, 2, 13, 4, 5, 0, time.Local)
	f := newFixture(t, appleResult(), WithClock(func() time.Time { return at }))
	ctx := context.Background()

	if _, err := f.svc.HandleUpload(ctx, []byte("one"), "a.jpg", "image/jpeg"); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.HandleUpload(ctx, []byte("two"), "b.jpg", "image/jpeg")
	if !errors.Is(err, models.ErrStoreIO) {
		t.Fatalf("expected ErrStoreIO, got %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(f.images.Dir(), "20240102_130405_000000.jpg"))
	if string(data) != "one" {
		t.Errorf("first image overwritten: %q", data)
	}
}

func TestHandleUpload_Concurrent(t *testing.T) {
	f := newFixture(t, appleResult(), WithIDGenerator(TimestampUUIDIDs{}))
	f.recognizer.delay = 10 * time.Millisecond

	const n = 25
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			_, err := f.svc.HandleUpload(ctx, []byte(fmt.Sprint(i)), fmt.Sprintf("meal%d.jpg", i), "image/jpeg")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	uploads, err := f.svc.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(uploads) != n {
		t.Errorf("lost updates: got %d records, want %d", len(uploads), n)
	}
	for i := 1; i < len(uploads); i++ {
		if uploads[i].Record.UploadTime.Before(uploads[i-1].Record.UploadTime) {
			t.Fatal("list not ordered by upload time")
		}
	}
}

func TestImagePath(t *testing.T) {
	f := newFixture(t, appleResult())
	ctx := context.Background()
	up, err := f.svc.HandleUpload(ctx, []byte("x"), "a.jpg", "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}

	if p, _, ok, err := f.svc.ImagePath(ctx, up.Filename); err != nil || !ok || filepath.Base(p) != up.Filename {
		t.Errorf("got %q, %v, %v", p, ok, err)
	}
	if _, _, ok, _ := f.svc.ImagePath(ctx, "metadata.json"); ok {
		t.Error("files outside the store must not resolve")
	}
	if _, _, ok, _ := f.svc.ImagePath(ctx, "../etc/passwd"); ok {
		t.Error("traversal must not resolve")
	}
}

func TestIDGenerators(t *testing.T) {
	at := time.Date(2023, 12, 31, 23, 59, 59, 999999000, time.UTC)
	if got := (TimestampIDs{}).NewID(at, "photo.jpeg"); got != "20231231_235959_999999.jpeg" {
		t.Errorf("timestamp: %s", got)
	}
	if got := (TimestampIDs{}).NewID(at, "noext"); got != "20231231_235959_999999" {
		t.Errorf("no extension: %s", got)
	}
	if got := (TimestampIDs{}).NewID(at, `..\..\evil.png`); got != "20231231_235959_999999.png" {
		t.Errorf("path in name: %s", got)
	}

	re := regexp.MustCompile(`^20231231_235959_999999_[0-9a-f]{12}\.png$`)
	a, b := (TimestampUUIDIDs{}).NewID(at, "x.png"), (TimestampUUIDIDs{}).NewID(at, "x.png")
	if !re.MatchString(a) || a == b {
		t.Errorf("uuid ids: %s %s", a, b)
	}

	if _, err := NewIDGenerator("counter"); err == nil || !strings.Contains(err.Error(), "counter") {
		t.Errorf("got %v", err)
	}
}

func TestDiskImages_Path(t *testing.T) {
	images, err := NewDiskImages(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, bad := range []string{"", ".", "..", "../x.jpg", "a/b.jpg", `a\b.jpg`} {
		if _, err := images.Path(bad); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("%q: expected ErrInvalidPath, got %v", bad, err)
		}
	}
}
