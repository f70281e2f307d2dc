package survey

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/candybooth/internal/layers"
	"github.com/ayusman/candybooth/internal/storage"
	"github.com/ayusman/candybooth/internal/store"
	"github.com/ayusman/candybooth/testdata"
)

type fixture struct {
	svc       *Service
	store     *store.Store
	generated *storage.MockStore
	photos    *storage.MockStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	f := &fixture{
		store:     s,
		generated: storage.NewMockStore("https://cdn.test/apple-candy-images"),
		photos:    storage.NewMockStore("https://cdn.test/purikura-photos"),
	}

	tick := time.UnixMilli(1700000000000)
	f.svc = New(Config{
		Results:   s.Results(),
		Resolver:  layers.NewResolver(testdata.LayerFS()),
		Generated: f.generated,
		Photos:    f.photos,
		Now: func() time.Time {
			tick = tick.Add(time.Millisecond)
			return tick
		},
	})
	return f
}

func (f *fixture) newResult(t *testing.T) int64 {
	t.Helper()
	res, err := f.store.Results().Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return res.ID
}

func TestSubmit_ChildScenario(t *testing.T) {
	f := newFixture(t)
	id := f.newResult(t)

	out, err := f.svc.Submit(context.Background(), Submission{
		ResultID:       id,
		Answers:        []int64{3, 11, 27},
		TotalQuestions: 3,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if out.ResultID != id {
		t.Errorf("ResultID = %d, want %d", out.ResultID, id)
	}
	if out.SameCount != 1 || out.PastCount != 0 || out.DuplicateRank() != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/0/1", out.SameCount, out.PastCount, out.DuplicateRank())
	}
	if !strings.HasPrefix(out.GeneratedImageURL, "https://cdn.test/apple-candy-images/generated/child/") ||
		!strings.HasSuffix(out.GeneratedImageURL, ".png") {
		t.Errorf("unexpected url: %s", out.GeneratedImageURL)
	}

	res, err := f.store.Results().GetByID(id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !reflect.DeepEqual(res.Answers, []int64{3, 11, 27}) {
		t.Errorf("stored answers = %v", res.Answers)
	}
	if res.GeneratedImageURL != out.GeneratedImageURL {
		t.Errorf("stored url = %s", res.GeneratedImageURL)
	}

	opts, ok := f.generated.Options(res.GeneratedImageKey)
	if !ok {
		t.Fatalf("no object at %s", res.GeneratedImageKey)
	}
	if opts.ContentType != "image/png" || opts.CacheControl != "31536000" {
		t.Errorf("unexpected upload options: %+v", opts)
	}

	data, err := f.svc.GeneratedImage(context.Background(), res)
	if err != nil {
		t.Fatalf("GeneratedImage() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("uploaded object is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Errorf("composite size = %v, want 8x8 from the base layer", img.Bounds())
	}
	// shaft layer is centred on the base
	r, g, b, _ := img.At(4, 4).RGBA()
	if r != 0 || g != 0 || b != 0xffff {
		t.Errorf("centre pixel = %d,%d,%d, want blue", r, g, b)
	}
	r, _, _, _ = img.At(0, 0).RGBA()
	if r != 0xffff {
		t.Error("corner pixel should keep the red base")
	}
}

func TestSubmit_DuplicateRankIncrements(t *testing.T) {
	f := newFixture(t)
	answers := []int64{3, 11, 27}

	for want := 1; want <= 3; want++ {
		out, err := f.svc.Submit(context.Background(), Submission{ResultID: f.newResult(t), Answers: answers})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if out.DuplicateRank() != want || out.PastCount != want-1 {
			t.Errorf("submission %d: rank %d past %d", want, out.DuplicateRank(), out.PastCount)
		}
	}

	if f.generated.Len() != 3 {
		t.Errorf("expected 3 distinct objects, got %d", f.generated.Len())
	}
}

func TestSubmit_DifferentOrderIsDifferentCandy(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Submit(context.Background(), Submission{ResultID: f.newResult(t), Answers: []int64{3, 11, 27}}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	out, err := f.svc.Submit(context.Background(), Submission{ResultID: f.newResult(t), Answers: []int64{27, 11, 3}})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if out.SameCount != 1 {
		t.Errorf("SameCount = %d, want 1", out.SameCount)
	}
}

func TestSubmit_AdultMode(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.Submit(context.Background(), Submission{
		ResultID: f.newResult(t),
		Answers:  []int64{45, 40},
		IsAdult:  true,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !strings.Contains(out.GeneratedImageURL, "/generated/adult/") {
		t.Errorf("unexpected url: %s", out.GeneratedImageURL)
	}
}

func TestSubmit_NoLayers(t *testing.T) {
	f := newFixture(t)
	id := f.newResult(t)

	_, err := f.svc.Submit(context.Background(), Submission{ResultID: id, Answers: []int64{99, 100}})
	if !errors.Is(err, layers.ErrNoLayers) {
		t.Fatalf("expected ErrNoLayers, got %v", err)
	}

	if f.generated.Len() != 0 {
		t.Error("nothing should be uploaded")
	}
	res, _ := f.store.Results().GetByID(id)
	if res.HasAnswers() || res.GeneratedImageURL != "" {
		t.Error("result should be untouched")
	}
}

func TestSubmit_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		sub  Submission
		want error
	}{
		{"zero id", Submission{ResultID: 0, Answers: []int64{3}}, ErrInvalidSubmission},
		{"nil answers", Submission{ResultID: 1}, ErrInvalidSubmission},
		{"unknown result", Submission{ResultID: 404, Answers: []int64{3}}, store.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Submit(context.Background(), tt.sub); !errors.Is(err, tt.want) {
				t.Errorf("Submit() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubmit_UploadFailureLeavesResult(t *testing.T) {
	f := newFixture(t)
	id := f.newResult(t)
	boom := errors.New("bucket down")
	f.generated.SetPutError(boom)

	if _, err := f.svc.Submit(context.Background(), Submission{ResultID: id, Answers: []int64{3}}); !errors.Is(err, boom) {
		t.Fatalf("expected upload error, got %v", err)
	}

	res, _ := f.store.Results().GetByID(id)
	if res.HasAnswers() {
		t.Error("answers should not be stored after a failed upload")
	}
}

func TestPhotoKey(t *testing.T) {
	got := PhotoKey(12, time.UnixMilli(1700000000123))
	if got != "results/12/photo-1700000000123.png" {
		t.Errorf("PhotoKey = %s", got)
	}
}

func TestSavePhoto(t *testing.T) {
	f := newFixture(t)
	id := f.newResult(t)

	url, err := f.svc.SavePhoto(context.Background(), id, "", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("SavePhoto() error = %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.test/purikura-photos/results/") {
		t.Errorf("unexpected url: %s", url)
	}

	res, _ := f.store.Results().GetByID(id)
	if res.PhotoURL != url {
		t.Errorf("stored photo url = %s", res.PhotoURL)
	}
	opts, _ := f.photos.Options(res.PhotoKey)
	if opts.ContentType != "image/png" {
		t.Errorf("default content type = %q", opts.ContentType)
	}

	data, err := f.svc.Photo(context.Background(), res)
	if err != nil || string(data) != "png-bytes" {
		t.Errorf("Photo() = %q, %v", data, err)
	}
}

func TestSavePhoto_Errors(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.SavePhoto(context.Background(), 404, "image/png", []byte("x")); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown result: got %v", err)
	}
	if _, err := f.svc.SavePhoto(context.Background(), f.newResult(t), "image/png", nil); !errors.Is(err, ErrInvalidSubmission) {
		t.Errorf("empty photo: got %v", err)
	}
	if f.photos.Len() != 0 {
		t.Error("nothing should be uploaded")
	}
}

func TestStoredObjects_Missing(t *testing.T) {
	f := newFixture(t)
	res := &store.Result{ID: 1}

	if _, err := f.svc.Photo(context.Background(), res); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Errorf("Photo() error = %v", err)
	}
	if _, err := f.svc.GeneratedImage(context.Background(), res); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Errorf("GeneratedImage() error = %v", err)
	}
}
