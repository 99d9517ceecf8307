package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artcontest/judging-system/storage"
)

type fakeUploader struct {
	mu       sync.Mutex
	objects  map[string]bool
	failNext bool
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string]bool)}
}

func (u *fakeUploader) Upload(_ context.Context, key, _ string, _ io.Reader) (*storage.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failNext {
		u.failNext = false
		return nil, errors.New("bucket unavailable")
	}
	u.objects[key] = true
	return &storage.UploadResult{Key: key, Location: "https://img.example.com/" + key}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://img.example.com/" + key
}

func (u *fakeUploader) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.objects)
}

type entryTestEnv struct {
	svc      EntryService
	entries  *fakeEntryRepo
	uploader *fakeUploader
}

func newEntryTestEnv(t *testing.T) *entryTestEnv {
	t.Helper()
	env := &entryTestEnv{
		entries:  newFakeEntryRepo(),
		uploader: newFakeUploader(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.svc = NewEntryService(env.entries, newFakeContestRepo(), env.uploader, logger)
	return env
}

func jpegUpload() *ImageUpload {
	return &ImageUpload{
		Reader:      strings.NewReader("jpeg bytes"),
		ContentType: "image/jpeg",
		Size:        10,
	}
}

func TestCreateEntry(t *testing.T) {
	env := newEntryTestEnv(t)

	statement := "Mixed media on canvas."
	entry, err := env.svc.Create(context.Background(), CreateEntryInput{
		AgeCategoryID:   3,
		ParticipantName: "Ada",
		ParticipantAge:  30,
		ArtistStatement: &statement,
		FrontImage:      jpegUpload(),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, entry.EntryNumber)
	assert.Contains(t, entry.FrontImageURL, "https://img.example.com/entries/")
	assert.Nil(t, entry.BackImageURL)
	assert.Equal(t, 1, env.uploader.count())
}

func TestCreateEntryAssignsSequentialNumbers(t *testing.T) {
	env := newEntryTestEnv(t)

	for want := 1; want <= 3; want++ {
		entry, err := env.svc.Create(context.Background(), CreateEntryInput{
			AgeCategoryID:   3,
			ParticipantName: "Ada",
			ParticipantAge:  30,
			FrontImage:      jpegUpload(),
		})
		require.NoError(t, err)
		assert.Equal(t, want, entry.EntryNumber)
	}
}

func TestCreateEntryWithBackImage(t *testing.T) {
	env := newEntryTestEnv(t)

	entry, err := env.svc.Create(context.Background(), CreateEntryInput{
		AgeCategoryID:   3,
		ParticipantName: "Ada",
		ParticipantAge:  30,
		FrontImage:      jpegUpload(),
		BackImage: &ImageUpload{
			Reader:      strings.NewReader("png bytes"),
			ContentType: "image/png",
			Size:        10,
		},
	})
	require.NoError(t, err)

	require.NotNil(t, entry.BackImageURL)
	assert.Equal(t, 2, env.uploader.count())
}

func TestCreateEntryValidation(t *testing.T) {
	env := newEntryTestEnv(t)

	tests := []struct {
		name  string
		input CreateEntryInput
		want  error
	}{
		{"missing name", CreateEntryInput{AgeCategoryID: 3, ParticipantAge: 30, FrontImage: jpegUpload()}, ErrValidationFailed},
		{"missing front image", CreateEntryInput{AgeCategoryID: 3, ParticipantName: "Ada", ParticipantAge: 30}, ErrFrontImageRequired},
		{"unknown category", CreateEntryInput{AgeCategoryID: 42, ParticipantName: "Ada", ParticipantAge: 30, FrontImage: jpegUpload()}, ErrValidationFailed},
		{"age outside category", CreateEntryInput{AgeCategoryID: 1, ParticipantName: "Ada", ParticipantAge: 30, FrontImage: jpegUpload()}, ErrAgeCategoryMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Create(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, 0, env.uploader.count())
}

func TestCreateEntryRejectsBadImages(t *testing.T) {
	env := newEntryTestEnv(t)

	_, err := env.svc.Create(context.Background(), CreateEntryInput{
		AgeCategoryID:   3,
		ParticipantName: "Ada",
		ParticipantAge:  30,
		FrontImage: &ImageUpload{
			Reader:      strings.NewReader("gif bytes"),
			ContentType: "image/gif",
			Size:        10,
		},
	})
	assert.ErrorIs(t, err, ErrImageTypeUnsupported)

	_, err = env.svc.Create(context.Background(), CreateEntryInput{
		AgeCategoryID:   3,
		ParticipantName: "Ada",
		ParticipantAge:  30,
		FrontImage: &ImageUpload{
			Reader:      strings.NewReader("huge"),
			ContentType: "image/jpeg",
			Size:        MaxImageSize + 1,
		},
	})
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestCreateEntryCleansUpFrontWhenBackUploadFails(t *testing.T) {
	env := newEntryTestEnv(t)

	_, err := env.svc.Create(context.Background(), CreateEntryInput{
		AgeCategoryID:   3,
		ParticipantName: "Ada",
		ParticipantAge:  30,
		FrontImage:      jpegUpload(),
		BackImage: &ImageUpload{
			Reader:      strings.NewReader("bad"),
			ContentType: "image/gif",
			Size:        10,
		},
	})
	assert.ErrorIs(t, err, ErrImageTypeUnsupported)
	assert.Equal(t, 0, env.uploader.count(), "front image must be removed when the back image is rejected")
}

func TestDeleteEntryRemovesImages(t *testing.T) {
	env := newEntryTestEnv(t)

	entry, err := env.svc.Create(context.Background(), CreateEntryInput{
		AgeCategoryID:   3,
		ParticipantName: "Ada",
		ParticipantAge:  30,
		FrontImage:      jpegUpload(),
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(context.Background(), entry.ID))

	_, err = env.svc.GetByID(context.Background(), entry.ID)
	assert.ErrorIs(t, err, ErrEntryNotFound)
	assert.Equal(t, 0, env.uploader.count())
}

func TestDeleteEntryUnknown(t *testing.T) {
	env := newEntryTestEnv(t)

	assert.ErrorIs(t, env.svc.Delete(context.Background(), 42), ErrEntryNotFound)
}

func TestListActiveContestResolvesURLs(t *testing.T) {
	env := newEntryTestEnv(t)

	_, err := env.svc.Create(context.Background(), CreateEntryInput{
		AgeCategoryID:   3,
		ParticipantName: "Ada",
		ParticipantAge:  30,
		FrontImage:      jpegUpload(),
	})
	require.NoError(t, err)

	entries, err := env.svc.ListActiveContest(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].FrontImageURL, "https://img.example.com/")
}
