package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/artcontest/judging-system/models"
	"github.com/artcontest/judging-system/repositories"
	"github.com/artcontest/judging-system/storage"
)

const MaxImageSize = 10 << 20 // 10 MB

// createEntryMaxAttempts bounds retries when concurrent submissions race
// for the same entry number.
const createEntryMaxAttempts = 3

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type ImageUpload struct {
	Reader      io.Reader
	ContentType string
	Size        int64
}

type CreateEntryInput struct {
	AgeCategoryID   int
	ParticipantName string
	ParticipantAge  int
	ArtistStatement *string
	FrontImage      *ImageUpload
	BackImage       *ImageUpload
}

type EntryService interface {
	Create(ctx context.Context, input CreateEntryInput) (*models.Entry, error)
	GetByID(ctx context.Context, id int) (*models.Entry, error)
	ListActiveContest(ctx context.Context) ([]models.Entry, error)
	Delete(ctx context.Context, id int) error
	ListContests(ctx context.Context) ([]models.Contest, error)
	ListAgeCategories(ctx context.Context) ([]models.AgeCategory, error)
}

type entryService struct {
	entryRepo   repositories.EntryRepository
	contestRepo repositories.ContestRepository
	uploader    storage.FileUploader
	logger      *slog.Logger
}

func NewEntryService(
	entryRepo repositories.EntryRepository,
	contestRepo repositories.ContestRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) EntryService {
	return &entryService{
		entryRepo:   entryRepo,
		contestRepo: contestRepo,
		uploader:    uploader,
		logger:      logger,
	}
}

func (s *entryService) Create(ctx context.Context, input CreateEntryInput) (*models.Entry, error) {
	if input.ParticipantName == "" || input.ParticipantAge <= 0 {
		return nil, ErrValidationFailed
	}
	if input.FrontImage == nil {
		return nil, ErrFrontImageRequired
	}

	contest, err := s.contestRepo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrContestNotFound) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to load active contest: %w", err)
	}

	category, err := s.contestRepo.GetAgeCategory(ctx, input.AgeCategoryID)
	if err != nil {
		if errors.Is(err, repositories.ErrAgeCategoryNotFound) {
			return nil, ErrValidationFailed
		}
		return nil, fmt.Errorf("failed to load age category: %w", err)
	}
	if input.ParticipantAge < category.MinAge || input.ParticipantAge > category.MaxAge {
		return nil, ErrAgeCategoryMismatch
	}

	frontKey, err := s.uploadImage(ctx, input.FrontImage)
	if err != nil {
		return nil, err
	}

	var backKey *string
	if input.BackImage != nil {
		key, err := s.uploadImage(ctx, input.BackImage)
		if err != nil {
			// The front image is already stored; remove it rather than
			// leaving an orphaned object.
			s.deleteImage(ctx, frontKey)
			return nil, err
		}
		backKey = &key
	}

	entry := &models.Entry{
		ContestID:       contest.ID,
		AgeCategoryID:   input.AgeCategoryID,
		FrontImageKey:   frontKey,
		BackImageKey:    backKey,
		ParticipantName: input.ParticipantName,
		ParticipantAge:  input.ParticipantAge,
		ArtistStatement: input.ArtistStatement,
	}

	for attempt := 0; attempt < createEntryMaxAttempts; attempt++ {
		err = s.entryRepo.Create(ctx, entry)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrEntryNumberConflict) {
			break
		}
	}
	if err != nil {
		s.deleteImage(ctx, frontKey)
		if backKey != nil {
			s.deleteImage(ctx, *backKey)
		}
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	s.resolveImageURLs(entry)
	return entry, nil
}

func (s *entryService) GetByID(ctx context.Context, id int) (*models.Entry, error) {
	entry, err := s.entryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrEntryNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	s.resolveImageURLs(entry)
	return entry, nil
}

func (s *entryService) ListActiveContest(ctx context.Context) ([]models.Entry, error) {
	contest, err := s.contestRepo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrContestNotFound) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to load active contest: %w", err)
	}

	entries, err := s.entryRepo.ListByContest(ctx, contest.ID)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		s.resolveImageURLs(&entries[i])
	}
	return entries, nil
}

func (s *entryService) Delete(ctx context.Context, id int) error {
	entry, err := s.entryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrEntryNotFound) {
			return ErrEntryNotFound
		}
		return err
	}

	if err := s.entryRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrEntryNotFound) {
			return ErrEntryNotFound
		}
		return err
	}

	// Object-store cleanup is best effort: the row is gone, a leaked
	// object only costs storage.
	s.deleteImage(ctx, entry.FrontImageKey)
	if entry.BackImageKey != nil {
		s.deleteImage(ctx, *entry.BackImageKey)
	}
	return nil
}

func (s *entryService) ListContests(ctx context.Context) ([]models.Contest, error) {
	return s.contestRepo.List(ctx)
}

func (s *entryService) ListAgeCategories(ctx context.Context) ([]models.AgeCategory, error) {
	return s.contestRepo.ListAgeCategories(ctx)
}

func (s *entryService) uploadImage(ctx context.Context, image *ImageUpload) (string, error) {
	ext, ok := imageExtensions[image.ContentType]
	if !ok {
		return "", ErrImageTypeUnsupported
	}
	if image.Size > MaxImageSize {
		return "", ErrImageTooLarge
	}

	key := fmt.Sprintf("entries/%s%s", uuid.NewString(), ext)
	result, err := s.uploader.Upload(ctx, key, image.ContentType, image.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return result.Key, nil
}

func (s *entryService) deleteImage(ctx context.Context, key string) {
	if err := s.uploader.Delete(ctx, key); err != nil {
		s.logger.Error("failed to delete stored image",
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
}

func (s *entryService) resolveImageURLs(entry *models.Entry) {
	entry.FrontImageURL = s.uploader.GetPublicURL(entry.FrontImageKey)
	if entry.BackImageKey != nil {
		url := s.uploader.GetPublicURL(*entry.BackImageKey)
		entry.BackImageURL = &url
	}
}
