package services

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/joshua-takyi/secretspace/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockPlaceRepo struct {
	createPlaceFn   func(ctx context.Context, place *models.Place, images [][]byte) (*models.Place, error)
	updatePlaceFn   func(ctx context.Context, id, ownerID uuid.UUID, input *models.PlaceInput) (*models.Place, error)
	deletePlaceFn   func(ctx context.Context, id, ownerID uuid.UUID) error
	getPlaceFn      func(ctx context.Context, id uuid.UUID) (*models.Place, error)
	listByOwnerFn   func(ctx context.Context, ownerID uuid.UUID) ([]models.Place, error)
	findNearbyFn    func(ctx context.Context, lat, lng, radiusKm float64) ([]models.Place, error)
	getImageFn      func(ctx context.Context, id uuid.UUID) (*models.PlaceImage, error)
	setImageURLFn   func(ctx context.Context, id uuid.UUID, url string) error
	createCommentFn func(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	listCommentsFn  func(ctx context.Context, placeID uuid.UUID) ([]models.Comment, error)
	createRatingFn  func(ctx context.Context, rating *models.Rating, authorID uuid.UUID) (*models.Rating, error)
	averageFn       func(ctx context.Context, placeID uuid.UUID) (float64, error)
}

func (m *mockPlaceRepo) CreatePlace(ctx context.Context, place *models.Place, images [][]byte) (*models.Place, error) {
	if m.createPlaceFn != nil {
		return m.createPlaceFn(ctx, place, images)
	}
	return place, nil
}

func (m *mockPlaceRepo) UpdatePlace(ctx context.Context, id, ownerID uuid.UUID, input *models.PlaceInput) (*models.Place, error) {
	if m.updatePlaceFn != nil {
		return m.updatePlaceFn(ctx, id, ownerID, input)
	}
	return &models.Place{ID: id, UserID: ownerID}, nil
}

func (m *mockPlaceRepo) DeletePlace(ctx context.Context, id, ownerID uuid.UUID) error {
	if m.deletePlaceFn != nil {
		return m.deletePlaceFn(ctx, id, ownerID)
	}
	return nil
}

func (m *mockPlaceRepo) GetPlace(ctx context.Context, id uuid.UUID) (*models.Place, error) {
	if m.getPlaceFn != nil {
		return m.getPlaceFn(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *mockPlaceRepo) ListPlacesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Place, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerID)
	}
	return []models.Place{}, nil
}

func (m *mockPlaceRepo) FindNearby(ctx context.Context, lat, lng, radiusKm float64) ([]models.Place, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, lat, lng, radiusKm)
	}
	return []models.Place{}, nil
}

func (m *mockPlaceRepo) GetImage(ctx context.Context, id uuid.UUID) (*models.PlaceImage, error) {
	if m.getImageFn != nil {
		return m.getImageFn(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *mockPlaceRepo) SetImageURL(ctx context.Context, id uuid.UUID, url string) error {
	if m.setImageURLFn != nil {
		return m.setImageURLFn(ctx, id, url)
	}
	return nil
}

func (m *mockPlaceRepo) CreateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	if m.createCommentFn != nil {
		return m.createCommentFn(ctx, comment)
	}
	return comment, nil
}

func (m *mockPlaceRepo) ListComments(ctx context.Context, placeID uuid.UUID) ([]models.Comment, error) {
	if m.listCommentsFn != nil {
		return m.listCommentsFn(ctx, placeID)
	}
	return []models.Comment{}, nil
}

func (m *mockPlaceRepo) CreateRating(ctx context.Context, rating *models.Rating, authorID uuid.UUID) (*models.Rating, error) {
	if m.createRatingFn != nil {
		return m.createRatingFn(ctx, rating, authorID)
	}
	return rating, nil
}

func (m *mockPlaceRepo) AverageRating(ctx context.Context, placeID uuid.UUID) (float64, error) {
	if m.averageFn != nil {
		return m.averageFn(ctx, placeID)
	}
	return 0, nil
}

type mockUserRepo struct {
	createUserFn        func(ctx context.Context, user *models.User) (*models.User, error)
	getUserByUsernameFn func(ctx context.Context, username string) (*models.User, error)
	getUserFn           func(ctx context.Context, id uuid.UUID) (*models.User, error)
}

func (m *mockUserRepo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(ctx, user)
	}
	return user, nil
}

func (m *mockUserRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.getUserByUsernameFn != nil {
		return m.getUserByUsernameFn(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *mockUserRepo) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, id)
	}
	return nil, models.ErrNotFound
}

type mockTokens struct{}

func (mockTokens) Issue(userID uuid.UUID, username string) (string, error) {
	return "token-" + username, nil
}

type mockCompleter struct {
	completeFn func(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.completeFn(ctx, systemPrompt, userPrompt)
}

type mockPhotos struct {
	findFn func(ctx context.Context, name string, lat, lng float64) [][]byte
}

func (m *mockPhotos) FindPhotos(ctx context.Context, name string, lat, lng float64) [][]byte {
	return m.findFn(ctx, name, lat, lng)
}

type mockHistory struct {
	records []*models.SuggestionRecord
}

func (m *mockHistory) RecordSuggestion(ctx context.Context, record *models.SuggestionRecord) error {
	m.records = append(m.records, record)
	return nil
}

func (m *mockHistory) ListSuggestions(ctx context.Context, userID string, skip, limit int) ([]*models.SuggestionRecord, int64, error) {
	var mine []*models.SuggestionRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].UserID == userID {
			mine = append(mine, m.records[i])
		}
	}
	out := []*models.SuggestionRecord{}
	for i := skip; i < len(mine) && i < skip+limit; i++ {
		out = append(out, mine[i])
	}
	return out, int64(len(mine)), nil
}

func (m *mockHistory) EnsureIndexes(ctx context.Context) error {
	return nil
}

type mockMirror struct {
	mirrorFn func(ctx context.Context, key string, data []byte) (string, error)
}

func (m *mockMirror) Mirror(ctx context.Context, key string, data []byte) (string, error) {
	return m.mirrorFn(ctx, key, data)
}
