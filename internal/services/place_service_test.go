package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/joshua-takyi/secretspace/internal/models"
)

func ptr[T any](v T) *T {
	return &v
}

func TestFindNearbyFiltersBoundary(t *testing.T) {
	repo := &mockPlaceRepo{
		findNearbyFn: func(ctx context.Context, lat, lng, radiusKm float64) ([]models.Place, error) {
			return []models.Place{
				{Name: "near", Latitude: 13.75657, Longitude: 100.5018},
				{Name: "far", Latitude: 13.8193, Longitude: 100.5018},
			}, nil
		},
	}
	ps := NewPlaceService(repo, nil, testLogger())

	places, err := ps.FindNearby(context.Background(), 13.7563, 100.5018, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(places) != 1 || places[0].Name != "near" {
		t.Errorf("unexpected places %+v", places)
	}
}

func TestFindNearbyEmptyIsNotNil(t *testing.T) {
	ps := NewPlaceService(&mockPlaceRepo{}, nil, testLogger())
	places, err := ps.FindNearby(context.Background(), 13.7563, 100.5018, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if places == nil || len(places) != 0 {
		t.Errorf("expected empty slice, got %#v", places)
	}
}

func TestFindNearbyValidation(t *testing.T) {
	ps := NewPlaceService(&mockPlaceRepo{}, nil, testLogger())
	cases := []struct{ lat, lng, radius float64 }{
		{13.7, 100.5, 0},
		{13.7, 100.5, -1},
		{91, 100.5, 1},
		{13.7, 181, 1},
	}
	for _, c := range cases {
		if _, err := ps.FindNearby(context.Background(), c.lat, c.lng, c.radius); !errors.Is(err, models.ErrInvalidInput) {
			t.Errorf("%+v: expected invalid input, got %v", c, err)
		}
	}
}

func TestCreatePlaceValidation(t *testing.T) {
	ps := NewPlaceService(&mockPlaceRepo{}, nil, testLogger())
	owner := uuid.New()

	tooMany := make([][]byte, models.MaxImagesPerPlace+1)
	for i := range tooMany {
		tooMany[i] = []byte("x")
	}

	cases := map[string]*models.PlaceInput{
		"missing name":    {Latitude: ptr(13.7), Longitude: ptr(100.5)},
		"blank name":      {Name: ptr("   "), Latitude: ptr(13.7), Longitude: ptr(100.5)},
		"long name":       {Name: ptr(strings.Repeat("a", 51)), Latitude: ptr(13.7), Longitude: ptr(100.5)},
		"missing coords":  {Name: ptr("Garden")},
		"bad latitude":    {Name: ptr("Garden"), Latitude: ptr(-91.0), Longitude: ptr(100.5)},
		"too many images": {Name: ptr("Garden"), Latitude: ptr(13.7), Longitude: ptr(100.5), Images: tooMany},
		"empty image":     {Name: ptr("Garden"), Latitude: ptr(13.7), Longitude: ptr(100.5), Images: [][]byte{{}}},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ps.CreatePlace(context.Background(), owner, input); !errors.Is(err, models.ErrInvalidInput) {
				t.Errorf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestCreatePlaceStoresOwnerAndMirrors(t *testing.T) {
	owner := uuid.New()
	imageID := uuid.New()
	var savedURL string
	var mu sync.Mutex

	repo := &mockPlaceRepo{
		createPlaceFn: func(ctx context.Context, place *models.Place, images [][]byte) (*models.Place, error) {
			if place.UserID != owner || place.Name != "Quiet Garden" {
				t.Errorf("unexpected place %+v", place)
			}
			if len(images) != 1 {
				t.Errorf("expected 1 image, got %d", len(images))
			}
			place.Images = []models.PlaceImage{{ID: imageID, PlaceID: place.ID}}
			return place, nil
		},
		getImageFn: func(ctx context.Context, id uuid.UUID) (*models.PlaceImage, error) {
			return &models.PlaceImage{ID: id, Data: []byte("jpeg")}, nil
		},
		setImageURLFn: func(ctx context.Context, id uuid.UUID, url string) error {
			mu.Lock()
			defer mu.Unlock()
			savedURL = url
			return nil
		},
	}
	mirror := &mockMirror{mirrorFn: func(ctx context.Context, key string, data []byte) (string, error) {
		if !bytes.Equal(data, []byte("jpeg")) {
			t.Errorf("unexpected data %q", data)
		}
		return "https://cdn.example.com/" + key, nil
	}}
	ps := NewPlaceService(repo, mirror, testLogger())

	place, err := ps.CreatePlace(context.Background(), owner, &models.PlaceInput{
		Name:      ptr("  Quiet   Garden "),
		Latitude:  ptr(13.7563),
		Longitude: ptr(100.5018),
		Images:    [][]byte{[]byte("jpeg")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://cdn.example.com/" + imageID.String()
	if place.Images[0].URL != want || savedURL != want {
		t.Errorf("mirror url not applied: %q / %q", place.Images[0].URL, savedURL)
	}
}

func TestCreatePlaceMirrorFailureIsIgnored(t *testing.T) {
	repo := &mockPlaceRepo{
		createPlaceFn: func(ctx context.Context, place *models.Place, images [][]byte) (*models.Place, error) {
			place.Images = []models.PlaceImage{{ID: uuid.New()}}
			return place, nil
		},
		getImageFn: func(ctx context.Context, id uuid.UUID) (*models.PlaceImage, error) {
			return &models.PlaceImage{ID: id, Data: []byte("jpeg")}, nil
		},
	}
	mirror := &mockMirror{mirrorFn: func(ctx context.Context, key string, data []byte) (string, error) {
		return "", errors.New("cdn down")
	}}
	ps := NewPlaceService(repo, mirror, testLogger())

	place, err := ps.CreatePlace(context.Background(), uuid.New(), &models.PlaceInput{
		Name: ptr("Garden"), Latitude: ptr(13.7), Longitude: ptr(100.5), Images: [][]byte{[]byte("jpeg")},
	})
	if err != nil {
		t.Fatalf("mirror failure must not fail the request: %v", err)
	}
	if place.Images[0].URL != "" {
		t.Errorf("unexpected url %q", place.Images[0].URL)
	}
}

func TestUpdatePlacePartial(t *testing.T) {
	var got *models.PlaceInput
	repo := &mockPlaceRepo{
		updatePlaceFn: func(ctx context.Context, id, ownerID uuid.UUID, input *models.PlaceInput) (*models.Place, error) {
			got = input
			return &models.Place{ID: id}, nil
		},
	}
	ps := NewPlaceService(repo, nil, testLogger())

	if _, err := ps.UpdatePlace(context.Background(), uuid.New(), uuid.New(), &models.PlaceInput{Description: ptr("calmer now")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != nil || got.Latitude != nil || *got.Description != "calmer now" {
		t.Errorf("unexpected input %+v", got)
	}

	if _, err := ps.UpdatePlace(context.Background(), uuid.New(), uuid.New(), &models.PlaceInput{Name: ptr(" ")}); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("expected invalid input for blank name, got %v", err)
	}
}

func TestAddRating(t *testing.T) {
	author := uuid.New()
	placeID, commentID := uuid.New(), uuid.New()
	rated := map[uuid.UUID]bool{}

	repo := &mockPlaceRepo{
		createRatingFn: func(ctx context.Context, rating *models.Rating, authorID uuid.UUID) (*models.Rating, error) {
			if authorID != author {
				return nil, models.ErrForbidden
			}
			if rated[rating.CommentID] {
				return nil, models.ErrConflict
			}
			rated[rating.CommentID] = true
			return rating, nil
		},
	}
	ps := NewPlaceService(repo, nil, testLogger())
	req := func(v int) *models.RatingRequest {
		return &models.RatingRequest{Value: v, PlaceID: placeID.String(), CommentID: commentID.String()}
	}

	r, err := ps.AddRating(context.Background(), author, req(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.PlaceID != placeID || r.CommentID != commentID || r.Value != 4 {
		t.Errorf("unexpected rating %+v", r)
	}

	if _, err := ps.AddRating(context.Background(), author, req(5)); !errors.Is(err, models.ErrConflict) {
		t.Errorf("second rating: expected conflict, got %v", err)
	}
	if _, err := ps.AddRating(context.Background(), author, req(6)); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("value 6: expected invalid input, got %v", err)
	}
	if _, err := ps.AddRating(context.Background(), author, &models.RatingRequest{Value: 3, PlaceID: "nope", CommentID: commentID.String()}); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("bad place id: expected invalid input, got %v", err)
	}
}

func TestAddCommentTrimsContent(t *testing.T) {
	placeID := uuid.New()
	ps := NewPlaceService(&mockPlaceRepo{}, nil, testLogger())

	c, err := ps.AddComment(context.Background(), uuid.New(), &models.CommentRequest{Content: "  so   peaceful ", PlaceID: placeID.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Content != "so peaceful" || c.PlaceID != placeID {
		t.Errorf("unexpected comment %+v", c)
	}

	if _, err := ps.AddComment(context.Background(), uuid.New(), &models.CommentRequest{Content: "   ", PlaceID: placeID.String()}); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("expected invalid input for blank comment, got %v", err)
	}
}

func TestDeletePlaceScopedToOwner(t *testing.T) {
	owner, placeID := uuid.New(), uuid.New()
	repo := &mockPlaceRepo{
		deletePlaceFn: func(ctx context.Context, id, ownerID uuid.UUID) error {
			if id != placeID || ownerID != owner {
				return models.ErrNotFound
			}
			return nil
		},
	}
	ps := NewPlaceService(repo, nil, testLogger())

	if err := ps.DeletePlace(context.Background(), placeID, owner); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if err := ps.DeletePlace(context.Background(), placeID, uuid.New()); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected not found for another user, got %v", err)
	}
}

func TestGetPlace(t *testing.T) {
	placeID := uuid.New()
	repo := &mockPlaceRepo{
		getPlaceFn: func(ctx context.Context, id uuid.UUID) (*models.Place, error) {
			if id != placeID {
				return nil, models.ErrNotFound
			}
			return &models.Place{
				ID:       placeID,
				Name:     "Benchakitti Park",
				Images:   []models.PlaceImage{{ID: uuid.New(), PlaceID: placeID}},
				Comments: []models.Comment{{Content: "shady", User: &models.User{Username: "mali"}}},
			}, nil
		},
	}
	ps := NewPlaceService(repo, nil, testLogger())

	place, err := ps.GetPlace(context.Background(), placeID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(place.Images) != 1 || place.Comments[0].User.Username != "mali" {
		t.Errorf("unexpected place %+v", place)
	}
	if _, err := ps.GetPlace(context.Background(), uuid.New()); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListPlacesByOwner(t *testing.T) {
	owner := uuid.New()
	var gotOwner uuid.UUID
	repo := &mockPlaceRepo{
		listByOwnerFn: func(ctx context.Context, ownerID uuid.UUID) ([]models.Place, error) {
			gotOwner = ownerID
			return []models.Place{{Name: "a", UserID: ownerID}, {Name: "b", UserID: ownerID}}, nil
		},
	}
	ps := NewPlaceService(repo, nil, testLogger())

	places, err := ps.ListPlacesByOwner(context.Background(), owner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotOwner != owner || len(places) != 2 {
		t.Errorf("owner %v, places %+v", gotOwner, places)
	}
}

func TestListComments(t *testing.T) {
	placeID := uuid.New()
	repo := &mockPlaceRepo{
		listCommentsFn: func(ctx context.Context, id uuid.UUID) ([]models.Comment, error) {
			return []models.Comment{{Content: "newest", PlaceID: id}, {Content: "oldest", PlaceID: id}}, nil
		},
	}
	ps := NewPlaceService(repo, nil, testLogger())

	comments, err := ps.ListComments(context.Background(), placeID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comments) != 2 || comments[0].Content != "newest" || comments[0].PlaceID != placeID {
		t.Errorf("unexpected comments %+v", comments)
	}
}
