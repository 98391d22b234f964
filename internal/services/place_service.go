package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/joshua-takyi/secretspace/internal/geo"
	"github.com/joshua-takyi/secretspace/internal/helpers"
	"github.com/joshua-takyi/secretspace/internal/models"
	"golang.org/x/sync/errgroup"
)

type PlaceService struct {
	placeRepo models.PlaceRepo
	mirror    helpers.ImageMirror
	logger    *slog.Logger
}

// NewPlaceService wires the place repository. mirror may be nil.
func NewPlaceService(placeRepo models.PlaceRepo, mirror helpers.ImageMirror, logger *slog.Logger) *PlaceService {
	return &PlaceService{
		placeRepo: placeRepo,
		mirror:    mirror,
		logger:    logger,
	}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", models.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func validateImages(images [][]byte) error {
	if len(images) > models.MaxImagesPerPlace {
		return invalid("at most %d images are allowed", models.MaxImagesPerPlace)
	}
	for i, img := range images {
		if len(img) == 0 {
			return invalid("image %d is empty", i+1)
		}
		if len(img) > models.MaxImageBytes {
			return invalid("image %d exceeds %d bytes", i+1, models.MaxImageBytes)
		}
	}
	return nil
}

// normalizeInput trims and validates whatever fields are present. create
// requires name and coordinates.
func normalizeInput(input *models.PlaceInput, create bool) error {
	if input.Name != nil {
		name := helpers.StringTrim(*input.Name)
		input.Name = &name
	}
	if create && (input.Name == nil || *input.Name == "") {
		return invalid("name is required")
	}
	if input.Name != nil {
		if *input.Name == "" {
			return invalid("name cannot be empty")
		}
		if err := models.Validate.Var(*input.Name, "max=50"); err != nil {
			return invalid("name must be at most %d characters", models.MaxPlaceNameLength)
		}
	}
	if create && (input.Latitude == nil || input.Longitude == nil) {
		return invalid("latitude and longitude are required")
	}
	if input.Latitude != nil && !geo.ValidLatitude(*input.Latitude) {
		return invalid("latitude must be between -90 and 90")
	}
	if input.Longitude != nil && !geo.ValidLongitude(*input.Longitude) {
		return invalid("longitude must be between -180 and 180")
	}
	return validateImages(input.Images)
}

func (ps *PlaceService) CreatePlace(ctx context.Context, ownerID uuid.UUID, input *models.PlaceInput) (*models.Place, error) {
	if err := normalizeInput(input, true); err != nil {
		return nil, err
	}

	place := &models.Place{
		Name:      *input.Name,
		Latitude:  *input.Latitude,
		Longitude: *input.Longitude,
		UserID:    ownerID,
	}
	if input.Description != nil {
		place.Description = *input.Description
	}

	created, err := ps.placeRepo.CreatePlace(ctx, place, input.Images)
	if err != nil {
		return nil, err
	}
	ps.mirrorImages(ctx, created)
	return created, nil
}

func (ps *PlaceService) UpdatePlace(ctx context.Context, id, ownerID uuid.UUID, input *models.PlaceInput) (*models.Place, error) {
	if err := normalizeInput(input, false); err != nil {
		return nil, err
	}
	updated, err := ps.placeRepo.UpdatePlace(ctx, id, ownerID, input)
	if err != nil {
		return nil, err
	}
	if len(input.Images) > 0 {
		ps.mirrorImages(ctx, updated)
	}
	return updated, nil
}

// mirrorImages copies every image without a URL to the CDN. Failures are
// logged and leave the image served from the database only.
func (ps *PlaceService) mirrorImages(ctx context.Context, place *models.Place) {
	if ps.mirror == nil {
		return
	}
	var g errgroup.Group
	for i := range place.Images {
		img := &place.Images[i]
		if img.URL != "" {
			continue
		}
		g.Go(func() error {
			stored, err := ps.placeRepo.GetImage(ctx, img.ID)
			if err != nil {
				ps.logger.Warn("image mirror skipped", "image_id", img.ID, "error", err)
				return nil
			}
			url, err := ps.mirror.Mirror(ctx, img.ID.String(), stored.Data)
			if err != nil {
				ps.logger.Warn("image mirror failed", "image_id", img.ID, "error", err)
				return nil
			}
			if err := ps.placeRepo.SetImageURL(ctx, img.ID, url); err != nil {
				ps.logger.Warn("image mirror url not saved", "image_id", img.ID, "error", err)
				return nil
			}
			img.URL = url
			return nil
		})
	}
	_ = g.Wait()
}

func (ps *PlaceService) DeletePlace(ctx context.Context, id, ownerID uuid.UUID) error {
	return ps.placeRepo.DeletePlace(ctx, id, ownerID)
}

func (ps *PlaceService) GetPlace(ctx context.Context, id uuid.UUID) (*models.Place, error) {
	return ps.placeRepo.GetPlace(ctx, id)
}

func (ps *PlaceService) ListPlacesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Place, error) {
	return ps.placeRepo.ListPlacesByOwner(ctx, ownerID)
}

// FindNearby returns places strictly within radiusKm of the origin. The
// database filter is re-checked here so a point exactly on the boundary is
// never included.
func (ps *PlaceService) FindNearby(ctx context.Context, lat, lng, radiusKm float64) ([]models.Place, error) {
	if !geo.ValidLatitude(lat) || !geo.ValidLongitude(lng) {
		return nil, invalid("lat and lng must be valid coordinates")
	}
	if math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm <= 0 {
		return nil, invalid("radius must be a positive number")
	}

	candidates, err := ps.placeRepo.FindNearby(ctx, lat, lng, radiusKm)
	if err != nil {
		return nil, err
	}

	origin := geo.Point{Latitude: lat, Longitude: lng}
	places := make([]models.Place, 0, len(candidates))
	for _, p := range candidates {
		if geo.Within(origin, geo.Point{Latitude: p.Latitude, Longitude: p.Longitude}, radiusKm) {
			places = append(places, p)
		}
	}
	return places, nil
}

func (ps *PlaceService) GetImage(ctx context.Context, id uuid.UUID) (*models.PlaceImage, error) {
	return ps.placeRepo.GetImage(ctx, id)
}

func (ps *PlaceService) AddComment(ctx context.Context, userID uuid.UUID, req *models.CommentRequest) (*models.Comment, error) {
	req.Content = helpers.StringTrim(req.Content)
	if err := models.Validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	placeID, _ := uuid.Parse(req.PlaceID)

	return ps.placeRepo.CreateComment(ctx, &models.Comment{
		Content: req.Content,
		UserID:  userID,
		PlaceID: placeID,
	})
}

func (ps *PlaceService) ListComments(ctx context.Context, placeID uuid.UUID) ([]models.Comment, error) {
	return ps.placeRepo.ListComments(ctx, placeID)
}

func (ps *PlaceService) AddRating(ctx context.Context, userID uuid.UUID, req *models.RatingRequest) (*models.Rating, error) {
	if err := models.Validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	placeID, _ := uuid.Parse(req.PlaceID)
	commentID, _ := uuid.Parse(req.CommentID)

	return ps.placeRepo.CreateRating(ctx, &models.Rating{
		Value:     req.Value,
		PlaceID:   placeID,
		CommentID: commentID,
	}, userID)
}

func (ps *PlaceService) AverageRating(ctx context.Context, placeID uuid.UUID) (float64, error) {
	return ps.placeRepo.AverageRating(ctx, placeID)
}
