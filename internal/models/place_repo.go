package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/joshua-takyi/secretspace/internal/geo"
	"gorm.io/gorm"
)

type PlaceRepo interface {
	CreatePlace(ctx context.Context, place *Place, images [][]byte) (*Place, error)
	UpdatePlace(ctx context.Context, id, ownerID uuid.UUID, input *PlaceInput) (*Place, error)
	DeletePlace(ctx context.Context, id, ownerID uuid.UUID) error
	GetPlace(ctx context.Context, id uuid.UUID) (*Place, error)
	ListPlacesByOwner(ctx context.Context, ownerID uuid.UUID) ([]Place, error)
	FindNearby(ctx context.Context, lat, lng, radiusKm float64) ([]Place, error)
	GetImage(ctx context.Context, id uuid.UUID) (*PlaceImage, error)
	SetImageURL(ctx context.Context, id uuid.UUID, url string) error

	CreateComment(ctx context.Context, comment *Comment) (*Comment, error)
	ListComments(ctx context.Context, placeID uuid.UUID) ([]Comment, error)
	CreateRating(ctx context.Context, rating *Rating, authorID uuid.UUID) (*Rating, error)
	AverageRating(ctx context.Context, placeID uuid.UUID) (float64, error)
}

// withoutImageData keeps image bytes out of list and detail queries; they
// are served separately by GetImage.
func withoutImageData(db *gorm.DB) *gorm.DB {
	return db.Select("id", "place_id", "url", "created_at").Order("created_at asc")
}

func imageRows(placeID uuid.UUID, images [][]byte) []PlaceImage {
	rows := make([]PlaceImage, 0, len(images))
	for _, data := range images {
		rows = append(rows, PlaceImage{PlaceID: placeID, Data: data})
	}
	return rows
}

func (pg *PostgresRepo) CreatePlace(ctx context.Context, place *Place, images [][]byte) (*Place, error) {
	err := pg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Images", "Comments", "Ratings", "User").Create(place).Error; err != nil {
			return fmt.Errorf("failed to create place: %w", err)
		}
		if len(images) == 0 {
			return nil
		}
		rows := imageRows(place.ID, images)
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to store images: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pg.GetPlace(ctx, place.ID)
}

// updateColumns lists only the fields present in the request.
func updateColumns(input *PlaceInput) map[string]interface{} {
	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Latitude != nil {
		updates["latitude"] = *input.Latitude
	}
	if input.Longitude != nil {
		updates["longitude"] = *input.Longitude
	}
	return updates
}

func (pg *PostgresRepo) UpdatePlace(ctx context.Context, id, ownerID uuid.UUID, input *PlaceInput) (*Place, error) {
	err := pg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var place Place
		if err := tx.Where("id = ? AND user_id = ?", id, ownerID).First(&place).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: place", ErrNotFound)
			}
			return fmt.Errorf("failed to load place: %w", err)
		}

		if updates := updateColumns(input); len(updates) > 0 {
			if err := tx.Model(&place).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update place: %w", err)
			}
		}

		if len(input.Images) == 0 {
			return nil
		}
		// New images replace the whole set.
		if err := tx.Where("place_id = ?", id).Delete(&PlaceImage{}).Error; err != nil {
			return fmt.Errorf("failed to remove old images: %w", err)
		}
		rows := imageRows(id, input.Images)
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to store images: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pg.GetPlace(ctx, id)
}

func (pg *PostgresRepo) DeletePlace(ctx context.Context, id, ownerID uuid.UUID) error {
	res := pg.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).Delete(&Place{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete place: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: place", ErrNotFound)
	}
	return nil
}

func (pg *PostgresRepo) GetPlace(ctx context.Context, id uuid.UUID) (*Place, error) {
	var place Place
	err := pg.db.WithContext(ctx).
		Preload("Images", withoutImageData).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc") }).
		Preload("Comments.User").
		Preload("Comments.Rating").
		Preload("Ratings").
		First(&place, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: place", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get place: %w", err)
	}
	return &place, nil
}

func (pg *PostgresRepo) ListPlacesByOwner(ctx context.Context, ownerID uuid.UUID) ([]Place, error) {
	places := []Place{}
	err := pg.db.WithContext(ctx).
		Preload("Images", withoutImageData).
		Preload("Ratings").
		Where("user_id = ?", ownerID).
		Order("created_at desc").
		Find(&places).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	return places, nil
}

// FindNearby returns every place strictly closer than radiusKm to the
// origin. Results carry no ordering guarantee.
func (pg *PostgresRepo) FindNearby(ctx context.Context, lat, lng, radiusKm float64) ([]Place, error) {
	places := []Place{}
	err := pg.db.WithContext(ctx).
		Preload("Images", withoutImageData).
		Preload("Ratings").
		Where(geo.DistanceSQL+" < ?", lat, lng, lat, radiusKm).
		Find(&places).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search nearby places: %w", err)
	}
	return places, nil
}

func (pg *PostgresRepo) GetImage(ctx context.Context, id uuid.UUID) (*PlaceImage, error) {
	var image PlaceImage
	if err := pg.db.WithContext(ctx).First(&image, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: image", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return &image, nil
}

func (pg *PostgresRepo) SetImageURL(ctx context.Context, id uuid.UUID, url string) error {
	err := pg.db.WithContext(ctx).Model(&PlaceImage{}).Where("id = ?", id).Update("url", url).Error
	if err != nil {
		return fmt.Errorf("failed to set image url: %w", err)
	}
	return nil
}

func (pg *PostgresRepo) placeExists(tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := tx.Model(&Place{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check place: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: place", ErrNotFound)
	}
	return nil
}

func (pg *PostgresRepo) CreateComment(ctx context.Context, comment *Comment) (*Comment, error) {
	err := pg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := pg.placeExists(tx, comment.PlaceID); err != nil {
			return err
		}
		if err := tx.Omit("User", "Rating").Create(comment).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		return tx.Preload("User").First(comment, "id = ?", comment.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (pg *PostgresRepo) ListComments(ctx context.Context, placeID uuid.UUID) ([]Comment, error) {
	if err := pg.placeExists(pg.db.WithContext(ctx), placeID); err != nil {
		return nil, err
	}
	comments := []Comment{}
	err := pg.db.WithContext(ctx).
		Preload("User").
		Preload("Rating").
		Where("place_id = ?", placeID).
		Order("created_at desc").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// CreateRating attaches a rating to a comment the author wrote on the same
// place. A second rating for the comment is a conflict; the unique index
// on comment_id settles concurrent attempts.
func (pg *PostgresRepo) CreateRating(ctx context.Context, rating *Rating, authorID uuid.UUID) (*Rating, error) {
	err := pg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := pg.placeExists(tx, rating.PlaceID); err != nil {
			return err
		}

		var comment Comment
		err := tx.Where("id = ? AND place_id = ?", rating.CommentID, rating.PlaceID).First(&comment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: comment", ErrNotFound)
			}
			return fmt.Errorf("failed to load comment: %w", err)
		}
		if comment.UserID != authorID {
			return fmt.Errorf("%w: only the comment author can rate it", ErrForbidden)
		}

		var existing int64
		if err := tx.Model(&Rating{}).Where("comment_id = ?", rating.CommentID).Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check rating: %w", err)
		}
		if existing > 0 {
			return fmt.Errorf("%w: comment already rated", ErrConflict)
		}

		if err := tx.Create(rating).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: comment already rated", ErrConflict)
			}
			return fmt.Errorf("failed to create rating: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rating, nil
}

func (pg *PostgresRepo) AverageRating(ctx context.Context, placeID uuid.UUID) (float64, error) {
	if err := pg.placeExists(pg.db.WithContext(ctx), placeID); err != nil {
		return 0, err
	}
	var avg float64
	err := pg.db.WithContext(ctx).
		Model(&Rating{}).
		Select("COALESCE(AVG(value), 0)").
		Where("place_id = ?", placeID).
		Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("failed to average ratings: %w", err)
	}
	return avg, nil
}
