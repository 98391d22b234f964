package models

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/joshua-takyi/secretspace/internal/geo"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testRepo connects to TEST_DATABASE_URL. These tests need a disposable
// Postgres database and are skipped without one.
func testRepo(t *testing.T) *PostgresRepo {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	repo := PostgresNewRepo(db)
	if err := repo.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return repo
}

func seedUser(t *testing.T, repo *PostgresRepo) *User {
	t.Helper()
	user, err := repo.CreateUser(context.Background(), &User{
		Username:     "repo-" + uuid.NewString()[:8],
		PasswordHash: "not-a-real-hash",
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	t.Cleanup(func() {
		repo.db.Delete(&User{}, "id = ?", user.ID)
	})
	return user
}

func seedPlace(t *testing.T, repo *PostgresRepo, owner *User, name string, lat, lng float64, images ...[]byte) *Place {
	t.Helper()
	place, err := repo.CreatePlace(context.Background(), &Place{
		Name:      name,
		Latitude:  lat,
		Longitude: lng,
		UserID:    owner.ID,
	}, images)
	if err != nil {
		t.Fatalf("failed to create place: %v", err)
	}
	return place
}

func countWhere(t *testing.T, repo *PostgresRepo, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := repo.db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return n
}

func TestCreateRatingOncePerComment(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	author := seedUser(t, repo)
	place := seedPlace(t, repo, author, "Benjakitti Park", 13.7305, 100.5580)

	comment, err := repo.CreateComment(ctx, &Comment{Content: "lovely lake", UserID: author.ID, PlaceID: place.ID})
	if err != nil {
		t.Fatalf("failed to create comment: %v", err)
	}

	if _, err := repo.CreateRating(ctx, &Rating{Value: 5, PlaceID: place.ID, CommentID: comment.ID}, author.ID); err != nil {
		t.Fatalf("first rating failed: %v", err)
	}
	_, err = repo.CreateRating(ctx, &Rating{Value: 3, PlaceID: place.ID, CommentID: comment.ID}, author.ID)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("second rating: expected conflict, got %v", err)
	}

	// The unique index holds even when the pre-check is bypassed.
	err = repo.db.Create(&Rating{Value: 1, PlaceID: place.ID, CommentID: comment.ID}).Error
	if !isUniqueViolation(err) {
		t.Errorf("direct insert: expected unique violation, got %v", err)
	}

	other := seedUser(t, repo)
	_, err = repo.CreateRating(ctx, &Rating{Value: 4, PlaceID: place.ID, CommentID: comment.ID}, other.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("rating someone else's comment: expected forbidden, got %v", err)
	}

	avg, err := repo.AverageRating(ctx, place.ID)
	if err != nil || avg != 5 {
		t.Errorf("average = %v, %v", avg, err)
	}
}

func TestAverageRatingUnknownPlace(t *testing.T) {
	repo := testRepo(t)
	if _, err := repo.AverageRating(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDeletePlaceCascades(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	owner := seedUser(t, repo)
	place := seedPlace(t, repo, owner, "Wat Pho", 13.7465, 100.4927, []byte("img-1"), []byte("img-2"))

	comment, err := repo.CreateComment(ctx, &Comment{Content: "calm courtyard", UserID: owner.ID, PlaceID: place.ID})
	if err != nil {
		t.Fatalf("failed to create comment: %v", err)
	}
	if _, err := repo.CreateRating(ctx, &Rating{Value: 4, PlaceID: place.ID, CommentID: comment.ID}, owner.ID); err != nil {
		t.Fatalf("failed to create rating: %v", err)
	}

	if err := repo.DeletePlace(ctx, place.ID, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("non-owner delete: expected not found, got %v", err)
	}
	if err := repo.DeletePlace(ctx, place.ID, owner.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}

	if n := countWhere(t, repo, &PlaceImage{}, "place_id = ?", place.ID); n != 0 {
		t.Errorf("%d images left", n)
	}
	if n := countWhere(t, repo, &Comment{}, "place_id = ?", place.ID); n != 0 {
		t.Errorf("%d comments left", n)
	}
	if n := countWhere(t, repo, &Rating{}, "place_id = ?", place.ID); n != 0 {
		t.Errorf("%d ratings left", n)
	}
	if _, err := repo.GetPlace(ctx, place.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted place still readable: %v", err)
	}
}

func TestUpdatePlaceReplacesImages(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	owner := seedUser(t, repo)
	place := seedPlace(t, repo, owner, "Old Name", 13.75, 100.50, []byte("old-1"), []byte("old-2"))

	name := "New Name"
	updated, err := repo.UpdatePlace(ctx, place.ID, owner.ID, &PlaceInput{
		Name:   &name,
		Images: [][]byte{[]byte("new-1")},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "New Name" || updated.Latitude != 13.75 {
		t.Errorf("unexpected place %+v", updated)
	}
	if len(updated.Images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(updated.Images))
	}
	if n := countWhere(t, repo, &PlaceImage{}, "place_id = ?", place.ID); n != 1 {
		t.Errorf("expected 1 stored image, got %d", n)
	}
	img, err := repo.GetImage(ctx, updated.Images[0].ID)
	if err != nil || string(img.Data) != "new-1" {
		t.Errorf("image = %+v, %v", img, err)
	}

	if _, err := repo.UpdatePlace(ctx, place.ID, uuid.New(), &PlaceInput{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Errorf("non-owner update: expected not found, got %v", err)
	}
}

func TestFindNearbyDistanceSQL(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	owner := seedUser(t, repo)
	near := seedPlace(t, repo, owner, "Near", 13.7565, 100.5020)
	far := seedPlace(t, repo, owner, "Far", 13.80, 100.60)
	origin := geo.Point{Latitude: 13.7563, Longitude: 100.5018}

	places, err := repo.FindNearby(ctx, origin.Latitude, origin.Longitude, 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	found := map[uuid.UUID]bool{}
	for _, p := range places {
		found[p.ID] = true
	}
	if !found[near.ID] {
		t.Error("place 30 m away not found within 1 km")
	}
	if found[far.ID] {
		t.Error("place about 11 km away found within 1 km")
	}

	for _, p := range []*Place{near, far} {
		var sqlKm float64
		err := repo.db.Model(&Place{}).
			Select(geo.DistanceSQL, origin.Latitude, origin.Longitude, origin.Latitude).
			Where("id = ?", p.ID).
			Scan(&sqlKm).Error
		if err != nil {
			t.Fatalf("distance query failed: %v", err)
		}
		goKm := geo.DistanceKm(origin, geo.Point{Latitude: p.Latitude, Longitude: p.Longitude})
		// acos near 1 magnifies last-bit differences; a metre is plenty.
		if math.Abs(sqlKm-goKm) > 1e-3 {
			t.Errorf("%s: sql %.9f km, go %.9f km", p.Name, sqlKm, goKm)
		}
	}
}
