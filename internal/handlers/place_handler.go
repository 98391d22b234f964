package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/secretspace/internal/models"
	"github.com/joshua-takyi/secretspace/internal/services"
)

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", models.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func formFloat(c *gin.Context, key string) (*float64, error) {
	raw, ok := c.GetPostForm(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, invalidInput("%s must be a number", key)
	}
	return &v, nil
}

// readPlaceForm collects the multipart fields of a create or update
// request. Absent fields stay nil.
func readPlaceForm(c *gin.Context) (*models.PlaceInput, error) {
	input := &models.PlaceInput{}
	if v, ok := c.GetPostForm("name"); ok {
		input.Name = &v
	}
	if v, ok := c.GetPostForm("description"); ok {
		input.Description = &v
	}

	var err error
	if input.Latitude, err = formFloat(c, "latitude"); err != nil {
		return nil, err
	}
	if input.Longitude, err = formFloat(c, "longitude"); err != nil {
		return nil, err
	}

	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return input, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, invalidInput("invalid multipart form: %v", err)
	}

	files := form.File["images"]
	if len(files) > models.MaxImagesPerPlace {
		return nil, invalidInput("at most %d images are allowed", models.MaxImagesPerPlace)
	}
	for _, fh := range files {
		if fh.Size > models.MaxImageBytes {
			return nil, invalidInput("image %s exceeds %d bytes", fh.Filename, models.MaxImageBytes)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, invalidInput("cannot read image %s", fh.Filename)
		}
		data, err := io.ReadAll(io.LimitReader(f, models.MaxImageBytes+1))
		f.Close()
		if err != nil {
			return nil, invalidInput("cannot read image %s", fh.Filename)
		}
		input.Images = append(input.Images, data)
	}
	return input, nil
}

func queryFloat(c *gin.Context, key string) (float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, invalidInput("%s is required", key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, invalidInput("%s must be a number", key)
	}
	return v, nil
}

// ListNearby answers with a bare array so map clients can render it directly.
func ListNearby(ps *services.PlaceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		lat, err := queryFloat(c, "lat")
		if err != nil {
			respondError(c, err)
			return
		}
		lng, err := queryFloat(c, "lng")
		if err != nil {
			respondError(c, err)
			return
		}
		radius, err := queryFloat(c, "radius")
		if err != nil {
			respondError(c, err)
			return
		}

		places, err := ps.FindNearby(c.Request.Context(), lat, lng, radius)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, places)
	}
}

func ListMyPlaces(ps *services.PlaceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		places, err := ps.ListPlacesByOwner(c.Request.Context(), id.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(places, ""))
	}
}

func GetPlace(ps *services.PlaceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		placeID, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		place, err := ps.GetPlace(c.Request.Context(), placeID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(place, ""))
	}
}

func CreatePlace(ps *services.PlaceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		input, err := readPlaceForm(c)
		if err != nil {
			respondError(c, err)
			return
		}

		place, err := ps.CreatePlace(c.Request.Context(), id.UserID, input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(place, "Place created successfully"))
	}
}

func UpdatePlace(ps *services.PlaceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		placeID, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		input, err := readPlaceForm(c)
		if err != nil {
			respondError(c, err)
			return
		}

		place, err := ps.UpdatePlace(c.Request.Context(), placeID, id.UserID, input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(place, "Place updated successfully"))
	}
}

func DeletePlace(ps *services.PlaceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		placeID, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		if err := ps.DeletePlace(c.Request.Context(), placeID, id.UserID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Place deleted successfully"))
	}
}

// GetImage serves the stored bytes of one image.
func GetImage(ps *services.PlaceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		imageID, ok := uuidParam(c, "imageId")
		if !ok {
			return
		}
		img, err := ps.GetImage(c.Request.Context(), imageID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Cache-Control", "public, max-age=86400")
		c.Data(http.StatusOK, "image/jpeg", img.Data)
	}
}
