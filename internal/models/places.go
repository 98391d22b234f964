package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MaxPlaceNameLength = 50
	MaxImagesPerPlace  = 5
	MaxImageBytes      = 10 << 20
)

type Place struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string       `gorm:"size:50;not null" json:"name" validate:"required,max=50"`
	Description string       `gorm:"type:text" json:"description"`
	Latitude    float64      `gorm:"type:decimal(10,6);not null;index:idx_places_lat_lng" json:"latitude" validate:"latitude"`
	Longitude   float64      `gorm:"type:decimal(10,6);not null;index:idx_places_lat_lng" json:"longitude" validate:"longitude"`
	UserID      uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User        `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Images      []PlaceImage `gorm:"constraint:OnDelete:CASCADE" json:"images"`
	Comments    []Comment    `gorm:"constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	Ratings     []Rating     `gorm:"constraint:OnDelete:CASCADE" json:"ratings"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (p *Place) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PlaceImage stores the raw bytes in the database. URL is set when the
// image has been copied to a CDN.
type PlaceImage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PlaceID   uuid.UUID `gorm:"type:uuid;not null;index" json:"place_id"`
	Data      []byte    `gorm:"type:bytea;not null" json:"-"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (i *PlaceImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Path is the API route serving the image bytes.
func (i PlaceImage) Path() string {
	return "/places/images/" + i.ID.String()
}

func (i PlaceImage) MarshalJSON() ([]byte, error) {
	type alias PlaceImage
	return json.Marshal(struct {
		alias
		Path string `json:"path"`
	}{alias(i), i.Path()})
}

type Comment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"comment_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	PlaceID   uuid.UUID `gorm:"type:uuid;not null;index" json:"place_id"`
	Rating    *Rating   `gorm:"constraint:OnDelete:CASCADE" json:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Rating belongs to exactly one comment; the unique index on comment_id
// enforces one rating per comment.
type Rating struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Value     int       `gorm:"not null;check:chk_ratings_value,value >= 1 AND value <= 5" json:"value" validate:"min=1,max=5"`
	PlaceID   uuid.UUID `gorm:"type:uuid;not null;index" json:"place_id"`
	CommentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"comment_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Rating) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// PlaceInput carries the validated fields of a create or update request.
// Nil pointers leave the stored value untouched on update.
type PlaceInput struct {
	Name        *string
	Description *string
	Latitude    *float64
	Longitude   *float64
	Images      [][]byte
}

type CommentRequest struct {
	Content string `json:"content" binding:"required" validate:"required,min=1,max=2000"`
	PlaceID string `json:"place_id" binding:"required" validate:"required,uuid"`
}

type RatingRequest struct {
	Value     int    `json:"value" binding:"required" validate:"required,min=1,max=5"`
	PlaceID   string `json:"place_id" binding:"required" validate:"required,uuid"`
	CommentID string `json:"comment_id" binding:"required" validate:"required,uuid"`
}

// FlexFloat decodes a JSON number or a numeric string. The language model
// returns coordinates as strings.
type FlexFloat string

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*f = FlexFloat(strings.TrimSpace(str))
		return nil
	}
	*f = FlexFloat(s)
	return nil
}

func (f FlexFloat) Float() (float64, error) {
	v, err := strconv.ParseFloat(string(f), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, string(f))
	}
	return v, nil
}

// SuggestedPlace is a candidate produced by the language model and enriched
// with map and photo data. It is never persisted directly.
type SuggestedPlace struct {
	Name         string    `json:"name"`
	ThaiName     string    `json:"thai_name,omitempty"`
	Description  string    `json:"description"`
	Latitude     FlexFloat `json:"latitude"`
	Longitude    FlexFloat `json:"longitude"`
	Type         string    `json:"type,omitempty"`
	Amenities    string    `json:"amenities,omitempty"`
	MapImage     *string   `json:"mapImage"`
	Photos       []string  `json:"photos"`
	PhotoBuffers [][]byte  `json:"photoBuffers,omitempty"`
}

// UnmarshalJSON accepts amenities either as a string or as a list.
func (s *SuggestedPlace) UnmarshalJSON(b []byte) error {
	type alias SuggestedPlace
	aux := struct {
		*alias
		Amenities json.RawMessage `json:"amenities"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	s.Amenities = joinAmenities(aux.Amenities)
	return nil
}

func joinAmenities(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}
	return ""
}

type LocationCheck struct {
	Coordinates  LocationCoordinates `json:"coordinates"`
	IsInThailand bool                `json:"isInThailand"`
	Message      string              `json:"message"`
}

type LocationCoordinates struct {
	Latitude  float64 `bson:"lat" json:"latitude"`
	Longitude float64 `bson:"lng" json:"longitude"`
}
