package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/joshua-takyi/secretspace/internal/geo"
	"github.com/joshua-takyi/secretspace/internal/helpers"
	"github.com/joshua-takyi/secretspace/internal/llm"
	"github.com/joshua-takyi/secretspace/internal/maps"
	"github.com/joshua-takyi/secretspace/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	UnnamedPlace     = "Unnamed Place"
	emulatorEpsilon  = 0.001
	historyLimit     = 20
	maxHistoryLimit  = 100
	dataURLJPEGStart = "data:image/jpeg;base64,"
)

var (
	// EmulatorPoint is the default location reported by the Android emulator.
	EmulatorPoint = geo.Point{Latitude: 37.4220936, Longitude: -122.083922}
	// FallbackPoint is central Bangkok.
	FallbackPoint = geo.Point{Latitude: 13.7563, Longitude: 100.5018}
	ThailandBox   = geo.Box{North: 21.0, South: 5.0, West: 97.0, East: 106.0}
)

const systemPrompt = `You are a local guide who knows Thailand well and helps people find quiet, peaceful places to relax, read, work or think. ` +
	`You only suggest real places that exist near the given coordinates, and you always answer with a single JSON object.`

type SuggestionService struct {
	completer         llm.Completer
	photos            maps.PhotoFinder
	mapsKey           string
	places            *PlaceService
	history           models.SuggestionHistoryRepo
	rejectOutOfBounds bool
	logger            *slog.Logger
	fetch             func(ctx context.Context, url string) ([]byte, error)
}

// NewSuggestionService wires the enricher. photos and history may be nil
// when the maps key or the document store is not configured.
func NewSuggestionService(
	completer llm.Completer,
	photos maps.PhotoFinder,
	mapsKey string,
	places *PlaceService,
	history models.SuggestionHistoryRepo,
	rejectOutOfBounds bool,
	logger *slog.Logger,
) *SuggestionService {
	return &SuggestionService{
		completer:         completer,
		photos:            photos,
		mapsKey:           mapsKey,
		places:            places,
		history:           history,
		rejectOutOfBounds: rejectOutOfBounds,
		logger:            logger,
		fetch: func(ctx context.Context, url string) ([]byte, error) {
			return helpers.Download(ctx, url, models.MaxImageBytes)
		},
	}
}

// SanitizeCoordinates replaces the emulator default and points outside
// Thailand with FallbackPoint. substituted reports whether that happened.
func (ss *SuggestionService) SanitizeCoordinates(lat, lng float64) (geo.Point, bool, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return geo.Point{}, false, invalid("lat and lng must be finite numbers")
	}

	if math.Abs(lat-EmulatorPoint.Latitude) < emulatorEpsilon && math.Abs(lng-EmulatorPoint.Longitude) < emulatorEpsilon {
		ss.logger.Info("emulator default location detected, using fallback", "lat", lat, "lng", lng)
		return FallbackPoint, true, nil
	}

	p := geo.Point{Latitude: lat, Longitude: lng}
	if !ThailandBox.Contains(p) {
		if ss.rejectOutOfBounds {
			return geo.Point{}, false, invalid("coordinates (%v, %v) are outside Thailand", lat, lng)
		}
		ss.logger.Warn("coordinates outside Thailand, using fallback", "lat", lat, "lng", lng)
		return FallbackPoint, true, nil
	}
	return p, false, nil
}

func formatPoint(p geo.Point) string {
	return fmt.Sprintf("%v, %v", p.Latitude, p.Longitude)
}

// BuildUserPrompt asks for three to five candidates in the JSON shape
// ParseSuggestions understands.
func BuildUserPrompt(p geo.Point, preferences string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find 3-5 quiet, peaceful places near coordinates (%s) in Thailand.", formatPoint(p))
	if prefs := strings.TrimSpace(preferences); prefs != "" {
		fmt.Fprintf(&b, " I prefer places that are: %s.", prefs)
	}
	b.WriteString(` Respond with JSON in exactly this format:
{
  "places": [
    {
      "name": "English name of the place",
      "thai_name": "Thai name of the place",
      "description": "Why this place is quiet and worth visiting",
      "latitude": "latitude as a string",
      "longitude": "longitude as a string",
      "type": "park, cafe, temple, library, garden or similar",
      "amenities": "available amenities"
    }
  ]
}`)
	return b.String()
}

var (
	fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	braceSpan  = regexp.MustCompile(`(?s)\{.*\}`)
)

// decodePlaces reads the places array from a JSON document. A document
// without a places array yields no candidates.
func decodePlaces(raw []byte) ([]models.SuggestedPlace, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return []models.SuggestedPlace{}, nil
	}
	list, ok := doc["places"]
	if !ok || !strings.HasPrefix(strings.TrimSpace(string(list)), "[") {
		return []models.SuggestedPlace{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(list, &items); err != nil {
		return nil, fmt.Errorf("invalid places array: %w", err)
	}
	// A badly typed candidate is dropped; the rest are kept.
	places := make([]models.SuggestedPlace, 0, len(items))
	for _, item := range items {
		var sp models.SuggestedPlace
		if err := json.Unmarshal(item, &sp); err != nil {
			continue
		}
		places = append(places, sp)
	}
	return places, nil
}

// ParseSuggestions tolerates prose around the JSON: it tries the whole
// content, then a fenced json block, then the widest brace span.
func ParseSuggestions(content string) ([]models.SuggestedPlace, error) {
	trimmed := strings.TrimSpace(content)
	if json.Valid([]byte(trimmed)) {
		return decodePlaces([]byte(trimmed))
	}

	var candidate string
	if m := fencedJSON.FindStringSubmatch(content); m != nil {
		candidate = strings.TrimSpace(m[1])
	} else if span := braceSpan.FindString(content); span != "" {
		candidate = span
	} else {
		return nil, errors.New("no JSON found in language model response")
	}

	if !json.Valid([]byte(candidate)) {
		return nil, errors.New("invalid JSON in language model response")
	}
	return decodePlaces([]byte(candidate))
}

func searchName(sp *models.SuggestedPlace) string {
	if name := strings.TrimSpace(sp.Name); name != "" {
		return name
	}
	return strings.TrimSpace(sp.ThaiName)
}

// enrich attaches a static map and photos to each candidate in place.
func (ss *SuggestionService) enrich(ctx context.Context, places []models.SuggestedPlace) {
	var g errgroup.Group
	for i := range places {
		sp := &places[i]
		sp.Photos = []string{}

		lat, latErr := sp.Latitude.Float()
		lng, lngErr := sp.Longitude.Float()
		if latErr != nil || lngErr != nil {
			ss.logger.Warn("suggestion has unusable coordinates", "name", sp.Name)
			continue
		}
		sp.MapImage = maps.StaticMapURL(ss.mapsKey, lat, lng)

		name := searchName(sp)
		if ss.photos == nil || name == "" {
			continue
		}
		g.Go(func() error {
			buffers := ss.photos.FindPhotos(ctx, name, lat, lng)
			sp.PhotoBuffers = buffers
			for _, b := range buffers {
				sp.Photos = append(sp.Photos, dataURLJPEGStart+base64.StdEncoding.EncodeToString(b))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// SuggestPlaces runs the whole pipeline for one request.
func (ss *SuggestionService) SuggestPlaces(ctx context.Context, userID uuid.UUID, lat, lng float64, preferences string) ([]models.SuggestedPlace, error) {
	point, substituted, err := ss.SanitizeCoordinates(lat, lng)
	if err != nil {
		return nil, err
	}

	content, err := ss.completer.Complete(ctx, systemPrompt, BuildUserPrompt(point, preferences))
	if err != nil {
		return nil, err
	}

	places, err := ParseSuggestions(content)
	if err != nil {
		ss.logger.Error("unparseable suggestion response", "error", err, "content_length", len(content))
		return nil, err
	}

	ss.enrich(ctx, places)
	ss.recordHistory(ctx, userID, lat, lng, point, substituted, preferences, places)
	return places, nil
}

func (ss *SuggestionService) recordHistory(ctx context.Context, userID uuid.UUID, lat, lng float64, point geo.Point, substituted bool, preferences string, places []models.SuggestedPlace) {
	if ss.history == nil {
		return
	}
	names := make([]string, 0, len(places))
	for i := range places {
		names = append(names, searchName(&places[i]))
	}
	record := &models.SuggestionRecord{
		UserID:      userID.String(),
		Requested:   models.LocationCoordinates{Latitude: lat, Longitude: lng},
		Effective:   models.LocationCoordinates{Latitude: point.Latitude, Longitude: point.Longitude},
		Substituted: substituted,
		Preferences: strings.TrimSpace(preferences),
		Candidates:  names,
	}
	if err := ss.history.RecordSuggestion(ctx, record); err != nil {
		ss.logger.Warn("suggestion history not recorded", "user_id", userID, "error", err)
	}
}

// HistoryPage is one page of a caller's suggestion history.
type HistoryPage struct {
	Records []*models.SuggestionRecord
	Page    int
	Limit   int
	Total   int64
}

// ListHistory returns the requested page of the caller's history. A page
// below 1 means the first page; a limit outside 1..100 falls back to 20.
func (ss *SuggestionService) ListHistory(ctx context.Context, userID uuid.UUID, page, limit int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxHistoryLimit {
		limit = historyLimit
	}
	out := &HistoryPage{Records: []*models.SuggestionRecord{}, Page: page, Limit: limit}
	if ss.history == nil {
		return out, nil
	}

	records, total, err := ss.history.ListSuggestions(ctx, userID.String(), (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	out.Records = records
	out.Total = total
	return out, nil
}

func (ss *SuggestionService) CheckLocation(lat, lng float64) models.LocationCheck {
	inside := ThailandBox.Contains(geo.Point{Latitude: lat, Longitude: lng})
	msg := "These coordinates are outside Thailand boundaries"
	if inside {
		msg = "These coordinates are within Thailand boundaries"
	}
	return models.LocationCheck{
		Coordinates:  models.LocationCoordinates{Latitude: lat, Longitude: lng},
		IsInThailand: inside,
		Message:      msg,
	}
}

// SuggestedName picks the English name, then the Thai name, then a
// placeholder, cut to the column width.
func SuggestedName(sp *models.SuggestedPlace) string {
	name := helpers.StringTrim(sp.Name)
	if name == "" {
		name = helpers.StringTrim(sp.ThaiName)
	}
	if name == "" {
		name = UnnamedPlace
	}
	return helpers.Truncate(name, models.MaxPlaceNameLength)
}

// SuggestedDescription folds type, amenities and the Thai name into the
// free-text description.
func SuggestedDescription(sp *models.SuggestedPlace) string {
	var b strings.Builder
	b.WriteString(sp.Description)
	if t := strings.TrimSpace(sp.Type); t != "" {
		b.WriteString("\n\nType: " + t)
	}
	if a := strings.TrimSpace(sp.Amenities); a != "" {
		b.WriteString("\n\nAmenities: " + a)
	}
	if thai := strings.TrimSpace(sp.ThaiName); thai != "" && thai != strings.TrimSpace(sp.Name) {
		b.WriteString("\n\nThai name: " + thai)
	}
	return b.String()
}

func decodeDataURL(s string) ([]byte, error) {
	comma := strings.IndexByte(s, ',')
	if comma < 0 || !strings.Contains(s[:comma], ";base64") {
		return nil, errors.New("unsupported data url")
	}
	return base64.StdEncoding.DecodeString(s[comma+1:])
}

// suggestedImages prefers the raw buffers, then data URLs, then remote
// URLs. Entries that cannot be converted are skipped.
func (ss *SuggestionService) suggestedImages(ctx context.Context, sp *models.SuggestedPlace) [][]byte {
	var images [][]byte
	add := func(b []byte) {
		if len(b) > 0 && len(b) <= models.MaxImageBytes && len(images) < models.MaxImagesPerPlace {
			images = append(images, b)
		}
	}

	if len(sp.PhotoBuffers) > 0 {
		for _, b := range sp.PhotoBuffers {
			add(b)
		}
		return images
	}

	for _, photo := range sp.Photos {
		if len(images) >= models.MaxImagesPerPlace {
			break
		}
		var (
			data []byte
			err  error
		)
		switch {
		case strings.HasPrefix(photo, "data:"):
			data, err = decodeDataURL(photo)
		case strings.HasPrefix(photo, "http://"), strings.HasPrefix(photo, "https://"):
			data, err = ss.fetch(ctx, photo)
		default:
			err = errors.New("unsupported photo reference")
		}
		if err != nil {
			ss.logger.Warn("suggested photo skipped", "name", sp.Name, "error", err)
			continue
		}
		add(data)
	}
	return images
}

// AddSuggestedPlace stores an accepted suggestion as a place owned by the
// caller.
func (ss *SuggestionService) AddSuggestedPlace(ctx context.Context, userID uuid.UUID, sp *models.SuggestedPlace) (*models.Place, error) {
	lat, err := sp.Latitude.Float()
	if err != nil {
		return nil, err
	}
	lng, err := sp.Longitude.Float()
	if err != nil {
		return nil, err
	}
	if !ThailandBox.Contains(geo.Point{Latitude: lat, Longitude: lng}) {
		ss.logger.Warn("suggested place outside Thailand", "lat", lat, "lng", lng)
	}

	name := SuggestedName(sp)
	description := SuggestedDescription(sp)

	return ss.places.CreatePlace(ctx, userID, &models.PlaceInput{
		Name:        &name,
		Description: &description,
		Latitude:    &lat,
		Longitude:   &lng,
		Images:      ss.suggestedImages(ctx, sp),
	})
}
