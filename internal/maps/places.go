// Package maps finds photos of named places through the Google Places API
// and builds static map URLs.
package maps

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joshua-takyi/secretspace/internal/helpers"
	"golang.org/x/sync/errgroup"
	gmaps "googlemaps.github.io/maps"
)

const (
	NearbyRadiusMeters = 500
	TextRadiusMeters   = 1000
	MaxPhotos          = 3
	PhotoMaxWidth      = 800
	maxPhotoBytes      = 10 << 20

	staticMapBase = "https://maps.googleapis.com/maps/api/staticmap"
)

// PhotoFinder returns up to MaxPhotos images of the named place near the
// coordinate. Lookup failures yield no photos rather than an error.
type PhotoFinder interface {
	FindPhotos(ctx context.Context, name string, lat, lng float64) [][]byte
}

type Client struct {
	api    *gmaps.Client
	logger *slog.Logger
}

func NewClient(apiKey string, logger *slog.Logger, opts ...gmaps.ClientOption) (*Client, error) {
	opts = append([]gmaps.ClientOption{
		gmaps.WithAPIKey(apiKey),
		gmaps.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	}, opts...)
	api, err := gmaps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Client{api: api, logger: logger}, nil
}

// StaticMapURL returns a roadmap image centred on the coordinate with a red
// marker, or nil when no key is configured.
func StaticMapURL(apiKey string, lat, lng float64) *string {
	if apiKey == "" {
		return nil
	}
	point := formatCoord(lat) + "," + formatCoord(lng)
	q := []string{
		"center=" + point,
		"zoom=16",
		"size=600x300",
		"maptype=roadmap",
		"markers=color:red%7C" + point,
		"key=" + url.QueryEscape(apiKey),
	}
	u := staticMapBase + "?" + strings.Join(q, "&")
	return &u
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// findPlaceID tries a nearby name search first and falls back to a wider
// text search.
func (c *Client) findPlaceID(ctx context.Context, name string, location *gmaps.LatLng) (string, error) {
	nearby, err := c.api.NearbySearch(ctx, &gmaps.NearbySearchRequest{
		Location: location,
		Radius:   NearbyRadiusMeters,
		Name:     name,
	})
	if err == nil && len(nearby.Results) > 0 {
		return nearby.Results[0].PlaceID, nil
	}
	if err != nil {
		c.logger.Debug("nearby search failed, trying text search", "name", name, "error", err)
	}

	text, err := c.api.TextSearch(ctx, &gmaps.TextSearchRequest{
		Query:    name,
		Location: location,
		Radius:   TextRadiusMeters,
	})
	if err != nil {
		return "", fmt.Errorf("text search failed: %w", err)
	}
	if len(text.Results) == 0 {
		return "", nil
	}
	return text.Results[0].PlaceID, nil
}

func (c *Client) FindPhotos(ctx context.Context, name string, lat, lng float64) [][]byte {
	location := &gmaps.LatLng{Lat: lat, Lng: lng}

	placeID, err := c.findPlaceID(ctx, name, location)
	if err != nil || placeID == "" {
		if err != nil {
			c.logger.Warn("place lookup failed", "name", name, "error", err)
		}
		return nil
	}

	details, err := c.api.PlaceDetails(ctx, &gmaps.PlaceDetailsRequest{
		PlaceID: placeID,
		Fields:  []gmaps.PlaceDetailsFieldMask{gmaps.PlaceDetailsFieldMaskPhotos},
	})
	if err != nil {
		c.logger.Warn("place details failed", "name", name, "place_id", placeID, "error", err)
		return nil
	}

	refs := details.Photos
	if len(refs) > MaxPhotos {
		refs = refs[:MaxPhotos]
	}

	// Download in parallel; slots keep the reference order.
	slots := make([][]byte, len(refs))
	var g errgroup.Group
	for i, ref := range refs {
		g.Go(func() error {
			data, err := c.downloadPhoto(ctx, ref.PhotoReference)
			if err != nil {
				c.logger.Warn("photo download failed", "name", name, "error", err)
				return nil
			}
			slots[i] = data
			return nil
		})
	}
	_ = g.Wait()

	photos := make([][]byte, 0, len(slots))
	for _, p := range slots {
		if len(p) > 0 {
			photos = append(photos, p)
		}
	}
	return photos
}

func (c *Client) downloadPhoto(ctx context.Context, reference string) ([]byte, error) {
	resp, err := c.api.PlacePhoto(ctx, &gmaps.PlacePhotoRequest{
		PhotoReference: reference,
		MaxWidth:       PhotoMaxWidth,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Data.Close()

	if !strings.HasPrefix(resp.ContentType, "image/") {
		return nil, fmt.Errorf("unexpected content type %q", resp.ContentType)
	}
	return helpers.ReadLimited(resp.Data, maxPhotoBytes)
}
