package google

import (
	"context"
	"fmt"
	"strings"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"googlemaps.github.io/maps"
)

// Geocoder resolves addresses with the Google Geocoding API.
type Geocoder struct {
	client *maps.Client
}

var _ domain.Geocoder = (*Geocoder)(nil)

// NewGeocoder builds a client for apiKey. baseURL overrides the API host and
// is meant for tests.
func NewGeocoder(apiKey, baseURL string) (*Geocoder, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoding client: %w", err)
	}
	return &Geocoder{client: client}, nil
}

// Resolve returns the location of the first match. An address with no
// matches yields domain.ErrUnresolvable; transport, quota and key failures
// yield domain.ErrGeocoderUnavailable.
func (g *Geocoder) Resolve(ctx context.Context, address string) (domain.Location, error) {
	if strings.TrimSpace(address) == "" {
		return domain.Location{}, domain.ErrUnresolvable
	}
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return domain.Location{}, fmt.Errorf("geocode %q: %w: %w", address, domain.ErrGeocoderUnavailable, err)
	}
	if len(results) == 0 {
		return domain.Location{}, domain.ErrUnresolvable
	}
	loc := results[0].Geometry.Location
	return domain.Location{Lat: loc.Lat, Lng: loc.Lng}, nil
}
