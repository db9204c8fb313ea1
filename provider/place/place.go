/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

// Package place provides an adapter for a Google-Places-style restaurant and
// venue metadata API with caching, local rate limiting and graceful degradation.
package place

import (
	"fmt"
	"net/url"
)

// Place is a normalized place description, independent of the provider wire format.
type Place struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Rating     float64  `json:"rating"`
	PriceLevel int      `json:"priceLevel"`
	Types      []string `json:"types,omitempty"`
	OpenNow    bool     `json:"openNow"`
	PhotoURL   string   `json:"photoUrl"`

	// Degraded is true when the provider could not be reached and
	// the value carries fallback content instead of real data.
	Degraded bool `json:"degraded"`
}

// FallbackName is the name of the fallback Place returned when the provider is unavailable.
const FallbackName = "Restaurant information unavailable"

// Wire format of the Google-Places-style API responses.
// Every response carries a status field which is "OK" on success;
// "ZERO_RESULTS" is a success with an empty result set.

const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

type placeJSON struct {
	PlaceID          string       `json:"place_id"`
	Name             string       `json:"name"`
	FormattedAddress string       `json:"formatted_address"`
	Vicinity         string       `json:"vicinity"`
	Rating           float64      `json:"rating"`
	PriceLevel       int          `json:"price_level"`
	Types            []string     `json:"types"`
	OpeningHours     *openingJSON `json:"opening_hours"`
	Photos           []photoJSON  `json:"photos"`
}

type openingJSON struct {
	OpenNow bool `json:"open_now"`
}

type photoJSON struct {
	PhotoReference string `json:"photo_reference"`
}

type searchResponseJSON struct {
	Status  string      `json:"status"`
	Results []placeJSON `json:"results"`
}

type detailsResponseJSON struct {
	Status string    `json:"status"`
	Result placeJSON `json:"result"`
}

type geocodeResponseJSON struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location geoPoint `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p geoPoint) String() string {
	return fmt.Sprintf("%g,%g", p.Lat, p.Lng)
}

func (c *Client) normalizePlace(raw placeJSON) Place {
	p := Place{
		ID:         raw.PlaceID,
		Name:       raw.Name,
		Address:    raw.FormattedAddress,
		Rating:     raw.Rating,
		PriceLevel: raw.PriceLevel,
		Types:      raw.Types,
	}
	if p.Address == "" {
		p.Address = raw.Vicinity
	}
	if raw.OpeningHours != nil {
		p.OpenNow = raw.OpeningHours.OpenNow
	}
	if len(raw.Photos) != 0 && raw.Photos[0].PhotoReference != "" {
		p.PhotoURL = fmt.Sprintf("%s/photo?maxwidth=%d&photoreference=%s&key=%s",
			c.baseURL, photoMaxWidth, url.QueryEscape(raw.Photos[0].PhotoReference), url.QueryEscape(c.apiKey))
	}
	return p
}
