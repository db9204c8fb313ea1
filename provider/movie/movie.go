/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

// Package movie provides an adapter for a TMDB-style movie metadata API
// with caching, local rate limiting and graceful degradation.
package movie

// Movie is a normalized movie description, independent of the provider wire format.
type Movie struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Overview    string   `json:"overview"`
	ReleaseDate string   `json:"releaseDate"`
	Rating      float64  `json:"rating"`
	PosterURL   string   `json:"posterUrl"`
	Genres      []string `json:"genres,omitempty"`

	// Degraded is true when the provider could not be reached and
	// the value carries fallback content instead of real data.
	Degraded bool `json:"degraded"`
}

// FallbackTitle is the title of the fallback Movie returned when the provider is unavailable.
const FallbackTitle = "Movie information unavailable"

// Wire format of the TMDB-style API responses.
// Search results carry genre ids only, details responses carry genre objects.

type movieJSON struct {
	ID          int         `json:"id"`
	Title       string      `json:"title"`
	Overview    string      `json:"overview"`
	ReleaseDate string      `json:"release_date"`
	VoteAverage float64     `json:"vote_average"`
	PosterPath  string      `json:"poster_path"`
	Genres      []genreJSON `json:"genres"`
}

type genreJSON struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type searchResponseJSON struct {
	Page         int         `json:"page"`
	Results      []movieJSON `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

func (c *Client) normalizeMovie(raw movieJSON) Movie {
	m := Movie{
		ID:          raw.ID,
		Title:       raw.Title,
		Overview:    raw.Overview,
		ReleaseDate: raw.ReleaseDate,
		Rating:      raw.VoteAverage,
	}
	if raw.PosterPath != "" {
		m.PosterURL = c.imageBaseURL + raw.PosterPath
	}
	if len(raw.Genres) != 0 {
		m.Genres = make([]string, 0, len(raw.Genres))
		for _, g := range raw.Genres {
			m.Genres = append(m.Genres, g.Name)
		}
	}
	return m
}
