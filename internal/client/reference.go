package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Place is a reference-data entry: country, city or agency.
type Place struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *Client) Countries(ctx context.Context) ([]Place, error) {
	var out []Place
	err := c.doJSON(ctx, "locations.countries", http.MethodGet, "/api/locations/countries", nil, &out)
	return out, err
}

func (c *Client) Country(ctx context.Context, id string) (Place, error) {
	var out Place
	err := c.doJSON(ctx, "locations.country", http.MethodGet, "/api/locations/countries/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) Cities(ctx context.Context, countryID string) ([]Place, error) {
	var out []Place
	path := "/api/locations/countries/" + url.PathEscape(countryID) + "/cities"
	err := c.doJSON(ctx, "locations.cities", http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) City(ctx context.Context, id string) (Place, error) {
	var out Place
	err := c.doJSON(ctx, "locations.city", http.MethodGet, "/api/locations/cities/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Agencies lists agencies in a country, narrowed to cities when given.
func (c *Client) Agencies(ctx context.Context, countryID string, cityIDs []string) ([]Place, error) {
	q := url.Values{}
	q.Set("countryId", countryID)
	if len(cityIDs) > 0 {
		q.Set("cityIds", strings.Join(cityIDs, ","))
	}
	var out []Place
	err := c.doJSON(ctx, "businesses.agencies", http.MethodGet, "/api/businesses/agencies?"+q.Encode(), nil, &out)
	return out, err
}

func (c *Client) Agency(ctx context.Context, id string) (Place, error) {
	var out Place
	err := c.doJSON(ctx, "businesses.agency", http.MethodGet, "/api/businesses/agencies/"+url.PathEscape(id), nil, &out)
	return out, err
}
