package client

import (
	"context"
	"net/http"
	"net/url"

	"promo-wizard/internal/promo"
)

const promoStatusActive = "ACTIVE"

type createResponse struct {
	ID string `json:"id"`
}

func promoPath(id string, sub string) string {
	p := "/api/promos/" + url.PathEscape(id)
	if sub != "" {
		p += "/" + sub
	}
	return p
}

// CreatePromo posts the basic fields and returns the new promo id.
func (c *Client) CreatePromo(ctx context.Context, in promo.BasicPayload) (string, error) {
	var out createResponse
	if err := c.doJSON(ctx, "promos.create", http.MethodPost, "/api/promos", in, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &APIError{Status: http.StatusBadGateway, Message: "create promo returned no id"}
	}
	return out.ID, nil
}

func (c *Client) UpdatePromo(ctx context.Context, id string, in promo.BasicPayload) error {
	in.Type = ""
	return c.doJSON(ctx, "promos.update", http.MethodPut, promoPath(id, ""), in, nil)
}

func (c *Client) PatchTargetAudience(ctx context.Context, id string, rows []promo.AudiencePayload) error {
	body := struct {
		TargetAudience []promo.AudiencePayload `json:"targetAudience"`
	}{rows}
	return c.doJSON(ctx, "promos.target_audience", http.MethodPatch, promoPath(id, "target-audience"), body, nil)
}

func (c *Client) PatchRule(ctx context.Context, id string, rule promo.RulePayload) error {
	return c.doJSON(ctx, "promos.rule", http.MethodPatch, promoPath(id, "rule"), rule, nil)
}

func (c *Client) PatchRewards(ctx context.Context, id string, rewards promo.RewardsPayload) error {
	return c.doJSON(ctx, "promos.rewards", http.MethodPatch, promoPath(id, "rewards"), rewards, nil)
}

func (c *Client) PatchStatus(ctx context.Context, id, status string) error {
	return c.doJSON(ctx, "promos.status", http.MethodPatch, promoPath(id, "status"), promo.StatusPayload{Status: status}, nil)
}

// Activate publishes a finished promo.
func (c *Client) Activate(ctx context.Context, id string) error {
	return c.PatchStatus(ctx, id, promoStatusActive)
}

func (c *Client) GetPromo(ctx context.Context, id string) (promo.Record, error) {
	var rec promo.Record
	err := c.doJSON(ctx, "promos.get", http.MethodGet, promoPath(id, ""), nil, &rec)
	return rec, err
}
