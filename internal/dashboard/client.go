package dashboard

import (
	"context"
	"fmt"

	"chat-backend/pkg/api"

	"github.com/go-resty/resty/v2"
)

// Client is a typed read-only accessor for the dashboard endpoints, meant for
// external dashboard front ends and tooling. Every call is a single
// bearer-authenticated GET returning a flat record, no pagination.
type Client struct {
	client *resty.Client
}

func NewClient(baseURL, token string) *Client {
	client := resty.New().SetBaseURL(baseURL)
	if token != "" {
		client.SetAuthToken(token)
	}
	return &Client{client: client}
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, dest any) error {
	res, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(dest).
		Get(path)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	if res.IsError() {
		return fmt.Errorf("request to %s failed with status %d: %s", path, res.StatusCode(), res.String())
	}
	return nil
}

func (c *Client) Overview(ctx context.Context) (api.DashboardOverview, error) {
	var overview api.DashboardOverview
	err := c.get(ctx, "/dashboard/overview", nil, &overview)
	return overview, err
}

func (c *Client) ConversationStorage(ctx context.Context, limit int) ([]api.ConversationStorageStats, error) {
	var stats []api.ConversationStorageStats
	err := c.get(ctx, "/dashboard/conversations/storage", map[string]string{"limit": fmt.Sprint(limit)}, &stats)
	return stats, err
}

func (c *Client) ContentTypes(ctx context.Context) ([]api.ContentTypeStats, error) {
	var stats []api.ContentTypeStats
	err := c.get(ctx, "/dashboard/content/types", nil, &stats)
	return stats, err
}

func (c *Client) TimeSeries(ctx context.Context, period string) ([]api.TimeRangeStats, error) {
	var stats []api.TimeRangeStats
	err := c.get(ctx, "/dashboard/time-series", map[string]string{"period": period}, &stats)
	return stats, err
}
