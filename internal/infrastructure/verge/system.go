package verge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Logs returns the most recent log entries, newest first. An empty level
// returns every level.
func (c *Client) Logs(ctx context.Context, limit int, level string) ([]LogEntry, error) {
	q := Page{Limit: limit}.apply(url.Values{"sort": []string{"-timestamp"}})
	if level != "" {
		q.Set("filter", "level eq '"+level+"'")
	}

	var entries []LogEntry
	if err := c.do(ctx, http.MethodGet, "/api/v4/logs", q, nil, &entries); err != nil {
		return nil, fmt.Errorf("get logs: %w", err)
	}
	return entries, nil
}

// Alarms returns the active alarms.
func (c *Client) Alarms(ctx context.Context) ([]Alarm, error) {
	var alarms []Alarm
	if err := c.do(ctx, http.MethodGet, "/api/v4/alarms", nil, nil, &alarms); err != nil {
		return nil, fmt.Errorf("get alarms: %w", err)
	}
	return alarms, nil
}

// ClusterStatus returns capacity and usage for every cluster.
func (c *Client) ClusterStatus(ctx context.Context) ([]ClusterStatus, error) {
	var clusters []ClusterStatus
	if err := c.do(ctx, http.MethodGet, "/api/v4/cluster_status", nil, nil, &clusters); err != nil {
		return nil, fmt.Errorf("get cluster status: %w", err)
	}
	return clusters, nil
}

// GiB converts a size in GiB to bytes.
func GiB(n int) int64 {
	return int64(n) << 30
}
