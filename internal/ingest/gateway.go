package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// GatewayClient talks to the native bridge gateway: the companion endpoint
// exposed by the mobile shell that proxies anchored queries to the on-device
// health SDK. It implements both HealthKitStore and GoogleFitStore; which
// one is meaningful depends on the device platform behind the gateway.
type GatewayClient struct {
	baseURL string
	client  *http.Client
}

// NewGatewayClient constructs a client for the given base URL.
func NewGatewayClient(baseURL string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// QueryWorkouts implements HealthKitStore.
func (c *GatewayClient) QueryWorkouts(ctx context.Context, anchor string) (HealthKitWorkoutBatch, error) {
	var batch HealthKitWorkoutBatch
	err := c.get(ctx, "/healthkit/workouts", url.Values{"anchor": {anchor}}, &batch)
	return batch, err
}

// QueryHeartRate implements HealthKitStore.
func (c *GatewayClient) QueryHeartRate(ctx context.Context, anchor string) (HealthKitQuantityBatch, error) {
	var batch HealthKitQuantityBatch
	err := c.get(ctx, "/healthkit/heart-rate", url.Values{"anchor": {anchor}}, &batch)
	return batch, err
}

// WorkoutSessions implements GoogleFitStore.
func (c *GatewayClient) WorkoutSessions(ctx context.Context, start, end time.Time) ([]GoogleFitSession, error) {
	var sessions []GoogleFitSession
	err := c.get(ctx, "/googlefit/sessions", rangeQuery(start, end), &sessions)
	return sessions, err
}

// HeartRateSamples implements GoogleFitStore.
func (c *GatewayClient) HeartRateSamples(ctx context.Context, start, end time.Time) ([]GoogleFitHeartRate, error) {
	var samples []GoogleFitHeartRate
	err := c.get(ctx, "/googlefit/heart-rate", rangeQuery(start, end), &samples)
	return samples, err
}

func rangeQuery(start, end time.Time) url.Values {
	return url.Values{
		"start": {start.UTC().Format(time.RFC3339)},
		"end":   {end.UTC().Format(time.RFC3339)},
	}
}

func (c *GatewayClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway %s returned %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
