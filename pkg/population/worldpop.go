// Package population estimates the residential population inside a site's
// catchment circle using the WorldPop statistics service.
package population

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/osm"
	"github.com/paulmach/orb/geojson"
)

const (
	// Dataset is the WorldPop global per-country population grid.
	Dataset = "wpgppop"
	// DefaultYear is the most recent year published for Dataset.
	DefaultYear = 2020

	DefaultPollInterval = 2 * time.Second
	DefaultMaxPolls     = 30

	// circleSegments is the vertex count of the polygon sent to WorldPop
	circleSegments = 64
)

// ErrTaskPending is returned when a task is still running after MaxPolls.
var ErrTaskPending = errors.New("worldpop task still pending")

// Estimate is the population inside a circle.
type Estimate struct {
	Total         float64 `json:"total"`
	Year          int     `json:"year"`
	AreaKm2       float64 `json:"area_km2"`
	DensityPerKm2 float64 `json:"density_per_km2"`
	Source        string  `json:"source"`
}

// Options configures a Client.
type Options struct {
	Year         int
	PollInterval time.Duration
	MaxPolls     int
	Logger       *slog.Logger
}

// Client talks to the WorldPop stats API through the shared osm client.
type Client struct {
	client       *osm.Client
	year         int
	pollInterval time.Duration
	maxPolls     int
	logger       *slog.Logger
}

// NewClient creates a WorldPop client.
func NewClient(client *osm.Client, opts Options) *Client {
	if opts.Year <= 0 {
		opts.Year = DefaultYear
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = DefaultMaxPolls
	}
	if opts.Logger == nil {
		opts.Logger = client.Logger()
	}
	return &Client{
		client:       client,
		year:         opts.Year,
		pollInterval: opts.PollInterval,
		maxPolls:     opts.MaxPolls,
		logger:       opts.Logger.With("component", "population"),
	}
}

// Year returns the dataset year requested by the client.
func (c *Client) Year() int { return c.year }

// taskResponse is the envelope used by both the stats and tasks endpoints.
type taskResponse struct {
	Status       string `json:"status"`
	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message"`
	TaskID       string `json:"taskid"`
	Data         *struct {
		TotalPopulation float64 `json:"total_population"`
	} `json:"data"`
}

// CircleGeoJSON returns the FeatureCollection describing the catchment circle.
func CircleGeoJSON(center geo.Location, radius float64) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(geo.Circle(center, radius, circleSegments))
	f.Properties["radius_m"] = radius
	fc.Append(f)
	return fc.MarshalJSON()
}

// Total returns the population living inside the circle.
func (c *Client) Total(ctx context.Context, center geo.Location, radius float64) (Estimate, error) {
	if err := geo.ValidateCoords(center.Latitude, center.Longitude); err != nil {
		return Estimate{}, err
	}
	if err := geo.ValidateRadius(radius, geo.MaxSiteRadius); err != nil {
		return Estimate{}, err
	}

	body, err := CircleGeoJSON(center, radius)
	if err != nil {
		return Estimate{}, fmt.Errorf("failed to encode catchment polygon: %w", err)
	}

	form := url.Values{}
	form.Set("dataset", Dataset)
	form.Set("year", strconv.Itoa(c.year))
	form.Set("geojson", string(body))
	form.Set("runasync", "false")

	base := strings.TrimRight(c.client.Endpoints().WorldPop, "/")
	req, err := c.client.NewRequest(ctx, http.MethodPost, base+"/v1/services/stats", strings.NewReader(form.Encode()))
	if err != nil {
		return Estimate{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	task, err := c.do(ctx, req)
	if err != nil {
		return Estimate{}, err
	}

	for polls := 0; task.Status != "finished"; polls++ {
		if polls >= c.maxPolls {
			return Estimate{}, &osm.APIError{
				Service:     osm.ServiceWorldPop,
				StatusCode:  http.StatusAccepted,
				Message:     fmt.Sprintf("task %s: %s", task.TaskID, ErrTaskPending),
				Recoverable: true,
				Guidance:    osm.GuidanceWorldPopPending,
				Err:         ErrTaskPending,
			}
		}
		if task.TaskID == "" {
			return Estimate{}, osm.NewDataError(osm.ServiceWorldPop,
				fmt.Errorf("status %q without task id", task.Status))
		}

		select {
		case <-ctx.Done():
			return Estimate{}, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		c.logger.Debug("polling worldpop task", "task", task.TaskID, "status", task.Status)
		task, err = c.poll(ctx, base, task.TaskID)
		if err != nil {
			return Estimate{}, err
		}
	}

	if task.Data == nil {
		return Estimate{}, osm.NewDataError(osm.ServiceWorldPop, errors.New("finished task has no data"))
	}

	area := geo.CircleAreaKm2(center, radius)
	est := Estimate{
		Total:   math.Round(task.Data.TotalPopulation),
		Year:    c.year,
		AreaKm2: area,
		Source:  osm.ServiceWorldPop,
	}
	if area > 0 {
		est.DensityPerKm2 = est.Total / area
	}
	return est, nil
}

func (c *Client) poll(ctx context.Context, base, taskID string) (*taskResponse, error) {
	req, err := c.client.NewRequest(ctx, http.MethodGet, base+"/v1/tasks/"+url.PathEscape(taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req *http.Request) (*taskResponse, error) {
	resp, err := c.client.Do(ctx, osm.ServiceWorldPop, req)
	if err != nil {
		return nil, err
	}
	if err := osm.CheckStatus(osm.ServiceWorldPop, resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var task taskResponse
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, osm.NewDataError(osm.ServiceWorldPop, err)
	}
	if task.Error || task.Status == "failed" {
		msg := task.ErrorMessage
		if msg == "" {
			msg = "task failed"
		}
		return nil, osm.NewAPIError(osm.ServiceWorldPop, http.StatusOK, msg, osm.GuidanceGeneral)
	}
	return &task, nil
}
