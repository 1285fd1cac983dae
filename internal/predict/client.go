// Package predict talks to the crop/soil prediction service.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"soilnode/internal/state"
)

const (
	predictPath = "/predict"
	healthPath  = "/"

	// The probe has no rain gauge; the service expects the field anyway.
	defaultRainfall = 200
)

type Client struct {
	base   string
	client *http.Client
}

func New(host string, port int, timeout time.Duration) *Client {
	return &Client{
		base:   fmt.Sprintf("http://%s:%d", host, port),
		client: &http.Client{Timeout: timeout},
	}
}

// request carries the raw tenths-scaled integers; the service owns the
// unit conversion.
type request struct {
	Nitrogen    int `json:"nitrogen"`
	Phosphorus  int `json:"phosphorus"`
	Potassium   int `json:"potassium"`
	PH          int `json:"ph"`
	Temperature int `json:"temperature"`
	Humidity    int `json:"humidity"`
	Rainfall    int `json:"rainfall"`
}

// response mirrors the service payload. Pointer fields mark keys the
// service may omit; absent keys must leave the previous prediction
// values untouched.
type response struct {
	Predictions struct {
		RecommendedCrop *string  `json:"recommended_crop"`
		CropConfidence  *float64 `json:"crop_confidence"`
		SoilFertility   *string  `json:"soil_fertility"`
		SoilConfidence  *float64 `json:"soil_confidence"`
	} `json:"predictions"`
	Recommendations []string `json:"recommendations"`
}

// Report posts the sample and merges the reply into prev. A transport
// failure, non-2xx status or undecodable body returns an error and prev
// unchanged; retrying is the caller's cadence, not this client's.
func (c *Client) Report(ctx context.Context, sample state.SoilSample, prev state.Prediction) (state.Prediction, error) {
	body := request{
		Nitrogen:    int(sample.Nitrogen),
		Phosphorus:  int(sample.Phosphorus),
		Potassium:   int(sample.Potassium),
		PH:          int(sample.PH),
		Temperature: int(sample.Temperature),
		Humidity:    int(sample.Humidity),
		Rainfall:    defaultRainfall,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return prev, fmt.Errorf("marshal sample: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+predictPath, bytes.NewReader(data))
	if err != nil {
		return prev, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return prev, fmt.Errorf("predict request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return prev, fmt.Errorf("predict status %d", resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return prev, fmt.Errorf("decode prediction: %w", err)
	}

	return merge(prev, out), nil
}

// merge applies the present keys over prev and keeps the rest.
func merge(prev state.Prediction, out response) state.Prediction {
	next := prev
	if v := out.Predictions.RecommendedCrop; v != nil {
		next.Crop = *v
	}
	if v := out.Predictions.CropConfidence; v != nil {
		next.CropConfidence = *v
	}
	if v := out.Predictions.SoilFertility; v != nil {
		next.Fertility = *v
	}
	if v := out.Predictions.SoilConfidence; v != nil {
		next.FertilityConfidence = *v
	}
	if out.Recommendations != nil {
		next.Advice = out.Recommendations
	}
	return next
}

// Ping checks the service's health endpoint. Informational only: the node
// runs regardless of the outcome.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+healthPath, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}
