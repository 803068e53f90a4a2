package generate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ScoreFM/logger"
)

// Adapter failure modes surfaced to workers and, through them, to the
// task registry.
var (
	// ErrNoToken means no API credential is configured; the adapter is
	// unavailable rather than broken.
	ErrNoToken = errors.New("no Replicate API token configured")

	// ErrNoAudio means the API answered but no audio URL could be
	// located anywhere in the response shape.
	ErrNoAudio = errors.New("generative API returned no audio URL")
)

// Input is the payload sent to the generative model.
type Input struct {
	Prompt    string
	Duration  int
	SeedAudio []byte // optional; sent as a data URI when present
}

// Client drives a Replicate-style prediction API: create a prediction,
// poll it to a terminal state, and hand back the raw output value.
type Client struct {
	baseURL    string
	token      string
	model      string
	httpClient *http.Client
	pollEvery  time.Duration
}

// NewClient creates a generative-audio client. An empty token is
// allowed; calls then fail with ErrNoToken.
func NewClient(baseURL, token, model string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		model:   model,
		httpClient: &http.Client{
			Timeout: time.Second * 60,
		},
		pollEvery: 2 * time.Second,
	}
}

// SetPollInterval overrides the prediction poll interval.
func (c *Client) SetPollInterval(d time.Duration) {
	c.pollEvery = d
}

// prediction mirrors the slice of the API response the client needs.
type prediction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output any    `json:"output"`
	Error  any    `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// Generate runs one prediction and returns the normalized audio URL.
func (c *Client) Generate(ctx context.Context, in Input) (string, error) {
	if c.token == "" {
		return "", ErrNoToken
	}

	input := map[string]any{
		"prompt":                 in.Prompt,
		"duration":               in.Duration,
		"output_format":          "mp3",
		"normalization_strategy": "peak",
	}
	if len(in.SeedAudio) > 0 {
		// The API accepts file inputs as data URIs.
		input["input_audio"] = "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(in.SeedAudio)
		input["continuation"] = false
	}

	pred, err := c.createPrediction(ctx, input)
	if err != nil {
		return "", err
	}

	pred, err = c.waitForPrediction(ctx, pred)
	if err != nil {
		return "", err
	}

	url, ok := ExtractAudioURL(pred.Output)
	if !ok {
		logger.Warn("no audio URL in prediction output",
			logger.String("prediction", pred.ID),
			logger.Any("output", pred.Output))
		return "", ErrNoAudio
	}
	return url, nil
}

func (c *Client) createPrediction(ctx context.Context, input map[string]any) (*prediction, error) {
	body, err := json.Marshal(map[string]any{"input": input})
	if err != nil {
		return nil, fmt.Errorf("encoding prediction input: %w", err)
	}

	url := fmt.Sprintf("%s/v1/models/%s/predictions", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building prediction request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	return c.doPrediction(req)
}

// waitForPrediction polls until the prediction reaches a terminal
// state. The prediction API reports starting/processing before
// succeeded/failed/canceled.
func (c *Client) waitForPrediction(ctx context.Context, pred *prediction) (*prediction, error) {
	for {
		switch pred.Status {
		case "succeeded":
			return pred, nil
		case "failed", "canceled":
			return nil, fmt.Errorf("prediction %s %s: %v", pred.ID, pred.Status, pred.Error)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for prediction %s: %w", pred.ID, ctx.Err())
		case <-time.After(c.pollEvery):
		}

		getURL := pred.URLs.Get
		if getURL == "" {
			getURL = fmt.Sprintf("%s/v1/predictions/%s", c.baseURL, pred.ID)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, getURL, nil)
		if err != nil {
			return nil, fmt.Errorf("building poll request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)

		pred, err = c.doPrediction(req)
		if err != nil {
			return nil, err
		}
	}
}

func (c *Client) doPrediction(req *http.Request) (*prediction, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling generative API: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading generative API response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generative API returned %d: %s", resp.StatusCode, data)
	}

	var pred prediction
	if err := json.Unmarshal(data, &pred); err != nil {
		return nil, fmt.Errorf("decoding prediction: %w", err)
	}
	return &pred, nil
}
