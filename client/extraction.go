package client

import (
	"context"
	"net/http"

	"github.com/semweave/semweave/internal/types"
)

// StartExtractionRequest mirrors the POST /extractions body.
type StartExtractionRequest struct {
	DocumentURI string           `json:"document_uri"`
	Text        string           `json:"text"`
	Config      *types.RunConfig `json:"config,omitempty"`
	Wait        bool             `json:"wait,omitempty"`
}

// StartExtraction starts an extraction run. With Wait set the server
// processes the run before responding.
func (c *Client) StartExtraction(ctx context.Context, req *StartExtractionRequest) (*types.ExtractionRun, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/extractions", req, nil)
	if err != nil {
		return nil, err
	}
	var run types.ExtractionRun
	if err := parseResponse(resp, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetExtraction returns the state of a run.
func (c *Client) GetExtraction(ctx context.Context, runID string) (*types.ExtractionRun, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/extractions/"+runID, nil, nil)
	if err != nil {
		return nil, err
	}
	var run types.ExtractionRun
	if err := parseResponse(resp, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetExtractionCheckpoints returns the validation-loop checkpoints of a run.
func (c *Client) GetExtractionCheckpoints(ctx context.Context, runID string) ([]types.ValidationCheckpoint, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/extractions/"+runID+"/checkpoints", nil, nil)
	if err != nil {
		return nil, err
	}
	var checkpoints []types.ValidationCheckpoint
	if err := parseResponse(resp, &checkpoints); err != nil {
		return nil, err
	}
	return checkpoints, nil
}
