package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/semweave/semweave/internal/types"
)

// UploadOntology uploads a Turtle ontology document and returns its
// content-addressed reference.
func (c *Client) UploadOntology(ctx context.Context, namespace, name string, turtle []byte) (*types.OntologyRef, error) {
	path := fmt.Sprintf("/api/v1/ontologies/%s/%s", namespace, name)
	resp, err := c.doRawRequest(ctx, http.MethodPost, path, turtle, "text/turtle")
	if err != nil {
		return nil, err
	}
	var ref types.OntologyRef
	if err := parseResponse(resp, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// OntologySummary describes a stored ontology.
type OntologySummary struct {
	Ref        types.OntologyRef `json:"ref"`
	Classes    int               `json:"classes"`
	Properties int               `json:"properties"`
	Metadata   map[string]string `json:"metadata"`
}

// GetOntology returns the summary of a stored ontology.
func (c *Client) GetOntology(ctx context.Context, ref types.OntologyRef) (*OntologySummary, error) {
	path := fmt.Sprintf("/api/v1/ontologies/%s/%s/%s", ref.Namespace, ref.Name, ref.ContentHash)
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	var summary OntologySummary
	if err := parseResponse(resp, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
