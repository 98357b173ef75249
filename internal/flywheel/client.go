// Package flywheel is a small client for the data-management API the gear
// reads its inputs from.
package flywheel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-resty/resty/v2"
)

// File is a file attached to a container
type File struct {
	Name           string              `json:"name"`
	Type           string              `json:"type"`
	Size           int64               `json:"size"`
	Classification map[string][]string `json:"classification"`
	Info           map[string]any      `json:"info"`
}

// Parents references the containers above an acquisition
type Parents struct {
	Group   string `json:"group"`
	Project string `json:"project"`
	Subject string `json:"subject"`
	Session string `json:"session"`
}

// Acquisition is a single scan and its files
type Acquisition struct {
	ID      string  `json:"_id"`
	Label   string  `json:"label"`
	Parents Parents `json:"parents"`
	Files   []File  `json:"files"`
}

// Subject is the subject a session belongs to
type Subject struct {
	ID    string `json:"_id"`
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Session is a scanning session
type Session struct {
	ID      string  `json:"_id"`
	Label   string  `json:"label"`
	Subject Subject `json:"subject"`
}

type apiError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// ParseAPIKey derives the API base URL from a key of the form
// host[:port]:secret
func ParseAPIKey(key string) (string, error) {
	parts := strings.Split(key, ":")
	if len(parts) < 2 || parts[0] == "" || parts[len(parts)-1] == "" {
		return "", errors.New("invalid api key: expected host[:port]:secret")
	}

	host := parts[0]
	if len(parts) > 2 {
		host += ":" + parts[1]
	}
	return "https://" + host + "/api", nil
}

// jsonContentType is forced on metadata requests. A response without a JSON
// Content-Type would otherwise leave the result empty.
const jsonContentType = "application/json"

// Client talks to the data API
type Client struct {
	http *resty.Client
}

// NewClient returns a client for the API at baseURL authenticating with apiKey
func NewClient(baseURL, apiKey string) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Authorization", "scitran-user "+apiKey).
		SetHeader("Accept", "application/json").
		SetError(&apiError{})

	return &Client{http: c}
}

// Acquisition fetches an acquisition with its file list
func (c *Client) Acquisition(ctx context.Context, id string) (*Acquisition, error) {
	var acq Acquisition
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&acq).
		ForceContentType(jsonContentType).
		Get("/acquisitions/{id}")
	if err := checkResponse(resp, err, "acquisition "+id); err != nil {
		return nil, err
	}
	return &acq, nil
}

// Session fetches a session including its subject
func (c *Client) Session(ctx context.Context, id string) (*Session, error) {
	var ses Session
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&ses).
		ForceContentType(jsonContentType).
		Get("/sessions/{id}")
	if err := checkResponse(resp, err, "session "+id); err != nil {
		return nil, err
	}
	return &ses, nil
}

// DownloadAcquisitionFile writes the named acquisition file to dest
func (c *Client) DownloadAcquisitionFile(ctx context.Context, acquisitionID, name, dest string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"id": acquisitionID, "name": name}).
		SetOutput(dest).
		Get("/acquisitions/{id}/files/{name}")
	if err := checkResponse(resp, err, "file "+name); err != nil {
		_ = os.Remove(dest)
		return err
	}
	return nil
}

func checkResponse(resp *resty.Response, err error, what string) error {
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", what, err)
	}
	if resp.IsError() {
		if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Message != "" {
			return fmt.Errorf("failed to fetch %s: %s: %s", what, resp.Status(), apiErr.Message)
		}
		return fmt.Errorf("failed to fetch %s: %s", what, resp.Status())
	}
	return nil
}
