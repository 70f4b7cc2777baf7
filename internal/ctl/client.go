package ctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"domainhub/pkg/api"
)

// Client talks to the admin surface of a running domainhub server.
type Client struct {
	BaseURL string
	Token   string

	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// do performs a request against the admin API and decodes the envelope
// into out (which may be nil when only the status matters).
func (c *Client) do(method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var envelope api.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("unexpected response (%d): %s", resp.StatusCode, raw)
	}
	if !envelope.OK {
		return fmt.Errorf("%s: %s", envelope.ErrorCode, envelope.ErrorMessage)
	}
	if out != nil {
		data, err := json.Marshal(envelope.Data)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, out)
	}
	return nil
}
