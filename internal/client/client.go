// CLASSIFICATION: COMMUNITY
// Filename: client.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

// Package client talks to a running gym server over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"wolfgym/internal/api"
	"wolfgym/internal/gym"
)

// Client is a gym API client. The zero value is not usable; use New.
type Client struct {
	base string
	http *http.Client
	user string
	pass string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBasicAuth sets credentials for the step and reset endpoints.
func WithBasicAuth(user, pass string) Option {
	return func(c *Client) { c.user, c.pass = user, pass }
}

// New returns a client for the server at base, e.g. http://127.0.0.1:7878.
func New(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gym: %d %s", e.Code, strings.TrimSpace(e.Body))
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(msg)}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, method, path string, body io.Reader, v any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Screen fetches and decodes the latest frame of one agent.
func (c *Client) Screen(ctx context.Context, agent int) (image.Image, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/screen.png?agent=%d", agent), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	img, err := png.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode screen: %w", err)
	}
	return img, nil
}

// Step sends one action for agent 0; the other agents stay idle.
func (c *Client) Step(ctx context.Context, action string) (gym.StepResult, error) {
	var res gym.StepResult
	err := c.getJSON(ctx, http.MethodPost, "/step", strings.NewReader(action), &res)
	return res, err
}

// StepAll sends one action per agent; nil entries leave that agent idle.
func (c *Client) StepAll(ctx context.Context, actions []*string) ([]gym.StepResult, error) {
	body, err := json.Marshal(actions)
	if err != nil {
		return nil, err
	}
	var res []gym.StepResult
	err = c.getJSON(ctx, http.MethodPost, "/step", bytes.NewReader(body), &res)
	return res, err
}

// Reset requests a new round. With wait it returns once the round exists.
func (c *Client) Reset(ctx context.Context, wait bool) error {
	path := "/reset"
	if wait {
		path += "?wait=true"
	}
	var ok string
	return c.getJSON(ctx, http.MethodPost, path, nil, &ok)
}

// State decodes the last environment snapshot into v.
func (c *Client) State(ctx context.Context, v any) error {
	return c.getJSON(ctx, http.MethodGet, "/state.json", nil, v)
}

// Status returns the server status.
func (c *Client) Status(ctx context.Context) (api.StatusResponse, error) {
	var st api.StatusResponse
	err := c.getJSON(ctx, http.MethodGet, "/api/status", nil, &st)
	return st, err
}

// Episodes lists recent episodes, newest first.
func (c *Client) Episodes(ctx context.Context, limit int) ([]gym.EpisodeSummary, error) {
	var list []gym.EpisodeSummary
	err := c.getJSON(ctx, http.MethodGet, fmt.Sprintf("/api/episodes?limit=%d", limit), nil, &list)
	return list, err
}
