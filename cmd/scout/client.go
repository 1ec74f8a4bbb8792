package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wricardo/overland/game/engine"
	"github.com/wricardo/overland/game/service"
)

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Message)
}

// isRejectedOrder reports whether the server refused an order (unreachable, combat, no movement)
func isRejectedOrder(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity
}

// Client drives one session through the REST API
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &errResp) != nil || errResp.Error == "" {
			errResp.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix
}

func (c *Client) CreateSession(ctx context.Context, configID string) (*service.SessionInfo, error) {
	var body any
	if configID != "" {
		body = map[string]string{"config_id": configID}
	}

	var session service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = session.ID
	return &session, nil
}

func (c *Client) GetSession(ctx context.Context) (*service.SessionInfo, error) {
	var session service.SessionInfo
	if err := c.do(ctx, http.MethodGet, c.sessionPath(""), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

type stateResponse struct {
	Message string            `json:"message"`
	State   *engine.GameState `json:"state"`
}

func (c *Client) Reset(ctx context.Context) (*engine.GameState, error) {
	var resp stateResponse
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/reset"), nil, &resp); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return resp.State, nil
}

func (c *Client) EndTurn(ctx context.Context) (*engine.GameState, error) {
	var resp stateResponse
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/end-turn"), nil, &resp); err != nil {
		return nil, fmt.Errorf("end turn: %w", err)
	}
	return resp.State, nil
}

func (c *Client) Stacks(ctx context.Context, playerID int) ([]service.StackEvaluation, error) {
	var resp struct {
		Stacks []service.StackEvaluation `json:"stacks"`
	}
	path := c.sessionPath("/stacks?player=" + strconv.Itoa(playerID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("stacks: %w", err)
	}
	return resp.Stacks, nil
}

func (c *Client) MovementRange(ctx context.Context, playerID int, unitIDs []int) (*service.MovementRange, error) {
	ids := make([]string, len(unitIDs))
	for i, id := range unitIDs {
		ids[i] = strconv.Itoa(id)
	}
	query := url.Values{}
	query.Set("player", strconv.Itoa(playerID))
	query.Set("units", strings.Join(ids, ","))

	var rng service.MovementRange
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/movement?"+query.Encode()), nil, &rng); err != nil {
		return nil, fmt.Errorf("movement range: %w", err)
	}
	return &rng, nil
}

func (c *Client) Move(ctx context.Context, playerID int, unitIDs []int, to engine.Coordinate) (*service.MoveResult, error) {
	body := map[string]any{
		"player_id": playerID,
		"unit_ids":  unitIDs,
		"to":        to,
	}

	var result service.MoveResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/move"), body, &result); err != nil {
		return nil, fmt.Errorf("move: %w", err)
	}
	return &result, nil
}
