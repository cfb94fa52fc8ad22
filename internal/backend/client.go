// Package backend is the client for the platform REST backend: the service
// that owns durable chat history and the public staff directories. The hub
// treats it as a best-effort collaborator; a slow or dead backend must
// never delay real-time relaying.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"vetline/backend/internal/models"
)

const requestTimeout = 5 * time.Second

// Counsellor is a staff directory entry as served by the backend.
type Counsellor struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Title        string   `json:"title"`
	Specialities []string `json:"specialities"`
}

// PeerSupporter is a peer directory entry as served by the backend.
type PeerSupporter struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Service  string `json:"service"`
	YearsOut int    `json:"years_out"`
}

// Client talks to the REST backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a backend client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// PersistMessage archives a relayed chat message, fire-and-forget. The
// relay has already happened by the time this runs; failure is logged and
// the message is lost from history but not from the conversation.
func (c *Client) PersistMessage(msg models.ChatMessage) {
	go func() {
		body, err := json.Marshal(msg)
		if err != nil {
			log.Printf("ERROR: failed to encode message %s for persistence: %v", msg.MessageID, err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/messages", bytes.NewReader(body))
		if err != nil {
			log.Printf("ERROR: failed to build persistence request: %v", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			log.Printf("WARNING: message %s not persisted: %v", msg.MessageID, err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			log.Printf("WARNING: message %s not persisted: backend returned %d", msg.MessageID, resp.StatusCode)
		}
	}()
}

// ListCounsellors fetches the public counsellor directory.
func (c *Client) ListCounsellors(ctx context.Context) ([]Counsellor, error) {
	var out []Counsellor
	if err := c.getJSON(ctx, "/api/counsellors", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPeerSupporters fetches the public peer supporter directory.
func (c *Client) ListPeerSupporters(ctx context.Context) ([]PeerSupporter, error) {
	var out []PeerSupporter
	if err := c.getJSON(ctx, "/api/peer-supporters", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
