package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const defaultUploadURL = "https://content.dropboxapi.com/2/files/upload"

// Client uploads datastore backups to Dropbox using the content API.
type Client struct {
	Token     string
	UploadURL string
	HTTP      *http.Client
}

// New creates a Dropbox client.
func New(token string) *Client {
	return &Client{
		Token:     token,
		UploadURL: defaultUploadURL,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
	}
}

// UploadResult holds the response from Dropbox after a successful upload.
type UploadResult struct {
	Name        string `json:"name"`
	PathDisplay string `json:"path_display"`
	Size        int64  `json:"size"`
}

// Name returns the timestamped object name for a backup taken at now.
func Name(now time.Time) string {
	return "backup_" + now.Format("20060102_150405") + ".db"
}

// UploadFile uploads the file at path as /<name>.
func (c *Client) UploadFile(ctx context.Context, path, name string) (*UploadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dropbox: read %s failed: %w", path, err)
	}
	return c.Upload(ctx, data, name)
}

// Upload sends raw bytes to /<name> in the app folder, overwriting any
// previous backup with the same name.
func (c *Client) Upload(ctx context.Context, data []byte, name string) (*UploadResult, error) {
	args, err := json.Marshal(map[string]any{
		"path": "/" + name,
		"mode": "overwrite",
		"mute": true,
	})
	if err != nil {
		return nil, fmt.Errorf("dropbox: encode args failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.UploadURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("dropbox: create request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Dropbox-API-Arg", string(args))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dropbox: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("dropbox: upload failed (%d): %s", resp.StatusCode, string(body))
	}

	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("dropbox: decode response failed: %w", err)
	}
	return &result, nil
}
