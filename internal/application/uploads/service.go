package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// File is one uploaded blob (donation image) before storage.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// BlobStore is what the donations service needs from image storage.
type BlobStore interface {
	// UploadFiles stores all files and returns their storage paths, in order.
	UploadFiles(ctx context.Context, files []File) ([]string, error)
	// DeleteFile removes one stored object by path.
	DeleteFile(ctx context.Context, path string) error
}

// StorageClient defines what we need from Supabase storage.
type StorageClient interface {
	UploadObject(ctx context.Context, bucket, path, contentType string, content []byte) error
	DeleteObject(ctx context.Context, bucket, path string) error
}

// HTTPClient is a StorageClient backed by the Supabase storage HTTP API.
type HTTPClient struct {
	BaseURL   string
	SecretKey string
	Client    *http.Client
}

func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	// Supabase storage wants both apikey and Authorization Bearer (same key)
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	return c.Client.Do(req)
}

func (c *HTTPClient) check() error {
	if c.BaseURL == "" {
		return fmt.Errorf("supabase: SUPABASE_URL is not set")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("supabase: SUPABASE_SECRET_KEY is not set")
	}
	return nil
}

func (c *HTTPClient) UploadObject(ctx context.Context, bucket, path, contentType string, content []byte) error {
	if err := c.check(); err != nil {
		return err
	}
	base := strings.TrimRight(c.BaseURL, "/")
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", base, bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(content))
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		bodyStr := string(respBody)
		// 403 Unauthorized / Invalid Compact JWS = wrong API key (anon key sent as Bearer; need service_role)
		if (resp.StatusCode == 400 || resp.StatusCode == 403) &&
			(strings.Contains(bodyStr, "Invalid Compact JWS") || strings.Contains(bodyStr, "Unauthorized")) {
			return fmt.Errorf("supabase storage requires the service_role key (secret), not the anon key: set SUPABASE_SECRET_KEY to your project's service_role key (raw body: %s)", bodyStr)
		}
		return fmt.Errorf("supabase error: status %d body: %s", resp.StatusCode, bodyStr)
	}
	return nil
}

func (c *HTTPClient) DeleteObject(ctx context.Context, bucket, path string) error {
	if err := c.check(); err != nil {
		return err
	}
	base := strings.TrimRight(c.BaseURL, "/")
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", base, bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("supabase error: status %d body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Service stores donation images in one Supabase bucket.
type Service struct {
	Client      StorageClient
	SupabaseURL string
	Bucket      string
}

// UploadFiles uploads all files under timestamped paths and returns the paths.
// Files uploaded before a failure are deleted best-effort so a partial batch
// leaves no orphans.
func (s *Service) UploadFiles(ctx context.Context, files []File) ([]string, error) {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitizeName(f.Name))
		if err := s.Client.UploadObject(ctx, s.Bucket, path, f.ContentType, f.Content); err != nil {
			for _, p := range paths {
				_ = s.Client.DeleteObject(ctx, s.Bucket, p)
			}
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// DeleteFile removes one stored image by path.
func (s *Service) DeleteFile(ctx context.Context, path string) error {
	return s.Client.DeleteObject(ctx, s.Bucket, path)
}

// PublicURL returns the public URL for a stored image path.
func (s *Service) PublicURL(path string) string {
	base := strings.TrimRight(s.SupabaseURL, "/")
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", base, s.Bucket, path)
}

func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" {
		name = "file"
	}
	return name
}
