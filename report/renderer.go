// Package report wraps the external certificate renderer. Rendering is a
// blocking call against a Gotenberg-style HTTP service; the engine imposes no
// timeout of its own beyond the HTTP client's.
package report

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"time"
)

// Client wraps interactions with the renderer API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ping checks if the remote renderer is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("renderer returned status %d", resp.StatusCode)
	}
	return nil
}

// Render produces the certificate blob for the given template kind and data
// bag. Layout lives in the renderer; this client only lays the fields out as
// a minimal HTML source for conversion.
func (c *Client) Render(ctx context.Context, kind string, data map[string]any) ([]byte, error) {
	return c.renderHTML(ctx, certificateHTML(kind, data))
}

func certificateHTML(kind string, data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "<html><body><h1>%s</h1><dl>", html.EscapeString(kind))
	for _, k := range keys {
		fmt.Fprintf(buf, "<dt>%s</dt><dd>%s</dd>",
			html.EscapeString(k), html.EscapeString(fmt.Sprint(data[k])))
	}
	buf.WriteString("</dl></body></html>")
	return buf.String()
}

func (c *Client) renderHTML(ctx context.Context, source string) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "document.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, bytes.NewBufferString(source)); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/forms/chromium/convert/html", c.baseURL), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("render failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
