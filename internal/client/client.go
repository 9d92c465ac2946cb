// Package client talks to a running sona server.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"sona/internal/server"
)

// Client is an HTTP client for the sona API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a client for baseURL, e.g. "http://127.0.0.1:36055".
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    http.DefaultClient,
	}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sona server: %d %s", e.Status, e.Message)
}

// Health mirrors GET /health.
type Health struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Ready reports whether the server has a model loaded.
func (h Health) Ready() bool { return h.Status == "ready" }

// TranscribeRequest describes one upload.
type TranscribeRequest struct {
	File           string
	Language       string
	Prompt         string
	ResponseFormat string
	DetectLanguage bool
	EnhanceAudio   bool
}

// Health queries server state.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return h, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return h, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return h, err
	}
	return h, json.NewDecoder(resp.Body).Decode(&h)
}

// LoadModel asks the server to swap to the model at path (or a bare name
// in the server's model dir).
func (c *Client) LoadModel(ctx context.Context, path string) error {
	body, err := json.Marshal(map[string]string{"path": path})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/models/load", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// Transcribe uploads a file and returns the response body. For the json
// format only the text field is returned.
func (c *Client) Transcribe(ctx context.Context, tr TranscribeRequest) (string, error) {
	resp, err := c.upload(ctx, tr, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", err
	}
	if tr.ResponseFormat == "" || tr.ResponseFormat == "json" {
		var out struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		return out.Text, nil
	}
	data, err := io.ReadAll(resp.Body)
	return string(data), err
}

// Stream uploads a file with stream=true and calls fn for every event.
// It returns the final text, or the server's error event as an error.
func (c *Client) Stream(ctx context.Context, tr TranscribeRequest, fn func(server.StreamEvent)) (string, error) {
	resp, err := c.upload(ctx, tr, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", err
	}
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev server.StreamEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return "", fmt.Errorf("decode event: %w", err)
		}
		if fn != nil {
			fn(ev)
		}
		switch ev.Type {
		case server.EventResult:
			return ev.Text, nil
		case server.EventError:
			return "", fmt.Errorf("sona server: %s", ev.Error)
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("sona server: stream ended without result")
}

// upload streams the multipart body through a pipe so large files are not
// buffered in memory.
func (c *Client) upload(ctx context.Context, tr TranscribeRequest, stream bool) (*http.Response, error) {
	f, err := os.Open(tr.File)
	if err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer f.Close()
		err := writeForm(mw, f, filepath.Base(tr.File), tr, stream)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/audio/transcriptions", pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.HTTP.Do(req)
}

func writeForm(mw *multipart.Writer, r io.Reader, name string, tr TranscribeRequest, stream bool) error {
	fields := [][2]string{
		{"language", tr.Language},
		{"prompt", tr.Prompt},
		{"response_format", tr.ResponseFormat},
	}
	if tr.DetectLanguage {
		fields = append(fields, [2]string{"detect_language", "true"})
	}
	if tr.EnhanceAudio {
		fields = append(fields, [2]string{"enhance_audio", "true"})
	}
	if stream {
		fields = append(fields, [2]string{"stream", strconv.FormatBool(stream)})
	}
	for _, kv := range fields {
		if kv[1] == "" {
			continue
		}
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, r)
	return err
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
