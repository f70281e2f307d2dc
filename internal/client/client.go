// Package client talks to the candybooth HTTP API from the booth side.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	_ "golang.org/x/image/webp"
)

// DefaultTimeout bounds every request made with the default HTTP client.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// Option is one answer choice.
type Option struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

// Question is a survey question.
type Question struct {
	ID       int64    `json:"id"`
	Question string   `json:"question"`
	Options  []Option `json:"options"`
}

// Result is the public view of a result record.
type Result struct {
	ID            int64   `json:"id"`
	Answers       []int64 `json:"answers"`
	AppleCandyURL *string `json:"appleCandyUrl"`
	PhotoURL      *string `json:"photoUrl"`
}

// SubmitRequest is the survey-upload body.
type SubmitRequest struct {
	ResultID       int64   `json:"resultId"`
	Answers        []int64 `json:"answers"`
	TotalQuestions int     `json:"totalQuestions"`
	IsAdult        bool    `json:"isAdult"`
}

// SubmitResponse is the survey-upload reply.
type SubmitResponse struct {
	Success       bool   `json:"success"`
	ResultID      int64  `json:"resultId"`
	AppleCandyURL string `json:"appleCandyUrl"`
	SameCount     int    `json:"sameCount"`
	PastCount     int    `json:"pastCount"`
	Message       string `json:"message"`
}

// Client calls the API at a base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client. A nil httpClient uses one with DefaultTimeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateResult starts a new result and returns its id.
func (c *Client) CreateResult(ctx context.Context) (int64, error) {
	var out struct {
		ResultID int64 `json:"resultId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/results", "", nil, &out); err != nil {
		return 0, err
	}
	return out.ResultID, nil
}

// GetResult fetches a result.
func (c *Client) GetResult(ctx context.Context, id int64) (*Result, error) {
	var out struct {
		Result Result `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/results/"+strconv.FormatInt(id, 10), "", nil, &out); err != nil {
		return nil, err
	}
	return &out.Result, nil
}

// Questions lists the questions for one audience.
func (c *Client) Questions(ctx context.Context, isAdult bool) ([]Question, error) {
	var out struct {
		Questions []Question `json:"questions"`
	}
	path := "/api/questions?isAdult=" + strconv.FormatBool(isAdult)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out.Questions, nil
}

// SubmitAnswers sends a completed survey.
func (c *Client) SubmitAnswers(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var out SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/results/survey-upload", "application/json", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadPhoto sends a PNG photo as the multipart field "file" and returns
// the stored photo URL.
func (c *Client) UploadPhoto(ctx context.Context, resultID int64, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var out struct {
		PhotoURL string `json:"photoUrl"`
	}
	path := "/api/results/" + strconv.FormatInt(resultID, 10) + "/photo"
	if err := c.do(ctx, http.MethodPost, path, mw.FormDataContentType(), &body, &out); err != nil {
		return "", err
	}
	return out.PhotoURL, nil
}

// FetchImage downloads and decodes a PNG, JPEG or WebP image. Relative URLs
// resolve against the base URL.
func (c *Client) FetchImage(ctx context.Context, url string) (image.Image, error) {
	if strings.HasPrefix(url, "/") {
		url = c.baseURL + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: "image fetch failed"}
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", url, err)
	}
	return img, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
