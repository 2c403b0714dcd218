package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"getcanvapro/cmd/internal/storage"
)

// ApplyPath is the intake endpoint path.
const ApplyPath = "/api/internship/apply"

// Form is what an applicant fills in. Resume holds the file contents; nil means
// no file was chosen. Submit never modifies a Form, so it can be resent as-is.
type Form struct {
	Name       string
	Email      string
	Phone      string
	ResumeName string
	Resume     []byte
}

// SubmitError is a failed submission as the applicant should see it.
type SubmitError struct {
	Status  int // 0 when the request never got a response
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message }

func (e *SubmitError) Unwrap() error { return e.Err }

// Client submits applications to a running server.
type Client struct {
	baseURL  string
	http     *http.Client
	maxBytes int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithMaxResumeBytes overrides the local résumé cap.
func WithMaxResumeBytes(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// NewClient returns a client for the server at baseURL (e.g. "https://getcanvapro.in").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:     &http.Client{Timeout: 60 * time.Second},
		maxBytes: DefaultMaxResumeBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Submit validates f locally and, only if it passes, posts it.
// Local failures are returned as from ValidateFields and CheckResume;
// server or transport failures are *SubmitError.
func (c *Client) Submit(ctx context.Context, f Form) (storage.Application, error) {
	if err := ValidateFields(f.Name, f.Email, f.Phone, f.Resume != nil); err != nil {
		return storage.Application{}, err
	}
	if err := CheckResume(f.ResumeName, int64(len(f.Resume)), c.maxBytes); err != nil {
		return storage.Application{}, err
	}

	body, contentType, err := encodeForm(f)
	if err != nil {
		return storage.Application{}, &SubmitError{Message: MsgTryAgainLater, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ApplyPath, body)
	if err != nil {
		return storage.Application{}, &SubmitError{Message: MsgTryAgainLater, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return storage.Application{}, &SubmitError{Message: MsgTryAgainLater, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return storage.Application{}, &SubmitError{Status: resp.StatusCode, Message: MsgTryAgainLater, Err: err}
	}

	if resp.StatusCode != http.StatusCreated {
		return storage.Application{}, decodeSubmitError(resp.StatusCode, raw)
	}

	var ok applyResponse
	if err := json.Unmarshal(raw, &ok); err != nil {
		return storage.Application{}, &SubmitError{Status: resp.StatusCode, Message: MsgTryAgainLater, Err: err}
	}
	return ok.Application, nil
}

func decodeSubmitError(status int, raw []byte) *SubmitError {
	se := &SubmitError{Status: status, Err: fmt.Errorf("intake: server returned %d", status)}

	var er errorResponse
	if json.Unmarshal(raw, &er) == nil {
		se.Code = er.Code
		se.Message = strings.TrimSpace(er.Message)
		se.Fields = er.Fields
	}
	if se.Message == "" {
		se.Message = MsgTryAgainLater
	}
	return se
}

func encodeForm(f Form) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, kv := range [][2]string{
		{"name", strings.TrimSpace(f.Name)},
		{"email", strings.TrimSpace(f.Email)},
		{"phone", strings.TrimSpace(f.Phone)},
	} {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}

	fw, err := mw.CreateFormFile("resume", filepath.Base(f.ResumeName))
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(f.Resume); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
