package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRequestsPerHour = 3000
	defaultTimeout         = 30 * time.Second
	pageSize               = 100
	maxErrorBody           = 2048
)

// CanvasConfig configures a Canvas REST client.
type CanvasConfig struct {
	BaseURL         string
	Token           string
	RequestsPerHour int
	Timeout         time.Duration
	HTTPClient      *http.Client
	Logger          *slog.Logger
}

// CanvasClient talks to the Canvas REST API v1.
type CanvasClient struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ Client = (*CanvasClient)(nil)

func NewCanvasClient(cfg CanvasConfig) *CanvasClient {
	perHour := cfg.RequestsPerHour
	if perHour <= 0 {
		perHour = defaultRequestsPerHour
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	burst := perHour / 60
	if burst < 1 {
		burst = 1
	}

	return &CanvasClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(float64(perHour)/3600.0), burst),
		logger:  logger.With("component", "canvas_client"),
	}
}

func (c *CanvasClient) GetCourse(ctx context.Context, courseID int64) (*Course, error) {
	var course Course
	if err := c.do(ctx, "get course", http.MethodGet, fmt.Sprintf("/api/v1/courses/%d", courseID), nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *CanvasClient) ListCategories(ctx context.Context, courseID int64) ([]Category, error) {
	var groups []Category
	path := fmt.Sprintf("/api/v1/courses/%d/assignment_groups", courseID)
	if err := c.paginate(ctx, "list categories", path, nil, func(raw json.RawMessage) error {
		var page []Category
		if err := json.Unmarshal(raw, &page); err != nil {
			return err
		}
		groups = append(groups, page...)
		return nil
	}); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *CanvasClient) CreateCategory(ctx context.Context, courseID int64, name string, weight float64, rules CategoryRules) (*Category, error) {
	body := map[string]interface{}{
		"name":         name,
		"group_weight": weight,
	}
	if !rules.IsEmpty() {
		body["rules"] = rules
	}

	var created Category
	path := fmt.Sprintf("/api/v1/courses/%d/assignment_groups", courseID)
	if err := c.do(ctx, fmt.Sprintf("create category '%s'", name), http.MethodPost, path, body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *CanvasClient) UpdateCategoryWeight(ctx context.Context, courseID, categoryID int64, weight float64) error {
	path := fmt.Sprintf("/api/v1/courses/%d/assignment_groups/%d", courseID, categoryID)
	return c.do(ctx, "update category weight", http.MethodPut, path, map[string]interface{}{"group_weight": weight}, nil)
}

func (c *CanvasClient) DeleteCategory(ctx context.Context, courseID, categoryID int64) error {
	path := fmt.Sprintf("/api/v1/courses/%d/assignment_groups/%d", courseID, categoryID)
	return c.do(ctx, "delete category", http.MethodDelete, path, nil, nil)
}

func (c *CanvasClient) EnableWeightedGrading(ctx context.Context, courseID int64) error {
	body := map[string]interface{}{
		"course": map[string]interface{}{"apply_assignment_group_weights": true},
	}
	return c.do(ctx, "enable weighted grading", http.MethodPut, fmt.Sprintf("/api/v1/courses/%d", courseID), body, nil)
}

// ApplyGlobalRules updates the course late policy, creating it when the
// course has none yet.
func (c *CanvasClient) ApplyGlobalRules(ctx context.Context, courseID int64, policy LatePolicy) error {
	path := fmt.Sprintf("/api/v1/courses/%d/late_policy", courseID)
	body := map[string]interface{}{"late_policy": policy}

	err := c.do(ctx, "apply global rules", http.MethodPatch, path, body, nil)
	if IsNotFound(err) {
		return c.do(ctx, "apply global rules", http.MethodPost, path, body, nil)
	}
	return err
}

func (c *CanvasClient) ListAssignments(ctx context.Context, courseID int64) ([]Assignment, error) {
	var assignments []Assignment
	path := fmt.Sprintf("/api/v1/courses/%d/assignments", courseID)
	if err := c.paginate(ctx, "list assignments", path, nil, func(raw json.RawMessage) error {
		var page []Assignment
		if err := json.Unmarshal(raw, &page); err != nil {
			return err
		}
		assignments = append(assignments, page...)
		return nil
	}); err != nil {
		return nil, err
	}
	return assignments, nil
}

// ListSubmissions reads a single student's submissions. The service token
// must be allowed to view that student's grades.
func (c *CanvasClient) ListSubmissions(ctx context.Context, courseID, studentID int64) ([]Submission, error) {
	var submissions []Submission
	path := fmt.Sprintf("/api/v1/courses/%d/students/submissions", courseID)
	query := url.Values{"student_ids[]": []string{strconv.FormatInt(studentID, 10)}}
	if err := c.paginate(ctx, "list submissions", path, query, func(raw json.RawMessage) error {
		var page []Submission
		if err := json.Unmarshal(raw, &page); err != nil {
			return err
		}
		submissions = append(submissions, page...)
		return nil
	}); err != nil {
		return nil, err
	}
	return submissions, nil
}

// paginate walks Link rel="next" headers until the last page.
func (c *CanvasClient) paginate(ctx context.Context, op, path string, query url.Values, onPage func(json.RawMessage) error) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("per_page", fmt.Sprint(pageSize))
	next := c.baseURL + path + "?" + query.Encode()

	for next != "" {
		resp, err := c.send(ctx, op, http.MethodGet, next, nil)
		if err != nil {
			return err
		}

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("lms %s: read body: %w", op, err)
		}
		if err := onPage(raw); err != nil {
			return fmt.Errorf("lms %s: decode page: %w", op, err)
		}

		next = nextLink(resp.Header.Get("Link"))
	}
	return nil
}

func (c *CanvasClient) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	resp, err := c.send(ctx, op, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("lms %s: decode response: %w", op, err)
	}
	return nil
}

// send issues a throttled request and turns non-2xx answers into *APIError.
func (c *CanvasClient) send(ctx context.Context, op, method, fullURL string, body interface{}) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("lms %s: rate limiter: %w", op, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("lms %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("lms %s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "LMS request failed", "op", op, "method", method, "error", err)
		return nil, fmt.Errorf("lms %s: %w", op, err)
	}

	c.logger.DebugContext(ctx, "LMS request",
		"op", op,
		"method", method,
		"status_code", resp.StatusCode,
		"duration", time.Since(start).String())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return resp, nil
}

// nextLink extracts the rel="next" URL from a Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		for _, attr := range segments[1:] {
			if strings.TrimSpace(attr) == `rel="next"` {
				return target
			}
		}
	}
	return ""
}
