package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"idqcli/internal/config"
)

// ReportClient covers the REST surface of the reports API. The pipeline
// depends on this interface, never on the concrete HTTP client, so stages
// can be exercised with fakes and no network.
type ReportClient interface {
	// CreateReport submits a merchant-listings report request scoped to one
	// marketplace identifier and returns the report job id.
	CreateReport(ctx context.Context, marketplaceID string) (string, error)

	// ReportStatus returns the current processing status of a report job,
	// including the document id once the job is done.
	ReportStatus(ctx context.Context, reportID string) (ReportJob, error)

	// DocumentURL resolves a report document id to its signed download URL.
	DocumentURL(ctx context.Context, documentID string) (string, error)

	// Download fetches the raw report payload from a signed URL. The payload
	// may be gzip-compressed or plain delimited text.
	Download(ctx context.Context, url string) ([]byte, error)
}

// HTTPReportClient is the production ReportClient. Requests carry the bearer
// token from the provider and pass through a shared rate limiter so a
// multi-market run stays inside the API's request budget.
type HTTPReportClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenProvider
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewHTTPReportClient creates a report client from marketplace configuration.
func NewHTTPReportClient(cfg config.MarketplaceConfig, tokens TokenProvider, logger *slog.Logger) *HTTPReportClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPReportClient{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		logger:  logger.With(slog.String("component", "report_client")),
	}
}

type createReportRequest struct {
	ReportType     string   `json:"reportType"`
	MarketplaceIDs []string `json:"marketplaceIds"`
}

type createReportResponse struct {
	ReportID string `json:"reportId"`
}

type reportStatusResponse struct {
	ProcessingStatus string `json:"processingStatus"`
	ReportDocumentID string `json:"reportDocumentId"`
}

type reportDocumentResponse struct {
	URL string `json:"url"`
}

// CreateReport submits a report-generation request and returns the job id.
func (c *HTTPReportClient) CreateReport(ctx context.Context, marketplaceID string) (string, error) {
	body, err := json.Marshal(createReportRequest{
		ReportType:     config.ReportType,
		MarketplaceIDs: []string{marketplaceID},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode report request: %w", err)
	}

	url := fmt.Sprintf("%s/reports/%s/reports", c.baseURL, config.ReportAPIVersion)
	resp, err := c.do(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("create report returned status %d", resp.StatusCode)
	}

	var created createReportResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode create report response: %w", err)
	}
	if created.ReportID == "" {
		return "", fmt.Errorf("create report response missing reportId")
	}

	c.logger.Info("report requested",
		slog.String("marketplace_id", marketplaceID),
		slog.String("report_id", created.ReportID))

	return created.ReportID, nil
}

// ReportStatus fetches the current state of a report job.
func (c *HTTPReportClient) ReportStatus(ctx context.Context, reportID string) (ReportJob, error) {
	url := fmt.Sprintf("%s/reports/%s/reports/%s", c.baseURL, config.ReportAPIVersion, reportID)
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ReportJob{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ReportJob{}, fmt.Errorf("report status returned status %d", resp.StatusCode)
	}

	var status reportStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return ReportJob{}, fmt.Errorf("failed to decode report status response: %w", err)
	}

	return ReportJob{
		ReportID:   reportID,
		Status:     ReportStatus(status.ProcessingStatus),
		DocumentID: status.ReportDocumentID,
	}, nil
}

// DocumentURL resolves the signed download URL for a completed report.
func (c *HTTPReportClient) DocumentURL(ctx context.Context, documentID string) (string, error) {
	url := fmt.Sprintf("%s/reports/%s/documents/%s", c.baseURL, config.ReportAPIVersion, documentID)
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("report document returned status %d", resp.StatusCode)
	}

	var doc reportDocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("failed to decode report document response: %w", err)
	}
	if doc.URL == "" {
		return "", fmt.Errorf("report document response missing url")
	}

	return doc.URL, nil
}

// Download fetches the report payload from its signed URL. Signed URLs are
// pre-authenticated, so no bearer token is attached.
func (c *HTTPReportClient) Download(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read download payload: %w", err)
	}

	return payload, nil
}

// do issues an authenticated API request through the rate limiter.
func (c *HTTPReportClient) do(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-amz-access-token", token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
