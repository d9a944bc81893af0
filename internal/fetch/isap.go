// Package fetch retrieves the consolidated statute text from ISAP.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"claro-backend/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	maxAttempts = 3
	// ISAP rejects obvious non-browser clients.
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
)

// ISAPClient locates and downloads the latest consolidated-text PDF for a
// document published in ISAP (the Polish internet system of legal acts).
type ISAPClient struct {
	httpClient *resty.Client
	baseURL    string
	logger     *zap.Logger
}

// NewISAPClient builds a client with a fixed request timeout and a bounded
// retry ladder: 3 attempts with linearly increasing backoff
// (attempt number × retryWait).
func NewISAPClient(baseURL string, timeout, retryWait time.Duration, logger *zap.Logger) *ISAPClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(maxAttempts - 1).
		SetRetryAfter(func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
			return time.Duration(resp.Request.Attempt) * retryWait, nil
		}).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= 500
		}).
		SetHeader("User-Agent", browserUserAgent).
		SetHeader("Accept-Language", "pl-PL,pl;q=0.9,en-US;q=0.8,en;q=0.7").
		SetHeader("Referer", "https://isap.sejm.gov.pl/")

	return &ISAPClient{
		httpClient: client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// LatestPDFURL scrapes the ISAP document page for the link to the latest
// consolidated-text PDF.
//
// Two discovery methods, in order: the anchor next to the
// "Tekst ujednolicony:" label, then a scan of all PDF links mentioning the
// document ID. Both failing means the page layout changed or the document
// has no consolidated text.
func (c *ISAPClient) LatestPDFURL(ctx context.Context, docID string) (string, error) {
	c.logger.Info("fetching ISAP document page", zap.String("doc_id", docID))

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("id", docID).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		Get("/isap.nsf/DocDetails.xsp")
	if err != nil {
		return "", fmt.Errorf("%w: document page fetch failed: %v", domain.ErrSourceUnavailable, err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: document page returned status %d", domain.ErrSourceUnavailable, resp.StatusCode())
	}

	body := resp.String()
	if strings.Contains(body, "human visitor") || strings.Contains(body, "spam submission") {
		return "", fmt.Errorf("%w: document page returned anti-bot protection", domain.ErrSourceUnavailable)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return "", fmt.Errorf("failed to parse document page: %w", err)
	}

	if href, ok := c.findLabeledLink(doc); ok {
		c.logger.Info("found consolidated-text PDF link", zap.String("method", "label"), zap.String("href", href))
		return c.absoluteURL(href), nil
	}
	if href, ok := c.findPDFLink(doc, docID); ok {
		c.logger.Info("found consolidated-text PDF link", zap.String("method", "scan"), zap.String("href", href))
		return c.absoluteURL(href), nil
	}

	return "", fmt.Errorf("%w: no consolidated-text PDF link found for %s", domain.ErrSourceUnavailable, docID)
}

// findLabeledLink follows the anchor in the column next to the
// "Tekst ujednolicony:" label.
func (c *ISAPClient) findLabeledLink(doc *goquery.Document) (string, bool) {
	var href string
	doc.Find("div.col-sm-4").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.TrimSpace(sel.Text()) != "Tekst ujednolicony:" {
			return true
		}
		if h, ok := sel.NextFiltered("div.col-sm-8").Find("a[href]").First().Attr("href"); ok {
			href = h
			return false
		}
		return true
	})
	return href, href != ""
}

// findPDFLink scans every anchor for a PDF href related to the document ID.
func (c *ISAPClient) findPDFLink(doc *goquery.Document, docID string) (string, bool) {
	docIDClean := strings.ToUpper(strings.ReplaceAll(docID, "wdu", "D"))

	var href string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		h, _ := sel.Attr("href")
		if strings.HasSuffix(h, ".pdf") && strings.Contains(h, docIDClean) {
			href = h
			return false
		}
		return true
	})
	return href, href != ""
}

func (c *ISAPClient) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return c.baseURL + href
}

// DownloadPDF fetches the PDF bytes, retrying per the client's ladder.
// Exhausting the retry budget is a permanent failure.
func (c *ISAPClient) DownloadPDF(ctx context.Context, pdfURL string) ([]byte, error) {
	c.logger.Info("downloading PDF", zap.String("url", pdfURL))

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/pdf").
		Get(pdfURL)
	if err != nil {
		return nil, fmt.Errorf("%w: PDF download failed after %d attempts: %v", domain.ErrSourceUnavailable, maxAttempts, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: PDF download returned status %d", domain.ErrSourceUnavailable, resp.StatusCode())
	}

	body := resp.Body()
	contentType := resp.Header().Get("Content-Type")
	if !strings.Contains(contentType, "application/pdf") && len(body) < 5000 {
		c.logger.Warn("downloaded content may not be a PDF",
			zap.String("content_type", contentType),
			zap.Int("size", len(body)),
		)
	}

	c.logger.Info("PDF downloaded", zap.Int("size", len(body)))
	return body, nil
}
