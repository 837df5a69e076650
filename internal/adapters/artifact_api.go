package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"artifact-cleanup/internal/ports"
	"artifact-cleanup/internal/shared"
	"artifact-cleanup/internal/types"
)

// ArtifactAPIAdapter talks to the hosting service's management REST
// API. Version listings are paginated by the service; the adapter
// drains every page before returning so the caller never sees a
// partial inventory.
type ArtifactAPIAdapter struct {
	Endpoint   string
	Username   string
	APIKey     string
	PageSize   int
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
}

type ArtifactAPIConfig struct {
	Endpoint     string
	Username     string
	APIKey       string
	PageSize     int
	TimeoutSec   int
	Retries      int
	RetryDelayMs int
}

const defaultAPIPageSize = 50
const defaultAPIRetries = 3
const defaultAPIRetryDelay = 200 * time.Millisecond
const defaultAPITimeout = 30 * time.Second
const maxAPIRetryDelay = 2 * time.Second

func NewArtifactAPIAdapter(cfg ArtifactAPIConfig) ArtifactAPIAdapter {
	return ArtifactAPIAdapter{
		Endpoint:   strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		Username:   strings.TrimSpace(cfg.Username),
		APIKey:     strings.TrimSpace(cfg.APIKey),
		PageSize:   normalizeAPIPageSize(cfg.PageSize),
		Timeout:    normalizeAPITimeout(cfg.TimeoutSec),
		Retries:    normalizeAPIRetries(cfg.Retries),
		RetryDelay: normalizeAPIRetryDelay(cfg.RetryDelayMs),
	}
}

func (a ArtifactAPIAdapter) ListPackages(ctx context.Context, repo string) ([]string, error) {
	if err := a.checkConfig(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(repo) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("repository identifier is empty")
	}
	var packages []string
	for page := 1; ; page++ {
		listURL := fmt.Sprintf("%s/repos/%s/packages?page=%d&per_page=%d",
			a.Endpoint, url.PathEscape(repo), page, a.PageSize)
		body, err := a.request(ctx, http.MethodGet, listURL)
		if err != nil {
			return nil, err
		}
		items := extractItems(body, "packages", "Packages")
		for _, item := range items {
			entry, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			name := firstString(entry, "Name", "name", "Package", "package", "Id", "id")
			if name != "" {
				packages = append(packages, name)
			}
		}
		if !moreFollows(body, len(items), a.PageSize) {
			return packages, nil
		}
	}
}

func (a ArtifactAPIAdapter) ListVersions(ctx context.Context, repo string, pkg string) ([]types.VersionInfo, error) {
	if err := a.checkConfig(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(repo) == "" || strings.TrimSpace(pkg) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("repository and package identifiers are required")
	}
	var versions []types.VersionInfo
	for page := 1; ; page++ {
		listURL := fmt.Sprintf("%s/packages/%s/%s/versions?page=%d&per_page=%d",
			a.Endpoint, url.PathEscape(repo), url.PathEscape(pkg), page, a.PageSize)
		body, err := a.request(ctx, http.MethodGet, listURL)
		if err != nil {
			return nil, err
		}
		items := extractItems(body, "versions", "Versions")
		for _, item := range items {
			entry, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			name := firstString(entry, "Name", "name", "Version", "version")
			if name == "" {
				continue
			}
			createdRaw := firstString(entry, "Created", "created", "CreatedAt", "createdAt", "created_at")
			versions = append(versions, types.VersionInfo{
				Repository: repo,
				Package:    pkg,
				Name:       name,
				CreatedAt:  parseTimeFlexible(createdRaw),
				Size:       firstInt64(entry, "Size", "size"),
			})
		}
		if !moreFollows(body, len(items), a.PageSize) {
			return versions, nil
		}
	}
}

func (a ArtifactAPIAdapter) DeleteVersion(ctx context.Context, repo string, pkg string, version string) error {
	if err := a.checkConfig(); err != nil {
		return err
	}
	if strings.TrimSpace(repo) == "" || strings.TrimSpace(pkg) == "" || strings.TrimSpace(version) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("repository, package, and version identifiers are required")
	}
	deleteURL := fmt.Sprintf("%s/packages/%s/%s/versions/%s",
		a.Endpoint, url.PathEscape(repo), url.PathEscape(pkg), url.PathEscape(version))
	_, err := a.request(ctx, http.MethodDelete, deleteURL)
	if err == nil {
		return nil
	}
	if errbuilder.CodeOf(err) == errbuilder.CodeNotFound {
		// Already absent: a rerun after a partial failure must not
		// report the missing version as an error.
		return nil
	}
	return err
}

// request performs one API call with bounded retry. Rate-limit (429)
// and server-side (5xx) responses and transport errors are retried
// with exponential backoff; everything else fails immediately.
func (a ArtifactAPIAdapter) request(ctx context.Context, method string, requestURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < a.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 0 {
			time.Sleep(a.retryDelay(attempt - 1))
		}
		body, retry, err := a.requestOnce(ctx, method, requestURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}
	}
	if lastErr == nil {
		lastErr = errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("artifact api request failed")
	}
	return nil, lastErr
}

func (a ArtifactAPIAdapter) requestOnce(ctx context.Context, method string, requestURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
	if err != nil {
		return nil, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create artifact api request").
			WithCause(err)
	}
	a.applyBasicAuth(req)
	client := &http.Client{Timeout: a.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, true, errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg("artifact api request failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	logRateLimit(resp, method, requestURL)
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, false, nil
	}
	message := strings.TrimSpace(string(body))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("artifact api resource not found").
			WithCause(shared.HTTPStatusErrorWithBody(resp.StatusCode, requestURL, message))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, errbuilder.New().
			WithCode(errbuilder.CodeResourceExhausted).
			WithMsg("artifact api rate limited").
			WithCause(shared.HTTPStatusErrorWithBody(resp.StatusCode, requestURL, message))
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg("artifact api server error").
			WithCause(shared.HTTPStatusErrorWithBody(resp.StatusCode, requestURL, message))
	default:
		return nil, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("artifact api request rejected").
			WithCause(shared.HTTPStatusErrorWithBody(resp.StatusCode, requestURL, message))
	}
}

func (a ArtifactAPIAdapter) applyBasicAuth(req *http.Request) {
	if a.APIKey == "" {
		return
	}
	user := a.Username
	if user == "" {
		user = "api"
	}
	req.SetBasicAuth(user, a.APIKey)
}

func (a ArtifactAPIAdapter) checkConfig() error {
	if a.Endpoint == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("artifact api endpoint is empty")
	}
	return nil
}

func (a ArtifactAPIAdapter) retryDelay(attempt int) time.Duration {
	delay := a.RetryDelay * time.Duration(1<<attempt)
	if delay > maxAPIRetryDelay {
		delay = maxAPIRetryDelay
	}
	jitter := time.Duration(time.Now().UnixNano() % int64(delay/2+1))
	return delay + jitter
}

func logRateLimit(resp *http.Response, method string, requestURL string) {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return
	}
	log.Debug().
		Str("method", method).
		Str("url", requestURL).
		Str("remaining", remaining).
		Str("limit", resp.Header.Get("X-RateLimit-Limit")).
		Msg("artifact api rate-limit budget")
}

func extractItems(body []byte, keys ...string) []interface{} {
	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return []interface{}{}
	}
	switch typed := payload.(type) {
	case []interface{}:
		return typed
	case map[string]interface{}:
		for _, candidate := range append(keys, "items", "Items", "data", "Data") {
			if value, ok := typed[candidate]; ok {
				if list, ok := value.([]interface{}); ok {
					return list
				}
			}
		}
	}
	return []interface{}{}
}

// moreFollows decides whether another page must be fetched. A hasMore
// field in the response wins; without one, a short page ends the drain.
func moreFollows(body []byte, itemCount int, pageSize int) bool {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"hasMore", "HasMore", "has_more"} {
			if more, ok := payload[key].(bool); ok {
				return more
			}
		}
	}
	return itemCount >= pageSize
}

func firstString(values map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if raw, ok := values[key]; ok {
			if str, ok := raw.(string); ok {
				return strings.TrimSpace(str)
			}
		}
	}
	return ""
}

func normalizeAPIPageSize(value int) int {
	if value <= 0 {
		return defaultAPIPageSize
	}
	return value
}

func normalizeAPITimeout(value int) time.Duration {
	timeout := time.Duration(value) * time.Second
	if timeout <= 0 {
		return defaultAPITimeout
	}
	return timeout
}

func normalizeAPIRetries(value int) int {
	if value <= 0 {
		return defaultAPIRetries
	}
	return value
}

func normalizeAPIRetryDelay(value int) time.Duration {
	delay := time.Duration(value) * time.Millisecond
	if delay <= 0 {
		return defaultAPIRetryDelay
	}
	return delay
}

func firstInt64(values map[string]interface{}, keys ...string) int64 {
	for _, key := range keys {
		if raw, ok := values[key]; ok {
			if number, ok := raw.(float64); ok {
				return int64(number)
			}
		}
	}
	return 0
}

var _ ports.ArtifactRepoPort = ArtifactAPIAdapter{}
