package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vgs-ops/shift-ops-api/internal/models"
	"github.com/vgs-ops/shift-ops-api/internal/service"
	"github.com/vgs-ops/shift-ops-api/pkg/config"
)

// HolidayClient looks up public-holiday classification for a date against
// the national calendar service. Responses are cached; the caller decides
// what to do on lookup failure.
type HolidayClient struct {
	baseURL  string
	client   *http.Client
	cache    *service.CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewHolidayClient constructs a holiday lookup client.
func NewHolidayClient(cfg config.HolidayConfig, cache *service.CacheService, logger *zap.Logger) *HolidayClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HolidayClient{
		baseURL:  cfg.BaseURL,
		client:   &http.Client{Timeout: timeout},
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger,
	}
}

type holidayResponse struct {
	IsHoliday bool   `json:"is_holiday"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	IsTet     bool   `json:"is_tet_period"`
}

// Lookup returns the holiday classification for a calendar date. Cache hits
// skip the network entirely; the calendar changes at most yearly.
func (c *HolidayClient) Lookup(ctx context.Context, date time.Time) (models.HolidayInfo, error) {
	day := date.Format("2006-01-02")
	key := "holiday:" + day

	if c.cache != nil && c.cache.Enabled() {
		var cached models.HolidayInfo
		if hit, err := c.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	url := fmt.Sprintf("%s/holidays/%s", c.baseURL, day)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.HolidayInfo{}, fmt.Errorf("build holiday request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.HolidayInfo{}, fmt.Errorf("holiday lookup for %s: %w", day, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fallthrough to decode
	case http.StatusNotFound:
		info := models.HolidayInfo{}
		c.store(ctx, key, info)
		return info, nil
	default:
		return models.HolidayInfo{}, fmt.Errorf("holiday lookup for %s: unexpected status %d", day, resp.StatusCode)
	}

	var body holidayResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.HolidayInfo{}, fmt.Errorf("decode holiday response for %s: %w", day, err)
	}

	info := models.HolidayInfo{
		IsHoliday:   body.IsHoliday,
		Name:        body.Name,
		Category:    body.Category,
		IsTetPeriod: body.IsTet,
	}
	c.store(ctx, key, info)
	return info, nil
}

func (c *HolidayClient) store(ctx context.Context, key string, info models.HolidayInfo) {
	if c.cache == nil || !c.cache.Enabled() {
		return
	}
	if err := c.cache.Set(ctx, key, info, c.cacheTTL); err != nil {
		c.logger.Warn("holiday cache write failed", zap.String("key", key), zap.Error(err))
	}
}
