package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"argus/internal/adapters/config"
	"argus/internal/domain/trade"
	"argus/internal/metrics"
	"argus/pkg/errors"
	"argus/pkg/logger"
)

// Client talks to the Polymarket Data API. All requests go through a shared
// rate limiter so pagination loops cannot hammer the endpoint.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	pageLimit int
	takerOnly bool
	log       *logger.Logger
}

// NewClient creates a Data API client
func NewClient(cfg config.DataAPIConfig) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		pageLimit: cfg.PageLimit,
		takerOnly: cfg.TakerOnly,
		log:       logger.Get().With("component", "polymarket_client"),
	}
}

// FetchLatestTrades returns the most recent global trades, newest first.
// One page, no pagination: the poller calls this on an interval and relies
// on dedup downstream.
func (c *Client) FetchLatestTrades(ctx context.Context, limit int) ([]trade.Raw, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", "0")
	params.Set("takerOnly", strconv.FormatBool(c.takerOnly))

	return c.fetchTradesPage(ctx, params)
}

// FetchMarketTrades pages through every trade for one market
// (GET /trades?market=<conditionId>&limit=&offset=&takerOnly=).
//
// The loop stops on an empty batch, on a batch shorter than the page limit,
// or once maxTrades rows have been collected (0 means unbounded). Both stop
// guards matter: the API reports neither a total count nor a next-page
// cursor.
func (c *Client) FetchMarketTrades(ctx context.Context, conditionID string, maxTrades int) ([]trade.Raw, error) {
	if conditionID == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "fetch market trades: empty condition id")
	}

	var out []trade.Raw
	offset := 0

	for {
		params := url.Values{}
		params.Set("market", conditionID)
		params.Set("limit", strconv.Itoa(c.pageLimit))
		params.Set("offset", strconv.Itoa(offset))
		params.Set("takerOnly", strconv.FormatBool(c.takerOnly))

		batch, err := c.fetchTradesPage(ctx, params)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		out = append(out, batch...)
		offset += len(batch)

		if maxTrades > 0 && len(out) >= maxTrades {
			out = out[:maxTrades]
			break
		}
		if len(batch) < c.pageLimit {
			break
		}
	}

	c.log.Debugw("market trades fetched", "condition_id", conditionID, "count", len(out))
	return out, nil
}

func (c *Client) fetchTradesPage(ctx context.Context, params url.Values) ([]trade.Raw, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}

	started := time.Now()
	reqURL := fmt.Sprintf("%s/trades?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create trades request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.IngestBatches.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "fetch trades")
	}
	defer resp.Body.Close()

	metrics.IngestAPILatency.WithLabelValues("/trades").Observe(time.Since(started).Seconds())

	if resp.StatusCode != http.StatusOK {
		metrics.IngestBatches.WithLabelValues("error").Inc()
		return nil, errors.Wrapf(errors.ErrUnavailable, "trades endpoint returned %d", resp.StatusCode)
	}

	var batch []trade.Raw
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		metrics.IngestBatches.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "decode trades response")
	}

	if len(batch) == 0 {
		metrics.IngestBatches.WithLabelValues("empty").Inc()
	} else {
		metrics.IngestBatches.WithLabelValues("success").Inc()
	}
	return batch, nil
}
