package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "macd-vol-bot/internal/platform/http"
	"macd-vol-bot/models"
)

// BinanceClient fetches USDⓈ-M futures klines from the Binance REST API.
type BinanceClient struct {
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new Binance client
type ClientOptions struct {
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetryTimeout time.Duration
}

// NewBinanceClient creates a new Binance futures market data client
func NewBinanceClient(options ClientOptions) *BinanceClient {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = "https://fapi.binance.com"
	}

	return &BinanceClient{
		baseURL: baseURL,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetryTimeout: options.MaxRetryTimeout,
		}),
		logger: log.With().Str("component", "binance_client").Logger(),
	}
}

// FetchCandles fetches klines for a symbol and interval, oldest first.
// The last element is the still-forming candle.
func (c *BinanceClient) FetchCandles(ctx context.Context, instrument, timeframe string, limit int) ([]models.Candle, error) {
	endpoint := fmt.Sprintf("%s/fapi/v1/klines?symbol=%s&interval=%s&limit=%d",
		c.baseURL, url.QueryEscape(instrument), url.QueryEscape(timeframe), limit)

	c.logger.Debug().Str("instrument", instrument).Str("timeframe", timeframe).Msg("Fetching candles")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var raw [][]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		// Binance reports errors as {"code":..., "msg":...}
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Msg != "" {
			c.logger.Error().Int("code", apiErr.Code).Str("msg", apiErr.Msg).Msg("Binance API error")
			return nil, fmt.Errorf("binance API error %d: %s", apiErr.Code, apiErr.Msg)
		}
		c.logger.Error().Err(err).Msg("Error parsing klines JSON")
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	if len(raw) == 0 {
		c.logger.Warn().Str("instrument", instrument).Msg("No candles in response")
		return nil, fmt.Errorf("empty data returned")
	}

	candles := make([]models.Candle, 0, len(raw))
	for _, row := range raw {
		candle, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("parsing kline row: %w", err)
		}
		candles = append(candles, candle)
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime < candles[j].OpenTime
	})

	c.logger.Debug().Int("count", len(candles)).Msg("Fetched candles")
	return candles, nil
}

// parseKline decodes one kline row. Binance mixes types in the array:
// the open time is a number, OHLCV values are strings.
func parseKline(row []json.RawMessage) (models.Candle, error) {
	if len(row) < 6 {
		return models.Candle{}, fmt.Errorf("short kline row: %d fields", len(row))
	}

	var openTime int64
	if err := json.Unmarshal(row[0], &openTime); err != nil {
		return models.Candle{}, fmt.Errorf("open time: %w", err)
	}

	values := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		var s string
		if err := json.Unmarshal(row[i], &s); err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i, err)
		}
		values[i-1] = v
	}

	return models.Candle{
		OpenTime: openTime,
		Open:     values[0],
		High:     values[1],
		Low:      values[2],
		Close:    values[3],
		Volume:   values[4],
	}, nil
}
