package sheetsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmdatafocus/distributor_backend/config"
	"github.com/mmdatafocus/distributor_backend/models"
	"golang.org/x/sync/errgroup"
)

// Client reads the spreadsheet-backed data API.
type Client struct {
	rc *resty.Client
}

func NewClient(baseURL, apiKey, apiKeyHeader string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrEmptyAPIKey
	}
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader(apiKeyHeader, apiKey).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
		})
	return &Client{rc: rc}, nil
}

func NewClientFromSettings(s config.Settings) (*Client, error) {
	return NewClient(s.SheetAPIBaseURL, s.SheetAPIKey, s.SheetAPIKeyHeader, s.SheetAPITimeout)
}

func (c *Client) Name() string { return "sheet" }

// FetchCollection downloads every row of one collection.
func (c *Client) FetchCollection(ctx context.Context, collection models.Collection) ([]models.RawRecord, error) {
	path, ok := collectionPaths[collection]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	resp, err := c.rc.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", collection, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("sheet api error %d on %s: %s", resp.StatusCode(), collection, strings.TrimSpace(resp.String()))
	}
	rows, err := decodeRows(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	return rows, nil
}

// FetchSnapshot downloads the five collections concurrently; any failure fails the snapshot.
func (c *Client) FetchSnapshot(ctx context.Context) (models.RawSnapshot, error) {
	collections := []models.Collection{
		models.CollectionOrders,
		models.CollectionSerializedUnits,
		models.CollectionSales,
		models.CollectionInventory,
		models.CollectionPriceList,
	}
	results := make([][]models.RawRecord, len(collections))

	g, gctx := errgroup.WithContext(ctx)
	for i, col := range collections {
		i, col := i, col
		g.Go(func() error {
			rows, err := c.FetchCollection(gctx, col)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.RawSnapshot{}, err
	}

	var snap models.RawSnapshot
	for i, col := range collections {
		setCollection(&snap, col, results[i])
	}
	return snap, nil
}

// decodeRows accepts a bare array or a {"data": [...]} / {"items": [...]} envelope.
// Numbers stay json.Number.
func decodeRows(body []byte) ([]models.RawRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var raw []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, err
		}
	} else {
		var env sheetListResponse
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, err
		}
		raw = env.Data
		if len(raw) == 0 {
			raw = env.Items
		}
	}

	rows := make([]models.RawRecord, 0, len(raw))
	for _, msg := range raw {
		var row models.RawRecord
		dec := json.NewDecoder(bytes.NewReader(msg))
		dec.UseNumber()
		if err := dec.Decode(&row); err != nil {
			return nil, err
		}
		if row != nil {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
