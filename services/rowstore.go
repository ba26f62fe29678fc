package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GrainArc/RealmMap/config"
)

// MapRow 远程行存储中的一行地图记录
type MapRow struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RowStoreClient 访问 PostgREST 风格的 /rest/v1/<table> 接口
type RowStoreClient struct {
	baseURL string
	apiKey  string
	table   string
	client  *http.Client
}

func NewRowStoreClient(cfg config.RowStoreConfig, client *http.Client) *RowStoreClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RowStoreClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		table:   cfg.Table,
		client:  client,
	}
}

// List 列出地图，不含文档内容
func (c *RowStoreClient) List(ctx context.Context) ([]MapRow, error) {
	q := url.Values{}
	q.Set("select", "id,name,updated_at")
	q.Set("order", "updated_at.desc")
	var rows []MapRow
	if err := c.get(ctx, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Get 读取单张地图，不存在时返回 ErrMapNotFound
func (c *RowStoreClient) Get(ctx context.Context, id string) (*MapRow, error) {
	q := url.Values{}
	q.Set("select", "id,name,data,updated_at")
	q.Set("id", "eq."+id)
	q.Set("limit", "1")
	var rows []MapRow
	if err := c.get(ctx, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("supabase map %s: %w", id, ErrMapNotFound)
	}
	return &rows[0], nil
}

func (c *RowStoreClient) get(ctx context.Context, q url.Values, out interface{}) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, url.PathEscape(c.table), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build row store request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("row store request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("row store status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode row store response: %w", err)
	}
	return nil
}
