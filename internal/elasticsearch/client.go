package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/DeafMist/bills-enricher/internal/logger"
	"github.com/DeafMist/bills-enricher/internal/models"
)

// Client wraps go-elasticsearch with helpers tailored to this project.
type Client struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

// New instantiates the Elasticsearch client.
func New(addr, index string, log *slog.Logger) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if log == nil {
		log = logger.Discard()
	}

	return &Client{es: es, index: index, log: log}, nil
}

// Name identifies the client as a sink.
func (c *Client) Name() string { return "elasticsearch" }

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}

	return nil
}

// IndexBill writes one bill using its id as the document id.
func (c *Client) IndexBill(ctx context.Context, bill *models.EnrichedBill) error {
	payload, err := json.Marshal(bill)
	if err != nil {
		return fmt.Errorf("marshal bill: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: bill.BillID,
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index bill %s: %w", bill.BillID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index bill %s failed: %s", bill.BillID, strings.TrimSpace(string(body)))
	}

	return nil
}

// Persist indexes every bill in bill-id order, stopping at the first failure.
func (c *Client) Persist(ctx context.Context, bills models.Bills) error {
	ids := make([]string, 0, len(bills))
	for id := range bills {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if err := c.IndexBill(ctx, bills[id]); err != nil {
			return err
		}
		c.log.Debug("indexed bill", slog.String("bill", id))
	}
	return nil
}

// Health checks cluster health.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(res.Body)
		return fmt.Errorf("cluster health bad: %s", strings.TrimSpace(string(data)))
	}
	return nil
}
