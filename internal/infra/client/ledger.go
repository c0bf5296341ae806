// Package client provides the HTTP adapter for the remote ledger API, the
// source of truth for financial records and categories.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/keilmann/allowance-tracker-go/internal/domain"
	"github.com/keilmann/allowance-tracker-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("client/ledger")

// LedgerClient wraps HTTP calls to the remote ledger API.
type LedgerClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewLedgerClient creates a remote ledger client.
func NewLedgerClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, bulkhead *resilience.Bulkhead, cfg resilience.Config, logger *zap.Logger) *LedgerClient {
	return &LedgerClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		cb:         cb,
		bulkhead:   bulkhead,
		cfg:        cfg,
		logger:     logger,
	}
}

// wireTransaction is the ledger API's transaction shape. Older rows carry a
// denormalized category name instead of categoryId; resolveCategories maps
// those back to ids on hydration.
type wireTransaction struct {
	ID              string  `json:"id,omitempty"`
	TransactionDate string  `json:"transactionDate"`
	Amount          float64 `json:"amount"`
	Description     string  `json:"description"`
	Type            string  `json:"type,omitempty"`
	Category        string  `json:"category,omitempty"`
	CategoryID      string  `json:"categoryId,omitempty"`
}

type wireCategory struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
	Color    string `json:"color,omitempty"`
}

type wireError struct {
	Message string `json:"message"`
}

// externalErr classifies errors leaving cb.Execute. Breaker rejections and
// exceeded deadlines get their own domain types so handlers can answer
// 503/504 instead of a generic upstream failure.
func externalErr(service string, err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: service}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: service}
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}

// doRequest executes an authenticated request against the ledger API.
// Non-2xx responses surface the server's {message} body as the error text.
func (c *LedgerClient) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bulkhead.Release()

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ledger: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, &domain.ErrNotFound{Resource: "ledger resource", ID: path}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var we wireError
		_ = json.Unmarshal(respBody, &we)
		c.logger.Warn("ledger: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", we.Message),
		)
		return nil, &domain.ErrRemote{Status: resp.StatusCode, Message: we.Message}
	}

	c.logger.Debug("ledger: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	return respBody, nil
}

// --- Transactions ---

// ListTransactions fetches all records of a kind from the ledger.
func (c *LedgerClient) ListTransactions(ctx context.Context, kind domain.RecordKind) ([]domain.Record, error) {
	ctx, span := tracer.Start(ctx, "LedgerClient.ListTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("record.kind", string(kind)))

	var records []domain.Record

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := "/transactions?kind=" + url.QueryEscape(string(kind))
			body, err := c.doRequest(ctx, http.MethodGet, path, nil)
			if err != nil {
				return err
			}

			var payload struct {
				Transactions []wireTransaction `json:"transactions"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return fmt.Errorf("failed to decode transactions: %w", err)
			}

			resolve, err := c.resolveCategories(ctx, payload.Transactions)
			if err != nil {
				return err
			}

			records = make([]domain.Record, 0, len(payload.Transactions))
			for _, w := range payload.Transactions {
				records = append(records, fromWire(w, resolve))
			}
			return nil
		})
	})

	if err != nil {
		return nil, externalErr("ledger/transactions", err)
	}

	return records, nil
}

// CreateTransaction posts a new record and returns the canonical one.
// Never retried: a replayed POST could insert a duplicate.
func (c *LedgerClient) CreateTransaction(ctx context.Context, kind domain.RecordKind, rec domain.Record) (*domain.Record, error) {
	ctx, span := tracer.Start(ctx, "LedgerClient.CreateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("record.kind", string(kind)))

	var created *domain.Record

	_, err := c.cb.Execute(func() (any, error) {
		path := "/transactions?kind=" + url.QueryEscape(string(kind))
		body, err := c.doRequest(ctx, http.MethodPost, path, toWire(rec))
		if err != nil {
			return nil, err
		}

		var w wireTransaction
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, fmt.Errorf("failed to decode created transaction: %w", err)
		}
		r := fromWire(w, nil)
		created = &r
		return nil, nil
	})

	if err != nil {
		return nil, externalErr("ledger/transactions", err)
	}

	return created, nil
}

// UpdateTransaction puts a record by id and returns the canonical one.
func (c *LedgerClient) UpdateTransaction(ctx context.Context, kind domain.RecordKind, rec domain.Record) (*domain.Record, error) {
	ctx, span := tracer.Start(ctx, "LedgerClient.UpdateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("record.id", rec.ID))

	var updated *domain.Record

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("/transactions/%s?kind=%s", url.PathEscape(rec.ID), url.QueryEscape(string(kind)))
			body, err := c.doRequest(ctx, http.MethodPut, path, toWire(rec))
			if err != nil {
				return err
			}

			var w wireTransaction
			if err := json.Unmarshal(body, &w); err != nil {
				return fmt.Errorf("failed to decode updated transaction: %w", err)
			}
			r := fromWire(w, nil)
			updated = &r
			return nil
		})
	})

	if err != nil {
		return nil, externalErr("ledger/transactions", err)
	}

	return updated, nil
}

// DeleteTransaction removes a record by id.
func (c *LedgerClient) DeleteTransaction(ctx context.Context, kind domain.RecordKind, id string) error {
	ctx, span := tracer.Start(ctx, "LedgerClient.DeleteTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("record.id", id))

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("/transactions/%s?kind=%s", url.PathEscape(id), url.QueryEscape(string(kind)))
			_, err := c.doRequest(ctx, http.MethodDelete, path, nil)
			return err
		})
	})

	if err != nil {
		return externalErr("ledger/transactions", err)
	}

	return nil
}

// --- Categories ---

// ListCategories fetches the category list from the ledger.
func (c *LedgerClient) ListCategories(ctx context.Context) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "LedgerClient.ListCategories")
	defer span.End()

	var cats []domain.Category

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, http.MethodGet, "/categories", nil)
			if err != nil {
				return err
			}

			var rows []wireCategory
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode categories: %w", err)
			}

			cats = make([]domain.Category, 0, len(rows))
			for i, w := range rows {
				cats = append(cats, domain.Category{
					ID:        w.ID,
					Name:      w.Name,
					ParentID:  w.ParentID,
					Color:     w.Color,
					SortIndex: i,
				})
			}
			return nil
		})
	})

	if err != nil {
		return nil, externalErr("ledger/categories", err)
	}

	return cats, nil
}

// CreateCategory posts a new category and returns the canonical one.
// Never retried, same as CreateTransaction.
func (c *LedgerClient) CreateCategory(ctx context.Context, cat domain.Category) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "LedgerClient.CreateCategory")
	defer span.End()

	var created *domain.Category

	_, err := c.cb.Execute(func() (any, error) {
		body, err := c.doRequest(ctx, http.MethodPost, "/categories", wireCategory{
			Name:     cat.Name,
			ParentID: cat.ParentID,
			Color:    cat.Color,
		})
		if err != nil {
			return nil, err
		}

		var w wireCategory
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, fmt.Errorf("failed to decode created category: %w", err)
		}
		created = &domain.Category{
			ID:       w.ID,
			Name:     w.Name,
			ParentID: w.ParentID,
			Color:    w.Color,
		}
		return nil, nil
	})

	if err != nil {
		return nil, externalErr("ledger/categories", err)
	}

	return created, nil
}

// DeleteCategory removes a category by id.
func (c *LedgerClient) DeleteCategory(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "LedgerClient.DeleteCategory")
	defer span.End()
	span.SetAttributes(attribute.String("category.id", id))

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			_, err := c.doRequest(ctx, http.MethodDelete, "/categories/"+url.PathEscape(id), nil)
			return err
		})
	})

	if err != nil {
		return externalErr("ledger/categories", err)
	}

	return nil
}

// --- wire mapping ---

// resolveCategories builds a name→id lookup when any row still carries a
// denormalized category name. Rows that already have categoryId skip it.
func (c *LedgerClient) resolveCategories(ctx context.Context, rows []wireTransaction) (map[string]string, error) {
	needed := false
	for _, w := range rows {
		if w.CategoryID == "" && w.Category != "" {
			needed = true
			break
		}
	}
	if !needed {
		return nil, nil
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/categories", nil)
	if err != nil {
		return nil, err
	}
	var cats []wireCategory
	if err := json.Unmarshal(body, &cats); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}

	byName := make(map[string]string, len(cats))
	for _, cat := range cats {
		byName[cat.Name] = cat.ID
	}
	return byName, nil
}

func fromWire(w wireTransaction, nameToID map[string]string) domain.Record {
	t, err := time.Parse(time.RFC3339, w.TransactionDate)
	if err != nil {
		t, _ = time.Parse("2006-01-02", w.TransactionDate)
	}

	categoryID := w.CategoryID
	if categoryID == "" && w.Category != "" && nameToID != nil {
		categoryID = nameToID[w.Category]
	}

	return domain.Record{
		ID:          w.ID,
		Description: w.Description,
		Amount:      w.Amount,
		Date:        t,
		Type:        w.Type,
		CategoryID:  categoryID,
	}
}

func toWire(rec domain.Record) wireTransaction {
	return wireTransaction{
		ID:              rec.ID,
		TransactionDate: rec.Date.Format(time.RFC3339),
		Amount:          rec.Amount,
		Description:     rec.Description,
		Type:            rec.Type,
		CategoryID:      rec.CategoryID,
	}
}
