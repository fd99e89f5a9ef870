package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitroom/internal/models"
)

// Parser extracts a structured receipt from an image.
type Parser interface {
	Parse(ctx context.Context, image []byte, contentType string) (*models.Receipt, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(ctx context.Context, image []byte, contentType string) (*models.Receipt, error)

func (f ParserFunc) Parse(ctx context.Context, image []byte, contentType string) (*models.Receipt, error) {
	return f(ctx, image, contentType)
}

// HTTPParser sends images to an external OCR endpoint.
type HTTPParser struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPParser creates a parser for the OCR service at endpoint.
// A zero timeout falls back to 30 seconds.
func NewHTTPParser(endpoint, apiKey string, timeout time.Duration) *HTTPParser {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPParser{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// ocrItem and ocrResponse mirror the OCR service's JSON.
type ocrItem struct {
	Name      string           `json:"name"`
	Quantity  *decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal  `json:"unitPrice"`
	LineTotal *decimal.Decimal `json:"lineTotal"`
}

type ocrResponse struct {
	Items         []ocrItem             `json:"items"`
	Taxes         []models.TaxComponent `json:"taxes"`
	ServiceCharge decimal.Decimal       `json:"serviceCharge"`
	NetAmount     *decimal.Decimal      `json:"netAmount"`
}

// Parse posts the image and converts the OCR response into a receipt.
func (p *HTTPParser) Parse(ctx context.Context, image []byte, contentType string) (*models.Receipt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call OCR service: %w: %w", ErrParseFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Warn("OCR service rejected receipt", "status", resp.StatusCode, "body", strings.TrimSpace(string(body)))
		return nil, fmt.Errorf("OCR status %d: %w", resp.StatusCode, ErrParseFailed)
	}

	var out ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode OCR response: %w", ErrParseFailed)
	}

	return out.toReceipt()
}

func (o ocrResponse) toReceipt() (*models.Receipt, error) {
	if len(o.Items) == 0 {
		return nil, fmt.Errorf("no items found: %w", ErrParseFailed)
	}

	receipt := &models.Receipt{
		Items: make([]models.ReceiptItem, 0, len(o.Items)),
		SharedCharges: models.SharedCharges{
			Taxes:         o.Taxes,
			ServiceCharge: o.ServiceCharge,
		},
	}

	itemsTotal := decimal.Zero
	for i, it := range o.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			return nil, fmt.Errorf("item %d has no name: %w", i, ErrParseFailed)
		}

		quantity := decimal.NewFromInt(1)
		if it.Quantity != nil {
			quantity = *it.Quantity
		}
		// Shares are split from the printed total, never a recomputed one
		if it.LineTotal == nil {
			return nil, fmt.Errorf("item %d has no line total: %w", i, ErrParseFailed)
		}
		lineTotal := *it.LineTotal
		if lineTotal.IsNegative() {
			return nil, fmt.Errorf("item %d has negative total: %w", i, ErrParseFailed)
		}

		receipt.Items = append(receipt.Items, models.ReceiptItem{
			Index:     i,
			Name:      name,
			Quantity:  quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: lineTotal,
			Tags:      []string{},
		})
		itemsTotal = itemsTotal.Add(lineTotal)
	}

	if o.NetAmount != nil {
		receipt.NetAmount = *o.NetAmount
	} else {
		receipt.NetAmount = itemsTotal.Add(receipt.SharedCharges.Total())
	}

	return receipt, nil
}
