// Package parser talks to the natural-language expense parser, an external
// service that turns free text such as "lunch 250 paid by Asha" into
// structured records plus a chat reply.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pfm/internal/core"
)

// ErrUnavailable wraps every transport or upstream failure.
var ErrUnavailable = errors.New("parser unavailable")

const maxResponseBytes = 1 << 20

// ParsedExpense is one record as the parser returns it. Every field may be
// missing.
type ParsedExpense struct {
	Amount   *decimal.Decimal `json:"amount"`
	Item     *string          `json:"item"`
	Category *string          `json:"category"`
	Remarks  *string          `json:"remarks"`
	PaidBy   *string          `json:"paid_by"`
}

// Result is the parser's answer to one message.
type Result struct {
	Expenses []ParsedExpense `json:"expenses"`
	Reply    string          `json:"reply"`
}

// Raw converts the parsed record into an ingestion record of scope. The
// fallback payer is used when the parser names nobody.
func (p ParsedExpense) Raw(scope core.Scope, fallbackPayer string, date core.Date) core.RawTransaction {
	raw := core.RawTransaction{
		Amount:   p.Amount,
		Item:     p.Item,
		Category: p.Category,
		Remarks:  p.Remarks,
		Payer:    p.PaidBy,
		Date:     &date,
		OwnerRef: scope.OwnerID,
		GroupRef: scope.GroupID,
	}
	if raw.Payer == nil || strings.TrimSpace(*raw.Payer) == "" {
		if fallbackPayer != "" {
			raw.Payer = &fallbackPayer
		}
	}
	return raw
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type parseRequest struct {
	Text string `json:"text"`
}

// Parse posts text to /parse.
func (c *Client) Parse(ctx context.Context, text string) (*Result, error) {
	body, err := json.Marshal(parseRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build parse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if out.Expenses == nil {
		out.Expenses = []ParsedExpense{}
	}
	return &out, nil
}
