package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"pfm/internal/core"
	"pfm/internal/services"
)

// Headers set by the authenticating gateway in front of the API.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
)

const maxBodyBytes = 1 << 20

var errNoViewer = errors.New("missing " + HeaderUserID + " header")

// ViewerFromRequest reads the caller identity. Requests without a user id
// are rejected before reaching a service.
func ViewerFromRequest(r *http.Request) (services.Viewer, error) {
	v := services.Viewer{
		UserID: sanitizeInput(r.Header.Get(HeaderUserID)),
		Email:  sanitizeInput(r.Header.Get(HeaderUserEmail)),
	}
	if v.UserID == "" {
		return services.Viewer{}, errNoViewer
	}
	return v, nil
}

// DecodeJSON reads a single JSON object from the body into dst. Unknown
// fields are rejected.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// QueryInt reads a non-negative integer query parameter, def when absent.
func QueryInt(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

// transactionRequest is the body of create and update calls. Amount accepts
// a JSON number or a string such as "12,50".
type transactionRequest struct {
	Amount   json.RawMessage `json:"amount"`
	Item     *string         `json:"item"`
	Category *string         `json:"category"`
	Remarks  *string         `json:"remarks"`
	Payer    *string         `json:"paid_by"`
	Date     *core.Date      `json:"date"`
	GroupID  string          `json:"group_id"`
}

func (req transactionRequest) raw() (core.RawTransaction, error) {
	raw := core.RawTransaction{
		Item:     sanitizePtr(req.Item),
		Category: sanitizePtr(req.Category),
		Remarks:  sanitizePtr(req.Remarks),
		Payer:    sanitizePtr(req.Payer),
		Date:     req.Date,
	}
	if len(req.Amount) > 0 && string(req.Amount) != "null" {
		s := string(req.Amount)
		if strings.HasPrefix(s, `"`) {
			if err := json.Unmarshal(req.Amount, &s); err != nil {
				return core.RawTransaction{}, core.ErrInvalidAmount
			}
		}
		amount, err := core.ParseAmount(s)
		if err != nil {
			return core.RawTransaction{}, err
		}
		raw.Amount = &amount
	}
	return raw, nil
}

type chatRequest struct {
	Text    string `json:"text"`
	GroupID string `json:"group_id"`
	Payer   string `json:"paid_by"`
}

type groupRequest struct {
	Name string `json:"name"`
}

type invitationRequest struct {
	Email string `json:"email"`
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
