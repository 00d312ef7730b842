package gopay

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/go-gopay-client/dispatch"
	"github.com/pkg/errors"
)

var ErrMissingGoID = errors.New("goid is required for this operation")

const dateLayout = "2006-01-02"

// CreatePayment creates a payment. The body follows the gateway's payment
// creation document; target defaults to the configured GoID account.
func (c *Client) CreatePayment(ctx context.Context, payment map[string]any) (*dispatch.Response, error) {
	body := make(map[string]any, len(payment)+1)
	for k, v := range payment {
		body[k] = v
	}
	if _, ok := body["target"]; !ok {
		if c.creds.GoID() == "" {
			return nil, ErrMissingGoID
		}
		body["target"] = map[string]any{"type": "ACCOUNT", "goid": c.goID()}
	}
	return c.Send(ctx, dispatch.Request{
		Method:  http.MethodPost,
		Path:    "/payments/payment",
		Body:    body,
		Content: dispatch.ContentJSON,
	})
}

func (c *Client) PaymentStatus(ctx context.Context, id int64) (*dispatch.Response, error) {
	return c.Send(ctx, dispatch.Request{Method: http.MethodGet, Path: paymentPath(id, "")})
}

// RefundPayment refunds amount (in the smallest currency unit) of a payment.
func (c *Client) RefundPayment(ctx context.Context, id int64, amount int64) (*dispatch.Response, error) {
	return c.Send(ctx, dispatch.Request{
		Method:  http.MethodPost,
		Path:    paymentPath(id, "refund"),
		Body:    map[string]string{"amount": strconv.FormatInt(amount, 10)},
		Content: dispatch.ContentForm,
	})
}

// CreateRecurrence triggers an on-demand recurrence of a recurring payment.
func (c *Client) CreateRecurrence(ctx context.Context, id int64, recurrence map[string]any) (*dispatch.Response, error) {
	return c.Send(ctx, dispatch.Request{
		Method:  http.MethodPost,
		Path:    paymentPath(id, "create-recurrence"),
		Body:    recurrence,
		Content: dispatch.ContentJSON,
	})
}

func (c *Client) VoidRecurrence(ctx context.Context, id int64) (*dispatch.Response, error) {
	return c.Send(ctx, dispatch.Request{Method: http.MethodPost, Path: paymentPath(id, "void-recurrence")})
}

func (c *Client) CapturePreauthorization(ctx context.Context, id int64) (*dispatch.Response, error) {
	return c.Send(ctx, dispatch.Request{Method: http.MethodPost, Path: paymentPath(id, "capture")})
}

// CapturePreauthorizationPartial captures part of a preauthorized amount.
func (c *Client) CapturePreauthorizationPartial(ctx context.Context, id int64, capture map[string]any) (*dispatch.Response, error) {
	return c.Send(ctx, dispatch.Request{
		Method:  http.MethodPost,
		Path:    paymentPath(id, "capture"),
		Body:    capture,
		Content: dispatch.ContentJSON,
	})
}

func (c *Client) VoidPreauthorization(ctx context.Context, id int64) (*dispatch.Response, error) {
	return c.Send(ctx, dispatch.Request{Method: http.MethodPost, Path: paymentPath(id, "void-authorization")})
}

// PaymentInstruments lists the payment methods enabled for the e-shop. An
// empty currency lists them for every currency.
func (c *Client) PaymentInstruments(ctx context.Context, currency string) (*dispatch.Response, error) {
	if c.creds.GoID() == "" {
		return nil, ErrMissingGoID
	}
	return c.Send(ctx, dispatch.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/eshops/eshop/%s/payment-instruments/%s", c.creds.GoID(), currency),
	})
}

// StatementRequest selects an account statement.
type StatementRequest struct {
	Currency string
	Format   string // e.g. "CSV_A", "XLS_B", "ABO_A"
	DateFrom time.Time
	DateTo   time.Time // Zero means today
}

func (c *Client) AccountStatement(ctx context.Context, req StatementRequest) (*dispatch.Response, error) {
	if c.creds.GoID() == "" {
		return nil, ErrMissingGoID
	}
	return c.Send(ctx, dispatch.Request{
		Method: http.MethodPost,
		Path:   "/accounts/account-statement",
		Body: map[string]any{
			"date_from": req.DateFrom.Format(dateLayout),
			"date_to":   c.dateOrToday(req.DateTo),
			"goid":      c.goID(),
			"currency":  req.Currency,
			"format":    req.Format,
		},
		Content: dispatch.ContentJSON,
	})
}

func (c *Client) PaymentEETReceipts(ctx context.Context, id int64) (*dispatch.Response, error) {
	return c.Send(ctx, dispatch.Request{Method: http.MethodGet, Path: paymentPath(id, "eet-receipts")})
}

// EETReceiptsRequest selects EET receipts of one establishment.
type EETReceiptsRequest struct {
	EstablishmentID int64
	DateFrom        time.Time
	DateTo          time.Time // Zero means today
}

func (c *Client) EETReceipts(ctx context.Context, req EETReceiptsRequest) (*dispatch.Response, error) {
	return c.Send(ctx, dispatch.Request{
		Method: http.MethodPost,
		Path:   "/eet-receipts",
		Body: map[string]any{
			"date_from":     req.DateFrom.Format(dateLayout),
			"date_to":       c.dateOrToday(req.DateTo),
			"id_provozovny": req.EstablishmentID,
		},
		Content: dispatch.ContentJSON,
	})
}

func paymentPath(id int64, action string) string {
	path := "/payments/payment/" + strconv.FormatInt(id, 10)
	if action != "" {
		path += "/" + action
	}
	return path
}

// goID sends the e-shop id as a number when it is numeric, as the gateway expects.
func (c *Client) goID() any {
	if n, err := strconv.ParseInt(c.creds.GoID(), 10, 64); err == nil {
		return n
	}
	return c.creds.GoID()
}

func (c *Client) dateOrToday(t time.Time) string {
	if t.IsZero() {
		t = c.nowFunc()
	}
	return t.Format(dateLayout)
}
