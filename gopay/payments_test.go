package gopay_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jrsteele09/go-gopay-client/credentials"
	"github.com/jrsteele09/go-gopay-client/gopay"
	"github.com/jrsteele09/go-gopay-client/internal/gatewayfake"
	"github.com/stretchr/testify/require"
)

func TestPayments(t *testing.T) {
	ctx := context.Background()

	t.Run("create payment defaults the target account", func(t *testing.T) {
		gw := gatewayfake.New(t)
		c := newClient(t, gw)

		_, err := c.CreatePayment(ctx, map[string]any{"amount": 12000, "currency": "CZK", "order_number": "Test order"})
		require.NoError(t, err)

		req := gw.LastRequest()
		require.Equal(t, http.MethodPost, req.Method)
		require.Equal(t, "/payments/payment", req.Path)
		var body map[string]any
		require.NoError(t, json.Unmarshal(req.Body, &body))
		require.Equal(t, map[string]any{"type": "ACCOUNT", "goid": float64(8123456789)}, body["target"])
	})

	t.Run("create payment keeps an explicit target", func(t *testing.T) {
		gw := gatewayfake.New(t)
		c := newClient(t, gw)

		_, err := c.CreatePayment(ctx, map[string]any{"target": map[string]any{"type": "ACCOUNT", "goid": 1}})
		require.NoError(t, err)

		var body map[string]any
		require.NoError(t, json.Unmarshal(gw.LastRequest().Body, &body))
		require.Equal(t, float64(1), body["target"].(map[string]any)["goid"])
	})

	t.Run("refund uses a form body", func(t *testing.T) {
		gw := gatewayfake.New(t)
		c := newClient(t, gw)

		_, err := c.RefundPayment(ctx, 3000006529, 500)
		require.NoError(t, err)

		req := gw.LastRequest()
		require.Equal(t, "/payments/payment/3000006529/refund", req.Path)
		require.Equal(t, "application/x-www-form-urlencoded", req.ContentType)
		require.Equal(t, "amount=500", string(req.Body))
	})

	t.Run("action endpoints", func(t *testing.T) {
		gw := gatewayfake.New(t)
		c := newClient(t, gw)

		calls := []struct {
			call func() error
			path string
		}{
			{func() error { _, err := c.PaymentStatus(ctx, 7); return err }, "/payments/payment/7"},
			{func() error { _, err := c.VoidRecurrence(ctx, 7); return err }, "/payments/payment/7/void-recurrence"},
			{func() error { _, err := c.CapturePreauthorization(ctx, 7); return err }, "/payments/payment/7/capture"},
			{func() error { _, err := c.VoidPreauthorization(ctx, 7); return err }, "/payments/payment/7/void-authorization"},
			{func() error { _, err := c.PaymentEETReceipts(ctx, 7); return err }, "/payments/payment/7/eet-receipts"},
			{func() error { _, err := c.CreateRecurrence(ctx, 7, map[string]any{"amount": 1}); return err }, "/payments/payment/7/create-recurrence"},
			{func() error { _, err := c.CapturePreauthorizationPartial(ctx, 7, map[string]any{"amount": 1}); return err }, "/payments/payment/7/capture"},
			{func() error { _, err := c.PaymentInstruments(ctx, "CZK"); return err }, "/eshops/eshop/8123456789/payment-instruments/CZK"},
		}
		for _, tc := range calls {
			require.NoError(t, tc.call())
			require.Equal(t, tc.path, gw.LastRequest().Path)
		}
		require.Equal(t, 1, gw.TokenCalls())
	})

	t.Run("account statement", func(t *testing.T) {
		gw := gatewayfake.New(t)
		today := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
		c := newClient(t, gw, gopay.WithNowFunc(func() time.Time { return today }))

		_, err := c.AccountStatement(ctx, gopay.StatementRequest{
			Currency: "CZK",
			Format:   "CSV_A",
			DateFrom: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)

		var body map[string]any
		require.NoError(t, json.Unmarshal(gw.LastRequest().Body, &body))
		require.Equal(t, "2026-10-01", body["date_from"])
		require.Equal(t, "2026-10-19", body["date_to"])
		require.Equal(t, "CSV_A", body["format"])
	})

	t.Run("eet receipts", func(t *testing.T) {
		gw := gatewayfake.New(t)
		c := newClient(t, gw)

		_, err := c.EETReceipts(ctx, gopay.EETReceiptsRequest{
			EstablishmentID: 11,
			DateFrom:        time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
			DateTo:          time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		require.Equal(t, "/eet-receipts", gw.LastRequest().Path)
	})

	t.Run("goid required", func(t *testing.T) {
		gw := gatewayfake.New(t)
		creds, err := credentials.New(gatewayfake.ClientID, gatewayfake.ClientSecret, credentials.WithBaseURL(gw.BaseURL()))
		require.NoError(t, err)
		c, err := gopay.New(creds, clientOptions(gw)...)
		require.NoError(t, err)

		_, err = c.CreatePayment(ctx, map[string]any{"amount": 1})
		require.ErrorIs(t, err, gopay.ErrMissingGoID)
		_, err = c.PaymentInstruments(ctx, "")
		require.ErrorIs(t, err, gopay.ErrMissingGoID)
		require.Equal(t, 0, gw.TokenCalls())
	})
}
