package gopay_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-gopay-client/gopay"
	"github.com/jrsteele09/go-gopay-client/internal/gatewayfake"
	"github.com/stretchr/testify/require"
)

const catalogBody = `{
  "groups": {},
  "enabledPaymentInstruments": {
    "PAYMENT_CARD": {
      "label": {"cs": "Platební karta", "en": "Payment card"},
      "image": {"normal": "https://gate.gopay.cz/images/card.png", "large": "https://gate.gopay.cz/images/card@2x.png"},
      "currencies": ["CZK", "EUR"]
    },
    "BANK_ACCOUNT": {
      "label": {"cs": "Rychlý bankovní převod"},
      "image": {"large": "https://gate.gopay.cz/images/bank@2x.png"},
      "currencies": ["CZK"],
      "enabledSwifts": {
        "GIBACZPX": {
          "label": {"cs": "Platba 24"},
          "image": {"large": "https://gate.gopay.cz/images/gibaczpx@2x.png"},
          "currencies": {"CZK": {"isOnline": true}}
        },
        "FIOBCZPP": {
          "label": {"cs": "FIO platba"},
          "image": {"large": "https://gate.gopay.cz/images/fiobczpp@2x.png"},
          "currencies": {"CZK": {"isOnline": true}, "EUR": {"isOnline": false}}
        }
      }
    }
  }
}`

func TestPaymentMethods(t *testing.T) {
	ctx := context.Background()

	t.Run("catalog grouped by currency", func(t *testing.T) {
		gw := gatewayfake.New(t)
		gw.EnqueueResource(gatewayfake.Response{Body: catalogBody})
		c := newClient(t, gw)
		require.Equal(t, 0, gw.ResourceCalls())

		methods, err := c.PaymentMethods(ctx)
		require.NoError(t, err)
		require.Equal(t, "/eshops/eshop/8123456789/payment-instruments/", gw.LastRequest().Path)

		require.Equal(t, []string{"CZK", "EUR"}, methods.Currencies())
		require.Equal(t, []gopay.PaymentMethod{
			{Name: "BANK_ACCOUNT", Label: "Rychlý bankovní převod", Image: "https://gate.gopay.cz/images/bank@2x.png"},
			{Name: "PAYMENT_CARD", Label: "Platební karta", Image: "https://gate.gopay.cz/images/card@2x.png"},
		}, methods.Instruments["CZK"])
		require.Len(t, methods.Instruments["EUR"], 1)

		require.Equal(t, []gopay.PaymentMethod{
			{Name: "FIOBCZPP", Label: "FIO platba", Image: "https://gate.gopay.cz/images/fiobczpp@2x.png"},
			{Name: "GIBACZPX", Label: "Platba 24", Image: "https://gate.gopay.cz/images/gibaczpx@2x.png"},
		}, methods.Swifts["CZK"])
		require.Equal(t, "FIOBCZPP", methods.Swifts["EUR"][0].Name)
	})

	t.Run("fetched once", func(t *testing.T) {
		gw := gatewayfake.New(t)
		gw.EnqueueResource(gatewayfake.Response{Body: catalogBody})
		c := newClient(t, gw)

		first, err := c.PaymentMethods(ctx)
		require.NoError(t, err)
		second, err := c.PaymentMethods(ctx)
		require.NoError(t, err)
		require.Same(t, first, second)
		require.Equal(t, 1, gw.ResourceCalls())
	})

	t.Run("reload refreshes token and catalog", func(t *testing.T) {
		gw := gatewayfake.New(t)
		gw.EnqueueResource(
			gatewayfake.Response{Body: catalogBody},
			gatewayfake.Response{Body: `{"enabledPaymentInstruments": {"GPAY": {"label": {"cs": "Google Pay"}, "image": {"large": "g.png"}, "currencies": ["EUR"]}}}`},
		)
		c := newClient(t, gw)
		_, err := c.PaymentMethods(ctx)
		require.NoError(t, err)

		methods, err := c.ReloadPaymentMethods(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"EUR"}, methods.Currencies())
		require.Empty(t, methods.Swifts)
		require.Equal(t, 2, gw.TokenCalls())
		require.Equal(t, 2, gw.ResourceCalls())
	})

	t.Run("gateway failure is not cached", func(t *testing.T) {
		gw := gatewayfake.New(t)
		gw.EnqueueResource(
			gatewayfake.Response{Status: 500, Body: `{"errors":[{"error_code":500,"error_name":"INTERNAL"}]}`},
			gatewayfake.Response{Body: catalogBody},
		)
		c := newClient(t, gw)

		_, err := c.PaymentMethods(ctx)
		require.Error(t, err)
		methods, err := c.PaymentMethods(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, methods.Instruments)
	})
}
