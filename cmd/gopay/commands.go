package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-gopay-client/dispatch"
	"github.com/jrsteele09/go-gopay-client/internal/errors"
	"github.com/jrsteele09/go-gopay-client/session"
	"github.com/spf13/cobra"
)

func newTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a valid access token, authenticating only when needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := getCliContext(cmd)
			tok, err := cc.client.Token(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Value)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", tok.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
}

func newRequestCommand() *cobra.Command {
	var jsonBody string
	var formBody []string

	cmd := &cobra.Command{
		Use:     "request METHOD PATH",
		Short:   "Send an arbitrary API request",
		Example: "  gopay request GET /payments/payment/3000006529\n  gopay request POST /payments/payment/3000006529/refund --form amount=500",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dispatch.Request{Method: strings.ToUpper(args[0]), Path: args[1]}
			switch {
			case jsonBody != "" && len(formBody) > 0:
				return errors.Wrapf(errors.ErrInvalidArgument, "--json and --form are exclusive")
			case jsonBody != "":
				var body any
				if err := json.Unmarshal([]byte(jsonBody), &body); err != nil {
					return errors.Wrapf(errors.ErrInvalidArgument, "--json: %v", err)
				}
				req.Body, req.Content = body, dispatch.ContentJSON
			case len(formBody) > 0:
				values := url.Values{}
				for _, pair := range formBody {
					k, v, ok := strings.Cut(pair, "=")
					if !ok {
						return errors.Wrapf(errors.ErrInvalidArgument, "--form %q is not key=value", pair)
					}
					values.Add(k, v)
				}
				req.Body, req.Content = values, dispatch.ContentForm
			}
			return send(cmd, req)
		},
	}
	cmd.Flags().StringVar(&jsonBody, "json", "", "JSON request body")
	cmd.Flags().StringArrayVar(&formBody, "form", nil, "form field key=value (repeatable)")
	return cmd
}

func newPaymentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Create and manage payments",
	}

	var paymentJSON string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a payment from a JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var payment map[string]any
			if err := json.Unmarshal([]byte(paymentJSON), &payment); err != nil {
				return errors.Wrapf(errors.ErrInvalidArgument, "--json: %v", err)
			}
			resp, err := getCliContext(cmd).client.CreatePayment(cmd.Context(), payment)
			return printResult(cmd, resp, err)
		},
	}
	create.Flags().StringVar(&paymentJSON, "json", "", "payment document")
	_ = create.MarkFlagRequired("json")

	status := &cobra.Command{
		Use:   "status ID",
		Short: "Show the state of a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			resp, err := getCliContext(cmd).client.PaymentStatus(cmd.Context(), id)
			return printResult(cmd, resp, err)
		},
	}

	refund := &cobra.Command{
		Use:   "refund ID AMOUNT",
		Short: "Refund an amount in the smallest currency unit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := parseID(args[1])
			if err != nil {
				return err
			}
			resp, err := getCliContext(cmd).client.RefundPayment(cmd.Context(), id, amount)
			return printResult(cmd, resp, err)
		},
	}

	var reload bool
	methods := &cobra.Command{
		Use:   "methods",
		Short: "List enabled payment instruments and banks per currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := getCliContext(cmd).client
			fetch := client.PaymentMethods
			if reload {
				fetch = client.ReloadPaymentMethods
			}
			catalog, err := fetch(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, currency := range catalog.Currencies() {
				fmt.Fprintf(out, "%s\n", currency)
				for _, m := range catalog.Instruments[currency] {
					fmt.Fprintf(out, "  %-20s %s\n", m.Name, m.Label)
				}
				for _, m := range catalog.Swifts[currency] {
					fmt.Fprintf(out, "    %-18s %s\n", m.Name, m.Label)
				}
			}
			return nil
		},
	}
	methods.Flags().BoolVar(&reload, "reload", false, "fetch a fresh token and catalog")

	cmd.AddCommand(create, status, refund, methods)
	return cmd
}

func newSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or clear the cached session",
	}

	show := &cobra.Command{
		Use:         "show",
		Short:       "Describe the cached session without contacting the gateway",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noClient: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := getCliContext(cmd)
			name := cc.cfg.GetSessionName()
			blob, err := cc.store.Load(cmd.Context(), name)
			if errors.Is(err, session.ErrNotFound) {
				return errors.Wrapf(errors.ErrNoSession, "session %q", name)
			}
			if err != nil {
				return err
			}
			state, err := session.Unmarshal(blob, cc.sealer)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session:  %s\nclient:   %s\nsealed:   %t\n", name, state.Credentials, session.IsSealed(blob))
			if state.Token == nil {
				fmt.Fprintln(out, "token:    none")
				return nil
			}
			fmt.Fprintf(out, "token:    expires %s (valid: %t)\n",
				state.Token.ExpiresAt.Format(time.RFC3339), state.Token.Valid(time.Now()))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:         "clear",
		Short:       "Forget the cached session",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noClient: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := getCliContext(cmd)
			return cc.store.Delete(cmd.Context(), cc.cfg.GetSessionName())
		},
	}

	cmd.AddCommand(show, clearCmd)
	return cmd
}

func send(cmd *cobra.Command, req dispatch.Request) error {
	resp, err := getCliContext(cmd).client.Send(cmd.Context(), req)
	return printResult(cmd, resp, err)
}

// printResult prints whatever body the gateway returned, also for errors.
func printResult(cmd *cobra.Command, resp *dispatch.Response, err error) error {
	if resp != nil && len(resp.Body) > 0 {
		printResponse(cmd, resp.Body)
	}
	if resp != nil && !resp.Success {
		fmt.Fprintf(cmd.ErrOrStderr(), "HTTP %d\n", resp.StatusCode)
	}
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Wrapf(errors.ErrInvalidArgument, "%q is not a positive number", s)
	}
	return id, nil
}

func indentJSON(body []byte) (string, bool) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return "", false
	}
	return buf.String(), true
}
