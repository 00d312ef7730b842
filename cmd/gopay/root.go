package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jrsteele09/go-gopay-client/credentials"
	"github.com/jrsteele09/go-gopay-client/gopay"
	"github.com/jrsteele09/go-gopay-client/internal/config"
	"github.com/jrsteele09/go-gopay-client/internal/errors"
	"github.com/jrsteele09/go-gopay-client/session"
	"github.com/jrsteele09/go-gopay-client/session/filestore"
	"github.com/jrsteele09/go-gopay-client/session/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type contextKey string

const cliContextKey contextKey = "cliContext"

// noClient marks commands that only touch the session store.
const noClient = "no-client"

// cliContext is shared by every command of one invocation.
type cliContext struct {
	cfg    config.Config
	store  session.Store
	sealer *session.Sealer
	client *gopay.Client
	close  func() error
}

var (
	configPath string
	logLevel   string
	logJSON    bool
)

func newRootCommand() *cobra.Command {
	var cc cliContext

	rootCmd := &cobra.Command{
		Use:           "gopay",
		Short:         "Call the GoPay payment gateway",
		Long:          "Calls the GoPay REST API, reusing one cached access token across invocations.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			displayAppname(appName)
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cc.cfg = cfg
			setupLogging(cmd, cfg)

			if cmd == cmd.Root() {
				return nil
			}
			if err := cc.openStore(); err != nil {
				return err
			}
			if cmd.Annotations[noClient] == "" {
				if err := cc.openClient(cmd.Context()); err != nil {
					_ = cc.finish(cmd.Context())
					return err
				}
			}
			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey, &cc))
			return nil
		},
	}

	rootCmd.AddCommand(newTokenCommand())
	rootCmd.AddCommand(newRequestCommand())
	rootCmd.AddCommand(newPaymentCommand())
	rootCmd.AddCommand(newSessionCommand())
	finishAfterRun(rootCmd, &cc)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"YAML config file (environment variables take precedence)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false,
		"Log JSON lines instead of console output")

	return rootCmd
}

// finishAfterRun makes every subcommand save the session and release the
// store once it returns, including when it fails.
func finishAfterRun(cmd *cobra.Command, cc *cliContext) {
	for _, child := range cmd.Commands() {
		finishAfterRun(child, cc)
	}
	if cmd.RunE == nil || !cmd.HasParent() {
		return
	}
	runE := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if finishErr := cc.finish(cmd.Context()); err == nil {
				err = finishErr
			}
		}()
		return runE(cmd, args)
	}
}

func (cc *cliContext) finish(ctx context.Context) error {
	if cc.client != nil {
		if err := cc.client.SaveSession(ctx, cc.store, cc.cfg.GetSessionName()); err != nil {
			log.Warn().Err(err).Msg("session not saved")
		}
	}
	if cc.close == nil {
		return nil
	}
	closeStore := cc.close
	cc.close = nil
	return closeStore()
}

func setupLogging(cmd *cobra.Command, cfg config.LogConfig) {
	levelName := cfg.GetLogLevel()
	if cmd.Flags().Changed("log-level") {
		levelName = logLevel
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if logJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func (cc *cliContext) openStore() error {
	if key := cc.cfg.GetSealKey(); key != "" {
		sealer, err := session.NewSealerFromHex(key)
		if err != nil {
			return errors.Wrapf(errors.ErrInvalidSealKey, "%v", err)
		}
		cc.sealer = sealer
	}

	if addr := cc.cfg.GetRedisAddr(); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		cc.store = redisstore.New(rdb)
		cc.close = rdb.Close
		log.Debug().Str("addr", addr).Msg("using redis session store")
		return nil
	}

	dir := cc.cfg.GetSessionDir()
	if dir == "" {
		var err error
		if dir, err = filestore.DefaultDir(); err != nil {
			return err
		}
	}
	cc.store = filestore.New(dir)
	log.Debug().Str("dir", dir).Msg("using file session store")
	return nil
}

func (cc *cliContext) openClient(ctx context.Context) error {
	if err := cc.cfg.Validate(); err != nil {
		return err
	}
	creds, err := credentialsFromConfig(cc.cfg)
	if err != nil {
		return err
	}
	timeout, err := cc.cfg.GetRequestTimeout()
	if err != nil {
		return err
	}

	opts := []gopay.Option{
		gopay.WithTimeout(timeout),
		gopay.WithLogger(log.Logger),
	}
	if cc.sealer != nil {
		opts = append(opts, gopay.WithSealer(cc.sealer))
	}
	client, err := gopay.LoadOrNew(ctx, cc.store, cc.cfg.GetSessionName(), creds, opts...)
	if err != nil {
		return err
	}
	cc.client = client
	return nil
}

func credentialsFromConfig(cfg config.GatewayConfig) (credentials.Credentials, error) {
	env, err := credentials.ParseEnvironment(cfg.GetEnvironment())
	if err != nil {
		return credentials.Credentials{}, err
	}
	opts := []credentials.Option{
		credentials.WithEnvironment(env),
		credentials.WithGoID(cfg.GetGoID()),
	}
	if scope := cfg.GetScope(); scope != "" {
		opts = append(opts, credentials.WithScope(scope))
	}
	if baseURL := cfg.GetBaseURL(); baseURL != "" {
		opts = append(opts, credentials.WithBaseURL(baseURL))
	}
	return credentials.New(cfg.GetClientID(), cfg.GetClientSecret(), opts...)
}

func getCliContext(cmd *cobra.Command) *cliContext {
	return cmd.Context().Value(cliContextKey).(*cliContext)
}

func printResponse(cmd *cobra.Command, body []byte) {
	out := cmd.OutOrStdout()
	if pretty, ok := indentJSON(body); ok {
		fmt.Fprintln(out, pretty)
		return
	}
	fmt.Fprintln(out, string(body))
}
