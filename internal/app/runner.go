package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ggonzalez94/gud-quote/internal/cache"
	"github.com/ggonzalez94/gud-quote/internal/config"
	clierr "github.com/ggonzalez94/gud-quote/internal/errors"
	"github.com/ggonzalez94/gud-quote/internal/execution"
	"github.com/ggonzalez94/gud-quote/internal/httpx"
	"github.com/ggonzalez94/gud-quote/internal/logging"
	"github.com/ggonzalez94/gud-quote/internal/model"
	"github.com/ggonzalez94/gud-quote/internal/out"
	"github.com/ggonzalez94/gud-quote/internal/policy"
	"github.com/ggonzalez94/gud-quote/internal/pricing"
	"github.com/ggonzalez94/gud-quote/internal/registry"
	"github.com/ggonzalez94/gud-quote/internal/version"
)

type Runner struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time

	// dialer overrides the chain RPC dialer; nil uses ethclient.
	dialer execution.Dialer
}

func NewRunner() *Runner {
	return NewRunnerWithIO(os.Stdin, os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return NewRunnerWithIO(strings.NewReader(""), stdout, stderr)
}

func NewRunnerWithIO(stdin io.Reader, stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}
}

type runtimeState struct {
	runner       *Runner
	flags        config.GlobalFlags
	settings     config.Settings
	log          *zap.Logger
	registry     *registry.Registry
	pricing      *pricing.Client
	cache        *cache.Store
	root         *cobra.Command
	lastCommand  string
	lastWarnings []string
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r, log: zap.NewNop()}
	root := state.newRootCommand()
	state.root = root
	root.SetArgs(args)
	root.SetIn(r.stdin)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	err = normalizeRunError(err)
	defer state.close()
	if err == nil {
		return 0
	}

	state.renderError("", err, state.lastWarnings)
	return clierr.ExitCode(err)
}

func (s *runtimeState) close() {
	if s.cache != nil {
		_ = s.cache.Close()
	}
	_ = s.log.Sync()
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Quote, track and relay cross-chain swaps through the pricing service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			path := trimRootPath(cmd.CommandPath())
			s.lastCommand = path

			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeConfig, "load configuration", err)
			}
			s.settings = settings
			if err := policy.CheckCommandAllowed(settings.EnableCommands, path); err != nil {
				return err
			}

			log, err := logging.New(settings.LogLevel, settings.LogFormat)
			if err != nil {
				return clierr.Wrap(clierr.CodeConfig, "build logger", err)
			}
			s.log = log.With(zap.String("command", path))

			if s.registry == nil {
				reg, err := registry.Default()
				if err != nil {
					return clierr.Wrap(clierr.CodeInternal, "load token registry", err)
				}
				s.registry = reg
			}

			if settings.CacheEnabled && shouldOpenCache(path) && s.cache == nil {
				store, err := cache.Open(settings.CachePath, settings.CacheLockPath, settings.CacheRetention)
				if err != nil {
					return clierr.Wrap(clierr.CodeInternal, "open status cache", err)
				}
				s.cache = store
			}

			if s.pricing == nil {
				opts := []pricing.Option{pricing.WithLogger(s.log)}
				if s.cache != nil {
					opts = append(opts, pricing.WithStatusCache(s.cache))
				}
				httpClient := httpx.New(settings.Timeout, settings.Retries)
				s.pricing = pricing.New(httpClient, settings.PricingBaseURL, settings.APIKey, opts...)
			}
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	pf := cmd.PersistentFlags()
	pf.BoolVar(&s.flags.JSON, "json", false, "Output JSON envelopes")
	pf.BoolVar(&s.flags.Plain, "plain", false, "Output plain text (default)")
	pf.StringVar(&s.flags.Timeout, "timeout", "", "Pricing and RPC request timeout")
	pf.IntVar(&s.flags.Retries, "retries", -1, "Retries per pricing request on 429/5xx")
	pf.StringVar(&s.flags.PricingURL, "pricing-url", "", "Pricing service base URL")
	pf.StringVar(&s.flags.RPCURL, "rpc-url", "", "Shared RPC URL for every chain")
	pf.StringVar(&s.flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&s.flags.LogFormat, "log-format", "", "Log format (console, json)")
	pf.BoolVar(&s.flags.NoCache, "no-cache", false, "Disable the trade status cache")
	pf.StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	pf.StringVar(&s.flags.EnvFile, "env-file", "", "Path to a .env file")
	pf.StringVar(&s.flags.EnableCommands, "enable-commands", "", "Allowlist command paths (comma-separated)")

	cmd.AddCommand(s.newChatCommand())
	cmd.AddCommand(s.newPairsCommand())
	cmd.AddCommand(s.newEstimateCommand())
	cmd.AddCommand(s.newStatusCommand())
	cmd.AddCommand(s.newChainsCommand())
	cmd.AddCommand(s.newRelayCommand())
	cmd.AddCommand(s.newSchemaCommand())
	cmd.AddCommand(s.newVersionCommand())

	return cmd
}

// newManager dials the given chains with the configured relayer key.
func (s *runtimeState) newManager(ctx context.Context, chainIDs []int64) (*execution.Manager, execution.Report, []model.ChainInfo) {
	endpoints := make([]execution.ChainEndpoint, 0, len(chainIDs))
	var unresolved []model.ChainInfo
	for _, chainID := range chainIDs {
		info := model.ChainInfo{ChainID: chainID, ReadOnly: true}
		if chain, ok := s.registry.Chain(chainID); ok {
			info.Slug, info.Label, info.Network = chain.Slug, chain.Label, string(chain.Network)
		}
		rpcURL, err := s.settings.RPCURLFor(chainID)
		if err != nil {
			info.Error = err.Error()
			unresolved = append(unresolved, info)
			continue
		}
		endpoints = append(endpoints, execution.ChainEndpoint{ChainID: chainID, Label: info.Label, RPCURL: rpcURL})
	}

	opts := []execution.Option{execution.WithLogger(s.log)}
	if s.runner.dialer != nil {
		opts = append(opts, execution.WithDialer(s.runner.dialer))
	}
	manager, report := execution.NewManager(ctx, execution.ManagerConfig{Chains: endpoints, RelayerKey: s.settings.RelayerKey}, opts...)
	return manager, report, unresolved
}

func (s *runtimeState) emitSuccess(commandPath string, data any, warnings []string, cacheStatus model.CacheStatus) error {
	env := model.Envelope{
		Version:  model.EnvelopeVersion,
		Success:  true,
		Data:     data,
		Error:    nil,
		Warnings: warnings,
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
			Cache:     cacheStatus,
		},
	}
	return out.Render(s.runner.stdout, env, s.settings.OutputMode)
}

func (s *runtimeState) renderError(commandPath string, err error, warnings []string) {
	if strings.TrimSpace(commandPath) == "" {
		commandPath = s.lastCommand
		if commandPath == "" {
			commandPath = version.CLIName
		}
	}
	body := &model.ErrorBody{
		Code:    clierr.ExitCode(err),
		Type:    "internal_error",
		Message: err.Error(),
	}
	if cErr, ok := clierr.As(err); ok {
		body.Message = cErr.Message
		if cErr.Cause != nil && cErr.Code != clierr.CodeHTTP {
			body.Message = fmt.Sprintf("%s: %v", cErr.Message, cErr.Cause)
		}
		body.Type = errorType(cErr.Code)
		body.HTTPStatus = cErr.HTTPStatus
		body.HTTPCause = string(cErr.HTTPCause())
	}

	mode := s.settings.OutputMode
	if mode == "" {
		mode = "plain"
		if s.flags.JSON {
			mode = "json"
		}
	}
	env := model.Envelope{
		Version:  model.EnvelopeVersion,
		Success:  false,
		Error:    body,
		Warnings: warnings,
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
			Cache:     cacheMetaBypass(),
		},
	}
	_ = out.Render(s.runner.stderr, env, mode)
}

func errorType(code clierr.Code) string {
	switch code {
	case clierr.CodeUsage:
		return "usage_error"
	case clierr.CodeConfig:
		return "config_error"
	case clierr.CodeInvalidAmount:
		return "invalid_amount"
	case clierr.CodeUnknownToken:
		return "unknown_token"
	case clierr.CodeNetworkUnavailable:
		return "network_unavailable"
	case clierr.CodeHTTP:
		return "http_error"
	case clierr.CodeMalformedResponse:
		return "malformed_response"
	case clierr.CodeSignerUnavailable:
		return "signer_unavailable"
	case clierr.CodePollTimeout:
		return "poll_timeout"
	case clierr.CodeBlocked:
		return "command_blocked"
	default:
		return "internal_error"
	}
}

func newRequestID() string {
	return uuid.NewString()
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}

func cacheMetaBypass() model.CacheStatus {
	return model.CacheStatus{Status: "bypass"}
}

func cacheMetaMiss() model.CacheStatus {
	return model.CacheStatus{Status: "miss"}
}

func cacheMetaHit(age time.Duration) model.CacheStatus {
	return model.CacheStatus{Status: "hit", AgeMS: age.Milliseconds()}
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"required flag(s)",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
		"invalid args",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// shouldOpenCache limits the sqlite store to commands that read trade statuses.
func shouldOpenCache(commandPath string) bool {
	switch strings.TrimSpace(commandPath) {
	case "status":
		return true
	default:
		return false
	}
}
