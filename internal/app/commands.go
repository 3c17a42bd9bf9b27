package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ggonzalez94/gud-quote/internal/dialog"
	clierr "github.com/ggonzalez94/gud-quote/internal/errors"
	"github.com/ggonzalez94/gud-quote/internal/execution"
	"github.com/ggonzalez94/gud-quote/internal/id"
	"github.com/ggonzalez94/gud-quote/internal/model"
	"github.com/ggonzalez94/gud-quote/internal/registry"
	"github.com/ggonzalez94/gud-quote/internal/schema"
	"github.com/ggonzalez94/gud-quote/internal/version"
)

func (s *runtimeState) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := model.VersionInfo{
				CLI:             version.CLIName,
				Version:         version.CLIVersion,
				Commit:          version.Commit,
				Built:           version.BuildDate,
				RegistryVersion: s.registry.Version(),
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), info, nil, cacheMetaBypass())
		},
	}
}

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [command path]",
		Short: "Print machine-readable command schema",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := schema.Build(s.root, strings.Join(args, " "))
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "build schema", err)
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil, cacheMetaBypass())
		},
	}
}

func (s *runtimeState) newPairsCommand() *cobra.Command {
	var networkArg string
	cmd := &cobra.Command{
		Use:   "pairs",
		Short: "List curated token pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			networks := s.registry.Networks()
			if strings.TrimSpace(networkArg) != "" {
				network, err := parseNetwork(networkArg)
				if err != nil {
					return err
				}
				networks = []registry.Network{network}
			}
			items := make([]model.PairInfo, 0)
			for _, network := range networks {
				for _, p := range s.registry.ListPairsFor(network) {
					items = append(items, model.PairInfo{
						Key:     p.Key,
						Label:   p.Label,
						Network: string(p.Network),
						Src:     p.Src.String(),
						Dst:     p.Dst.String(),
					})
				}
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), items, nil, cacheMetaBypass())
		},
	}
	cmd.Flags().StringVar(&networkArg, "network", "", "Network class (mainnet, testnet)")
	return cmd
}

func (s *runtimeState) newEstimateCommand() *cobra.Command {
	var pairArg, amountArg string
	var slippageBps int
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Quote a token pair through the pricing service",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst, err := s.resolvePair(pairArg)
			if err != nil {
				return err
			}
			amount := dialog.DefaultAmount(src.Symbol)
			if strings.TrimSpace(amountArg) != "" {
				amount, err = decimal.NewFromString(strings.TrimSpace(amountArg))
				if err != nil {
					return clierr.Wrap(clierr.CodeInvalidAmount, fmt.Sprintf("invalid amount %q", amountArg), err)
				}
			}
			defaults := s.quoteDefaults()
			if cmd.Flags().Changed("slippage-bps") {
				defaults.SlippageBps = slippageBps
			}

			summary, err := dialog.Estimate(cmd.Context(), s.pricing, defaults, src, dst, amount)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), summary, nil, cacheMetaBypass())
		},
	}
	cmd.Flags().StringVar(&pairArg, "pair", "", "Pair key, e.g. ETH@ethereum>USDC@ethereum")
	cmd.Flags().StringVar(&amountArg, "amount", "", "Source amount in display units (default depends on the token)")
	cmd.Flags().IntVar(&slippageBps, "slippage-bps", 0, "Slippage tolerance in basis points")
	_ = cmd.MarkFlagRequired("pair")
	return cmd
}

func (s *runtimeState) newStatusCommand() *cobra.Command {
	var wait bool
	var maxWaitArg string
	cmd := &cobra.Command{
		Use:   "status <tx-hash>",
		Short: "Check the settlement status of a submitted trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := trimRootPath(cmd.CommandPath())
			txHash := strings.TrimSpace(args[0])

			cacheStatus := cacheMetaBypass()
			if s.cache != nil {
				cached, ok, err := s.cache.GetTradeStatus(txHash)
				if err != nil {
					s.log.Warn("status cache read failed", zap.Error(err))
				} else if ok {
					return s.emitSuccess(path, cached, nil, cacheMetaHit(s.runner.now().Sub(cached.CheckedAt)))
				}
				cacheStatus = cacheMetaMiss()
			}

			if !wait {
				st, err := s.pricing.GetStatus(cmd.Context(), txHash)
				if err != nil {
					return err
				}
				return s.emitSuccess(path, st, nil, cacheStatus)
			}

			maxWait := s.settings.StatusMaxWait
			if strings.TrimSpace(maxWaitArg) != "" {
				d, err := time.ParseDuration(maxWaitArg)
				if err != nil || d <= 0 {
					return clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid --max-wait %q", maxWaitArg))
				}
				maxWait = d
			}

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(s.runner.stderr))
			if s.settings.OutputMode != "json" {
				sp.Suffix = " Waiting for trade " + txHash + " to settle..."
				sp.Start()
			}
			st, err := s.pricing.AwaitCompletion(cmd.Context(), txHash, maxWait)
			sp.Stop()
			if err != nil {
				return err
			}
			return s.emitSuccess(path, st, nil, cacheStatus)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the trade reaches a terminal status")
	cmd.Flags().StringVar(&maxWaitArg, "max-wait", "", "Maximum time to wait with --wait (default from config)")
	return cmd
}

func (s *runtimeState) newChainsCommand() *cobra.Command {
	var withBalances bool
	cmd := &cobra.Command{
		Use:   "chains",
		Short: "Report per-chain RPC and relayer signing availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), s.settings.Timeout)
			defer cancel()

			manager, report, unresolved := s.newManager(ctx, s.settings.ChainIDs)
			defer manager.Close()

			chains := append([]model.ChainInfo(nil), unresolved...)
			for _, c := range report.Chains {
				info := model.ChainInfo{
					ChainID:  c.ChainID,
					Label:    c.Label,
					RPCURL:   c.RPCURL,
					ReadOnly: c.ReadOnly,
					Error:    c.Error,
				}
				if chain, ok := s.registry.Chain(c.ChainID); ok {
					info.Slug, info.Network = chain.Slug, string(chain.Network)
				}
				chains = append(chains, info)
			}
			sort.Slice(chains, func(i, j int) bool { return chains[i].ChainID < chains[j].ChainID })

			warnings := append([]string(nil), report.Warnings...)
			if withBalances && report.SignerAddress != "" {
				warnings = append(warnings, s.fillBalances(ctx, manager, common.HexToAddress(report.SignerAddress), chains)...)
			}
			s.lastWarnings = warnings

			data := model.ChainsReport{
				SignerAddress: report.SignerAddress,
				SigningChains: report.SigningChains(),
				Chains:        chains,
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, warnings, cacheMetaBypass())
		},
	}
	cmd.Flags().BoolVar(&withBalances, "balances", true, "Query relayer native balances on signing chains")
	return cmd
}

// fillBalances queries the relayer balance on every signing chain in parallel.
func (s *runtimeState) fillBalances(ctx context.Context, manager *execution.Manager, account common.Address, chains []model.ChainInfo) []string {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		warnings []string
	)
	for i := range chains {
		if chains[i].ReadOnly || chains[i].Error != "" {
			continue
		}
		wg.Add(1)
		go func(info *model.ChainInfo) {
			defer wg.Done()
			bal, err := manager.Balance(ctx, info.ChainID, account)
			if err != nil {
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("chain %d: relayer balance unavailable: %v", info.ChainID, err))
				mu.Unlock()
				return
			}
			info.RelayerBalance = id.FromBaseUnits(bal.String(), 18)
		}(&chains[i])
	}
	wg.Wait()
	sort.Strings(warnings)
	return warnings
}

func (s *runtimeState) newRelayCommand() *cobra.Command {
	var (
		chainID int64
		to      string
		data    string
		value   string
	)
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Sign and broadcast a transaction payload with the relayer key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !containsChain(s.settings.ChainIDs, chainID) {
				return clierr.New(clierr.CodeUsage, fmt.Sprintf("chain %d is not in the supported chain list", chainID))
			}
			req, err := execution.NewTxRequest(to, data, value)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*s.settings.Timeout)
			defer cancel()
			manager, report, unresolved := s.newManager(ctx, []int64{chainID})
			defer manager.Close()
			s.lastWarnings = report.Warnings
			if len(unresolved) > 0 {
				return clierr.New(clierr.CodeConfig, fmt.Sprintf("chain %d: %s", chainID, unresolved[0].Error))
			}

			handle, err := manager.Submit(ctx, chainID, req)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), handle, report.Warnings, cacheMetaBypass())
		},
	}
	cmd.Flags().Int64Var(&chainID, "chain", 0, "EVM chain id")
	cmd.Flags().StringVar(&to, "to", "", "Transaction target address")
	cmd.Flags().StringVar(&data, "data", "0x", "Hex calldata")
	cmd.Flags().StringVar(&value, "value", "0", "Native value in wei (decimal or 0x hex)")
	_ = cmd.MarkFlagRequired("chain")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// resolvePair looks up both tokens of a pair key; they must share a network class.
func (s *runtimeState) resolvePair(pairKey string) (registry.TokenEntry, registry.TokenEntry, error) {
	srcKey, dstKey, err := id.ParsePairKey(pairKey)
	if err != nil {
		return registry.TokenEntry{}, registry.TokenEntry{}, err
	}
	src, ok := s.registry.Lookup(srcKey)
	if !ok {
		return registry.TokenEntry{}, registry.TokenEntry{}, clierr.New(clierr.CodeUnknownToken, fmt.Sprintf("unknown token %s", srcKey))
	}
	dst, ok := s.registry.Lookup(dstKey)
	if !ok {
		return registry.TokenEntry{}, registry.TokenEntry{}, clierr.New(clierr.CodeUnknownToken, fmt.Sprintf("unknown token %s", dstKey))
	}
	if src.Network != dst.Network {
		return registry.TokenEntry{}, registry.TokenEntry{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("pair %s mixes %s and %s tokens", pairKey, src.Network, dst.Network))
	}
	return src, dst, nil
}

func (s *runtimeState) quoteDefaults() dialog.QuoteDefaults {
	return dialog.QuoteDefaults{
		SlippageBps:  s.settings.SlippageBps,
		UserAccount:  s.settings.UserAccount,
		DestReceiver: s.settings.DestReceiver,
	}
}

func parseNetwork(input string) (registry.Network, error) {
	network := registry.Network(strings.ToLower(strings.TrimSpace(input)))
	if !network.Valid() {
		return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown network %q (expected mainnet or testnet)", input))
	}
	return network, nil
}

func containsChain(ids []int64, chainID int64) bool {
	for _, v := range ids {
		if v == chainID {
			return true
		}
	}
	return false
}
