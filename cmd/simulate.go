package cmd

import (
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/mshankarrao/Investment-dao/internal/chain"
	"github.com/mshankarrao/Investment-dao/internal/config"
	"github.com/mshankarrao/Investment-dao/internal/logger"
	"github.com/mshankarrao/Investment-dao/internal/storage"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay the configured scenario on a fresh chain",
	Long: `Run the [scenario] steps from the configuration file against a fresh dev
chain driven by a simulated clock. Steps advance the clock explicitly, so
voting periods elapse instantly. No database is required; the final chain
state is checked and printed.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}
	if cfg.Scenario == nil || len(cfg.Scenario.Steps) == 0 {
		return fmt.Errorf("no [[scenario.steps]] in configuration")
	}

	genesis, err := buildGenesis(cfg)
	if err != nil {
		slog.Error("Invalid genesis configuration", "error", err)
		return err
	}

	// 2025-01-01T00:00:00Z
	clock := clockwork.NewFakeClockAt(time.Unix(1735689600, 0).UTC())

	ch, err := chain.New(genesis, clock, nil, slog.Default())
	if err != nil {
		slog.Error("Failed to start dev chain", "error", err)
		return err
	}

	human := func(v *big.Int) string {
		return storage.HumanDecimal(v, cfg.Token.Decimals).String()
	}

	slog.Info("Simulation started",
		"symbol", cfg.Token.Symbol,
		"supply", human(ch.TotalSupply()),
		"steps", len(cfg.Scenario.Steps),
		"genesis_time", clock.Now().UTC().Format(time.RFC3339),
	)

	for i, step := range cfg.Scenario.Steps {
		if step.Advance != "" {
			d, err := time.ParseDuration(step.Advance)
			if err != nil {
				return fmt.Errorf("step %d: advance: %w", i+1, err)
			}
			clock.Advance(d)
			slog.Debug("Clock advanced",
				"step", i+1,
				"by", d.String(),
				"now", clock.Now().UTC().Format(time.RFC3339),
			)
		}
		if step.Op == "wait" {
			continue
		}

		env := chain.Envelope{
			Type:       step.Op,
			From:       step.From,
			To:         step.To,
			Owner:      step.Owner,
			Spender:    step.Spender,
			Recipient:  step.Recipient,
			Choice:     step.Choice,
			Period:     step.Period,
			ProposalID: step.ProposalID,
		}
		if step.Amount != "" {
			amount, err := config.ParseAmount(step.Amount, cfg.Token.Decimals)
			if err != nil {
				return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
			}
			env.Amount = amount.String()
		}

		from, msg, err := env.Message()
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}

		rcpt, err := ch.Submit(from, msg)
		switch {
		case step.MustFail && err == nil:
			return fmt.Errorf("step %d (%s): expected failure, got success at height %d",
				i+1, step.Op, rcpt.Height)
		case step.MustFail:
			slog.Info("Step rejected as expected", "step", i+1, "op", step.Op, "error", err)
		case err != nil:
			return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		default:
			attrs := []any{"step", i + 1, "op", step.Op, "height", rcpt.Height}
			if rcpt.ProposalID != 0 {
				attrs = append(attrs, "proposal_id", rcpt.ProposalID)
			}
			slog.Info("Step applied", attrs...)
		}
	}

	// The ledger must conserve supply no matter what the scenario did.
	balances, height, _ := ch.HolderBalances()
	total := new(big.Int)
	for _, balance := range balances {
		total.Add(total, balance)
	}
	if total.Cmp(ch.TotalSupply()) != 0 {
		return fmt.Errorf("balance sum %s does not match total supply %s", total, ch.TotalSupply())
	}

	slog.Info("Simulation completed",
		"height", height,
		"holders", len(balances),
		"treasury", human(ch.TreasuryBalance()),
	)

	for _, p := range ch.Proposals() {
		tally, err := ch.Tally(p.ID)
		if err != nil {
			continue
		}
		slog.Info("Proposal",
			"id", p.ID,
			"recipient", p.Recipient.Hex(),
			"amount", human(p.Amount),
			"for", human(tally.ForVotes),
			"against", human(tally.AgainstVotes),
			"executed", p.Executed,
		)
	}

	return nil
}
