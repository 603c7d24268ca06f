package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/mshankarrao/Investment-dao/contract/governor"
	"github.com/mshankarrao/Investment-dao/contract/token"
)

// ParseAmount converts a human-unit decimal string ("12.5") into base units
// by shifting it decimals places. It rejects negative amounts and amounts
// with more fractional digits than the token carries.
func ParseAmount(s string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount %q must not be negative", s)
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", s, decimals)
	}
	return shifted.BigInt(), nil
}

// GenesisToken converts the token section into the ledger's construction
// config, shifting all balances into base units.
func (c *Config) GenesisToken() (token.Config, error) {
	supply, err := ParseAmount(c.Token.TotalSupply, c.Token.Decimals)
	if err != nil {
		return token.Config{}, fmt.Errorf("total_supply: %w", err)
	}

	grants := make([]token.Grant, 0, len(c.Token.Holders))
	for _, h := range c.Token.Holders {
		balance, err := ParseAmount(h.Balance, c.Token.Decimals)
		if err != nil {
			return token.Config{}, fmt.Errorf("holder %s: %w", h.Address, err)
		}
		grants = append(grants, token.Grant{
			Account: common.HexToAddress(h.Address),
			Amount:  balance,
		})
	}

	cfg := token.Config{
		Metadata: token.Metadata{
			Name:     c.Token.Name,
			Symbol:   c.Token.Symbol,
			Decimals: c.Token.Decimals,
		},
		TotalSupply:  supply,
		Distribution: grants,
	}
	if c.Token.Minter != "" {
		cfg.Minter = common.HexToAddress(c.Token.Minter)
	}
	return cfg, nil
}

// GovernorParams converts the governor section into the governor's voting
// parameters. Normalize has already filled the period defaults.
func (c *Config) GovernorParams() (governor.Params, error) {
	minPeriod, err := time.ParseDuration(c.Governor.MinVotingPeriod)
	if err != nil {
		return governor.Params{}, fmt.Errorf("min_voting_period: %w", err)
	}
	maxPeriod, err := time.ParseDuration(c.Governor.MaxVotingPeriod)
	if err != nil {
		return governor.Params{}, fmt.Errorf("max_voting_period: %w", err)
	}
	return governor.Params{
		QuorumPercent:   c.Governor.QuorumPercent,
		ApprovalPercent: c.Governor.ApprovalPercent,
		MinVotingPeriod: minPeriod,
		MaxVotingPeriod: maxPeriod,
	}, nil
}

// TreasuryAddress returns the parsed treasury account.
func (c *Config) TreasuryAddress() common.Address {
	return common.HexToAddress(c.Governor.Treasury)
}
