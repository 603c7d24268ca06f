package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mshankarrao/Investment-dao/internal/scheduler"
)

// Config represents the application configuration
type Config struct {
	LogLevel         string          `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	HTTPPort         int             `mapstructure:"http_port" validate:"omitempty,min=1024,max=65535"`
	SnapshotInterval string          `mapstructure:"snapshot_interval" validate:"omitempty,schedule"`
	Timezone         string          `mapstructure:"timezone" validate:"omitempty,timezone"`
	RunImmediately   *bool           `mapstructure:"run_immediately"`
	Token            TokenConfig     `mapstructure:"token"`
	Governor         GovernorConfig  `mapstructure:"governor"`
	Scenario         *ScenarioConfig `mapstructure:"scenario" validate:"omitempty"`
}

// TokenConfig describes the governance token minted at genesis
type TokenConfig struct {
	Name        string         `mapstructure:"name" validate:"required,min=1,max=100"`
	Symbol      string         `mapstructure:"symbol" validate:"required,min=1,max=12"`
	Decimals    uint8          `mapstructure:"decimals" validate:"max=30"`
	TotalSupply string         `mapstructure:"total_supply" validate:"required,amount"`
	Minter      string         `mapstructure:"minter" validate:"omitempty,eth_addr"`
	Holders     []HolderConfig `mapstructure:"holders" validate:"required,min=1,dive"`
}

// HolderConfig credits one account in the genesis distribution. Balances are
// human units; they are shifted by the token's decimals when the ledger is
// built.
type HolderConfig struct {
	Address string `mapstructure:"address" validate:"required,eth_addr"`
	Balance string `mapstructure:"balance" validate:"required,amount"`
}

// GovernorConfig describes the on-chain governor's voting parameters
type GovernorConfig struct {
	QuorumPercent   uint8  `mapstructure:"quorum_percent" validate:"required,min=1,max=100"`
	ApprovalPercent uint8  `mapstructure:"approval_percent" validate:"omitempty,max=100"`
	MinVotingPeriod string `mapstructure:"min_voting_period" validate:"omitempty,duration"`
	MaxVotingPeriod string `mapstructure:"max_voting_period" validate:"omitempty,duration"`
	Treasury        string `mapstructure:"treasury" validate:"required,eth_addr"`
}

// ScenarioConfig is an optional scripted sequence of submissions for the
// simulate command
type ScenarioConfig struct {
	Steps []ScenarioStep `mapstructure:"steps" validate:"omitempty,dive"`
}

// ScenarioStep is one scripted submission. Amounts are human units. A step
// may advance the simulated clock before it runs; op "wait" only advances.
type ScenarioStep struct {
	Op         string `mapstructure:"op" validate:"required,oneof=transfer approve increase_allowance decrease_allowance transfer_from mint burn propose vote execute wait"`
	From       string `mapstructure:"from" validate:"omitempty,eth_addr"`
	To         string `mapstructure:"to" validate:"omitempty,eth_addr"`
	Owner      string `mapstructure:"owner" validate:"omitempty,eth_addr"`
	Spender    string `mapstructure:"spender" validate:"omitempty,eth_addr"`
	Recipient  string `mapstructure:"recipient" validate:"omitempty,eth_addr"`
	Amount     string `mapstructure:"amount" validate:"omitempty,amount"`
	Choice     string `mapstructure:"choice" validate:"omitempty,oneof=for against"`
	Period     string `mapstructure:"period" validate:"omitempty,duration"`
	ProposalID uint32 `mapstructure:"proposal_id"`
	Advance    string `mapstructure:"advance" validate:"omitempty,duration"`
	MustFail   bool   `mapstructure:"must_fail"`
}

// Normalize fills defaults that depend on other fields and enforces the
// cross-field rules the tag validators cannot express. Fields the tag
// validators will reject anyway are skipped here.
func (c *Config) Normalize() error {
	if c.Governor.MinVotingPeriod == "" {
		c.Governor.MinVotingPeriod = "1m"
	}
	if c.Governor.MaxVotingPeriod == "" {
		c.Governor.MaxVotingPeriod = "720h"
	}

	minPeriod, minErr := time.ParseDuration(c.Governor.MinVotingPeriod)
	maxPeriod, maxErr := time.ParseDuration(c.Governor.MaxVotingPeriod)
	if minErr == nil && maxErr == nil && minPeriod > maxPeriod {
		return fmt.Errorf("min_voting_period %s exceeds max_voting_period %s",
			c.Governor.MinVotingPeriod, c.Governor.MaxVotingPeriod)
	}

	seen := make(map[common.Address]bool, len(c.Token.Holders))
	for _, h := range c.Token.Holders {
		if !common.IsHexAddress(h.Address) {
			continue
		}
		addr := common.HexToAddress(h.Address)
		if seen[addr] {
			return fmt.Errorf("duplicate holder address %s", h.Address)
		}
		seen[addr] = true
	}

	if common.IsHexAddress(c.Governor.Treasury) && len(seen) > 0 {
		if !seen[common.HexToAddress(c.Governor.Treasury)] {
			return fmt.Errorf("treasury %s must be funded in [[token.holders]]", c.Governor.Treasury)
		}
	}

	return nil
}

// GetTimezone returns the configured timezone, defaulting to UTC
func (c *Config) GetTimezone() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	tz, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return tz
}

// ShouldRunImmediately returns whether the snapshot job runs at startup
// (default: true)
func (c *Config) ShouldRunImmediately() bool {
	if c.RunImmediately == nil {
		return true
	}
	return *c.RunImmediately
}

// IsCronExpression checks if the snapshot interval is a cron expression
func (c *Config) IsCronExpression() bool {
	return len(strings.Fields(c.SnapshotInterval)) >= 5
}

// ethAddressValidator validates Ethereum-style addresses
func ethAddressValidator(fl validator.FieldLevel) bool {
	return common.IsHexAddress(fl.Field().String())
}

// durationValidator validates Go duration strings
func durationValidator(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	_, err := time.ParseDuration(fl.Field().String())
	return err == nil
}

// scheduleValidator validates snapshot intervals (duration or cron)
func scheduleValidator(fl validator.FieldLevel) bool {
	return scheduler.ValidateScheduleInterval(fl.Field().String()) == nil
}

// amountValidator validates non-negative decimal amounts
func amountValidator(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return !d.IsNegative()
}

// NewValidator creates a validator with custom validation rules
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("eth_addr", ethAddressValidator)
	validate.RegisterValidation("duration", durationValidator)
	validate.RegisterValidation("schedule", scheduleValidator)
	validate.RegisterValidation("amount", amountValidator)
	return validate
}
