package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/mshankarrao/Investment-dao/contract"
	"github.com/mshankarrao/Investment-dao/contract/governor"
	"github.com/mshankarrao/Investment-dao/contract/token"
	"github.com/mshankarrao/Investment-dao/internal/chain"
	"github.com/mshankarrao/Investment-dao/internal/storage"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 500
)

// amountJSON renders one value in base units and shifted by the token's
// decimals.
type amountJSON struct {
	Raw   string `json:"raw"`
	Human string `json:"human"`
}

func (s *Server) amount(v *big.Int) amountJSON {
	return amountJSON{
		Raw:   v.String(),
		Human: storage.HumanDecimal(v, s.decimals).String(),
	}
}

type governorJSON struct {
	QuorumPercent   uint8  `json:"quorum_percent"`
	ApprovalPercent uint8  `json:"approval_percent"`
	MinVotingPeriod string `json:"min_voting_period"`
	MaxVotingPeriod string `json:"max_voting_period"`
}

type treasuryJSON struct {
	Address string     `json:"address"`
	Balance amountJSON `json:"balance"`
}

type tokenResponse struct {
	Name          string       `json:"name"`
	Symbol        string       `json:"symbol"`
	Decimals      uint8        `json:"decimals"`
	TotalSupply   amountJSON   `json:"total_supply"`
	Height        uint64       `json:"height"`
	LastBlockTime time.Time    `json:"last_block_time"`
	Treasury      treasuryJSON `json:"treasury"`
	Governor      governorJSON `json:"governor"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	md := s.chain.Metadata()
	params := s.chain.GovernorParams()

	s.respondJSON(w, http.StatusOK, tokenResponse{
		Name:          md.Name,
		Symbol:        md.Symbol,
		Decimals:      md.Decimals,
		TotalSupply:   s.amount(s.chain.TotalSupply()),
		Height:        s.chain.Height(),
		LastBlockTime: s.chain.LastBlockTime(),
		Treasury: treasuryJSON{
			Address: s.chain.TreasuryAddress().Hex(),
			Balance: s.amount(s.chain.TreasuryBalance()),
		},
		Governor: governorJSON{
			QuorumPercent:   params.QuorumPercent,
			ApprovalPercent: params.ApprovalPercent,
			MinVotingPeriod: params.MinVotingPeriod.String(),
			MaxVotingPeriod: params.MaxVotingPeriod.String(),
		},
	})
}

type holderJSON struct {
	Account string     `json:"account"`
	Balance amountJSON `json:"balance"`
}

type holdersResponse struct {
	Height        uint64       `json:"height"`
	LastBlockTime time.Time    `json:"last_block_time"`
	Holders       []holderJSON `json:"holders"`
}

func (s *Server) handleHolders(w http.ResponseWriter, r *http.Request) {
	balances, height, lastTime := s.chain.HolderBalances()

	accounts := make([]common.Address, 0, len(balances))
	for acct := range balances {
		accounts = append(accounts, acct)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Cmp(accounts[j]) < 0
	})

	holders := make([]holderJSON, 0, len(accounts))
	for _, acct := range accounts {
		holders = append(holders, holderJSON{
			Account: acct.Hex(),
			Balance: s.amount(balances[acct]),
		})
	}

	s.respondJSON(w, http.StatusOK, holdersResponse{
		Height:        height,
		LastBlockTime: lastTime,
		Holders:       holders,
	})
}

type balanceResponse struct {
	Account string     `json:"account"`
	Balance amountJSON `json:"balance"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	account, err := addressParam(r, "account")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, balanceResponse{
		Account: account.Hex(),
		Balance: s.amount(s.chain.BalanceOf(account)),
	})
}

type allowanceResponse struct {
	Owner     string     `json:"owner"`
	Spender   string     `json:"spender"`
	Allowance amountJSON `json:"allowance"`
	Unlimited bool       `json:"unlimited"`
}

func (s *Server) handleAllowance(w http.ResponseWriter, r *http.Request) {
	owner, err := addressParam(r, "owner")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	spender, err := addressParam(r, "spender")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	allowance := s.chain.Allowance(owner, spender)
	s.respondJSON(w, http.StatusOK, allowanceResponse{
		Owner:     owner.Hex(),
		Spender:   spender.Hex(),
		Allowance: s.amount(allowance),
		Unlimited: allowance.Cmp(token.UnlimitedAllowance) == 0,
	})
}

type tallyJSON struct {
	For     amountJSON `json:"for"`
	Against amountJSON `json:"against"`
}

type proposalJSON struct {
	ID        uint32     `json:"id"`
	Proposer  string     `json:"proposer"`
	Recipient string     `json:"recipient"`
	Amount    amountJSON `json:"amount"`
	VoteStart time.Time  `json:"vote_start"`
	VoteEnd   time.Time  `json:"vote_end"`
	Executed  bool       `json:"executed"`
	Tally     tallyJSON  `json:"tally"`
}

func (s *Server) proposalView(p governor.Proposal, t governor.Tally) proposalJSON {
	return proposalJSON{
		ID:        p.ID,
		Proposer:  p.Proposer.Hex(),
		Recipient: p.Recipient.Hex(),
		Amount:    s.amount(p.Amount),
		VoteStart: p.VoteStart,
		VoteEnd:   p.VoteEnd,
		Executed:  p.Executed,
		Tally: tallyJSON{
			For:     s.amount(t.ForVotes),
			Against: s.amount(t.AgainstVotes),
		},
	}
}

type proposalsResponse struct {
	Proposals []proposalJSON `json:"proposals"`
}

func (s *Server) handleProposals(w http.ResponseWriter, r *http.Request) {
	ps := s.chain.Proposals()

	out := make([]proposalJSON, 0, len(ps))
	for _, p := range ps {
		t, err := s.chain.Tally(p.ID)
		if err != nil {
			continue
		}
		out = append(out, s.proposalView(p, t))
	}

	s.respondJSON(w, http.StatusOK, proposalsResponse{Proposals: out})
}

func (s *Server) handleProposal(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid proposal id %q", chi.URLParam(r, "id")))
		return
	}

	p, err := s.chain.Proposal(uint32(id))
	if errors.Is(err, governor.ErrProposalNotFound) {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	t, err := s.chain.Tally(p.ID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, s.proposalView(p, t))
}

type transferJSON struct {
	Seq        uint64     `json:"seq"`
	Height     uint64     `json:"height"`
	OccurredAt time.Time  `json:"occurred_at"`
	MsgType    string     `json:"msg_type"`
	Sender     string     `json:"sender"`
	From       string     `json:"from"`
	To         string     `json:"to"`
	Amount     amountJSON `json:"amount"`
}

type transfersResponse struct {
	Transfers []transferJSON `json:"transfers"`
}

func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	if account != "" {
		if !common.IsHexAddress(account) {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid account address %q", account))
			return
		}
		account = common.HexToAddress(account).Hex()
	}

	limit, err := limitParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := s.store.Transfers(r.Context(), account, limit)
	if err != nil {
		s.logger.Error("transfer history query failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to read transfer history")
		return
	}

	out := make([]transferJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, transferJSON{
			Seq:        row.Seq,
			Height:     row.Height,
			OccurredAt: row.OccurredAt,
			MsgType:    row.MsgType,
			Sender:     row.Sender,
			From:       row.FromAccount,
			To:         row.ToAccount,
			Amount: amountJSON{
				Raw:   row.RawAmount.String(),
				Human: row.Amount.String(),
			},
		})
	}

	s.respondJSON(w, http.StatusOK, transfersResponse{Transfers: out})
}

type snapshotJSON struct {
	Account string     `json:"account"`
	Height  uint64     `json:"height"`
	TakenAt time.Time  `json:"taken_at"`
	Balance amountJSON `json:"balance"`
}

type snapshotsResponse struct {
	Snapshots []snapshotJSON `json:"snapshots"`
}

// handleSnapshots serves the most recent stored snapshot per account. Unlike
// /v1/holders this reads the projection, so it reflects the last scheduled
// run, not the live ledger.
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.LatestSnapshots(r.Context())
	if err != nil {
		s.logger.Error("snapshot query failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to read balance snapshots")
		return
	}

	out := make([]snapshotJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, snapshotJSON{
			Account: row.Account,
			Height:  row.Height,
			TakenAt: row.TakenAt,
			Balance: amountJSON{
				Raw:   row.RawBalance.String(),
				Human: row.Balance.String(),
			},
		})
	}

	s.respondJSON(w, http.StatusOK, snapshotsResponse{Snapshots: out})
}

type recordJSON struct {
	Seq     uint64         `json:"seq"`
	Height  uint64         `json:"height"`
	Time    time.Time      `json:"time"`
	From    string         `json:"from"`
	MsgType string         `json:"msg_type"`
	Event   map[string]any `json:"event"`
}

type eventsResponse struct {
	Records []recordJSON `json:"records"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid since %q", raw))
			return
		}
		since = parsed
	}

	limit, err := limitParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records := s.chain.EventsSince(since, limit)
	out := make([]recordJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, recordJSON{
			Seq:     rec.Seq,
			Height:  rec.Height,
			Time:    rec.Time,
			From:    rec.From.Hex(),
			MsgType: rec.MsgType,
			Event:   s.eventJSON(rec.Event),
		})
	}

	s.respondJSON(w, http.StatusOK, eventsResponse{Records: out})
}

type receiptJSON struct {
	Height     uint64           `json:"height"`
	Time       time.Time        `json:"time"`
	From       string           `json:"from"`
	Type       string           `json:"type"`
	Status     string           `json:"status"`
	Error      string           `json:"error,omitempty"`
	ProposalID uint32           `json:"proposal_id,omitempty"`
	Events     []map[string]any `json:"events"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var env chain.Envelope
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	from, msg, err := env.Message()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rcpt, err := s.chain.Submit(from, msg)
	if rcpt == nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := http.StatusOK
	if rcpt.Failed() {
		status = http.StatusUnprocessableEntity
	}

	events := make([]map[string]any, 0, len(rcpt.Events))
	for _, ev := range rcpt.Events {
		events = append(events, s.eventJSON(ev))
	}

	s.respondJSON(w, status, receiptJSON{
		Height:     rcpt.Height,
		Time:       rcpt.Time,
		From:       rcpt.From.Hex(),
		Type:       rcpt.Type,
		Status:     rcpt.Status,
		Error:      rcpt.Err,
		ProposalID: rcpt.ProposalID,
		Events:     events,
	})
}

// eventJSON flattens a contract event for the wire, tagging transfer and
// approval events with their canonical ERC-20 topic hashes.
func (s *Server) eventJSON(e contract.Event) map[string]any {
	out := map[string]any{"name": e.EventName()}
	if topic, ok := contract.Topic(e); ok {
		out["topic"] = topic.Hex()
	}

	switch ev := e.(type) {
	case contract.TransferEvent:
		out["from"] = ev.From.Hex()
		out["to"] = ev.To.Hex()
		out["amount"] = s.amount(ev.Amount)
	case contract.ApprovalEvent:
		out["owner"] = ev.Owner.Hex()
		out["spender"] = ev.Spender.Hex()
		out["amount"] = s.amount(ev.Amount)
	case contract.ProposalCreatedEvent:
		out["id"] = ev.ID
		out["proposer"] = ev.Proposer.Hex()
		out["recipient"] = ev.Recipient.Hex()
		out["amount"] = s.amount(ev.Amount)
		out["vote_start"] = ev.VoteStart
		out["vote_end"] = ev.VoteEnd
	case contract.VoteCastEvent:
		out["id"] = ev.ID
		out["voter"] = ev.Voter.Hex()
		out["choice"] = ev.Choice
		out["weight"] = s.amount(ev.Weight)
	case contract.ProposalExecutedEvent:
		out["id"] = ev.ID
		out["recipient"] = ev.Recipient.Hex()
		out["amount"] = s.amount(ev.Amount)
	}
	return out
}

func addressParam(r *http.Request, name string) (common.Address, error) {
	raw := chi.URLParam(r, name)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid %s address %q", name, raw)
	}
	return common.HexToAddress(raw), nil
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	if n > maxHistoryLimit {
		n = maxHistoryLimit
	}
	return n, nil
}
