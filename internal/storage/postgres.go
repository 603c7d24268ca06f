package storage

import (
	"context"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// defaultQueryLimit caps history queries that pass no explicit limit.
const defaultQueryLimit = 100

// Store manages PostgreSQL operations
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL store with connection pooling
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	// Parse and configure connection pool
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Tune connection pool
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	// NUMERIC columns scan into shopspring decimals
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	// Create pool
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// BatchInsertTransfers inserts indexed transfer rows using pgx.Batch
func (s *Store) BatchInsertTransfers(ctx context.Context, rows []TransferRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	for _, row := range rows {
		batch.Queue(`
			INSERT INTO transfers
			(seq, height, occurred_at, msg_type, sender, from_account, to_account, raw_amount, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			row.Seq,
			row.Height,
			row.OccurredAt,
			row.MsgType,
			row.Sender,
			row.FromAccount,
			row.ToAccount,
			row.RawAmount,
			row.Amount,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch insert transfers failed: %w", err)
		}
	}

	return nil
}

// BatchInsertApprovals inserts indexed approval rows using pgx.Batch
func (s *Store) BatchInsertApprovals(ctx context.Context, rows []ApprovalRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	for _, row := range rows {
		batch.Queue(`
			INSERT INTO approvals
			(seq, height, occurred_at, owner_account, spender, raw_amount, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			row.Seq,
			row.Height,
			row.OccurredAt,
			row.Owner,
			row.Spender,
			row.RawAmount,
			row.Amount,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch insert approvals failed: %w", err)
		}
	}

	return nil
}

// BatchInsertSnapshots inserts one snapshot run's balance rows using pgx.Batch
func (s *Store) BatchInsertSnapshots(ctx context.Context, rows []SnapshotRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	for _, row := range rows {
		batch.Queue(`
			INSERT INTO balance_snapshots
			(taken_at, height, account, raw_balance, balance)
			VALUES ($1, $2, $3, $4, $5)`,
			row.TakenAt,
			row.Height,
			row.Account,
			row.RawBalance,
			row.Balance,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch insert snapshots failed: %w", err)
		}
	}

	return nil
}

// UpsertProposal inserts or refreshes a proposal row so replays converge.
func (s *Store) UpsertProposal(ctx context.Context, row ProposalRow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO proposals
		(id, proposer, recipient, raw_amount, amount, vote_start, vote_end, executed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			proposer   = EXCLUDED.proposer,
			recipient  = EXCLUDED.recipient,
			raw_amount = EXCLUDED.raw_amount,
			amount     = EXCLUDED.amount,
			vote_start = EXCLUDED.vote_start,
			vote_end   = EXCLUDED.vote_end,
			executed   = EXCLUDED.executed`,
		row.ID,
		row.Proposer,
		row.Recipient,
		row.RawAmount,
		row.Amount,
		row.VoteStart,
		row.VoteEnd,
		row.Executed,
	)
	if err != nil {
		return fmt.Errorf("upsert proposal failed: %w", err)
	}
	return nil
}

// InsertVote records a ballot. The chain rejects double votes, so a conflict
// only happens when a run replays its log; the update keeps that idempotent.
func (s *Store) InsertVote(ctx context.Context, row VoteRow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO votes
		(proposal_id, voter, choice, raw_weight, weight, height, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (proposal_id, voter) DO UPDATE SET
			choice      = EXCLUDED.choice,
			raw_weight  = EXCLUDED.raw_weight,
			weight      = EXCLUDED.weight,
			height      = EXCLUDED.height,
			occurred_at = EXCLUDED.occurred_at`,
		row.ProposalID,
		row.Voter,
		row.Choice,
		row.RawWeight,
		row.Weight,
		row.Height,
		row.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert vote failed: %w", err)
	}
	return nil
}

// MarkProposalExecuted flips the executed flag on a proposal row.
func (s *Store) MarkProposalExecuted(ctx context.Context, id uint32) error {
	_, err := s.pool.Exec(ctx, `UPDATE proposals SET executed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark proposal executed failed: %w", err)
	}
	return nil
}

// Transfers returns indexed transfers, newest first. An empty account returns
// all rows; otherwise rows where the account sent or received.
func (s *Store) Transfers(ctx context.Context, account string, limit int) ([]TransferRow, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	const columns = `seq, height, occurred_at, msg_type, sender, from_account, to_account, raw_amount, amount`

	var (
		rows pgx.Rows
		err  error
	)
	if account == "" {
		rows, err = s.pool.Query(ctx, `
			SELECT `+columns+`
			FROM transfers
			ORDER BY seq DESC
			LIMIT $1`, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT `+columns+`
			FROM transfers
			WHERE from_account = $1 OR to_account = $1
			ORDER BY seq DESC
			LIMIT $2`, account, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query transfers failed: %w", err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[TransferRow])
	if err != nil {
		return nil, fmt.Errorf("scan transfers failed: %w", err)
	}
	return out, nil
}

// LatestSnapshots returns each account's most recent balance snapshot,
// ordered by account.
func (s *Store) LatestSnapshots(ctx context.Context) ([]SnapshotRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (account)
			taken_at, height, account, raw_balance, balance
		FROM balance_snapshots
		ORDER BY account, taken_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots failed: %w", err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[SnapshotRow])
	if err != nil {
		return nil, fmt.Errorf("scan snapshots failed: %w", err)
	}
	return out, nil
}

// Ping verifies the connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
