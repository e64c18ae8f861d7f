// Package store provides the Postgres and Redis backed adapters for the
// Result Sink Adapter and Registry/Listing collaborators.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lucas/castlerush/internal/room"
)

const createMatchesTable = `
CREATE TABLE IF NOT EXISTS matches (
    id                BIGSERIAL PRIMARY KEY,
    player1_id        TEXT NOT NULL,
    player2_id        TEXT NOT NULL,
    player1_name      TEXT NOT NULL,
    player2_name      TEXT NOT NULL,
    player1_deck      TEXT[] NOT NULL,
    player2_deck      TEXT[] NOT NULL,
    winner_player_num SMALLINT NOT NULL,
    player1_castle_hp INT NOT NULL,
    player2_castle_hp INT NOT NULL,
    player1_kills     INT NOT NULL,
    player2_kills     INT NOT NULL,
    battle_duration   INT NOT NULL,
    win_reason        TEXT NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const insertMatch = `
INSERT INTO matches (
    player1_id, player2_id, player1_name, player2_name,
    player1_deck, player2_deck, winner_player_num,
    player1_castle_hp, player2_castle_hp, player1_kills, player2_kills,
    battle_duration, win_reason
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// Postgres is the Result Sink Adapter's Postgres-backed implementation of
// room.Sink. A zero-value-ish Postgres (nil pool) is valid and simply
// no-ops every call when no DSN is configured.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ room.Sink = (*Postgres)(nil)

// NewPostgres opens a connection pool and ensures the matches table
// exists. An empty connString returns a disconnected Postgres that
// satisfies room.Sink as a no-op, so matches persistence is optional.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	if connString == "" {
		return &Postgres{}, nil
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, createMatchesTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ensure matches table: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
}

// IsConnected reports whether this Postgres has a live pool.
func (p *Postgres) IsConnected() bool {
	return p != nil && p.pool != nil
}

// SaveMatch implements room.Sink, inserting one row per finished match.
// Called with no live pool, it no-ops rather than erroring so a room can
// always finish cleanly without a configured database.
func (p *Postgres) SaveMatch(ctx context.Context, record room.MatchRecord) error {
	if p == nil || p.pool == nil {
		return nil
	}

	_, err := p.pool.Exec(ctx, insertMatch,
		record.Player1ID, record.Player2ID, record.Player1Name, record.Player2Name,
		record.Player1Deck, record.Player2Deck, record.WinnerPlayerNum,
		record.Player1CastleHP, record.Player2CastleHP, record.Player1Kills, record.Player2Kills,
		record.BattleDuration, record.WinReason,
	)
	if err != nil {
		return fmt.Errorf("store: insert match: %w", err)
	}
	return nil
}
