// Package repo implements the persistence ports on PostgreSQL.
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"halacha-yomi-bot/internal/domain"
)

// Postgres implements the subscriber registry and the broadcast log on
// pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.SubscriberRepo = (*Postgres)(nil)
	_ domain.BroadcastLog   = (*Postgres)(nil)
)

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 5*time.Second)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// Add registers a chat. Returns false when the chat was already subscribed.
func (p *Postgres) Add(ctx context.Context, chatID int64) (bool, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	tag, err := p.pool.Exec(ctx, `
		INSERT INTO subscribers (chat_id, subscribed_at)
		VALUES ($1, NOW())
		ON CONFLICT (chat_id) DO NOTHING`, chatID)
	if err != nil {
		return false, fmt.Errorf("adding subscriber: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Remove deletes a chat. Returns false when the chat was not subscribed.
func (p *Postgres) Remove(ctx context.Context, chatID int64) (bool, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	tag, err := p.pool.Exec(ctx, `DELETE FROM subscribers WHERE chat_id = $1`, chatID)
	if err != nil {
		return false, fmt.Errorf("removing subscriber: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// All returns every subscriber in subscription order.
func (p *Postgres) All(ctx context.Context) ([]domain.Subscriber, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	rows, err := p.pool.Query(ctx, `
		SELECT chat_id, subscribed_at
		FROM subscribers
		ORDER BY subscribed_at, chat_id`)
	if err != nil {
		return nil, fmt.Errorf("listing subscribers: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscriber
	for rows.Next() {
		var s domain.Subscriber
		if err := rows.Scan(&s.ChatID, &s.SubscribedAt); err != nil {
			return nil, fmt.Errorf("scanning subscriber: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// Record stores a finished broadcast run.
func (p *Postgres) Record(ctx context.Context, report domain.BroadcastReport) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	failures, err := json.Marshal(report.Failed)
	if err != nil {
		return fmt.Errorf("encoding failures: %w", err)
	}
	excerpts, err := json.Marshal(report.Selection.Excerpts)
	if err != nil {
		return fmt.Errorf("encoding excerpts: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO broadcasts (id, broadcast_date, strategy, excerpts, delivered, failures, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		report.ID,
		report.Date.Format("2006-01-02"),
		string(report.Selection.Strategy),
		excerpts,
		len(report.Delivered),
		failures,
	)
	if err != nil {
		return fmt.Errorf("recording broadcast: %w", err)
	}
	return nil
}
