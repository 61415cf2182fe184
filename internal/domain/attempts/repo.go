package attempts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Get(ctx context.Context, userID uuid.UUID) (*Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT state, payload, updated_at FROM checkout_attempts WHERE user_id = $1`, userID)
	var (
		state string
		raw   []byte
		at    time.Time
	)
	if err := row.Scan(&state, &raw, &at); err != nil {
		// строки нет - попыток ещё не было
		if errors.Is(err, pgx.ErrNoRows) {
			return &Item{UserID: userID, State: StateIdle, Payload: Payload{}}, nil
		}
		return nil, err
	}
	p := Payload{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("attempts: decode payload: %w", err)
		}
	}
	return &Item{UserID: userID, State: State(state), Payload: p, UpdatedAt: at}, nil
}

func (r *Repo) Set(ctx context.Context, userID uuid.UUID, state State, payload Payload) error {
	if payload == nil {
		payload = Payload{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("attempts: encode payload: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO checkout_attempts (user_id, state, payload, updated_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (user_id) DO UPDATE SET
		  state=$2, payload=$3, updated_at=now()
	`, userID, string(state), raw)
	return err
}

// TryBegin атомарно переводит попытку в SUBMITTING. Возвращает false, если
// другая отправка ещё идёт и моложе staleAfter.
func (r *Repo) TryBegin(ctx context.Context, userID uuid.UUID, payload Payload, staleAfter time.Duration) (bool, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("attempts: encode payload: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO checkout_attempts (user_id, state, payload, updated_at)
		VALUES ($1,'SUBMITTING',$2,now())
		ON CONFLICT (user_id) DO UPDATE SET
		  state='SUBMITTING', payload=$2, updated_at=now()
		WHERE checkout_attempts.state <> 'SUBMITTING'
		   OR checkout_attempts.updated_at < now() - make_interval(secs => $3)
	`, userID, raw, staleAfter.Seconds())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
