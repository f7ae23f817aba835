package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

var _ Store = (*PGStore)(nil)

// PGStore persists sessions in PostgreSQL. Values and flashes are stored as
// JSON so the masquerade keys survive round trips with their exact names.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, sess *Session) error {
	values, flashes, err := encodeState(sess)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into sessions (id, user_id, backend, state, flashes, created_at, updated_at, expires_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, sess.ID, sess.UserID, sess.Backend, values, flashes,
		sess.CreatedAt, sess.UpdatedAt, sess.ExpiresAt)
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, user_id, backend, state, flashes, created_at, updated_at, expires_at
		from sessions where id = $1 and expires_at > now()
	`, id)
	var (
		sess    Session
		values  []byte
		flashes []byte
	)
	err := row.Scan(&sess.ID, &sess.UserID, &sess.Backend, &values, &flashes,
		&sess.CreatedAt, &sess.UpdatedAt, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	sess.Values = make(map[string]any)
	if len(values) > 0 {
		if err := json.Unmarshal(values, &sess.Values); err != nil {
			return nil, err
		}
	}
	if len(flashes) > 0 {
		if err := json.Unmarshal(flashes, &sess.Flashes); err != nil {
			return nil, err
		}
	}
	return &sess, nil
}

func (s *PGStore) Save(ctx context.Context, sess *Session) error {
	values, flashes, err := encodeState(sess)
	if err != nil {
		return err
	}
	sess.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		update sessions set user_id = $2, backend = $3, state = $4, flashes = $5, updated_at = $6
		where id = $1
	`, sess.ID, sess.UserID, sess.Backend, values, flashes, sess.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where id = $1`, id)
	return err
}

func encodeState(sess *Session) (values, flashes []byte, err error) {
	if sess.Values == nil {
		sess.Values = make(map[string]any)
	}
	values, err = json.Marshal(sess.Values)
	if err != nil {
		return nil, nil, err
	}
	flashes, err = json.Marshal(sess.Flashes)
	if err != nil {
		return nil, nil, err
	}
	return values, flashes, nil
}
