package audit

import (
	"context"
	"database/sql"

	"accountsplus.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL. The table carries no update or
// delete path.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Append(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into audit_log_events (id, recorded_at, user_id, user_email,
			company_id, company_name, message, masquerading_user_id, masquerading_user_email)
		values ($1, $2, $3, $4, nullif($5,''), $6, $7, nullif($8,''), $9)
	`, e.ID, e.RecordedAt, e.UserID, e.UserEmail,
		e.CompanyID, e.CompanyName, e.Message, e.MasqueradingUserID, e.MasqueradingUserEmail)
	return err
}

func (s *PGStore) ListByUser(ctx context.Context, userID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, recorded_at, user_id, user_email, coalesce(company_id,''),
			company_name, message, coalesce(masquerading_user_id,''), masquerading_user_email
		from audit_log_events where user_id = $1 order by recorded_at asc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.RecordedAt, &e.UserID, &e.UserEmail,
			&e.CompanyID, &e.CompanyName, &e.Message,
			&e.MasqueradingUserID, &e.MasqueradingUserEmail); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// Delete intentionally issues no statement. Audit integrity survives admin
// delete requests.
func (s *PGStore) Delete(context.Context, string) error {
	return nil
}
