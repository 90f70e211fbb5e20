package repository

import (
	"database/sql"
	"time"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

func nullMoney(m *entity.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.Cents(), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
