package postgres

// convert.go maps between domain values and pgtype parameters.
//
// Optional references (user IDs) travel as pgtype values with Valid=false
// when empty so the database stores NULL. Numerics are written through
// pgtype.Numeric and read back as text to keep decimal precision exact.

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
)

// toPgUUID converts a string to pgtype.UUID.
// Returns invalid if the string is empty or not a valid UUID.
func toPgUUID(s string) pgtype.UUID {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// uuidString converts a pgtype.UUID to its string representation.
// Returns empty string if the UUID is invalid.
func uuidString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// toPgNumeric converts a decimal to pgtype.Numeric.
func toPgNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// parseNumericText reads a NUMERIC selected with ::text. NULL and garbage read as zero.
func parseNumericText(t pgtype.Text) decimal.Decimal {
	if !t.Valid {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(t.String)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// subjectDoc is the JSONB shape of one subject. Credits are kept as a
// string so precision survives the round trip.
type subjectDoc struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	Credits        string `json:"credits"`
	Grade          string `json:"grade"`
	IsBacklog      bool   `json:"isBacklog"`
	TheoryGrade    string `json:"theoryGrade,omitempty"`
	PracticalGrade string `json:"practicalGrade,omitempty"`
}

func encodeSubjects(subjects []domain.Subject) ([]byte, error) {
	docs := make([]subjectDoc, len(subjects))
	for i, s := range subjects {
		docs[i] = subjectDoc{
			Code:           s.Code,
			Name:           s.Name,
			Credits:        s.Credits.String(),
			Grade:          s.Grade,
			IsBacklog:      s.IsBacklog,
			TheoryGrade:    s.TheoryGrade,
			PracticalGrade: s.PracticalGrade,
		}
	}
	return json.Marshal(docs)
}

func decodeSubjects(raw []byte) ([]domain.Subject, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var docs []subjectDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Subject, len(docs))
	for i, d := range docs {
		credits, err := decimal.NewFromString(d.Credits)
		if err != nil {
			credits = decimal.Zero
		}
		out[i] = domain.Subject{
			Code:           d.Code,
			Name:           d.Name,
			Credits:        credits,
			Grade:          d.Grade,
			IsBacklog:      d.IsBacklog,
			TheoryGrade:    d.TheoryGrade,
			PracticalGrade: d.PracticalGrade,
		}
	}
	return out, nil
}
