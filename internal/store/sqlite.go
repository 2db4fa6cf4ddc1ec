package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"beebi/backend/internal/activity"
)

// SQLiteSource reads the snake_case activity table from a SQLite file opened read-only.
type SQLiteSource struct {
	db  *sql.DB
	loc *time.Location
}

// OpenSQLite opens path in read-only mode. Timestamps stored without a zone are read in loc.
func OpenSQLite(path string, loc *time.Location) (*SQLiteSource, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewSQLiteSource(db, loc), nil
}

func NewSQLiteSource(db *sql.DB, loc *time.Location) *SQLiteSource {
	if loc == nil {
		loc = time.UTC
	}
	return &SQLiteSource{db: db, loc: loc}
}

func (s *SQLiteSource) Name() string { return "sqlite" }

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func (s *SQLiteSource) Fetch(ctx context.Context, filter Filter) (Batch, error) {
	aliases := filter.Type.Aliases()
	if len(aliases) == 0 {
		return Batch{}, fmt.Errorf("unsupported activity type %q", filter.Type)
	}

	var (
		conditions []string
		args       []any
	)
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(aliases)), ",")
	conditions = append(conditions, "upper(type) IN ("+placeholders+")")
	for _, alias := range aliases {
		args = append(args, alias)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, "CAST(subject_id AS TEXT) = ?")
		args = append(args, filter.SubjectID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT CAST(id AS TEXT), CAST(subject_id AS TEXT), type, start_time, end_time,
		       duration_minutes, start_condition, end_condition
		FROM activity
		WHERE `+strings.Join(conditions, " AND ")+`
		ORDER BY start_time ASC, id ASC
	`, args...)
	if err != nil {
		return Batch{}, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var batch Batch
	for rows.Next() {
		var (
			id, subject, rawType, start string
			end, startCond, endCond     sql.NullString
			duration                    sql.NullFloat64
		)
		if err := rows.Scan(&id, &subject, &rawType, &start, &end, &duration, &startCond, &endCond); err != nil {
			return Batch{}, fmt.Errorf("scan activity: %w", err)
		}

		record, err := s.record(id, subject, rawType, start, end, duration, startCond, endCond)
		if err != nil {
			batch.Dropped++
			continue
		}
		if filter.Since != nil && record.StartTime.Before(*filter.Since) {
			continue
		}
		batch.Records = append(batch.Records, record)
	}
	if err := rows.Err(); err != nil {
		return Batch{}, fmt.Errorf("iterate activity: %w", err)
	}
	return batch, nil
}

func (s *SQLiteSource) record(id, subject, rawType, start string, end sql.NullString, duration sql.NullFloat64, startCond, endCond sql.NullString) (activity.Record, error) {
	activityType, ok := activity.ParseType(rawType)
	if !ok {
		return activity.Record{}, fmt.Errorf("%w: unknown type %q", activity.ErrMalformedRecord, rawType)
	}
	startTime, err := parseTimestamp(start, s.loc)
	if err != nil {
		return activity.Record{}, fmt.Errorf("%w: %w", activity.ErrMalformedRecord, err)
	}
	endTime, err := parseOptionalTimestamp(end.String, s.loc)
	if err != nil {
		return activity.Record{}, fmt.Errorf("%w: %w", activity.ErrMalformedRecord, err)
	}

	r := activity.Record{
		ID:             id,
		SubjectID:      subject,
		Type:           activityType,
		StartTime:      startTime,
		EndTime:        endTime,
		StartCondition: startCond.String,
		EndCondition:   endCond.String,
	}
	if duration.Valid {
		minutes := duration.Float64
		r.DurationMinutes = &minutes
	}
	return r, nil
}
