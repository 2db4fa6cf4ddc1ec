package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"beebi/backend/internal/activity"
)

type pgQuerier interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// PostgresSource reads the "Activity" table.
type PostgresSource struct {
	db pgQuerier
}

func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{db: pool}
}

func (p *PostgresSource) Name() string { return "postgres" }

func (p *PostgresSource) Fetch(ctx context.Context, filter Filter) (Batch, error) {
	conditions, args, err := pgConditions(filter)
	if err != nil {
		return Batch{}, err
	}
	if filter.Since != nil {
		args = append(args, filter.Since.UTC())
		conditions = append(conditions, fmt.Sprintf(`"startTime" >= $%d`, len(args)))
	}

	rows, err := p.db.Query(
		ctx,
		`SELECT id::text, "subjectId"::text, type, "startTime", "endTime",
		        "durationMinutes"::float8, "startCondition", "endCondition"
		 FROM "Activity"
		 WHERE `+strings.Join(conditions, " AND ")+`
		 ORDER BY "startTime" ASC, id ASC`,
		args...,
	)
	if err != nil {
		return Batch{}, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var batch Batch
	for rows.Next() {
		var (
			id, subject, rawType string
			start                time.Time
			end                  *time.Time
			duration             *float64
			startCond, endCond   *string
		)
		if err := rows.Scan(&id, &subject, &rawType, &start, &end, &duration, &startCond, &endCond); err != nil {
			return Batch{}, fmt.Errorf("scan activity: %w", err)
		}
		activityType, ok := activity.ParseType(rawType)
		if !ok {
			batch.Dropped++
			continue
		}
		batch.Records = append(batch.Records, activity.Record{
			ID:              id,
			SubjectID:       subject,
			Type:            activityType,
			StartTime:       start,
			EndTime:         end,
			DurationMinutes: duration,
			StartCondition:  derefString(startCond),
			EndCondition:    derefString(endCond),
		})
	}
	if err := rows.Err(); err != nil {
		return Batch{}, fmt.Errorf("iterate activity: %w", err)
	}
	return batch, nil
}

// LatestStart returns the newest start time among rows the loader would keep.
func (p *PostgresSource) LatestStart(ctx context.Context, filter Filter) (time.Time, bool, error) {
	conditions, args, err := pgConditions(filter)
	if err != nil {
		return time.Time{}, false, err
	}
	conditions = append(conditions,
		`("endTime" IS NULL OR "endTime" >= "startTime")`,
		`("durationMinutes" IS NULL OR "durationMinutes" >= 0)`,
	)

	var latest *time.Time
	err = p.db.QueryRow(
		ctx,
		`SELECT max("startTime") FROM "Activity" WHERE `+strings.Join(conditions, " AND "),
		args...,
	).Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query latest activity: %w", err)
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return *latest, true, nil
}

func pgConditions(filter Filter) ([]string, []any, error) {
	aliases := filter.Type.Aliases()
	if len(aliases) == 0 {
		return nil, nil, fmt.Errorf("unsupported activity type %q", filter.Type)
	}
	conditions := []string{`upper(type) = ANY($1)`}
	args := []any{aliases}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		conditions = append(conditions, fmt.Sprintf(`"subjectId"::text = $%d`, len(args)))
	}
	return conditions, args, nil
}

// ValidateSchema fails when the activity table lacks a column the source reads.
func (p *PostgresSource) ValidateSchema(ctx context.Context) error {
	if p.db == nil {
		return fmt.Errorf("database pool is nil")
	}
	for _, column := range []string{"id", "subjectId", "type", "startTime", "endTime", "durationMinutes", "startCondition", "endCondition"} {
		ok, err := p.columnExists(ctx, "Activity", column)
		if err != nil {
			return fmt.Errorf("failed checking schema for Activity.%s: %w", column, err)
		}
		if !ok {
			return fmt.Errorf("required column Activity.%s is missing", column)
		}
	}
	return nil
}

func (p *PostgresSource) columnExists(ctx context.Context, tableName, columnName string) (bool, error) {
	table := strings.TrimSpace(tableName)
	column := strings.TrimSpace(columnName)
	if table == "" || column == "" {
		return false, fmt.Errorf("table/column must not be empty")
	}
	var exists bool
	err := p.db.QueryRow(
		ctx,
		`SELECT EXISTS (
		   SELECT 1
		   FROM information_schema.columns
		   WHERE table_schema = current_schema()
		     AND lower(table_name) = lower($1)
		     AND lower(column_name) = lower($2)
		 )`,
		table,
		column,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
