//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"beebi/backend/internal/activity"
	"beebi/backend/internal/db"
)

func TestPostgresSourceFetch(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("beebi"),
		postgrescontainer.WithUsername("beebi"),
		postgrescontainer.WithPassword("beebi"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	seedActivityTable(t, ctx, connStr)

	pool, err := db.Connect(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	source := NewPostgresSource(pool)
	require.NoError(t, source.ValidateSchema(ctx))

	batch, err := source.Fetch(ctx, Filter{SubjectID: "10", Type: activity.Diaper})
	require.NoError(t, err)
	require.Len(t, batch.Records, 2)
	require.Equal(t, activity.Diaper, batch.Records[0].Type)
	require.Equal(t, "pee:small poo:big", batch.Records[0].EndCondition)
	require.Equal(t, "", batch.Records[1].EndCondition)

	since := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	batch, err = source.Fetch(ctx, Filter{Type: activity.Feed, Since: &since})
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	require.NotNil(t, batch.Records[0].DurationMinutes)
	require.Equal(t, 15.0, *batch.Records[0].DurationMinutes)

	latest, found, err := source.LatestStart(ctx, Filter{SubjectID: "10", Type: activity.Feed})
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, latest.Equal(time.Date(2025, 5, 1, 11, 0, 0, 0, time.UTC)))

	_, found, err = source.LatestStart(ctx, Filter{SubjectID: "99", Type: activity.Feed})
	require.NoError(t, err)
	require.False(t, found)

	loader := NewLoader(source, LoaderConfig{DefaultSubjectID: "10"})
	loaded, err := loader.Load(ctx, "", activity.Feed, nil)
	require.NoError(t, err)
	require.Len(t, loaded.Records, 2)

	// The default lookback counts back from the newest row, so a 2025 table still loads in full.
	loaded, err = NewLoader(source, DefaultLoaderConfig()).Load(ctx, "", activity.Feed, nil)
	require.NoError(t, err)
	require.Len(t, loaded.Records, 2)
}

func TestPostgresSourceValidateSchemaReportsMissingColumn(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("beebi"),
		postgrescontainer.WithUsername("beebi"),
		postgrescontainer.WithPassword("beebi"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	_, err = pool.Exec(ctx, `CREATE TABLE "Activity" (id text PRIMARY KEY, type text NOT NULL)`)
	require.NoError(t, err)

	err = NewPostgresSource(pool).ValidateSchema(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "subjectId")
}

func seedActivityTable(t *testing.T, ctx context.Context, connStr string) {
	t.Helper()

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		CREATE TABLE "Activity" (
			id text PRIMARY KEY,
			"subjectId" integer NOT NULL,
			type text NOT NULL,
			"startTime" timestamptz NOT NULL,
			"endTime" timestamptz,
			"durationMinutes" numeric,
			"startCondition" text,
			"endCondition" text
		)`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		INSERT INTO "Activity" (id, "subjectId", type, "startTime", "endTime", "durationMinutes", "startCondition", "endCondition") VALUES
		('f1', 10, 'Feed',    '2025-05-01T08:00:00Z', '2025-05-01T08:20:00Z', 20,   'Formula', '120ml'),
		('f2', 10, 'FORMULA', '2025-05-01T11:00:00Z', NULL,                   15,   'Formula', '90ml'),
		('d1', 10, 'Diaper',  '2025-05-01T09:00:00Z', NULL,                   NULL, NULL,      'pee:small poo:big'),
		('d2', 10, 'POO',     '2025-05-01T12:00:00Z', NULL,                   NULL, NULL,      NULL),
		('d3', 11, 'Diaper',  '2025-05-01T13:00:00Z', NULL,                   NULL, NULL,      'pee:big'),
		('s1', 10, 'Growth',  '2025-05-01T13:00:00Z', NULL,                   NULL, NULL,      NULL)`)
	require.NoError(t, err)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
