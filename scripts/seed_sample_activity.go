// seed_sample_activity writes a deterministic multi-day activity log for local runs.
//
//	go run ./scripts --target sqlite --sqlite-path data/beebi.sqlite --days 14
//	go run ./scripts --target postgres --database-url postgres://... --days 30
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/pflag"
	_ "modernc.org/sqlite"
)

type seedRow struct {
	ID              int
	SubjectID       int
	Type            string
	Start           time.Time
	End             *time.Time
	DurationMinutes *float64
	StartCondition  string
	EndCondition    string
}

var levels = []string{"small", "medium", "big"}

func main() {
	var (
		target     string
		sqlitePath string
		database   string
		subject    int
		days       int
		endDate    string
		timezone   string
	)

	pflag.StringVar(&target, "target", "sqlite", "sqlite or postgres")
	pflag.StringVar(&sqlitePath, "sqlite-path", "data/beebi.sqlite", "SQLite file to create or update")
	pflag.StringVar(&database, "database-url", "", "Postgres URL (default: DATABASE_URL)")
	pflag.IntVar(&subject, "subject", 10, "subject id for the generated records")
	pflag.IntVar(&days, "days", 14, "number of days to generate")
	pflag.StringVar(&endDate, "end-date", "", "last generated local date in YYYY-MM-DD (default: today)")
	pflag.StringVar(&timezone, "tz", "UTC", "IANA timezone of the generated wall-clock times")
	pflag.Parse()

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Fatalf("load timezone: %v", err)
	}
	last := time.Now().In(loc)
	if strings.TrimSpace(endDate) != "" {
		last, err = time.ParseInLocation("2006-01-02", endDate, loc)
		if err != nil {
			log.Fatalf("parse end date: %v", err)
		}
	}
	if days < 1 {
		log.Fatalf("days must be at least 1")
	}
	first := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(days - 1))
	rows := sampleActivity(subject, first, days)

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(target)) {
	case "sqlite":
		err = seedSQLite(ctx, sqlitePath, rows)
	case "postgres":
		dbURL := strings.TrimSpace(database)
		if dbURL == "" {
			dbURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
		}
		if dbURL == "" {
			log.Fatalf("postgres target needs --database-url or DATABASE_URL")
		}
		err = seedPostgres(ctx, dbURL, rows)
	default:
		log.Fatalf("unknown target %q", target)
	}
	if err != nil {
		log.Fatalf("seed %s: %v", target, err)
	}
	log.Printf("seeded %d activity records for subject %d from %s over %d days", len(rows), subject, first.Format("2006-01-02"), days)
}

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

// sampleActivity builds feeds, sleeps and diaper changes whose values cycle with the day index.
func sampleActivity(subject int, first time.Time, days int) []seedRow {
	var rows []seedRow
	add := func(r seedRow) {
		r.ID = subject*1_000_000 + len(rows) + 1
		r.SubjectID = subject
		rows = append(rows, r)
	}

	for d := 0; d < days; d++ {
		day := first.AddDate(0, 0, d)

		for i, hm := range [][2]int{{2, 30}, {6, 0}, {9, 30}, {13, 0}, {16, 30}, {20, 0}, {23, 30}} {
			start := at(day, hm[0], hm[1]+(d%3)*5)
			kind, condition := "Formula", "Formula"
			if (d+i)%3 == 0 {
				kind, condition = "Breastfeed", "Breast"
			}
			add(seedRow{
				Type:           kind,
				Start:          start,
				StartCondition: condition,
				EndCondition:   fmt.Sprintf("%dml", 80+(d*7+i*11)%70),
			})
		}

		nightStart := at(day, 21, (d%4)*10)
		nightMinutes := float64(420 + (d%4)*30)
		nightEnd := nightStart.Add(time.Duration(nightMinutes) * time.Minute)
		add(seedRow{Type: "Sleep", Start: nightStart, End: &nightEnd, DurationMinutes: &nightMinutes})
		for i, hm := range [][2]int{{10, 0}, {14, 30}} {
			if d%5 == 4 && i == 1 {
				continue
			}
			minutes := float64(60 + ((d+i)%3)*15)
			start := at(day, hm[0], hm[1])
			end := start.Add(time.Duration(minutes) * time.Minute)
			add(seedRow{Type: "Sleep", Start: start, End: &end, DurationMinutes: &minutes})
		}

		for i, hm := range [][2]int{{5, 0}, {8, 30}, {12, 0}, {15, 30}, {19, 0}, {22, 30}} {
			condition := "pee:" + levels[(d+i)%len(levels)]
			if (d+i)%2 == 0 {
				poo := levels[(d*2+i)%len(levels)]
				if d%6 == 5 && i < 3 {
					poo = "big"
				}
				condition += " poo:" + poo
			}
			add(seedRow{Type: "Diaper", Start: at(day, hm[0], hm[1]), EndCondition: condition})
		}
	}
	return rows
}

func seedSQLite(ctx context.Context, path string, rows []seedRow) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS activity (
			id INTEGER PRIMARY KEY,
			subject_id INTEGER NOT NULL,
			type TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT,
			duration_minutes REAL,
			start_condition TEXT,
			end_condition TEXT
		)`); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const layout = "2006-01-02 15:04:05"
	for _, r := range rows {
		var end any
		if r.End != nil {
			end = r.End.Format(layout)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO activity (id, subject_id, type, start_time, end_time, duration_minutes, start_condition, end_condition)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.SubjectID, r.Type, r.Start.Format(layout), end, r.DurationMinutes, nullable(r.StartCondition), nullable(r.EndCondition),
		); err != nil {
			return fmt.Errorf("insert activity %d: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func seedPostgres(ctx context.Context, dbURL string, rows []seedRow) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS "Activity" (
			id text PRIMARY KEY,
			"subjectId" integer NOT NULL,
			type text NOT NULL,
			"startTime" timestamptz NOT NULL,
			"endTime" timestamptz,
			"durationMinutes" numeric,
			"startCondition" text,
			"endCondition" text
		)`); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO "Activity" (id, "subjectId", type, "startTime", "endTime", "durationMinutes", "startCondition", "endCondition")
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				type = EXCLUDED.type,
				"startTime" = EXCLUDED."startTime",
				"endTime" = EXCLUDED."endTime",
				"durationMinutes" = EXCLUDED."durationMinutes",
				"startCondition" = EXCLUDED."startCondition",
				"endCondition" = EXCLUDED."endCondition"`,
			fmt.Sprintf("seed-%d", r.ID), r.SubjectID, r.Type, r.Start, r.End, r.DurationMinutes, nullable(r.StartCondition), nullable(r.EndCondition),
		)
	}
	return conn.SendBatch(ctx, batch).Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
