package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"beebi/backend/internal/activity"
)

var requiredCSVHeaders = []string{"activityid", "customerid", "type", "starttime"}

// CSVSource reads an activity export file on every Fetch.
type CSVSource struct {
	path string
	loc  *time.Location
}

func NewCSVSource(path string, loc *time.Location) *CSVSource {
	if loc == nil {
		loc = time.UTC
	}
	return &CSVSource{path: path, loc: loc}
}

func (c *CSVSource) Name() string { return "csv" }

func (c *CSVSource) Fetch(ctx context.Context, filter Filter) (Batch, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return Batch{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return c.read(ctx, f, filter)
}

func (c *CSVSource) read(ctx context.Context, stream io.Reader, filter Filter) (Batch, error) {
	reader := csv.NewReader(stream)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Batch{}, nil
		}
		return Batch{}, fmt.Errorf("read csv header: %w", err)
	}
	headerMap := make(map[string]int, len(headers))
	for i, h := range headers {
		headerMap[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, req := range requiredCSVHeaders {
		if _, ok := headerMap[req]; !ok {
			return Batch{}, fmt.Errorf("missing required csv header: %s", req)
		}
	}

	var batch Batch
	for {
		if err := ctx.Err(); err != nil {
			return Batch{}, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			batch.Dropped++
			continue
		}

		get := func(col string) string {
			if idx, ok := headerMap[col]; ok && idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}

		activityType, ok := activity.ParseType(get("type"))
		if !ok {
			// Growth and other non-activity rows share the export.
			continue
		}
		if filter.Type != "" && activityType != filter.Type {
			continue
		}
		if filter.SubjectID != "" && get("customerid") != filter.SubjectID {
			continue
		}

		record, err := c.record(activityType, get)
		if err != nil {
			batch.Dropped++
			continue
		}
		if filter.Since != nil && record.StartTime.Before(*filter.Since) {
			continue
		}
		batch.Records = append(batch.Records, record)
	}
	return batch, nil
}

func (c *CSVSource) record(activityType activity.Type, get func(string) string) (activity.Record, error) {
	start, err := parseTimestamp(get("starttime"), c.loc)
	if err != nil {
		return activity.Record{}, fmt.Errorf("%w: %w", activity.ErrMalformedRecord, err)
	}
	end, err := parseOptionalTimestamp(get("endtime"), c.loc)
	if err != nil {
		return activity.Record{}, fmt.Errorf("%w: %w", activity.ErrMalformedRecord, err)
	}
	duration, err := parseOptionalMinutes(get("duration"))
	if err != nil {
		return activity.Record{}, fmt.Errorf("%w: %w", activity.ErrMalformedRecord, err)
	}
	return activity.Record{
		ID:              get("activityid"),
		SubjectID:       get("customerid"),
		Type:            activityType,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: duration,
		StartCondition:  get("startcondition"),
		EndCondition:    get("endcondition"),
	}, nil
}
