package scanlog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tagbrain/internal/metadata"
)

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		id            int64
		typ           int
		createdRaw    string
		success       int64
		message       sql.NullString
		oldJSON       sql.NullString
		newJSON       sql.NullString
		sourcePath    string
		targetPath    sql.NullString
		score         sql.NullFloat64
		retryCount    sql.NullInt64
		correlationID sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&typ,
		&createdRaw,
		&success,
		&message,
		&oldJSON,
		&newJSON,
		&sourcePath,
		&targetPath,
		&score,
		&retryCount,
		&correlationID,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:            id,
		Type:          Type(typ),
		Success:       success != 0,
		Message:       message.String,
		SourcePath:    sourcePath,
		TargetPath:    targetPath.String,
		CorrelationID: correlationID.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	if score.Valid {
		v := score.Float64
		entry.AcoustIDScore = &v
	}
	if retryCount.Valid {
		v := int(retryCount.Int64)
		entry.RetryCount = &v
	}
	var err error
	if entry.OldMetadata, err = decodeMetadata(oldJSON); err != nil {
		return nil, err
	}
	if entry.NewMetadata, err = decodeMetadata(newJSON); err != nil {
		return nil, err
	}
	return entry, nil
}

func encodeMetadata(md *metadata.Metadata) (any, error) {
	if md == nil {
		return nil, nil
	}
	data, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return string(data), nil
}

func decodeMetadata(raw sql.NullString) (*metadata.Metadata, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var md metadata.Metadata
	if err := json.Unmarshal([]byte(raw.String), &md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &md, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
