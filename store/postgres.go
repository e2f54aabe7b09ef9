package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Postgres archives transcripts in a single table, created on open.
type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) SaveTranscript(ctx context.Context, rec TranscriptRecord) error {
	_, err := p.pool.Exec(
		ctx,
		`INSERT INTO transcripts (
			session_id, session_code, speaker_id, speaker_name,
			source_language, target_language, original, translated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.SessionID,
		rec.SessionCode,
		rec.SpeakerID,
		rec.SpeakerName,
		rec.SourceLanguage,
		rec.TargetLanguage,
		rec.Original,
		rec.Translated,
	)
	if err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

func (p *Postgres) ListRecent(ctx context.Context, limit int) ([]TranscriptRecord, error) {
	rows, err := p.pool.Query(
		ctx,
		`SELECT session_id, session_code, speaker_id, speaker_name,
			source_language, target_language, original, translated, created_at
		FROM transcripts
		ORDER BY created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	var records []TranscriptRecord
	for rows.Next() {
		var rec TranscriptRecord
		err := rows.Scan(
			&rec.SessionID,
			&rec.SessionCode,
			&rec.SpeakerID,
			&rec.SpeakerName,
			&rec.SourceLanguage,
			&rec.TargetLanguage,
			&rec.Original,
			&rec.Translated,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript row: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (p *Postgres) Close() {
	p.pool.Close()
}
