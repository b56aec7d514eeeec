// Package warehouse is the pgx-backed columnar store of record, standing in
// for the original system's BigQuery warehouse (SPEC_FULL.md §1B). Unlike
// the reference codebase's pkg/core/store/db.go, this package exposes no
// package-level singleton: callers construct a *Store explicitly and inject
// it wherever it's needed (SPEC_FULL.md §9 "Cyclic configuration").
package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"bhsi/pkg/models"
)

// Store wraps a pgx connection pool against the warehouse tables named in
// SPEC_FULL.md §6: raw_docs, events, vectors, search_cache, companies,
// assessments, financial_metrics, users.
type Store struct {
	pool *pgxpool.Pool
}

// Open parses dsn and establishes the pool. Connection failure at startup
// is a fatal error per SPEC_FULL.md §7 and should bubble to main.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("warehouse: parsing DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("warehouse: connecting: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// InsertRawDocs bulk-appends rows into raw_docs. Duplicate raw_id values are
// a no-op, per the dedup invariant of SPEC_FULL.md §8 (realized as
// ON CONFLICT (raw_id) DO NOTHING).
func (s *Store) InsertRawDocs(ctx context.Context, docs []models.RawDoc) error {
	if len(docs) == 0 {
		return nil
	}
	batch := &pgxBatch{}
	for _, d := range docs {
		batch.Queue(
			`INSERT INTO raw_docs (raw_id, source, payload, meta, fetched_at, retries, status)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)
			 ON CONFLICT (raw_id) DO NOTHING`,
			d.RawID, string(d.Source), d.Payload, d.Meta, d.FetchedAt, d.Retries, string(d.Status),
		)
	}
	return s.sendBatch(ctx, batch)
}

// UpsertEvents realizes the WriteQueue's "upsert" operation for the events
// table against Postgres: INSERT ... ON CONFLICT (event_id) DO UPDATE,
// skipping the ephemeral-staging-table step the source language uses, since
// pgx's conflict clause makes that staging unnecessary (SPEC_FULL.md §4.8,
// §9 open-question resolution).
func (s *Store) UpsertEvents(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgxBatch{}
	for _, e := range events {
		batch.Queue(
			`INSERT INTO events (event_id, title, text, section, url, pub_date, source,
				risk_label, confidence, rationale, classification_method, classifier_ts,
				embedding_status, embedding_model, alerted, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
			 ON CONFLICT (event_id) DO UPDATE SET
				risk_label = EXCLUDED.risk_label,
				confidence = EXCLUDED.confidence,
				rationale = EXCLUDED.rationale,
				classification_method = EXCLUDED.classification_method,
				classifier_ts = EXCLUDED.classifier_ts,
				embedding_status = EXCLUDED.embedding_status,
				embedding_model = EXCLUDED.embedding_model,
				updated_at = EXCLUDED.updated_at`,
			e.EventID, e.Title, e.Text, e.Section, e.URL, e.PubDate, string(e.Source),
			e.RiskLabel, e.Confidence, e.Rationale, string(e.ClassificationMethod), e.ClassifierTS,
			string(e.EmbeddingStatus), e.EmbeddingModel, e.Alerted, time.Now(),
		)
	}
	return s.sendBatch(ctx, batch)
}

// UpsertVector writes one vector row, encoded at the caller (vectorstore
// package) as raw little-endian float32 bytes, alongside its denormalized
// filter columns.
func (s *Store) UpsertVector(ctx context.Context, eventID string, encoded []byte, dimension int, model string, v models.Vector) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO vectors (event_id, vector, vector_dimension, embedding_model, vector_created_at,
			is_active, company_name, risk_level, publication_date, source, title, text_summary)
		 VALUES ($1,$2,$3,$4,$5,true,$6,$7,$8,$9,$10,$11)
		 ON CONFLICT (event_id, embedding_model) DO UPDATE SET
			vector = EXCLUDED.vector, is_active = true`,
		eventID, encoded, dimension, model, v.VectorCreatedAt,
		v.CompanyName, v.RiskLevel, v.PublicationDate, string(v.Source), v.Title, v.TextSummary,
	)
	if err != nil {
		return fmt.Errorf("warehouse: upserting vector: %w", err)
	}
	return nil
}

// SearchVectors is the candidate fetch behind vectorstore's
// warehouse-of-record search tier: it pulls up to 5000 active rows matching
// the filters and returns them unranked, with their vectors still encoded.
// queryVec and k are not used here; vectorstore.WarehouseAdapter decodes the
// vectors, ranks them by cosine similarity client-side, and keeps the top k.
func (s *Store) SearchVectors(ctx context.Context, queryVec []float32, k int, companyName, riskLevel, source string) ([]VectorHit, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT event_id, vector, company_name, risk_level, source, title, text_summary
		 FROM vectors
		 WHERE is_active = true
		   AND ($1 = '' OR company_name = $1)
		   AND ($2 = '' OR risk_level = $2)
		   AND ($3 = '' OR source = $3)
		 LIMIT 5000`,
		companyName, riskLevel, source,
	)
	if err != nil {
		return nil, fmt.Errorf("warehouse: querying vectors: %w", err)
	}
	defer rows.Close()

	var candidates []VectorHit
	for rows.Next() {
		var h VectorHit
		var encoded []byte
		var src string
		if err := rows.Scan(&h.EventID, &encoded, &h.CompanyName, &h.RiskLevel, &src, &h.Title, &h.TextSummary); err != nil {
			return nil, fmt.Errorf("warehouse: scanning vector row: %w", err)
		}
		h.Source = src
		h.Encoded = encoded
		candidates = append(candidates, h)
	}
	return candidates, nil
}

// VectorHit is one raw candidate row returned by SearchVectors, still
// carrying its encoded vector for the caller to decode and rank.
type VectorHit struct {
	EventID     string
	Encoded     []byte
	CompanyName string
	RiskLevel   string
	Source      string
	Title       string
	TextSummary string
}

// RecentEvents implements cache.L3: reconstitutes a SourceResult-shaped
// view of recent events for company, bounded by maxAge.
func (s *Store) RecentEvents(ctx context.Context, company string, maxAge time.Duration) (models.SourceResult, bool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT title, text, url, pub_date, source FROM events
		 WHERE meta_company = $1 AND classifier_ts > $2
		 ORDER BY pub_date DESC`,
		company, time.Now().Add(-maxAge),
	)
	if err != nil {
		return models.SourceResult{}, false, fmt.Errorf("warehouse: querying recent events: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var r models.Record
		var source string
		var pubDate *time.Time
		if err := rows.Scan(&r.Title, &r.Text, &r.URL, &pubDate, &source); err != nil {
			return models.SourceResult{}, false, fmt.Errorf("warehouse: scanning recent event: %w", err)
		}
		if pubDate != nil {
			r.PublishedAt = *pubDate
		}
		records = append(records, r)
	}
	if len(records) == 0 {
		return models.SourceResult{}, false, nil
	}
	return models.SourceResult{
		Summary: models.SourceSummary{Query: company, TotalResults: len(records)},
		Records: records,
	}, true, nil
}

// pgxBatch is a tiny indirection over pgx.Batch so this file's callers read
// like the rest of the package without importing pgx.Batch directly in two
// places.
type pgxBatch struct {
	statements []batchedStatement
}

type batchedStatement struct {
	sql  string
	args []any
}

func (b *pgxBatch) Queue(sql string, args ...any) {
	b.statements = append(b.statements, batchedStatement{sql: sql, args: args})
}

func (s *Store) sendBatch(ctx context.Context, b *pgxBatch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("warehouse: beginning batch tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range b.statements {
		if _, err := tx.Exec(ctx, stmt.sql, stmt.args...); err != nil {
			return fmt.Errorf("warehouse: executing batched statement: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("warehouse: committing batch tx: %w", err)
	}
	return nil
}
