package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maltedev/maps-review-scraper/internal/events"
	"github.com/maltedev/maps-review-scraper/internal/models"
)

const insertReviewSQL = `
	INSERT INTO review (
		run_id, review_id, position, reviewer_name, review_date, rating,
		review_text, num_reviews, local_guide, owner_response, scraped_at, attributes
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// ReviewRepository stores finished datasets together with the outbox event
// that announces them.
type ReviewRepository struct {
	db     *DB
	outbox *OutboxRepository
	stream string
}

func NewReviewRepository(db *DB, stream string) *ReviewRepository {
	if stream == "" {
		stream = events.DefaultStream
	}
	return &ReviewRepository{
		db:     db,
		outbox: NewOutboxRepository(db),
		stream: stream,
	}
}

// SaveResult writes the run, its reviews and the result event in one
// transaction. Unsuccessful results only store the event. The returned id is
// uuid.Nil for those.
func (r *ReviewRepository) SaveResult(ctx context.Context, jobID string, result *models.ScrapeResult, output string) (uuid.UUID, error) {
	event, err := events.NewResultEvent(jobID, result, output)
	if err != nil {
		return uuid.Nil, err
	}

	runID := uuid.Nil
	err = r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if result.Success {
			runID = uuid.New()
			if err := insertRun(ctx, tx, runID, jobID, result, output); err != nil {
				return err
			}
			if err := insertReviews(ctx, tx, runID, result.Reviews); err != nil {
				return err
			}
		}
		return r.outbox.InsertWithTx(ctx, tx, outboxFromEvent(event, r.stream))
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save result for %s: %w", result.Target.String(), err)
	}

	return runID, nil
}

func insertRun(ctx context.Context, tx pgx.Tx, runID uuid.UUID, jobID string, result *models.ScrapeResult, output string) error {
	columns, err := json.Marshal(result.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO scrape_run (
			id, job_id, place, location, expected_total, cycles, review_count, columns, output_path
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		runID, jobID, result.Target.Name, result.Target.Location,
		result.Expected, result.Cycles, len(result.Reviews), columns, output,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scrape run: %w", err)
	}
	return nil
}

func insertReviews(ctx context.Context, tx pgx.Tx, runID uuid.UUID, reviews []*models.Review) error {
	if len(reviews) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, review := range reviews {
		args, err := reviewArgs(runID, i, review)
		if err != nil {
			return err
		}
		batch.Queue(insertReviewSQL, args...)
	}

	results := tx.SendBatch(ctx, batch)
	for range reviews {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert review: %w", err)
		}
	}
	return results.Close()
}

func reviewArgs(runID uuid.UUID, position int, review *models.Review) ([]any, error) {
	attrs := review.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	attributes, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attributes of %s: %w", review.ID, err)
	}

	return []any{
		runID,
		review.ID,
		position,
		review.ReviewerName,
		review.Date,
		review.Rating,
		review.Text,
		review.ReviewerReviewCount,
		review.LocalGuide,
		review.OwnerResponse,
		review.ScrapedAt,
		attributes,
	}, nil
}
