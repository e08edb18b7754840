// Package mongo provides the MongoDB implementation of the run-report
// archive. Full reports, including the per-document invalid details the
// relational run history does not keep, are stored append-only here.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/accounting-ledger-sync/internal/domain/syncrun"
)

const (
	// ReportCollectionName is the name of the run-report collection in MongoDB
	ReportCollectionName = "sync_run_reports"
)

// ReportRepository implements the syncrun.ReportRepository interface for MongoDB
type ReportRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewReportRepository creates a new MongoDB run-report repository
func NewReportRepository(logger *slog.Logger, db *mongo.Database) syncrun.ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// Save archives a run report. Re-saving the same run id replaces the
// document, which keeps report emission idempotent across retries.
func (r *ReportRepository) Save(ctx context.Context, report *syncrun.RunReport) error {
	collection := r.db.Collection(ReportCollectionName)

	filter := bson.M{"run_id": report.RunID}
	opts := options.Replace().SetUpsert(true)

	_, err := collection.ReplaceOne(ctx, filter, report, opts)
	if err != nil {
		r.logger.Error("Failed to archive run report",
			"run_id", report.RunID.String(),
			"error", err)
		return fmt.Errorf("failed to archive run report: %w", err)
	}

	return nil
}

// GetByRunID retrieves the archived report for one run.
// Returns ErrRunNotFound if no report exists for the given run.
func (r *ReportRepository) GetByRunID(ctx context.Context, runID uuid.UUID) (*syncrun.RunReport, error) {
	collection := r.db.Collection(ReportCollectionName)

	filter := bson.M{"run_id": runID}
	var report syncrun.RunReport
	err := collection.FindOne(ctx, filter).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, syncrun.ErrRunNotFound{RunID: runID}
		}
		r.logger.Error("Failed to get run report",
			"run_id", runID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}

	return &report, nil
}

// ListRecent retrieves the newest reports, most recent start first
func (r *ReportRepository) ListRecent(ctx context.Context, limit int) ([]*syncrun.RunReport, error) {
	collection := r.db.Collection(ReportCollectionName)

	opts := options.Find().
		SetSort(bson.M{"started_at": -1}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.logger.Error("Failed to list run reports", "error", err)
		return nil, fmt.Errorf("failed to list run reports: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []*syncrun.RunReport
	if err := cursor.All(ctx, &reports); err != nil {
		r.logger.Error("Failed to decode run reports", "error", err)
		return nil, fmt.Errorf("failed to decode run reports: %w", err)
	}

	return reports, nil
}
