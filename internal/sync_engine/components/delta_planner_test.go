package components

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/accounting-ledger-sync/internal/domain/document"
	"github.com/accounting-ledger-sync/internal/sync_engine/service"
)

func newTestPlanner(source *MockSourceReader, docRepo *MockDocumentRepository) service.DeltaPlanner {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewDeltaPlanner(source, docRepo, logger)
}

func TestDeltaPlanner_FullRun(t *testing.T) {
	source := new(MockSourceReader)
	docRepo := new(MockDocumentRepository)

	docs := []*document.CachedDocument{
		bookedDoc(t, "V1", document.StatusBooked),
		bookedDoc(t, "V2", document.StatusBooked),
	}
	source.On("ListBookedDocuments", mock.Anything, document.KindVoucher, (*time.Time)(nil), 0).
		Return(docs, nil)
	source.On("BatchPositions", mock.Anything, document.KindVoucher, []string{"V1", "V2"}).
		Return(map[string][]*document.Position{"V1": {pos("26", "")}, "V2": {}}, map[string]error{}, nil)
	docRepo.On("DirtyIDs", mock.Anything, document.KindVoucher).Return([]string{"V2"}, nil)

	delta, err := newTestPlanner(source, docRepo).Plan(context.Background(), document.KindVoucher, true, 0)

	require.NoError(t, err)
	assert.Len(t, delta.Documents, 2)
	assert.Len(t, delta.Positions, 2)
	// The dirty set rides along on full runs too
	assert.Contains(t, delta.Dirty, "V2")
	// A full run never consults the watermark
	docRepo.AssertNotCalled(t, "MaxSourceUpdatedAt", mock.Anything, mock.Anything)
}

func TestDeltaPlanner_EmptyCacheFallsBackToFull(t *testing.T) {
	source := new(MockSourceReader)
	docRepo := new(MockDocumentRepository)

	docRepo.On("MaxSourceUpdatedAt", mock.Anything, document.KindVoucher).Return(nil, nil)
	docRepo.On("DirtyIDs", mock.Anything, document.KindVoucher).Return([]string{}, nil)
	source.On("ListBookedDocuments", mock.Anything, document.KindVoucher, (*time.Time)(nil), 0).
		Return([]*document.CachedDocument{}, nil)
	source.On("BatchPositions", mock.Anything, document.KindVoucher, []string{}).
		Return(map[string][]*document.Position{}, map[string]error{}, nil)

	delta, err := newTestPlanner(source, docRepo).Plan(context.Background(), document.KindVoucher, false, 0)

	require.NoError(t, err)
	assert.Empty(t, delta.Documents)
	docRepo.AssertNotCalled(t, "InvalidIDs", mock.Anything, mock.Anything)
}

func TestDeltaPlanner_IncrementalIncludesBacklog(t *testing.T) {
	source := new(MockSourceReader)
	docRepo := new(MockDocumentRepository)

	since := time.Date(2025, 1, 11, 8, 0, 0, 0, time.UTC)
	docRepo.On("MaxSourceUpdatedAt", mock.Anything, document.KindVoucher).Return(&since, nil)

	updated := []*document.CachedDocument{bookedDoc(t, "V1", document.StatusBooked)}
	source.On("ListBookedDocuments", mock.Anything, document.KindVoucher, &since, 0).
		Return(updated, nil)

	// V1 also shows up invalid; it must not be fetched twice. V2 is the
	// invalid backlog, V3 was flagged dirty, V4 disappeared upstream.
	docRepo.On("InvalidIDs", mock.Anything, document.KindVoucher).Return([]string{"V1", "V2"}, nil)
	docRepo.On("DirtyIDs", mock.Anything, document.KindVoucher).Return([]string{"V3", "V4"}, nil)
	source.On("GetDocument", mock.Anything, document.KindVoucher, "V2").
		Return(bookedDoc(t, "V2", document.StatusBooked), nil)
	source.On("GetDocument", mock.Anything, document.KindVoucher, "V3").
		Return(bookedDoc(t, "V3", document.StatusBooked), nil)
	source.On("GetDocument", mock.Anything, document.KindVoucher, "V4").Return(nil, nil)

	source.On("BatchPositions", mock.Anything, document.KindVoucher, []string{"V1", "V2", "V3"}).
		Return(map[string][]*document.Position{}, map[string]error{}, nil)

	delta, err := newTestPlanner(source, docRepo).Plan(context.Background(), document.KindVoucher, false, 0)

	require.NoError(t, err)
	ids := make([]string, 0, len(delta.Documents))
	for _, doc := range delta.Documents {
		ids = append(ids, doc.ID)
	}
	assert.Equal(t, []string{"V1", "V2", "V3"}, ids)
	assert.Contains(t, delta.Dirty, "V3")
	source.AssertNotCalled(t, "GetDocument", mock.Anything, document.KindVoucher, "V1")
}

func TestDeltaPlanner_PositionFailuresPassThrough(t *testing.T) {
	source := new(MockSourceReader)
	docRepo := new(MockDocumentRepository)

	docs := []*document.CachedDocument{bookedDoc(t, "V1", document.StatusBooked)}
	docRepo.On("DirtyIDs", mock.Anything, document.KindVoucher).Return([]string{}, nil)
	source.On("ListBookedDocuments", mock.Anything, document.KindVoucher, (*time.Time)(nil), 0).
		Return(docs, nil)
	source.On("BatchPositions", mock.Anything, document.KindVoucher, []string{"V1"}).
		Return(map[string][]*document.Position{}, map[string]error{"V1": assert.AnError}, nil)

	delta, err := newTestPlanner(source, docRepo).Plan(context.Background(), document.KindVoucher, true, 0)

	require.NoError(t, err)
	assert.Contains(t, delta.Failures, "V1")
}
