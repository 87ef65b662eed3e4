package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/types"
)

// claimRecord is the parquet row schema for exported claims.
type claimRecord struct {
	ID          string  `parquet:"id"`
	Subject     string  `parquet:"subject"`
	Predicate   string  `parquet:"predicate"`
	Object      string  `parquet:"object"`
	DocumentURI string  `parquet:"document_uri"`
	Confidence  float64 `parquet:"confidence"`
	Rank        string  `parquet:"rank"`
	ExtractedAt int64   `parquet:"extracted_at"`
}

// ClaimExporter writes claim datasets as parquet files for analytics
// hand-off.
type ClaimExporter struct {
	dir string
}

// NewClaimExporter creates an exporter writing into dir.
func NewClaimExporter(dir string) (*ClaimExporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ClaimExporter{dir: dir}, nil
}

// Export writes the claims of one run to a timestamped parquet file and
// returns its path.
func (e *ClaimExporter) Export(ctx context.Context, runID string, claims []*types.Claim) (string, error) {
	records := make([]claimRecord, len(claims))
	for i, claim := range claims {
		object := claim.ObjectIRI
		if claim.ObjectLiteral != nil {
			object = claim.ObjectLiteral.Value
		}
		records[i] = claimRecord{
			ID:          claim.ID,
			Subject:     claim.Subject,
			Predicate:   claim.Predicate,
			Object:      object,
			DocumentURI: claim.DocumentURI,
			Confidence:  claim.Confidence,
			Rank:        string(claim.Rank),
			ExtractedAt: claim.ExtractedAt.Unix(),
		}
	}

	path := filepath.Join(e.dir, fmt.Sprintf("claims-%s-%d.parquet", runID, time.Now().Unix()))
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[claimRecord](file)
	if _, err := writer.Write(records); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	logger.Infof(ctx, "exported %d claims to %s", len(records), path)
	return path, nil
}
