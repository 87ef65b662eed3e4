// Package claims persists extracted claims in Postgres through gorm.
package claims

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/types"
)

// claimRow is the database form of a claim. Object and evidence are stored
// as JSON columns; the deterministic ID is the primary key, so replays of
// the same document upsert instead of duplicating.
type claimRow struct {
	ID            string    `gorm:"type:varchar(64);primaryKey"`
	Subject       string    `gorm:"type:text;index"`
	Predicate     string    `gorm:"type:text"`
	ObjectIRI     string    `gorm:"type:text"`
	ObjectLiteral types.JSON `gorm:"type:jsonb"`
	DocumentURI   string    `gorm:"type:text;index"`
	Evidence      types.JSON `gorm:"type:jsonb"`
	ExtractedAt   time.Time
	Confidence    float64
	Rank          string `gorm:"type:varchar(16)"`
	ValidFrom     *time.Time
	ValidTo       *time.Time
}

// TableName sets the table claims live in.
func (claimRow) TableName() string { return "claims" }

// Repository is the gorm-backed claim store.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates the repository and migrates its schema.
func NewRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&claimRow{}); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

// SaveClaims upserts the claims; conflicts on the deterministic ID are
// ignored, giving at-least-once writers idempotency.
func (r *Repository) SaveClaims(ctx context.Context, claims []*types.Claim) error {
	if len(claims) == 0 {
		return nil
	}
	rows := make([]*claimRow, 0, len(claims))
	for _, claim := range claims {
		row, err := toRow(claim)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rows).Error
	if err != nil {
		logger.Errorf(ctx, "failed to save %d claims: %v", len(rows), err)
		return &types.StoreConnectionError{Store: "claims", Cause: err}
	}
	logger.Infof(ctx, "saved %d claims", len(rows))
	return nil
}

// ListClaimsByDocument returns all claims of a document in ID order.
func (r *Repository) ListClaimsByDocument(ctx context.Context, documentURI string) ([]*types.Claim, error) {
	var rows []claimRow
	err := r.db.WithContext(ctx).
		Where("document_uri = ?", documentURI).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, &types.StoreConnectionError{Store: "claims", Cause: err}
	}
	claims := make([]*types.Claim, 0, len(rows))
	for i := range rows {
		claim, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, nil
}

// DeleteClaimsByDocument removes a document's claims.
func (r *Repository) DeleteClaimsByDocument(ctx context.Context, documentURI string) error {
	err := r.db.WithContext(ctx).Where("document_uri = ?", documentURI).Delete(&claimRow{}).Error
	if err != nil {
		return &types.StoreConnectionError{Store: "claims", Cause: err}
	}
	return nil
}

func toRow(claim *types.Claim) (*claimRow, error) {
	evidence, err := json.Marshal(claim.Evidence)
	if err != nil {
		return nil, err
	}
	row := &claimRow{
		ID:          claim.ID,
		Subject:     claim.Subject,
		Predicate:   claim.Predicate,
		ObjectIRI:   claim.ObjectIRI,
		DocumentURI: claim.DocumentURI,
		Evidence:    types.JSON(evidence),
		ExtractedAt: claim.ExtractedAt,
		Confidence:  claim.Confidence,
		Rank:        string(claim.Rank),
		ValidFrom:   claim.ValidFrom,
		ValidTo:     claim.ValidTo,
	}
	if claim.ObjectLiteral != nil {
		literal, err := json.Marshal(claim.ObjectLiteral)
		if err != nil {
			return nil, err
		}
		row.ObjectLiteral = types.JSON(literal)
	}
	return row, nil
}

func fromRow(row *claimRow) (*types.Claim, error) {
	claim := &types.Claim{
		ID:          row.ID,
		Subject:     row.Subject,
		Predicate:   row.Predicate,
		ObjectIRI:   row.ObjectIRI,
		DocumentURI: row.DocumentURI,
		ExtractedAt: row.ExtractedAt,
		Confidence:  row.Confidence,
		Rank:        types.ClaimRank(row.Rank),
		ValidFrom:   row.ValidFrom,
		ValidTo:     row.ValidTo,
	}
	if len(row.Evidence) > 0 {
		if err := json.Unmarshal(row.Evidence, &claim.Evidence); err != nil {
			return nil, err
		}
	}
	if len(row.ObjectLiteral) > 0 {
		claim.ObjectLiteral = &types.Literal{}
		if err := json.Unmarshal(row.ObjectLiteral, claim.ObjectLiteral); err != nil {
			return nil, err
		}
	}
	return claim, nil
}
