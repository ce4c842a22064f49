package catalog

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/couchcryptid/buoy-ingest-service/internal/vocab"
)

// Seed inserts the vocabulary's reference rows. Rows that already exist are
// left untouched, so seeding is repeatable.
func (s *Store) Seed(ctx context.Context, v *vocab.Vocabulary) error {
	return s.Transaction(ctx, func(tx *Store) error {
		for _, p := range v.Platforms {
			row := Platform{Category: p.Category, SeriesEntity: p.SeriesEntity, ShortName: p.ShortName, LongName: p.LongName}
			if err := tx.insertIgnore(ctx, &row); err != nil {
				return fmt.Errorf("seed platform %q: %w", p.SeriesEntity, err)
			}
		}
		for _, i := range v.Instruments {
			row := Instrument{
				Category:  i.Category,
				Class:     i.Class,
				Type:      i.Type,
				Subtype:   i.Subtype,
				ShortName: i.ShortName,
				LongName:  i.LongName,
			}
			if err := tx.insertIgnore(ctx, &row); err != nil {
				return fmt.Errorf("seed instrument %q: %w", i.Category, err)
			}
		}
		for _, dc := range v.DataCenters {
			row := DataCenter{
				BucketLevel0:  dc.BucketLevel0,
				BucketLevel1:  dc.BucketLevel1,
				BucketLevel2:  dc.BucketLevel2,
				BucketLevel3:  dc.BucketLevel3,
				ShortName:     dc.ShortName,
				LongName:      dc.LongName,
				DataCenterURL: dc.DataCenterURL,
			}
			if err := tx.insertIgnore(ctx, &row); err != nil {
				return fmt.Errorf("seed data center %q: %w", dc.ShortName, err)
			}
		}
		for _, name := range v.ISOTopicCategories {
			if err := tx.insertIgnore(ctx, &ISOTopicCategory{Name: name}); err != nil {
				return fmt.Errorf("seed iso topic category %q: %w", name, err)
			}
		}
		for _, p := range v.Parameters {
			if err := tx.seedParameter(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) insertIgnore(ctx context.Context, row any) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
}

// Parameters have no unique key, so existence is checked by standard name.
func (s *Store) seedParameter(ctx context.Context, p vocab.Parameter) error {
	row := Parameter{StandardName: p.StandardName, ShortName: p.ShortName, Units: p.Units}
	err := s.db.WithContext(ctx).
		Where(map[string]any{"standard_name": p.StandardName}).
		FirstOrCreate(&row).Error
	if err != nil {
		return fmt.Errorf("seed parameter %q: %w", p.StandardName, err)
	}
	return nil
}
