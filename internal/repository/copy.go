package repository

import (
	"context"
	"fmt"

	"cmsadmin/internal/models"
)

// CopyStats counts records written per collection.
type CopyStats map[string]int

// Copy writes every record of src into dst, keeping ids. With replace set the
// destination collections are truncated first; otherwise an id already present
// in dst fails the copy with ErrDuplicateID.
func Copy(ctx context.Context, dst, src DocumentRepository, replace bool) (CopyStats, error) {
	stats := make(CopyStats, len(models.Collections))
	for _, collection := range models.Collections {
		records, err := src.List(ctx, collection)
		if err != nil {
			return stats, fmt.Errorf("list %s: %w", collection, err)
		}
		if replace {
			if err := dst.Truncate(ctx, collection); err != nil {
				return stats, fmt.Errorf("truncate %s: %w", collection, err)
			}
		}
		for _, rec := range records {
			if _, err := dst.Create(ctx, collection, rec); err != nil {
				id, _ := rec.ID()
				return stats, fmt.Errorf("copy %s/%d: %w", collection, id, err)
			}
			stats[collection]++
		}
	}
	return stats, nil
}
