package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cmsadmin/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Document is one stored record of the SQL backend. The body keeps the full
// JSON object so collections stay schemaless.
type Document struct {
	Collection string         `gorm:"primaryKey;size:64"`
	DocID      int64          `gorm:"primaryKey;column:doc_id;autoIncrement:false"`
	Body       datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time      `gorm:"index"`
	UpdatedAt  time.Time
}

// TableName pins the table name.
func (Document) TableName() string {
	return "documents"
}

// GormRepository stores records as JSON rows in sqlite or postgres. A process
// level mutex keeps the single-writer discipline of the JSON backend; each
// write also runs in a transaction.
type GormRepository struct {
	mu sync.Mutex
	db *gorm.DB
}

// NewGormRepository migrates the documents table and returns the repository.
func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, fmt.Errorf("migrate documents: %w", err)
	}
	return &GormRepository{db: db}, nil
}

func decodeDocument(d Document) (models.Record, error) {
	rec, err := models.DecodeRecord(d.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%d: %w", d.Collection, d.DocID, err)
	}
	rec.SetID(d.DocID)
	return rec, nil
}

func encodeDocument(collection string, id int64, rec models.Record) (Document, error) {
	body, err := toJSON(rec)
	if err != nil {
		return Document{}, err
	}
	return Document{Collection: collection, DocID: id, Body: datatypes.JSON(body)}, nil
}

func (r *GormRepository) List(ctx context.Context, collection string) ([]models.Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}

	var docs []Document
	if err := r.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at ASC, doc_id ASC").
		Find(&docs).Error; err != nil {
		return nil, err
	}

	out := make([]models.Record, 0, len(docs))
	for _, d := range docs {
		rec, err := decodeDocument(d)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *GormRepository) Get(ctx context.Context, collection string, id int64) (models.Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	return r.get(r.db.WithContext(ctx), collection, id)
}

func (r *GormRepository) get(tx *gorm.DB, collection string, id int64) (models.Record, error) {
	var doc Document
	err := tx.Where("collection = ? AND doc_id = ?", collection, id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeDocument(doc)
}

// lockForUpdate adds SELECT ... FOR UPDATE where the dialect supports it.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (r *GormRepository) Create(ctx context.Context, collection string, rec models.Record) (models.Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var stored models.Record
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored = rec.Clone()
		if _, present := stored["id"]; present {
			id, ok := stored.ID()
			if !ok {
				return models.NewValidationError("id must be an integer")
			}
			var count int64
			if err := tx.Model(&Document{}).
				Where("collection = ? AND doc_id = ?", collection, id).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrDuplicateID
			}
			stored.SetID(id)
		} else {
			var maxID *int64
			if err := tx.Model(&Document{}).
				Where("collection = ?", collection).
				Select("MAX(doc_id)").
				Scan(&maxID).Error; err != nil {
				return err
			}
			next := int64(1)
			if maxID != nil {
				next = *maxID + 1
			}
			stored.SetID(next)
		}

		id, _ := stored.ID()
		doc, err := encodeDocument(collection, id, stored)
		if err != nil {
			return err
		}
		return tx.Create(&doc).Error
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (r *GormRepository) Update(ctx context.Context, collection string, id int64, fn UpdateFunc) (models.Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated models.Record
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := r.get(lockForUpdate(tx), collection, id)
		if err != nil {
			return err
		}
		updated, err = applyUpdate(current, id, fn)
		if err != nil {
			return err
		}
		body, err := toJSON(updated)
		if err != nil {
			return err
		}
		return tx.Model(&Document{}).
			Where("collection = ? AND doc_id = ?", collection, id).
			Updates(map[string]any{"body": datatypes.JSON(body), "updated_at": time.Now()}).Error
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *GormRepository) Delete(ctx context.Context, collection string, id int64) (models.Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed models.Record
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = r.get(lockForUpdate(tx), collection, id)
		if err != nil {
			return err
		}
		return tx.Where("collection = ? AND doc_id = ?", collection, id).Delete(&Document{}).Error
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *GormRepository) Truncate(ctx context.Context, collection string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.db.WithContext(ctx).Where("collection = ?", collection).Delete(&Document{}).Error
}

func (r *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
