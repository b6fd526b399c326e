package database

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"gorm.io/gorm"
)

const iterateBatchSize = 50

// IterImages yields every PatientImage row in batches, patient
// preloaded. A failed batch read yields a zero row with the error and
// ends the sequence; callers doing repair work must not treat a read
// failure as an empty table.
func (d *Database) IterImages(ctx context.Context) iter.Seq2[PatientImage, error] {
	return func(yield func(PatientImage, error) bool) {
		offset := 0
		for {
			var images []PatientImage

			d.Lock.Lock()
			err := d.cli.WithContext(ctx).
				Preload("Patient").
				Order("id").
				Limit(iterateBatchSize).
				Offset(offset).
				Find(&images).Error
			d.Lock.Unlock()
			if err != nil {
				yield(PatientImage{}, fmt.Errorf("could not fetch image records: %w", err))
				return
			}
			if len(images) == 0 {
				return
			}
			for i := range images {
				if ctx.Err() != nil {
					return
				}
				if !yield(images[i], nil) {
					return
				}
			}
			if len(images) < iterateBatchSize {
				return
			}
			offset += iterateBatchSize
		}
	}
}

// SaveImage persists changes to an existing image row.
func (d *Database) SaveImage(ctx context.Context, img *PatientImage) error {
	d.Lock.Lock()
	defer d.Lock.Unlock()
	return d.cli.WithContext(ctx).Omit("Patient").Save(img).Error
}

// CreateImage inserts a new image row.
func (d *Database) CreateImage(ctx context.Context, img *PatientImage) error {
	d.Lock.Lock()
	defer d.Lock.Unlock()
	return d.cli.WithContext(ctx).Omit("Patient").Create(img).Error
}

// ImageExistsAtPath reports whether an image row already points at the
// given relative path.
func (d *Database) ImageExistsAtPath(ctx context.Context, relPath string) (bool, error) {
	d.Lock.Lock()
	defer d.Lock.Unlock()

	var count int64
	err := d.cli.WithContext(ctx).Model(&PatientImage{}).
		Where("path = ?", relPath).
		Count(&count).Error
	return count > 0, err
}

// PatientByID returns the patient with the given id, or nil when the
// patient does not exist.
func (d *Database) PatientByID(ctx context.Context, id uint) (*Patient, error) {
	d.Lock.Lock()
	defer d.Lock.Unlock()

	patient := &Patient{}
	err := d.cli.WithContext(ctx).First(patient, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return patient, nil
}

// LatestTreatment returns the most recently created treatment for the
// patient and tooth, or nil when none exists.
func (d *Database) LatestTreatment(ctx context.Context, patientID uint, tooth int) (*Treatment, error) {
	d.Lock.Lock()
	defer d.Lock.Unlock()

	treatment := &Treatment{}
	err := d.cli.WithContext(ctx).
		Where("patient_id = ? AND tooth_number = ?", patientID, tooth).
		Order("created_at DESC, id DESC").
		First(treatment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return treatment, nil
}

// LegacyDump is the flat entity-collection format of pre-archive
// backups, supported read-only for restore.
type LegacyDump struct {
	Patients     []Patient      `json:"patients"`
	Treatments   []Treatment    `json:"treatments"`
	Payments     []Payment      `json:"payments"`
	Appointments []Appointment  `json:"appointments"`
	Images       []PatientImage `json:"images"`
}

// ReplaceAll clears every entity collection and re-inserts the dump
// contents in one transaction.
func (d *Database) ReplaceAll(ctx context.Context, dump *LegacyDump) error {
	d.Lock.Lock()
	defer d.Lock.Unlock()

	return d.cli.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&PatientImage{}, &Appointment{}, &Payment{}, &Treatment{}, &Patient{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		if len(dump.Patients) > 0 {
			if err := tx.Create(&dump.Patients).Error; err != nil {
				return err
			}
		}
		if len(dump.Treatments) > 0 {
			if err := tx.Omit("Patient").Create(&dump.Treatments).Error; err != nil {
				return err
			}
		}
		if len(dump.Payments) > 0 {
			if err := tx.Omit("Patient").Create(&dump.Payments).Error; err != nil {
				return err
			}
		}
		if len(dump.Appointments) > 0 {
			if err := tx.Omit("Patient").Create(&dump.Appointments).Error; err != nil {
				return err
			}
		}
		if len(dump.Images) > 0 {
			if err := tx.Omit("Patient").Create(&dump.Images).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
