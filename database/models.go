package database

import (
	"time"

	"github.com/rs/zerolog"
)

type Patient struct {
	ID        uint `gorm:"primaryKey"`
	FullName  string
	Phone     string
	CreatedAt time.Time
}

type Treatment struct {
	ID          uint `gorm:"primaryKey"`
	PatientID   uint
	Patient     Patient `gorm:"foreignKey:PatientID"`
	ToothNumber int
	Procedure   string
	Cost        float64
	CreatedAt   time.Time
}

type Payment struct {
	ID        uint `gorm:"primaryKey"`
	PatientID uint
	Patient   Patient `gorm:"foreignKey:PatientID"`
	Amount    float64
	CreatedAt time.Time
}

type Appointment struct {
	ID          uint `gorm:"primaryKey"`
	PatientID   uint
	Patient     Patient `gorm:"foreignKey:PatientID"`
	ScheduledAt time.Time
	Notes       string
}

// PatientImage links one binary asset to its owning patient and,
// optionally, to the treatment it documents. Path is relative to the
// asset root in the canonical {patient_id}/{tooth}/{category} layout.
type PatientImage struct {
	ID          uint `gorm:"primaryKey"`
	PatientID   uint
	Patient     Patient `gorm:"foreignKey:PatientID"`
	ToothNumber int
	Category    string
	TreatmentID *uint
	Path        string
	CreatedAt   time.Time
}

func (img PatientImage) MarshalZerologObject(e *zerolog.Event) {
	e.Uint("id", img.ID)
	e.Uint("patient", img.PatientID)
	e.Int("tooth", img.ToothNumber)
	e.Str("category", img.Category)
	e.Str("path", img.Path)
	if img.TreatmentID != nil {
		e.Uint("treatment", *img.TreatmentID)
	}
}

// Models lists every persisted clinical entity, in migration order.
func Models() []any {
	return []any{&Patient{}, &Treatment{}, &Payment{}, &Appointment{}, &PatientImage{}}
}

// TrackedTables are the table names the integrity verifier reports row
// counts for. Names are singular per the gorm naming strategy.
func TrackedTables() []string {
	return []string{"patient", "treatment", "payment", "appointment", "patient_image"}
}
