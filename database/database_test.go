package database_test

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/odontosoft/clinicvault/database"
)

func openTestDB(path string) (*gorm.DB, error) {
	cli, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Discard,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	})
	if err != nil {
		return nil, err
	}
	if err := cli.AutoMigrate(database.Models()...); err != nil {
		return nil, err
	}
	return cli, nil
}

func newTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "clinic.db"), openTestDB, zerolog.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestVacuumInto(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Cli().Create(&database.Patient{FullName: "Jane Doe"}).Error)

	dest := filepath.Join(t.TempDir(), "copy.db")
	require.NoError(t, db.VacuumInto(context.Background(), dest))

	copyCli, err := openTestDB(dest)
	require.NoError(t, err)
	var count int64
	require.NoError(t, copyCli.Model(&database.Patient{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	sqlDB, err := copyCli.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestCheckpoint_RejectsUnknownMode(t *testing.T) {
	db := newTestDB(t)
	assert.Error(t, db.Checkpoint(context.Background(), "EVERYTHING"))
	assert.NoError(t, db.Checkpoint(context.Background(), "TRUNCATE"))
}

func TestSynchronous_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SetSynchronous(ctx, 3))
	level, err := db.Synchronous(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, level)

	assert.Error(t, db.SetSynchronous(ctx, 7))
}

func TestPatientByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	patient, err := db.PatientByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, patient)
}

func TestLatestTreatment_PicksNewest(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := database.Patient{FullName: "Jane Doe"}
	require.NoError(t, db.Cli().Create(&p).Error)

	treatments := []database.Treatment{
		{PatientID: p.ID, ToothNumber: 16, Procedure: "filling"},
		{PatientID: p.ID, ToothNumber: 16, Procedure: "crown"},
		{PatientID: p.ID, ToothNumber: 8, Procedure: "extraction"},
	}
	require.NoError(t, db.Cli().Omit("Patient").Create(&treatments).Error)

	latest, err := db.LatestTreatment(ctx, p.ID, 16)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "crown", latest.Procedure)

	none, err := db.LatestTreatment(ctx, p.ID, 31)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestIterImages_BatchesAcrossLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := database.Patient{FullName: "Jane Doe"}
	require.NoError(t, db.Cli().Create(&p).Error)

	const total = 120
	for i := 0; i < total; i++ {
		require.NoError(t, db.CreateImage(ctx, &database.PatientImage{
			PatientID:   p.ID,
			ToothNumber: 16,
			Category:    "xray",
			Path:        fmt.Sprintf("1/16/xray/img-%03d.png", i),
		}))
	}

	var seen int
	for img, err := range db.IterImages(ctx) {
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", img.Patient.FullName)
		seen++
	}
	assert.Equal(t, total, seen)
}

func TestIterImages_SurfacesReadErrors(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Cli().Exec("DROP TABLE patient_image").Error)

	var sawErr error
	for _, err := range db.IterImages(context.Background()) {
		sawErr = err
	}
	assert.Error(t, sawErr)
}

func TestReplaceAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := database.Patient{FullName: "Before Restore"}
	require.NoError(t, db.Cli().Create(&p).Error)
	require.NoError(t, db.Cli().Omit("Patient").Create(&database.Payment{PatientID: p.ID, Amount: 50}).Error)

	dump := &database.LegacyDump{
		Patients: []database.Patient{
			{ID: 1, FullName: "After One"},
			{ID: 2, FullName: "After Two"},
		},
		Treatments: []database.Treatment{
			{ID: 1, PatientID: 1, ToothNumber: 12, Procedure: "extraction"},
		},
	}
	require.NoError(t, db.ReplaceAll(ctx, dump))

	var patients []database.Patient
	require.NoError(t, db.Cli().Order("id").Find(&patients).Error)
	require.Len(t, patients, 2)
	assert.Equal(t, "After One", patients[0].FullName)

	var payments int64
	require.NoError(t, db.Cli().Model(&database.Payment{}).Count(&payments).Error)
	assert.Equal(t, int64(0), payments)
}
