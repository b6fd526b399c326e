package asset

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Canonical layout: {patient_id}/{tooth}/{category}/{filename}
// relative to the asset root. The legacy layout used the patient
// display name instead of the id and had no tooth level:
// {patient name}/{category}/{filename}.

// PathParts is the decomposition of a canonical relative asset path.
type PathParts struct {
	PatientID uint
	Tooth     int
	Category  string
	Filename  string
}

// CanonicalRelPath returns the canonical relative path for an asset.
func CanonicalRelPath(patientID uint, tooth int, category, filename string) string {
	return filepath.Join(
		strconv.FormatUint(uint64(patientID), 10),
		strconv.Itoa(tooth),
		category,
		filename,
	)
}

// LegacyRelPath returns the pre-migration relative path for an asset,
// keyed by patient display name.
func LegacyRelPath(patientName, category, filename string) string {
	return filepath.Join(patientName, category, filename)
}

// ParseRelPath decomposes a relative path into canonical layout parts.
// It returns false when the path does not follow the canonical layout.
func ParseRelPath(rel string) (PathParts, bool) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 4 {
		return PathParts{}, false
	}

	patientID, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil || patientID == 0 {
		return PathParts{}, false
	}
	tooth, err := strconv.Atoi(parts[1])
	if err != nil || !ValidTooth(tooth) {
		return PathParts{}, false
	}
	if parts[2] == "" || parts[3] == "" {
		return PathParts{}, false
	}

	return PathParts{
		PatientID: uint(patientID),
		Tooth:     tooth,
		Category:  parts[2],
		Filename:  parts[3],
	}, true
}

// ValidTooth reports whether n is a plausible tooth number: 1-32 in
// universal numbering for permanent teeth, 51-85 covering primary
// dentition notations.
func ValidTooth(n int) bool {
	return (n >= 1 && n <= 32) || (n >= 51 && n <= 85)
}
