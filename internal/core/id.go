package core

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// studentNamespace scopes the name-based UUIDs used for student ids.
var studentNamespace = uuid.MustParse("6f1c2a7e-3b0d-5c4e-9a8f-2d1e0b7c6a55")

// GenerateStudentID derives a stable identifier from a student's name and
// class. Whitespace and letter case in the name do not change the result,
// so a bulk re-import of the same roster updates instead of duplicating.
//
// Two students with the same name in the same class get the same id; the
// registry detects that case through the guardian name.
func GenerateStudentID(name string, class ClassCategory) string {
	key := NormalizeName(name) + "|" + strings.ToLower(string(class))
	id := uuid.NewSHA1(studentNamespace, []byte(key))
	return "STU-" + strings.ToUpper(hex.EncodeToString(id[:6]))
}

// NormalizeName trims, collapses inner whitespace and lowercases a name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// CleanName trims and collapses whitespace but keeps the original case.
func CleanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// NewRequestID returns an id such as PR_20250408093000_1a2b3c4d. The
// timestamp keeps ids sortable; the random suffix keeps requests made in
// the same second apart.
func NewRequestID(now time.Time) string {
	u := uuid.New()
	return "PR_" + now.Format("20060102150405") + "_" + hex.EncodeToString(u[:4])
}
