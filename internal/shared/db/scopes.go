// Package db provides database utilities including query scopes for
// presence-aware filtering.
package db

import (
	"gorm.io/gorm"
)

// EqOrNull is a GORM scope matching `column = *v` when v is present and
// `column IS NULL` when it is absent. Filters on optional tenant columns
// must branch on presence, never on truthiness, so a missing value matches
// only rows where the column itself is null.
//
// Example usage:
//
//	db.Scopes(db.EqOrNull("client_id", clientID)).Find(&rows)
func EqOrNull(column string, v *string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if v == nil {
			return db.Where(column + " IS NULL")
		}
		return db.Where(column+" = ?", *v)
	}
}

// EqIfPresent is a GORM scope matching `column = *v` only when v is
// present; an absent value applies no filter on the column at all.
func EqIfPresent(column string, v *string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if v == nil {
			return db
		}
		return db.Where(column+" = ?", *v)
	}
}

// IsNull is a GORM scope forcing `column IS NULL` regardless of any other
// value. Org-wide installation queries use it to bypass team filtering.
func IsNull(column string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(column + " IS NULL")
	}
}
