// Package store provides typed access to the discussion, news-source, and
// user records. It owns index semantics, projection, and write atomicity;
// everything above it works in domain terms.
package store

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate applies a row lock where the dialect supports one. SQLite
// serializes writers on its own and rejects FOR UPDATE syntax.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// addToSet returns the list with name present exactly once.
func addToSet(list []string, name string) []string {
	for _, existing := range list {
		if existing == name {
			return list
		}
	}
	return append(list, name)
}

// removeFromSet returns the list without name.
func removeFromSet(list []string, name string) []string {
	out := list[:0]
	for _, existing := range list {
		if existing != name {
			out = append(out, existing)
		}
	}
	return out
}
