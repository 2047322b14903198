// Package models contains data structures for the admin panel's domain models.
package models

// Collection names of the document store.
const (
	CollectionPosts      = "posts"
	CollectionCategories = "categories"
	CollectionUsers      = "users"
	CollectionMedia      = "media"
	CollectionSettings   = "settings"
)

// Collections lists every collection served by the generic CRUD routes.
var Collections = []string{
	CollectionPosts,
	CollectionCategories,
	CollectionUsers,
	CollectionMedia,
	CollectionSettings,
}

// SettingsID is the fixed id of the settings singleton.
const SettingsID int64 = 1

// IsCollection reports whether name is a known collection.
func IsCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}
