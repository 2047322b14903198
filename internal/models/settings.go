package models

// Settings is the site-wide configuration singleton (id 1).
type Settings struct {
	ID              int64  `json:"id"`
	SiteName        string `json:"siteName"`
	SiteDescription string `json:"siteDescription"`
	SiteURL         string `json:"siteUrl"`
	AdminEmail      string `json:"adminEmail"`
	PostsPerPage    int    `json:"postsPerPage"`
	Timezone        string `json:"timezone"`
	DateFormat      string `json:"dateFormat"`
	Language        string `json:"language"`
	MaintenanceMode bool   `json:"maintenanceMode"`
}

// RecordID implements the client cache key.
func (s Settings) RecordID() int64 { return s.ID }

// DefaultSettings returns the settings written when none exist.
func DefaultSettings() Settings {
	return Settings{
		ID:              SettingsID,
		SiteName:        "CMS Admin",
		SiteDescription: "Painel administrativo",
		SiteURL:         "http://localhost:5173",
		AdminEmail:      "admin@example.com",
		PostsPerPage:    10,
		Timezone:        "America/Sao_Paulo",
		DateFormat:      "DD/MM/YYYY",
		Language:        "pt",
		MaintenanceMode: false,
	}
}
