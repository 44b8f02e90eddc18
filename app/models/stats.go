package models

// LibraryStats is the public catalog summary.
type LibraryStats struct {
	TotalBooks int64 `json:"totalBooks"`
	Categories int64 `json:"categories"`
	Users      int64 `json:"users"`
	NewBooks   int64 `json:"newBooks"`
}

// CategoryCount is one row of the per-category distribution.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// AdminStats backs the admin dashboard.
type AdminStats struct {
	TotalBooks    int64           `json:"totalBooks"`
	TotalUsers    int64           `json:"totalUsers"`
	NewUsersToday int64           `json:"newUsersToday"`
	CategoryStats []CategoryCount `json:"categoryStats"`
}
