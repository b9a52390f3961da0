package domain

// User represents a registered account. Users are created by
// registration, immutable afterwards and never deleted.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	FavoriteGenre string `json:"favorite_genre"`
	// PasswordHash is the argon2id hash of the account password.
	// Filtered from every API response.
	PasswordHash string `json:"password_hash,omitempty"`
}

// UserFavorites pairs a user's favorite genre with the books tagged with it.
type UserFavorites struct {
	FavoriteGenre string  `json:"favorite_genre"`
	Favorites     []*Book `json:"favorites"`
}
