// Package models defines the data structures used throughout the application.
// It includes the persistent records for accounts, shop items and inventory
// entries, the derived inventory summary, and the request and response
// payloads exchanged with clients.
package models

import "time"

// Account represents a registered user in the system.
// It holds the user's identity, credential hash, personal details,
// coin balance and best gameplay score. The password hash is never
// serialized to clients.
type Account struct {
	ID           int32  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
	Surname      string `json:"surname"`
	Email        string `json:"email"`
	BirthDate    string `json:"birthDate"`
	Coins        int    `json:"coins"`
	BestScore    int    `json:"bestScore"`
}

// Item represents a purchasable entry in the shop catalog.
// The catalog is owned by an external collaborator; this core only reads it.
type Item struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int    `json:"price"`
}

// InventoryEntry records a single completed purchase linking an account to an
// item. Entries are append-only; repeat purchases create repeat entries.
type InventoryEntry struct {
	ID        int
	AccountID int32
	ItemID    int
	CreatedAt time.Time
}

// ItemInventory is the derived, non-persisted summary of how many units of a
// given item an account owns. It is computed on demand and never stored.
type ItemInventory struct {
	Item     Item `json:"item"`
	Quantity int  `json:"quantity"`
}

// RegisterRequest represents the registration request payload.
// Any caller-supplied ID is discarded before persistence; the store assigns one.
type RegisterRequest struct {
	ID        int32  `json:"id"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
	BirthDate string `json:"birthDate"`
}

// LoginRequest represents the authentication request payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the authenticated account together with a signed
// bearer token clients may present on later requests.
type LoginResponse struct {
	Account
	Token string `json:"token"`
}

// CoinsResponse carries an account's coin balance.
type CoinsResponse struct {
	Coins int `json:"coins"`
}

// ScoreResponse carries an account's best gameplay score.
type ScoreResponse struct {
	Score int `json:"score"`
}

// MessageResponse is a generic single-message success payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is a generic single-message error payload.
type ErrorResponse struct {
	Message string `json:"message"`
}
