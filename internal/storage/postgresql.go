// Package storage provides primitives for connecting to and interacting with data storage systems.
// It defines the Storage interface along with a PostgreSQL implementation that manages account
// records, the shop catalog, the purchase protocol, and inventory aggregation queries.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"game_shop/internal/apperr"
	"game_shop/internal/models"
	"game_shop/internal/pkg/logger"
	"time"

	pgconn "github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	pgx_pgconn "github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	createAccountQuery = `INSERT INTO accounts (username, password_hash, name, surname, email, birth_date, coins, best_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id;`
	getAccountQuery = `SELECT id, username, password_hash, name, surname, email, birth_date, coins, best_score
		FROM accounts WHERE username = $1;`
	emailTakenQuery    = `SELECT EXISTS (SELECT 1 FROM accounts WHERE lower(email) = lower($1));`
	usernameTakenQuery = `SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1);`
	listAccountsQuery  = `SELECT id, username, password_hash, name, surname, email, birth_date, coins, best_score
		FROM accounts ORDER BY id;`
	rankingQuery = `SELECT id, username, password_hash, name, surname, email, birth_date, coins, best_score
		FROM accounts ORDER BY best_score DESC, id;`
	listItemsQuery   = `SELECT id, item_name, description, price FROM items ORDER BY id;`
	getItemQuery     = `SELECT id, item_name, description, price FROM items WHERE id = $1;`
	lockAccountQuery = `SELECT id, coins FROM accounts WHERE username = $1 FOR UPDATE;`
	debitCoinsQuery  = `UPDATE accounts SET coins = coins - $1 WHERE id = $2 AND coins >= $1;`
	addEntryQuery    = `INSERT INTO inventory_entries (account_id, item_id) VALUES ($1, $2);`
	getInventoryQuery = `SELECT i.id, i.item_name, i.description, i.price, COUNT(*) AS quantity
		FROM inventory_entries e JOIN items i ON e.item_id = i.id
		WHERE e.account_id = $1 GROUP BY i.id, i.item_name, i.description, i.price;`
	updateBestScoreQuery = `UPDATE accounts SET best_score = $1 WHERE username = $2;`
)

// Storage defines the methods required for data storage operations.
type Storage interface {
	// Close closes the database connection.
	Close()

	// Account directory methods.
	CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)

	// Catalog methods (read-only to this core).
	ListItems(ctx context.Context) ([]models.Item, error)
	GetItem(ctx context.Context, itemID int) (*models.Item, error)

	// Economy ledger methods.
	PurchaseItem(ctx context.Context, username string, itemID int) error

	// Inventory aggregation.
	GetInventory(ctx context.Context, accountID int32) ([]models.ItemInventory, error)

	// Ranking and gameplay score access.
	ListAccountsByScore(ctx context.Context) ([]models.Account, error)
	UpdateBestScore(ctx context.Context, username string, score int) error
}

// PostgreSQL implements the Storage interface using a PostgreSQL database.
type PostgreSQL struct {
	db  *sql.DB        // Connection to the database.
	log *logger.Logger // Logger for recording events and errors.
}

// NewPostgreSQL creates a new PostgreSQL instance with the provided connection string and logger.
// It opens the connection and pings the database to ensure connectivity.
func NewPostgreSQL(configDBString string, l *logger.Logger) (*PostgreSQL, error) {
	db, err := sql.Open("pgx", configDBString)
	if err != nil {
		l.Sugar().Errorf("Failed to open a database: %s", err)
		return &PostgreSQL{db: db, log: l}, err
	}

	const defaultTimeout = 10 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		l.Sugar().Errorf("Database ping failed: %s", err)
		return &PostgreSQL{db: db, log: l}, err
	}

	return &PostgreSQL{db: db, log: l}, nil
}

// Close closes the database connection if it is open.
func (postgresql *PostgreSQL) Close() {
	if postgresql.db != nil {
		postgresql.db.Close()
	}
}

// scanAccount reads one account row into a models.Account.
// The birth date column is a SQL date; it is rendered back to YYYY-MM-DD.
func scanAccount(row interface{ Scan(dest ...any) error }) (*models.Account, error) {
	account := &models.Account{}
	var birthDate time.Time
	err := row.Scan(&account.ID, &account.Username, &account.PasswordHash, &account.Name,
		&account.Surname, &account.Email, &birthDate, &account.Coins, &account.BestScore)
	if err != nil {
		return nil, err
	}
	account.BirthDate = birthDate.Format(time.DateOnly)
	return account, nil
}

// CreateAccount inserts a new account and returns it with the store-assigned identifier.
// Unique violations on username or email surface as apperr.ConflictError; the engine
// checks both beforehand, so this is a backstop against concurrent registrations.
func (postgresql *PostgreSQL) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	err := postgresql.db.QueryRowContext(ctx, createAccountQuery,
		account.Username, account.PasswordHash, account.Name, account.Surname,
		account.Email, account.BirthDate, account.Coins, account.BestScore).Scan(&account.ID)
	if err != nil {
		if field, ok := uniqueViolationField(err); ok {
			return account, &apperr.ConflictError{Field: field}
		}
		postgresql.log.Sugar().Errorf("Failed to execute a query createAccountQuery: %s", err)
		return account, err
	}
	return account, nil
}

// uniqueViolationField inspects a driver error for a unique-constraint
// violation on the accounts table and reports which field collided.
// Both pgconn generations are checked, matching the driver in use.
func uniqueViolationField(err error) (string, bool) {
	var constraint string
	var pgxError *pgx_pgconn.PgError
	var pgError *pgconn.PgError
	switch {
	case errors.As(err, &pgxError) && pgxError.Code == pgerrcode.UniqueViolation:
		constraint = pgxError.ConstraintName
	case errors.As(err, &pgError) && pgError.Code == pgerrcode.UniqueViolation:
		constraint = pgError.ConstraintName
	default:
		return "", false
	}
	if constraint == "accounts_email_key" {
		return "email", true
	}
	return "username", true
}

// GetAccountByUsername retrieves the full account record for a username.
// It returns apperr.NotFoundError when no account matches.
func (postgresql *PostgreSQL) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	account, err := scanAccount(postgresql.db.QueryRowContext(ctx, getAccountQuery, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperr.NotFoundError{Entity: "account"}
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query getAccountQuery: %s", err)
		return nil, err
	}
	return account, nil
}

// EmailTaken reports whether any account already uses the given email, case-insensitively.
func (postgresql *PostgreSQL) EmailTaken(ctx context.Context, email string) (bool, error) {
	var taken bool
	if err := postgresql.db.QueryRowContext(ctx, emailTakenQuery, email).Scan(&taken); err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query emailTakenQuery: %s", err)
		return false, err
	}
	return taken, nil
}

// UsernameTaken reports whether any account already uses the given username.
func (postgresql *PostgreSQL) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var taken bool
	if err := postgresql.db.QueryRowContext(ctx, usernameTakenQuery, username).Scan(&taken); err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query usernameTakenQuery: %s", err)
		return false, err
	}
	return taken, nil
}

func (postgresql *PostgreSQL) listAccounts(ctx context.Context, query string) ([]models.Account, error) {
	rows, err := postgresql.db.QueryContext(ctx, query)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute an account listing query: %s", err)
		return nil, err
	}
	defer rows.Close()

	const initialAccountsCapacity = 16
	accounts := make([]models.Account, 0, initialAccountsCapacity)

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			postgresql.log.Sugar().Errorf("Failed to scan account row: %s", err)
			return nil, err
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		postgresql.log.Sugar().Errorf("The last error encountered while iterating account rows: %s", err)
		return accounts, err
	}

	return accounts, nil
}

// ListAccounts returns every account in store order.
func (postgresql *PostgreSQL) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return postgresql.listAccounts(ctx, listAccountsQuery)
}

// ListAccountsByScore returns every account ordered by descending best score.
// Ties keep store order.
func (postgresql *PostgreSQL) ListAccountsByScore(ctx context.Context) ([]models.Account, error) {
	return postgresql.listAccounts(ctx, rankingQuery)
}

// ListItems returns the full shop catalog.
func (postgresql *PostgreSQL) ListItems(ctx context.Context) ([]models.Item, error) {
	rows, err := postgresql.db.QueryContext(ctx, listItemsQuery)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query listItemsQuery: %s", err)
		return nil, err
	}
	defer rows.Close()

	const initialItemsCapacity = 10
	items := make([]models.Item, 0, initialItemsCapacity)

	for rows.Next() {
		item := models.Item{}
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Price); err != nil {
			postgresql.log.Sugar().Errorf("Failed to scan item row: %s", err)
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		postgresql.log.Sugar().Errorf("The last error encountered while iterating item rows: %s", err)
		return items, err
	}

	return items, nil
}

// GetItem retrieves a catalog item by its identifier.
// It returns apperr.NotFoundError when no item matches.
func (postgresql *PostgreSQL) GetItem(ctx context.Context, itemID int) (*models.Item, error) {
	item := &models.Item{}
	err := postgresql.db.QueryRowContext(ctx, getItemQuery, itemID).
		Scan(&item.ID, &item.Name, &item.Description, &item.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperr.NotFoundError{Entity: "item"}
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query getItemQuery: %s", err)
		return nil, err
	}
	return item, nil
}

// PurchaseItem processes the purchase of an item by an account.
// The account row is locked for the duration of the transaction, so concurrent
// purchases by the same account serialize and the funds check always sees the
// balance left by the previous purchase. The debit and the inventory grant
// commit together or not at all.
func (postgresql *PostgreSQL) PurchaseItem(ctx context.Context, username string, itemID int) error {
	tx, err := postgresql.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var accountID int32
	var coins int
	err = tx.QueryRowContext(ctx, lockAccountQuery, username).Scan(&accountID, &coins)
	if errors.Is(err, sql.ErrNoRows) {
		return &apperr.NotFoundError{Entity: "account"}
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query lockAccountQuery: %s", err)
		return err
	}

	item := &models.Item{}
	err = tx.QueryRowContext(ctx, getItemQuery, itemID).
		Scan(&item.ID, &item.Name, &item.Description, &item.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return &apperr.NotFoundError{Entity: "item"}
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query getItemQuery: %s", err)
		return err
	}

	if coins < item.Price {
		return apperr.ErrInsufficientFunds
	}

	result, err := tx.ExecContext(ctx, debitCoinsQuery, item.Price, accountID)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query debitCoinsQuery: %s", err)
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute RowsAffected in debitCoinsQuery: %s", err)
		return err
	}
	if rows == 0 {
		// The coins >= price guard in the UPDATE did not match; the balance
		// check above makes this unreachable while the row is locked.
		return apperr.ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx, addEntryQuery, accountID, item.ID); err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query addEntryQuery: %s", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		postgresql.log.Sugar().Errorf("Failed to commit purchase transaction: %s", err)
		return apperr.ErrPartialFailure
	}

	return nil
}

// GetInventory aggregates the purchase log for an account into per-item counts.
// Entries whose item no longer resolves drop out of the join, so dangling
// references are skipped rather than failing the aggregation.
func (postgresql *PostgreSQL) GetInventory(ctx context.Context, accountID int32) ([]models.ItemInventory, error) {
	rows, err := postgresql.db.QueryContext(ctx, getInventoryQuery, accountID)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query getInventoryQuery: %s", err)
		return nil, err
	}
	defer rows.Close()

	const initialInventoryCapacity = 10
	inventory := make([]models.ItemInventory, 0, initialInventoryCapacity)

	for rows.Next() {
		entry := models.ItemInventory{}
		if err := rows.Scan(&entry.Item.ID, &entry.Item.Name, &entry.Item.Description,
			&entry.Item.Price, &entry.Quantity); err != nil {
			postgresql.log.Sugar().Errorf("Failed to scan inventory row: %s", err)
			return nil, err
		}
		inventory = append(inventory, entry)
	}

	if err := rows.Err(); err != nil {
		postgresql.log.Sugar().Errorf("The last error encountered while iterating inventory rows: %s", err)
		return inventory, err
	}

	return inventory, nil
}

// UpdateBestScore records a new best score for an account. Scores are written
// by the gameplay collaborator; the engine itself only reads them.
func (postgresql *PostgreSQL) UpdateBestScore(ctx context.Context, username string, score int) error {
	result, err := postgresql.db.ExecContext(ctx, updateBestScoreQuery, score, username)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query updateBestScoreQuery: %s", err)
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute RowsAffected in updateBestScoreQuery: %s", err)
		return err
	}
	if rows == 0 {
		return &apperr.NotFoundError{Entity: "account"}
	}
	return nil
}
