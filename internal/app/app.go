// Package app provides the core business logic for the gamified shop backend.
// It enforces the registration and authentication invariants, runs the
// coin-debiting purchase protocol, aggregates per-account inventories, and
// serves the score ranking. The package integrates with the storage layer for
// data persistence and uses the auth package for token generation.
package app

import (
	"context"
	"errors"
	"game_shop/internal/apperr"
	"game_shop/internal/models"
	"game_shop/internal/pkg/auth"
	"game_shop/internal/pkg/logger"
	"game_shop/internal/pkg/security"
	"game_shop/internal/storage"
	"time"
)

// defaultCoins is the balance every account starts with.
const defaultCoins = 1000

// App encapsulates the application logic and dependencies required to process requests.
// It interacts with the storage layer and uses a logger for error and activity logging.
type App struct {
	db  storage.Storage // Database storage layer for persistent data operations.
	log *logger.Logger  // Logger for logging application events and errors.
}

// NewApp creates and returns a new instance of App with the provided storage and logger dependencies.
func NewApp(db storage.Storage, log *logger.Logger) *App {
	return &App{db: db, log: log}
}

// ProcessRegister creates a new account from the candidate fields.
// Validation runs as an ordered short-circuit rule list; after it passes, the
// email is checked for conflicts before the username. The caller-supplied ID
// is discarded, the balance starts at defaultCoins, the best score at zero,
// and the password is stored as a bcrypt hash.
func (app *App) ProcessRegister(ctx context.Context, req models.RegisterRequest) (*models.Account, error) {
	if err := validateRegistration(&req, time.Now()); err != nil {
		return nil, err
	}

	taken, err := app.db.EmailTaken(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &apperr.ConflictError{Field: "email"}
	}

	taken, err = app.db.UsernameTaken(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &apperr.ConflictError{Field: "username"}
	}

	account := &models.Account{
		Username:     req.Username,
		PasswordHash: security.HashPassword(req.Password),
		Name:         req.Name,
		Surname:      req.Surname,
		Email:        req.Email,
		BirthDate:    req.BirthDate,
		Coins:        defaultCoins,
		BestScore:    0,
	}

	account, err = app.db.CreateAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	app.log.Sugar().Infof("Registered new account: %s", account.Username)
	return account, nil
}

// ProcessLogin verifies the supplied credentials and returns the account plus
// a signed bearer token. An unknown username and a wrong password produce the
// identical apperr.ErrAuthentication, so callers cannot tell which check failed.
func (app *App) ProcessLogin(ctx context.Context, req models.LoginRequest) (*models.Account, string, error) {
	account, err := app.db.GetAccountByUsername(ctx, req.Username)
	var notFound *apperr.NotFoundError
	if errors.As(err, &notFound) {
		return nil, "", apperr.ErrAuthentication
	}
	if err != nil {
		return nil, "", err
	}

	if err := security.CheckPassword(account.PasswordHash, req.Password); err != nil {
		return nil, "", apperr.ErrAuthentication
	}

	token, err := auth.GenerateToken(account.Username)
	if err != nil {
		return nil, "", err
	}

	return account, token, nil
}

// ProcessUsers returns every registered account.
func (app *App) ProcessUsers(ctx context.Context) ([]models.Account, error) {
	return app.db.ListAccounts(ctx)
}

// ProcessItems returns the shop catalog.
func (app *App) ProcessItems(ctx context.Context) ([]models.Item, error) {
	return app.db.ListItems(ctx)
}

// ProcessCoins returns the coin balance for an account.
func (app *App) ProcessCoins(ctx context.Context, username string) (int, error) {
	account, err := app.db.GetAccountByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	return account.Coins, nil
}

// ProcessBuy purchases an item for an account by delegating to the storage
// layer, which runs the funds check, the debit and the inventory grant as one
// transaction.
func (app *App) ProcessBuy(ctx context.Context, username string, itemID int) error {
	if err := app.db.PurchaseItem(ctx, username, itemID); err != nil {
		return err
	}
	app.log.Sugar().Infof("Account %s purchased item %d", username, itemID)
	return nil
}

// ProcessInventory returns the per-item purchase counts for an account.
func (app *App) ProcessInventory(ctx context.Context, username string) ([]models.ItemInventory, error) {
	account, err := app.db.GetAccountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return app.db.GetInventory(ctx, account.ID)
}

// ProcessRanking returns every account ordered by descending best score.
func (app *App) ProcessRanking(ctx context.Context) ([]models.Account, error) {
	return app.db.ListAccountsByScore(ctx)
}

// ProcessProfile returns the full account record for a username.
func (app *App) ProcessProfile(ctx context.Context, username string) (*models.Account, error) {
	return app.db.GetAccountByUsername(ctx, username)
}

// ProcessScore returns the best gameplay score for an account.
func (app *App) ProcessScore(ctx context.Context, username string) (int, error) {
	account, err := app.db.GetAccountByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	return account.BestScore, nil
}
