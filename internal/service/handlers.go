// Package service contains HTTP handler implementations for the shop backend API endpoints.
// It orchestrates request parsing, calls the underlying business logic in the app package,
// maps engine error kinds to HTTP status codes, and writes the JSON responses.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"game_shop/internal/app"
	"game_shop/internal/apperr"
	"game_shop/internal/models"
	"game_shop/internal/pkg/logger"

	"github.com/go-chi/chi/v5"
)

const requestTimeout = 10 * time.Second

// handlers aggregates dependencies needed by HTTP handlers,
// including the application business logic and logger.
type handlers struct {
	app *app.App
	log *logger.Logger
}

// newHandlers initializes a new handlers instance with the provided app and logger dependencies.
func newHandlers(app *app.App, l *logger.Logger) *handlers {
	return &handlers{app: app, log: l}
}

// registerHandler handles account registration requests.
// Validation and conflict failures map to 400; a created account returns 201.
func (handlers *handlers) registerHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var registerRequest models.RegisterRequest

	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	if err = json.Unmarshal(requestBody, &registerRequest); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	account, err := handlers.app.ProcessRegister(ctx, registerRequest)
	if err != nil {
		var validationError *apperr.ValidationError
		var conflictError *apperr.ConflictError
		if errors.As(err, &validationError) || errors.As(err, &conflictError) {
			writeErrorResponse(res, err.Error(), http.StatusBadRequest)
			return
		}
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSONResponse(res, account, http.StatusCreated)
}

// loginHandler handles authentication requests.
// Unknown users and wrong passwords both return 401 with the same message.
func (handlers *handlers) loginHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var loginRequest models.LoginRequest

	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	if err = json.Unmarshal(requestBody, &loginRequest); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	account, token, err := handlers.app.ProcessLogin(ctx, loginRequest)
	if err != nil {
		if errors.Is(err, apperr.ErrAuthentication) {
			writeErrorResponse(res, err.Error(), http.StatusUnauthorized)
			return
		}
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSONResponse(res, models.LoginResponse{Account: *account, Token: token}, http.StatusOK)
}

// usersHandler returns every registered account.
func (handlers *handlers) usersHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	accounts, err := handlers.app.ProcessUsers(ctx)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSONResponse(res, accounts, http.StatusOK)
}

// itemsHandler returns the shop catalog.
func (handlers *handlers) itemsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	items, err := handlers.app.ProcessItems(ctx)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSONResponse(res, items, http.StatusOK)
}

// buyItemHandler processes requests to purchase an item.
// The item comes from the URL, the buyer's username from the request body,
// either as a JSON string or as plain text. Every purchase failure maps to 409.
func (handlers *handlers) buyItemHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	itemID, err := strconv.Atoi(chi.URLParam(req, "itemId"))
	if err != nil {
		writeErrorResponse(res, "invalid item id provided", http.StatusConflict)
		return
	}

	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusConflict)
		return
	}

	var username string
	if err = json.Unmarshal(requestBody, &username); err != nil {
		username = strings.Trim(strings.TrimSpace(string(requestBody)), `"`)
	}

	err = handlers.app.ProcessBuy(ctx, username, itemID)
	if err != nil {
		var notFoundError *apperr.NotFoundError
		if errors.As(err, &notFoundError) || errors.Is(err, apperr.ErrInsufficientFunds) ||
			errors.Is(err, apperr.ErrPartialFailure) {
			writeErrorResponse(res, err.Error(), http.StatusConflict)
			return
		}
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSONResponse(res, models.MessageResponse{Message: "success"}, http.StatusOK)
}

// coinsHandler returns the coin balance for the account named in the URL.
func (handlers *handlers) coinsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	coins, err := handlers.app.ProcessCoins(ctx, chi.URLParam(req, "username"))
	if err != nil {
		writeLookupError(res, err)
		return
	}

	writeJSONResponse(res, models.CoinsResponse{Coins: coins}, http.StatusOK)
}

// rankingHandler returns all accounts ordered by descending best score.
func (handlers *handlers) rankingHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	ranking, err := handlers.app.ProcessRanking(ctx)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSONResponse(res, ranking, http.StatusOK)
}

// profileHandler returns the account record for the username in the URL.
// The password hash is excluded by the Account JSON encoding.
func (handlers *handlers) profileHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	account, err := handlers.app.ProcessProfile(ctx, chi.URLParam(req, "username"))
	if err != nil {
		writeLookupError(res, err)
		return
	}

	writeJSONResponse(res, account, http.StatusOK)
}

// inventoryHandler returns the aggregated inventory for the account named in the URL.
func (handlers *handlers) inventoryHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	inventory, err := handlers.app.ProcessInventory(ctx, chi.URLParam(req, "username"))
	if err != nil {
		writeLookupError(res, err)
		return
	}

	writeJSONResponse(res, inventory, http.StatusOK)
}

// scoreHandler returns the best gameplay score for the account named in the URL.
func (handlers *handlers) scoreHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	score, err := handlers.app.ProcessScore(ctx, chi.URLParam(req, "username"))
	if err != nil {
		writeLookupError(res, err)
		return
	}

	writeJSONResponse(res, models.ScoreResponse{Score: score}, http.StatusOK)
}

// writeLookupError maps a not-found failure to 404 and anything else to 500.
func writeLookupError(res http.ResponseWriter, err error) {
	var notFoundError *apperr.NotFoundError
	if errors.As(err, &notFoundError) {
		writeErrorResponse(res, err.Error(), http.StatusNotFound)
		return
	}
	writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
}

func writeJSONResponse(res http.ResponseWriter, payload any, statusCode int) {
	result, err := json.Marshal(payload)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
		return
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	res.Write(result)
}

func writeErrorResponse(res http.ResponseWriter, errorInfo string, statusCode int) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	json.NewEncoder(res).Encode(models.ErrorResponse{Message: errorInfo})
}
