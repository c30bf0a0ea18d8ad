package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game_shop/internal/app"
	"game_shop/internal/apperr"
	"game_shop/internal/config"
	"game_shop/internal/models"
	"game_shop/internal/pkg/logger"
	"game_shop/internal/pkg/security"
	"game_shop/internal/storage/mocks"
)

func newTestServer(t *testing.T) (*httptest.Server, *mocks.MockStorage) {
	t.Helper()

	l, err := logger.CreateLogger(config.LogLevel)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockDB := mocks.NewMockStorage(ctrl)
	appInstance := app.NewApp(mockDB, l)
	serviceInstance := NewService(appInstance, config.ServerRunAddress, l)

	testServer := httptest.NewServer(serviceInstance.NewRouter())
	t.Cleanup(testServer.Close)

	return testServer, mockDB
}

func testRequest(t *testing.T, ts *httptest.Server, method, path string, requestBody []byte) (*http.Response, string) {
	req, err := http.NewRequest(method, ts.URL+path, bytes.NewBuffer(requestBody))
	require.NoError(t, err)

	client := &http.Client{}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func TestRegisterHandler(t *testing.T) {
	testServer, mockDB := newTestServer(t)

	validBody := []byte(`{"username": "bob1", "password": "secret", "name": "Bob",
		"surname": "Smith", "email": "bob@x.com", "birthDate": "1990-05-20"}`)

	type expectedData struct {
		expectedStatusCode  int
		expectedBodySubstr  string
		expectAccountInBody bool
	}

	testCases := []struct {
		name        string
		requestBody []byte
		setupMock   func()
		expected    expectedData
	}{
		{
			name:        "Invalid JSON",
			requestBody: []byte("some body"),
			setupMock:   func() {},
			expected: expectedData{
				expectedStatusCode: http.StatusBadRequest,
			},
		},
		{
			name: "Username pattern violation",
			requestBody: []byte(`{"username": "bob!", "password": "secret", "name": "Bob",
				"surname": "Smith", "email": "bob@x.com", "birthDate": "1990-05-20"}`),
			setupMock: func() {},
			expected: expectedData{
				expectedStatusCode: http.StatusBadRequest,
				expectedBodySubstr: "username",
			},
		},
		{
			name: "Missing email fails before username",
			requestBody: []byte(`{"username": "bob!", "password": "secret", "name": "Bob",
				"surname": "Smith", "email": "", "birthDate": "1990-05-20"}`),
			setupMock: func() {},
			expected: expectedData{
				expectedStatusCode: http.StatusBadRequest,
				expectedBodySubstr: "email",
			},
		},
		{
			name:        "Duplicate email",
			requestBody: validBody,
			setupMock: func() {
				mockDB.EXPECT().EmailTaken(gomock.Any(), "bob@x.com").Return(true, nil)
			},
			expected: expectedData{
				expectedStatusCode: http.StatusBadRequest,
				expectedBodySubstr: "email already exists",
			},
		},
		{
			name:        "Duplicate username",
			requestBody: validBody,
			setupMock: func() {
				mockDB.EXPECT().EmailTaken(gomock.Any(), "bob@x.com").Return(false, nil)
				mockDB.EXPECT().UsernameTaken(gomock.Any(), "bob1").Return(true, nil)
			},
			expected: expectedData{
				expectedStatusCode: http.StatusBadRequest,
				expectedBodySubstr: "username already exists",
			},
		},
		{
			name:        "Successful registration",
			requestBody: validBody,
			setupMock: func() {
				mockDB.EXPECT().EmailTaken(gomock.Any(), "bob@x.com").Return(false, nil)
				mockDB.EXPECT().UsernameTaken(gomock.Any(), "bob1").Return(false, nil)
				mockDB.EXPECT().CreateAccount(gomock.Any(), gomock.AssignableToTypeOf(&models.Account{})).
					DoAndReturn(func(ctx context.Context, account *models.Account) (*models.Account, error) {
						account.ID = 7
						return account, nil
					})
			},
			expected: expectedData{
				expectedStatusCode:  http.StatusCreated,
				expectAccountInBody: true,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMock()
			resp, body := testRequest(t, testServer, http.MethodPost, "/api/auth/register", tc.requestBody)
			assert.Equal(t, tc.expected.expectedStatusCode, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			if tc.expected.expectedBodySubstr != "" {
				assert.Contains(t, body, tc.expected.expectedBodySubstr)
			}

			if tc.expected.expectAccountInBody {
				var account models.Account
				require.NoError(t, json.Unmarshal([]byte(body), &account))
				assert.Equal(t, int32(7), account.ID)
				assert.Equal(t, 1000, account.Coins)
				assert.Equal(t, 0, account.BestScore)
				assert.NotContains(t, body, "password", "credential must not be serialized")
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	testServer, mockDB := newTestServer(t)

	storedHash := security.HashPassword("secret")

	type expectedData struct {
		expectedStatusCode int
		expectToken        bool
	}

	testCases := []struct {
		name        string
		requestBody []byte
		setupMock   func()
		expected    expectedData
	}{
		{
			name:        "Invalid JSON",
			requestBody: []byte("some body"),
			setupMock:   func() {},
			expected:    expectedData{expectedStatusCode: http.StatusBadRequest},
		},
		{
			name:        "Unknown user",
			requestBody: []byte(`{"username": "ghost", "password": "secret"}`),
			setupMock: func() {
				mockDB.EXPECT().GetAccountByUsername(gomock.Any(), "ghost").
					Return(nil, &apperr.NotFoundError{Entity: "account"})
			},
			expected: expectedData{expectedStatusCode: http.StatusUnauthorized},
		},
		{
			name:        "Wrong password",
			requestBody: []byte(`{"username": "bob1", "password": "wrong"}`),
			setupMock: func() {
				mockDB.EXPECT().GetAccountByUsername(gomock.Any(), "bob1").
					Return(&models.Account{ID: 1, Username: "bob1", PasswordHash: storedHash}, nil)
			},
			expected: expectedData{expectedStatusCode: http.StatusUnauthorized},
		},
		{
			name:        "Successful login",
			requestBody: []byte(`{"username": "bob1", "password": "secret"}`),
			setupMock: func() {
				mockDB.EXPECT().GetAccountByUsername(gomock.Any(), "bob1").
					Return(&models.Account{ID: 1, Username: "bob1", PasswordHash: storedHash, Coins: 1000}, nil)
			},
			expected: expectedData{expectedStatusCode: http.StatusOK, expectToken: true},
		},
	}

	var unauthorizedBodies []string

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMock()
			resp, body := testRequest(t, testServer, http.MethodPost, "/api/auth/login", tc.requestBody)
			assert.Equal(t, tc.expected.expectedStatusCode, resp.StatusCode)

			if resp.StatusCode == http.StatusUnauthorized {
				unauthorizedBodies = append(unauthorizedBodies, body)
			}

			if tc.expected.expectToken {
				var loginResp models.LoginResponse
				require.NoError(t, json.Unmarshal([]byte(body), &loginResp))
				assert.NotEmpty(t, loginResp.Token, "token should not be empty")
				assert.Equal(t, "bob1", loginResp.Username)
			}
		})
	}

	// Unknown user and wrong password must be indistinguishable on the wire.
	require.Len(t, unauthorizedBodies, 2)
	assert.Equal(t, unauthorizedBodies[0], unauthorizedBodies[1])
}

func TestBuyItemHandler(t *testing.T) {
	testServer, mockDB := newTestServer(t)

	type expectedData struct {
		expectedStatusCode int
		expectedBody       string
	}

	testCases := []struct {
		name        string
		path        string
		requestBody []byte
		setupMock   func()
		expected    expectedData
	}{
		{
			name:        "Non-numeric item id",
			path:        "/api/shop/buy/shield",
			requestBody: []byte(`"bob1"`),
			setupMock:   func() {},
			expected: expectedData{
				expectedStatusCode: http.StatusConflict,
				expectedBody:       "{\"message\":\"invalid item id provided\"}\n",
			},
		},
		{
			name:        "Unknown account",
			path:        "/api/shop/buy/3",
			requestBody: []byte(`"ghost"`),
			setupMock: func() {
				mockDB.EXPECT().PurchaseItem(gomock.Any(), "ghost", 3).
					Return(&apperr.NotFoundError{Entity: "account"})
			},
			expected: expectedData{
				expectedStatusCode: http.StatusConflict,
				expectedBody:       "{\"message\":\"account not found\"}\n",
			},
		},
		{
			name:        "Unknown item",
			path:        "/api/shop/buy/999",
			requestBody: []byte(`"bob1"`),
			setupMock: func() {
				mockDB.EXPECT().PurchaseItem(gomock.Any(), "bob1", 999).
					Return(&apperr.NotFoundError{Entity: "item"})
			},
			expected: expectedData{
				expectedStatusCode: http.StatusConflict,
				expectedBody:       "{\"message\":\"item not found\"}\n",
			},
		},
		{
			name:        "Insufficient funds",
			path:        "/api/shop/buy/3",
			requestBody: []byte(`"bob1"`),
			setupMock: func() {
				mockDB.EXPECT().PurchaseItem(gomock.Any(), "bob1", 3).
					Return(apperr.ErrInsufficientFunds)
			},
			expected: expectedData{
				expectedStatusCode: http.StatusConflict,
				expectedBody:       "{\"message\":\"insufficient coins to purchase the item\"}\n",
			},
		},
		{
			name:        "Successful purchase with JSON string body",
			path:        "/api/shop/buy/3",
			requestBody: []byte(`"bob1"`),
			setupMock: func() {
				mockDB.EXPECT().PurchaseItem(gomock.Any(), "bob1", 3).Return(nil)
			},
			expected: expectedData{
				expectedStatusCode: http.StatusOK,
				expectedBody:       `{"message":"success"}`,
			},
		},
		{
			name:        "Successful purchase with plain text body",
			path:        "/api/shop/buy/3",
			requestBody: []byte(" bob1 "),
			setupMock: func() {
				mockDB.EXPECT().PurchaseItem(gomock.Any(), "bob1", 3).Return(nil)
			},
			expected: expectedData{
				expectedStatusCode: http.StatusOK,
				expectedBody:       `{"message":"success"}`,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMock()
			resp, body := testRequest(t, testServer, http.MethodPost, tc.path, tc.requestBody)
			assert.Equal(t, tc.expected.expectedStatusCode, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			assert.Equal(t, tc.expected.expectedBody, body)
		})
	}
}

func TestCoinsHandler(t *testing.T) {
	testServer, mockDB := newTestServer(t)

	mockDB.EXPECT().GetAccountByUsername(gomock.Any(), "bob1").
		Return(&models.Account{ID: 1, Username: "bob1", Coins: 300}, nil)

	resp, body := testRequest(t, testServer, http.MethodGet, "/api/shop/coins/bob1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"coins":300}`, body)

	mockDB.EXPECT().GetAccountByUsername(gomock.Any(), "ghost").
		Return(nil, &apperr.NotFoundError{Entity: "account"})

	resp, body = testRequest(t, testServer, http.MethodGet, "/api/shop/coins/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "{\"message\":\"account not found\"}\n", body)
}

func TestScoreHandler(t *testing.T) {
	testServer, mockDB := newTestServer(t)

	mockDB.EXPECT().GetAccountByUsername(gomock.Any(), "bob1").
		Return(&models.Account{ID: 1, Username: "bob1", BestScore: 420}, nil)

	resp, body := testRequest(t, testServer, http.MethodGet, "/api/shop/score/bob1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"score":420}`, body)
}

func TestRankingHandler(t *testing.T) {
	testServer, mockDB := newTestServer(t)

	ranking := []models.Account{
		{ID: 2, Username: "alice1", BestScore: 900},
		{ID: 1, Username: "bob1", BestScore: 400},
		{ID: 3, Username: "carol1", BestScore: 0},
	}
	mockDB.EXPECT().ListAccountsByScore(gomock.Any()).Return(ranking, nil)

	resp, body := testRequest(t, testServer, http.MethodGet, "/api/shop/ranking", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded []models.Account
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	require.Len(t, decoded, 3)
	for i := 1; i < len(decoded); i++ {
		assert.GreaterOrEqual(t, decoded[i-1].BestScore, decoded[i].BestScore)
	}
}

func TestProfileHandler(t *testing.T) {
	testServer, mockDB := newTestServer(t)

	mockDB.EXPECT().GetAccountByUsername(gomock.Any(), "bob1").
		Return(&models.Account{
			ID:           1,
			Username:     "bob1",
			PasswordHash: "$2a$10$somethingsecret",
			Name:         "Bob",
			Surname:      "Smith",
			Email:        "bob@x.com",
			BirthDate:    "1990-05-20",
			Coins:        1000,
			BestScore:    50,
		}, nil)

	resp, body := testRequest(t, testServer, http.MethodGet, "/api/shop/profile/bob1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "somethingsecret", "profile must not leak the credential hash")

	var account models.Account
	require.NoError(t, json.Unmarshal([]byte(body), &account))
	assert.Equal(t, "bob1", account.Username)
	assert.Equal(t, "bob@x.com", account.Email)

	mockDB.EXPECT().GetAccountByUsername(gomock.Any(), "ghost").
		Return(nil, &apperr.NotFoundError{Entity: "account"})

	resp, _ = testRequest(t, testServer, http.MethodGet, "/api/shop/profile/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInventoryHandler(t *testing.T) {
	testServer, mockDB := newTestServer(t)

	mockDB.EXPECT().GetAccountByUsername(gomock.Any(), "bob1").
		Return(&models.Account{ID: 5, Username: "bob1"}, nil)
	mockDB.EXPECT().GetInventory(gomock.Any(), int32(5)).
		Return([]models.ItemInventory{
			{Item: models.Item{ID: 3, Name: "shield", Description: "blocks one hit", Price: 120}, Quantity: 3},
		}, nil)

	resp, body := testRequest(t, testServer, http.MethodGet, "/api/shop/inventory/bob1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var inventory []models.ItemInventory
	require.NoError(t, json.Unmarshal([]byte(body), &inventory))
	require.Len(t, inventory, 1)
	assert.Equal(t, 3, inventory[0].Quantity)
	assert.Equal(t, "shield", inventory[0].Item.Name)

	mockDB.EXPECT().GetAccountByUsername(gomock.Any(), "ghost").
		Return(nil, &apperr.NotFoundError{Entity: "account"})

	resp, _ = testRequest(t, testServer, http.MethodGet, "/api/shop/inventory/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUsersAndItemsHandlers(t *testing.T) {
	testServer, mockDB := newTestServer(t)

	mockDB.EXPECT().ListAccounts(gomock.Any()).
		Return([]models.Account{{ID: 1, Username: "bob1"}}, nil)

	resp, body := testRequest(t, testServer, http.MethodGet, "/api/auth/users", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "bob1")

	mockDB.EXPECT().ListItems(gomock.Any()).
		Return([]models.Item{{ID: 1, Name: "boost", Description: "double points", Price: 250}}, nil)

	resp, body = testRequest(t, testServer, http.MethodGet, "/api/shop/items", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "boost")
}
