package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensehub/approval-workflow/internal/application/service"
	"github.com/expensehub/approval-workflow/internal/domain/entity"
)

type noopLogger struct{}

func (noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (noopLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockExpenseService struct {
	submitFn       func(ctx context.Context, input service.CreateExpenseInput, submitter *entity.User) (*entity.Expense, error)
	approveFn      func(ctx context.Context, expenseID int64, actor *entity.User) (*entity.Expense, error)
	rejectFn       func(ctx context.Context, expenseID int64, actor *entity.User) (*entity.Expense, error)
	getByIDFn      func(ctx context.Context, expenseID int64) (*entity.Expense, error)
	listByStatusFn func(ctx context.Context, status entity.ExpenseStatus) ([]*entity.Expense, error)
	historyFn      func(ctx context.Context, expenseID int64) ([]*entity.ExpenseHistory, error)
}

func (m *mockExpenseService) Submit(ctx context.Context, input service.CreateExpenseInput, submitter *entity.User) (*entity.Expense, error) {
	return m.submitFn(ctx, input, submitter)
}

func (m *mockExpenseService) Approve(ctx context.Context, expenseID int64, actor *entity.User) (*entity.Expense, error) {
	return m.approveFn(ctx, expenseID, actor)
}

func (m *mockExpenseService) Reject(ctx context.Context, expenseID int64, actor *entity.User) (*entity.Expense, error) {
	return m.rejectFn(ctx, expenseID, actor)
}

func (m *mockExpenseService) GetByID(ctx context.Context, expenseID int64) (*entity.Expense, error) {
	return m.getByIDFn(ctx, expenseID)
}

func (m *mockExpenseService) ListByStatus(ctx context.Context, status entity.ExpenseStatus) ([]*entity.Expense, error) {
	return m.listByStatusFn(ctx, status)
}

func (m *mockExpenseService) History(ctx context.Context, expenseID int64) ([]*entity.ExpenseHistory, error) {
	return m.historyFn(ctx, expenseID)
}

type mockDocumentService struct {
	uploadFn  func(ctx context.Context, filename, contentType string, content []byte) (*entity.Document, error)
	getByIDFn func(ctx context.Context, id int64) (*entity.Document, error)
}

func (m *mockDocumentService) Upload(ctx context.Context, filename, contentType string, content []byte) (*entity.Document, error) {
	return m.uploadFn(ctx, filename, contentType, content)
}

func (m *mockDocumentService) GetByID(ctx context.Context, id int64) (*entity.Document, error) {
	return m.getByIDFn(ctx, id)
}

type mockUserService struct {
	createFn     func(ctx context.Context, input service.CreateUserInput, actor *entity.User) (*entity.User, error)
	listFn       func(ctx context.Context, actor *entity.User) ([]*entity.User, error)
	assignRoleFn func(ctx context.Context, userID int64, newRole entity.Role, actor *entity.User) (*entity.User, error)
}

func (m *mockUserService) Create(ctx context.Context, input service.CreateUserInput, actor *entity.User) (*entity.User, error) {
	return m.createFn(ctx, input, actor)
}

func (m *mockUserService) List(ctx context.Context, actor *entity.User) ([]*entity.User, error) {
	return m.listFn(ctx, actor)
}

func (m *mockUserService) AssignRole(ctx context.Context, userID int64, newRole entity.Role, actor *entity.User) (*entity.User, error) {
	return m.assignRoleFn(ctx, userID, newRole, actor)
}

type mockExportService struct {
	exportFn func(ctx context.Context) ([]byte, error)
}

func (m *mockExportService) ExportApproved(ctx context.Context) ([]byte, error) {
	return m.exportFn(ctx)
}

// mockUserRepo backs the auth middleware with a fixed token table
type mockUserRepo struct {
	usersByToken map[string]*entity.User
}

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error { return nil }

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return nil, nil
}

func (m *mockUserRepo) GetByToken(ctx context.Context, token string) (*entity.User, error) {
	return m.usersByToken[token], nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*entity.User, error) { return nil, nil }

func (m *mockUserRepo) UpdateRole(ctx context.Context, id int64, role entity.Role) error {
	return nil
}

func newTestServer(expenses *mockExpenseService, users *mockUserService) *Server {
	documents := &mockDocumentService{
		uploadFn: func(ctx context.Context, filename, contentType string, content []byte) (*entity.Document, error) {
			return &entity.Document{ID: 1, OriginalFilename: filename, Status: entity.DocumentUploaded}, nil
		},
		getByIDFn: func(ctx context.Context, id int64) (*entity.Document, error) {
			return &entity.Document{ID: id, Status: entity.DocumentExtracted}, nil
		},
	}
	exports := &mockExportService{
		exportFn: func(ctx context.Context) ([]byte, error) { return []byte("workbook"), nil },
	}
	repo := &mockUserRepo{usersByToken: map[string]*entity.User{
		"coach-token":    {ID: 2, Role: entity.RoleCoach},
		"director-token": {ID: 3, Role: entity.RoleDirector},
		"admin-token":    {ID: 4, Role: entity.RoleAdmin},
	}}

	return NewServer(DefaultServerConfig(), expenses, documents, users, exports, repo, noopLogger{})
}

func doRequest(t *testing.T, server *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(payload)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)
	return recorder
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(&mockExpenseService{}, &mockUserService{})

	recorder := doRequest(t, server, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "healthy")
}

func TestAuthMiddleware(t *testing.T) {
	server := newTestServer(&mockExpenseService{
		getByIDFn: func(ctx context.Context, expenseID int64) (*entity.Expense, error) {
			return &entity.Expense{ID: expenseID}, nil
		},
	}, &mockUserService{})

	t.Run("missing token", func(t *testing.T) {
		recorder := doRequest(t, server, http.MethodGet, "/api/tax-returns/1", "", nil)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		recorder := doRequest(t, server, http.MethodGet, "/api/tax-returns/1", "bogus", nil)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		recorder := doRequest(t, server, http.MethodGet, "/api/tax-returns/1", "coach-token", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

func TestSubmitTaxReturn(t *testing.T) {
	var captured service.CreateExpenseInput
	server := newTestServer(&mockExpenseService{
		submitFn: func(ctx context.Context, input service.CreateExpenseInput, submitter *entity.User) (*entity.Expense, error) {
			captured = input
			return &entity.Expense{ID: 11, Status: entity.ExpensePending}, nil
		},
	}, &mockUserService{})

	body := map[string]interface{}{
		"document_id":            5,
		"supplier_name":          "Office Depot",
		"total_amount":           123.45,
		"purchase_date":          "2026-03-14",
		"category":               "GENERAL",
		"user_selected_approval": "COACH",
	}

	recorder := doRequest(t, server, http.MethodPost, "/api/tax-returns", "coach-token", body)

	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, int64(12345), captured.TotalAmountCents)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), captured.PurchaseDate)

	t.Run("malformed date", func(t *testing.T) {
		body["purchase_date"] = "14/03/2026"
		recorder := doRequest(t, server, http.MethodPost, "/api/tax-returns", "coach-token", body)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", &entity.ValidationError{Field: "category", Reason: "unknown"}, http.StatusBadRequest},
		{"not found", &entity.NotFoundError{Kind: "tax return", ID: 9}, http.StatusNotFound},
		{"forbidden", &entity.ForbiddenError{Reason: "role USER cannot approve"}, http.StatusForbidden},
		{"already finalized", &entity.AlreadyFinalizedError{ExpenseID: 9, Status: entity.ExpenseRejected}, http.StatusConflict},
		{"extraction failed", &entity.ExtractionFailedError{DocumentID: 9, Message: "unreadable"}, http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := newTestServer(&mockExpenseService{
				approveFn: func(ctx context.Context, expenseID int64, actor *entity.User) (*entity.Expense, error) {
					return nil, tc.err
				},
			}, &mockUserService{})

			recorder := doRequest(t, server, http.MethodPost, "/api/tax-returns/9/approve", "coach-token", nil)

			assert.Equal(t, tc.wantStatus, recorder.Code)
		})
	}
}

func TestListTaxReturnsByStatus(t *testing.T) {
	server := newTestServer(&mockExpenseService{
		listByStatusFn: func(ctx context.Context, status entity.ExpenseStatus) ([]*entity.Expense, error) {
			assert.Equal(t, entity.ExpensePending, status)
			return nil, nil
		},
	}, &mockUserService{})

	recorder := doRequest(t, server, http.MethodGet, "/api/tax-returns/status/PENDING", "coach-token", nil)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data, "empty result must serialize as [] not null")
}

func TestGetTaxReturnHistory(t *testing.T) {
	server := newTestServer(&mockExpenseService{
		historyFn: func(ctx context.Context, expenseID int64) ([]*entity.ExpenseHistory, error) {
			assert.Equal(t, int64(7), expenseID)
			return []*entity.ExpenseHistory{
				{ID: 1, ExpenseID: expenseID, ActorID: 2, PreviousStatus: "", NewStatus: "PENDING", Action: "SUBMIT"},
				{ID: 2, ExpenseID: expenseID, ActorID: 3, PreviousStatus: "PENDING", NewStatus: "APPROVED", Action: "APPROVE"},
			}, nil
		},
	}, &mockUserService{})

	recorder := doRequest(t, server, http.MethodGet, "/api/tax-returns/7/history", "coach-token", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "SUBMIT")
	assert.Contains(t, recorder.Body.String(), "APPROVE")

	t.Run("unknown expense", func(t *testing.T) {
		server := newTestServer(&mockExpenseService{
			historyFn: func(ctx context.Context, expenseID int64) ([]*entity.ExpenseHistory, error) {
				return nil, &entity.NotFoundError{Kind: "tax return", ID: expenseID}
			},
		}, &mockUserService{})

		recorder := doRequest(t, server, http.MethodGet, "/api/tax-returns/99/history", "coach-token", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestRejectTaxReturn(t *testing.T) {
	server := newTestServer(&mockExpenseService{
		rejectFn: func(ctx context.Context, expenseID int64, actor *entity.User) (*entity.Expense, error) {
			assert.Equal(t, int64(3), actor.ID)
			return &entity.Expense{ID: expenseID, Status: entity.ExpenseRejected}, nil
		},
	}, &mockUserService{})

	recorder := doRequest(t, server, http.MethodPost, "/api/tax-returns/7/reject", "director-token", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "REJECTED")
}

func TestExportApproved(t *testing.T) {
	server := newTestServer(&mockExpenseService{}, &mockUserService{})

	recorder := doRequest(t, server, http.MethodGet, "/api/tax-returns/export", "admin-token", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", recorder.Header().Get("Content-Type"))
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), "attachment")
}

func TestAssignRole(t *testing.T) {
	server := newTestServer(&mockExpenseService{}, &mockUserService{
		assignRoleFn: func(ctx context.Context, userID int64, newRole entity.Role, actor *entity.User) (*entity.User, error) {
			assert.Equal(t, int64(2), userID)
			assert.Equal(t, entity.RoleCommitteeLead, newRole)
			if actor.Role != entity.RoleAdmin {
				return nil, &entity.ForbiddenError{Reason: "role assignment requires ADMIN role"}
			}
			return &entity.User{ID: userID, Role: newRole}, nil
		},
	})

	t.Run("admin can assign", func(t *testing.T) {
		recorder := doRequest(t, server, http.MethodPut, "/api/admin/users/2/role", "admin-token",
			map[string]string{"role": "COMMITTEE_LEAD"})
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		recorder := doRequest(t, server, http.MethodPut, "/api/admin/users/2/role", "coach-token",
			map[string]string{"role": "COMMITTEE_LEAD"})
		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})
}

func TestCreateUser(t *testing.T) {
	server := newTestServer(&mockExpenseService{}, &mockUserService{
		createFn: func(ctx context.Context, input service.CreateUserInput, actor *entity.User) (*entity.User, error) {
			if actor.Role != entity.RoleAdmin {
				return nil, &entity.ForbiddenError{Reason: "user management requires ADMIN role"}
			}
			assert.Equal(t, "ana@example.com", input.Email)
			return &entity.User{ID: 9, Email: input.Email, Role: entity.RoleUser, APIToken: "fresh-token"}, nil
		},
	})

	body := map[string]string{
		"first_name": "Ana",
		"last_name":  "Pop",
		"email":      "ana@example.com",
	}

	t.Run("admin can create", func(t *testing.T) {
		recorder := doRequest(t, server, http.MethodPost, "/api/admin/users", "admin-token", body)
		require.Equal(t, http.StatusCreated, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "fresh-token",
			"api token must be returned once at creation")
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		recorder := doRequest(t, server, http.MethodPost, "/api/admin/users", "coach-token", body)
		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})
}

func TestInvalidID(t *testing.T) {
	server := newTestServer(&mockExpenseService{}, &mockUserService{})

	recorder := doRequest(t, server, http.MethodGet, "/api/tax-returns/abc", "coach-token", nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
