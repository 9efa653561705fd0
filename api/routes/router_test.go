package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	authsvc "github.com/rentfolio/rentfolio-backend/internal/auth"
	billingsvc "github.com/rentfolio/rentfolio-backend/internal/billing"
	docsvc "github.com/rentfolio/rentfolio-backend/internal/documents"
	inquirysvc "github.com/rentfolio/rentfolio-backend/internal/inquiries"
	notifsvc "github.com/rentfolio/rentfolio-backend/internal/notifications"
	propertysvc "github.com/rentfolio/rentfolio-backend/internal/properties"
	subssvc "github.com/rentfolio/rentfolio-backend/internal/subscriptions"
	tenancysvc "github.com/rentfolio/rentfolio-backend/internal/tenancy"
	"github.com/rentfolio/rentfolio-backend/internal/users"
	pkgauth "github.com/rentfolio/rentfolio-backend/pkg/auth"
	"github.com/rentfolio/rentfolio-backend/pkg/config"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
	"github.com/rentfolio/rentfolio-backend/pkg/logger"
	"github.com/rentfolio/rentfolio-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubBlacklist struct{}

func (stubBlacklist) IsBlacklisted(context.Context, string) (bool, error) { return false, nil }

type stubAuthService struct{}

func (stubAuthService) Login(context.Context, authsvc.LoginRequest) (*authsvc.LoginResponse, error) {
	return &authsvc.LoginResponse{}, nil
}
func (stubAuthService) VerifyTwoFactor(context.Context, authsvc.VerifyTwoFactorRequest) (*authsvc.TokenPairResponse, error) {
	return &authsvc.TokenPairResponse{}, nil
}
func (stubAuthService) Refresh(context.Context, authsvc.RefreshRequest) (*authsvc.TokenPairResponse, error) {
	return &authsvc.TokenPairResponse{}, nil
}
func (stubAuthService) Logout(context.Context, string, string) error { return nil }

type stubRegisterService struct{}

func (stubRegisterService) Register(context.Context, authsvc.RegisterRequest) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}
func (stubRegisterService) VerifyEmail(context.Context, authsvc.VerifyEmailRequest) error {
	return nil
}

type stubPropertyService struct{}

func (stubPropertyService) CreateProperty(context.Context, uuid.UUID, propertysvc.CreatePropertyRequest) (*propertysvc.PropertyDTO, error) {
	return &propertysvc.PropertyDTO{}, nil
}
func (stubPropertyService) UpdateProperty(context.Context, uuid.UUID, uuid.UUID, propertysvc.UpdatePropertyRequest) (*propertysvc.PropertyDTO, error) {
	return &propertysvc.PropertyDTO{}, nil
}
func (stubPropertyService) GetProperty(context.Context, uuid.UUID, enums.UserRole, uuid.UUID) (*propertysvc.PropertyDTO, error) {
	return &propertysvc.PropertyDTO{}, nil
}
func (stubPropertyService) ListMine(context.Context, uuid.UUID) ([]propertysvc.PropertyDTO, error) {
	return nil, nil
}
func (stubPropertyService) ListActive(context.Context, string) ([]propertysvc.PropertyDTO, error) {
	return nil, nil
}
func (stubPropertyService) ListPending(context.Context) ([]propertysvc.PropertyDTO, error) {
	return nil, nil
}
func (stubPropertyService) Review(context.Context, uuid.UUID, uuid.UUID, propertysvc.ReviewPropertyRequest) (*propertysvc.PropertyDTO, error) {
	return &propertysvc.PropertyDTO{}, nil
}
func (stubPropertyService) CreateUnit(context.Context, uuid.UUID, uuid.UUID, propertysvc.CreateUnitRequest) (*propertysvc.UnitDTO, error) {
	return &propertysvc.UnitDTO{}, nil
}
func (stubPropertyService) UpdateUnit(context.Context, uuid.UUID, uuid.UUID, propertysvc.UpdateUnitRequest) (*propertysvc.UnitDTO, error) {
	return &propertysvc.UnitDTO{}, nil
}
func (stubPropertyService) ListUnits(context.Context, uuid.UUID, enums.UserRole, uuid.UUID) ([]propertysvc.UnitDTO, error) {
	return nil, nil
}

type stubInquiryService struct{}

func (stubInquiryService) Start(context.Context, uuid.UUID, inquirysvc.StartInquiryRequest) (*inquirysvc.InquiryDTO, error) {
	return &inquirysvc.InquiryDTO{}, nil
}
func (stubInquiryService) ListMine(context.Context, uuid.UUID) ([]inquirysvc.InquiryDTO, error) {
	return nil, nil
}
func (stubInquiryService) ListForManager(context.Context, uuid.UUID, string) ([]inquirysvc.InquiryDTO, error) {
	return nil, nil
}
func (stubInquiryService) GetThread(context.Context, uuid.UUID, uuid.UUID) (*inquirysvc.InquiryDTO, []inquirysvc.MessageDTO, error) {
	return &inquirysvc.InquiryDTO{}, nil, nil
}
func (stubInquiryService) AppendMessage(context.Context, uuid.UUID, uuid.UUID, inquirysvc.AppendMessageRequest) (*inquirysvc.MessageDTO, error) {
	return &inquirysvc.MessageDTO{}, nil
}
func (stubInquiryService) MarkRead(context.Context, uuid.UUID, uuid.UUID) (*inquirysvc.InquiryDTO, error) {
	return &inquirysvc.InquiryDTO{}, nil
}
func (stubInquiryService) Respond(context.Context, uuid.UUID, uuid.UUID, inquirysvc.AppendMessageRequest) (*inquirysvc.InquiryDTO, error) {
	return &inquirysvc.InquiryDTO{}, nil
}
func (stubInquiryService) UpdateStatus(context.Context, uuid.UUID, uuid.UUID, inquirysvc.UpdateStatusRequest) (*inquirysvc.InquiryDTO, error) {
	return &inquirysvc.InquiryDTO{}, nil
}

type stubTenancyService struct{}

func (stubTenancyService) Assign(context.Context, uuid.UUID, tenancysvc.AssignRequest) (*tenancysvc.AssignResult, error) {
	return &tenancysvc.AssignResult{}, nil
}
func (stubTenancyService) ListMine(context.Context, uuid.UUID) ([]tenancysvc.TenancyDTO, error) {
	return nil, nil
}
func (stubTenancyService) ListForProperty(context.Context, uuid.UUID, uuid.UUID) ([]tenancysvc.TenancyDTO, error) {
	return nil, nil
}

type stubBillingService struct{}

func (stubBillingService) CreateBill(context.Context, uuid.UUID, billingsvc.CreateBillRequest) (*billingsvc.BillDTO, error) {
	return &billingsvc.BillDTO{}, nil
}
func (stubBillingService) GetBill(context.Context, uuid.UUID, enums.UserRole, uuid.UUID) (*billingsvc.BillDTO, error) {
	return &billingsvc.BillDTO{}, nil
}
func (stubBillingService) ListMine(context.Context, uuid.UUID) ([]billingsvc.BillDTO, error) {
	return nil, nil
}
func (stubBillingService) ListForProperty(context.Context, uuid.UUID, uuid.UUID) ([]billingsvc.BillDTO, error) {
	return nil, nil
}
func (stubBillingService) ListPayments(context.Context, uuid.UUID, enums.UserRole, uuid.UUID) ([]billingsvc.PaymentDTO, error) {
	return nil, nil
}
func (stubBillingService) SubmitPayment(context.Context, uuid.UUID, uuid.UUID, billingsvc.SubmitPaymentRequest) (*billingsvc.PaymentDTO, error) {
	return &billingsvc.PaymentDTO{}, nil
}
func (stubBillingService) VerifyPayment(context.Context, uuid.UUID, enums.UserRole, uuid.UUID, billingsvc.VerifyPaymentRequest) (*billingsvc.PaymentDTO, error) {
	return &billingsvc.PaymentDTO{}, nil
}

type stubSubscriptionService struct{}

func (stubSubscriptionService) CreatePlan(context.Context, subssvc.CreatePlanRequest) (*subssvc.PlanDTO, error) {
	return &subssvc.PlanDTO{}, nil
}
func (stubSubscriptionService) UpdatePlan(context.Context, uuid.UUID, subssvc.UpdatePlanRequest) (*subssvc.PlanDTO, error) {
	return &subssvc.PlanDTO{}, nil
}
func (stubSubscriptionService) GetPlan(context.Context, uuid.UUID) (*subssvc.PlanDTO, error) {
	return &subssvc.PlanDTO{}, nil
}
func (stubSubscriptionService) ListPlans(context.Context, enums.UserRole) ([]subssvc.PlanDTO, error) {
	return nil, nil
}
func (stubSubscriptionService) Subscribe(context.Context, uuid.UUID, subssvc.SubscribeRequest) (*subssvc.SubscriptionDTO, error) {
	return &subssvc.SubscriptionDTO{}, nil
}
func (stubSubscriptionService) MySubscription(context.Context, uuid.UUID) (*subssvc.SubscriptionDTO, error) {
	return &subssvc.SubscriptionDTO{}, nil
}
func (stubSubscriptionService) ListMyBills(context.Context, uuid.UUID) ([]subssvc.SubscriptionBillDTO, error) {
	return nil, nil
}
func (stubSubscriptionService) SubmitTransaction(context.Context, uuid.UUID, subssvc.SubmitTransactionRequest) (*subssvc.TransactionDTO, error) {
	return &subssvc.TransactionDTO{}, nil
}
func (stubSubscriptionService) ListPendingTransactions(context.Context) ([]subssvc.TransactionDTO, error) {
	return nil, nil
}
func (stubSubscriptionService) ListMyTransactions(context.Context, uuid.UUID) ([]subssvc.TransactionDTO, error) {
	return nil, nil
}
func (stubSubscriptionService) VerifyTransaction(context.Context, uuid.UUID, uuid.UUID, subssvc.VerifyTransactionRequest) (*subssvc.TransactionDTO, error) {
	return &subssvc.TransactionDTO{}, nil
}

type stubNotificationService struct{}

func (stubNotificationService) List(context.Context, uuid.UUID, bool, pagination.Params) (*notifsvc.ListResult, error) {
	return &notifsvc.ListResult{}, nil
}
func (stubNotificationService) UnreadCount(context.Context, uuid.UUID) (*notifsvc.UnreadCountResult, error) {
	return &notifsvc.UnreadCountResult{}, nil
}
func (stubNotificationService) MarkRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (stubNotificationService) MarkAllRead(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

type stubDocumentService struct{}

func (stubDocumentService) Upload(context.Context, uuid.UUID, string, string, io.Reader) (*docsvc.DocumentDTO, error) {
	return &docsvc.DocumentDTO{}, nil
}
func (stubDocumentService) Download(context.Context, uuid.UUID, enums.UserRole, uuid.UUID) (io.ReadCloser, *docsvc.DocumentDTO, error) {
	return io.NopCloser(strings.NewReader("")), &docsvc.DocumentDTO{}, nil
}
func (stubDocumentService) ListMine(context.Context, uuid.UUID) ([]docsvc.DocumentDTO, error) {
	return nil, nil
}
func (stubDocumentService) Delete(context.Context, uuid.UUID, enums.UserRole, uuid.UUID) error {
	return nil
}
func (stubDocumentService) Exists(context.Context, uuid.UUID) (bool, error) { return true, nil }

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "rentfolio-test",
			ExpirationMinutes: 15,
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	return NewRouter(cfg, logg, stubPinger{}, nil, stubBlacklist{}, Services{
		Auth:          stubAuthService{},
		Register:      stubRegisterService{},
		Properties:    stubPropertyService{},
		Inquiries:     stubInquiryService{},
		Tenancy:       stubTenancyService{},
		Billing:       stubBillingService{},
		Subscriptions: stubSubscriptionService{},
		Notifications: stubNotificationService{},
		Documents:     stubDocumentService{},
	})
}

func mintToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.TokenPayload{
		UserID: uuid.New(),
		Email:  "router@test.dev",
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveOpen(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPublicCatalogNeedsNoToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/properties/active", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestProtectedRouteRejectsMissingToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestTenantCannotCreateProperty(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/properties", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.UserRoleTenant))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestManagerListsOwnProperties(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/properties", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.UserRoleManager))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminVerifiesTransaction(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	body := strings.NewReader(`{"status":"verified"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/"+uuid.NewString()+"/verify", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.UserRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestManagerBlockedFromAdminQueue(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/transactions/pending", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.UserRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/transactions/pending", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.UserRoleManager))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}
