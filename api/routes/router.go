package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rentfolio/rentfolio-backend/api/controllers"
	"github.com/rentfolio/rentfolio-backend/api/middleware"
	authsvc "github.com/rentfolio/rentfolio-backend/internal/auth"
	billingsvc "github.com/rentfolio/rentfolio-backend/internal/billing"
	docsvc "github.com/rentfolio/rentfolio-backend/internal/documents"
	inquirysvc "github.com/rentfolio/rentfolio-backend/internal/inquiries"
	notifsvc "github.com/rentfolio/rentfolio-backend/internal/notifications"
	propertysvc "github.com/rentfolio/rentfolio-backend/internal/properties"
	subssvc "github.com/rentfolio/rentfolio-backend/internal/subscriptions"
	tenancysvc "github.com/rentfolio/rentfolio-backend/internal/tenancy"
	"github.com/rentfolio/rentfolio-backend/pkg/config"
	"github.com/rentfolio/rentfolio-backend/pkg/db"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
	"github.com/rentfolio/rentfolio-backend/pkg/logger"
	"github.com/rentfolio/rentfolio-backend/pkg/redis"
)

// Services bundles everything the router mounts.
type Services struct {
	Auth          authsvc.Service
	Register      authsvc.RegisterService
	Properties    propertysvc.Service
	Inquiries     inquirysvc.Service
	Tenancy       tenancysvc.Service
	Billing       billingsvc.Service
	Subscriptions subssvc.Service
	Notifications notifsvc.Service
	Documents     docsvc.Service
}

// NewRouter assembles the full HTTP surface. Role gates are coarse here;
// per-record ownership checks live in the services.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	blacklist middleware.BlacklistChecker,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.FrontendURL),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	twoFactorPolicy := middleware.NewAuthRateLimitPolicy(
		"2fa",
		cfg.AuthRateLimit.TwoFAWindow,
		cfg.AuthRateLimit.TwoFAIPLimit,
		cfg.AuthRateLimit.TwoFAEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(dbP, redisClient, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.Login(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(twoFactorPolicy, redisClient, logg)).Post("/verify-2fa", controllers.VerifyTwoFactor(svcs.Auth, logg))
		r.Post("/refresh", controllers.Refresh(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/register", controllers.Register(svcs.Register, logg))
		r.Post("/verify-email", controllers.VerifyEmail(svcs.Register, logg))
	})

	// Public catalog. Only active listings are served here.
	r.Get("/api/v1/properties/active", controllers.ListActiveProperties(svcs.Properties, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, blacklist, logg))

		r.Post("/auth/logout", controllers.Logout(svcs.Auth, logg))

		// Any authenticated role. Ownership and participation checks happen
		// in the services.
		r.Get("/properties/{propertyID}", controllers.GetProperty(svcs.Properties, logg))
		r.Get("/properties/{propertyID}/units", controllers.ListUnits(svcs.Properties, logg))
		r.Get("/bills/{billID}", controllers.GetBill(svcs.Billing, logg))
		r.Get("/bills/{billID}/payments", controllers.ListBillPayments(svcs.Billing, logg))
		r.Get("/inquiries/{inquiryID}", controllers.GetInquiryThread(svcs.Inquiries, logg))
		r.Post("/inquiries/{inquiryID}/messages", controllers.AppendInquiryMessage(svcs.Inquiries, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(svcs.Notifications, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", controllers.UploadDocument(svcs.Documents, cfg.Uploads, logg))
			r.Get("/", controllers.ListMyDocuments(svcs.Documents, logg))
			r.Get("/{documentID}", controllers.DownloadDocument(svcs.Documents, logg))
			r.Delete("/{documentID}", controllers.DeleteDocument(svcs.Documents, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleTenant), logg))
			r.Post("/inquiries", controllers.StartInquiry(svcs.Inquiries, logg))
			r.Get("/inquiries", controllers.ListMyInquiries(svcs.Inquiries, logg))
			r.Get("/tenancies", controllers.ListMyTenancies(svcs.Tenancy, logg))
			r.Get("/bills", controllers.ListMyBills(svcs.Billing, logg))
			r.Post("/bills/{billID}/payments", controllers.SubmitPayment(svcs.Billing, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleManager), logg))
			r.Post("/properties", controllers.CreateProperty(svcs.Properties, logg))
			r.Patch("/properties/{propertyID}", controllers.UpdateProperty(svcs.Properties, logg))
			r.Get("/properties", controllers.ListMyProperties(svcs.Properties, logg))
			r.Post("/properties/{propertyID}/units", controllers.CreateUnit(svcs.Properties, logg))
			r.Patch("/units/{unitID}", controllers.UpdateUnit(svcs.Properties, logg))

			r.Get("/manager/inquiries", controllers.ListManagerInquiries(svcs.Inquiries, logg))
			r.Post("/inquiries/{inquiryID}/read", controllers.MarkInquiryRead(svcs.Inquiries, logg))
			r.Post("/inquiries/{inquiryID}/respond", controllers.RespondToInquiry(svcs.Inquiries, logg))
			r.Post("/inquiries/{inquiryID}/status", controllers.UpdateInquiryStatus(svcs.Inquiries, logg))

			r.Post("/tenancies/assign", controllers.AssignTenancy(svcs.Tenancy, logg))
			r.Get("/properties/{propertyID}/tenancies", controllers.ListPropertyTenancies(svcs.Tenancy, logg))

			r.Post("/bills", controllers.CreateBill(svcs.Billing, logg))
			r.Get("/properties/{propertyID}/bills", controllers.ListPropertyBills(svcs.Billing, logg))

			r.Route("/subscriptions", func(r chi.Router) {
				r.Post("/", controllers.Subscribe(svcs.Subscriptions, logg))
				r.Get("/me", controllers.MySubscription(svcs.Subscriptions, logg))
				r.Get("/bills", controllers.ListMySubscriptionBills(svcs.Subscriptions, logg))
				r.Post("/transactions", controllers.SubmitTransaction(svcs.Subscriptions, logg))
				r.Get("/transactions", controllers.ListMyTransactions(svcs.Subscriptions, logg))
			})
		})

		// Payment verification is open to the property manager and admins.
		r.With(middleware.RequireAnyRole(logg, string(enums.UserRoleManager), string(enums.UserRoleAdmin))).
			Post("/payments/{paymentID}/verify", controllers.VerifyPayment(svcs.Billing, logg))

		r.With(middleware.RequireAnyRole(logg, string(enums.UserRoleManager), string(enums.UserRoleAdmin))).
			Get("/plans", controllers.ListPlans(svcs.Subscriptions, logg))
		r.With(middleware.RequireAnyRole(logg, string(enums.UserRoleManager), string(enums.UserRoleAdmin))).
			Get("/plans/{planID}", controllers.GetPlan(svcs.Subscriptions, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
			r.Get("/admin/properties/pending", controllers.ListPendingProperties(svcs.Properties, logg))
			r.Post("/properties/{propertyID}/review", controllers.ReviewProperty(svcs.Properties, logg))
			r.Post("/plans", controllers.CreatePlan(svcs.Subscriptions, logg))
			r.Patch("/plans/{planID}", controllers.UpdatePlan(svcs.Subscriptions, logg))
			r.Get("/admin/transactions/pending", controllers.ListPendingTransactions(svcs.Subscriptions, logg))
			r.Post("/transactions/{transactionID}/verify", controllers.VerifyTransaction(svcs.Subscriptions, logg))
		})
	})

	return r
}
