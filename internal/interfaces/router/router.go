package router

import (
	"net/http"

	authsvc "ngoconnect-backend/internal/application/auth"
	donsvc "ngoconnect-backend/internal/application/donations"
	emailsvc "ngoconnect-backend/internal/application/emails"
	notifsvc "ngoconnect-backend/internal/application/notifications"
	uploadsvc "ngoconnect-backend/internal/application/uploads"
	"ngoconnect-backend/internal/config"
	"ngoconnect-backend/internal/constants"
	"ngoconnect-backend/internal/infrastructure/database"
	authhandler "ngoconnect-backend/internal/interfaces/handlers/auth"
	donhandler "ngoconnect-backend/internal/interfaces/handlers/donations"
	healthhandler "ngoconnect-backend/internal/interfaces/handlers/health"
	notifhandler "ngoconnect-backend/internal/interfaces/handlers/notifications"
	payhandler "ngoconnect-backend/internal/interfaces/handlers/payments"
	uploadhandler "ngoconnect-backend/internal/interfaces/handlers/uploads"
	"ngoconnect-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	// Registered before the session middleware so nothing consumes the raw body.
	stripeWebhook := &payhandler.WebhookHandler{WebhookSecret: cfg.StripeWebhookSecret}
	app.Post("/api/v1/stripe/webhook", func(c *fiber.Ctx) error {
		return stripeWebhook.HandleWebhook(c)
	})

	sessionHandler, redisClient, err := middleware.Session(middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	})
	if err != nil {
		return nil, nil, nil, err
	}
	rdb := redisClient
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.ResponseFormatter())
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.RateLimit(rdb, cfg.RateLimitPerMinute))

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		DB:             nil,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var errDB error
		db, errDB = database.Open(cfg.DatabaseURL)
		if errDB != nil {
			return nil, nil, nil, errDB
		}
		hh.DB = &gormDBPinger{db: db}
	}

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}

	var emailSender emailsvc.Sender
	if cfg.SendinblueAPIKey != "" {
		emailSender = &emailsvc.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom}
	}

	var userFinder authsvc.UserFinder
	if db != nil {
		userFinder = &authsvc.GormUserFinder{DB: db}
	}
	ah := &authhandler.Handlers{
		DB:         db,
		UserFinder: userFinder,
		Rdb:        rdb,
		Config:     sessionCfg,
		Emails:     emailSender,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/register", ah.Register)
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	if db != nil {
		stripeWebhook.DB = db
	}

	if db != nil && rdb != nil {
		// Image storage
		sc := &uploadsvc.HTTPClient{BaseURL: cfg.SupabaseURL, SecretKey: cfg.SupabaseSecretKey}
		blobs := &uploadsvc.Service{Client: sc, SupabaseURL: cfg.SupabaseURL, Bucket: cfg.SupabaseBucket}

		// Notifications (in-app rows + Brevo emails, fire-and-forget)
		ns := &notifsvc.Service{DB: db, Emails: emailSender}

		// Donations
		ds := &donsvc.Service{DB: db, Blobs: blobs, Notifier: ns}
		dh := &donhandler.Handlers{Service: ds}
		// Public browse endpoint: no session required.
		app.Get("/api/v1/donations/search", dh.SearchDonations)
		dg := app.Group("/api/v1/donations", middleware.RequireAuth())
		dg.Post("/create-donation", middleware.AuthorizePermission(constants.CreateDonation), dh.CreateDonation)
		dg.Get("/my-donations", dh.GetMyDonations)
		dg.Get("/accepted-donations", dh.GetAcceptedDonations)
		dg.Get("/get-donation/:donation_id", dh.GetDonation)
		dg.Get("/timeline/:donation_id", dh.GetTimeline)
		dg.Put("/update-donation/:donation_id", middleware.AuthorizePermission(constants.EditDonation), dh.UpdateDonation)
		dg.Delete("/delete-donation/:donation_id", middleware.AuthorizePermission(constants.DeleteDonation), dh.DeleteDonation)
		// Status transitions are role-mixed (accept is NGO, cancel is donor,
		// complete is either side); the service enforces the actor rules.
		dg.Patch("/update-status/:donation_id", dh.UpdateStatus)
		dg.Post("/reject/:donation_id", middleware.AuthorizePermission(constants.RejectDonation), dh.RejectDonation)

		// Uploads
		uph := &uploadhandler.Handlers{Service: blobs}
		upg := app.Group("/api/v1/uploads", middleware.RequireAuth())
		upg.Post("/donation-image", uph.UploadDonationImage)
		upg.Delete("/donation-image", uph.DeleteDonationImage)

		// Notifications
		nh := &notifhandler.Handlers{Service: ns}
		ng := app.Group("/api/v1/notifications", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ViewNotifications))
		ng.Get("/", nh.GetMyNotifications)
		ng.Patch("/:notification_id/read", nh.MarkRead)

		// Payments (financial donations)
		ph := &payhandler.Handlers{
			DB:            db,
			StripeCreator: &payhandler.RealStripeCreator{SecretKey: cfg.StripeSecretKey},
		}
		pg := app.Group("/api/v1/payments", middleware.RequireAuth())
		pg.Post("/create-intent", middleware.AuthorizePermission(constants.FundDonation), ph.CreateIntent)
	}

	return app, db, rdb, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
