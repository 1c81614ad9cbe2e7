package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"portfolio-serverless/internal/adminui"
	"portfolio-serverless/internal/auth"
	"portfolio-serverless/internal/blog"
	"portfolio-serverless/internal/contact"
	"portfolio-serverless/internal/db"
	"portfolio-serverless/internal/mail"
	"portfolio-serverless/internal/maintenance"
	"portfolio-serverless/internal/media"
	"portfolio-serverless/internal/observability"
	"portfolio-serverless/internal/queue"
	"portfolio-serverless/internal/review"
)

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Close   func() error
}

// Build wires the whole application from the environment and returns the root
// handler. It is shared by the local server and the serverless entrypoint.
func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	logger := observability.NewLogger(os.Stdout)

	environment := envOrDefault("APP_ENV", "development")
	production := environment == "production"

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return nil, err
	}

	appURL := envOrDefault("APP_URL", "http://localhost:3000")
	baseURL, err := url.Parse(appURL)
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid APP_URL: %q", appURL)
	}

	if err := observability.InitSentry(os.Getenv("SENTRY_DSN"), environment, os.Getenv("APP_RELEASE")); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	database, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(envIntOrDefault("DB_MAX_OPEN_CONNS", 10))
	database.SetMaxIdleConns(envIntOrDefault("DB_MAX_IDLE_CONNS", 5))
	database.SetConnMaxLifetime(envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30))
	database.SetConnMaxIdleTime(envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10))

	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if options.RunMigrations {
		applied, err := db.RunMigrations(database)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		if applied > 0 {
			logger.Info("migrations_applied", map[string]any{"count": applied})
		}
	}

	credentials := auth.NewCredentials(
		os.Getenv("ADMIN_USERNAME"),
		os.Getenv("ADMIN_PASSWORD"),
		os.Getenv("ADMIN_PASSWORD_BCRYPT"),
		os.Getenv("ADMIN_SECRET"),
		production,
	)
	for _, problem := range credentials.Validate() {
		logger.Warn("admin_credentials_problem", map[string]any{"problem": problem})
	}

	tokens := auth.NewTokenService(
		credentials.Secret,
		envHoursOrDefault("ADMIN_TOKEN_TTL_HOURS", 24),
		production,
	)

	attempts, closeAttempts, err := buildAttemptStore(logger)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	authHandler := auth.NewHandler(credentials, tokens, attempts, baseURL, "/admin")
	guardConfig := auth.DefaultGuardConfig(baseURL)

	blogHandler := blog.NewHandler(blog.NewRepository(database))
	reviewRepo := review.NewRepository(database)
	reviewHandler := review.NewHandler(reviewRepo)

	mediaHandler, err := buildMediaHandler()
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	mailer, err := buildMailer(appURL, production)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	publisher, err := buildPublisher(mailer, appURL)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	contactHandler := contact.NewHandler(publisher)
	var workerMailer contact.Mailer
	if mailer != nil {
		workerMailer = mailer
	}
	emailWorker := contact.NewWorker(workerMailer, os.Getenv("EMAIL_WORKER_SECRET"))

	cleanupHandler := maintenance.NewCleanupHandler(
		attempts,
		reviewRepo,
		logger,
		os.Getenv("CRON_SECRET"),
		envDaysOrDefault("REVIEW_RETENTION_DAYS", 30),
		envIntOrDefault("MAINTENANCE_BATCH_SIZE", 500),
	)

	adminPages, err := adminui.NewHandler()
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("init admin pages: %w", err)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/auth/session", authHandler.Session)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)

	mux.HandleFunc("GET /api/blog", blogHandler.ListPublished)
	mux.HandleFunc("GET /api/blog/{slug}", blogHandler.GetBySlug)
	mux.HandleFunc("GET /api/blog/{slug}/reviews", reviewHandler.ListForPost)
	mux.HandleFunc("POST /api/blog/{slug}/reviews", reviewHandler.Submit)

	mux.HandleFunc("POST /api/contact", contactHandler.Submit)
	mux.HandleFunc("POST /api/email-worker", emailWorker.Handle)

	mux.HandleFunc("GET /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("POST /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("GET /health", healthHandler(database))

	mux.HandleFunc("GET /admin", adminPages.Dashboard)
	mux.HandleFunc("GET /admin/login", adminPages.Login)
	mux.HandleFunc("GET /admin/api/posts", blogHandler.ListAll)
	mux.HandleFunc("POST /admin/api/posts", blogHandler.Create)
	mux.HandleFunc("PUT /admin/api/posts/{id}", blogHandler.Update)
	mux.HandleFunc("DELETE /admin/api/posts/{id}", blogHandler.Delete)
	mux.HandleFunc("GET /admin/api/reviews", reviewHandler.ListAll)
	mux.HandleFunc("POST /admin/api/reviews/{id}/approve", reviewHandler.Approve)
	mux.HandleFunc("DELETE /admin/api/reviews/{id}", reviewHandler.Delete)
	mux.HandleFunc("POST /admin/api/media", mediaHandler.Upload)
	mux.HandleFunc("DELETE /admin/api/media", mediaHandler.Delete)

	handler := auth.Guard(tokens, guardConfig, mux)
	handler = observability.RecoverMiddleware(logger, observability.RequestLoggingMiddleware(logger, handler))

	return &Runtime{
		Handler: handler,
		Close: func() error {
			observability.FlushSentry()
			if closeAttempts != nil {
				_ = closeAttempts()
			}
			return database.Close()
		},
	}, nil
}

// buildAttemptStore prefers a shared Redis store when REDIS_URL is set so
// limits hold across serverless instances; otherwise each instance keeps its
// own in-memory counts.
func buildAttemptStore(logger *observability.Logger) (auth.AttemptStore, func() error, error) {
	maxAttempts := envIntOrDefault("LOGIN_MAX_ATTEMPTS", 5)
	window := envMinutesOrDefault("LOGIN_WINDOW_MINUTES", 15)

	redisURL := strings.TrimSpace(os.Getenv("REDIS_URL"))
	if redisURL == "" {
		return auth.NewMemoryAttemptStore(maxAttempts, window), nil, nil
	}

	store, err := auth.NewRedisAttemptStore(redisURL, maxAttempts, window)
	if err != nil {
		return nil, nil, fmt.Errorf("init redis attempt store: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("login_rate_limit_backed_by_redis", nil)
	return store, store.Close, nil
}

func buildMediaHandler() (*media.Handler, error) {
	cloudinaryURL := strings.TrimSpace(os.Getenv("CLOUDINARY_URL"))
	if cloudinaryURL == "" {
		return media.NewHandler(nil), nil
	}

	client, err := media.NewCloudinary(cloudinaryURL, envOrDefault("CLOUDINARY_FOLDER", "blog"))
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return media.NewHandler(client), nil
}

// buildMailer requires an explicit SMTP host in production. Development
// falls back to a localhost relay (mailpit and friends) so the contact flow
// works out of the box.
func buildMailer(appURL string, production bool) (*mail.Mailer, error) {
	host := strings.TrimSpace(os.Getenv("EMAIL_HOST"))
	from := strings.TrimSpace(os.Getenv("EMAIL_FROM"))
	port := envIntOrDefault("EMAIL_PORT", 587)
	if host == "" {
		if production {
			return nil, nil
		}
		host = "localhost"
		port = envIntOrDefault("EMAIL_PORT", 1025)
		if from == "" && strings.TrimSpace(os.Getenv("EMAIL_USER")) == "" {
			from = "portfolio@localhost"
		}
	}

	mailer, err := mail.NewMailer(mail.Config{
		Host:     host,
		Port:     port,
		Username: os.Getenv("EMAIL_USER"),
		Password: os.Getenv("EMAIL_PASS"),
		From:     from,
		Receiver: os.Getenv("EMAIL_RECEIVER"),
		SiteURL:  appURL,
	})
	if err != nil {
		return nil, fmt.Errorf("init mailer: %w", err)
	}
	return mailer, nil
}

// buildPublisher picks the contact delivery path: QStash when a token is
// configured, direct SMTP otherwise. A nil publisher disables the contact
// endpoint.
func buildPublisher(mailer *mail.Mailer, appURL string) (contact.Publisher, error) {
	qstashToken := strings.TrimSpace(os.Getenv("QSTASH_TOKEN"))
	if qstashToken != "" {
		workerURL := strings.TrimRight(appURL, "/") + "/api/email-worker"
		publisher, err := queue.NewQStash(qstashToken, workerURL, os.Getenv("EMAIL_WORKER_SECRET"))
		if err != nil {
			return nil, fmt.Errorf("init qstash publisher: %w", err)
		}
		return publisher, nil
	}

	if mailer != nil {
		return contact.NewDirectDispatcher(mailer), nil
	}
	return nil, nil
}

func healthHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func mustEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envHoursOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Hour
}

func envDaysOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * 24 * time.Hour
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
