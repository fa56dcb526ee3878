package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/Gardusio/coach-client/internal/auth"
	"github.com/Gardusio/coach-client/internal/config"
	"github.com/Gardusio/coach-client/internal/crypto"
	"github.com/Gardusio/coach-client/internal/fitbit"
	"github.com/Gardusio/coach-client/internal/handler"
	"github.com/Gardusio/coach-client/internal/logging"
	"github.com/Gardusio/coach-client/internal/metrics"
	"github.com/Gardusio/coach-client/internal/secret"
	"github.com/Gardusio/coach-client/internal/session"
	"github.com/Gardusio/coach-client/internal/store"
)

const devSessionSecret = "default-dev-secret"

// App holds the dependencies for the Lambda function.
type App struct {
	cfg      *config.Config
	logger   logging.Logger
	sessions *session.Resolver

	authHandler    *handler.AuthHandler
	proxyHandler   *handler.ProxyHandler
	metricsHandler *handler.MetricsHandler

	originSecret string
}

// NewApp loads the configuration and initializes the application
// dependencies. It panics when they cannot be built.
func NewApp(ctx context.Context, configPath string) *App {
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("unable to load config, %v", err))
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	app, err := Build(ctx, cfg, logger)
	if err != nil {
		panic(fmt.Sprintf("unable to build app, %v", err))
	}
	return app
}

// Build wires every component for cfg. AWS clients are only created when the
// configuration needs them.
func Build(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
		}
		awsCfg = &c
		return c, nil
	}

	// ---------- Secret Resolver ----------
	var resolver secret.Resolver
	if cfg.IsDevelopment() {
		resolver = secret.NewEnvResolver()
		logger.Info(ctx, "using environment secrets", "environment", cfg.Environment)
	} else {
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(c))
	}

	clientSecret, err := secret.GetOrDefault(ctx, resolver, cfg.Fitbit.ClientSecretParam, "")
	if err != nil && cfg.Fitbit.Confidential() {
		logger.Warn(ctx, "fitbit client secret unavailable, using public client auth", "error", err)
	}

	sessionSecret, err := secret.GetOrDefault(ctx, resolver, cfg.Session.SecretParam, "")
	if sessionSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("session secret is required: %w", err)
		}
		logger.Warn(ctx, "session secret unavailable, using development default", "error", err)
		sessionSecret = devSessionSecret
	}

	originSecret, err := secret.GetOrDefault(ctx, resolver, cfg.Session.OriginVerifyParam, "")
	if err != nil && !cfg.IsDevelopment() {
		logger.Warn(ctx, "origin verify secret unavailable", "error", err)
	}

	// ---------- Encryption ----------
	var enc crypto.Encryptor
	if cfg.IsDevelopment() {
		enc = crypto.NewMockEncryptor()
		logger.Info(ctx, "using mock encryptor")
	} else {
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		enc = crypto.NewKMSService(kms.NewFromConfig(c), cfg.Store.KMSKeyID)
	}

	// ---------- Storage ----------
	var (
		kv     store.KV
		locker session.Locker
	)
	switch cfg.Store.Backend {
	case config.BackendDynamoDB:
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		client := dynamodb.NewFromConfig(c)
		kv = store.NewDynamoKV(client, cfg.Store.TokensTable)
		locker = session.NewLockManager(client, cfg.Store.LocksTable, cfg.Session.RefreshLockTimeout)
	case config.BackendRedis:
		rkv, err := store.NewRedisKV(cfg.Store.RedisURL)
		if err != nil {
			return nil, err
		}
		kv = rkv
		locker = session.NewRedisLocker(rkv.Client(), cfg.Session.RefreshLockTimeout)
	default:
		kv = store.NewMemoryKV()
		locker = session.NewMemoryLocker(cfg.Session.RefreshLockTimeout)
	}
	logger.Info(ctx, "session store ready", "backend", cfg.Store.Backend)

	tokens := store.NewTokenStore(kv, enc, cfg.Session.TokenTTL, cfg.Session.PendingTTL)

	// ---------- Services ----------
	authService := auth.NewService(cfg.Fitbit, clientSecret, tokens, locker, logger,
		auth.WithRefreshWait(cfg.Session.RefreshLockTimeout))
	client := fitbit.NewClient(cfg.Fitbit.APIBaseURL, authService, nil, logger)
	aggregator := metrics.NewAggregator(client, cfg.Metrics, logger)

	return &App{
		cfg:            cfg,
		logger:         logger,
		sessions:       session.NewResolver(cfg.Session.CookieName, sessionSecret, cfg.Session.MaxAge, !cfg.IsDevelopment()),
		authHandler:    handler.NewAuthHandler(authService, cfg.FrontendURL, logger),
		proxyHandler:   handler.NewProxyHandler(client, logger),
		metricsHandler: handler.NewMetricsHandler(aggregator, logger),
		originSecret:   originSecret,
	}, nil
}

type route func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := req.Path
	method := req.HTTPMethod

	app.logger.Debug(ctx, "request", "method", method, "path", path)

	// CORS Preflight
	if method == http.MethodOptions {
		return app.corsResponse(events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}), nil
	}

	// Only CloudFront knows the origin secret.
	if !app.cfg.IsDevelopment() {
		if app.originSecret == "" || handler.GetHeader(req, "X-Origin-Verify") != app.originSecret {
			app.logger.Warn(ctx, "missing or invalid X-Origin-Verify header", "path", path)
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusForbidden,
				Body:       "Forbidden: Access denied",
			}, nil
		}
	}

	// Strip /api prefix if present (for CloudFront proxying)
	path = strings.TrimPrefix(path, "/api")

	if req.PathParameters == nil {
		req.PathParameters = make(map[string]string)
	}

	if path == "/health" && method == http.MethodGet {
		return app.corsResponse(handler.JSONResponse(http.StatusOK, map[string]bool{"ok": true})), nil
	}

	h := app.match(method, path, &req)
	if h == nil {
		return app.corsResponse(events.APIGatewayProxyResponse{
			StatusCode: http.StatusNotFound,
			Body:       fmt.Sprintf("Not Found: %s %s", method, path),
		}), nil
	}

	sid, setCookie, err := app.sessions.Resolve(req)
	if err != nil {
		app.logger.Error(ctx, "failed to resolve session", "error", err)
		return app.corsResponse(handler.ErrorResponse(http.StatusInternalServerError, "Internal Server Error")), nil
	}

	hresp, herr := h(handler.WithSession(ctx, sid), req)
	resp := app.must(ctx, hresp, herr)
	if setCookie != "" {
		if resp.Headers == nil {
			resp.Headers = make(map[string]string)
		}
		resp.Headers["Set-Cookie"] = setCookie
	}
	return app.corsResponse(resp), nil
}

func (app *App) match(method, path string, req *events.APIGatewayProxyRequest) route {
	switch {
	case path == "/auth/fitbit/login" && method == http.MethodGet:
		return app.authHandler.Login
	case path == "/auth/fitbit/callback" && method == http.MethodGet:
		return app.authHandler.Callback
	case path == "/fitbit/token/exchange" && method == http.MethodPost:
		return app.authHandler.Exchange
	case path == "/fitbit/token/refresh" && method == http.MethodPost:
		return app.authHandler.Refresh
	case path == "/fitbit/token/revoke" && method == http.MethodPost:
		return app.authHandler.Revoke
	case path == "/fitbit/session" && method == http.MethodGet:
		return app.authHandler.Session
	case path == "/fitbit/metrics" && method == http.MethodGet:
		return app.metricsHandler.GetMetrics
	case strings.HasPrefix(path, "/fitbit/proxy/") || path == "/fitbit/proxy":
		req.PathParameters["path"] = strings.TrimPrefix(strings.TrimPrefix(path, "/fitbit/proxy"), "/")
		return app.proxyHandler.Proxy
	}
	return nil
}

// corsResponse adds CORS headers to an API Gateway response.
func (app *App) corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = app.cfg.FrontendURL
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,PUT,DELETE,OPTIONS,PATCH"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"
	return resp
}

// must unwraps a handler response, logging the error.
func (app *App) must(ctx context.Context, resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		app.logger.Error(ctx, "handler error", "error", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	return resp
}
