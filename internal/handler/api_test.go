package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/fumi-go-api/internal/config"
	"github.com/noah-isme/fumi-go-api/internal/database"
	"github.com/noah-isme/fumi-go-api/internal/handler"
	"github.com/noah-isme/fumi-go-api/internal/middleware"
	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/realtime"
	"github.com/noah-isme/fumi-go-api/internal/repository"
	"github.com/noah-isme/fumi-go-api/internal/router"
	"github.com/noah-isme/fumi-go-api/internal/service"
)

const testSecret = "handler-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type apiClient struct {
	t   *testing.T
	app *fiber.App
}

func setupAPI(t *testing.T, cfg service.SubmissionConfig) (*apiClient, *gorm.DB) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:api_"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	ctx := context.Background()
	_, err = repository.NewSeedRepository(db).Load(ctx, service.DemoFixture())
	require.NoError(t, err)

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	repos := service.QueryRepositories{
		Users:       repository.NewUserRepository(db),
		Questions:   repository.NewQuestionRepository(db),
		Tasks:       repository.NewTaskRepository(db),
		Submissions: repository.NewSubmissionRepository(db),
	}
	queries := service.NewQueryService(repos, nil, time.Minute, logger)
	catalog := service.NewCatalogService(repos, validate, nil, time.Minute, logger)
	hub := realtime.NewHub(nil, "", logger)
	submissions := service.NewSubmissionService(service.SubmissionRepositories{
		Submissions: repos.Submissions,
		Tasks:       repos.Tasks,
		Users:       repos.Users,
	}, validate, hub, nil, cfg, logger)

	app := fiber.New()
	appCfg := config.Config{AppName: "Fumi Test", AppEnv: "test", JWTSecret: testSecret}
	router.Register(app, appCfg, router.Dependencies{
		QuestionHandler:   handler.NewQuestionHandler(queries, catalog, logger),
		TaskHandler:       handler.NewTaskHandler(queries, catalog, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissions, queries, nil, logger),
		StreamHandler:     handler.NewStreamHandler(queries, hub, logger),
		JWTMiddleware:     middleware.JWTProtected(testSecret),
		HealthProbes: map[string]handler.HealthProbe{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		},
		ExposeMetrics: true,
	})

	return &apiClient{t: t, app: app}, db
}

func (a *apiClient) do(method, path, userID string, role models.Role, body interface{}) (int, envelope) {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		token, err := middleware.IssueToken(testSecret, userID, role, time.Minute)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var out envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(a.t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var value T
	require.NoError(t, json.Unmarshal(env.Data, &value))
	return value
}

func issue(t *testing.T, userID string, role models.Role) string {
	t.Helper()
	token, err := middleware.IssueToken(testSecret, userID, role, time.Minute)
	require.NoError(t, err)
	return token
}
