package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func openServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Question{},
		&models.Task{},
		&models.Submission{},
		&models.SubmissionStatusHistory{},
	))
	return db
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.SubmissionEvent
}

func (p *recordingPublisher) Publish(event models.SubmissionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) snapshot() []models.SubmissionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.SubmissionEvent(nil), p.events...)
}

type recordingDispatcher struct {
	recordingPublisher
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, event models.SubmissionEvent) error {
	d.Publish(event)
	return nil
}

type serviceFixture struct {
	db          *gorm.DB
	repos       QueryRepositories
	submissions SubmissionService
	queries     QueryService
	events      *recordingPublisher
	dispatched  *recordingDispatcher
	clock       time.Time
}

func newServiceFixture(t *testing.T, cfg SubmissionConfig) *serviceFixture {
	t.Helper()
	db := openServiceDB(t)
	_, err := repository.NewSeedRepository(db).Load(context.Background(), DemoFixture())
	require.NoError(t, err)

	repos := QueryRepositories{
		Users:       repository.NewUserRepository(db),
		Questions:   repository.NewQuestionRepository(db),
		Tasks:       repository.NewTaskRepository(db),
		Submissions: repository.NewSubmissionRepository(db),
	}
	fixture := &serviceFixture{
		db:         db,
		repos:      repos,
		events:     &recordingPublisher{},
		dispatched: &recordingDispatcher{},
		clock:      time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
	}

	svc := NewSubmissionService(SubmissionRepositories{
		Submissions: repos.Submissions,
		Tasks:       repos.Tasks,
		Users:       repos.Users,
	}, validator.New(), fixture.events, fixture.dispatched, cfg, testLogger())
	svc.(*submissionService).now = func() time.Time { return fixture.clock }

	fixture.submissions = svc
	fixture.queries = NewQueryService(repos, nil, time.Minute, testLogger())
	return fixture
}

var (
	student1  = Actor{ID: "student1", Role: models.RoleStudent}
	student2  = Actor{ID: "student2", Role: models.RoleStudent}
	teacher1  = Actor{ID: "teacher1", Role: models.RoleTeacher}
	reviewer1 = Actor{ID: "reviewer1", Role: models.RoleReviewer}
)
