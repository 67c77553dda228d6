package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nclexkeys/backend/internal/config"
	"nclexkeys/backend/internal/model"
	"nclexkeys/backend/internal/repository"
	"nclexkeys/backend/pkg/clock"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// One connection keeps every caller on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	if err := model.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *recordingMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type codeFixture struct {
	db     *gorm.DB
	repo   repository.RegistrationCodeRepository
	tx     repository.Transactor
	clock  *clock.FakeClock
	mailer *recordingMailer
	svc    *registrationCodeService
}

func newCodeFixture(t *testing.T) *codeFixture {
	t.Helper()
	db := setupTestDB(t)
	f := &codeFixture{
		db:     db,
		repo:   repository.NewPGRegistrationCodeRepository(db),
		tx:     repository.NewTransactor(db),
		clock:  clock.NewFakeClock(testEpoch),
		mailer: &recordingMailer{},
	}
	f.svc = NewRegistrationCodeService(
		f.repo, f.tx, f.mailer, f.clock, zap.NewNop(), nil,
		config.RegistrationConfig{DefaultExpiryDays: 30, MaxBatchSize: 50},
	).(*registrationCodeService)
	return f
}
