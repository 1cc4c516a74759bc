package database

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/MrEdHardy/schleuben/component"
	"github.com/MrEdHardy/schleuben/entity"
	"github.com/MrEdHardy/schleuben/errors"
	"github.com/MrEdHardy/schleuben/logger"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	comp := NewComponent(Config{DSN: ":memory:", AutoMigrate: true, LogLevel: "silent"}, logger.Nop()).
		WithAutoMigrate(entity.Models()...)
	if err := comp.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { _ = comp.Stop(context.Background()) })
	return NewRepository(comp.DB())
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.MaxOpenConns != 1 || cfg.LogLevel != "warn" || cfg.MaxRetries != 3 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing dsn", func(c *Config) { c.DSN = "" }},
		{"idle over open", func(c *Config) { c.MaxIdleConns = 5 }},
		{"bad lifetime", func(c *Config) { c.ConnMaxLifetime = "soon" }},
		{"bad slow threshold", func(c *Config) { c.SlowQueryThreshold = "x" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestWithForeignKeys(t *testing.T) {
	tests := map[string]string{
		":memory:":                 ":memory:?_foreign_keys=on",
		"data.db?cache=shared":     "data.db?cache=shared&_foreign_keys=on",
		"data.db?_foreign_keys=on": "data.db?_foreign_keys=on",
	}
	for in, want := range tests {
		if got := withForeignKeys(in); got != want {
			t.Errorf("withForeignKeys(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	comp := NewComponent(Config{DSN: ":memory:", LogLevel: "silent"}, logger.Nop())
	ctx := context.Background()

	if h := comp.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("Health() before Start = %s, want unhealthy", h.Status)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Errorf("Stop() before Start = %v", err)
	}
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if comp.DB() == nil {
		t.Fatal("DB() should not be nil after Start")
	}
	if h := comp.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("Health() = %s (%s), want healthy", h.Status, h.Message)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if err := comp.DB().Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
}

func TestComponent_StartCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	comp := NewComponent(Config{DSN: ":memory:"}, logger.Nop())
	if err := comp.Start(ctx); err == nil {
		t.Error("Start() with canceled context should fail")
	}
}

func TestComponent_Describe(t *testing.T) {
	comp := NewComponent(Config{DSN: "people.db", AutoMigrate: true, Tracing: true}, logger.Nop())
	want := "sqlite people.db pool=1/1 auto-migrate=on tracing=on"
	if got := comp.Describe(); got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
}

func TestComponent_RepositoryBeforeStart(t *testing.T) {
	comp := NewComponent(Config{DSN: ":memory:", AutoMigrate: true, LogLevel: "silent"}, logger.Nop()).
		WithAutoMigrate(entity.Models()...)
	repo := comp.Repository()

	ctx := context.Background()
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { _ = comp.Stop(ctx) })

	people, err := repo.ListPeople(ctx)
	if err != nil {
		t.Fatalf("ListPeople() error = %v", err)
	}
	if people == nil || len(people) != 0 {
		t.Errorf("ListPeople() = %#v, want an empty list", people)
	}
}

func TestRepository_PersonCRUD(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	birth := entity.NewDate(1815, time.December, 10)
	created, err := repo.CreatePerson(ctx, &entity.Person{ID: 99, FirstName: "Ada", LastName: "Lovelace", BirthDate: &birth})
	if err != nil {
		t.Fatalf("CreatePerson() error = %v", err)
	}
	if created.ID == 0 || created.ID == 99 {
		t.Fatalf("CreatePerson() should assign a fresh id, got %d", created.ID)
	}

	got, err := repo.GetPerson(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPerson() error = %v", err)
	}
	if got.LastName != "Lovelace" || got.BirthDate == nil || got.BirthDate.String() != "1815-12-10" {
		t.Errorf("GetPerson() = %+v", got)
	}

	got.LastName = "King"
	got.BirthDate = nil
	if err := repo.UpdatePerson(ctx, got); err != nil {
		t.Fatalf("UpdatePerson() error = %v", err)
	}
	people, err := repo.ListPeople(ctx)
	if err != nil {
		t.Fatalf("ListPeople() error = %v", err)
	}
	if len(people) != 1 || people[0].LastName != "King" || people[0].BirthDate != nil {
		t.Errorf("ListPeople() = %+v", people)
	}

	if err := repo.DeletePerson(ctx, created.ID); err != nil {
		t.Fatalf("DeletePerson() error = %v", err)
	}
	if _, err := repo.GetPerson(ctx, created.ID); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("GetPerson() after delete = %v, want NOT_FOUND", err)
	}
}

func TestRepository_GetPersonNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetPerson(context.Background(), 42)
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.HTTPStatus != 404 {
		t.Errorf("HTTPStatus = %d, want 404", appErr.HTTPStatus)
	}
	if appErr.Message != "No person with given id 42 was found!" {
		t.Errorf("Message = %q", appErr.Message)
	}
	if appErr.Code != errors.ErrCodeNotFound || appErr.Details["resource"] != resourcePerson || appErr.Details["id"] != "42" {
		t.Errorf("Code/Details = %s/%v", appErr.Code, appErr.Details)
	}
}

func TestRepository_UpdateMissing(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.UpdatePerson(context.Background(), &entity.Person{ID: 7, FirstName: "A", LastName: "B"})
	if !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("UpdatePerson() on missing id = %v, want NOT_FOUND", err)
	}
	people, _ := repo.ListPeople(context.Background())
	if len(people) != 0 {
		t.Errorf("update of a missing id must not insert, got %d people", len(people))
	}
}

func TestRepository_DeletePersonWithChildren(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	p, err := repo.CreatePerson(ctx, &entity.Person{FirstName: "Alan", LastName: "Turing"})
	if err != nil {
		t.Fatal(err)
	}
	phone, err := repo.CreateTelephoneConnection(ctx, &entity.TelephoneConnection{PhoneNumber: "+44 1", PersonID: p.ID})
	if err != nil {
		t.Fatalf("CreateTelephoneConnection() error = %v", err)
	}

	err = repo.DeletePerson(ctx, p.ID)
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.HTTPStatus != 400 {
		t.Fatalf("DeletePerson() with children = %v, want 400", err)
	}
	if appErr.Message != MsgPersonHasChildren {
		t.Errorf("Message = %q", appErr.Message)
	}

	loaded, err := repo.GetPerson(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.TelephoneConnections) != 1 {
		t.Errorf("GetPerson() should preload phones, got %+v", loaded.TelephoneConnections)
	}

	if err := repo.DeleteTelephoneConnection(ctx, phone.ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeletePerson(ctx, p.ID); err != nil {
		t.Errorf("DeletePerson() after removing children = %v", err)
	}
}

func TestRepository_DeleteMissingIsNoop(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.DeletePerson(ctx, 1234); err != nil {
		t.Errorf("DeletePerson() on missing id = %v", err)
	}
	if err := repo.DeleteAddress(ctx, 1234); err != nil {
		t.Errorf("DeleteAddress() on missing id = %v", err)
	}
}

func TestRepository_AddressCRUD(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	p, err := repo.CreatePerson(ctx, &entity.Person{FirstName: "Emmy", LastName: "Noether"})
	if err != nil {
		t.Fatal(err)
	}
	info := "Hinterhaus"
	a, err := repo.CreateAddress(ctx, &entity.Address{
		Street: "Bunsenstr.", HouseNumber: "3", City: "Göttingen", ZipCode: "37073",
		AdditionalInfo: &info, PersonID: p.ID,
	})
	if err != nil {
		t.Fatalf("CreateAddress() error = %v", err)
	}

	a.City = "Erlangen"
	if err := repo.UpdateAddress(ctx, a); err != nil {
		t.Fatalf("UpdateAddress() error = %v", err)
	}
	got, err := repo.GetAddress(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.City != "Erlangen" || got.AdditionalInfo == nil || *got.AdditionalInfo != info {
		t.Errorf("GetAddress() = %+v", got)
	}

	all, err := repo.ListAddresses(ctx)
	if err != nil || len(all) != 1 {
		t.Errorf("ListAddresses() = %v, %v", all, err)
	}
	if err := repo.DeleteAddress(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetAddress(ctx, a.ID); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("GetAddress() after delete = %v", err)
	}
}

func TestRepository_AddressForUnknownPerson(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.CreateAddress(context.Background(), &entity.Address{
		Street: "Nowhere", HouseNumber: "0", City: "X", ZipCode: "0", PersonID: 404,
	})
	if !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("CreateAddress() for unknown person = %v, want INVALID_INPUT", err)
	}
}

func TestRepository_TelephoneConnections(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	p, err := repo.CreatePerson(ctx, &entity.Person{FirstName: "Konrad", LastName: "Zuse"})
	if err != nil {
		t.Fatal(err)
	}
	tc, err := repo.CreateTelephoneConnection(ctx, &entity.TelephoneConnection{PhoneNumber: "030 1", PersonID: p.ID})
	if err != nil {
		t.Fatal(err)
	}
	tc.PhoneNumber = "030 2"
	if err := repo.UpdateTelephoneConnection(ctx, tc); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetTelephoneConnection(ctx, tc.ID)
	if err != nil || got.PhoneNumber != "030 2" {
		t.Errorf("GetTelephoneConnection() = %+v, %v", got, err)
	}
	all, err := repo.ListTelephoneConnections(ctx)
	if err != nil || len(all) != 1 {
		t.Errorf("ListTelephoneConnections() = %v, %v", all, err)
	}
	if err := repo.UpdateTelephoneConnection(ctx, &entity.TelephoneConnection{PhoneNumber: "1", PersonID: p.ID}); !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("UpdateTelephoneConnection() without id = %v, want INVALID_INPUT", err)
	}
}

func TestFromDatabase_PassesAppErrorThrough(t *testing.T) {
	in := errors.Conflict("busy")
	if got := FromDatabase(in, resourcePerson, "1"); got != in {
		t.Errorf("FromDatabase() = %v, want the same AppError", got)
	}
	if FromDatabase(nil, resourcePerson, "1") != nil {
		t.Error("FromDatabase(nil) should be nil")
	}
}

func TestQueryLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"ERROR", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"", gormlogger.Info},
	}
	for _, tt := range tests {
		if got := queryLogLevel(tt.in); got != tt.want {
			t.Errorf("queryLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestQueryLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "debug", Format: "json", Writer: &buf}, "database-service")
	q := newQueryLogger(log, 10*time.Millisecond, gormlogger.Warn)
	ctx := logger.ContextWithRequestID(context.Background(), "req-1")
	stmt := func() (string, int64) { return "SELECT * FROM people", 0 }

	q.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	q.Trace(ctx, time.Now(), stmt, nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output for a missing record or a fast statement, got %q", buf.String())
	}

	q.Trace(ctx, time.Now(), stmt, stderrors.New("disk I/O error"))
	out := buf.String()
	if !strings.Contains(out, "Statement failed") || !strings.Contains(out, "req-1") {
		t.Errorf("failed statement log = %q", out)
	}

	buf.Reset()
	q.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	if !strings.Contains(buf.String(), "Slow statement") {
		t.Errorf("slow statement log = %q", buf.String())
	}

	buf.Reset()
	q.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), stmt, stderrors.New("boom"))
	if buf.Len() != 0 {
		t.Errorf("silent mode logged %q", buf.String())
	}
}
