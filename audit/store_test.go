package audit

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisAuditStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, "pa"), mr
}

func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	entries := []Entry{
		{ID: "01A", ActorID: "a", Action: "leave.create", Module: "leave", UnitID: "u1", Result: ResultSuccess, Severity: SeverityLow, CreatedAt: base},
		{ID: "01B", ActorID: "b", Action: "vehicle.update", Module: "vehicles", UnitID: "u2", Result: ResultFail, Severity: SeverityHigh, CreatedAt: base.Add(time.Second),
			Metadata: Metadata{Tags: []string{TagSuspicious}, Extra: map[string]any{"fields": []any{"plate"}}}},
		{ID: "01C", ActorID: "a", Action: "auth.login", Module: "auth", Result: ResultDenied, Severity: SeverityCritical, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("append %s: %v", e.ID, err)
		}
	}

	all, err := store.Candidates(ctx, Prefilter{})
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(all) != 3 || all[0].ID != "01A" || all[2].ID != "01C" {
		t.Fatalf("unexpected order: %+v", all)
	}
	if !all[1].Metadata.HasTag(TagSuspicious) {
		t.Fatalf("metadata lost: %+v", all[1].Metadata)
	}

	unit, err := store.Candidates(ctx, Prefilter{UnitID: "u2"})
	if err != nil {
		t.Fatalf("unit candidates: %v", err)
	}
	if len(unit) != 1 || unit[0].ID != "01B" {
		t.Fatalf("unit filter: %+v", unit)
	}

	actor, err := store.Candidates(ctx, Prefilter{ActorID: "a", From: base.Add(time.Second)})
	if err != nil {
		t.Fatalf("actor candidates: %v", err)
	}
	if len(actor) != 1 || actor[0].ID != "01C" {
		t.Fatalf("actor/from filter: %+v", actor)
	}
}

func TestMemoryStoreContract(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestRedisStoreContract(t *testing.T) {
	store, _ := newRedisAuditStore(t)
	storeContract(t, store)
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newRedisAuditStore(t)
	mr.Close()

	err := store.Append(context.Background(), Entry{ID: "x", CreatedAt: time.Now()})
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage on append, got %v", err)
	}
	_, err = store.Candidates(context.Background(), Prefilter{})
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage on read, got %v", err)
	}
}

func TestPostgresStoreInitIsIdempotentDDL(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	for i := 0; i < 2; i++ {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS audit_log")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS audit_log_created_idx")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS audit_log_unit_idx")).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	store := NewPostgresStore(db)
	for i := 0; i < 2; i++ {
		if err := store.Init(context.Background()); err != nil {
			t.Fatalf("init %d: %v", i, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStoreAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_log")).
		WithArgs("01A", "a", "leave.create", "leave", "LeaveRequest", "lr-1", nil, "10.0.0.1", nil,
			"SUCCESS", "LOW", []byte(`{"fields":"status"}`), nil, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewPostgresStore(db).Append(context.Background(), Entry{
		ID: "01A", ActorID: "a", Action: "leave.create", Module: "leave", EntityType: "LeaveRequest", EntityID: "lr-1",
		IP: "10.0.0.1", Result: ResultSuccess, Severity: SeverityLow,
		Metadata:  Metadata{Extra: map[string]any{"fields": "status"}},
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStoreAppendFailureIsStorageError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_log")).WillReturnError(errors.New("connection reset"))

	err = NewPostgresStore(db).Append(context.Background(), Entry{ID: "x", CreatedAt: time.Now()})
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestPostgresStoreCandidates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	cols := []string{"id", "actor_id", "action", "module", "entity_type", "entity_id", "unit_id", "ip", "user_agent",
		"result", "severity", "metadata", "correlation_id", "created_at"}
	rows := sqlmock.NewRows(cols).
		AddRow("01A", "a", "vehicle.update", "vehicles", "Vehicle", "v-1", "u1", "10.0.0.1", nil,
			"FAIL", "HIGH", []byte(`{"tags":["suspicious"]}`), "corr-1", at)

	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_log WHERE unit_id = $1 AND result = $2 AND created_at >= $3 ORDER BY created_at ASC, id ASC")).
		WithArgs("u1", "FAIL", at).
		WillReturnRows(rows)

	got, err := NewPostgresStore(db).Candidates(context.Background(), Prefilter{UnitID: "u1", Result: ResultFail, From: at})
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one row, got %d", len(got))
	}
	e := got[0]
	if e.EntityID != "v-1" || e.UserAgent != "" || e.CorrelationID != "corr-1" || !e.Metadata.HasTag(TagSuspicious) {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBuildCandidatesQueryWithoutFilters(t *testing.T) {
	query, args := buildCandidatesQuery(Prefilter{})
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
	want := selectEntriesSQL + " ORDER BY created_at ASC, id ASC"
	if query != want {
		t.Fatalf("query = %q, want %q", query, want)
	}
}
