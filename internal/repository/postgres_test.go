package repository

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/workrecords/internal/config"
	"github.com/bigkaa/workrecords/internal/database"
	"github.com/bigkaa/workrecords/internal/domain/model"
	"github.com/bigkaa/workrecords/internal/query"
)

// --- Unit-тесты построения SQL ---

func TestBuildWhere_Empty(t *testing.T) {
	where, args := buildWhere(query.Spec{}, 1)
	if where != "" {
		t.Errorf("where = %q, ожидалась пустая строка", where)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, ожидался пустой список", args)
	}
}

func TestBuildWhere_AllFilters(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 23, 59, 59, 999_000_000, time.UTC)
	spec := query.Spec{
		Search:      "kitchen",
		CreatedFrom: &from,
		CreatedTo:   &to,
		MinAmount:   ptr(100.0),
		MaxAmount:   ptr(500.0),
	}

	where, args := buildWhere(spec, 1)

	want := "WHERE (title ILIKE $1 OR description ILIKE $1) AND created_at >= $2 AND created_at <= $3 AND bill_amount >= $4 AND bill_amount <= $5"
	if where != want {
		t.Errorf("where =\n%s\nожидалось\n%s", where, want)
	}
	if len(args) != 5 {
		t.Fatalf("len(args) = %d, ожидалось 5", len(args))
	}
	if args[0] != "%kitchen%" {
		t.Errorf("args[0] = %v, ожидалось %%kitchen%%", args[0])
	}
}

func TestBuildWhere_StartArg(t *testing.T) {
	where, _ := buildWhere(query.Spec{MinAmount: ptr(1.0)}, 3)
	if where != "WHERE bill_amount >= $3" {
		t.Errorf("where = %q", where)
	}
}

func TestBuildWhere_EscapesLikePattern(t *testing.T) {
	_, args := buildWhere(query.Spec{Search: `100%_off\`}, 1)
	if args[0] != `%100\%\_off\\%` {
		t.Errorf("args[0] = %v", args[0])
	}
}

func TestBuildOrderBy(t *testing.T) {
	cases := []struct {
		sort query.Sort
		want string
	}{
		{query.Sort{Field: query.FieldCreatedAt, Desc: true}, "ORDER BY created_at DESC, id DESC"},
		{query.Sort{Field: query.FieldBillAmount}, "ORDER BY bill_amount ASC, id ASC"},
		{query.Sort{Field: "created_at; DROP TABLE work_records"}, "ORDER BY created_at ASC, id ASC"},
	}
	for _, c := range cases {
		if got := buildOrderBy(c.sort); got != c.want {
			t.Errorf("buildOrderBy(%+v) = %q, ожидалось %q", c.sort, got, c.want)
		}
	}
}

// --- Интеграционные тесты (testcontainers) ---

// setupTestPostgres запускает PostgreSQL в Docker-контейнере и применяет миграции.
func setupTestPostgres(t *testing.T) RecordRepository {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("workrecords_test"),
		postgres.WithUsername("workrecords"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}
	dbPort, _ := strconv.Atoi(port.Port())

	cfg := &config.Config{
		DBHost:     host,
		DBPort:     dbPort,
		DBName:     "workrecords_test",
		DBUser:     "workrecords",
		DBPassword: "test-password",
		DBSSLMode:  "disable",
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Migrate() вернул ошибку: %v", err)
	}
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	t.Cleanup(pool.Close)

	return NewPostgresRecordRepository(pool)
}

func TestPostgresRecordRepository_Contract(t *testing.T) {
	repo := setupTestPostgres(t)
	runRepositoryContract(t, repo)
}

// TestPostgresRecordRepository_DescriptionCheck проверяет ограничение схемы на длину описания.
func TestPostgresRecordRepository_DescriptionCheck(t *testing.T) {
	repo := setupTestPostgres(t)

	rec := &model.WorkRecord{Description: "ab", BillAmount: 1}
	rec.SetImages([]model.Image{{URL: "u", PublicID: "p"}})
	_, err := repo.Insert(context.Background(), rec)
	if err == nil {
		t.Fatal("Insert с описанием короче 3 символов должен вернуть ошибку")
	}
	if !strings.Contains(err.Error(), "ошибка создания записи") {
		t.Errorf("ошибка = %v", err)
	}
}
