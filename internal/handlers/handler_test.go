// handler_test.go provides shared test infrastructure for handler integration
// tests. Tests are skipped when PostgreSQL or Valkey are unavailable.
package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"novelpress/internal/cache"
	"novelpress/internal/database"
	"novelpress/internal/middleware"
	"novelpress/internal/render"
	"novelpress/internal/session"
	"novelpress/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL, runs migrations and seeds.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "novelpress")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "novelpress")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	if err := database.Seed(db); err != nil {
		db.Close()
		t.Fatalf("seed: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		for _, pattern := range []string{"session:*", "flash:*", "page:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB            *sql.DB
	Valkey        *redis.Client
	Renderer      *render.Renderer
	Sessions      *session.Store
	PostStore     *store.PostStore
	CategoryStore *store.CategoryStore
	UserStore     *store.UserStore
	PageCache     *cache.PageCache
	Novels        *Novels
	Auth          *Auth
	Public        *Public
}

// newTestEnv creates a complete test environment with all handler dependencies.
// No file store is wired; cover-image tests build their own Novels around a
// fake FileStore.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	vk := testValkeyClient(t)

	sessions := session.NewStore(vk, false)

	renderer, err := render.New(true, sessions)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	postStore := store.NewPostStore(db)
	categoryStore := store.NewCategoryStore(db)
	userStore := store.NewUserStore(db)
	pageCache := cache.NewPageCache(vk, 1*time.Minute)

	novels := NewNovels(renderer, sessions, postStore, categoryStore, nil, pageCache)
	auth := NewAuth(renderer, sessions, userStore)
	public := NewPublic(renderer, postStore, nil, pageCache)

	return &testEnv{
		DB:            db,
		Valkey:        vk,
		Renderer:      renderer,
		Sessions:      sessions,
		PostStore:     postStore,
		CategoryStore: categoryStore,
		UserStore:     userStore,
		PageCache:     pageCache,
		Novels:        novels,
		Auth:          auth,
		Public:        public,
	}
}

// testSession creates session data for the seeded author.
func testSession(userID uuid.UUID) *session.Data {
	return &session.Data{
		UserID:    userID,
		Email:     "author@novelpress.local",
		PenName:   "Test Author",
		TwoFADone: true,
	}
}

// withSession adds session data to a request's context.
func withSession(r *http.Request, sess *session.Data) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.SessionKey, sess))
}

// withChiURLParamAndSession adds both a chi URL param and a session to a request.
func withChiURLParamAndSession(r *http.Request, key, value string, sess *session.Data) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	if sess != nil {
		ctx = context.WithValue(ctx, middleware.SessionKey, sess)
	}
	return r.WithContext(ctx)
}

// testAuthorID returns the seeded author's user ID.
func testAuthorID(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	if err := db.QueryRow("SELECT id FROM users LIMIT 1").Scan(&id); err != nil {
		t.Fatalf("no users in database: %v", err)
	}
	return id
}

// testCategoryID returns a seeded category's ID.
func testCategoryID(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	if err := db.QueryRow("SELECT id FROM categories LIMIT 1").Scan(&id); err != nil {
		t.Fatalf("no categories in database: %v", err)
	}
	return id
}

// cleanPosts removes test posts by slug.
func cleanPosts(t *testing.T, db *sql.DB, slugs ...string) {
	t.Helper()
	for _, s := range slugs {
		db.Exec("DELETE FROM posts WHERE slug = $1", s)
	}
}
