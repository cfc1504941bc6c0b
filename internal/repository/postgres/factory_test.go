package postgres

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/fjmerc/fileshare/internal/config"
	"github.com/fjmerc/fileshare/internal/repository"
)

func testPostgresConfig() *config.PostgreSQLConfig {
	return &config.PostgreSQLConfig{
		Host:           "db.internal",
		Port:           5432,
		User:           "fileshare",
		Password:       "s3cret",
		Database:       "fileshare",
		SSLMode:        "require",
		MaxConnections: 10,
	}
}

func TestConnectionString(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*config.PostgreSQLConfig)
		wantHost  string
		wantPass  string
		wantPath  string
		wantQuery url.Values
	}{
		{
			name:      "loaded from environment",
			mutate:    func(*config.PostgreSQLConfig) {},
			wantHost:  "db.internal:5432",
			wantPass:  "s3cret",
			wantPath:  "/fileshare",
			wantQuery: url.Values{"sslmode": {"require"}},
		},
		{
			name:      "empty sslmode falls back to prefer",
			mutate:    func(c *config.PostgreSQLConfig) { c.SSLMode = "" },
			wantHost:  "db.internal:5432",
			wantPass:  "s3cret",
			wantPath:  "/fileshare",
			wantQuery: url.Values{"sslmode": {"prefer"}},
		},
		{
			name:      "password with URL delimiters",
			mutate:    func(c *config.PostgreSQLConfig) { c.Password = "p@ss:w/rd?#" },
			wantHost:  "db.internal:5432",
			wantPass:  "p@ss:w/rd?#",
			wantPath:  "/fileshare",
			wantQuery: url.Values{"sslmode": {"require"}},
		},
		{
			name: "options merged and sslmode kept",
			mutate: func(c *config.PostgreSQLConfig) {
				c.Options = "connect_timeout=5&application_name=fileshare-sweep&sslmode=disable"
			},
			wantHost: "db.internal:5432",
			wantPass: "s3cret",
			wantPath: "/fileshare",
			wantQuery: url.Values{
				"sslmode":          {"require"},
				"connect_timeout":  {"5"},
				"application_name": {"fileshare-sweep"},
			},
		},
		{
			name:      "IPv6 host",
			mutate:    func(c *config.PostgreSQLConfig) { c.Host = "::1"; c.Port = 6432 },
			wantHost:  "[::1]:6432",
			wantPass:  "s3cret",
			wantPath:  "/fileshare",
			wantQuery: url.Values{"sslmode": {"require"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testPostgresConfig()
			tt.mutate(cfg)

			connString, err := ConnectionString(cfg)
			if err != nil {
				t.Fatalf("ConnectionString() error = %v", err)
			}

			u, err := url.Parse(connString)
			if err != nil {
				t.Fatalf("ConnectionString() = %q is not a URL: %v", connString, err)
			}
			if u.Scheme != "postgres" || u.Host != tt.wantHost || u.Path != tt.wantPath {
				t.Errorf("ConnectionString() = %q", connString)
			}
			if pass, _ := u.User.Password(); u.User.Username() != "fileshare" || pass != tt.wantPass {
				t.Errorf("credentials = %q/%q, want fileshare/%q", u.User.Username(), pass, tt.wantPass)
			}
			if got := u.Query(); got.Encode() != tt.wantQuery.Encode() {
				t.Errorf("query = %q, want %q", got.Encode(), tt.wantQuery.Encode())
			}
		})
	}
}

func TestConnectionString_Errors(t *testing.T) {
	if _, err := ConnectionString(nil); err == nil {
		t.Error("ConnectionString(nil) succeeded, want error")
	}

	cfg := testPostgresConfig()
	cfg.Options = "connect_timeout=%zz"
	if _, err := ConnectionString(cfg); err == nil {
		t.Error("ConnectionString() with malformed options succeeded, want error")
	}
}

func TestNewPool_InvalidConfig(t *testing.T) {
	cfg := testPostgresConfig()
	cfg.Options = "%"

	pool, err := NewPool(context.Background(), cfg, 0)
	if err == nil {
		pool.Close()
		t.Fatal("NewPool() with malformed options succeeded, want error")
	}
}

func TestNewRepositories_Errors(t *testing.T) {
	repos, err := NewRepositories(context.Background(), &config.Config{DBType: config.DBTypePostgres})
	if err == nil || repos != nil {
		t.Errorf("NewRepositories() without PostgreSQL settings = %v, %v; want nil, error", repos, err)
	}

	repos, err = NewRepositoriesWithPool(nil)
	if !errors.Is(err, repository.ErrNilDatabase) || repos != nil {
		t.Errorf("NewRepositoriesWithPool(nil) = %v, %v; want nil, ErrNilDatabase", repos, err)
	}
}

// Connecting to a live server is covered by integration_test.go.
