// Package dbtest starts a throwaway PostgreSQL container with the service
// schema applied, for tests that need a real database.
package dbtest

import (
	"context"
	"testing"
	"time"

	"kart-checkout/internal/database"
	"kart-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container, a connection pool and the
// schema. Tests calling it are skipped in -short mode.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.Nop()
	pool, err := database.Connect(ctx, connStr, database.PoolOptions{MaxConns: 20}, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// Reset removes all rows from every table.
func Reset(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`TRUNCATE order_items, orders, pending_orders, cart_items, products, sellers`)
	if err != nil {
		t.Fatalf("failed to reset tables: %v", err)
	}
}

// SeedSeller inserts a seller and returns it.
func SeedSeller(t *testing.T, pool *pgxpool.Pool, name, email string) model.Seller {
	t.Helper()

	seller := model.Seller{ID: uuid.New(), Name: name, Email: email}
	_, err := pool.Exec(context.Background(),
		`INSERT INTO sellers (id, name, email) VALUES ($1, $2, $3)`,
		seller.ID, seller.Name, seller.Email)
	if err != nil {
		t.Fatalf("failed to seed seller %s: %v", name, err)
	}
	return seller
}

// SeedProduct inserts an approved, available product.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, sellerID uuid.UUID, id, name, price string, stock int) model.Product {
	t.Helper()

	p := model.Product{
		ID:        id,
		SellerID:  sellerID,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		Available: true,
		Approved:  true,
	}
	InsertProduct(t, pool, p)
	return p
}

// InsertProduct inserts p as given.
func InsertProduct(t *testing.T, pool *pgxpool.Pool, p model.Product) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO products (id, seller_id, name, price, stock, available, approved)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.SellerID, p.Name, p.Price, p.Stock, p.Available, p.Approved)
	if err != nil {
		t.Fatalf("failed to seed product %s: %v", p.ID, err)
	}
}

// Stock returns the current stock of a product.
func Stock(t *testing.T, pool *pgxpool.Pool, productID string) int {
	t.Helper()

	var stock int
	err := pool.QueryRow(context.Background(),
		`SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	if err != nil {
		t.Fatalf("failed to read stock for %s: %v", productID, err)
	}
	return stock
}

// Count returns the number of rows in table.
func Count(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()

	var n int
	if err := pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}
