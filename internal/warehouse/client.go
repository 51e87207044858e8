package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cwsupport/crf-provisioner/internal/config"
)

// queryTimeout bounds every warehouse round trip.
const queryTimeout = 30 * time.Second

// UnavailableError wraps a connection or timeout failure against the Data
// Warehouse. Callers treat it as retry-later, never fatal; retry policy
// belongs to the scheduler.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("data warehouse unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether the error chain contains an UnavailableError.
func IsUnavailable(err error) bool {
	var unavailable *UnavailableError
	return errors.As(err, &unavailable)
}

// Client is the read-only gateway to the Student Records warehouse.
type Client struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Client, error) {
	dsn := warehouseDSN(cfg)
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create warehouse pool: %w", err)
	}
	return &Client{pool: pool, logger: logger}, nil
}

func warehouseDSN(cfg *config.Config) string {
	service := cfg.WarehouseService
	if strings.Contains(service, "://") {
		return service
	}
	return fmt.Sprintf("postgres://%s:%s@%s", cfg.WarehouseUser, cfg.WarehousePassword, service)
}

func (c *Client) Close() {
	c.pool.Close()
}

// query runs a parameterized SELECT with the per-call timeout. Connection
// failures come back as UnavailableError.
func (c *Client) query(ctx context.Context, sql string, args ...any) (pgx.Rows, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		cancel()
		return nil, nil, &UnavailableError{Err: err}
	}
	return rows, cancel, nil
}

// Person is the normalized row shape for people queries.
type Person struct {
	Pennkey   string
	FirstName string
	LastName  string
	PennID    *int64
	Email     string
}

const personByPennkeyQuery = `
	SELECT pennkey, first_name, last_name, penn_id, email_address
	FROM employee_general
	WHERE pennkey = $1
`

const personByPennIDQuery = `
	SELECT pennkey, first_name, last_name, penn_id, email_address
	FROM employee_general
	WHERE penn_id = $1
`

// FindUserByPennkey returns the person record for a pennkey, or nil when the
// warehouse has no matching row.
func (c *Client) FindUserByPennkey(ctx context.Context, pennkey string) (*Person, error) {
	return c.findPerson(ctx, personByPennkeyQuery, pennkey)
}

// FindUserByPennID returns the person record for a penn id, or nil when the
// warehouse has no matching row.
func (c *Client) FindUserByPennID(ctx context.Context, pennID int64) (*Person, error) {
	return c.findPerson(ctx, personByPennIDQuery, pennID)
}

func (c *Client) findPerson(ctx context.Context, sql string, arg any) (*Person, error) {
	rows, cancel, err := c.query(ctx, sql, arg)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, &UnavailableError{Err: err}
		}
		return nil, nil
	}

	var person Person
	var firstName, lastName, email *string
	if err := rows.Scan(&person.Pennkey, &firstName, &lastName, &person.PennID, &email); err != nil {
		return nil, fmt.Errorf("scan person: %w", err)
	}
	person.FirstName = titleCase(deref(firstName))
	person.LastName = titleCase(deref(lastName))
	person.Email = strings.ToLower(strings.TrimSpace(deref(email)))
	return &person, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// titleCase normalizes warehouse names, which arrive fully upper-cased.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
