// Package sqlite is the hub's durable remote.Store, kept in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dukerupert/freezer/internal/remote"
)

// Store implements remote.Store on the tables created by the database
// package migrations. Share URLs carry a signed token naming the root record.
type Store struct {
	db      *sql.DB
	secret  []byte
	baseURL string
	now     func() time.Time
}

// New creates a store. baseURL prefixes minted share URLs and secret signs
// their tokens.
func New(db *sql.DB, baseURL string, secret []byte) *Store {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Store{db: db, secret: secret, baseURL: baseURL, now: time.Now}
}

type shareClaims struct {
	jwt.RegisteredClaims
	Permission remote.Permission `json:"perm"`
}

const recordCols = `name, payload, updated_at, household_id, household_name`

func scanRecord(scanner interface{ Scan(...any) error }) (*remote.Record, error) {
	var r remote.Record
	err := scanner.Scan(&r.Name, &r.Payload, &r.UpdatedAt, &r.HouseholdID, &r.HouseholdName)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) FetchRecord(ctx context.Context, scope remote.Scope, name string) (*remote.Record, error) {
	query := `SELECT ` + recordCols + ` FROM records WHERE name = ?`
	if scope == remote.ScopeShared {
		query = `SELECT r.name, r.payload, r.updated_at, r.household_id, r.household_name
			FROM records r JOIN shares sh ON sh.record_name = r.name
			WHERE r.name = ? AND sh.accepted = 1`
	}

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, remote.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func (s *Store) SaveRecord(ctx context.Context, scope remote.Scope, rec *remote.Record) error {
	if scope == remote.ScopeShared {
		ok, err := s.isAccepted(ctx, rec.Name)
		if err != nil {
			return err
		}
		if !ok {
			return remote.ErrNotFound
		}
	}
	return upsertRecord(ctx, s.db, rec)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertRecord(ctx context.Context, db execer, rec *remote.Record) error {
	payload := rec.Payload
	if payload == nil {
		payload = []byte{}
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO records (`+recordCols+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			household_id = excluded.household_id,
			household_name = excluded.household_name,
			saved_at = CURRENT_TIMESTAMP`,
		rec.Name, payload, rec.UpdatedAt.UTC(), rec.HouseholdID, rec.HouseholdName,
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

func (s *Store) isAccepted(ctx context.Context, name string) (bool, error) {
	var accepted bool
	err := s.db.QueryRowContext(ctx, `SELECT accepted FROM shares WHERE record_name = ?`, name).Scan(&accepted)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check share: %w", err)
	}
	return accepted, nil
}

func (s *Store) FetchSubscription(ctx context.Context, scope remote.Scope, id string) (*remote.Subscription, error) {
	sub := remote.Subscription{Scope: scope}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM subscriptions WHERE scope = ? AND id = ?`, string(scope), id,
	).Scan(&sub.ID, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, remote.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}

func (s *Store) SaveSubscription(ctx context.Context, sub *remote.Subscription) error {
	createdAt := sub.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (scope, id, created_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		string(sub.Scope), sub.ID, createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return remote.ErrAlreadyExists
	}
	return nil
}

const shareCols = `record_name, url, permission, title, created_at`

func scanShare(scanner interface{ Scan(...any) error }) (*remote.Share, error) {
	var sh remote.Share
	err := scanner.Scan(&sh.RecordName, &sh.URL, &sh.Permission, &sh.Title, &sh.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

func (s *Store) FetchShare(ctx context.Context, recordName string) (*remote.Share, error) {
	sh, err := scanShare(s.db.QueryRowContext(ctx,
		`SELECT `+shareCols+` FROM shares WHERE record_name = ?`, recordName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, remote.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get share: %w", err)
	}
	return sh, nil
}

func (s *Store) SaveShare(ctx context.Context, root *remote.Record, share *remote.Share) (*remote.Share, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := upsertRecord(ctx, tx, root); err != nil {
		return nil, err
	}

	existing, err := scanShare(tx.QueryRowContext(ctx,
		`SELECT `+shareCols+` FROM shares WHERE record_name = ?`, root.Name))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		url, err := s.mintURL(root.Name, share.Permission)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO shares (record_name, url, permission, title, created_at) VALUES (?, ?, ?, ?, ?)`,
			root.Name, url, string(share.Permission), share.Title, s.now().UTC(),
		)
		if err != nil {
			return nil, fmt.Errorf("insert share: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("get share: %w", err)
	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE shares SET permission = ?, title = ? WHERE record_name = ?`,
			string(share.Permission), share.Title, existing.RecordName,
		)
		if err != nil {
			return nil, fmt.Errorf("update share: %w", err)
		}
	}

	saved, err := scanShare(tx.QueryRowContext(ctx,
		`SELECT `+shareCols+` FROM shares WHERE record_name = ?`, root.Name))
	if err != nil {
		return nil, fmt.Errorf("reload share: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit share: %w", err)
	}
	return saved, nil
}

func (s *Store) mintURL(recordName string, perm remote.Permission) (string, error) {
	claims := shareClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Subject:  recordName,
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
		Permission: perm,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign share token: %w", err)
	}
	return s.baseURL + token, nil
}

// recordFromURL verifies the token at the end of a share URL and returns the
// record it names.
func (s *Store) recordFromURL(url string) (string, bool) {
	token := url[strings.LastIndex(url, "/")+1:]
	claims := &shareClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

func (s *Store) FetchShareMetadata(ctx context.Context, url string) (*remote.ShareMetadata, error) {
	name, ok := s.recordFromURL(url)
	if !ok {
		return nil, remote.ErrNotFound
	}

	sh, err := s.FetchShare(ctx, name)
	if err != nil {
		return nil, err
	}
	if sh.URL != url {
		return nil, remote.ErrNotFound
	}
	return &remote.ShareMetadata{
		URL:            sh.URL,
		RootRecordName: sh.RecordName,
		Permission:     sh.Permission,
		Title:          sh.Title,
	}, nil
}

func (s *Store) AcceptShare(ctx context.Context, meta *remote.ShareMetadata) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE shares SET accepted = 1 WHERE record_name = ? AND url = ?`, meta.RootRecordName, meta.URL)
	if err != nil {
		return fmt.Errorf("accept share: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return remote.ErrNotFound
	}
	return nil
}
