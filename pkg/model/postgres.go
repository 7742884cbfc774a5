package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/Alcereo/passgate/pkg/common"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/satori/go.uuid"
	"time"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS auth_users (
    id           text PRIMARY KEY,
    provider     text NOT NULL,
    external_id  text NOT NULL,
    email        text NOT NULL DEFAULT '',
    display_name text NOT NULL DEFAULT '',
    picture      text NOT NULL DEFAULT '',
    created_at   timestamptz NOT NULL DEFAULT NOW(),
    CONSTRAINT auth_users_provider_external_id_unique UNIQUE (provider, external_id)
);
`

type PostgresBackend struct {
	db *sqlx.DB
}

func NewPostgresBackend(dsn string) (*PostgresBackend, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres error. Reason: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(usersSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating users schema error. Reason: %v", err)
	}
	return &PostgresBackend{db: db}, nil
}

func (backend *PostgresBackend) CreateModel() (Model, error) {
	return &postgresModel{db: backend.db}, nil
}

func (backend *PostgresBackend) Close() error {
	return backend.db.Close()
}

type postgresModel struct {
	db *sqlx.DB
}

func (m *postgresModel) FindUser(ctx context.Context, provider string, externalId string) (common.UserIdentifier, bool, error) {
	var id string
	err := m.db.GetContext(ctx, &id, `
		SELECT id FROM auth_users
		WHERE provider = $1 AND external_id = $2
	`, provider, externalId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return common.UserIdentifier(id), true, nil
}

// CreateUser relies on the (provider, external_id) unique constraint: the
// insert is a no-op for a taken pair and the follow-up select returns the
// stored identifier.
func (m *postgresModel) CreateUser(ctx context.Context, profile *common.ExternalProfile) (common.UserIdentifier, error) {
	if err := checkProfile(profile); err != nil {
		return "", err
	}

	user := newUser(uuid.NewV4().String(), profile)
	_, err := m.db.NamedExecContext(ctx, `
		INSERT INTO auth_users (id, provider, external_id, email, display_name, picture, created_at)
		VALUES (:id, :provider, :external_id, :email, :display_name, :picture, :created_at)
		ON CONFLICT (provider, external_id) DO NOTHING
	`, user)
	if err != nil {
		return "", err
	}

	id, found, err := m.FindUser(ctx, profile.Provider, profile.Id)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("user %v/%v not found after insert", profile.Provider, profile.Id)
	}
	return id, nil
}
