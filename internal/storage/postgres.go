package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/jailcrawler/internal/config"
	"github.com/your-org/jailcrawler/internal/models"
)

const pgUniqueViolation = "23505"

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, &models.StoreError{Detail: "connect to postgres", Err: err}
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &models.StoreError{Detail: "ping postgres", Err: err}
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the extensions, tables and indexes the crawler writes to.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return &models.StoreError{Detail: "ensure schema", Err: err}
		}
	}
	slog.Info("database schema ensured", "statements", len(schemaStatements))
	return nil
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &models.StoreError{Detail: "begin transaction", Err: err}
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return &models.StoreError{Detail: "commit transaction", Err: err}
	}
	return nil
}

func (s *PostgresStore) RecentInmates(ctx context.Context, n int) ([]models.InmateSyncState, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, scil_sysid, img_url FROM inmate ORDER BY id DESC LIMIT $1`, n)
	if err != nil {
		return nil, &models.StoreError{Detail: "query recent inmates", Err: err}
	}
	defer rows.Close()

	var states []models.InmateSyncState
	for rows.Next() {
		var st models.InmateSyncState
		if err := rows.Scan(&st.ID, &st.NaturalKey, &st.ImageURL); err != nil {
			return nil, &models.StoreError{Detail: "scan recent inmate", Err: err}
		}
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.StoreError{Detail: "iterate recent inmates", Err: err}
	}
	return states, nil
}

// SetImageURL updates only the image reference of an existing row.
func (s *PostgresStore) SetImageURL(ctx context.Context, inmateID int64, imageURL string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE inmate SET img_url = $1 WHERE id = $2`, imageURL, inmateID)
	if err != nil {
		return &models.StoreError{Detail: "update image url", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &models.StoreError{Detail: fmt.Sprintf("inmate %d not found", inmateID)}
	}
	return nil
}

func (s *PostgresStore) CountInmates(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inmate`).Scan(&count); err != nil {
		return 0, &models.StoreError{Detail: "count inmates", Err: err}
	}
	return count, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) InsertInmate(ctx context.Context, p *models.Profile, imageURL string) (int64, error) {
	var vec *pgvector.Vector
	if len(p.Embedding) > 0 {
		v := pgvector.NewVector(p.Embedding)
		vec = &v
	}

	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO inmate (
			first_name, middle_name, last_name, affix, permanent_id,
			sex, dob, arresting_agency, booking_date, booking_number,
			height, weight, race, eye_color, img_url, scil_sysid, embedding
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id`,
		p.FirstName, p.MiddleName, p.LastName, p.Suffix, p.PermanentID,
		p.Sex, p.DateOfBirth, p.ArrestingAgency, p.BookedAt, p.BookingNumber,
		p.Height, p.Weight, p.Race, p.EyeColor, imageURL, p.NaturalKey, vec,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, &models.StoreError{Detail: p.CoreAttributes(), Err: models.ErrDuplicateInmate}
		}
		return 0, &models.StoreError{Detail: "insert inmate", Err: err}
	}
	return id, nil
}

func (t *pgTx) SetImageURL(ctx context.Context, inmateID int64, imageURL string) error {
	if _, err := t.tx.Exec(ctx, `UPDATE inmate SET img_url = $1 WHERE id = $2`, imageURL, inmateID); err != nil {
		return &models.StoreError{Detail: "update image url", Err: err}
	}
	return nil
}

// AttachAlias runs inside a savepoint so a rejected alias does not abort the
// record's transaction.
func (t *pgTx) AttachAlias(ctx context.Context, inmateID int64, alias string) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return &models.StoreError{Detail: "begin alias savepoint", Err: err}
	}
	defer func() { _ = sp.Rollback(ctx) }()

	var aliasID int64
	err = sp.QueryRow(ctx,
		`INSERT INTO alias (alias) VALUES ($1)
		ON CONFLICT (alias) DO UPDATE SET alias = EXCLUDED.alias
		RETURNING id`, alias,
	).Scan(&aliasID)
	if err != nil {
		return &models.StoreError{Detail: fmt.Sprintf("upsert alias %q", alias), Err: err}
	}

	if _, err := sp.Exec(ctx,
		`INSERT INTO inmate_alias (inmate_id, alias_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		inmateID, aliasID); err != nil {
		return &models.StoreError{Detail: fmt.Sprintf("link alias %q", alias), Err: err}
	}

	if err := sp.Commit(ctx); err != nil {
		return &models.StoreError{Detail: "release alias savepoint", Err: err}
	}
	return nil
}

func (t *pgTx) InsertImage(ctx context.Context, inmateID int64, data []byte) error {
	if _, err := t.tx.Exec(ctx, `INSERT INTO img (inmate_id, img) VALUES ($1, $2)`, inmateID, data); err != nil {
		return &models.StoreError{Detail: "insert image", Err: err}
	}
	return nil
}

func (t *pgTx) InsertBond(ctx context.Context, inmateID int64, b models.Bond) error {
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO bond (inmate_id, type, amount_pennies) VALUES ($1, $2, $3)`,
		inmateID, b.Type, int64(b.AmountCents)); err != nil {
		return &models.StoreError{Detail: "insert bond", Err: err}
	}
	return nil
}

func (t *pgTx) InsertCharge(ctx context.Context, inmateID int64, c models.Charge) error {
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO charge (inmate_id, description, grade, offense_date) VALUES ($1, $2, $3, $4)`,
		inmateID, c.Description, c.Grade.String(), c.OffenseDate); err != nil {
		return &models.StoreError{Detail: "insert charge", Err: err}
	}
	return nil
}
