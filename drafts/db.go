package drafts

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diamondburned/duration"
	"github.com/diamondburned/travelboard/httperr"
	"github.com/diamondburned/travelboard/travelboard"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	_ "github.com/mattn/go-sqlite3"
)

var migrations = []string{`
	CREATE TABLE drafts (
		id       INTEGER PRIMARY KEY, -- Snowflake
		draft    TEXT    NOT NULL,    -- JSON of travelboard.Draft
		filename TEXT    NOT NULL,
		device   TEXT    NOT NULL,
		updated  INTEGER NOT NULL     -- unixnano
	);

	CREATE INDEX drafts_updated ON drafts(updated);
`}

type Config struct {
	DatabasePath string `toml:"databasePath"`
	// Lifespan is how long an untouched draft is kept, e.g. "1w".
	Lifespan string `toml:"lifespan"`

	lifespan time.Duration
}

func NewConfig() Config {
	return Config{
		DatabasePath: "drafts.db",
		Lifespan:     "1w",
	}
}

func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return errors.New("missing `databasePath' value")
	}

	d, err := duration.ParseDuration(c.Lifespan)
	if err != nil {
		return errors.Wrap(err, "invalid draft lifespan")
	}
	c.lifespan = time.Duration(d)

	return nil
}

// DraftJSON stores a draft as a JSON column.
type DraftJSON travelboard.Draft

func (d *DraftJSON) Scan(v interface{}) error {
	switch v := v.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	}

	return fmt.Errorf("Failed to scan %#v: unexpected type", v)
}

func (d DraftJSON) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Row is a saved draft.
type Row struct {
	ID       int64     `db:"id"`
	Draft    DraftJSON `db:"draft"`
	FileName string    `db:"filename"`
	Device   string    `db:"device"`
	Updated  int64     `db:"updated"`
}

var ErrDraftNotFound = httperr.New(404, "draft not found")

type Database struct {
	*sqlx.DB
	Config Config
}

func NewDatabase(config Config) (*Database, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	d, err := sqlx.Open("sqlite3", config.DatabasePath)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to open sqlite3 db")
	}

	// SQLite only allows one writer anyway.
	d.SetMaxOpenConns(1)

	db := &Database{d, config}

	v, err := db.userVersion()
	if err != nil {
		return nil, errors.Wrap(err, "Failed to get user_version pragma")
	}

	// If we're already up-to-date with all the migrations, then we're done.
	if v >= len(migrations) {
		return db, nil
	}

	tx, err := db.DB.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "Failed to start a transaction for migrations")
	}
	defer tx.Rollback()

	for i := v; i < len(migrations); i++ {
		_, err := tx.Exec(migrations[i])
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to migrate at step %d", i)
		}
	}

	if err := db.setUserVersion(tx, len(migrations)); err != nil {
		return nil, errors.Wrap(err, "Failed to save user_version pragma")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "Failed to save migration changes")
	}

	return db, nil
}

func (d *Database) Close() error {
	return d.DB.Close()
}

func (d *Database) userVersion() (int, error) {
	var version int
	return version, d.QueryRow("PRAGMA user_version").Scan(&version)
}

func (d *Database) setUserVersion(tx *sql.Tx, v int) error {
	_, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v))
	return err
}

// Save inserts or replaces the row.
func (d *Database) Save(ctx context.Context, r Row) error {
	_, err := d.NamedExecContext(ctx, `
		INSERT INTO drafts (id, draft, filename, device, updated)
		VALUES (:id, :draft, :filename, :device, :updated)
		ON CONFLICT (id) DO UPDATE SET
			draft    = excluded.draft,
			filename = excluded.filename,
			device   = excluded.device,
			updated  = excluded.updated`, r)

	return errors.Wrap(err, "Failed to save draft")
}

// Load returns the saved draft with the given ID.
func (d *Database) Load(ctx context.Context, id int64) (Row, error) {
	var r Row

	err := d.GetContext(ctx, &r, "SELECT * FROM drafts WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, ErrDraftNotFound
		}
		return r, errors.Wrap(err, "Failed to load draft")
	}

	return r, nil
}

// Delete removes a draft. Deleting a missing draft is not an error.
func (d *Database) Delete(ctx context.Context, id int64) error {
	_, err := d.ExecContext(ctx, "DELETE FROM drafts WHERE id = ?", id)
	return errors.Wrap(err, "Failed to delete draft")
}

// DeleteBefore removes all drafts last updated before t and returns how many
// were removed.
func (d *Database) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	r, err := d.ExecContext(ctx, "DELETE FROM drafts WHERE updated < ?", t.UnixNano())
	if err != nil {
		return 0, errors.Wrap(err, "Failed to delete old drafts")
	}

	return r.RowsAffected()
}
