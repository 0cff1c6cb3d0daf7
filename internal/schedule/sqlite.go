package schedule

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// EditionInfo summarizes a stored edition.
type EditionInfo struct {
	Edition    Edition   `json:"edition"`
	Title      string    `json:"title"`
	Effective  time.Time `json:"effective"`
	Groups     int       `json:"groups"`
	ZIPs       int       `json:"zips"`
	ImportedAt time.Time `json:"imported_at"`
}

// SQLiteStore keeps imported editions between runs. It stores reference
// tables only.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS schedule_editions (
	edition     TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	effective   TEXT NOT NULL DEFAULT '',
	imported_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schedule_groups (
	edition TEXT NOT NULL,
	grp     INTEGER NOT NULL,
	label   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (edition, grp)
);

CREATE TABLE IF NOT EXISTS schedule_ceilings (
	edition TEXT NOT NULL,
	grp     INTEGER NOT NULL,
	bedroom TEXT NOT NULL,
	amount  INTEGER NOT NULL,
	PRIMARY KEY (edition, grp, bedroom)
);

CREATE TABLE IF NOT EXISTS schedule_zips (
	edition TEXT NOT NULL,
	zip     TEXT NOT NULL,
	grp     INTEGER NOT NULL,
	PRIMARY KEY (edition, zip)
);
`

// Migrate creates the schedule tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var editionTables = []string{"schedule_zips", "schedule_ceilings", "schedule_groups", "schedule_editions"}

// SaveSchedule writes an edition, replacing any stored edition with the same id.
func (s *SQLiteStore) SaveSchedule(ctx context.Context, sched *Schedule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	id := string(sched.Edition())
	for _, table := range editionTables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE edition = ?`, id); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s for %s", table, id)
		}
	}

	effective := ""
	if !sched.Effective().IsZero() {
		effective = sched.Effective().Format(effectiveLayout)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schedule_editions (edition, title, effective, imported_at) VALUES (?, ?, ?, ?)`,
		id, sched.Title(), effective, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert edition %s", id)
	}

	for _, g := range sched.Groups() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schedule_groups (edition, grp, label) VALUES (?, ?, ?)`,
			id, int(g.ID), g.Label,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert group %d", g.ID)
		}
		for class, amount := range g.Ceilings {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO schedule_ceilings (edition, grp, bedroom, amount) VALUES (?, ?, ?, ?)`,
				id, int(g.ID), string(class), amount,
			); err != nil {
				return eris.Wrapf(err, "sqlite: insert ceiling %d %s", g.ID, class)
			}
		}
	}

	for _, zip := range sched.ZIPs() {
		g, _ := sched.GroupFor(zip)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schedule_zips (edition, zip, grp) VALUES (?, ?, ?)`,
			id, zip, int(g),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert zip %s", zip)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit edition")
}

// LoadSchedules reads every stored edition.
func (s *SQLiteStore) LoadSchedules(ctx context.Context) ([]*Schedule, error) {
	infos, err := s.ListEditions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Schedule, 0, len(infos))
	for _, info := range infos {
		sched, err := s.loadSchedule(ctx, info)
		if err != nil {
			return nil, err
		}
		out = append(out, sched)
	}
	return out, nil
}

func (s *SQLiteStore) loadSchedule(ctx context.Context, info EditionInfo) (*Schedule, error) {
	id := string(info.Edition)

	byID := make(map[RentGroup]*Group)
	var order []RentGroup
	rows, err := s.db.QueryContext(ctx, `SELECT grp, label FROM schedule_groups WHERE edition = ? ORDER BY grp`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query groups for %s", id)
	}
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Label); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "sqlite: scan group")
		}
		g.Ceilings = make(map[BedroomClass]int)
		byID[g.ID] = &g
		order = append(order, g.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate groups")
	}

	rows, err = s.db.QueryContext(ctx, `SELECT grp, bedroom, amount FROM schedule_ceilings WHERE edition = ?`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query ceilings for %s", id)
	}
	for rows.Next() {
		var (
			grp     RentGroup
			bedroom string
			amount  int
		)
		if err := rows.Scan(&grp, &bedroom, &amount); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "sqlite: scan ceiling")
		}
		if g, ok := byID[grp]; ok {
			g.Ceilings[BedroomClass(bedroom)] = amount
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate ceilings")
	}

	zips := make(map[string]RentGroup)
	rows, err = s.db.QueryContext(ctx, `SELECT zip, grp FROM schedule_zips WHERE edition = ?`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query zips for %s", id)
	}
	for rows.Next() {
		var (
			zip string
			grp RentGroup
		)
		if err := rows.Scan(&zip, &grp); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "sqlite: scan zip")
		}
		zips[zip] = grp
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate zips")
	}

	groups := make([]Group, 0, len(order))
	for _, gid := range order {
		groups = append(groups, *byID[gid])
	}
	return NewSchedule(info.Edition, info.Title, info.Effective, groups, zips)
}

// ListEditions summarizes the stored editions, earliest effective date first.
func (s *SQLiteStore) ListEditions(ctx context.Context) ([]EditionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.edition, e.title, e.effective, e.imported_at,
			(SELECT COUNT(*) FROM schedule_groups g WHERE g.edition = e.edition),
			(SELECT COUNT(*) FROM schedule_zips z WHERE z.edition = e.edition)
		FROM schedule_editions e
		ORDER BY e.effective, e.edition`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list editions")
	}
	defer rows.Close()

	var out []EditionInfo
	for rows.Next() {
		var (
			info                EditionInfo
			effective, imported string
		)
		if err := rows.Scan(&info.Edition, &info.Title, &effective, &imported, &info.Groups, &info.ZIPs); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan edition")
		}
		if effective != "" {
			if info.Effective, err = time.Parse(effectiveLayout, effective); err != nil {
				return nil, eris.Wrapf(err, "sqlite: parse effective date of %s", info.Edition)
			}
		}
		if info.ImportedAt, err = time.Parse(time.RFC3339, imported); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse import time of %s", info.Edition)
		}
		out = append(out, info)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate editions")
}

// DeleteSchedule removes a stored edition.
func (s *SQLiteStore) DeleteSchedule(ctx context.Context, edition Edition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var affected int64
	for _, table := range editionTables {
		res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE edition = ?`, string(edition))
		if err != nil {
			return eris.Wrapf(err, "sqlite: delete %s from %s", edition, table)
		}
		if table == "schedule_editions" {
			if affected, err = res.RowsAffected(); err != nil {
				return eris.Wrap(err, "sqlite: rows affected")
			}
		}
	}
	if affected == 0 {
		return eris.Wrapf(ErrUnknownEdition, "sqlite: edition %s not stored", edition)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit delete")
}
