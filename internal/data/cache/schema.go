package cache

import "database/sql"

const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS results (
  path        TEXT NOT NULL,
  fingerprint TEXT NOT NULL,
  payload     BLOB NOT NULL,
  created_utc TEXT NOT NULL,
  PRIMARY KEY (path, fingerprint)
);

CREATE TABLE IF NOT EXISTS runs (
  id               TEXT PRIMARY KEY,
  path             TEXT NOT NULL,
  language         TEXT NOT NULL,
  ts_utc           TEXT NOT NULL,
  function_count   INTEGER NOT NULL,
  root_count       INTEGER NOT NULL,
  orphan_count     INTEGER NOT NULL,
  edge_count       INTEGER NOT NULL,
  unresolved_count INTEGER NOT NULL,
  cache_hit        INTEGER NOT NULL,
  duration_ms      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_path_ts ON runs(path, ts_utc);
`

func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
