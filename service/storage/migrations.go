package storage

const schemaV1 = `
CREATE TABLE IF NOT EXISTS runs (
    run_id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_uuid        TEXT UNIQUE NOT NULL,
    run_timestamp   DATETIME DEFAULT CURRENT_TIMESTAMP,
    run_duration    INTEGER,
    account_count   INTEGER DEFAULT 0,
    failed_accounts INTEGER DEFAULT 0,
    row_count       INTEGER DEFAULT 0,
    cli_version     TEXT,
    run_profile     TEXT,
    run_region      TEXT,
    created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_timestamp
    ON runs(run_timestamp DESC);

CREATE TABLE IF NOT EXISTS run_accounts (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      INTEGER NOT NULL,
    account_id  TEXT NOT NULL,
    status      TEXT NOT NULL,
    row_count   INTEGER DEFAULT 0,
    stage       TEXT,
    error_kind  TEXT,
    message     TEXT,
    created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_run_accounts_run ON run_accounts(run_id);
CREATE INDEX IF NOT EXISTS idx_run_accounts_account ON run_accounts(account_id);
`
