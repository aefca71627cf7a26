package sqlite

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cached_years (
    indicator   TEXT NOT NULL,
    year        INTEGER NOT NULL,
    run_id      TEXT NOT NULL,
    fetched_at  TEXT NOT NULL,
    PRIMARY KEY (indicator, year)
);

CREATE TABLE IF NOT EXISTS observations (
    indicator   TEXT NOT NULL,
    year        INTEGER NOT NULL,
    period      TEXT NOT NULL,
    value       REAL,
    PRIMARY KEY (indicator, period),
    FOREIGN KEY (indicator, year) REFERENCES cached_years(indicator, year) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS fetch_tasks (
    run_id      TEXT NOT NULL,
    indicator   TEXT NOT NULL,
    year        INTEGER NOT NULL,
    status      TEXT NOT NULL,
    attempts    INTEGER NOT NULL,
    error       TEXT,
    finished_at TEXT NOT NULL,
    PRIMARY KEY (run_id, indicator, year)
);

CREATE INDEX IF NOT EXISTS idx_observations_year ON observations(indicator, year);
`
