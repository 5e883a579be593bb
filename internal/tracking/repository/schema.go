package repository

// Schema creates the tables used by PostgresRepository. Statements are
// idempotent so Migrate can run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS households (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	name             TEXT NOT NULL DEFAULT '',
	population       INTEGER NOT NULL CHECK (population >= 1),
	audit_created_by TEXT NOT NULL,
	audit_created_at TIMESTAMPTZ NOT NULL,
	audit_updated_by TEXT NOT NULL DEFAULT '',
	audit_updated_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS tracking_periods (
	id                         TEXT PRIMARY KEY,
	household_id               TEXT NOT NULL REFERENCES households (id),
	began                      DATE NOT NULL,
	latest                     DATE NOT NULL CHECK (latest >= began),
	status                     TEXT NOT NULL CHECK (status IN ('PROGRESS', 'COMPLETE', 'VOID')),
	litres_per_person_per_week DOUBLE PRECISION NOT NULL DEFAULT 0,
	audit_created_by           TEXT NOT NULL,
	audit_created_at           TIMESTAMPTZ NOT NULL,
	audit_updated_by           TEXT NOT NULL DEFAULT '',
	audit_updated_at           TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_tracking_periods_household ON tracking_periods (household_id, began);
CREATE INDEX IF NOT EXISTS idx_tracking_periods_status_latest ON tracking_periods (status, latest);

CREATE TABLE IF NOT EXISTS waste_records (
	id                 TEXT PRIMARY KEY,
	business_key       TEXT NOT NULL UNIQUE,
	household_id       TEXT NOT NULL REFERENCES households (id),
	tracking_period_id TEXT NOT NULL REFERENCES tracking_periods (id),
	date               DATE NOT NULL,
	litres             DOUBLE PRECISION NOT NULL CHECK (litres >= 0),
	audit_created_by   TEXT NOT NULL,
	audit_created_at   TIMESTAMPTZ NOT NULL,
	UNIQUE (household_id, date)
);

CREATE INDEX IF NOT EXISTS idx_waste_records_period ON waste_records (tracking_period_id);

CREATE TABLE IF NOT EXISTS global_stats (
	id                         TEXT NOT NULL,
	version                    INTEGER NOT NULL,
	litres_per_person_per_week DOUBLE PRECISION NOT NULL,
	period_count               INTEGER NOT NULL,
	calculated_at              TIMESTAMPTZ NOT NULL,
	audit_created_by           TEXT NOT NULL,
	audit_created_at           TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (id, version)
);
`
