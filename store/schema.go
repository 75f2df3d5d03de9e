package store

// Schema is the DDL for the reference engine: the base `otel_spans` table
// and the `otel_spans_v` deduplicated view (spec §3.2, §4.6). DuckDB is the
// production columnar engine (external collaborator per spec §1); this
// schema targets the sqlite reference engine the in-repo tests run
// against, using the same table/view names and column set a production
// DuckDB deployment would. The dedup package applies the §4.7 attribution
// filter in Go over rows read back from this schema, rather than as SQL
// run against it.
const Schema = `
CREATE TABLE IF NOT EXISTS otel_spans (
	project_id         TEXT NOT NULL,
	trace_id           TEXT NOT NULL,
	span_id            TEXT NOT NULL,
	parent_span_id     TEXT,

	timestamp_start    INTEGER NOT NULL,
	timestamp_end      INTEGER,
	duration_ms        INTEGER NOT NULL DEFAULT 0,
	ingested_at        INTEGER NOT NULL,

	span_name          TEXT NOT NULL DEFAULT '',
	span_kind          TEXT NOT NULL DEFAULT '',
	span_category      TEXT NOT NULL DEFAULT '',
	observation_type   TEXT NOT NULL DEFAULT 'span',
	framework          TEXT,
	status_code        TEXT NOT NULL DEFAULT '',
	environment        TEXT,
	session_id         TEXT,
	user_id            TEXT,

	gen_ai_system         TEXT,
	gen_ai_request_model  TEXT,
	gen_ai_agent_name     TEXT,
	finish_reasons        TEXT,
	input_tokens          INTEGER NOT NULL DEFAULT 0,
	output_tokens         INTEGER NOT NULL DEFAULT 0,
	total_tokens          INTEGER NOT NULL DEFAULT 0,
	cache_read_tokens     INTEGER NOT NULL DEFAULT 0,
	cache_write_tokens    INTEGER NOT NULL DEFAULT 0,
	reasoning_tokens      INTEGER NOT NULL DEFAULT 0,
	input_cost            REAL NOT NULL DEFAULT 0,
	output_cost           REAL NOT NULL DEFAULT 0,
	cache_read_cost       REAL NOT NULL DEFAULT 0,
	cache_write_cost      REAL NOT NULL DEFAULT 0,
	reasoning_cost        REAL NOT NULL DEFAULT 0,
	total_cost            REAL NOT NULL DEFAULT 0,
	temperature           REAL,
	top_p                 REAL,
	max_tokens            INTEGER,

	input_preview      TEXT NOT NULL DEFAULT '',
	output_preview     TEXT NOT NULL DEFAULT '',
	raw_span           TEXT NOT NULL DEFAULT '{}',
	metadata           TEXT NOT NULL DEFAULT '{}',
	tags               TEXT NOT NULL DEFAULT '[]',

	PRIMARY KEY (project_id, trace_id, span_id, ingested_at)
);

CREATE INDEX IF NOT EXISTS idx_otel_spans_trace ON otel_spans (project_id, trace_id);
CREATE INDEX IF NOT EXISTS idx_otel_spans_session ON otel_spans (project_id, session_id);
CREATE INDEX IF NOT EXISTS idx_otel_spans_ingested ON otel_spans (project_id, ingested_at, span_id);

DROP VIEW IF EXISTS otel_spans_v;
CREATE VIEW otel_spans_v AS
SELECT s.*
FROM otel_spans s
INNER JOIN (
	SELECT project_id, trace_id, span_id, MAX(ingested_at) AS max_ingested_at
	FROM otel_spans
	GROUP BY project_id, trace_id, span_id
) latest
ON s.project_id = latest.project_id
AND s.trace_id = latest.trace_id
AND s.span_id = latest.span_id
AND s.ingested_at = latest.max_ingested_at;
`
