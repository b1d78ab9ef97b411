package mysql

const insertSearchSQL = `
INSERT INTO search_events
  (client_id, destination, constraints, fetched, shown, duration_ms)
VALUES
  (?, ?, ?, ?, ?, ?)
`

const insertFailureSQL = `
INSERT INTO fetch_failures (client_id, reason)
VALUES (?, ?)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// Most recent searches of one client, newest first.
const recentSearchesSQL = `
SELECT id, client_id, destination, constraints, fetched, shown, duration_ms, created_at
FROM search_events
WHERE client_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`
