package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS materialization_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    tag_generator INTEGER NOT NULL DEFAULT 0,
    config_json TEXT NOT NULL DEFAULT '{}',
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS replay_paths (
    node_index INTEGER PRIMARY KEY,
    -- lz4-compressed JSON array of PathRecord entries for this node.
    blob BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS redundant_partial (
    partial_node INTEGER PRIMARY KEY,
    full_node INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS commit_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    partial_node_count INTEGER NOT NULL,
    tag_generator INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS diagnostics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    captured_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    reason TEXT NOT NULL,
    -- zstd-compressed Graphviz DOT dump.
    graphviz BLOB NOT NULL
);
`
