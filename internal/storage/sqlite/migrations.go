package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Amounts are stored as TEXT so decimals round-trip exactly.
const schema = `
CREATE TABLE IF NOT EXISTS rooms (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    creator_id TEXT NOT NULL,
    currency TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS participants (
    id TEXT PRIMARY KEY,
    room_id TEXT NOT NULL,
    display_name TEXT NOT NULL,
    payee_identifier TEXT NOT NULL,
    joined_at INTEGER NOT NULL,
    position INTEGER NOT NULL,
    FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS receipts (
    room_id TEXT PRIMARY KEY,
    service_charge TEXT NOT NULL,
    net_amount TEXT NOT NULL,
    FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS receipt_taxes (
    room_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    amount TEXT NOT NULL,
    PRIMARY KEY (room_id, position),
    FOREIGN KEY (room_id) REFERENCES receipts(room_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS receipt_items (
    room_id TEXT NOT NULL,
    item_index INTEGER NOT NULL,
    name TEXT NOT NULL,
    quantity TEXT NOT NULL,
    unit_price TEXT NOT NULL,
    line_total TEXT NOT NULL,
    PRIMARY KEY (room_id, item_index),
    FOREIGN KEY (room_id) REFERENCES receipts(room_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS item_tags (
    room_id TEXT NOT NULL,
    item_index INTEGER NOT NULL,
    participant_id TEXT NOT NULL,
    PRIMARY KEY (room_id, item_index, participant_id),
    FOREIGN KEY (room_id, item_index) REFERENCES receipt_items(room_id, item_index) ON DELETE CASCADE,
    FOREIGN KEY (participant_id) REFERENCES participants(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_participants_room_id ON participants(room_id);
CREATE INDEX IF NOT EXISTS idx_item_tags_room_id ON item_tags(room_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
