package sqlite

const schemaRooms = `
CREATE TABLE IF NOT EXISTS rooms (
	room_id TEXT PRIMARY KEY,
	video_id TEXT NOT NULL,
	video_title TEXT NOT NULL DEFAULT '',
	video_author TEXT NOT NULL DEFAULT '',
	video_thumbnail_url TEXT NOT NULL DEFAULT '',
	host_username TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	player_status INTEGER NOT NULL DEFAULT -1,
	player_time REAL NOT NULL DEFAULT 0,
	player_seq INTEGER NOT NULL DEFAULT 0,
	player_updated_at INTEGER NOT NULL DEFAULT 0,
	host_id TEXT NOT NULL DEFAULT '',
	host_expires_at INTEGER NOT NULL DEFAULT 0
);`

const schemaRoomsIndexes = `
CREATE INDEX IF NOT EXISTS idx_rooms_created_at ON rooms(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_rooms_expires_at ON rooms(expires_at);`

const schemaParticipants = `
CREATE TABLE IF NOT EXISTS participants (
	room_id TEXT NOT NULL,
	participant_id TEXT NOT NULL,
	username TEXT NOT NULL,
	joined_at INTEGER NOT NULL,
	PRIMARY KEY (room_id, participant_id),
	FOREIGN KEY (room_id) REFERENCES rooms(room_id) ON DELETE CASCADE
);`

const schemaMessages = `
CREATE TABLE IF NOT EXISTS messages (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL,
	room_id TEXT NOT NULL,
	participant_id TEXT NOT NULL,
	username TEXT NOT NULL,
	message TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	FOREIGN KEY (room_id) REFERENCES rooms(room_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_messages_room_id ON messages(room_id, seq);`

const schemaReactions = `
CREATE TABLE IF NOT EXISTS reactions (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL,
	room_id TEXT NOT NULL,
	emoji TEXT NOT NULL,
	x REAL NOT NULL,
	y REAL NOT NULL,
	created_at INTEGER NOT NULL,
	FOREIGN KEY (room_id) REFERENCES rooms(room_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_reactions_room_id ON reactions(room_id, created_at);`

func (s *Store) EnsureSchema() error {
	for _, stmt := range []string{
		`PRAGMA foreign_keys = ON;`,
		schemaRooms,
		schemaRoomsIndexes,
		schemaParticipants,
		schemaMessages,
		schemaReactions,
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
