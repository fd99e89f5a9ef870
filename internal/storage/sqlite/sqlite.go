// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/splitroom/internal/models"
	"github.com/mmynk/splitroom/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection keeps toggles strictly ordered.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRoom persists a new room and its initial participants.
func (s *SQLiteStore) CreateRoom(ctx context.Context, room *models.Room) error {
	// Generate IDs if not set
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	if room.CreatedAt == 0 {
		room.CreatedAt = time.Now().Unix()
	}
	now := time.Now().UTC()
	for i := range room.Participants {
		p := &room.Participants[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.JoinedAt.IsZero() {
			p.JoinedAt = now
		}
	}
	if room.CreatorID == "" && len(room.Participants) > 0 {
		room.CreatorID = room.Participants[0].ID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO rooms (id, name, creator_id, currency, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		room.ID, room.Name, room.CreatorID, room.Currency, room.IsActive, room.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert room: %w", err)
	}

	for i, p := range room.Participants {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO participants (id, room_id, display_name, payee_identifier, joined_at, position) VALUES (?, ?, ?, ?, ?, ?)",
			p.ID, room.ID, p.DisplayName, p.PayeeIdentifier, p.JoinedAt.UnixMilli(), i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRoom retrieves a room by ID, including its participants.
func (s *SQLiteStore) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	return getRoom(ctx, s.db, roomID)
}

func getRoom(ctx context.Context, q queryer, roomID string) (*models.Room, error) {
	room := &models.Room{}
	err := q.QueryRowContext(ctx,
		"SELECT id, name, creator_id, currency, is_active, created_at FROM rooms WHERE id = ?",
		roomID,
	).Scan(&room.ID, &room.Name, &room.CreatorID, &room.Currency, &room.IsActive, &room.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("room %s: %w", roomID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		"SELECT id, display_name, payee_identifier, joined_at FROM participants WHERE room_id = ? ORDER BY position",
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p        models.Participant
			joinedAt int64
		)
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.PayeeIdentifier, &joinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		p.JoinedAt = time.UnixMilli(joinedAt).UTC()
		room.Participants = append(room.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return room, nil
}

// AddParticipant appends a participant to an active room.
func (s *SQLiteStore) AddParticipant(ctx context.Context, roomID string, p *models.Participant) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var active bool
	err = tx.QueryRowContext(ctx, "SELECT is_active FROM rooms WHERE id = ?", roomID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("room %s: %w", roomID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}
	if !active {
		return fmt.Errorf("room %s: %w", roomID, storage.ErrRoomInactive)
	}

	var position int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM participants WHERE room_id = ?", roomID).Scan(&position); err != nil {
		return fmt.Errorf("failed to count participants: %w", err)
	}

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO participants (id, room_id, display_name, payee_identifier, joined_at, position) VALUES (?, ?, ?, ?, ?, ?)",
		p.ID, roomID, p.DisplayName, p.PayeeIdentifier, p.JoinedAt.UnixMilli(), position,
	)
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetRoomActive opens or closes a room.
func (s *SQLiteStore) SetRoomActive(ctx context.Context, roomID string, active bool) error {
	result, err := s.db.ExecContext(ctx, "UPDATE rooms SET is_active = ? WHERE id = ?", active, roomID)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("room %s: %w", roomID, storage.ErrNotFound)
	}
	return nil
}
