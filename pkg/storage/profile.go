package storage

import (
	"database/sql"
	"time"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/registry"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	"github.com/pkg/errors"
)

var _ registry.Persister = (*DB)(nil)

// ===== PROFILE =====

// SaveProfile replaces the stored profile
func (db *DB) SaveProfile(p toxnet.Profile, nospam uint32) error {
	query := `
		INSERT INTO profile (id, name, status, status_message, nospam, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			status_message = excluded.status_message,
			nospam = excluded.nospam,
			updated_at = excluded.updated_at
	`
	_, err := db.db.Exec(query, p.Name, string(p.Status), p.StatusMessage, int64(nospam), time.Now().Unix())
	return errors.Wrap(err, "failed to save profile")
}

// LoadProfile returns the stored profile or ErrNotFound
func (db *DB) LoadProfile() (toxnet.Profile, uint32, error) {
	var p toxnet.Profile
	var status string
	var nospam int64

	err := db.db.QueryRow(`SELECT name, status, status_message, nospam FROM profile WHERE id = 1`).
		Scan(&p.Name, &status, &p.StatusMessage, &nospam)
	if err == sql.ErrNoRows {
		return p, 0, ErrNotFound
	}
	if err != nil {
		return p, 0, errors.Wrap(err, "failed to load profile")
	}
	p.Status = protocol.UserStatus(status)
	return p, uint32(nospam), nil
}

// ===== FRIENDS =====

// SaveFriend adds or updates a friend
func (db *DB) SaveFriend(f registry.SavedFriend) error {
	query := `
		INSERT INTO friends (
			public_key, number, nospam, name, status, status_message, last_online
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(public_key) DO UPDATE SET
			nospam = excluded.nospam,
			name = excluded.name,
			status = excluded.status,
			status_message = excluded.status_message,
			last_online = excluded.last_online
	`
	var lastOnline int64
	if !f.LastOnline.IsZero() {
		lastOnline = f.LastOnline.Unix()
	}
	_, err := db.db.Exec(
		query,
		f.PublicKey[:],
		int64(f.Number),
		int64(f.Nospam),
		f.Name,
		string(f.Status),
		f.StatusMessage,
		lastOnline,
	)
	return errors.Wrapf(err, "failed to save friend %d", f.Number)
}

// DeleteFriend removes a friend
func (db *DB) DeleteFriend(pk crypto.PublicKey) error {
	_, err := db.db.Exec(`DELETE FROM friends WHERE public_key = ?`, pk[:])
	return errors.Wrap(err, "failed to delete friend")
}

// Friends returns every stored friend ordered by number
func (db *DB) Friends() ([]registry.SavedFriend, error) {
	rows, err := db.db.Query(`
		SELECT public_key, number, nospam, name, status, status_message, last_online
		FROM friends ORDER BY number ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query friends")
	}
	defer rows.Close()

	friends := make([]registry.SavedFriend, 0)
	for rows.Next() {
		var f registry.SavedFriend
		var pk []byte
		var number, nospam, lastOnline int64
		var status string

		if err := rows.Scan(&pk, &number, &nospam, &f.Name, &status, &f.StatusMessage, &lastOnline); err != nil {
			return nil, errors.Wrap(err, "failed to scan friend")
		}
		if len(pk) != crypto.PublicKeySize {
			return nil, errors.Errorf("stored friend %d has a %d byte key", number, len(pk))
		}
		copy(f.PublicKey[:], pk)
		f.Number = uint32(number)
		f.Nospam = uint32(nospam)
		f.Status = protocol.UserStatus(status)
		if lastOnline > 0 {
			f.LastOnline = time.Unix(lastOnline, 0)
		}
		friends = append(friends, f)
	}
	return friends, errors.Wrap(rows.Err(), "failed to read friends")
}

// Load returns the full registry state. It reports false when nothing was
// stored yet.
func (db *DB) Load() (registry.State, bool, error) {
	profile, nospam, err := db.LoadProfile()
	if errors.Is(err, ErrNotFound) {
		return registry.State{}, false, nil
	}
	if err != nil {
		return registry.State{}, false, err
	}
	friends, err := db.Friends()
	if err != nil {
		return registry.State{}, false, err
	}
	return registry.State{Profile: profile, Nospam: nospam, Friends: friends}, true, nil
}
