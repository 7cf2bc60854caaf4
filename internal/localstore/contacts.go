package localstore

import (
	"database/sql"
	"fmt"
)

// Contact is one resolved identity row.
type Contact struct {
	ID          int64
	DisplayName string
	Number      string
	Email       string
}

// LookupContact resolves a phone number to a contact. Returns nil when the
// number is unknown.
func (db *DB) LookupContact(number string) (*Contact, error) {
	var c Contact
	err := db.QueryRow(`
		SELECT _id, display_name, number, email
		FROM contacts
		WHERE number = ?
		LIMIT 1`, number).
		Scan(&c.ID, &c.DisplayName, &c.Number, &c.Email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertContact inserts a contact, or updates name/email when the number is
// already known. Returns the contact's id either way.
func (db *DB) UpsertContact(c *Contact) (int64, error) {
	res, err := db.Exec(`
		UPDATE contacts SET display_name = ?, email = ?
		WHERE number = ?`,
		c.DisplayName, c.Email, c.Number)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		var id int64
		err := db.QueryRow(`SELECT _id FROM contacts WHERE number = ? LIMIT 1`, c.Number).Scan(&id)
		return id, err
	}
	res, err = db.Exec(`
		INSERT INTO contacts (display_name, number, email)
		VALUES (?, ?, ?)`,
		c.DisplayName, c.Number, c.Email)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GroupContactIDs returns the contact ids belonging to the named group.
// Returns (nil, nil) for the empty group name, meaning "everybody".
func (db *DB) GroupContactIDs(title string) ([]int64, error) {
	if title == "" {
		return nil, nil
	}
	rows, err := db.Query(`
		SELECT m.contact_id
		FROM contact_group_members m
		JOIN contact_groups g ON g._id = m.group_id
		WHERE g.title = ?
		ORDER BY m.contact_id`, title)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddToGroup puts a contact into the named group, creating the group when
// absent.
func (db *DB) AddToGroup(contactID int64, title string) error {
	if _, err := db.Exec(`INSERT OR IGNORE INTO contact_groups (title) VALUES (?)`, title); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	_, err := db.Exec(`
		INSERT OR IGNORE INTO contact_group_members (group_id, contact_id)
		SELECT _id, ? FROM contact_groups WHERE title = ?`, contactID, title)
	return err
}
