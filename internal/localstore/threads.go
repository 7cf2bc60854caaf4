package localstore

import (
	"database/sql"
	"fmt"
)

// ThreadID returns the conversation thread id for an address, creating the
// thread row when absent.
func (db *DB) ThreadID(address string) (int64, error) {
	var id int64
	err := db.QueryRow(`SELECT _id FROM threads WHERE address = ?`, address).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	res, err := db.Exec(`INSERT INTO threads (address) VALUES (?)`, address)
	if err != nil {
		return 0, fmt.Errorf("create thread: %w", err)
	}
	return res.LastInsertId()
}

// DeleteConversation removes one conversation thread. A negative id is the
// recompute sentinel: thread dates, counts and snippets are rebuilt from the
// messages table instead of deleting anything the user can see.
func (db *DB) DeleteConversation(threadID int64) error {
	if threadID >= 0 {
		_, err := db.Exec(`DELETE FROM threads WHERE _id = ?`, threadID)
		return err
	}
	return db.recomputeThreads()
}

func (db *DB) recomputeThreads() error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Make sure every address present in messages has a thread row, then
	// reassign messages and refresh the per-thread aggregates.
	if _, err := tx.Exec(`
		INSERT OR IGNORE INTO threads (address)
		SELECT DISTINCT address FROM messages WHERE address != ''`); err != nil {
		return fmt.Errorf("ensure threads: %w", err)
	}
	if _, err := tx.Exec(`
		UPDATE messages SET thread_id = (SELECT t._id FROM threads t WHERE t.address = messages.address)
		WHERE address != ''`); err != nil {
		return fmt.Errorf("reassign messages: %w", err)
	}
	if _, err := tx.Exec(`
		UPDATE threads SET
			message_count = (SELECT COUNT(*) FROM messages m WHERE m.thread_id = threads._id),
			date = COALESCE((SELECT MAX(m.date) FROM messages m WHERE m.thread_id = threads._id), 0),
			snippet = (SELECT m.body FROM messages m WHERE m.thread_id = threads._id ORDER BY m.date DESC LIMIT 1)`); err != nil {
		return fmt.Errorf("refresh aggregates: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM threads WHERE message_count = 0`); err != nil {
		return fmt.Errorf("prune empty threads: %w", err)
	}
	return tx.Commit()
}

// ThreadCount returns the number of conversation threads.
func (db *DB) ThreadCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM threads`).Scan(&count)
	return count, err
}
