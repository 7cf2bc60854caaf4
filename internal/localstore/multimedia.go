package localstore

// Address kinds used in the multimedia_addresses table.
const (
	MultimediaAddrFrom = 137
	MultimediaAddrTo   = 151
)

// MultimediaDetails is everything needed to render one multimedia message
// beyond its base row.
type MultimediaDetails struct {
	Inbound    bool
	Address    string
	Recipients []string
	Body       string
}

// MultimediaDetails resolves the sender, recipients and concatenated text
// parts of a multimedia message. Inbound is decided by the presence of a
// sender address distinct from the owner marker.
func (db *DB) MultimediaDetails(id int64, owner string) (*MultimediaDetails, error) {
	rows, err := db.Query(
		`SELECT address, kind FROM multimedia_addresses WHERE message_id = ? ORDER BY kind, address`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	d := &MultimediaDetails{}
	for rows.Next() {
		var addr string
		var kind int
		if err := rows.Scan(&addr, &kind); err != nil {
			return nil, err
		}
		switch kind {
		case MultimediaAddrFrom:
			if addr != owner {
				d.Inbound = true
				d.Address = addr
			}
		case MultimediaAddrTo:
			d.Recipients = append(d.Recipients, addr)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !d.Inbound && len(d.Recipients) > 0 {
		d.Address = d.Recipients[0]
	}

	parts, err := db.Query(
		`SELECT text FROM multimedia_parts WHERE message_id = ? AND content_type LIKE 'text/%' AND text IS NOT NULL ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer parts.Close()
	for parts.Next() {
		var text string
		if err := parts.Scan(&text); err != nil {
			return nil, err
		}
		if d.Body != "" {
			d.Body += "\n"
		}
		d.Body += text
	}
	return d, parts.Err()
}
