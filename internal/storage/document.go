package storage

// Document is one stored catalog document. Body holds the full JSON document;
// the other columns are copies of its lookup keys.
type Document struct {
	Collection string `db:"collection"`
	ID         string `db:"id"`
	AppURL     string `db:"app_url"`
	AppID      string `db:"app_id"`
	Country    string `db:"country"`
	Body       string `db:"body"`
	ModifiedAt string `db:"modified_at"` // "2006-01-02 15:04:05", sorts lexically
}

// Filter selects documents by exact key match. Empty fields are ignored.
type Filter struct {
	AppURL  string
	AppID   string
	Country string
}
