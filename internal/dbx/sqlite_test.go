package dbx

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty becomes memory", "", "file::memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		{"plain file", "chat.db", "chat.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		{"existing query", "file:chat.db?mode=rwc", "file:chat.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		{"pragma already set", "chat.db?_pragma=foreign_keys(0)", "chat.db?_pragma=foreign_keys(0)&_pragma=busy_timeout(5000)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SQLiteDSN(tt.in))
		})
	}
}

func TestOpenSQLite_ForeignKeysOn(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var on int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&on))
	assert.Equal(t, 1, on)
}

func TestIsUniqueViolation(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE u (id TEXT PRIMARY KEY, email TEXT UNIQUE)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO u VALUES ('1', 'a@b.c')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO u VALUES ('2', 'a@b.c')`)
	assert.True(t, IsUniqueViolation(err), "unique column")

	_, err = db.Exec(`INSERT INTO u VALUES ('1', 'x@y.z')`)
	assert.True(t, IsUniqueViolation(err), "primary key")

	assert.False(t, IsUniqueViolation(errors.New("other")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestTimeRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 891011, time.FixedZone("x", 3600))
	got := TimeFromDB(TimeToDB(now))
	assert.True(t, now.Equal(got))
	assert.Equal(t, time.UTC, got.Location())
}
