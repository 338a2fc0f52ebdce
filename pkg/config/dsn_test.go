package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDatabaseURL(t *testing.T) {
	parsed, err := ParseDatabaseURL("postgresql://app:s3cret@db:6543/peoplebase?sslmode=require&connect_timeout=5")
	require.NoError(t, err)

	assert.Equal(t, "db", parsed.Host)
	assert.Equal(t, 6543, parsed.Port)
	assert.Equal(t, "app", parsed.User)
	assert.Equal(t, "s3cret", parsed.Password)
	assert.Equal(t, "peoplebase", parsed.Database)
	assert.Equal(t, "require", parsed.SSLMode)
	assert.Equal(t, map[string]string{"connect_timeout": "5"}, parsed.Options)
}

func TestParseDatabaseURL_Defaults(t *testing.T) {
	parsed, err := ParseDatabaseURL("postgres://db/peoplebase")
	require.NoError(t, err)

	assert.Equal(t, 5432, parsed.Port)
	assert.Equal(t, "disable", parsed.SSLMode)
	assert.Empty(t, parsed.User)
}

func TestParseDatabaseURL_Errors(t *testing.T) {
	for _, raw := range []string{"", "mysql://db/x", "postgres://db:notaport/x"} {
		_, err := ParseDatabaseURL(raw)
		assert.Error(t, err, raw)
	}
}

func TestParsedDatabaseURL_ToDSN_StableOptionOrder(t *testing.T) {
	p := &ParsedDatabaseURL{
		Host: "h", Port: 1, User: "u", Password: "p", Database: "d", SSLMode: "disable",
		Options: map[string]string{"search_path": "cf", "application_name": "customfield"},
	}

	assert.Equal(t,
		"host=h port=1 user=u password=p dbname=d sslmode=disable application_name=customfield search_path=cf",
		p.ToDSN())
}
