package postgres

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-query/pkg/config"
)

func TestBuildConnectionString(t *testing.T) {
	if config.IsRunningInDocker() {
		t.Skip("host rewriting applies inside Docker")
	}

	connStr, err := buildConnectionString(datasource.Config{
		Host:           "db.internal",
		User:           "report@reader",
		Password:       "p@ss/w#rd?",
		Database:       "hr",
		ConnectTimeout: 5 * time.Second,
		Options:        map[string]string{"application_name": "ekaya-query"},
	})
	require.NoError(t, err)

	u, err := url.Parse(connStr)
	require.NoError(t, err)
	assert.Equal(t, "postgresql", u.Scheme)
	assert.Equal(t, "db.internal:5432", u.Host)
	assert.Equal(t, "report@reader", u.User.Username())
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss/w#rd?", password)
	assert.Equal(t, "/hr", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
	assert.Equal(t, "5", u.Query().Get("connect_timeout"))
	assert.Equal(t, "ekaya-query", u.Query().Get("application_name"))
}

func TestBuildConnectionString_Required(t *testing.T) {
	tests := []struct {
		name    string
		cfg     datasource.Config
		wantErr string
	}{
		{name: "host", cfg: datasource.Config{User: "u", Database: "d"}, wantErr: "host is required"},
		{name: "user", cfg: datasource.Config{Host: "h", Database: "d"}, wantErr: "user is required"},
		{name: "database", cfg: datasource.Config{Host: "h", User: "u"}, wantErr: "database is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildConnectionString(tt.cfg)
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestRegistered(t *testing.T) {
	reg, ok := datasource.GetRegistration("postgres")
	require.True(t, ok)
	assert.Equal(t, "postgres", reg.Info.Dialect)
	assert.NotNil(t, reg.Open)
}
