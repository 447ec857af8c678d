package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveHost(t *testing.T) {
	tests := []struct {
		host   string
		docker bool
		want   string
	}{
		{"localhost", true, "host.docker.internal"},
		{"127.0.0.1", true, "host.docker.internal"},
		{"::1", true, "host.docker.internal"},
		{"db.internal", true, "db.internal"},
		{"localhost", false, "localhost"},
		{"192.168.1.100", false, "192.168.1.100"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveHost(tt.host, tt.docker), "%s docker=%v", tt.host, tt.docker)
	}
}

func TestResolveHostForDocker_KeepsRemoteHosts(t *testing.T) {
	assert.Equal(t, "mydb.example.com", ResolveHostForDocker("mydb.example.com"))
}
