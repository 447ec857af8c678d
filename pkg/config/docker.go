package config

import (
	"os"
	"sync"
)

// dockerMarker exists in every Docker container.
const dockerMarker = "/.dockerenv"

var inDocker = sync.OnceValue(func() bool {
	_, err := os.Stat(dockerMarker)
	return err == nil
})

// IsRunningInDocker reports whether the process runs inside a Docker container.
func IsRunningInDocker() bool {
	return inDocker()
}

// ResolveHostForDocker maps a loopback datasource host to host.docker.internal
// when running in Docker, so a database on the host machine stays reachable.
func ResolveHostForDocker(host string) string {
	return resolveHost(host, IsRunningInDocker())
}

func resolveHost(host string, docker bool) string {
	if !docker {
		return host
	}
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return "host.docker.internal"
	}
	return host
}
