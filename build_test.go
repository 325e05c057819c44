package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-stack/internal/stack"
)

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*StackSettings)
		wantErr string
	}{
		{name: "defaults", mutate: func(*StackSettings) {}},
		{name: "x86", mutate: func(s *StackSettings) { s.Architecture = "x86_64" }},
		{name: "image", mutate: func(s *StackSettings) { s.Packaging = packagingImage }},
		{name: "bad architecture", mutate: func(s *StackSettings) { s.Architecture = "amd64" }, wantErr: "unknown architecture"},
		{name: "bad packaging", mutate: func(s *StackSettings) { s.Packaging = "tar" }, wantErr: "unknown packaging"},
		{name: "bad log level", mutate: func(s *StackSettings) { s.LogLevel = "loud" }, wantErr: "unknown log level"},
		{name: "empty stage", mutate: func(s *StackSettings) { s.Stage = "" }, wantErr: "stage name required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := defaultSettings()
			tt.mutate(&s)
			err := s.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestGoarch(t *testing.T) {
	arch, err := goarch("arm64")
	require.NoError(t, err)
	assert.Equal(t, "arm64", arch)

	arch, err = goarch("x86_64")
	require.NoError(t, err)
	assert.Equal(t, "amd64", arch)

	_, err = goarch("riscv")
	assert.Error(t, err)
}

func TestBuildCommand(t *testing.T) {
	unit, ok := stack.Default().Unit("store")
	require.True(t, ok)

	assert.Equal(t,
		"rm -rf asset/store && mkdir -p asset/store && "+
			"GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -mod=readonly -tags lambda.norpc -o ./asset/store/bootstrap ./cmd/store-service && "+
			"chmod +x ./asset/store/bootstrap",
		buildCommand(unit, "arm64"))
}

func TestResourceName(t *testing.T) {
	assert.Equal(t, "path-users", resourceName("/users"))
	assert.Equal(t, "path-api-v1-orders", resourceName("/api/v1/orders"))
	assert.Equal(t, "path-users-proxy", resourceName("/users/{proxy+}"))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestHashSources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "svc", "main.go"), "package main\n")
	writeFile(t, filepath.Join(dir, "lib", "lib.go"), "package lib\n")

	first, err := hashSources(filepath.Join(dir, "svc"), filepath.Join(dir, "lib"))
	require.NoError(t, err)
	assert.Len(t, first, 64)

	again, err := hashSources(filepath.Join(dir, "svc"), filepath.Join(dir, "lib"))
	require.NoError(t, err)
	assert.Equal(t, first, again)

	// Tests and non-Go files are not part of the binary.
	writeFile(t, filepath.Join(dir, "lib", "lib_test.go"), "package lib\n")
	writeFile(t, filepath.Join(dir, "lib", "README.md"), "docs\n")
	unchanged, err := hashSources(filepath.Join(dir, "svc"), filepath.Join(dir, "lib"))
	require.NoError(t, err)
	assert.Equal(t, first, unchanged)

	writeFile(t, filepath.Join(dir, "lib", "lib.go"), "package lib\n\nconst X = 1\n")
	changed, err := hashSources(filepath.Join(dir, "svc"), filepath.Join(dir, "lib"))
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)

	_, err = hashSources(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestRouteFor(t *testing.T) {
	decl := stack.Default()
	unit, ok := decl.Unit("order")
	require.True(t, ok)

	route, err := routeFor(decl, unit)
	require.NoError(t, err)
	assert.Equal(t, "/orders", route.PathPrefix)

	decl.Routes = decl.Routes[:2]
	_, err = routeFor(decl, unit)
	assert.ErrorIs(t, err, stack.ErrUnroutedService)
}
