package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentPlatform(t *testing.T) {
	p := CurrentPlatform()

	assert.NotEmpty(t, p.OS)
	assert.NotEmpty(t, p.Arch)
	assert.Equal(t, NormalizeOS(runtime.GOOS), p.OS)
	assert.Equal(t, NormalizeArch(runtime.GOARCH), p.Arch)
	assert.Equal(t, p.OS+"/"+p.Arch, p.String())
}

func TestNormalizeOS(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"darwin", "macos"},
		{"Darwin", "macos"},
		{"win", "windows"},
		{"windows", "windows"},
		{"LINUX", "linux"},
		{"freebsd", "freebsd"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeOS(tt.in))
		})
	}
}

func TestNormalizeArch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"x86_64", "amd64"},
		{"x64", "amd64"},
		{"i686", "386"},
		{"aarch64", "arm64"},
		{"ARM", "arm"},
		{"riscv64", "riscv64"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeArch(tt.in))
		})
	}
}
