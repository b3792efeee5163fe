package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func lookupFrom(env map[string]string) func(string) string {
	return func(key string) string { return env[key] }
}

func TestDetectBackend(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want BackendKind
	}{
		{
			name: "hyprland signature",
			env:  map[string]string{"HYPRLAND_INSTANCE_SIGNATURE": "abc123"},
			want: BackendHyprland,
		},
		{
			name: "sway socket",
			env:  map[string]string{"SWAYSOCK": "/run/user/1000/sway-ipc.sock"},
			want: BackendSway,
		},
		{
			name: "kde desktop name",
			env:  map[string]string{"XDG_CURRENT_DESKTOP": "KDE"},
			want: BackendKDE,
		},
		{
			name: "plasma session name",
			env:  map[string]string{"XDG_SESSION_DESKTOP": "plasmawayland"},
			want: BackendKDE,
		},
		{
			name: "gnome desktop name",
			env:  map[string]string{"XDG_CURRENT_DESKTOP": "ubuntu:GNOME"},
			want: BackendGNOME,
		},
		{
			name: "gnome session name",
			env:  map[string]string{"XDG_SESSION_DESKTOP": "gnome-xorg"},
			want: BackendGNOME,
		},
		{
			name: "no markers",
			env:  map[string]string{},
			want: BackendUnknown,
		},
		{
			name: "unrecognized desktop",
			env:  map[string]string{"XDG_CURRENT_DESKTOP": "XFCE"},
			want: BackendUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectBackend(lookupFrom(tt.env)))
		})
	}
}

// Some environments set several markers at once; the compositor-specific
// ones must win over the desktop-name heuristics.
func TestDetectBackendPrecedence(t *testing.T) {
	env := map[string]string{
		"HYPRLAND_INSTANCE_SIGNATURE": "sig",
		"SWAYSOCK":                    "/run/sway.sock",
		"XDG_CURRENT_DESKTOP":         "KDE",
	}
	assert.Equal(t, BackendHyprland, detectBackend(lookupFrom(env)))

	delete(env, "HYPRLAND_INSTANCE_SIGNATURE")
	assert.Equal(t, BackendSway, detectBackend(lookupFrom(env)))

	delete(env, "SWAYSOCK")
	assert.Equal(t, BackendKDE, detectBackend(lookupFrom(env)))
}

func TestBackendKindString(t *testing.T) {
	assert.Equal(t, "kde", BackendKDE.String())
	assert.Equal(t, "gnome", BackendGNOME.String())
	assert.Equal(t, "hyprland", BackendHyprland.String())
	assert.Equal(t, "sway", BackendSway.String())
	assert.Equal(t, "unknown", BackendUnknown.String())
}
