package domain

import (
	"strings"
	"testing"
)

func TestSanitizeDeviceName(t *testing.T) {
	if got := SanitizeDeviceName("my-laptop"); got != "my-laptop" {
		t.Fatalf("got %q, want unchanged", got)
	}

	placeholder := SanitizeDeviceName("")
	if !strings.HasPrefix(placeholder, "Device_") || len(placeholder) != len("Device_")+8 {
		t.Fatalf("placeholder=%q, want Device_ plus 8 chars", placeholder)
	}
	if other := SanitizeDeviceName(""); other == placeholder {
		t.Fatalf("placeholders collide: %q", placeholder)
	}

	long := strings.Repeat("x", MaxDeviceNameLen+10)
	if got := SanitizeDeviceName(long); len(got) != MaxDeviceNameLen {
		t.Fatalf("len=%d, want %d", len(got), MaxDeviceNameLen)
	}
}

func TestSanitizeRoomID(t *testing.T) {
	if got := SanitizeRoomID(""); got != DefaultRoom {
		t.Fatalf("got %q, want %q", got, DefaultRoom)
	}
	if got := SanitizeRoomID("lobby"); got != "lobby" {
		t.Fatalf("got %q, want lobby", got)
	}
	long := strings.Repeat("r", MaxRoomIDLen+1)
	if got := SanitizeRoomID(long); len(got) != MaxRoomIDLen {
		t.Fatalf("len=%d, want %d", len(got), MaxRoomIDLen)
	}
}

func TestNewConnIDUnique(t *testing.T) {
	a, b := NewConnID(), NewConnID()
	if a == b {
		t.Fatalf("ids collide: %s", a)
	}
	if a == "" {
		t.Fatal("empty id")
	}
}
