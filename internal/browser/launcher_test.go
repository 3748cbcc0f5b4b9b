package browser

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

func TestLaunchSkipsWhenPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	l := NewLauncher(Config{CDPAddress: "127.0.0.1", CDPPort: port, Binary: "/nonexistent/chromium"})
	if err := l.Launch(context.Background()); err != nil {
		t.Fatalf("Launch() = %v; want nil when port is taken", err)
	}
	if l.Running() {
		t.Fatalf("Running() = true; want false for an external browser")
	}
	l.Stop()
}

func TestLaunchMissingBinary(t *testing.T) {
	l := NewLauncher(Config{
		CDPAddress:   "127.0.0.1",
		CDPPort:      freePort(t),
		ProfileDir:   t.TempDir(),
		Binary:       "/nonexistent/chromium",
		ReadyTimeout: time.Second,
	})
	if err := l.Launch(context.Background()); err == nil {
		t.Fatalf("Launch() = nil; want start error")
	}
	if l.Running() {
		t.Fatalf("Running() = true after failed start")
	}
}

func TestArgsAreHeadless(t *testing.T) {
	l := NewLauncher(Config{CDPAddress: "127.0.0.1", CDPPort: 9333, ProfileDir: "/tmp/p"})
	args := strings.Join(l.Args(), " ")
	for _, want := range []string{"--headless=new", "--remote-debugging-port=9333", "--user-data-dir=/tmp/p"} {
		if !strings.Contains(args, want) {
			t.Errorf("Args() missing %q in %q", want, args)
		}
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}
