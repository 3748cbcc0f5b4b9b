package rasterize

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

func TestDocumentEmbedsSVG(t *testing.T) {
	doc := Document(`<svg width="10" height="10"></svg>`)
	if !strings.Contains(doc, `<body><svg width="10" height="10"></svg></body>`) {
		t.Fatalf("Document() = %q; want svg inside body", doc)
	}
	if !strings.HasPrefix(doc, "<!DOCTYPE html>") {
		t.Fatalf("Document() missing doctype: %q", doc)
	}
}

func TestRasterizeRejectsBadSize(t *testing.T) {
	c := NewChrome("http://127.0.0.1:1", time.Second)
	defer c.Close()
	if _, err := c.Rasterize(context.Background(), "<svg/>", 0, 10); err == nil {
		t.Fatal("Rasterize() error = nil; want size error")
	}
}

func TestRasterizeAfterClose(t *testing.T) {
	c := NewChrome("http://127.0.0.1:1", time.Second)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if _, err := c.Rasterize(context.Background(), "<svg/>", 10, 10); !errors.Is(err, ErrClosed) {
		t.Fatalf("Rasterize() error = %v; want ErrClosed", err)
	}
}

func TestRasterizeUnreachableBrowser(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	c := NewChrome("http://"+addr, 2*time.Second)
	defer c.Close()
	if _, err := c.Rasterize(context.Background(), "<svg/>", 10, 10); err == nil {
		t.Fatal("Rasterize() error = nil; want connection error")
	}
}
