package watch

import (
	"reflect"
	"testing"
	"time"
)

func TestDebouncerSettles(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := newDebouncer(10 * time.Second)

	d.touch("/m/b.mkv", start)
	d.touch("/m/a.mkv", start)
	if got := d.due(start.Add(5 * time.Second)); len(got) != 0 {
		t.Fatalf("nothing should be due yet, got %v", got)
	}

	// Activity restarts the quiet period.
	d.touch("/m/b.mkv", start.Add(6*time.Second))
	if got := d.due(start.Add(10 * time.Second)); !reflect.DeepEqual(got, []string{"/m/a.mkv"}) {
		t.Fatalf("unexpected due set %v", got)
	}
	if got := d.due(start.Add(16 * time.Second)); !reflect.DeepEqual(got, []string{"/m/b.mkv"}) {
		t.Fatalf("unexpected due set %v", got)
	}
	if d.size() != 0 {
		t.Fatalf("expected empty debouncer, got %d", d.size())
	}
}

func TestDebouncerSuppress(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := newDebouncer(10 * time.Second)

	d.touch("/m/a.mkv", start)
	d.suppress("/m/a.mkv", start)
	if d.size() != 0 {
		t.Fatal("suppress should drop pending entry")
	}
	if d.touch("/m/a.mkv", start.Add(9*time.Second)) {
		t.Fatal("touch inside suppression window should be ignored")
	}
	if !d.touch("/m/a.mkv", start.Add(11*time.Second)) {
		t.Fatal("touch after suppression window should register")
	}
}

func TestDebouncerForget(t *testing.T) {
	start := time.Now()
	d := newDebouncer(time.Second)
	d.touch("/m/a.mkv", start)
	d.forget("/m/a.mkv")
	if got := d.due(start.Add(time.Hour)); len(got) != 0 {
		t.Fatalf("forgotten path should not be due, got %v", got)
	}
}
