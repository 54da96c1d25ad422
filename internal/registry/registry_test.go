package registry

import "testing"

func TestSetStatusUpsertsAndSnapshotIsSorted(t *testing.T) {
	r := New(nil)

	r.SetStatus("zebra", Online)
	r.SetStatus("alpha", Starting)
	r.SetStatus("mango", Online)

	got := r.Snapshot()
	want := []Entry{
		{Name: "alpha", Status: Starting},
		{Name: "mango", Status: Online},
		{Name: "zebra", Status: Online},
	}

	if len(got) != len(want) {
		t.Fatalf("Snapshot() len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSetStatusOfflineRemoves(t *testing.T) {
	r := New(nil)

	r.SetStatus("m-0", Online)
	if _, ok := r.Lookup("m-0"); !ok {
		t.Fatal("expected m-0 to be present after SetStatus(Online)")
	}

	r.SetStatus("m-0", Offline)
	if _, ok := r.Lookup("m-0"); ok {
		t.Fatal("expected m-0 to be removed after SetStatus(Offline)")
	}

	got := r.Snapshot()
	if len(got) != 0 {
		t.Fatalf("expected empty snapshot after Offline removal, got %v", got)
	}
}

func TestSetStatusOverwritesExisting(t *testing.T) {
	r := New(nil)

	r.SetStatus("m-0", Starting)
	r.SetStatus("m-0", Online)

	status, ok := r.Lookup("m-0")
	if !ok || status != Online {
		t.Fatalf("Lookup(m-0) = (%v, %v), want (Online, true)", status, ok)
	}
}

func TestLookupMissingName(t *testing.T) {
	r := New(nil)
	if _, ok := r.Lookup("nope"); ok {
		t.Fatal("expected ok=false for a name never recorded")
	}
}

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		Starting: "starting",
		Online:   "online",
		Offline:  "offline",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}
