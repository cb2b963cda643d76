package tool

import "testing"

func TestGrantsSetGetClear(t *testing.T) {
	t.Parallel()

	g := NewGrants()
	if _, ok := g.Get("bash"); ok {
		t.Fatal("empty store returned a grant")
	}

	g.Set("bash", GrantAlwaysDeny)
	g.Set("bash", GrantAlwaysAllow)
	grant, ok := g.Get("bash")
	if !ok || grant != GrantAlwaysAllow {
		t.Fatalf("grant = %s, %v; want always_allow", grant, ok)
	}
	if g.Len() != 1 {
		t.Fatalf("len = %d, want 1", g.Len())
	}

	g.Clear()
	if g.Len() != 0 {
		t.Fatal("clear left grants behind")
	}
}

func TestGrantsSnapshotRestore(t *testing.T) {
	t.Parallel()

	g := NewGrants()
	g.Set("calculator", GrantAlwaysAllow)
	g.Set("bash", GrantAlwaysDeny)

	snapshot := g.Snapshot()
	snapshot["calculator"] = GrantAlwaysDeny
	if grant, _ := g.Get("calculator"); grant != GrantAlwaysAllow {
		t.Fatal("snapshot shares state with store")
	}

	restored := NewGrants()
	restored.Restore(g.Snapshot())
	if restored.Len() != 2 {
		t.Fatalf("restored len = %d, want 2", restored.Len())
	}
	if grant, _ := restored.Get("bash"); grant != GrantAlwaysDeny {
		t.Fatalf("restored bash grant = %s", grant)
	}
}
