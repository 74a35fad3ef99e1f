package config

import "testing"

func TestDefaultHasNoCachedIdentity(t *testing.T) {
	if Default().HasCachedIdentity() {
		t.Fatal("Default() should not carry a cached UID/nickname")
	}
}

func TestHasCachedIdentity(t *testing.T) {
	c := Default()
	c.UID = 42
	c.Nickname = "alice"
	if !c.HasCachedIdentity() {
		t.Fatal("HasCachedIdentity() = false with both UID and nickname set")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	c := Default()
	c.UID = 7
	c.Nickname = "bob"
	c.Servers = []ServerEntry{{Name: "main", Addr: "paltalk.example.com:5001"}}
	if err := Save(c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.UID != c.UID || got.Nickname != c.Nickname || len(got.Servers) != 1 {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, c)
	}
}
