package orchestrator

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/ShayCichocki/orcbot/pkg/models"
)

func TestAgentRegistry_Create(t *testing.T) {
	dir := t.TempDir()
	r := NewAgentRegistry(dir, nil)

	a, err := r.Create(models.AgentSpec{Name: "  scout ", Capabilities: []string{"Browser", "browser", " code ", ""}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if a.ID == "" {
		t.Error("ID should be generated")
	}
	if a.Name != "scout" {
		t.Errorf("Name = %q, want trimmed", a.Name)
	}
	if a.Role != "worker" {
		t.Errorf("Role = %q, want default worker", a.Role)
	}
	if a.Status != models.AgentStatusStopped {
		t.Errorf("Status = %s, want stopped", a.Status)
	}
	if !reflect.DeepEqual(a.Capabilities, []string{"browser", "code"}) {
		t.Errorf("Capabilities = %v", a.Capabilities)
	}
	if a.WorkDir != filepath.Join(dir, a.ID) {
		t.Errorf("WorkDir = %s", a.WorkDir)
	}
	if a.MemoryPath != filepath.Join(dir, a.ID, MemoryFileName) {
		t.Errorf("MemoryPath = %s", a.MemoryPath)
	}
}

func TestAgentRegistry_CreateInvalidName(t *testing.T) {
	r := NewAgentRegistry(t.TempDir(), nil)
	for _, name := range []string{"", "   "} {
		if _, err := r.Create(models.AgentSpec{Name: name}); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Create(%q) error = %v, want ErrInvalidName", name, err)
		}
	}
	if r.Count() != 0 {
		t.Error("invalid creates must not register agents")
	}
}

func TestAgentRegistry_ListOrderAndRemove(t *testing.T) {
	r := NewAgentRegistry(t.TempDir(), nil)
	var ids []string
	for i := 0; i < 5; i++ {
		a, _ := r.Create(models.AgentSpec{Name: fmt.Sprintf("a%d", i)})
		ids = append(ids, a.ID)
	}

	removed, err := r.Remove(ids[2])
	if err != nil || !removed {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	again, err := r.Remove(ids[2])
	if err != nil || again {
		t.Errorf("second Remove = %v, %v, want false, nil", again, err)
	}
	if unknown, _ := r.Remove("nope"); unknown {
		t.Error("removing unknown id should return false")
	}

	list := r.List()
	want := []string{ids[0], ids[1], ids[3], ids[4]}
	if len(list) != len(want) {
		t.Fatalf("List len = %d, want %d", len(list), len(want))
	}
	for i, a := range list {
		if a.ID != want[i] {
			t.Errorf("List[%d] = %s, want %s", i, a.ID, want[i])
		}
	}
}

func TestAgentRegistry_GetReturnsCopy(t *testing.T) {
	r := NewAgentRegistry(t.TempDir(), nil)
	a, _ := r.Create(models.AgentSpec{Name: "x", Capabilities: []string{"code"}})

	got := r.Get(a.ID)
	got.Name = "mutated"
	got.Capabilities[0] = "mutated"

	again := r.Get(a.ID)
	if again.Name != "x" || again.Capabilities[0] != "code" {
		t.Error("Get must return an independent copy")
	}
	if r.Get("missing") != nil {
		t.Error("Get(missing) should be nil")
	}
}

func TestAgentRegistry_Touch(t *testing.T) {
	r := NewAgentRegistry(t.TempDir(), nil)
	a, _ := r.Create(models.AgentSpec{Name: "x"})

	if err := r.Touch(a.ID); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	if r.Get(a.ID).LastActiveAt.Before(a.LastActiveAt) {
		t.Error("LastActiveAt went backwards")
	}
	if err := r.Touch("missing"); err != nil {
		t.Errorf("Touch(missing) = %v, want nil", err)
	}
}

func TestAgentRegistry_ConcurrentCreate(t *testing.T) {
	r := NewAgentRegistry(t.TempDir(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := r.Create(models.AgentSpec{Name: fmt.Sprintf("a%d", i)}); err != nil {
				t.Errorf("Create failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, a := range r.List() {
		if seen[a.ID] {
			t.Fatalf("duplicate id %s", a.ID)
		}
		seen[a.ID] = true
	}
	if len(seen) != 50 {
		t.Errorf("got %d agents, want 50", len(seen))
	}
}

func TestAgentRegistry_PersistsThroughStore(t *testing.T) {
	dir := t.TempDir()
	db := openTestStore(t, dir)

	r := NewAgentRegistry(dir, db)
	first, _ := r.Create(models.AgentSpec{Name: "first", Capabilities: []string{"code"}})
	second, _ := r.Create(models.AgentSpec{Name: "second"})
	r.Remove(first.ID)

	reloaded := NewAgentRegistry(dir, db)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	list := reloaded.List()
	if len(list) != 1 || list[0].ID != second.ID {
		t.Errorf("reloaded agents = %v, want only %s", list, second.ID)
	}
}

func TestAgentRegistry_Capabilities(t *testing.T) {
	r := NewAgentRegistry(t.TempDir(), nil)
	r.Create(models.AgentSpec{Name: "a", Capabilities: []string{"code", "browser"}})
	r.Create(models.AgentSpec{Name: "b", Capabilities: []string{"code", "research"}})

	got := r.Capabilities()
	want := []string{"code", "browser", "research"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Capabilities() = %v, want %v", got, want)
	}
}
