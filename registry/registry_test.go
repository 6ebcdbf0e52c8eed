package registry

import (
	"testing"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/objects"
)

// fakeObject is a minimal objects.Object used to exercise the registry
// without depending on any real klass package.
type fakeObject struct {
	id          core.ObjectID
	name        string
	klass       core.Klass
	initErr     error
	resetErr    error
	initCalls   int
	resetCalls  int
	isUpdater   bool
}

func (f *fakeObject) ID() core.ObjectID             { return f.id }
func (f *fakeObject) Klass() core.Klass              { return f.klass }
func (f *fakeObject) Name() string                   { return f.name }
func (f *fakeObject) Capabilities() objects.Capability {
	caps := objects.CapInit | objects.CapReset
	if f.isUpdater {
		caps |= objects.CapUpdate
	}
	return caps
}
func (f *fakeObject) Init() error {
	f.initCalls++
	return f.initErr
}
func (f *fakeObject) Reset() error {
	f.resetCalls++
	return f.resetErr
}
func (f *fakeObject) Update(ticks uint64, runtimeNS int64) {}
func (f *fakeObject) UpdateFrequency() float64             { return 1000 }

func init() {
	Register(core.KlassDigitalPin, func(name string, config []byte, deps objects.Deps) (objects.Object, error) {
		return &fakeObject{id: core.NewObjectID(), name: name, klass: core.KlassDigitalPin, isUpdater: true}, nil
	})
}

func TestCreateObjectAndLookup(t *testing.T) {
	r := New()
	id, err := r.CreateObject(core.KlassDigitalPin, "fan", nil, objects.Deps{})
	if err != nil {
		t.Fatalf("CreateObject failed: %v", err)
	}

	obj, ok := r.Lookup(id)
	if !ok {
		t.Fatal("Lookup did not find created object")
	}
	if obj.Name() != "fan" {
		t.Fatalf("expected name 'fan', got %q", obj.Name())
	}

	gotID, ok := r.LookupByName(core.KlassDigitalPin, "fan")
	if !ok || gotID != id {
		t.Fatalf("LookupByName mismatch: got (%d, %v), want (%d, true)", gotID, ok, id)
	}
}

func TestCreateObjectRejectsDuplicateName(t *testing.T) {
	r := New()
	if _, err := r.CreateObject(core.KlassDigitalPin, "led", nil, objects.Deps{}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := r.CreateObject(core.KlassDigitalPin, "led", nil, objects.Deps{}); err == nil {
		t.Fatal("expected error creating a duplicate name within the same klass")
	}
}

func TestCreateObjectUnknownKlassFactory(t *testing.T) {
	r := New()
	if _, err := r.CreateObject(core.KlassProbe, "p", nil, objects.Deps{}); err == nil {
		t.Fatal("expected error for a klass with no registered factory")
	}
}

func TestListPreservesInsertionOrder(t *testing.T) {
	r := New()
	var ids []core.ObjectID
	for _, name := range []string{"a", "b", "c"} {
		id, err := r.CreateObject(core.KlassDigitalPin, name, nil, objects.Deps{})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		ids = append(ids, id)
	}

	got := r.List(core.KlassDigitalPin)
	if len(got) != 3 {
		t.Fatalf("expected 3 objects, got %d", len(got))
	}
	for i, id := range ids {
		if got[i] != id {
			t.Fatalf("List order mismatch at index %d: got %d, want %d", i, got[i], id)
		}
	}
}

func TestInitObjectsRunsInitOnEveryObject(t *testing.T) {
	r := New()
	id, _ := r.CreateObject(core.KlassDigitalPin, "x", nil, objects.Deps{})
	if err := r.InitObjects(); err != nil {
		t.Fatalf("InitObjects failed: %v", err)
	}
	obj, _ := r.Lookup(id)
	fo := obj.(*fakeObject)
	if fo.initCalls != 1 {
		t.Fatalf("expected Init called once, got %d", fo.initCalls)
	}
}

func TestResetAllWithNilIDs(t *testing.T) {
	r := New()
	id, _ := r.CreateObject(core.KlassDigitalPin, "y", nil, objects.Deps{})
	if err := r.Reset(nil); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	obj, _ := r.Lookup(id)
	fo := obj.(*fakeObject)
	if fo.resetCalls != 1 {
		t.Fatalf("expected Reset called once, got %d", fo.resetCalls)
	}
}

func TestAllUpdatableReturnsUpdaters(t *testing.T) {
	r := New()
	r.CreateObject(core.KlassDigitalPin, "u1", nil, objects.Deps{})
	r.CreateObject(core.KlassDigitalPin, "u2", nil, objects.Deps{})

	updaters := r.AllUpdatable()
	if len(updaters) != 2 {
		t.Fatalf("expected 2 updatable objects, got %d", len(updaters))
	}
}

func TestRegisterVirtualObjectHasNoVtable(t *testing.T) {
	r := New()
	id, err := r.RegisterVirtualObject(core.KlassProbe, "virtual-probe")
	if err != nil {
		t.Fatalf("RegisterVirtualObject failed: %v", err)
	}
	if _, ok := r.Lookup(id); ok {
		t.Fatal("virtual object should not resolve via Lookup (no vtable)")
	}
	gotID, ok := r.LookupByName(core.KlassProbe, "virtual-probe")
	if !ok || gotID != id {
		t.Fatalf("LookupByName should still resolve a virtual object's id, got (%d, %v)", gotID, ok)
	}
}
