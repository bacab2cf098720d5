package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/classkit/internal/compiler"
	"github.com/roach88/classkit/internal/ir"
	"github.com/roach88/classkit/internal/store"
	"github.com/roach88/classkit/internal/testutil"
)

func animalSpec() ir.ClassSpec {
	return ir.ClassSpec{
		Name:   "Animal",
		Params: []ir.ParamSpec{{Name: "sound", Tier: ir.TierProtected}},
		Methods: []ir.MethodSpec{
			{Name: "getSound", Tier: ir.TierProtected, Kind: ir.MethodRepeat, Field: "sound", Sep: " "},
		},
		Static: []ir.MethodSpec{
			{Name: "isAnimal", Tier: ir.TierPublic, Kind: ir.MethodConst, Value: ir.IRBool(true)},
		},
	}
}

func duckSpec() ir.ClassSpec {
	return ir.ClassSpec{
		Name:    "Duck",
		Extends: []string{"Animal"},
		Params:  []ir.ParamSpec{{Name: "name", Tier: ir.TierPrivate}},
		Fields:  []ir.FieldSpec{{Name: "legs", Tier: ir.TierPublic, Value: ir.IRInt(2)}},
		Super:   []ir.SuperCall{{Class: "Animal", Args: ir.IRArray{ir.IRString("quack")}}},
		Methods: []ir.MethodSpec{
			{Name: "quack", Tier: ir.TierPublic, Kind: ir.MethodDelegate, Scope: "Animal", Method: "getSound"},
			{Name: "who", Tier: ir.TierPublic, Kind: ir.MethodDelegate, Scope: "private", Method: "getName"},
			{Name: "getName", Tier: ir.TierPrivate, Kind: ir.MethodGet, Field: "name"},
		},
		Static: []ir.MethodSpec{
			{Name: "isAnimal", Tier: ir.TierPublic, Kind: ir.MethodDelegate, Scope: "private", Method: "isAnimal"},
		},
		StaticPrivate: []ir.MethodSpec{
			{Name: "isAnimal", Tier: ir.TierPrivate, Kind: ir.MethodConst, Value: ir.IRString("duck")},
		},
	}
}

func newDuckEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New([]ir.ClassSpec{duckSpec(), animalSpec()}, opts...)
	require.NoError(t, err)
	return e
}

func TestEngine_DuckQuacks(t *testing.T) {
	ctx := context.Background()
	e := newDuckEngine(t)

	larry, err := e.Instantiate(ctx, "Duck", ir.IRArray{ir.IRString("larry")})
	require.NoError(t, err)

	got, err := e.Call(ctx, larry, "quack", ir.IRArray{ir.IRInt(5)})
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("quack quack quack quack quack"), got)

	got, err = e.Call(ctx, larry, "quack", nil)
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("quack"), got, "count defaults to 1")

	got, err = e.Call(ctx, larry, "who", nil)
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("larry"), got)
}

func TestEngine_PrivateStatePerInstance(t *testing.T) {
	ctx := context.Background()
	e := newDuckEngine(t)

	larry, err := e.Instantiate(ctx, "Duck", ir.IRArray{ir.IRString("larry")})
	require.NoError(t, err)
	ben, err := e.Instantiate(ctx, "Duck", ir.IRArray{ir.IRString("ben")})
	require.NoError(t, err)

	got, err := e.Call(ctx, larry, "who", nil)
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("larry"), got)

	got, err = e.Call(ctx, ben, "who", nil)
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("ben"), got)
}

func TestEngine_StaticMembers(t *testing.T) {
	ctx := context.Background()
	e := newDuckEngine(t)

	got, err := e.CallStatic(ctx, "Duck", "isAnimal", nil)
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("duck"), got)

	got, err = e.CallStatic(ctx, "Animal", "isAnimal", nil)
	require.NoError(t, err)
	assert.Equal(t, ir.IRBool(true), got, "subclass statics do not leak into the parent")
}

func TestEngine_ConstructionTrace(t *testing.T) {
	ctx := context.Background()
	e := newDuckEngine(t,
		WithClock(testutil.NewDeterministicClock()),
		WithRunIDs(NewFixedGenerator("run-1")),
	)

	inst, err := e.Instantiate(ctx, "Duck", ir.IRArray{ir.IRString("larry")})
	require.NoError(t, err)
	assert.Equal(t, "run-1", inst.RunID)

	ev := func(seq int64, class, target, kind string, depth int) ir.ConstructionEvent {
		return ir.ConstructionEvent{RunID: "run-1", Seq: seq, Class: class, Target: target, Kind: kind, Depth: depth}
	}
	// seq 1 is the run itself.
	assert.Equal(t, []ir.ConstructionEvent{
		ev(2, "Duck", "Duck", "begin", 0),
		ev(3, "Duck", "Animal", "explicit", 0),
		ev(4, "Animal", "Animal", "begin", 1),
		ev(5, "Animal", "Animal", "constructor", 1),
		ev(6, "Animal", "Animal", "end", 1),
		ev(7, "Duck", "Duck", "constructor", 0),
		ev(8, "Duck", "Duck", "end", 0),
	}, inst.Events)
}

func TestEngine_ImplicitSuperConstruction(t *testing.T) {
	ctx := context.Background()
	base := ir.ClassSpec{
		Name:   "Base",
		Fields: []ir.FieldSpec{{Name: "ready", Tier: ir.TierPublic, Value: ir.IRBool(true)}},
	}
	child := ir.ClassSpec{Name: "Child", Extends: []string{"Base"}}
	e, err := New([]ir.ClassSpec{base, child}, WithRunIDs(NewFixedGenerator("r")))
	require.NoError(t, err)

	inst, err := e.Instantiate(ctx, "Child", nil)
	require.NoError(t, err)

	kinds := make([]string, len(inst.Events))
	for i, ev := range inst.Events {
		kinds[i] = ev.Kind
	}
	assert.Equal(t, []string{"begin", "implicit", "begin", "constructor", "end", "end"}, kinds)
	assert.Equal(t, ir.IRObject{"ready": ir.IRBool(true)}, inst.Snapshot.Public)
}

func TestEngine_SuperArgsFromParams(t *testing.T) {
	ctx := context.Background()
	duck := duckSpec()
	duck.Params = append(duck.Params, ir.ParamSpec{Name: "call", Tier: ir.TierPrivate})
	duck.Super = []ir.SuperCall{{Class: "Animal", Args: ir.IRArray{ir.IRString("$call")}}}

	e, err := New([]ir.ClassSpec{animalSpec(), duck})
	require.NoError(t, err)

	inst, err := e.Instantiate(ctx, "Duck", ir.IRArray{ir.IRString("daisy"), ir.IRString("honk")})
	require.NoError(t, err)
	got, err := e.Call(ctx, inst, "quack", ir.IRArray{ir.IRInt(2)})
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("honk honk"), got)
}

func TestEngine_MissingArgIsNull(t *testing.T) {
	ctx := context.Background()
	e := newDuckEngine(t)

	inst, err := e.Instantiate(ctx, "Duck", nil)
	require.NoError(t, err)
	got, err := e.Call(ctx, inst, "who", nil)
	require.NoError(t, err)
	assert.Equal(t, ir.IRNull{}, got)
}

func TestEngine_Snapshot(t *testing.T) {
	ctx := context.Background()
	e := newDuckEngine(t, WithRunIDs(NewFixedGenerator("run-a", "run-b")))

	a, err := e.Instantiate(ctx, "Duck", ir.IRArray{ir.IRString("larry")})
	require.NoError(t, err)

	assert.Equal(t, ir.InstanceSnapshot{
		RunID:  "run-a",
		Class:  "Duck",
		Public: ir.IRObject{"legs": ir.IRInt(2)},
		Chain: []ir.TierState{
			{Class: "Duck", Private: ir.IRObject{"name": ir.IRString("larry")}, Protected: ir.IRObject{}},
			{Class: "Animal", Private: ir.IRObject{}, Protected: ir.IRObject{"sound": ir.IRString("quack")}},
		},
	}, a.Snapshot)

	b, err := e.Instantiate(ctx, "Duck", ir.IRArray{ir.IRString("larry")})
	require.NoError(t, err)
	assert.Equal(t, a.Digest, b.Digest, "identical constructions digest the same")
	assert.NotEmpty(t, a.Digest)
}

func TestEngine_LaterParentWins(t *testing.T) {
	ctx := context.Background()
	speaker := func(name, word string) ir.ClassSpec {
		return ir.ClassSpec{
			Name:    name,
			Methods: []ir.MethodSpec{{Name: "speak", Tier: ir.TierPublic, Kind: ir.MethodConst, Value: ir.IRString(word)}},
		}
	}
	both := ir.ClassSpec{Name: "Both", Extends: []string{"Left", "Right"}}
	e, err := New([]ir.ClassSpec{speaker("Left", "left"), speaker("Right", "right"), both})
	require.NoError(t, err)

	inst, err := e.Instantiate(ctx, "Both", nil)
	require.NoError(t, err)
	got, err := e.Call(ctx, inst, "speak", nil)
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("right"), got)
}

func TestEngine_Errors(t *testing.T) {
	ctx := context.Background()
	e := newDuckEngine(t)
	inst, err := e.Instantiate(ctx, "Duck", ir.IRArray{ir.IRString("larry")})
	require.NoError(t, err)

	_, err = e.Instantiate(ctx, "Goose", nil)
	assert.True(t, IsUnknownClass(err))

	_, err = e.CallStatic(ctx, "Goose", "isAnimal", nil)
	assert.True(t, IsUnknownClass(err))

	_, err = e.Call(ctx, inst, "fly", nil)
	assert.True(t, IsUnknownMethod(err))

	_, err = e.Call(ctx, inst, "legs", nil)
	assert.True(t, IsUnknownMethod(err), "a field is not a method")

	_, err = e.Call(ctx, inst, "getName", nil)
	assert.True(t, IsUnknownMethod(err), "private methods are not on the public surface")

	_, err = e.Call(ctx, inst, "quack", ir.IRArray{ir.IRInt(-1)})
	assert.Equal(t, ErrCodeMethodFailed, CodeOf(err))

	_, err = e.Call(ctx, inst, "quack", ir.IRArray{ir.IRString("many")})
	assert.Equal(t, ErrCodeMethodFailed, CodeOf(err))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = e.Instantiate(cancelled, "Duck", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_InvalidSpec(t *testing.T) {
	bad := ir.ClassSpec{Name: "_hidden"}
	_, err := New([]ir.ClassSpec{bad})
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidSpec, CodeOf(err))
	assert.Contains(t, err.Error(), compiler.ErrInvalidClassName)
}

func TestNew_Cycle(t *testing.T) {
	a := ir.ClassSpec{Name: "A", Extends: []string{"B"}}
	b := ir.ClassSpec{Name: "B", Extends: []string{"A"}}
	_, err := New([]ir.ClassSpec{a, b})
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidSpec, CodeOf(err))

	var cycle *compiler.InheritanceCycleError
	assert.True(t, errors.As(err, &cycle))
}

func TestNew_UnknownParent(t *testing.T) {
	_, err := New([]ir.ClassSpec{{Name: "Orphan", Extends: []string{"Nobody"}}})
	var unknown *compiler.UnknownParentError
	assert.True(t, errors.As(err, &unknown))
}

func TestNew_UnknownDelegateScope(t *testing.T) {
	duck := duckSpec()
	duck.Methods[0].Scope = "Bird"
	_, err := New([]ir.ClassSpec{animalSpec(), duck})
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidSpec, CodeOf(err))
	assert.Contains(t, err.Error(), `"Bird"`)
}

func TestRegistry_Order(t *testing.T) {
	e := newDuckEngine(t)
	assert.Equal(t, []string{"Animal", "Duck"}, e.Registry().Names(), "parents register first")

	entry, ok := e.Registry().Lookup("Duck")
	require.True(t, ok)
	assert.Equal(t, []string{"Duck", "Animal"}, entry.Chain())
	assert.Equal(t, ir.MustSpecHash(duckSpec()), entry.Record().SpecHash)
	assert.Equal(t, []string{"Animal"}, entry.Record().Supers)

	err := e.Registry().Register(entry)
	assert.Error(t, err, "names are unique")
}

func TestEngine_PersistsRuns(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "classkit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	e := newDuckEngine(t,
		WithStore(st),
		WithClock(testutil.NewDeterministicClock()),
		WithRunIDs(NewFixedGenerator("run-1")),
	)
	inst, err := e.Instantiate(ctx, "Duck", ir.IRArray{ir.IRString("larry")})
	require.NoError(t, err)

	run, err := st.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Duck", run.Class)
	assert.Equal(t, int64(1), run.Seq)
	assert.Equal(t, ir.IRArray{ir.IRString("larry")}, run.Args)
	assert.Equal(t, map[string]string{
		"Animal": ir.MustSpecHash(animalSpec()),
		"Duck":   ir.MustSpecHash(duckSpec()),
	}, run.SpecHashes)

	events, err := st.ReadRunEvents(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, inst.Events, events)

	snap, digest, err := st.ReadSnapshot(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, inst.Digest, digest)
	assert.Equal(t, inst.Snapshot, snap)

	classes, err := st.ReadClasses(ctx)
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, "Animal", classes[0].Name)
	assert.Equal(t, "Duck", classes[1].Name)
}
