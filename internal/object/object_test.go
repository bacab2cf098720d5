package object

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSymbol_Distinct(t *testing.T) {
	a := NewSymbol("private")
	b := NewSymbol("private")

	assert.NotSame(t, a, b)
	assert.NotEqual(t, Sym(a), Sym(b))
	assert.Less(t, a.Seq(), b.Seq())
	assert.NotEqual(t, a.Token(), b.Token())
	assert.Equal(t, "private", a.Label())
}

func TestKey_NameAndSymbol(t *testing.T) {
	s := NewSymbol("k")

	assert.Equal(t, Name("x"), Name("x"))
	assert.False(t, Name("x").IsSymbol())
	assert.True(t, Sym(s).IsSymbol())
	assert.Same(t, s, Sym(s).Symbol())
	assert.Equal(t, "x", Name("x").String())
	assert.Contains(t, Sym(s).String(), "Symbol(k)")
}

func TestObject_GetWalksPrototypeChain(t *testing.T) {
	base := New(nil)
	require.NoError(t, base.Set(Name("a"), 1))
	child := New(base)
	require.NoError(t, child.Set(Name("b"), 2))

	v, ok := child.Get(Name("a"))
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = child.GetOwn(Name("a"))
	assert.False(t, ok)
	assert.True(t, child.Has(Name("a")))
	assert.False(t, child.HasOwn(Name("a")))
	assert.True(t, child.HasOwn(Name("b")))
}

func TestObject_OwnKeysInsertionOrder(t *testing.T) {
	s := NewSymbol("s")
	o := New(nil)
	require.NoError(t, o.Set(Name("z"), 1))
	require.NoError(t, o.Set(Sym(s), 2))
	require.NoError(t, o.Set(Name("a"), 3))
	require.NoError(t, o.Set(Name("z"), 4)) // overwrite keeps position

	assert.Equal(t, []Key{Name("z"), Sym(s), Name("a")}, o.OwnKeys())
	assert.Equal(t, []string{"z", "a"}, o.OwnNames())
	assert.Equal(t, 3, o.Len())

	require.NoError(t, o.Delete(Name("z")))
	assert.Equal(t, []Key{Sym(s), Name("a")}, o.OwnKeys())
	require.NoError(t, o.Delete(Name("missing")))
}

func TestObject_FreezeRejectsMutation(t *testing.T) {
	o := New(nil)
	require.NoError(t, o.Set(Name("a"), 1))
	o.Freeze()

	assert.True(t, o.IsFrozen())
	assert.True(t, errors.Is(o.Set(Name("b"), 2), ErrFrozen))
	assert.True(t, errors.Is(o.Delete(Name("a")), ErrFrozen))
	assert.True(t, errors.Is(o.SetProto(New(nil)), ErrFrozen))

	// Objects inheriting from a frozen object stay writable.
	child := New(o)
	assert.NoError(t, child.Set(Name("a"), 5))
}

func TestObject_SetProtoRejectsCycle(t *testing.T) {
	a := New(nil)
	b := New(a)
	err := a.SetProto(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestObject_AssignNoOverwrite(t *testing.T) {
	target := New(nil)
	require.NoError(t, target.Set(Name("name"), "Duck"))

	src := New(nil)
	require.NoError(t, src.Set(Name("name"), "Animal"))
	require.NoError(t, src.Set(Name("legs"), 2))

	require.NoError(t, target.Assign(src, true))

	v, _ := target.Get(Name("name"))
	assert.Equal(t, "Duck", v)
	v, _ = target.Get(Name("legs"))
	assert.Equal(t, 2, v)
}

func TestCompose_LaterSourcesWin(t *testing.T) {
	a := New(nil)
	require.NoError(t, a.Set(Name("x"), "a"))
	require.NoError(t, a.Set(Name("onlyA"), true))
	b := New(nil)
	require.NoError(t, b.Set(Name("x"), "b"))

	c := Compose(a, b)

	v, _ := c.Get(Name("x"))
	assert.Equal(t, "b", v)
	assert.True(t, c.HasOwn(Name("onlyA")))
	assert.Nil(t, c.Proto())
}

func TestObject_InvokeBindsReceiver(t *testing.T) {
	proto := New(nil)
	require.NoError(t, proto.Set(Name("whoami"), Func(func(this *Object, args ...Value) (Value, error) {
		v, _ := this.Get(Name("id"))
		return v, nil
	})))

	inst := New(proto)
	require.NoError(t, inst.Set(Name("id"), "inst-1"))

	got, err := inst.Call("whoami")
	require.NoError(t, err)
	assert.Equal(t, "inst-1", got)
}

func TestObject_InvokeErrors(t *testing.T) {
	o := New(nil)
	require.NoError(t, o.Set(Name("value"), 3))

	_, err := o.Call("missing")
	var nc *NotCallableError
	require.ErrorAs(t, err, &nc)
	assert.True(t, nc.Missing)

	_, err = o.Call("value")
	require.ErrorAs(t, err, &nc)
	assert.False(t, nc.Missing)
	assert.Contains(t, err.Error(), "not callable")
}

func TestObject_SlotAndPublic(t *testing.T) {
	key := NewSymbol("protected")
	inst := New(nil)
	view := New(nil)
	require.NoError(t, view.Set(Name(PublicName), inst))
	require.NoError(t, inst.Set(Sym(key), view))

	assert.Same(t, view, inst.Slot(key))
	assert.Same(t, inst, view.Public())
	assert.Nil(t, inst.Slot(NewSymbol("other")))
	assert.Nil(t, inst.Public())
}
