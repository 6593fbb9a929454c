package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/thirdroom/simcore/internal/core/ecs"
	"github.com/thirdroom/simcore/internal/core/shm"
)

// registerAPI exposes the world to scripts:
//
//	spawn() -> id | nil, err
//	despawn(id)
//	alive(id) -> bool
//	entity_count() -> n
//	set_f32(store, id, elem, v) / get_f32(store, id, elem) -> v
//	set_u32(store, id, elem, v) / get_u32(store, id, elem) -> v
//
// Element indexes are 0-based, matching the store layout.
func (e *Engine) registerAPI() {
	e.vm.SetGlobal("spawn", e.vm.NewFunction(e.luaSpawn))
	e.vm.SetGlobal("despawn", e.vm.NewFunction(e.luaDespawn))
	e.vm.SetGlobal("alive", e.vm.NewFunction(e.luaAlive))
	e.vm.SetGlobal("entity_count", e.vm.NewFunction(e.luaEntityCount))
	e.vm.SetGlobal("set_f32", e.vm.NewFunction(e.luaSetF32))
	e.vm.SetGlobal("get_f32", e.vm.NewFunction(e.luaGetF32))
	e.vm.SetGlobal("set_u32", e.vm.NewFunction(e.luaSetU32))
	e.vm.SetGlobal("get_u32", e.vm.NewFunction(e.luaGetU32))
}

func (e *Engine) luaSpawn(L *lua.LState) int {
	id, err := e.world.CreateEntity()
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(id))
	return 1
}

func (e *Engine) luaDespawn(L *lua.LState) int {
	id := ecs.EntityID(L.CheckInt(1))
	if e.world.Alive(id) {
		e.world.MarkForDestruction(id)
	}
	return 0
}

func (e *Engine) luaAlive(L *lua.LState) int {
	L.Push(lua.LBool(e.world.Alive(ecs.EntityID(L.CheckInt(1)))))
	return 1
}

func (e *Engine) luaEntityCount(L *lua.LState) int {
	L.Push(lua.LNumber(e.world.Count()))
	return 1
}

// slot resolves the (store, id, elem) arguments shared by the accessors and
// raises a Lua error for dead ids or out-of-range elements.
func (e *Engine) slot(L *lua.LState) (*shm.Store, uint32, int) {
	name := L.CheckString(1)
	id := ecs.EntityID(L.CheckInt(2))
	elem := L.CheckInt(3)
	s, ok := e.world.Store(name)
	if !ok {
		L.RaiseError("unknown store %q", name)
	}
	if !e.world.Alive(id) {
		L.RaiseError("entity %d is not alive", id)
	}
	if elem < 0 || elem >= s.Elements() {
		L.RaiseError("store %q has no element %d", name, elem)
	}
	return s, uint32(id), elem
}

func (e *Engine) luaSetF32(L *lua.LState) int {
	s, id, elem := e.slot(L)
	s.SetFloat32(id, elem, float32(L.CheckNumber(4)))
	return 0
}

func (e *Engine) luaGetF32(L *lua.LState) int {
	s, id, elem := e.slot(L)
	L.Push(lua.LNumber(s.Float32(id, elem)))
	return 1
}

func (e *Engine) luaSetU32(L *lua.LState) int {
	s, id, elem := e.slot(L)
	s.SetUint32(id, elem, uint32(L.CheckInt64(4)))
	return 0
}

func (e *Engine) luaGetU32(L *lua.LState) int {
	s, id, elem := e.slot(L)
	L.Push(lua.LNumber(s.Uint32(id, elem)))
	return 1
}
