package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/l1jgo/ecs/internal/core/ecs"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM bound to one World. Scripts talk to the
// world through the global "ecs" table.
// Single-goroutine access only: systems run inside World.Tick.
type Engine struct {
	vm      *lua.LState
	world   *ecs.World
	log     *zap.Logger
	systems []string
}

// NewEngine creates a Lua engine for w and loads every script in scriptsDir.
// An empty scriptsDir loads nothing.
func NewEngine(w *ecs.World, scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, world: w, log: log}
	e.openAPI()

	if scriptsDir != "" {
		if err := e.loadDir(scriptsDir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// Close releases the VM. Lua systems stay registered but must not run
// afterwards; callers unregister them first via Systems.
func (e *Engine) Close() {
	e.vm.Close()
}

// Systems returns the names of systems registered from Lua, in order.
func (e *Engine) Systems() []string {
	return append([]string(nil), e.systems...)
}

// DoString runs a chunk of Lua source.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// loadDir loads all .lua files in a directory, sorted by name.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

func (e *Engine) openAPI() {
	t := e.vm.NewTable()
	e.vm.SetFuncs(t, map[string]lua.LGFunction{
		"register_component": e.luaRegisterComponent,
		"register_system":    e.luaRegisterSystem,
		"create":             e.luaCreate,
		"destroy":            e.luaDestroy,
		"add":                e.luaAdd,
		"remove":             e.luaRemove,
		"get":                e.luaGet,
		"set":                e.luaSet,
		"has":                e.luaHas,
		"entity":             e.luaEntity,
		"context":            e.luaContext,
		"set_context":        e.luaSetContext,
	})
	e.vm.SetGlobal("ecs", t)
}

// ecs.register_component(name, defaults) -> ok
func (e *Engine) luaRegisterComponent(L *lua.LState) int {
	name := L.CheckString(1)
	defaults := tableToMap(L.OptTable(2, nil))
	L.Push(lua.LBool(e.world.RegisterComponent(name, defaults) == nil))
	return 1
}

// ecs.register_system(name, {query...}, fn(entities, dt, now)) -> ok
func (e *Engine) luaRegisterSystem(L *lua.LState) int {
	name := L.CheckString(1)
	qt := L.CheckTable(2)
	fn := L.CheckFunction(3)

	var items []string
	qt.ForEach(func(_, v lua.LValue) {
		if s, ok := v.(lua.LString); ok {
			items = append(items, string(s))
		}
	})

	err := e.world.RegisterSystem(name, ecs.ParseQuery(items), e.bindSystem(name, fn))
	if err == nil {
		e.systems = append(e.systems, name)
	}
	L.Push(lua.LBool(err == nil))
	return 1
}

// bindSystem adapts a Lua function to ecs.UpdateFunc. A Lua error is raised
// as a Go panic so the system runner isolates it like any other failure.
func (e *Engine) bindSystem(name string, fn *lua.LFunction) ecs.UpdateFunc {
	return func(entities *ecs.EntitySet, dt, now time.Duration) {
		list := e.vm.CreateTable(entities.Len(), 0)
		entities.Each(func(ent ecs.Entity) bool {
			list.Append(lua.LNumber(ent))
			return true
		})
		if err := e.vm.CallByParam(lua.P{
			Fn:      fn,
			NRet:    0,
			Protect: true,
		}, list, lua.LNumber(dt.Seconds()), lua.LNumber(now.Seconds())); err != nil {
			panic(fmt.Errorf("lua system %s: %w", name, err))
		}
	}
}

// ecs.create([label]) -> entity
func (e *Engine) luaCreate(L *lua.LState) int {
	label := L.OptString(1, "")
	var ent ecs.Entity
	if label != "" {
		ent = e.world.CreateLabeledEntity(label)
	} else {
		ent = e.world.CreateEntity()
	}
	L.Push(lua.LNumber(ent))
	return 1
}

// ecs.destroy(e) -> ok
func (e *Engine) luaDestroy(L *lua.LState) int {
	L.Push(lua.LBool(e.world.DestroyEntity(checkEntity(L, 1)) == nil))
	return 1
}

// ecs.add(e, name, fields) -> ok
func (e *Engine) luaAdd(L *lua.LState) int {
	ent := checkEntity(L, 1)
	name := L.CheckString(2)
	_, err := e.world.AddComponent(ent, name, tableToMap(L.OptTable(3, nil)))
	L.Push(lua.LBool(err == nil))
	return 1
}

// ecs.remove(e, name) -> ok
func (e *Engine) luaRemove(L *lua.LState) int {
	L.Push(lua.LBool(e.world.RemoveComponent(checkEntity(L, 1), L.CheckString(2)) == nil))
	return 1
}

// ecs.get(e, name) -> table|nil. The table is a copy; write back with ecs.set.
func (e *Engine) luaGet(L *lua.LState) int {
	c := e.world.GetComponent(checkEntity(L, 1), L.CheckString(2))
	if c == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(mapToTable(L, c))
	return 1
}

// ecs.set(e, name, fields) -> ok. Only fields the component already has are
// written; the rest are ignored.
func (e *Engine) luaSet(L *lua.LState) int {
	c := e.world.GetComponent(checkEntity(L, 1), L.CheckString(2))
	if c == nil {
		L.Push(lua.LFalse)
		return 1
	}
	ok := true
	for k, v := range tableToMap(L.CheckTable(3)) {
		if !c.Set(k, v) {
			ok = false
		}
	}
	L.Push(lua.LBool(ok))
	return 1
}

// ecs.has(e, name) -> bool
func (e *Engine) luaHas(L *lua.LState) int {
	L.Push(lua.LBool(e.world.HasComponent(checkEntity(L, 1), L.CheckString(2))))
	return 1
}

// ecs.entity(label) -> entity|nil
func (e *Engine) luaEntity(L *lua.LState) int {
	ent, ok := e.world.Entity(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(ent))
	return 1
}

// ecs.context() -> value
func (e *Engine) luaContext(L *lua.LState) int {
	L.Push(toLua(L, e.world.Context()))
	return 1
}

// ecs.set_context(value) -> value. Lua tables are stored as-is so scripts
// can share mutable state.
func (e *Engine) luaSetContext(L *lua.LState) int {
	v := L.Get(1)
	e.world.SetContext(v)
	L.Push(v)
	return 1
}

func checkEntity(L *lua.LState, n int) ecs.Entity {
	v := float64(L.CheckNumber(n))
	if v < 0 || v > math.MaxUint32 || v != math.Trunc(v) {
		L.ArgError(n, "entity must be an integer in [0, 2^32)")
	}
	return ecs.Entity(uint32(v))
}

func tableToMap(t *lua.LTable) map[string]any {
	if t == nil {
		return nil
	}
	out := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		out[string(key)] = fromLua(v)
	})
	return out
}

func fromLua(v lua.LValue) any {
	switch x := v.(type) {
	case lua.LNumber:
		return float64(x)
	case lua.LString:
		return string(x)
	case lua.LBool:
		return bool(x)
	case *lua.LTable:
		return tableToMap(x)
	case *lua.LNilType:
		return nil
	}
	return v
}

func mapToTable(L *lua.LState, m map[string]any) *lua.LTable {
	t := L.CreateTable(0, len(m))
	for k, v := range m {
		t.RawSetString(k, toLua(L, v))
	}
	return t
}

func toLua(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return x
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case float64:
		return lua.LNumber(x)
	case float32:
		return lua.LNumber(x)
	case int:
		return lua.LNumber(x)
	case int32:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case uint32:
		return lua.LNumber(x)
	case uint64:
		return lua.LNumber(x)
	case ecs.Component:
		return mapToTable(L, x)
	case map[string]any:
		return mapToTable(L, x)
	}
	return lua.LString(fmt.Sprint(v))
}
