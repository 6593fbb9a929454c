package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/thirdroom/simcore/internal/core/ecs"
	"github.com/thirdroom/simcore/internal/core/shm"
)

// World is the slice of the ECS world a workload script may touch.
type World interface {
	CreateEntity() (ecs.EntityID, error)
	MarkForDestruction(id ecs.EntityID)
	Alive(id ecs.EntityID) bool
	Store(name string) (*shm.Store, bool)
	Count() int
}

// Engine wraps a single gopher-lua VM that drives the simulation workload.
// Single-goroutine access only (simulation loop).
type Engine struct {
	vm    *lua.LState
	world World
	log   *zap.Logger
}

func newEngine(world World, log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, world: world, log: log}
	e.registerAPI()
	return e
}

// NewEngine creates a Lua engine and loads every script under scriptsDir,
// core/ first, then workload/.
func NewEngine(scriptsDir string, world World, log *zap.Logger) (*Engine, error) {
	e := newEngine(world, log)
	for _, sub := range []string{"core", "workload"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			e.vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

// NewEngineFromSource creates an engine from a single chunk of Lua source.
func NewEngineFromSource(src string, world World, log *zap.Logger) (*Engine, error) {
	e := newEngine(world, log)
	if err := e.vm.DoString(src); err != nil {
		e.vm.Close()
		return nil, fmt.Errorf("load script: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory in name order.
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

func (e *Engine) Close() {
	e.vm.Close()
}

// OnTick calls the Lua on_tick(tick) hook if the scripts define one.
func (e *Engine) OnTick(tick uint32) error {
	return e.callHook("on_tick", lua.LNumber(tick))
}

// OnReleased calls the Lua on_released(tick, count) hook if defined.
func (e *Engine) OnReleased(tick uint32, count int) error {
	return e.callHook("on_released", lua.LNumber(tick), lua.LNumber(count))
}

// HasHook reports whether the scripts define the named global function.
func (e *Engine) HasHook(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// Global returns a global as a Go number, for tests and diagnostics.
func (e *Engine) Global(name string) (float64, bool) {
	n, ok := e.vm.GetGlobal(name).(lua.LNumber)
	return float64(n), ok
}

func (e *Engine) callHook(name string, args ...lua.LValue) error {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return nil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		return fmt.Errorf("lua %s: %w", name, err)
	}
	return nil
}
