package scripting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM running the AI faction scripts.
// Single-goroutine access only (game loop).
//
// The VM only gets the base, table, string and math libraries, and
// math.random is removed, so a script's decisions depend on its input
// alone and replays stay exact.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every script under
// scriptsDir/core and scriptsDir/ai.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	for _, sub := range []string{"core", "ai"} {
		if err := e.loadDir(filepath.Join(scriptsDir, sub)); err != nil {
			e.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

// NewEngineFromSource builds an engine from in-memory scripts.
func NewEngineFromSource(log *zap.Logger, sources ...string) (*Engine, error) {
	e := newEngine(log)
	for i, src := range sources {
		if err := e.vm.DoString(src); err != nil {
			e.Close()
			return nil, fmt.Errorf("load source %d: %w", i, err)
		}
	}
	return e, nil
}

func newEngine(log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		vm.Push(vm.NewFunction(lib.fn))
		vm.Push(lua.LString(lib.name))
		vm.Call(1, 0)
	}
	if m, ok := vm.GetGlobal("math").(*lua.LTable); ok {
		m.RawSetString("random", lua.LNil)
		m.RawSetString("randomseed", lua.LNil)
	}
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return &Engine{vm: vm, log: log}
}

// loadDir loads all .lua files in a directory, in name order.
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

// View is the read-only picture of the world handed to a faction script.
type View struct {
	Tick    uint64
	Faction world.Faction
	Planets []world.Planet // every planet; scripts compare controller
	Ships   []world.Ship   // the faction's own ships
	Slots   map[world.PlanetID]int
}

// HasDecider reports whether a decide function is loaded.
func (e *Engine) HasDecider() bool {
	return e.vm.GetGlobal("decide") != lua.LNil
}

// Decide calls Lua decide(ctx) for one faction and returns the commands it
// asks for, stamped with the faction. Malformed entries are skipped and
// logged; a script error returns no commands.
func (e *Engine) Decide(v View) ([]event.Event, error) {
	fn := e.vm.GetGlobal("decide")
	if fn == lua.LNil {
		return nil, nil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, e.viewTable(v)); err != nil {
		return nil, fmt.Errorf("lua decide (faction %d): %w", v.Faction.ID, err)
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil, nil
	}
	var cmds []event.Event
	n := rt.Len()
	for i := 1; i <= n; i++ {
		row, ok := rt.RawGetInt(i).(*lua.LTable)
		if !ok {
			continue
		}
		raw, err := json.Marshal(toGo(row))
		if err != nil {
			e.log.Warn("AI 指令無法編碼", zap.Uint64("faction", uint64(v.Faction.ID)), zap.Error(err))
			continue
		}
		ev, err := event.DecodeCommand(raw)
		if err != nil {
			e.log.Warn("AI 指令無效", zap.Uint64("faction", uint64(v.Faction.ID)), zap.Error(err))
			continue
		}
		cmds = append(cmds, event.WithFaction(ev, v.Faction.ID))
	}
	return cmds, nil
}

func (e *Engine) viewTable(v View) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("tick", lua.LNumber(v.Tick))

	f := e.vm.NewTable()
	f.RawSetString("id", lua.LNumber(v.Faction.ID))
	f.RawSetString("name", lua.LString(v.Faction.Name))
	f.RawSetString("tag", lua.LString(v.Faction.AITag))
	f.RawSetString("score", lua.LNumber(v.Faction.Score))
	t.RawSetString("faction", f)

	planets := e.vm.NewTable()
	for i, p := range v.Planets {
		row := e.vm.NewTable()
		row.RawSetString("id", lua.LNumber(p.ID))
		row.RawSetString("name", lua.LString(p.Name))
		row.RawSetString("controller", lua.LNumber(p.Controller))
		row.RawSetString("population", lua.LNumber(p.Population))
		row.RawSetString("resources", e.bundleTable(p.Resources))
		row.RawSetString("capacity", e.bundleTable(p.Capacity))
		w := e.vm.NewTable()
		for l := world.Labor(0); l < world.NumLabor; l++ {
			w.RawSetString(l.String(), lua.LNumber(p.Workers[l]))
		}
		row.RawSetString("workers", w)
		b := e.vm.NewTable()
		for _, bd := range p.Buildings {
			cur := lua.LVAsNumber(b.RawGetString(string(bd.Type)))
			b.RawSetString(string(bd.Type), cur+1)
		}
		row.RawSetString("buildings", b)
		row.RawSetString("building_count", lua.LNumber(len(p.Buildings)))
		row.RawSetString("slots", lua.LNumber(v.Slots[p.ID]))
		planets.RawSetInt(i+1, row)
	}
	t.RawSetString("planets", planets)

	ships := e.vm.NewTable()
	for i, s := range v.Ships {
		row := e.vm.NewTable()
		row.RawSetString("id", lua.LNumber(s.ID))
		row.RawSetString("class", lua.LString(s.Class))
		row.RawSetString("docked", lua.LNumber(s.Docked))
		row.RawSetString("moving", lua.LBool(s.Moving()))
		row.RawSetString("fuel", lua.LNumber(s.Fuel))
		row.RawSetString("cargo", e.bundleTable(s.Cargo))
		ships.RawSetInt(i+1, row)
	}
	t.RawSetString("ships", ships)
	return t
}

func (e *Engine) bundleTable(b world.ResourceBundle) *lua.LTable {
	t := e.vm.NewTable()
	for k := world.ResourceKind(0); k < world.NumResources; k++ {
		t.RawSetString(k.String(), lua.LNumber(b[k]))
	}
	return t
}

// toGo converts a Lua value to plain Go values for JSON encoding. Tables
// with a non-empty array part become slices, other tables maps.
func toGo(v lua.LValue) any {
	switch x := v.(type) {
	case lua.LBool:
		return bool(x)
	case lua.LNumber:
		f := float64(x)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(x)
	case *lua.LTable:
		if n := x.Len(); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, toGo(x.RawGetInt(i)))
			}
			return out
		}
		out := make(map[string]any)
		x.ForEach(func(k, val lua.LValue) {
			out[lua.LVAsString(k)] = toGo(val)
		})
		return out
	}
	return nil
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
