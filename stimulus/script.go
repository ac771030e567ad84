package stimulus

import (
	"fmt"
	"math"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/sarchlab/segsim/decode"
	"github.com/sarchlab/segsim/mmu"
	"github.com/sarchlab/segsim/segment"
)

// A stimulus script is a Lua program that builds a suite by calling:
//
//	name(s)                     set the suite name
//	reset()                     reset step
//	read(addr)                  register read
//	write(addr, value)          register write
//	translate(addr [, write])   translation
//	install(group, {pbase=, lbase=, mask=, status=})
//	expect{phys=, seg_fault=, prot_fault=, data=, undriven=}
//	reg(group, field)           register address; field is 0-3 or
//	                            "pbase", "lbase", "mask", "status"
//
// Status bit constants USED, DIRTY, WP, FAULT and ENABLED are predefined.
// expect applies to the most recently added step.

// RunScript executes a stimulus script and returns the suite it built.
func RunScript(src string) (*Suite, error) {
	return runScript(func(L *lua.LState) error { return L.DoString(src) })
}

// RunScriptFile executes a stimulus script from a file.
func RunScriptFile(path string) (*Suite, error) {
	suite, err := runScript(func(L *lua.LState) error { return L.DoFile(path) })
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return suite, nil
}

func runScript(run func(L *lua.LState) error) (*Suite, error) {
	L := lua.NewState()
	defer L.Close()

	b := &scriptBuilder{suite: NewSuite("script")}
	b.register(L)

	if err := run(L); err != nil {
		return nil, fmt.Errorf("stimulus script failed: %w", err)
	}
	if err := b.suite.Validate(); err != nil {
		return nil, err
	}
	return b.suite, nil
}

type scriptBuilder struct {
	suite *Suite
}

func (b *scriptBuilder) register(L *lua.LState) {
	funcs := map[string]lua.LGFunction{
		"name":      b.name,
		"reset":     b.reset,
		"read":      b.read,
		"write":     b.write,
		"translate": b.translate,
		"install":   b.install,
		"expect":    b.expect,
		"reg":       b.reg,
	}
	for name, fn := range funcs {
		L.SetGlobal(name, L.NewFunction(fn))
	}

	L.SetGlobal("USED", lua.LNumber(1<<segment.UsedBit))
	L.SetGlobal("DIRTY", lua.LNumber(1<<segment.DirtyBit))
	L.SetGlobal("WP", lua.LNumber(1<<segment.WriteProtectedBit))
	L.SetGlobal("FAULT", lua.LNumber(1<<segment.FaultBit))
	L.SetGlobal("ENABLED", lua.LNumber(1<<segment.EnabledBit))
}

func (b *scriptBuilder) name(L *lua.LState) int {
	b.suite.Name = L.CheckString(1)
	return 0
}

func (b *scriptBuilder) reset(L *lua.LState) int {
	b.suite.Reset()
	return 0
}

func (b *scriptBuilder) read(L *lua.LState) int {
	b.suite.add(Step{Op: OpRead, Addr: Word(checkWord(L, 1))})
	return 0
}

func (b *scriptBuilder) write(L *lua.LState) int {
	b.suite.add(Step{Op: OpWrite, Addr: Word(checkWord(L, 1)), Data: Word(checkWord(L, 2))})
	return 0
}

func (b *scriptBuilder) translate(L *lua.LState) int {
	b.suite.Translate(checkWord(L, 1), L.OptBool(2, false))
	return 0
}

func (b *scriptBuilder) install(L *lua.LState) int {
	group := L.CheckInt(1)
	if group < 0 || group >= segment.NumDescriptors {
		L.ArgError(1, "group must be 0-3")
		return 0
	}
	tbl := L.CheckTable(2)
	b.suite.Install(group, segment.Descriptor{
		PhysicalBase: tableWord(L, tbl, "pbase"),
		LogicalBase:  tableWord(L, tbl, "lbase"),
		Mask:         tableWord(L, tbl, "mask"),
		Status:       segment.UnpackStatus(tableWord(L, tbl, "status")),
	})
	return 0
}

func (b *scriptBuilder) expect(L *lua.LState) int {
	tbl := L.CheckTable(1)
	if len(b.suite.Steps) == 0 {
		L.RaiseError("expect called before any step")
		return 0
	}

	e := &Expect{}
	if v := tbl.RawGetString("phys"); v != lua.LNil {
		e.PhysicalAddress = Ptr(expectWord(L, v, "phys", 1<<mmu.PhysicalAddressBits-1))
	}
	if v := tbl.RawGetString("seg_fault"); v != lua.LNil {
		e.SegFault = Ptr(lua.LVAsBool(v))
	}
	if v := tbl.RawGetString("prot_fault"); v != lua.LNil {
		e.ProtFault = Ptr(lua.LVAsBool(v))
	}
	if v := tbl.RawGetString("data"); v != lua.LNil {
		e.Data = Ptr(expectWord(L, v, "data", 0xFFFFFFFF))
	}
	if v := tbl.RawGetString("undriven"); v != lua.LNil {
		e.Undriven = Ptr(lua.LVAsBool(v))
	}

	b.suite.Steps[len(b.suite.Steps)-1].Expect = e
	return 0
}

func (b *scriptBuilder) reg(L *lua.LState) int {
	group := L.CheckInt(1)
	if group < 0 || group >= segment.NumDescriptors {
		L.ArgError(1, "group must be 0-3")
		return 0
	}

	var field segment.Field
	switch v := L.Get(2).(type) {
	case lua.LNumber:
		if v < 0 || int(v) >= segment.NumFields {
			L.ArgError(2, "field must be 0-3")
			return 0
		}
		field = segment.Field(int(v))
	case lua.LString:
		f, ok := fieldByName(string(v))
		if !ok {
			L.ArgError(2, fmt.Sprintf("unknown field %q", string(v)))
			return 0
		}
		field = f
	default:
		L.ArgError(2, "field must be a number or name")
		return 0
	}

	L.Push(lua.LNumber(decode.RegisterAddress(group, field)))
	return 1
}

func fieldByName(name string) (segment.Field, bool) {
	for f := segment.FieldPhysicalBase; f <= segment.FieldStatus; f++ {
		if strings.EqualFold(f.String(), name) {
			return f, true
		}
	}
	return 0, false
}

func checkWord(L *lua.LState, n int) uint32 {
	v := L.CheckNumber(n)
	if v < 0 || v > 0xFFFFFFFF {
		L.ArgError(n, "value must fit in 32 bits")
	}
	return uint32(v)
}

// tableWord reads an optional 32-bit field of the install table argument.
func tableWord(L *lua.LState, tbl *lua.LTable, key string) uint32 {
	v := tbl.RawGetString(key)
	if v == lua.LNil {
		return 0
	}

	n, ok := v.(lua.LNumber)
	if !ok || !isWholeNumber(n, 0xFFFFFFFF) {
		L.ArgError(2, fmt.Sprintf("%s must be an integer that fits in 32 bits", key))
		return 0
	}
	return uint32(n)
}

// expectWord reads an expected value given as a number or as a string in
// any form ParseWord accepts.
func expectWord(L *lua.LState, v lua.LValue, key string, limit uint64) Word {
	switch v := v.(type) {
	case lua.LNumber:
		if isWholeNumber(v, limit) {
			return Word(uint64(v))
		}
	case lua.LString:
		w, err := ParseWord(string(v))
		if err != nil {
			L.ArgError(1, fmt.Sprintf("%s: %v", key, err))
			return 0
		}
		if uint64(w) <= limit {
			return w
		}
	}
	L.ArgError(1, fmt.Sprintf("%s must be an integer no larger than 0x%X", key, limit))
	return 0
}

func isWholeNumber(n lua.LNumber, limit uint64) bool {
	f := float64(n)
	return f >= 0 && f <= float64(limit) && f == math.Trunc(f)
}
