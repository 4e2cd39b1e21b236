package ffi

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/Luvion1/fax-native/gc"
)

// ModuleName is the import namespace compiled Fax modules link against.
const ModuleName = "env"

var (
	i32    = api.ValueTypeI32
	i64    = api.ValueTypeI64
	f64    = api.ValueTypeF64
	one    = []api.ValueType{i32}
	result = []api.ValueType{i32}
)

// hostFn pairs an export name with its wasm signature and handler. The
// handler receives the raw call stack; params and results are all i32.
type hostFn struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
	fn      api.GoModuleFunc
}

// Instantiate builds the "env" host module in rt. The Host behind it is
// constructed lazily on the first guest call, when the guest's memory
// exists; the returned Env hands it out once bound.
func Instantiate(ctx context.Context, rt wazero.Runtime) (*Env, error) {
	e := &Env{}
	builder := rt.NewHostModuleBuilder(ModuleName)
	for _, f := range e.functions() {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(f.fn, f.params, f.results).
			Export(f.name)
	}
	if _, err := builder.Instantiate(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Env is the instantiated host side of the "env" module. It defers Host
// construction until the first guest call, when the guest's memory is
// known.
type Env struct {
	h *Host
}

// Host returns the bound Host, or nil before the guest's first call
// into the bridge.
func (l *Env) Host() *Host {
	return l.h
}

func (l *Env) bind(mod api.Module) *Host {
	if l.h == nil {
		h, err := NewHost(wasmMemory{m: mod.Memory()}, gc.DefaultConfig())
		if err != nil {
			panic("fax ffi: cannot claim arena page: " + err.Error())
		}
		l.h = h
	}
	return l.h
}

func (l *Env) functions() []hostFn {
	args := func(n int) []api.ValueType {
		ts := make([]api.ValueType, n)
		for i := range ts {
			ts[i] = i32
		}
		return ts
	}
	fns := []hostFn{
		{"fax_proto_context_new", nil, result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).ContextNew())
		}},
		{"fax_proto_context_free", one, nil, func(_ context.Context, mod api.Module, stack []uint64) {
			l.bind(mod).ContextFree(uint32(stack[0]))
		}},
		{"fax_proto_get_error", one, result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).GetError(uint32(stack[0])))
		}},
		{"fax_proto_version", nil, result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).Version())
		}},
		{"fax_serialize_tokens", args(5), result, func(_ context.Context, mod api.Module, stack []uint64) {
			h := l.bind(mod)
			stack[0] = uint64(h.SerializeTokens(
				uint32(stack[0]), uint32(stack[1]), uint32(stack[2]),
				uint32(stack[3]), uint32(stack[4])))
		}},
		{"fax_deserialize_tokens", args(3), result, func(_ context.Context, mod api.Module, stack []uint64) {
			h := l.bind(mod)
			stack[0] = uint64(h.DeserializeTokens(
				uint32(stack[0]), uint32(stack[1]), uint32(stack[2])))
		}},
		{"fax_get_token_count", one, result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).TokenCount(uint32(stack[0])))
		}},
		{"fax_get_token_info", args(7), result, func(_ context.Context, mod api.Module, stack []uint64) {
			h := l.bind(mod)
			stack[0] = uint64(h.TokenInfo(
				uint32(stack[0]), uint32(stack[1]), uint32(stack[2]),
				uint32(stack[3]), uint32(stack[4]), uint32(stack[5]),
				uint32(stack[6])))
		}},
		{"fax_serialize_module", args(5), result, func(_ context.Context, mod api.Module, stack []uint64) {
			h := l.bind(mod)
			stack[0] = uint64(h.SerializeModule(
				uint32(stack[0]), uint32(stack[1]), uint32(stack[2]),
				uint32(stack[3]), uint32(stack[4])))
		}},
		{"fax_deserialize_module", args(5), result, func(_ context.Context, mod api.Module, stack []uint64) {
			h := l.bind(mod)
			stack[0] = uint64(h.DeserializeModule(
				uint32(stack[0]), uint32(stack[1]), uint32(stack[2]),
				uint32(stack[3]), uint32(stack[4])))
		}},
		{"fax_bytes_free", one, nil, func(_ context.Context, mod api.Module, stack []uint64) {
			l.bind(mod).BytesFree(uint32(stack[0]))
		}},
		{"fax_string_free", one, nil, func(_ context.Context, mod api.Module, stack []uint64) {
			l.bind(mod).StringFree(uint32(stack[0]))
		}},
		{"fax_gc_init", nil, result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).GCInit())
		}},
		{"fax_gc_alloc", one, result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).GCAlloc(uint32(stack[0])))
		}},
		{"fax_gc_alloc_zeroed", one, result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).GCAllocZeroed(uint32(stack[0])))
		}},
		{"fax_gc_register_root", one, result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).GCRegisterRoot(uint32(stack[0])))
		}},
		{"fax_gc_unregister_root", one, result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).GCUnregisterRoot(uint32(stack[0])))
		}},
		{"fax_gc_collect", nil, nil, func(_ context.Context, mod api.Module, stack []uint64) {
			l.bind(mod).GCCollect()
		}},
		{"fax_gc_collect_young", nil, nil, func(_ context.Context, mod api.Module, stack []uint64) {
			l.bind(mod).GCCollectYoung()
		}},
		{"fax_gc_shutdown", nil, nil, func(_ context.Context, mod api.Module, stack []uint64) {
			l.bind(mod).GCShutdown()
		}},
	}
	return append(fns, l.helperFunctions()...)
}
