package ffi

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// Runtime helpers backing the compiled-code intrinsics for strings,
// arrays, conversions, and assertions. Strings are NUL-terminated byte
// runs on the Fax heap; a null pointer is offset 0, which the arena
// never hands out. Arrays are runs of 8-byte slots with a u64 length
// header directly before the data pointer.

const arraySlot = 8

// cstr reads the NUL-terminated string at ptr. A null or unreadable
// pointer reads as the empty string.
func (h *Host) cstr(ptr uint32) string {
	if ptr == 0 {
		return ""
	}
	var sb strings.Builder
	for {
		b, err := h.mem.Read(ptr, 1)
		if err != nil || b[0] == 0 {
			return sb.String()
		}
		sb.WriteByte(b[0])
		ptr++
	}
}

// newString copies s onto the Fax heap as a NUL-terminated run and
// returns its offset, 0 on exhaustion.
func (h *Host) newString(s string) uint32 {
	ptr := uint32(h.gcrt.Alloc(uint64(len(s)) + 1))
	if ptr == 0 {
		return 0
	}
	if err := h.mem.Write(ptr, append([]byte(s), 0)); err != nil {
		Logger().Error("ffi: writing heap string", zap.Error(err))
		return 0
	}
	return ptr
}

// StringLen counts the bytes before the terminating NUL. Null reads
// as length 0.
func (h *Host) StringLen(ptr uint32) uint32 {
	return uint32(len(h.cstr(ptr)))
}

// StringConcat allocates a new string holding a then b. Null on any
// null input or on exhaustion.
func (h *Host) StringConcat(a, b uint32) uint32 {
	if a == 0 || b == 0 {
		return 0
	}
	return h.newString(h.cstr(a) + h.cstr(b))
}

// StringEq reports byte equality; two nulls are equal, a null and a
// string are not.
func (h *Host) StringEq(a, b uint32) uint32 {
	if a == 0 || b == 0 {
		if a == 0 && b == 0 {
			return 1
		}
		return 0
	}
	if h.cstr(a) == h.cstr(b) {
		return 1
	}
	return 0
}

// StringCmp orders two strings bytewise; null sorts before everything.
func (h *Host) StringCmp(a, b uint32) int32 {
	if a == 0 {
		if b == 0 {
			return 0
		}
		return -1
	}
	if b == 0 {
		return 1
	}
	return int32(strings.Compare(h.cstr(a), h.cstr(b)))
}

// StringClone copies a string onto a fresh heap block.
func (h *Host) StringClone(ptr uint32) uint32 {
	if ptr == 0 {
		return 0
	}
	return h.newString(h.cstr(ptr))
}

// StringSlice returns the bytes in [start, end), both clamped to the
// string length. An empty range yields the empty string, not null.
func (h *Host) StringSlice(ptr, start, end uint32) uint32 {
	if ptr == 0 {
		return 0
	}
	s := h.cstr(ptr)
	if start > uint32(len(s)) {
		start = uint32(len(s))
	}
	if end > uint32(len(s)) {
		end = uint32(len(s))
	}
	if start >= end {
		return h.newString("")
	}
	return h.newString(s[start:end])
}

// StringContains reports whether sub occurs in ptr.
func (h *Host) StringContains(ptr, sub uint32) uint32 {
	if ptr == 0 || sub == 0 {
		return 0
	}
	if strings.Contains(h.cstr(ptr), h.cstr(sub)) {
		return 1
	}
	return 0
}

// StringStartsWith reports whether ptr begins with prefix.
func (h *Host) StringStartsWith(ptr, prefix uint32) uint32 {
	if ptr == 0 || prefix == 0 {
		return 0
	}
	if strings.HasPrefix(h.cstr(ptr), h.cstr(prefix)) {
		return 1
	}
	return 0
}

// StringEndsWith reports whether ptr ends with suffix.
func (h *Host) StringEndsWith(ptr, suffix uint32) uint32 {
	if ptr == 0 || suffix == 0 {
		return 0
	}
	if strings.HasSuffix(h.cstr(ptr), h.cstr(suffix)) {
		return 1
	}
	return 0
}

// StringReplace substitutes every occurrence of old with new in a
// fresh string. A null old clones the input; a null new deletes.
func (h *Host) StringReplace(ptr, old, new uint32) uint32 {
	if ptr == 0 {
		return 0
	}
	if old == 0 {
		return h.StringClone(ptr)
	}
	return h.newString(strings.ReplaceAll(h.cstr(ptr), h.cstr(old), h.cstr(new)))
}

// StringTrim strips leading and trailing whitespace into a new string.
func (h *Host) StringTrim(ptr uint32) uint32 {
	if ptr == 0 {
		return 0
	}
	return h.newString(strings.TrimSpace(h.cstr(ptr)))
}

// StringUpper uppercases into a new string.
func (h *Host) StringUpper(ptr uint32) uint32 {
	if ptr == 0 {
		return 0
	}
	return h.newString(strings.ToUpper(h.cstr(ptr)))
}

// StringLower lowercases into a new string.
func (h *Host) StringLower(ptr uint32) uint32 {
	if ptr == 0 {
		return 0
	}
	return h.newString(strings.ToLower(h.cstr(ptr)))
}

// StringSplit returns the segment before the first occurrence of
// delim, null when delim never occurs. An empty delim clones the
// input.
func (h *Host) StringSplit(ptr, delim uint32) uint32 {
	if ptr == 0 || delim == 0 {
		return 0
	}
	d := h.cstr(delim)
	if d == "" {
		return h.StringClone(ptr)
	}
	s := h.cstr(ptr)
	i := strings.Index(s, d)
	if i < 0 {
		return 0
	}
	return h.newString(s[:i])
}

// BoolToString renders v as "true" or "false".
func (h *Host) BoolToString(v uint32) uint32 {
	if v != 0 {
		return h.newString("true")
	}
	return h.newString("false")
}

// CharToString encodes the code point c as UTF-8; invalid code points
// become the replacement character.
func (h *Host) CharToString(c uint32) uint32 {
	r := rune(c)
	if !utf8.ValidRune(r) {
		r = utf8.RuneError
	}
	return h.newString(string(r))
}

// IntToString renders v in base 10.
func (h *Host) IntToString(v int64) uint32 {
	return h.newString(strconv.FormatInt(v, 10))
}

// FloatToString renders v the shortest way that round-trips.
func (h *Host) FloatToString(v float64) uint32 {
	return h.newString(strconv.FormatFloat(v, 'g', -1, 64))
}

// StringToInt parses a base-10 integer, 0 on any parse failure.
func (h *Host) StringToInt(ptr uint32) int64 {
	v, err := strconv.ParseInt(h.cstr(ptr), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// StringToInt32 parses a base-10 32-bit integer, 0 on any parse
// failure including range overflow.
func (h *Host) StringToInt32(ptr uint32) int32 {
	v, err := strconv.ParseInt(h.cstr(ptr), 10, 32)
	if err != nil {
		return 0
	}
	return int32(v)
}

// StringToUint32 parses a base-10 unsigned 32-bit integer, 0 on any
// parse failure.
func (h *Host) StringToUint32(ptr uint32) uint32 {
	v, err := strconv.ParseUint(h.cstr(ptr), 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}

// UintToString renders v in base 10.
func (h *Host) UintToString(v uint64) uint32 {
	return h.newString(strconv.FormatUint(v, 10))
}

// StringToFloat parses a decimal float, 0 on any parse failure.
func (h *Host) StringToFloat(ptr uint32) float64 {
	v, err := strconv.ParseFloat(h.cstr(ptr), 64)
	if err != nil {
		return 0
	}
	return v
}

// ArrayCreate allocates a zeroed array of count 8-byte slots and
// returns the data pointer. The length header lives in the 8 bytes
// before it.
func (h *Host) ArrayCreate(count uint32) uint32 {
	base := uint32(h.gcrt.AllocZeroed(uint64(count)*arraySlot + arraySlot))
	if base == 0 {
		return 0
	}
	var hdr [arraySlot]byte
	binary.LittleEndian.PutUint64(hdr[:], uint64(count))
	if err := h.mem.Write(base, hdr[:]); err != nil {
		Logger().Error("ffi: writing array header", zap.Error(err))
		return 0
	}
	return base + arraySlot
}

// ArrayLen reads the length header, 0 for a null pointer.
func (h *Host) ArrayLen(ptr uint32) uint32 {
	if ptr < arraySlot {
		return 0
	}
	b, err := h.mem.Read(ptr-arraySlot, arraySlot)
	if err != nil {
		return 0
	}
	return uint32(binary.LittleEndian.Uint64(b))
}

// ArrayGet returns the address of slot index, 0 when out of range.
func (h *Host) ArrayGet(ptr, index uint32) uint32 {
	if ptr == 0 || index >= h.ArrayLen(ptr) {
		return 0
	}
	return ptr + index*arraySlot
}

// ArraySet stores value into slot index. Returns 1 on success, 0 when
// the pointer is null or the index is out of range.
func (h *Host) ArraySet(ptr, index uint32, value uint64) uint32 {
	if ptr == 0 || index >= h.ArrayLen(ptr) {
		return 0
	}
	var b [arraySlot]byte
	binary.LittleEndian.PutUint64(b[:], value)
	if err := h.mem.Write(ptr+index*arraySlot, b[:]); err != nil {
		return 0
	}
	return 1
}

// ArrayClone copies header and slots into a fresh array.
func (h *Host) ArrayClone(ptr uint32) uint32 {
	if ptr == 0 {
		return 0
	}
	count := h.ArrayLen(ptr)
	clone := h.ArrayCreate(count)
	if clone == 0 {
		return 0
	}
	data, err := h.mem.Read(ptr, count*arraySlot)
	if err != nil {
		return 0
	}
	if err := h.mem.Write(clone, data); err != nil {
		return 0
	}
	return clone
}

// Println writes the string and a newline to the host's output; a
// null pointer prints a bare newline.
func (h *Host) Println(ptr uint32) {
	if ptr == 0 {
		fmt.Fprintln(h.out)
		return
	}
	fmt.Fprintln(h.out, h.cstr(ptr))
}

// Print writes the string without a newline. Null is a no-op.
func (h *Host) Print(ptr uint32) {
	if ptr == 0 {
		return
	}
	fmt.Fprint(h.out, h.cstr(ptr))
}

// DebugPrintln writes the string with a type tag, for compiler-emitted
// tracing.
func (h *Host) DebugPrintln(ptr uint32, tag int32) {
	if ptr == 0 {
		fmt.Fprintf(h.out, "[DEBUG] (null) type_tag=%d\n", tag)
		return
	}
	fmt.Fprintf(h.out, "[DEBUG] %s type_tag=%d\n", h.cstr(ptr), tag)
}

// Panic aborts guest execution with the given message. The panic
// unwinds into the wasm runtime, which surfaces it as a trapped call.
func (h *Host) Panic(ptr uint32) {
	msg := "unknown error"
	if ptr != 0 {
		msg = h.cstr(ptr)
	}
	Logger().Error("ffi: guest panic", zap.String("message", msg))
	panic("fax: " + msg)
}

// Assert panics with msg when cond is false.
func (h *Host) Assert(cond, msg uint32) {
	if cond == 0 {
		h.Panic(msg)
	}
}

// f64Unary pairs the single-argument float intrinsics with their
// export names; registration order follows the slice.
var f64Unary = []struct {
	name string
	fn   func(float64) float64
}{
	{"fax_f64_math_sqrt", math.Sqrt},
	{"fax_f64_math_sin", math.Sin},
	{"fax_f64_math_cos", math.Cos},
	{"fax_f64_math_floor", math.Floor},
	{"fax_f64_math_ceil", math.Ceil},
	{"fax_f64_math_round", math.Round},
	{"fax_f64_math_abs", math.Abs},
	{"fax_f64_math_log", math.Log},
	{"fax_f64_math_log10", math.Log10},
	{"fax_f64_math_exp", math.Exp},
}

// helperFunctions is the env export table for the runtime helpers.
func (l *Env) helperFunctions() []hostFn {
	args := func(n int) []api.ValueType {
		ts := make([]api.ValueType, n)
		for i := range ts {
			ts[i] = i32
		}
		return ts
	}
	str1 := func(method func(*Host, uint32) uint32) api.GoModuleFunc {
		return func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(method(l.bind(mod), uint32(stack[0])))
		}
	}
	str2 := func(method func(*Host, uint32, uint32) uint32) api.GoModuleFunc {
		return func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(method(l.bind(mod), uint32(stack[0]), uint32(stack[1])))
		}
	}

	fns := []hostFn{
		{"fax_string_len", one, result, str1((*Host).StringLen)},
		{"fax_string_concat", args(2), result, str2((*Host).StringConcat)},
		{"fax_string_eq", args(2), result, str2((*Host).StringEq)},
		{"fax_string_cmp", args(2), result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(uint32(l.bind(mod).StringCmp(uint32(stack[0]), uint32(stack[1]))))
		}},
		{"fax_string_clone", one, result, str1((*Host).StringClone)},
		{"fax_string_slice", args(3), result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).StringSlice(
				uint32(stack[0]), uint32(stack[1]), uint32(stack[2])))
		}},
		{"fax_string_contains", args(2), result, str2((*Host).StringContains)},
		{"fax_string_starts_with", args(2), result, str2((*Host).StringStartsWith)},
		{"fax_string_ends_with", args(2), result, str2((*Host).StringEndsWith)},
		{"fax_string_replace", args(3), result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).StringReplace(
				uint32(stack[0]), uint32(stack[1]), uint32(stack[2])))
		}},
		{"fax_string_trim", one, result, str1((*Host).StringTrim)},
		{"fax_string_to_uppercase", one, result, str1((*Host).StringUpper)},
		{"fax_string_to_lowercase", one, result, str1((*Host).StringLower)},
		{"fax_string_split", args(2), result, str2((*Host).StringSplit)},

		{"fax_bool_to_string", one, result, str1((*Host).BoolToString)},
		{"fax_char_to_string", one, result, str1((*Host).CharToString)},
		{"fax_int_to_string", []api.ValueType{i64}, result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).IntToString(int64(stack[0])))
		}},
		{"fax_int32_to_string", one, result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).IntToString(int64(int32(uint32(stack[0])))))
		}},
		{"fax_uint32_to_string", one, result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).UintToString(uint64(uint32(stack[0]))))
		}},
		{"fax_float_to_string", []api.ValueType{f64}, result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).FloatToString(math.Float64frombits(stack[0])))
		}},
		{"fax_string_to_int", one, []api.ValueType{i64}, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).StringToInt(uint32(stack[0])))
		}},
		{"fax_string_to_int32", one, result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(uint32(l.bind(mod).StringToInt32(uint32(stack[0]))))
		}},
		{"fax_string_to_uint32", one, result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).StringToUint32(uint32(stack[0])))
		}},
		{"fax_string_to_float", one, []api.ValueType{f64}, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = math.Float64bits(l.bind(mod).StringToFloat(uint32(stack[0])))
		}},

		{"fax_array_create", args(2), result, func(_ context.Context, mod api.Module, stack []uint64) {
			// The element size parameter is fixed at 8 by the code
			// generator; only the count matters.
			stack[0] = uint64(l.bind(mod).ArrayCreate(uint32(stack[0])))
		}},
		{"fax_array_len", one, result, str1((*Host).ArrayLen)},
		{"fax_array_get", args(2), result, str2((*Host).ArrayGet)},
		{"fax_array_set", []api.ValueType{i32, i32, i64}, result, func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(l.bind(mod).ArraySet(uint32(stack[0]), uint32(stack[1]), stack[2]))
		}},
		{"fax_array_clone", one, result, str1((*Host).ArrayClone)},

		{"fax_println", one, nil, func(_ context.Context, mod api.Module, stack []uint64) {
			l.bind(mod).Println(uint32(stack[0]))
		}},
		{"fax_print", one, nil, func(_ context.Context, mod api.Module, stack []uint64) {
			l.bind(mod).Print(uint32(stack[0]))
		}},
		{"fax_debug_println", args(2), nil, func(_ context.Context, mod api.Module, stack []uint64) {
			l.bind(mod).DebugPrintln(uint32(stack[0]), int32(uint32(stack[1])))
		}},
		{"fax_panic", one, nil, func(_ context.Context, mod api.Module, stack []uint64) {
			l.bind(mod).Panic(uint32(stack[0]))
		}},
		{"fax_assert", args(2), nil, func(_ context.Context, mod api.Module, stack []uint64) {
			l.bind(mod).Assert(uint32(stack[0]), uint32(stack[1]))
		}},
	}

	for _, m := range f64Unary {
		fn := m.fn
		fns = append(fns, hostFn{m.name, []api.ValueType{f64}, []api.ValueType{f64},
			func(_ context.Context, _ api.Module, stack []uint64) {
				stack[0] = math.Float64bits(fn(math.Float64frombits(stack[0])))
			}})
	}
	fns = append(fns, hostFn{"fax_f64_math_pow", []api.ValueType{f64, f64}, []api.ValueType{f64},
		func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = math.Float64bits(math.Pow(
				math.Float64frombits(stack[0]), math.Float64frombits(stack[1])))
		}})
	return fns
}
