package cpu

import "math"

// Float ALU ops leave cf/of unchanged and only set zf/sf, per the
// chosen safe default for an otherwise-undocumented detail of the
// source ISA.

func FloatAdd(a, b float64) (result float64, zero, sign bool) {
	result = a + b
	return result, result == 0, math.Signbit(result)
}

func FloatSub(a, b float64) (result float64, zero, sign bool) {
	result = a - b
	return result, result == 0, math.Signbit(result)
}

func FloatMul(a, b float64) (result float64, zero, sign bool) {
	result = a * b
	return result, result == 0, math.Signbit(result)
}

func FloatDiv(a, b float64) (result float64, zero, sign bool, ok bool) {
	if b == 0 {
		return 0, false, false, false
	}
	result = a / b
	return result, result == 0, math.Signbit(result), true
}

func FloatMod(a, b float64) (result float64, zero, sign bool, ok bool) {
	if b == 0 {
		return 0, false, false, false
	}
	result = math.Mod(a, b)
	return result, result == 0, math.Signbit(result), true
}
