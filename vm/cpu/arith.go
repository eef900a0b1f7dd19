package cpu

// IntegerAdd performs a 64-bit addition and reports the flags the ISA
// defines for ALU results: zero, sign, unsigned carry-out and signed
// overflow.
func IntegerAdd(a, b uint64) (result uint64, flags Flags) {
	result = a + b
	carry := result < a
	signA, signB, signR := int64(a) < 0, int64(b) < 0, int64(result) < 0
	overflow := signA == signB && signR != signA
	flags = Flags{
		Zero:     result == 0,
		Sign:     signR,
		Carry:    carry,
		Overflow: overflow,
	}
	return
}

// IntegerSub performs a 64-bit subtraction (a - b) and reports flags,
// including the borrow-as-carry convention used by CMP.
func IntegerSub(a, b uint64) (result uint64, flags Flags) {
	result = a - b
	borrow := a < b
	signA, signB, signR := int64(a) < 0, int64(b) < 0, int64(result) < 0
	overflow := signA != signB && signR != signA
	flags = Flags{
		Zero:     result == 0,
		Sign:     signR,
		Carry:    borrow,
		Overflow: overflow,
	}
	return
}

// IntegerMul performs 64-bit multiplication. Carry reports that the
// true product of the operands read as unsigned did not fit in 64
// bits; overflow reports the same for the operands read as signed.
func IntegerMul(a, b uint64) (result uint64, flags Flags) {
	result = a * b
	var carry, overflow bool
	if a != 0 {
		carry = result/a != b
		sa, sb := int64(a), int64(b)
		overflow = int64(result)/sa != sb || (sa == -1 && sb == -1<<63)
	}
	flags = Flags{
		Zero:     result == 0,
		Sign:     int64(result) < 0,
		Carry:    carry,
		Overflow: overflow,
	}
	return
}

// IntegerDivMod performs signed integer division and modulo together;
// the ISA exposes them as two opcodes (IntegerDiv writes the quotient
// to r1, IntegerMod writes the remainder to r1) but both always park
// the remainder in rf. ok is false on division by zero.
func IntegerDivMod(a, b uint64) (quotient, remainder uint64, ok bool) {
	if b == 0 {
		return 0, 0, false
	}
	sa, sb := int64(a), int64(b)
	quotient = uint64(sa / sb)
	remainder = uint64(sa % sb)
	ok = true
	return
}

// ResultFlags computes the zero/sign pair for a plain integer result,
// used by IntegerDiv/IntegerMod which don't carry carry/overflow.
func ResultFlags(result uint64) Flags {
	return Flags{Zero: result == 0, Sign: int64(result) < 0}
}

// FloatAdd/FloatSub/etc. live alongside the integer ops in float.go.

// SignBitSet reports whether the sign bit of a value of the given byte
// width is set.
func SignBitSet(value uint64, size uint8) bool {
	if size >= 8 {
		return int64(value) < 0
	}
	bit := uint64(1) << (size*8 - 1)
	return value&bit != 0
}
