// Package cpu implements the 6502 CPU emulation for the NES.
package cpu

import "fmt"

// AddressingMode identifies how an opcode computes its effective address.
type AddressingMode int

const (
	Implied AddressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Relative
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndexedIndirect // (zp,X)
	IndirectIndexed // (zp),Y
)

const (
	stackBase = 0x0100

	nFlagMask  = 0x80
	vFlagMask  = 0x40
	unusedMask = 0x20
	bFlagMask  = 0x10
	dFlagMask  = 0x08
	iFlagMask  = 0x04
	zFlagMask  = 0x02
	cFlagMask  = 0x01

	zeroPageMask = 0xFF
	pageMask     = 0xFF00

	nmiVector   = 0xFFFA
	irqVector   = 0xFFFE
	resetVector = 0xFFFC
)

// opHandler executes one opcode's semantics and returns any extra cycles
// beyond the instruction's base Cycles (branch-taken/page-cross bonuses for
// branches; 0 for everything else, since read-type page-cross bonuses are
// applied uniformly by Step via PageCrossPenalty).
type opHandler func(cpu *CPU, address uint16, pageCrossed bool) uint8

// Instruction is one entry of the 256-slot opcode dispatch table: mnemonic,
// encoding size, base cycle cost, addressing mode, whether a page crossing
// during operand computation adds one cycle, and the handler that performs
// the opcode's effect.
type Instruction struct {
	Name             string
	Opcode           uint8
	Bytes            uint8
	Cycles           uint8
	Mode             AddressingMode
	PageCrossPenalty bool
	Handler          opHandler
}

// cpuDiagnostics groups the non-architectural counters and toggles a host
// can use to observe CPU behavior without affecting emulation semantics.
type cpuDiagnostics struct {
	debugLogging   bool
	loopDetection  bool
	lastPC         uint16
	pcStayCount    int
	invalidOpcodes uint64
	instructions   uint64
}

// CPU represents the 6502 processor used in the NES.
type CPU struct {
	A  uint8  // Accumulator
	X  uint8  // X register
	Y  uint8  // Y register
	SP uint8  // Stack pointer
	PC uint16 // Program counter

	C bool // Carry
	Z bool // Zero
	I bool // Interrupt disable
	D bool // Decimal mode (present but inert; the NES 2A03 ignores it)
	B bool // Break
	V bool // Overflow
	N bool // Negative

	memory MemoryInterface

	cycles uint64

	instructions [256]*Instruction

	nmiPending  bool
	irqPending  bool
	nmiPrevious bool

	diag cpuDiagnostics
}

// MemoryInterface defines the interface for CPU memory access.
type MemoryInterface interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// New creates a new CPU instance bound to the given bus.
func New(memory MemoryInterface) *CPU {
	cpu := &CPU{
		memory: memory,
		SP:     0xFD,
	}
	cpu.initInstructions()
	return cpu
}

// Reset drives the CPU through the 6502 power-up/reset sequence: registers
// go to their documented initial state, the stack pointer settles at 0xFD,
// and the real hardware spends 5 cycles touching the bus before the two
// cycles that fetch the reset vector — 7 cycles total, none of which may be
// observed by software since interrupts are suppressed during reset.
func (cpu *CPU) Reset() {
	cpu.A = 0x00
	cpu.X = 0x00
	cpu.Y = 0x00
	cpu.SP = 0xFD

	cpu.C = false
	cpu.Z = false
	cpu.I = true
	cpu.D = false
	cpu.B = true
	cpu.V = false
	cpu.N = false
	cpu.nmiPending = false
	cpu.irqPending = false
	cpu.diag.invalidOpcodes = 0
	cpu.diag.instructions = 0

	// The real 6502 reset sequence performs 5 bus cycles (stack-pointer
	// decrements disguised as dummy reads/writes) before it ever looks at
	// the reset vector; software cannot observe their effect, so a dummy
	// read from the current PC five times over reproduces the timing
	// without needing a full microcode model.
	for i := 0; i < 5; i++ {
		cpu.memory.Read(cpu.PC)
		cpu.cycles++
	}

	low := uint16(cpu.memory.Read(resetVector))
	high := uint16(cpu.memory.Read(resetVector + 1))
	cpu.PC = (high << 8) | low
	cpu.cycles += 2
}

// Step executes a single CPU instruction (or the pending interrupt handler's
// vector fetch, deferred to after the instruction completes) and returns the
// number of cycles it consumed.
func (cpu *CPU) Step() uint64 {
	currentPC := cpu.PC
	opcode := cpu.memory.Read(cpu.PC)
	instruction := cpu.instructions[opcode]

	if cpu.diag.loopDetection {
		cpu.detectInfiniteLoop(currentPC, opcode)
	}
	if cpu.diag.debugLogging {
		cpu.logInstruction(currentPC, opcode, instruction)
	}

	if instruction == nil {
		// No defined 6502 behavior for this opcode ("KIL"-class byte).
		// Count it and treat it as a 1-byte, 2-cycle no-op so the
		// instruction stream keeps moving instead of stalling the host.
		cpu.diag.invalidOpcodes++
		cpu.diag.instructions++
		cpu.PC++
		cpu.cycles += 2
		cpu.ProcessPendingInterrupts()
		return 2
	}

	address, pageCrossed := cpu.getOperandAddress(instruction.Mode)
	extraCycles := instruction.Handler(cpu, address, pageCrossed)
	if pageCrossed && instruction.PageCrossPenalty {
		extraCycles++
	}

	totalCycles := uint64(instruction.Cycles) + uint64(extraCycles)
	cpu.cycles += totalCycles
	cpu.diag.instructions++

	// Interrupts are polled only after the instruction has fully committed.
	cpu.ProcessPendingInterrupts()

	return totalCycles
}

// getOperandAddress returns the effective address for the given addressing
// mode and whether computing it crossed a page boundary (relevant for cycle
// accounting on indexed and relative modes).
func (cpu *CPU) getOperandAddress(mode AddressingMode) (uint16, bool) {
	switch mode {
	case Implied, Accumulator:
		cpu.PC++
		return 0, false

	case Immediate:
		address := cpu.PC + 1
		cpu.PC += 2
		return address, false

	case ZeroPage:
		address := uint16(cpu.memory.Read(cpu.PC + 1))
		cpu.PC += 2
		return address, false

	case ZeroPageX:
		base := cpu.memory.Read(cpu.PC + 1)
		address := uint16((base + cpu.X) & zeroPageMask)
		cpu.PC += 2
		return address, false

	case ZeroPageY:
		base := cpu.memory.Read(cpu.PC + 1)
		address := uint16((base + cpu.Y) & zeroPageMask)
		cpu.PC += 2
		return address, false

	case Relative:
		offset := int8(cpu.memory.Read(cpu.PC + 1))
		oldPC := cpu.PC + 2
		newPC := uint16(int32(oldPC) + int32(offset))
		cpu.PC = oldPC // overwritten by the branch handler if taken
		pageCrossed := (oldPC & pageMask) != (newPC & pageMask)
		return newPC, pageCrossed

	case Absolute:
		low := uint16(cpu.memory.Read(cpu.PC + 1))
		high := uint16(cpu.memory.Read(cpu.PC + 2))
		cpu.PC += 3
		return (high << 8) | low, false

	case AbsoluteX:
		low := uint16(cpu.memory.Read(cpu.PC + 1))
		high := uint16(cpu.memory.Read(cpu.PC + 2))
		base := (high << 8) | low
		address := base + uint16(cpu.X)
		cpu.PC += 3
		return address, (base & pageMask) != (address & pageMask)

	case AbsoluteY:
		low := uint16(cpu.memory.Read(cpu.PC + 1))
		high := uint16(cpu.memory.Read(cpu.PC + 2))
		base := (high << 8) | low
		address := base + uint16(cpu.Y)
		cpu.PC += 3
		return address, (base & pageMask) != (address & pageMask)

	case Indirect: // JMP only
		lowPtr := uint16(cpu.memory.Read(cpu.PC + 1))
		highPtr := uint16(cpu.memory.Read(cpu.PC + 2))
		ptr := (highPtr << 8) | lowPtr

		var address uint16
		if (ptr & zeroPageMask) == zeroPageMask {
			// Page-wrap bug: the high byte comes from the start of the
			// same page instead of the next page.
			low := uint16(cpu.memory.Read(ptr))
			high := uint16(cpu.memory.Read(ptr & pageMask))
			address = (high << 8) | low
		} else {
			low := uint16(cpu.memory.Read(ptr))
			high := uint16(cpu.memory.Read(ptr + 1))
			address = (high << 8) | low
		}
		cpu.PC += 3
		return address, false

	case IndexedIndirect: // (zp,X)
		base := cpu.memory.Read(cpu.PC + 1)
		ptr := (base + cpu.X) & zeroPageMask
		low := uint16(cpu.memory.Read(uint16(ptr)))
		high := uint16(cpu.memory.Read(uint16((ptr + 1) & zeroPageMask)))
		cpu.PC += 2
		return (high << 8) | low, false

	case IndirectIndexed: // (zp),Y
		ptr := uint16(cpu.memory.Read(cpu.PC + 1))
		low := uint16(cpu.memory.Read(ptr))
		high := uint16(cpu.memory.Read((ptr + 1) & zeroPageMask))
		base := (high << 8) | low
		address := base + uint16(cpu.Y)
		cpu.PC += 2
		return address, (base & pageMask) != (address & pageMask)

	default:
		return 0, false
	}
}

func (cpu *CPU) push(value uint8) {
	cpu.memory.Write(stackBase+uint16(cpu.SP), value)
	cpu.SP--
}

func (cpu *CPU) pop() uint8 {
	cpu.SP++
	return cpu.memory.Read(stackBase + uint16(cpu.SP))
}

func (cpu *CPU) pushWord(value uint16) {
	cpu.push(uint8(value >> 8))
	cpu.push(uint8(value & 0xFF))
}

func (cpu *CPU) popWord() uint16 {
	low := uint16(cpu.pop())
	high := uint16(cpu.pop())
	return (high << 8) | low
}

func (cpu *CPU) setZN(value uint8) {
	cpu.Z = value == 0
	cpu.N = (value & nFlagMask) != 0
}

func (cpu *CPU) handleNMI() {
	cpu.pushWord(cpu.PC)
	status := cpu.GetStatusByte() & ^uint8(bFlagMask)
	status |= unusedMask
	cpu.push(status)
	cpu.I = true
	low := uint16(cpu.memory.Read(nmiVector))
	high := uint16(cpu.memory.Read(nmiVector + 1))
	cpu.PC = (high << 8) | low
	cpu.cycles += 7
}

func (cpu *CPU) handleIRQ() {
	cpu.pushWord(cpu.PC)
	status := cpu.GetStatusByte() & ^uint8(bFlagMask)
	status |= unusedMask
	cpu.push(status)
	cpu.I = true
	low := uint16(cpu.memory.Read(irqVector))
	high := uint16(cpu.memory.Read(irqVector + 1))
	cpu.PC = (high << 8) | low
	cpu.cycles += 7
}

// SetNMI models the physical NMI line; it fires on a falling edge
// (previously asserted, now released), matching real 6502 edge-triggering.
func (cpu *CPU) SetNMI(state bool) {
	if cpu.nmiPrevious && !state {
		cpu.nmiPending = true
	}
	cpu.nmiPrevious = state
}

// SetIRQ sets the level-sensitive IRQ line state.
func (cpu *CPU) SetIRQ(state bool) {
	cpu.irqPending = state
}

// ProcessPendingInterrupts services a pending NMI or (if unmasked) IRQ. NMI
// has strictly higher priority and can never be masked.
func (cpu *CPU) ProcessPendingInterrupts() {
	if cpu.nmiPending {
		cpu.nmiPending = false
		cpu.handleNMI()
		return
	}
	if cpu.irqPending && !cpu.I {
		cpu.handleIRQ()
	}
}

// TriggerNMI latches a pending NMI directly, bypassing edge detection; used
// by hosts (the Bus) that already know the PPU's VBlank/NMI line transitioned.
func (cpu *CPU) TriggerNMI() {
	cpu.nmiPending = true
}

// TriggerIRQ latches a pending IRQ directly.
func (cpu *CPU) TriggerIRQ() {
	cpu.irqPending = true
}

// GetStatusByte packs the discrete flag booleans into the 6502 status byte.
func (cpu *CPU) GetStatusByte() uint8 {
	var status uint8
	if cpu.N {
		status |= nFlagMask
	}
	if cpu.V {
		status |= vFlagMask
	}
	status |= unusedMask
	if cpu.B {
		status |= bFlagMask
	}
	if cpu.D {
		status |= dFlagMask
	}
	if cpu.I {
		status |= iFlagMask
	}
	if cpu.Z {
		status |= zFlagMask
	}
	if cpu.C {
		status |= cFlagMask
	}
	return status
}

// SetStatusByte unpacks a 6502 status byte into the discrete flag booleans.
func (cpu *CPU) SetStatusByte(status uint8) {
	cpu.N = (status & nFlagMask) != 0
	cpu.V = (status & vFlagMask) != 0
	cpu.B = (status & bFlagMask) != 0
	cpu.D = (status & dFlagMask) != 0
	cpu.I = (status & iFlagMask) != 0
	cpu.Z = (status & zFlagMask) != 0
	cpu.C = (status & cFlagMask) != 0
}

// --- Official opcode handlers ---
// Each handler has the uniform opHandler signature; handlers for
// non-branch opcodes ignore the pageCrossed argument since Step applies
// the read-type page-cross bonus uniformly via Instruction.PageCrossPenalty.

func (cpu *CPU) lda(address uint16, _ bool) uint8 {
	cpu.A = cpu.memory.Read(address)
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) ldx(address uint16, _ bool) uint8 {
	cpu.X = cpu.memory.Read(address)
	cpu.setZN(cpu.X)
	return 0
}

func (cpu *CPU) ldy(address uint16, _ bool) uint8 {
	cpu.Y = cpu.memory.Read(address)
	cpu.setZN(cpu.Y)
	return 0
}

func (cpu *CPU) sta(address uint16, _ bool) uint8 {
	cpu.memory.Write(address, cpu.A)
	return 0
}

func (cpu *CPU) stx(address uint16, _ bool) uint8 {
	cpu.memory.Write(address, cpu.X)
	return 0
}

func (cpu *CPU) sty(address uint16, _ bool) uint8 {
	cpu.memory.Write(address, cpu.Y)
	return 0
}

func (cpu *CPU) adc(address uint16, _ bool) uint8 {
	value := cpu.memory.Read(address)
	carry := uint8(0)
	if cpu.C {
		carry = 1
	}
	result := uint16(cpu.A) + uint16(value) + uint16(carry)
	cpu.V = ((cpu.A^uint8(result))&0x80) != 0 && ((cpu.A^value)&0x80) == 0
	cpu.C = result > 0xFF
	cpu.A = uint8(result)
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) sbc(address uint16, _ bool) uint8 {
	value := cpu.memory.Read(address) ^ 0xFF
	carry := uint8(0)
	if cpu.C {
		carry = 1
	}
	result := uint16(cpu.A) + uint16(value) + uint16(carry)
	cpu.V = ((cpu.A^uint8(result))&0x80) != 0 && ((cpu.A^value)&0x80) == 0
	cpu.C = result > 0xFF
	cpu.A = uint8(result)
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) and(address uint16, _ bool) uint8 {
	cpu.A &= cpu.memory.Read(address)
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) ora(address uint16, _ bool) uint8 {
	cpu.A |= cpu.memory.Read(address)
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) eor(address uint16, _ bool) uint8 {
	cpu.A ^= cpu.memory.Read(address)
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) aslAcc(_ uint16, _ bool) uint8 {
	cpu.C = (cpu.A & 0x80) != 0
	cpu.A <<= 1
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) asl(address uint16, _ bool) uint8 {
	value := cpu.memory.Read(address)
	cpu.C = (value & 0x80) != 0
	value <<= 1
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

func (cpu *CPU) lsrAcc(_ uint16, _ bool) uint8 {
	cpu.C = (cpu.A & 0x01) != 0
	cpu.A >>= 1
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) lsr(address uint16, _ bool) uint8 {
	value := cpu.memory.Read(address)
	cpu.C = (value & 0x01) != 0
	value >>= 1
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

func (cpu *CPU) rolAcc(_ uint16, _ bool) uint8 {
	oldCarry := cpu.C
	cpu.C = (cpu.A & 0x80) != 0
	cpu.A <<= 1
	if oldCarry {
		cpu.A |= 0x01
	}
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) rol(address uint16, _ bool) uint8 {
	value := cpu.memory.Read(address)
	oldCarry := cpu.C
	cpu.C = (value & 0x80) != 0
	value <<= 1
	if oldCarry {
		value |= 0x01
	}
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

func (cpu *CPU) rorAcc(_ uint16, _ bool) uint8 {
	oldCarry := cpu.C
	cpu.C = (cpu.A & 0x01) != 0
	cpu.A >>= 1
	if oldCarry {
		cpu.A |= 0x80
	}
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) ror(address uint16, _ bool) uint8 {
	value := cpu.memory.Read(address)
	oldCarry := cpu.C
	cpu.C = (value & 0x01) != 0
	value >>= 1
	if oldCarry {
		value |= 0x80
	}
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

func (cpu *CPU) cmp(address uint16, _ bool) uint8 {
	value := cpu.memory.Read(address)
	result := cpu.A - value
	cpu.C = cpu.A >= value
	cpu.setZN(result)
	return 0
}

func (cpu *CPU) cpx(address uint16, _ bool) uint8 {
	value := cpu.memory.Read(address)
	result := cpu.X - value
	cpu.C = cpu.X >= value
	cpu.setZN(result)
	return 0
}

func (cpu *CPU) cpy(address uint16, _ bool) uint8 {
	value := cpu.memory.Read(address)
	result := cpu.Y - value
	cpu.C = cpu.Y >= value
	cpu.setZN(result)
	return 0
}

func (cpu *CPU) inc(address uint16, _ bool) uint8 {
	value := cpu.memory.Read(address) + 1
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

func (cpu *CPU) dec(address uint16, _ bool) uint8 {
	value := cpu.memory.Read(address) - 1
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

func (cpu *CPU) inx(_ uint16, _ bool) uint8 {
	cpu.X++
	cpu.setZN(cpu.X)
	return 0
}

func (cpu *CPU) dex(_ uint16, _ bool) uint8 {
	cpu.X--
	cpu.setZN(cpu.X)
	return 0
}

func (cpu *CPU) iny(_ uint16, _ bool) uint8 {
	cpu.Y++
	cpu.setZN(cpu.Y)
	return 0
}

func (cpu *CPU) dey(_ uint16, _ bool) uint8 {
	cpu.Y--
	cpu.setZN(cpu.Y)
	return 0
}

func (cpu *CPU) tax(_ uint16, _ bool) uint8 {
	cpu.X = cpu.A
	cpu.setZN(cpu.X)
	return 0
}

func (cpu *CPU) txa(_ uint16, _ bool) uint8 {
	cpu.A = cpu.X
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) tay(_ uint16, _ bool) uint8 {
	cpu.Y = cpu.A
	cpu.setZN(cpu.Y)
	return 0
}

func (cpu *CPU) tya(_ uint16, _ bool) uint8 {
	cpu.A = cpu.Y
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) tsx(_ uint16, _ bool) uint8 {
	cpu.X = cpu.SP
	cpu.setZN(cpu.X)
	return 0
}

func (cpu *CPU) txs(_ uint16, _ bool) uint8 {
	cpu.SP = cpu.X
	return 0
}

func (cpu *CPU) pha(_ uint16, _ bool) uint8 {
	cpu.push(cpu.A)
	return 0
}

func (cpu *CPU) pla(_ uint16, _ bool) uint8 {
	cpu.A = cpu.pop()
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) php(_ uint16, _ bool) uint8 {
	cpu.push(cpu.GetStatusByte() | bFlagMask)
	return 0
}

func (cpu *CPU) plp(_ uint16, _ bool) uint8 {
	cpu.SetStatusByte(cpu.pop())
	return 0
}

func (cpu *CPU) clc(_ uint16, _ bool) uint8 { cpu.C = false; return 0 }
func (cpu *CPU) sec(_ uint16, _ bool) uint8 { cpu.C = true; return 0 }
func (cpu *CPU) cli(_ uint16, _ bool) uint8 { cpu.I = false; return 0 }
func (cpu *CPU) sei(_ uint16, _ bool) uint8 { cpu.I = true; return 0 }
func (cpu *CPU) clv(_ uint16, _ bool) uint8 { cpu.V = false; return 0 }
func (cpu *CPU) cld(_ uint16, _ bool) uint8 { cpu.D = false; return 0 }
func (cpu *CPU) sed(_ uint16, _ bool) uint8 { cpu.D = true; return 0 }

func (cpu *CPU) jmp(address uint16, _ bool) uint8 {
	cpu.PC = address
	return 0
}

func (cpu *CPU) jsr(address uint16, _ bool) uint8 {
	cpu.pushWord(cpu.PC - 1)
	cpu.PC = address
	return 0
}

func (cpu *CPU) rts(_ uint16, _ bool) uint8 {
	cpu.PC = cpu.popWord() + 1
	return 0
}

func (cpu *CPU) rti(_ uint16, _ bool) uint8 {
	cpu.SetStatusByte(cpu.pop())
	cpu.PC = cpu.popWord()
	return 0
}

func branchIf(cpu *CPU, taken bool, address uint16, pageCrossed bool) uint8 {
	if !taken {
		return 0
	}
	cpu.PC = address
	if pageCrossed {
		return 2 // 1 for the taken branch + 1 for crossing a page
	}
	return 1
}

func (cpu *CPU) bcc(address uint16, pageCrossed bool) uint8 { return branchIf(cpu, !cpu.C, address, pageCrossed) }
func (cpu *CPU) bcs(address uint16, pageCrossed bool) uint8 { return branchIf(cpu, cpu.C, address, pageCrossed) }
func (cpu *CPU) bne(address uint16, pageCrossed bool) uint8 { return branchIf(cpu, !cpu.Z, address, pageCrossed) }
func (cpu *CPU) beq(address uint16, pageCrossed bool) uint8 { return branchIf(cpu, cpu.Z, address, pageCrossed) }
func (cpu *CPU) bpl(address uint16, pageCrossed bool) uint8 { return branchIf(cpu, !cpu.N, address, pageCrossed) }
func (cpu *CPU) bmi(address uint16, pageCrossed bool) uint8 { return branchIf(cpu, cpu.N, address, pageCrossed) }
func (cpu *CPU) bvc(address uint16, pageCrossed bool) uint8 { return branchIf(cpu, !cpu.V, address, pageCrossed) }
func (cpu *CPU) bvs(address uint16, pageCrossed bool) uint8 { return branchIf(cpu, cpu.V, address, pageCrossed) }

func (cpu *CPU) bit(address uint16, _ bool) uint8 {
	value := cpu.memory.Read(address)
	cpu.N = (value & nFlagMask) != 0
	cpu.V = (value & vFlagMask) != 0
	cpu.Z = (cpu.A & value) == 0
	return 0
}

func (cpu *CPU) nop(_ uint16, _ bool) uint8 { return 0 }

func (cpu *CPU) brk(_ uint16, _ bool) uint8 {
	// BRK is encoded as a single byte, but the 6502 treats the byte after
	// it as a padding operand and pushes PC+2; getOperandAddress for
	// Implied mode already advanced PC by 1, so one more increment lands
	// on the correct return address.
	cpu.PC++
	cpu.pushWord(cpu.PC)
	cpu.push(cpu.GetStatusByte() | bFlagMask)
	cpu.I = true
	low := uint16(cpu.memory.Read(irqVector))
	high := uint16(cpu.memory.Read(irqVector + 1))
	cpu.PC = (high << 8) | low
	return 0
}

// --- Unofficial opcode handlers ---

func (cpu *CPU) lax(address uint16, _ bool) uint8 {
	cpu.A = cpu.memory.Read(address)
	cpu.X = cpu.A
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) sax(address uint16, _ bool) uint8 {
	cpu.memory.Write(address, cpu.A&cpu.X)
	return 0
}

// dcp, isb, slo, rla, sre and rra are unofficial read-modify-write
// opcodes: like their official RMW counterparts (ASL/INC/...), their base
// cycle count already reflects the worst case for indexed addressing, so
// they never take a page-cross bonus (see Instruction.PageCrossPenalty
// wiring below).

func (cpu *CPU) dcp(address uint16, _ bool) uint8 {
	value := cpu.memory.Read(address) - 1
	cpu.memory.Write(address, value)
	result := cpu.A - value
	cpu.C = cpu.A >= value
	cpu.setZN(result)
	return 0
}

func (cpu *CPU) isb(address uint16, pageCrossed bool) uint8 {
	value := cpu.memory.Read(address) + 1
	cpu.memory.Write(address, value)
	return cpu.sbc(address, pageCrossed)
}

func (cpu *CPU) slo(address uint16, _ bool) uint8 {
	value := cpu.memory.Read(address)
	cpu.C = (value & 0x80) != 0
	value <<= 1
	cpu.memory.Write(address, value)
	cpu.A |= value
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) rla(address uint16, _ bool) uint8 {
	value := cpu.memory.Read(address)
	oldCarry := cpu.C
	cpu.C = (value & 0x80) != 0
	value <<= 1
	if oldCarry {
		value |= 0x01
	}
	cpu.memory.Write(address, value)
	cpu.A &= value
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) sre(address uint16, _ bool) uint8 {
	value := cpu.memory.Read(address)
	cpu.C = (value & 0x01) != 0
	value >>= 1
	cpu.memory.Write(address, value)
	cpu.A ^= value
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) rra(address uint16, pageCrossed bool) uint8 {
	value := cpu.memory.Read(address)
	oldCarry := cpu.C
	cpu.C = (value & 0x01) != 0
	value >>= 1
	if oldCarry {
		value |= 0x80
	}
	cpu.memory.Write(address, value)
	return cpu.adc(address, pageCrossed)
}

// initInstructions populates the 256-entry dispatch table: mnemonic,
// encoding, base cycles, addressing mode, page-cross cycle bonus, and the
// handler that performs the opcode. Entries left nil decode to the
// undocumented-opcode counter in Step.
func (cpu *CPU) initInstructions() {
	for i := range cpu.instructions {
		cpu.instructions[i] = nil
	}

	set := func(op uint8, name string, bytes, cycles uint8, mode AddressingMode, pageCrossPenalty bool, handler opHandler) {
		cpu.instructions[op] = &Instruction{
			Name: name, Opcode: op, Bytes: bytes, Cycles: cycles,
			Mode: mode, PageCrossPenalty: pageCrossPenalty, Handler: handler,
		}
	}

	// Load/Store
	set(0xA9, "LDA", 2, 2, Immediate, false, (*CPU).lda)
	set(0xA5, "LDA", 2, 3, ZeroPage, false, (*CPU).lda)
	set(0xB5, "LDA", 2, 4, ZeroPageX, false, (*CPU).lda)
	set(0xAD, "LDA", 3, 4, Absolute, false, (*CPU).lda)
	set(0xBD, "LDA", 3, 4, AbsoluteX, true, (*CPU).lda)
	set(0xB9, "LDA", 3, 4, AbsoluteY, true, (*CPU).lda)
	set(0xA1, "LDA", 2, 6, IndexedIndirect, false, (*CPU).lda)
	set(0xB1, "LDA", 2, 5, IndirectIndexed, true, (*CPU).lda)

	set(0xA2, "LDX", 2, 2, Immediate, false, (*CPU).ldx)
	set(0xA6, "LDX", 2, 3, ZeroPage, false, (*CPU).ldx)
	set(0xB6, "LDX", 2, 4, ZeroPageY, false, (*CPU).ldx)
	set(0xAE, "LDX", 3, 4, Absolute, false, (*CPU).ldx)
	set(0xBE, "LDX", 3, 4, AbsoluteY, true, (*CPU).ldx)

	set(0xA0, "LDY", 2, 2, Immediate, false, (*CPU).ldy)
	set(0xA4, "LDY", 2, 3, ZeroPage, false, (*CPU).ldy)
	set(0xB4, "LDY", 2, 4, ZeroPageX, false, (*CPU).ldy)
	set(0xAC, "LDY", 3, 4, Absolute, false, (*CPU).ldy)
	set(0xBC, "LDY", 3, 4, AbsoluteX, true, (*CPU).ldy)

	// Store opcodes always cost their listed cycles; indexed forms are
	// already priced at the worst case, so (unlike reads) a page crossing
	// never adds a bonus cycle here.
	set(0x85, "STA", 2, 3, ZeroPage, false, (*CPU).sta)
	set(0x95, "STA", 2, 4, ZeroPageX, false, (*CPU).sta)
	set(0x8D, "STA", 3, 4, Absolute, false, (*CPU).sta)
	set(0x9D, "STA", 3, 5, AbsoluteX, false, (*CPU).sta)
	set(0x99, "STA", 3, 5, AbsoluteY, false, (*CPU).sta)
	set(0x81, "STA", 2, 6, IndexedIndirect, false, (*CPU).sta)
	set(0x91, "STA", 2, 6, IndirectIndexed, false, (*CPU).sta)

	set(0x86, "STX", 2, 3, ZeroPage, false, (*CPU).stx)
	set(0x96, "STX", 2, 4, ZeroPageY, false, (*CPU).stx)
	set(0x8E, "STX", 3, 4, Absolute, false, (*CPU).stx)

	set(0x84, "STY", 2, 3, ZeroPage, false, (*CPU).sty)
	set(0x94, "STY", 2, 4, ZeroPageX, false, (*CPU).sty)
	set(0x8C, "STY", 3, 4, Absolute, false, (*CPU).sty)

	// Arithmetic
	set(0x69, "ADC", 2, 2, Immediate, false, (*CPU).adc)
	set(0x65, "ADC", 2, 3, ZeroPage, false, (*CPU).adc)
	set(0x75, "ADC", 2, 4, ZeroPageX, false, (*CPU).adc)
	set(0x6D, "ADC", 3, 4, Absolute, false, (*CPU).adc)
	set(0x7D, "ADC", 3, 4, AbsoluteX, true, (*CPU).adc)
	set(0x79, "ADC", 3, 4, AbsoluteY, true, (*CPU).adc)
	set(0x61, "ADC", 2, 6, IndexedIndirect, false, (*CPU).adc)
	set(0x71, "ADC", 2, 5, IndirectIndexed, true, (*CPU).adc)

	set(0xE9, "SBC", 2, 2, Immediate, false, (*CPU).sbc)
	set(0xEB, "SBC", 2, 2, Immediate, false, (*CPU).sbc) // unofficial alias
	set(0xE5, "SBC", 2, 3, ZeroPage, false, (*CPU).sbc)
	set(0xF5, "SBC", 2, 4, ZeroPageX, false, (*CPU).sbc)
	set(0xED, "SBC", 3, 4, Absolute, false, (*CPU).sbc)
	set(0xFD, "SBC", 3, 4, AbsoluteX, true, (*CPU).sbc)
	set(0xF9, "SBC", 3, 4, AbsoluteY, true, (*CPU).sbc)
	set(0xE1, "SBC", 2, 6, IndexedIndirect, false, (*CPU).sbc)
	set(0xF1, "SBC", 2, 5, IndirectIndexed, true, (*CPU).sbc)

	// Logical
	set(0x29, "AND", 2, 2, Immediate, false, (*CPU).and)
	set(0x25, "AND", 2, 3, ZeroPage, false, (*CPU).and)
	set(0x35, "AND", 2, 4, ZeroPageX, false, (*CPU).and)
	set(0x2D, "AND", 3, 4, Absolute, false, (*CPU).and)
	set(0x3D, "AND", 3, 4, AbsoluteX, true, (*CPU).and)
	set(0x39, "AND", 3, 4, AbsoluteY, true, (*CPU).and)
	set(0x21, "AND", 2, 6, IndexedIndirect, false, (*CPU).and)
	set(0x31, "AND", 2, 5, IndirectIndexed, true, (*CPU).and)

	set(0x09, "ORA", 2, 2, Immediate, false, (*CPU).ora)
	set(0x05, "ORA", 2, 3, ZeroPage, false, (*CPU).ora)
	set(0x15, "ORA", 2, 4, ZeroPageX, false, (*CPU).ora)
	set(0x0D, "ORA", 3, 4, Absolute, false, (*CPU).ora)
	set(0x1D, "ORA", 3, 4, AbsoluteX, true, (*CPU).ora)
	set(0x19, "ORA", 3, 4, AbsoluteY, true, (*CPU).ora)
	set(0x01, "ORA", 2, 6, IndexedIndirect, false, (*CPU).ora)
	set(0x11, "ORA", 2, 5, IndirectIndexed, true, (*CPU).ora)

	set(0x49, "EOR", 2, 2, Immediate, false, (*CPU).eor)
	set(0x45, "EOR", 2, 3, ZeroPage, false, (*CPU).eor)
	set(0x55, "EOR", 2, 4, ZeroPageX, false, (*CPU).eor)
	set(0x4D, "EOR", 3, 4, Absolute, false, (*CPU).eor)
	set(0x5D, "EOR", 3, 4, AbsoluteX, true, (*CPU).eor)
	set(0x59, "EOR", 3, 4, AbsoluteY, true, (*CPU).eor)
	set(0x41, "EOR", 2, 6, IndexedIndirect, false, (*CPU).eor)
	set(0x51, "EOR", 2, 5, IndirectIndexed, true, (*CPU).eor)

	// Shift/rotate (RMW memory forms never take a page-cross bonus)
	set(0x0A, "ASL", 1, 2, Accumulator, false, (*CPU).aslAcc)
	set(0x06, "ASL", 2, 5, ZeroPage, false, (*CPU).asl)
	set(0x16, "ASL", 2, 6, ZeroPageX, false, (*CPU).asl)
	set(0x0E, "ASL", 3, 6, Absolute, false, (*CPU).asl)
	set(0x1E, "ASL", 3, 7, AbsoluteX, false, (*CPU).asl)

	set(0x4A, "LSR", 1, 2, Accumulator, false, (*CPU).lsrAcc)
	set(0x46, "LSR", 2, 5, ZeroPage, false, (*CPU).lsr)
	set(0x56, "LSR", 2, 6, ZeroPageX, false, (*CPU).lsr)
	set(0x4E, "LSR", 3, 6, Absolute, false, (*CPU).lsr)
	set(0x5E, "LSR", 3, 7, AbsoluteX, false, (*CPU).lsr)

	set(0x2A, "ROL", 1, 2, Accumulator, false, (*CPU).rolAcc)
	set(0x26, "ROL", 2, 5, ZeroPage, false, (*CPU).rol)
	set(0x36, "ROL", 2, 6, ZeroPageX, false, (*CPU).rol)
	set(0x2E, "ROL", 3, 6, Absolute, false, (*CPU).rol)
	set(0x3E, "ROL", 3, 7, AbsoluteX, false, (*CPU).rol)

	set(0x6A, "ROR", 1, 2, Accumulator, false, (*CPU).rorAcc)
	set(0x66, "ROR", 2, 5, ZeroPage, false, (*CPU).ror)
	set(0x76, "ROR", 2, 6, ZeroPageX, false, (*CPU).ror)
	set(0x6E, "ROR", 3, 6, Absolute, false, (*CPU).ror)
	set(0x7E, "ROR", 3, 7, AbsoluteX, false, (*CPU).ror)

	// Comparison
	set(0xC9, "CMP", 2, 2, Immediate, false, (*CPU).cmp)
	set(0xC5, "CMP", 2, 3, ZeroPage, false, (*CPU).cmp)
	set(0xD5, "CMP", 2, 4, ZeroPageX, false, (*CPU).cmp)
	set(0xCD, "CMP", 3, 4, Absolute, false, (*CPU).cmp)
	set(0xDD, "CMP", 3, 4, AbsoluteX, true, (*CPU).cmp)
	set(0xD9, "CMP", 3, 4, AbsoluteY, true, (*CPU).cmp)
	set(0xC1, "CMP", 2, 6, IndexedIndirect, false, (*CPU).cmp)
	set(0xD1, "CMP", 2, 5, IndirectIndexed, true, (*CPU).cmp)

	set(0xE0, "CPX", 2, 2, Immediate, false, (*CPU).cpx)
	set(0xE4, "CPX", 2, 3, ZeroPage, false, (*CPU).cpx)
	set(0xEC, "CPX", 3, 4, Absolute, false, (*CPU).cpx)

	set(0xC0, "CPY", 2, 2, Immediate, false, (*CPU).cpy)
	set(0xC4, "CPY", 2, 3, ZeroPage, false, (*CPU).cpy)
	set(0xCC, "CPY", 3, 4, Absolute, false, (*CPU).cpy)

	// Increment/decrement
	set(0xE6, "INC", 2, 5, ZeroPage, false, (*CPU).inc)
	set(0xF6, "INC", 2, 6, ZeroPageX, false, (*CPU).inc)
	set(0xEE, "INC", 3, 6, Absolute, false, (*CPU).inc)
	set(0xFE, "INC", 3, 7, AbsoluteX, false, (*CPU).inc)

	set(0xC6, "DEC", 2, 5, ZeroPage, false, (*CPU).dec)
	set(0xD6, "DEC", 2, 6, ZeroPageX, false, (*CPU).dec)
	set(0xCE, "DEC", 3, 6, Absolute, false, (*CPU).dec)
	set(0xDE, "DEC", 3, 7, AbsoluteX, false, (*CPU).dec)

	set(0xE8, "INX", 1, 2, Implied, false, (*CPU).inx)
	set(0xCA, "DEX", 1, 2, Implied, false, (*CPU).dex)
	set(0xC8, "INY", 1, 2, Implied, false, (*CPU).iny)
	set(0x88, "DEY", 1, 2, Implied, false, (*CPU).dey)

	// Transfers
	set(0xAA, "TAX", 1, 2, Implied, false, (*CPU).tax)
	set(0x8A, "TXA", 1, 2, Implied, false, (*CPU).txa)
	set(0xA8, "TAY", 1, 2, Implied, false, (*CPU).tay)
	set(0x98, "TYA", 1, 2, Implied, false, (*CPU).tya)
	set(0xBA, "TSX", 1, 2, Implied, false, (*CPU).tsx)
	set(0x9A, "TXS", 1, 2, Implied, false, (*CPU).txs)

	// Stack
	set(0x48, "PHA", 1, 3, Implied, false, (*CPU).pha)
	set(0x68, "PLA", 1, 4, Implied, false, (*CPU).pla)
	set(0x08, "PHP", 1, 3, Implied, false, (*CPU).php)
	set(0x28, "PLP", 1, 4, Implied, false, (*CPU).plp)

	// Flag set/clear
	set(0x18, "CLC", 1, 2, Implied, false, (*CPU).clc)
	set(0x38, "SEC", 1, 2, Implied, false, (*CPU).sec)
	set(0x58, "CLI", 1, 2, Implied, false, (*CPU).cli)
	set(0x78, "SEI", 1, 2, Implied, false, (*CPU).sei)
	set(0xB8, "CLV", 1, 2, Implied, false, (*CPU).clv)
	set(0xD8, "CLD", 1, 2, Implied, false, (*CPU).cld)
	set(0xF8, "SED", 1, 2, Implied, false, (*CPU).sed)

	// Control flow
	set(0x4C, "JMP", 3, 3, Absolute, false, (*CPU).jmp)
	set(0x6C, "JMP", 3, 5, Indirect, false, (*CPU).jmp)
	set(0x20, "JSR", 3, 6, Absolute, false, (*CPU).jsr)
	set(0x60, "RTS", 1, 6, Implied, false, (*CPU).rts)
	set(0x40, "RTI", 1, 6, Implied, false, (*CPU).rti)

	// Branches (cycle bonuses are entirely handled by branchIf)
	set(0x90, "BCC", 2, 2, Relative, false, (*CPU).bcc)
	set(0xB0, "BCS", 2, 2, Relative, false, (*CPU).bcs)
	set(0xD0, "BNE", 2, 2, Relative, false, (*CPU).bne)
	set(0xF0, "BEQ", 2, 2, Relative, false, (*CPU).beq)
	set(0x10, "BPL", 2, 2, Relative, false, (*CPU).bpl)
	set(0x30, "BMI", 2, 2, Relative, false, (*CPU).bmi)
	set(0x50, "BVC", 2, 2, Relative, false, (*CPU).bvc)
	set(0x70, "BVS", 2, 2, Relative, false, (*CPU).bvs)

	// Miscellaneous
	set(0x24, "BIT", 2, 3, ZeroPage, false, (*CPU).bit)
	set(0x2C, "BIT", 3, 4, Absolute, false, (*CPU).bit)
	set(0xEA, "NOP", 1, 2, Implied, false, (*CPU).nop)
	set(0x00, "BRK", 1, 7, Implied, false, (*CPU).brk)

	// Unofficial NOPs
	for _, op := range []uint8{0x1A, 0x3A, 0x5A, 0x7A, 0xDA, 0xFA} {
		set(op, "NOP", 1, 2, Implied, false, (*CPU).nop)
	}
	for _, op := range []uint8{0x80, 0x82, 0x89, 0xC2, 0xE2} {
		set(op, "NOP", 2, 2, Immediate, false, (*CPU).nop)
	}
	for _, op := range []uint8{0x04, 0x44, 0x64} {
		set(op, "NOP", 2, 3, ZeroPage, false, (*CPU).nop)
	}
	for _, op := range []uint8{0x14, 0x34, 0x54, 0x74, 0xD4, 0xF4} {
		set(op, "NOP", 2, 4, ZeroPageX, false, (*CPU).nop)
	}
	set(0x0C, "NOP", 3, 4, Absolute, false, (*CPU).nop)
	for _, op := range []uint8{0x1C, 0x3C, 0x5C, 0x7C, 0xDC, 0xFC} {
		set(op, "NOP", 3, 4, AbsoluteX, true, (*CPU).nop)
	}

	// Unofficial opcodes
	set(0xA7, "LAX", 2, 3, ZeroPage, false, (*CPU).lax)
	set(0xB7, "LAX", 2, 4, ZeroPageY, false, (*CPU).lax)
	set(0xAF, "LAX", 3, 4, Absolute, false, (*CPU).lax)
	set(0xBF, "LAX", 3, 4, AbsoluteY, true, (*CPU).lax)
	set(0xA3, "LAX", 2, 6, IndexedIndirect, false, (*CPU).lax)
	set(0xB3, "LAX", 2, 5, IndirectIndexed, true, (*CPU).lax)

	set(0x87, "SAX", 2, 3, ZeroPage, false, (*CPU).sax)
	set(0x97, "SAX", 2, 4, ZeroPageY, false, (*CPU).sax)
	set(0x8F, "SAX", 3, 4, Absolute, false, (*CPU).sax)
	set(0x83, "SAX", 2, 6, IndexedIndirect, false, (*CPU).sax)

	set(0xC7, "DCP", 2, 5, ZeroPage, false, (*CPU).dcp)
	set(0xD7, "DCP", 2, 6, ZeroPageX, false, (*CPU).dcp)
	set(0xCF, "DCP", 3, 6, Absolute, false, (*CPU).dcp)
	set(0xDF, "DCP", 3, 7, AbsoluteX, false, (*CPU).dcp)
	set(0xDB, "DCP", 3, 7, AbsoluteY, false, (*CPU).dcp)
	set(0xC3, "DCP", 2, 8, IndexedIndirect, false, (*CPU).dcp)
	set(0xD3, "DCP", 2, 8, IndirectIndexed, false, (*CPU).dcp)

	set(0xE7, "ISB", 2, 5, ZeroPage, false, (*CPU).isb)
	set(0xF7, "ISB", 2, 6, ZeroPageX, false, (*CPU).isb)
	set(0xEF, "ISB", 3, 6, Absolute, false, (*CPU).isb)
	set(0xFF, "ISB", 3, 7, AbsoluteX, false, (*CPU).isb)
	set(0xFB, "ISB", 3, 7, AbsoluteY, false, (*CPU).isb)
	set(0xE3, "ISB", 2, 8, IndexedIndirect, false, (*CPU).isb)
	set(0xF3, "ISB", 2, 8, IndirectIndexed, false, (*CPU).isb)

	set(0x07, "SLO", 2, 5, ZeroPage, false, (*CPU).slo)
	set(0x17, "SLO", 2, 6, ZeroPageX, false, (*CPU).slo)
	set(0x0F, "SLO", 3, 6, Absolute, false, (*CPU).slo)
	set(0x1F, "SLO", 3, 7, AbsoluteX, false, (*CPU).slo)
	set(0x1B, "SLO", 3, 7, AbsoluteY, false, (*CPU).slo)
	set(0x03, "SLO", 2, 8, IndexedIndirect, false, (*CPU).slo)
	set(0x13, "SLO", 2, 8, IndirectIndexed, false, (*CPU).slo)

	set(0x27, "RLA", 2, 5, ZeroPage, false, (*CPU).rla)
	set(0x37, "RLA", 2, 6, ZeroPageX, false, (*CPU).rla)
	set(0x2F, "RLA", 3, 6, Absolute, false, (*CPU).rla)
	set(0x3F, "RLA", 3, 7, AbsoluteX, false, (*CPU).rla)
	set(0x3B, "RLA", 3, 7, AbsoluteY, false, (*CPU).rla)
	set(0x23, "RLA", 2, 8, IndexedIndirect, false, (*CPU).rla)
	set(0x33, "RLA", 2, 8, IndirectIndexed, false, (*CPU).rla)

	set(0x47, "SRE", 2, 5, ZeroPage, false, (*CPU).sre)
	set(0x57, "SRE", 2, 6, ZeroPageX, false, (*CPU).sre)
	set(0x4F, "SRE", 3, 6, Absolute, false, (*CPU).sre)
	set(0x5F, "SRE", 3, 7, AbsoluteX, false, (*CPU).sre)
	set(0x5B, "SRE", 3, 7, AbsoluteY, false, (*CPU).sre)
	set(0x43, "SRE", 2, 8, IndexedIndirect, false, (*CPU).sre)
	set(0x53, "SRE", 2, 8, IndirectIndexed, false, (*CPU).sre)

	set(0x67, "RRA", 2, 5, ZeroPage, false, (*CPU).rra)
	set(0x77, "RRA", 2, 6, ZeroPageX, false, (*CPU).rra)
	set(0x6F, "RRA", 3, 6, Absolute, false, (*CPU).rra)
	set(0x7F, "RRA", 3, 7, AbsoluteX, false, (*CPU).rra)
	set(0x7B, "RRA", 3, 7, AbsoluteY, false, (*CPU).rra)
	set(0x63, "RRA", 2, 8, IndexedIndirect, false, (*CPU).rra)
	set(0x73, "RRA", 2, 8, IndirectIndexed, false, (*CPU).rra)
}

// EnableDebugLogging enables/disables per-instruction trace logging.
func (cpu *CPU) EnableDebugLogging(enable bool) {
	cpu.diag.debugLogging = enable
}

// EnableLoopDetection enables/disables stuck-PC detection.
func (cpu *CPU) EnableLoopDetection(enable bool) {
	cpu.diag.loopDetection = enable
}

// InvalidOpcodeCount returns how many undocumented/unhandled opcodes have
// been executed since the last Reset. Hosts use this to surface a
// diagnostic without treating the condition as fatal.
func (cpu *CPU) InvalidOpcodeCount() uint64 {
	return cpu.diag.invalidOpcodes
}

// TotalInstructions returns how many instructions (valid or not) Step has
// executed since the last Reset.
func (cpu *CPU) TotalInstructions() uint64 {
	return cpu.diag.instructions
}

// detectInfiniteLoop flags a CPU stuck executing the same PC repeatedly.
func (cpu *CPU) detectInfiniteLoop(pc uint16, opcode uint8) {
	if pc == cpu.diag.lastPC {
		cpu.diag.pcStayCount++
		if cpu.diag.pcStayCount > 100 {
			fmt.Printf("[CPU_LOOP] CPU stuck at PC=$%04X executing opcode=0x%02X for %d cycles\n",
				pc, opcode, cpu.diag.pcStayCount)
			if cpu.diag.pcStayCount%1000 == 0 {
				cpu.logCPUState(pc, opcode)
			}
		}
	} else {
		cpu.diag.pcStayCount = 0
	}
	cpu.diag.lastPC = pc
}

func (cpu *CPU) logInstruction(pc uint16, opcode uint8, instruction *Instruction) {
	name := "UNK"
	if instruction != nil {
		name = instruction.Name
	}
	fmt.Printf("[CPU_DEBUG] PC=$%04X: %s (0x%02X) | A=$%02X X=$%02X Y=$%02X SP=$%02X | %s\n",
		pc, name, opcode, cpu.A, cpu.X, cpu.Y, cpu.SP, cpu.getFlagsString())
}

func (cpu *CPU) logCPUState(pc uint16, opcode uint8) {
	instruction := cpu.instructions[opcode]
	name := "UNK"
	if instruction != nil {
		name = instruction.Name
	}
	mem1 := cpu.memory.Read(pc + 1)
	mem2 := cpu.memory.Read(pc + 2)
	fmt.Printf("[CPU_STATE] PC=$%04X: %s (0x%02X %02X %02X) | A=$%02X X=$%02X Y=$%02X SP=$%02X | %s | Cycles=%d\n",
		pc, name, opcode, mem1, mem2, cpu.A, cpu.X, cpu.Y, cpu.SP, cpu.getFlagsString(), cpu.cycles)
}

func (cpu *CPU) getFlagsString() string {
	flag := func(set bool, letter string) string {
		if set {
			return letter
		}
		return "-"
	}
	return flag(cpu.N, "N") + flag(cpu.V, "V") + "-" + flag(cpu.B, "B") +
		flag(cpu.D, "D") + flag(cpu.I, "I") + flag(cpu.Z, "Z") + flag(cpu.C, "C")
}
