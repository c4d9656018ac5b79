package mst

import "github.com/mkszuba/flashrom/internal/spi"

// DeviceAddr is the 7-bit I2C control address of the MST MCU
// (8-bit address 0x94).
const DeviceAddr uint16 = 0x94 >> 1

const (
	pageSize         = 256
	maxWaitRetries   = 1000
	chipEraseWaitMul = 20 // chip erasures take much longer
)

// Mode and data port registers.
const (
	regMCUMode  = 0x6F
	regDataPort = 0x70

	ispModeEnter     = 0x80 // regMCUMode: enter ISP mode
	startWriteXfer   = 0xA0 // regMCUMode: start a staged page write
	writeXferStatus  = 0x20 // regMCUMode: page write in flight
	writeBufferEmpty = 0x10 // regMCUMode: transfer buffer drained
)

// Page window registers forming a 24-bit flash address, written in fixed
// high-to-low order. They double as the command data staging registers.
const (
	regMapPageByte2 = 0x64 // block index
	regMapPageByte1 = 0x65 // page index
	regMapPageByte0 = 0x66 // byte index
)

// Command emulation registers.
const (
	regCommand     = 0x60 // control word; bit 0 triggers execution
	regOpcode      = 0x61 // SPI opcode to dispatch
	regWriteData   = 0x64 // regWriteData+i: outgoing data bytes
	regReadData    = 0x67 // regReadData+i: response bytes
	regReadLen     = 0x6A // paged read transfer size
	regWriteOpcode = 0x6D // opcode used by paged writes
	regPageSize    = 0x71 // paged write chunk size minus one
)

// Indirect register window and MCU control.
const (
	regIndirectHi = 0xF4 // high byte of the indirect register address
	regIndirectLo = 0xF5 // low byte / data port of the indirect window
	regMCUCtrl    = 0xEE // bit 1 forces the MCU into its run state
	regWPPin      = 0xD7 // bit 0 drives the write-protect pin
)

// opcodeClass selects bits 5-7 of the control word.
//
//	| bit7 | bit6 | bit5 |
//	+------+------+------+
//	|  0   |  1   |  0   | ~ RDID, REMS, READ and friends
//	|  0   |  1   |  1   | ~ WRSR
//	|  1   |  0   |  1   | ~ erasures
type opcodeClass byte

const (
	classDefault     opcodeClass = 2
	classWriteStatus opcodeClass = 3
	classErase       opcodeClass = 5
)

// ctrlWord packs the control word written to regCommand before a command
// is dispatched: bit 0 start/end, bits 1-4 the read and data byte counts,
// bits 5-7 the opcode class.
func ctrlWord(dataCnt, readCnt int, class opcodeClass) byte {
	return byte(dataCnt)<<3 | byte(readCnt)<<1 | byte(class)<<5
}

// classifyOpcode maps a SPI opcode to its control word class and the
// multiplier applied to the completion-wait budget.
func classifyOpcode(op byte) (opcodeClass, int) {
	switch op {
	case spi.OpWRSR:
		return classWriteStatus, 1
	case spi.OpChipEraseC7:
		return classErase, chipEraseWaitMul
	case spi.OpChipErase60, spi.OpBlockErase52, spi.OpBlockEraseD8, spi.OpBlockEraseD7, spi.OpSectorErase:
		return classErase, 1
	default:
		return classDefault, 1
	}
}
