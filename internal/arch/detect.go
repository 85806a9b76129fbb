// Package arch detects the CPU architecture an executable was built
// for by parsing its ELF, Mach-O, or PE header bytes directly. It
// never throws: any parse or IO failure reports "not determined"
// rather than an error, since an unrecognized binary is a normal,
// expected outcome for this detector, not a fault condition.
package arch

import (
	"encoding/binary"
	"os"

	"github.com/terassyi/dotnetacquire/internal/model"
)

const headerReadSize = 64

// Detect reads the first 64 bytes of path and classifies the
// executable's architecture. ok is false for any IO error, any
// unrecognized magic, or a file shorter than 64 bytes.
func Detect(path string) (arch model.Architecture, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return model.ArchUnknown, false
	}
	defer f.Close()

	buf := make([]byte, headerReadSize)
	n, err := f.Read(buf)
	if err != nil || n < headerReadSize {
		return model.ArchUnknown, false
	}

	return classify(buf)
}

func classify(buf []byte) (model.Architecture, bool) {
	switch {
	case isELF(buf):
		return classifyELF(buf)
	case isMachO(buf):
		return classifyMachO(buf)
	case isPE(buf):
		return classifyPE(buf)
	default:
		return model.ArchUnknown, false
	}
}

func isELF(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0x7F && buf[1] == 'E' && buf[2] == 'L' && buf[3] == 'F'
}

// classifyELF reads e_machine (u16 LE) at offset 0x12.
func classifyELF(buf []byte) (model.Architecture, bool) {
	if len(buf) < 0x14 {
		return model.ArchUnknown, false
	}
	machine := binary.LittleEndian.Uint16(buf[0x12:0x14])
	switch machine {
	case 0x03:
		return model.ArchX86, true
	case 0x3E:
		return model.ArchX64, true
	case 0xB7:
		return model.ArchArm64, true
	default:
		return model.ArchOther, true
	}
}

func isMachO(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0xCF && buf[1] == 0xFA && buf[2] == 0xED && buf[3] == 0xFE
}

// classifyMachO reads cputype (u32 LE) at offset 0x04.
func classifyMachO(buf []byte) (model.Architecture, bool) {
	if len(buf) < 0x08 {
		return model.ArchUnknown, false
	}
	cputype := binary.LittleEndian.Uint32(buf[0x04:0x08])
	switch cputype {
	case 0x7:
		return model.ArchX86, true
	case 0x1000007:
		return model.ArchX64, true
	case 0x100000C:
		return model.ArchArm64, true
	default:
		return model.ArchOther, true
	}
}

func isPE(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 'M' && buf[1] == 'Z'
}

// classifyPE reads the PE header offset at 0x3C, verifies the "PE\0\0"
// signature, and reads the machine field (u16 LE) at signature+4.
func classifyPE(buf []byte) (model.Architecture, bool) {
	if len(buf) < 0x40 {
		return model.ArchUnknown, false
	}
	peOffset := binary.LittleEndian.Uint32(buf[0x3C:0x40])
	if int(peOffset)+6 > len(buf) {
		return model.ArchUnknown, false
	}
	sig := buf[peOffset : peOffset+4]
	if sig[0] != 'P' || sig[1] != 'E' || sig[2] != 0 || sig[3] != 0 {
		return model.ArchUnknown, false
	}
	machine := binary.LittleEndian.Uint16(buf[peOffset+4 : peOffset+6])
	switch machine {
	case 0x14C:
		return model.ArchX86, true
	case 0x8664:
		return model.ArchX64, true
	case 0xAA64:
		return model.ArchArm64, true
	default:
		return model.ArchOther, true
	}
}
