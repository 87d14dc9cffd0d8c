package vm

import (
	"bufio"
	"encoding/binary"
	"io"
)

var magicAMBR = [4]byte{'A', 'M', 'B', 'R'}

// LoadContainer parses the AMBR v1 bytecode container described in
// spec.md S6: magic, version, entry point (ignored), constant pool,
// code. Grounded on original_source/amber-vm/src/loader.cpp's
// load_file for the wire layout, and on the teacher's bufio-based file
// reading in vm/vm.go's NewVirtualMachine for Go idiom.
func LoadContainer(r io.Reader) (code []byte, constants []string, err error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, nil, newFaultf(TruncatedFile, 0, "reading magic: %w", err)
	}
	if magic != magicAMBR {
		return nil, nil, newFaultf(BadMagic, 0, "expected magic %q, got %q", magicAMBR, magic)
	}

	var version uint16
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, nil, newFaultf(TruncatedFile, 4, "reading version: %w", err)
	}

	var entryPoint uint32
	if err := binary.Read(br, binary.LittleEndian, &entryPoint); err != nil {
		return nil, nil, newFaultf(TruncatedFile, 6, "reading entry point: %w", err)
	}
	// Entry point is reserved; the VM always starts at offset 0 per
	// spec.md S6.

	var poolCount uint32
	if err := binary.Read(br, binary.LittleEndian, &poolCount); err != nil {
		return nil, nil, newFaultf(TruncatedFile, 10, "reading constant pool count: %w", err)
	}

	constants = make([]string, 0, poolCount)
	for i := uint32(0); i < poolCount; i++ {
		var length uint32
		if err := binary.Read(br, binary.LittleEndian, &length); err != nil {
			return nil, nil, newFaultf(TruncatedFile, 0, "reading pool entry %d length: %w", i, err)
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, nil, newFaultf(TruncatedFile, 0, "reading pool entry %d bytes: %w", i, err)
		}
		constants = append(constants, string(buf))
	}

	var codeLen uint32
	if err := binary.Read(br, binary.LittleEndian, &codeLen); err != nil {
		return nil, nil, newFaultf(TruncatedFile, 0, "reading code length: %w", err)
	}
	code = make([]byte, codeLen)
	if _, err := io.ReadFull(br, code); err != nil {
		return nil, nil, newFaultf(TruncatedFile, 0, "reading code bytes: %w", err)
	}

	return code, constants, nil
}

// WriteContainer serializes code and constants into the AMBR v1 wire
// format, the write-side counterpart LoadContainer reads back. Used by
// the avm asm subcommand and by tests that build programs without
// round-tripping through a file.
func WriteContainer(w io.Writer, code []byte, constants []string) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(magicAMBR[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint16(1)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(0)); err != nil { // entry point, reserved
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(constants))); err != nil {
		return err
	}
	for _, s := range constants {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(s))); err != nil {
			return err
		}
		if _, err := bw.WriteString(s); err != nil {
			return err
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(code))); err != nil {
		return err
	}
	if _, err := bw.Write(code); err != nil {
		return err
	}

	return bw.Flush()
}
