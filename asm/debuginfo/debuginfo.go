// Package debuginfo serialises the label and instruction positions a
// code generation pass collected into the four-section trailer a debug
// viewer or controller reads back out of a finished byte image.
package debuginfo

import (
	"encoding/binary"

	"rvm/asm/codegen"
)

// Sections locates the four debug trailer sections as half-open byte
// ranges relative to the image they were written into. The driver
// writes this as the fixed 4x16-byte header reserved at image offset 0.
type Sections struct {
	LabelNames  Range
	SourceFiles Range
	Labels      Range
	Instructions Range
}

// Range is a half-open [Start, End) byte interval.
type Range struct {
	Start uint64
	End   uint64
}

const headerSize = 4 * 16

// WriteHeader encodes s as the fixed-size 4x(start,end) header.
func WriteHeader(s Sections) []byte {
	buf := make([]byte, headerSize)
	put := func(off int, r Range) {
		binary.LittleEndian.PutUint64(buf[off:], r.Start)
		binary.LittleEndian.PutUint64(buf[off+8:], r.End)
	}
	put(0, s.LabelNames)
	put(16, s.SourceFiles)
	put(32, s.Labels)
	put(48, s.Instructions)
	return buf
}

const labelRecordSize = 8 + 8 + 8 + 4 + 4     // name offset, address, source-file offset, line, column
const instructionRecordSize = 8 + 8 + 4 + 4   // pc, source-file offset, line, column

// Generate builds the debug trailer for the given labels and
// instructions, returning the trailer bytes (to be appended to the
// image) and the section ranges locating each part within it. offset
// is the byte-image length the trailer will be appended at, so the
// returned ranges are absolute image offsets rather than
// trailer-relative.
func Generate(labels []codegen.LabelRecord, instructions []codegen.InstructionRecord, offset uint64) ([]byte, Sections) {
	var buf []byte

	nameOffsets := make(map[string]uint64, len(labels))
	fileOffsets := make(map[string]uint64)

	labelNamesStart := offset + uint64(len(buf))
	for _, l := range labels {
		if _, ok := nameOffsets[l.Name]; ok {
			continue
		}
		nameOffsets[l.Name] = offset + uint64(len(buf))
		buf = append(buf, []byte(l.Name)...)
		buf = append(buf, 0)
	}
	labelNamesEnd := offset + uint64(len(buf))

	sourceFilesStart := offset + uint64(len(buf))
	addFile := func(path string) uint64 {
		if off, ok := fileOffsets[path]; ok {
			return off
		}
		off := offset + uint64(len(buf))
		fileOffsets[path] = off
		buf = append(buf, []byte(path)...)
		buf = append(buf, 0)
		return off
	}
	for _, l := range labels {
		addFile(l.Source.Module)
	}
	for _, in := range instructions {
		addFile(in.Source.Module)
	}
	sourceFilesEnd := offset + uint64(len(buf))

	labelsStart := offset + uint64(len(buf))
	rec := make([]byte, labelRecordSize)
	for _, l := range labels {
		binary.LittleEndian.PutUint64(rec[0:], nameOffsets[l.Name])
		binary.LittleEndian.PutUint64(rec[8:], l.Address)
		binary.LittleEndian.PutUint64(rec[16:], fileOffsets[l.Source.Module])
		binary.LittleEndian.PutUint32(rec[24:], uint32(l.Source.Line))
		binary.LittleEndian.PutUint32(rec[28:], uint32(l.Source.Col))
		buf = append(buf, rec...)
	}
	labelsEnd := offset + uint64(len(buf))

	instructionsStart := offset + uint64(len(buf))
	irec := make([]byte, instructionRecordSize)
	for _, in := range instructions {
		binary.LittleEndian.PutUint64(irec[0:], in.PC)
		binary.LittleEndian.PutUint64(irec[8:], fileOffsets[in.Source.Module])
		binary.LittleEndian.PutUint32(irec[16:], uint32(in.Source.Line))
		binary.LittleEndian.PutUint32(irec[20:], uint32(in.Source.Col))
		buf = append(buf, irec...)
	}
	instructionsEnd := offset + uint64(len(buf))

	return buf, Sections{
		LabelNames:   Range{labelNamesStart, labelNamesEnd},
		SourceFiles:  Range{sourceFilesStart, sourceFilesEnd},
		Labels:       Range{labelsStart, labelsEnd},
		Instructions: Range{instructionsStart, instructionsEnd},
	}
}

// ParseHeader reads the fixed 4x16-byte header back out of buf.
func ParseHeader(buf []byte) (Sections, bool) {
	if len(buf) < headerSize {
		return Sections{}, false
	}
	get := func(off int) Range {
		return Range{
			Start: binary.LittleEndian.Uint64(buf[off:]),
			End:   binary.LittleEndian.Uint64(buf[off+8:]),
		}
	}
	return Sections{
		LabelNames:   get(0),
		SourceFiles:  get(16),
		Labels:       get(32),
		Instructions: get(48),
	}, true
}

// LabelEntry is one decoded label record, with pool offsets already
// resolved to their string values.
type LabelEntry struct {
	Name       string
	Address    uint64
	SourceFile string
	Line       uint32
	Column     uint32
}

// InstructionEntry is one decoded instruction record.
type InstructionEntry struct {
	PC         uint64
	SourceFile string
	Line       uint32
	Column     uint32
}

// ReadLabels decodes every label record in sections.Labels, resolving
// name and source-file pool offsets against the full image buf.
func ReadLabels(buf []byte, sections Sections) []LabelEntry {
	var out []LabelEntry
	for pos := sections.Labels.Start; pos+labelRecordSize <= sections.Labels.End; pos += labelRecordSize {
		rec := buf[pos : pos+labelRecordSize]
		nameOff := binary.LittleEndian.Uint64(rec[0:])
		addr := binary.LittleEndian.Uint64(rec[8:])
		fileOff := binary.LittleEndian.Uint64(rec[16:])
		line := binary.LittleEndian.Uint32(rec[24:])
		col := binary.LittleEndian.Uint32(rec[28:])
		out = append(out, LabelEntry{
			Name:       readCString(buf, nameOff),
			Address:    addr,
			SourceFile: readCString(buf, fileOff),
			Line:       line,
			Column:     col,
		})
	}
	return out
}

// ReadInstructions decodes every instruction record in
// sections.Instructions.
func ReadInstructions(buf []byte, sections Sections) []InstructionEntry {
	var out []InstructionEntry
	for pos := sections.Instructions.Start; pos+instructionRecordSize <= sections.Instructions.End; pos += instructionRecordSize {
		rec := buf[pos : pos+instructionRecordSize]
		pc := binary.LittleEndian.Uint64(rec[0:])
		fileOff := binary.LittleEndian.Uint64(rec[8:])
		line := binary.LittleEndian.Uint32(rec[16:])
		col := binary.LittleEndian.Uint32(rec[20:])
		out = append(out, InstructionEntry{
			PC:         pc,
			SourceFile: readCString(buf, fileOff),
			Line:       line,
			Column:     col,
		})
	}
	return out
}

func readCString(buf []byte, off uint64) string {
	end := off
	for end < uint64(len(buf)) && buf[end] != 0 {
		end++
	}
	return string(buf[off:end])
}
