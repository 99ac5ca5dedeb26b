// Package jarindex is the JAR Indexer: it extracts types.Symbol records
// from compiled class files inside a dependency archive by decoding the
// JVM classfile format directly with the standard library's archive/zip and
// encoding/binary, in a skip-code/skip-debug/skip-frames mode — only the
// constant pool, access flags, and field/method name tables are read.
package jarindex

import (
	"archive/zip"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/standardbeagle/groovy-lsp-index/internal/obslog"
	"github.com/standardbeagle/groovy-lsp-index/internal/types"
)

// Hard caps from spec.md §4.3.
const (
	MaxEntryCount        = 100_000
	MaxSingleEntryBytes  = 50 * 1024 * 1024
	MaxCumulativeBytes   = 500 * 1024 * 1024
)

// JVM access flag bits relevant to symbol classification.
const (
	accPublic     = 0x0001
	accInterface  = 0x0200
	accAbstract   = 0x0400
	accSynthetic  = 0x1000
	accAnnotation = 0x2000
	accEnum       = 0x4000
)

var log = obslog.For("jarindex")

// IndexJar extracts Class/Interface/Enum/Annotation, Field, Method and
// Constructor symbols from the class files inside the archive at path.
// Synthetic methods and static initializers (<clinit>) are skipped.
func IndexJar(path string) ([]types.Symbol, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("jarindex: failed to open %s: %w", path, err)
	}
	defer r.Close()

	var symbols []types.Symbol
	var cumulative int64
	entryCount := 0

	for _, f := range r.File {
		entryCount++
		if entryCount > MaxEntryCount {
			log.WithPath(path).Warnf("jar exceeds %d entries, stopping scan", MaxEntryCount)
			break
		}
		if !strings.HasSuffix(f.Name, ".class") {
			continue
		}

		size := int64(f.UncompressedSize64)
		if size > MaxSingleEntryBytes {
			log.WithPath(path).Warnf("entry %s exceeds %d bytes, skipping", f.Name, MaxSingleEntryBytes)
			continue
		}
		if cumulative+size > MaxCumulativeBytes {
			log.WithPath(path).Warnf("jar exceeds cumulative cap of %d bytes, terminating scan early", MaxCumulativeBytes)
			break
		}
		cumulative += size

		rc, err := f.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}

		cf, err := parseClassFile(data)
		if err != nil {
			log.WithPath(path).Warnf("failed to decode %s: %v", f.Name, err)
			continue
		}

		location := fmt.Sprintf("%s!/%s", path, strings.TrimSuffix(f.Name, ".class"))
		symbols = append(symbols, emitClassSymbols(cf, location)...)
	}

	return symbols, nil
}

func emitClassSymbols(cf *classFile, location string) []types.Symbol {
	var out []types.Symbol

	kind := types.KindClass
	switch {
	case cf.accessFlags&accAnnotation != 0:
		kind = types.KindAnnotation
	case cf.accessFlags&accEnum != 0:
		kind = types.KindEnum
	case cf.accessFlags&accInterface != 0:
		kind = types.KindInterface
	}

	if sym, err := types.NewSymbol(cf.className, kind, location, 1, 1); err == nil {
		out = append(out, sym)
	}

	for _, field := range cf.fields {
		name := cf.className + "." + field.name
		if sym, err := types.NewSymbol(name, types.KindField, location, 1, 1); err == nil {
			out = append(out, sym)
		}
	}

	for _, method := range cf.methods {
		if method.accessFlags&accSynthetic != 0 {
			continue
		}
		if method.name == "<init>" {
			name := cf.className + ".<init>"
			if sym, err := types.NewSymbol(name, types.KindConstructor, location, 1, 1); err == nil {
				out = append(out, sym)
			}
			continue
		}
		if method.name == "<clinit>" {
			continue
		}
		name := cf.className + "." + method.name
		if sym, err := types.NewSymbol(name, types.KindMethod, location, 1, 1); err == nil {
			out = append(out, sym)
		}
	}

	return out
}

// classFile is the subset of the JVM classfile format the indexer cares
// about: enough of the constant pool to resolve names, the class's own
// access flags and name, and the field/method name+flag tables. Code,
// line-number, and debug attributes are skipped unparsed.
type classFile struct {
	accessFlags uint16
	className   string
	fields      []member
	methods     []member
}

type member struct {
	accessFlags uint16
	name        string
}

// cpEntry is one constant-pool slot. Only the tags the indexer resolves
// (Utf8, Class) keep their payload; everything else is skipped by length.
type cpEntry struct {
	tag  uint8
	utf8 string
	// nameIndex is populated for tag 7 (Class), pointing at a Utf8 entry.
	nameIndex uint16
}

const (
	cpUtf8               = 1
	cpInteger            = 3
	cpFloat              = 4
	cpLong               = 5
	cpDouble             = 6
	cpClass              = 7
	cpString             = 8
	cpFieldref           = 9
	cpMethodref          = 10
	cpInterfaceMethodref = 11
	cpNameAndType        = 12
	cpMethodHandle       = 15
	cpMethodType         = 16
	cpDynamic            = 17
	cpInvokeDynamic      = 18
	cpModule             = 19
	cpPackage            = 20
)

func parseClassFile(data []byte) (*classFile, error) {
	r := &byteReader{data: data}

	magic, err := r.u32()
	if err != nil || magic != 0xCAFEBABE {
		return nil, fmt.Errorf("not a class file (bad magic)")
	}

	if _, err := r.u16(); err != nil { // minor version
		return nil, err
	}
	if _, err := r.u16(); err != nil { // major version
		return nil, err
	}

	cpCount, err := r.u16()
	if err != nil {
		return nil, err
	}

	pool := make([]cpEntry, cpCount)
	for i := 1; i < int(cpCount); i++ {
		tag, err := r.u8()
		if err != nil {
			return nil, err
		}
		switch tag {
		case cpUtf8:
			length, err := r.u16()
			if err != nil {
				return nil, err
			}
			b, err := r.bytes(int(length))
			if err != nil {
				return nil, err
			}
			pool[i] = cpEntry{tag: tag, utf8: string(b)}
		case cpClass, cpString, cpMethodType, cpModule, cpPackage:
			idx, err := r.u16()
			if err != nil {
				return nil, err
			}
			pool[i] = cpEntry{tag: tag, nameIndex: idx}
		case cpFieldref, cpMethodref, cpInterfaceMethodref, cpNameAndType, cpDynamic, cpInvokeDynamic:
			if _, err := r.u16(); err != nil {
				return nil, err
			}
			if _, err := r.u16(); err != nil {
				return nil, err
			}
			pool[i] = cpEntry{tag: tag}
		case cpInteger, cpFloat:
			if _, err := r.u32(); err != nil {
				return nil, err
			}
			pool[i] = cpEntry{tag: tag}
		case cpLong, cpDouble:
			if _, err := r.u32(); err != nil {
				return nil, err
			}
			if _, err := r.u32(); err != nil {
				return nil, err
			}
			pool[i] = cpEntry{tag: tag}
			i++ // 8-byte constants occupy two pool slots
		case cpMethodHandle:
			if _, err := r.u8(); err != nil {
				return nil, err
			}
			if _, err := r.u16(); err != nil {
				return nil, err
			}
			pool[i] = cpEntry{tag: tag}
		default:
			return nil, fmt.Errorf("unrecognized constant pool tag %d", tag)
		}
	}

	resolveUtf8 := func(classIndex uint16) string {
		if int(classIndex) >= len(pool) {
			return ""
		}
		class := pool[classIndex]
		if int(class.nameIndex) >= len(pool) {
			return ""
		}
		return pool[class.nameIndex].utf8
	}

	accessFlags, err := r.u16()
	if err != nil {
		return nil, err
	}
	thisClass, err := r.u16()
	if err != nil {
		return nil, err
	}
	if _, err := r.u16(); err != nil { // super_class
		return nil, err
	}

	ifaceCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(ifaceCount); i++ {
		if _, err := r.u16(); err != nil {
			return nil, err
		}
	}

	fields, err := readMembers(r, pool)
	if err != nil {
		return nil, err
	}
	methods, err := readMembers(r, pool)
	if err != nil {
		return nil, err
	}

	className := strings.ReplaceAll(resolveUtf8(thisClass), "/", ".")

	return &classFile{
		accessFlags: accessFlags,
		className:   className,
		fields:      fields,
		methods:     methods,
	}, nil
}

// readMembers reads a field_info or method_info table: count, then for each
// entry access_flags/name_index/descriptor_index and an attributes table
// skipped by declared length (skip-code/skip-debug/skip-frames).
func readMembers(r *byteReader, pool []cpEntry) ([]member, error) {
	count, err := r.u16()
	if err != nil {
		return nil, err
	}

	members := make([]member, 0, count)
	for i := 0; i < int(count); i++ {
		accessFlags, err := r.u16()
		if err != nil {
			return nil, err
		}
		nameIndex, err := r.u16()
		if err != nil {
			return nil, err
		}
		if _, err := r.u16(); err != nil { // descriptor_index
			return nil, err
		}

		attrCount, err := r.u16()
		if err != nil {
			return nil, err
		}
		for a := 0; a < int(attrCount); a++ {
			if _, err := r.u16(); err != nil { // attribute_name_index
				return nil, err
			}
			length, err := r.u32()
			if err != nil {
				return nil, err
			}
			if _, err := r.bytes(int(length)); err != nil {
				return nil, err
			}
		}

		name := ""
		if int(nameIndex) < len(pool) {
			name = pool[nameIndex].utf8
		}
		members = append(members, member{accessFlags: accessFlags, name: name})
	}
	return members, nil
}

// byteReader is a minimal big-endian cursor over a classfile byte slice.
type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) u8() (uint8, error) {
	if r.pos+1 > len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) u16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *byteReader) u32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}
