package packed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// Format selects the on-disk record layout.
type Format int

const (
	FormatV1 Format = iota
	FormatV2
)

// ParseFormat maps the CLI format names.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "v1":
		return FormatV1, nil
	case "v2":
		return FormatV2, nil
	}
	return FormatV1, fmt.Errorf("invalid format %q (expected v1 or v2)", s)
}

// V2 file header constants.
const (
	HeaderSize   = 8
	VersionV2    = 2
	FlagHasPly   = 0x01
	EndianLittle = 1
)

var magic = [4]byte{'A', 'E', 'T', 'H'}

// Header is the 8-byte V2 file prefix. V1 files are headerless.
type Header struct {
	Version    byte
	Flags      byte
	Endianness byte
	Reserved   byte
}

// NewHeader builds a V2 header with the given flags.
func NewHeader(flags byte) Header {
	return Header{Version: VersionV2, Flags: flags, Endianness: EndianLittle}
}

// HasPly reports whether records carry the trailing ply field.
func (h Header) HasPly() bool {
	return h.Flags&FlagHasPly != 0
}

// RecordSize returns the record size the header implies.
func (h Header) RecordSize() int {
	if h.HasPly() {
		return RecordSizeV2
	}
	return RecordSizeV2NoPly
}

// WriteHeader emits the header.
func WriteHeader(w io.Writer, h Header) error {
	buf := [HeaderSize]byte{magic[0], magic[1], magic[2], magic[3], h.Version, h.Flags, h.Endianness, h.Reserved}
	_, err := w.Write(buf[:])
	return err
}

// ReadHeader tries to parse a header from the prefix bytes. A missing or
// foreign prefix is not an error: ok is false and the caller treats the
// file as headerless V1.
func ReadHeader(prefix []byte) (Header, bool) {
	if len(prefix) < HeaderSize || !bytes.Equal(prefix[:4], magic[:]) {
		return Header{}, false
	}
	return Header{
		Version:    prefix[4],
		Flags:      prefix[5],
		Endianness: prefix[6],
		Reserved:   prefix[7],
	}, true
}

// ReadInfo describes how a packed file should be read.
type ReadInfo struct {
	Format     Format
	HasHeader  bool
	Header     Header
	RecordSize int
}

// DetectReadInfo sniffs the file prefix and reconciles it with a forced
// format if one was requested.
func DetectReadInfo(prefix []byte, forced *Format) (ReadInfo, error) {
	header, hasHeader := ReadHeader(prefix)

	if forced != nil {
		if *forced == FormatV2 && !hasHeader {
			return ReadInfo{}, errors.New("expected v2 header but none was found")
		}
		if *forced == FormatV1 && hasHeader {
			return ReadInfo{}, errors.New("file has a v2 header but v1 format was requested")
		}
	}

	if hasHeader {
		if header.Version != VersionV2 {
			return ReadInfo{}, fmt.Errorf("unsupported packed board version %d", header.Version)
		}
		if header.Endianness != EndianLittle {
			return ReadInfo{}, errors.New("endianness mismatch for packed board file")
		}
		return ReadInfo{
			Format:     FormatV2,
			HasHeader:  true,
			Header:     header,
			RecordSize: header.RecordSize(),
		}, nil
	}
	return ReadInfo{Format: FormatV1, RecordSize: RecordSizeV1}, nil
}

// openForRead sniffs the header and positions the reader at the first
// record.
func openForRead(path string, forced *Format) (*os.File, *bufio.Reader, ReadInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, ReadInfo{}, err
	}

	br := bufio.NewReader(f)
	prefix, _ := br.Peek(HeaderSize)
	info, err := DetectReadInfo(prefix, forced)
	if err != nil {
		f.Close()
		return nil, nil, ReadInfo{}, err
	}
	if info.HasHeader {
		if _, err := br.Discard(HeaderSize); err != nil {
			f.Close()
			return nil, nil, ReadInfo{}, err
		}
	}
	return f, br, info, nil
}

func readRecord(br *bufio.Reader, info ReadInfo, buf []byte) (Record, bool, error) {
	n, err := io.ReadFull(br, buf[:info.RecordSize])
	if err == io.EOF {
		return Record{}, false, nil
	}
	if err == io.ErrUnexpectedEOF {
		return Record{}, false, fmt.Errorf("trailing partial record of %d bytes", n)
	}
	if err != nil {
		return Record{}, false, err
	}

	var r Record
	if info.Format == FormatV1 {
		r, err = UnmarshalV1(buf)
	} else {
		r, err = UnmarshalV2(buf, info.Header.HasPly())
	}
	return r, err == nil, err
}

// ConvertV1ToV2 rewrites a headerless V1 file as a headered V2 file. The
// V2-only fields are zero; the ply field is emitted when includePly is set.
func ConvertV1ToV2(inputPath, outputPath string, includePly bool) error {
	forced := FormatV1
	f, br, info, err := openForRead(inputPath, &forced)
	if err != nil {
		return err
	}
	defer f.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()
	bw := bufio.NewWriter(out)

	flags := byte(0)
	if includePly {
		flags = FlagHasPly
	}
	if err := WriteHeader(bw, NewHeader(flags)); err != nil {
		return err
	}

	buf := make([]byte, RecordSizeV2)
	for {
		r, ok, err := readRecord(br, info, buf)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if _, err := bw.Write(r.MarshalV2(includePly)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Verify walks a packed file checking framing and record structure.
// Returns the number of valid records.
func Verify(path string, forced *Format) (int64, error) {
	f, br, info, err := openForRead(path, forced)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	buf := make([]byte, RecordSizeV2)
	var count int64
	for {
		r, ok, err := readRecord(br, info, buf)
		if err != nil {
			return count, fmt.Errorf("record %d: %w", count, err)
		}
		if !ok {
			break
		}
		if err := r.Validate(); err != nil {
			return count, fmt.Errorf("record %d: %w", count, err)
		}
		count++
	}
	return count, nil
}

// Writer appends records to a packed file, emitting the V2 header first
// when the format calls for one.
type Writer struct {
	bw     *bufio.Writer
	f      *os.File
	format Format
	hasPly bool
}

// NewWriter creates the output file. V2 files always carry the ply field.
func NewWriter(path string, format Format) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		bw:     bufio.NewWriter(f),
		f:      f,
		format: format,
		hasPly: format == FormatV2,
	}
	if format == FormatV2 {
		if err := WriteHeader(w.bw, NewHeader(FlagHasPly)); err != nil {
			f.Close()
			return nil, err
		}
	}
	return w, nil
}

// Write appends one record.
func (w *Writer) Write(r *Record) error {
	if w.format == FormatV1 {
		buf := r.MarshalV1()
		_, err := w.bw.Write(buf[:])
		return err
	}
	_, err := w.bw.Write(r.MarshalV2(w.hasPly))
	return err
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
