package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/diverset/codec"
)

// Snapshot layout:
//
//	magic (8) | version (u16) | provider | codec | compression | crc32c (u32) | payload len (u32) | payload
//
// Strings are u16 length-prefixed. The payload is the codec-encoded entry
// map, compressed per the named compression. The header makes snapshots
// self-describing: load selects codec and compression by name, so the
// on-disk format survives configuration changes on the writer side.
const (
	snapshotMagic   = "DSETCACH"
	snapshotVersion = uint16(1)
)

// Compression names the payload compression of a snapshot.
type Compression string

const (
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
	CompressionNone Compression = "none"
)

func (c Compression) valid() bool {
	switch c {
	case CompressionZstd, CompressionLZ4, CompressionNone:
		return true
	default:
		return false
	}
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

type snapshot struct {
	Entries map[string]Entry `json:"entries"`
}

func encodeSnapshot(provider string, cdc codec.Codec, comp Compression, entries map[string]Entry) ([]byte, error) {
	raw, err := cdc.Marshal(snapshot{Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	payload, err := compress(comp, raw)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(snapshotMagic)
	writeUint16(&buf, snapshotVersion)
	writeString(&buf, provider)
	writeString(&buf, cdc.Name())
	writeString(&buf, string(comp))
	writeUint32(&buf, crc32.Checksum(payload, castagnoli))
	writeUint32(&buf, uint32(len(payload)))
	buf.Write(payload)

	return buf.Bytes(), nil
}

func decodeSnapshot(data []byte, provider string) (map[string]Entry, error) {
	r := bytes.NewReader(data)

	head := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(r, head); err != nil || string(head) != snapshotMagic {
		return nil, fmt.Errorf("bad magic, not a fingerprint snapshot")
	}

	version, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", version)
	}

	gotProvider, err := readString(r)
	if err != nil {
		return nil, err
	}
	if gotProvider != provider {
		return nil, fmt.Errorf("snapshot written by provider %q, want %q", gotProvider, provider)
	}

	codecName, err := readString(r)
	if err != nil {
		return nil, err
	}
	cdc, ok := codec.ByName(codecName)
	if !ok {
		return nil, fmt.Errorf("unknown snapshot codec %q", codecName)
	}

	compName, err := readString(r)
	if err != nil {
		return nil, err
	}
	comp := Compression(compName)
	if !comp.valid() {
		return nil, fmt.Errorf("unknown snapshot compression %q", compName)
	}

	sum, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	payloadLen, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	// The length field is untrusted input; never size an allocation past
	// the bytes actually present.
	if int64(payloadLen) > int64(r.Len()) {
		return nil, fmt.Errorf("truncated payload: header claims %d bytes, %d remain", payloadLen, r.Len())
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("truncated payload: %w", err)
	}
	if crc32.Checksum(payload, castagnoli) != sum {
		return nil, fmt.Errorf("payload checksum mismatch")
	}

	raw, err := decompress(comp, payload)
	if err != nil {
		return nil, err
	}

	var snap snapshot
	if err := cdc.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	if snap.Entries == nil {
		snap.Entries = make(map[string]Entry)
	}

	return snap.Entries, nil
}

func compress(comp Compression, data []byte) ([]byte, error) {
	switch comp {
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil

	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		return buf.Bytes(), nil

	case CompressionNone:
		return data, nil

	default:
		return nil, fmt.Errorf("unknown compression %q", comp)
	}
}

func decompress(comp Compression, data []byte) ([]byte, error) {
	switch comp {
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return out, nil

	case CompressionLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		return out, nil

	case CompressionNone:
		return data, nil

	default:
		return nil, fmt.Errorf("unknown compression %q", comp)
	}
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint16(buf, uint16(len(s)))
	buf.WriteString(s)
}

func readUint16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("truncated header: %w", err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("truncated header: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readUint16(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("truncated header: %w", err)
	}
	return string(b), nil
}
