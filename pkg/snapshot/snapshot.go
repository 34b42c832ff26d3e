// Package snapshot persists a built network, its routing graph and the
// settings it was built with to a single file, and restores them.
//
// File layout (little-endian):
//
//	magic   [8]byte  "TRNSNAP1"
//	version uint32
//	length  uint64   payload bytes
//	payload          protobuf wire format, see codec.go
//	crc32   uint32   IEEE, over everything before it
package snapshot

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"transit_router/pkg/catalogue"
	"transit_router/pkg/graph"
	"transit_router/pkg/routing"
	"transit_router/pkg/settings"
)

const (
	magicBytes = "TRNSNAP1"
	version    = uint32(1)
	maxPayload = 1 << 30
)

// ErrCorrupt is returned when a snapshot cannot be decoded.
var ErrCorrupt = errors.New("corrupt snapshot")

// Snapshot is everything the query phase needs.
type Snapshot struct {
	BuildID   uuid.UUID
	CreatedAt time.Time

	Routing settings.RoutingSettings
	Render  settings.RenderSettings

	Catalogue *catalogue.Catalogue
	Graph     *graph.Graph
}

// New wraps a built network into a snapshot with a fresh build id.
func New(cat *catalogue.Catalogue, g *graph.Graph, rs settings.RoutingSettings, render settings.RenderSettings) *Snapshot {
	return &Snapshot{
		BuildID:   uuid.New(),
		CreatedAt: time.Now().UTC(),
		Routing:   rs,
		Render:    render,
		Catalogue: cat,
		Graph:     g,
	}
}

// Router returns a router over the restored graph.
func (s *Snapshot) Router() *routing.Router {
	return routing.NewRouter(s.Graph, s.Routing)
}

type fileHeader struct {
	Magic      [8]byte
	Version    uint32
	PayloadLen uint64
}

// Encode writes s to w.
func Encode(w io.Writer, s *Snapshot) error {
	if s.Catalogue == nil || s.Graph == nil {
		return errors.New("snapshot has no catalogue or graph")
	}
	payload := marshal(s)
	if len(payload) > maxPayload {
		return fmt.Errorf("payload of %d bytes exceeds limit %d", len(payload), maxPayload)
	}

	cw := &crc32Writer{w: w, hash: crc32.NewIEEE()}
	hdr := fileHeader{Version: version, PayloadLen: uint64(len(payload))}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := cw.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, cw.hash.Sum32()); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	return nil
}

// Decode reads a snapshot from r. The catalogue is rebuilt from the stored
// stops, distances and routes; the graph is restored as stored.
func Decode(r io.Reader) (*Snapshot, error) {
	cr := &crc32Reader{r: r, hash: crc32.NewIEEE()}

	var hdr fileHeader
	if err := binary.Read(cr, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrCorrupt, err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("%w: invalid magic bytes: %q", ErrCorrupt, hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("%w: unsupported version: %d", ErrCorrupt, hdr.Version)
	}
	if hdr.PayloadLen > maxPayload {
		return nil, fmt.Errorf("%w: payload length %d exceeds limit %d", ErrCorrupt, hdr.PayloadLen, maxPayload)
	}

	// The buffer grows with the bytes actually present, not the claimed length.
	payload, err := io.ReadAll(io.LimitReader(cr, int64(hdr.PayloadLen)))
	if err != nil {
		return nil, fmt.Errorf("%w: read payload: %w", ErrCorrupt, err)
	}
	if uint64(len(payload)) != hdr.PayloadLen {
		return nil, fmt.Errorf("%w: short payload: got %d of %d bytes", ErrCorrupt, len(payload), hdr.PayloadLen)
	}

	expectedCRC := cr.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(r, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("%w: read CRC32: %w", ErrCorrupt, err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("%w: CRC32 mismatch: stored=%08x computed=%08x", ErrCorrupt, storedCRC, expectedCRC)
	}

	return unmarshal(payload)
}

// Save writes s to path. The file is written next to path and renamed into
// place, so readers never observe a partial snapshot.
func Save(path string, s *Snapshot) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	bw := bufio.NewWriter(f)
	if err := Encode(bw, s); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Load reads the snapshot at path.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	return Decode(bufio.NewReader(f))
}

// CRC32 wrapping writers/readers.

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
