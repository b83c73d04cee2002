package region

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	snapshotMagic   = "DTREGION" // File format identifier
	snapshotVersion = 1          // Format version
	digestSize      = 32         // BLAKE3-256 trailer
	maxValueSize    = 64 << 20   // Upper bound for a single value when reading
)

// --------------------------------------------------------------------------
// Snapshot Format
// --------------------------------------------------------------------------

// WriteSnapshot writes every non-empty region of v to w.
//
// Layout (little endian):
//
//	magic [8]byte | version uint8 | regions uint32
//	per region: id uint8 | entries uint64
//	per entry:  key uint64 | len uint32 | value [len]byte
//	digest [32]byte (BLAKE3 over everything before it)
func WriteSnapshot(w io.Writer, v IView) error {
	bw := bufio.NewWriterSize(w, 1024*1024) // 1 MB buffer
	hasher := blake3.New()
	out := io.MultiWriter(bw, hasher)

	ids, err := v.Regions()
	if err != nil {
		return err
	}

	if _, err := io.WriteString(out, snapshotMagic); err != nil {
		return err
	}
	if err := binary.Write(out, binary.LittleEndian, uint8(snapshotVersion)); err != nil {
		return err
	}
	if err := binary.Write(out, binary.LittleEndian, uint32(len(ids))); err != nil {
		return err
	}

	var header [12]byte
	for _, id := range ids {
		reader := v.Reader(id)
		n, err := reader.Len()
		if err != nil {
			return err
		}

		if err := binary.Write(out, binary.LittleEndian, uint8(id)); err != nil {
			return err
		}
		if err := binary.Write(out, binary.LittleEndian, n); err != nil {
			return err
		}

		var written uint64
		var writeErr error
		err = reader.Ascend(func(key uint64, value []byte) bool {
			binary.LittleEndian.PutUint64(header[0:8], key)
			binary.LittleEndian.PutUint32(header[8:12], uint32(len(value)))
			if _, writeErr = out.Write(header[:]); writeErr != nil {
				return false
			}
			if _, writeErr = out.Write(value); writeErr != nil {
				return false
			}
			written++
			return true
		})
		if err != nil {
			return err
		}
		if writeErr != nil {
			return writeErr
		}
		if written != n {
			return fmt.Errorf("region %d changed during snapshot: announced %d entries, wrote %d", id, n, written)
		}
	}

	if _, err := bw.Write(hasher.Sum(nil)); err != nil {
		return err
	}

	return bw.Flush()
}

// ReadSnapshot clears every region of tx and fills it from r.
// It returns an error for a foreign or corrupted snapshot, in which case the
// caller must discard tx.
func ReadSnapshot(r io.Reader, tx ITxn) error {
	br := bufio.NewReaderSize(r, 1024*1024) // 1 MB buffer
	hasher := blake3.New()
	in := io.TeeReader(br, hasher)

	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(in, magic); err != nil {
		return err
	}
	if string(magic) != snapshotMagic {
		return fmt.Errorf("invalid snapshot format: magic number mismatch")
	}

	var version uint8
	if err := binary.Read(in, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d (expected %d)", version, snapshotVersion)
	}

	var regionCount uint32
	if err := binary.Read(in, binary.LittleEndian, &regionCount); err != nil {
		return err
	}

	// drop current content, the snapshot is authoritative
	existing, err := tx.Regions()
	if err != nil {
		return err
	}
	for _, id := range existing {
		if err := tx.Writer(id).Clear(); err != nil {
			return err
		}
	}

	var header [12]byte
	for i := uint32(0); i < regionCount; i++ {
		var id uint8
		var entries uint64
		if err := binary.Read(in, binary.LittleEndian, &id); err != nil {
			return err
		}
		if err := binary.Read(in, binary.LittleEndian, &entries); err != nil {
			return err
		}

		writer := tx.Writer(ID(id))
		for j := uint64(0); j < entries; j++ {
			if _, err := io.ReadFull(in, header[:]); err != nil {
				return fmt.Errorf("region %d entry %d: %w", id, j, err)
			}
			key := binary.LittleEndian.Uint64(header[0:8])
			valueLen := binary.LittleEndian.Uint32(header[8:12])
			if valueLen > maxValueSize {
				return fmt.Errorf("region %d entry %d: value length %d exceeds %d", id, j, valueLen, maxValueSize)
			}
			value := make([]byte, valueLen)
			if _, err := io.ReadFull(in, value); err != nil {
				return fmt.Errorf("region %d entry %d: %w", id, j, err)
			}
			if err := writer.Set(key, value); err != nil {
				return err
			}
		}
	}

	expected := hasher.Sum(nil)
	digest := make([]byte, digestSize)
	if _, err := io.ReadFull(br, digest); err != nil {
		return fmt.Errorf("missing snapshot digest: %w", err)
	}
	if !bytes.Equal(digest, expected) {
		return fmt.Errorf("snapshot digest mismatch")
	}

	return nil
}
