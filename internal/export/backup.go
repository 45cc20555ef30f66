package export

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/lotas/readlater/internal/types"
	"github.com/pierrec/lz4/v4"
)

// Backup header: 8-byte magic + 4-byte LE uint32 uncompressed size, followed
// by one lz4 block holding the JSON page array.
var backupMagic = []byte("rlBak40\x00")

const backupHeaderSize = 12

// maxBackupSize bounds the allocation made from the size header.
const maxBackupSize = 256 << 20

// WriteBackup writes pages as a compressed backup.
func WriteBackup(w io.Writer, pages []types.Page) error {
	if pages == nil {
		pages = []types.Page{}
	}
	raw, err := json.Marshal(pages)
	if err != nil {
		return fmt.Errorf("encode pages: %w", err)
	}

	buf := make([]byte, backupHeaderSize+lz4.CompressBlockBound(len(raw)))
	copy(buf, backupMagic)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(raw)))
	n, err := lz4.CompressBlock(raw, buf[backupHeaderSize:], nil)
	if err != nil {
		return fmt.Errorf("compress backup: %w", err)
	}
	if n == 0 {
		// incompressible input: store it as a single literal run
		n, err = storeBlock(raw, buf[backupHeaderSize:])
		if err != nil {
			return err
		}
	}
	_, err = w.Write(buf[:backupHeaderSize+n])
	return err
}

// ReadBackup reads a backup written by WriteBackup, or a plain JSON page
// array, or a JSON export document.
func ReadBackup(r io.Reader) ([]types.Page, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, backupMagic) {
		data, err = decompress(data)
		if err != nil {
			return nil, err
		}
	}
	return decodePages(data)
}

func decompress(data []byte) ([]byte, error) {
	if len(data) < backupHeaderSize {
		return nil, fmt.Errorf("backup: data too short (%d bytes)", len(data))
	}
	size := binary.LittleEndian.Uint32(data[8:12])
	if size > maxBackupSize {
		return nil, fmt.Errorf("backup: declared size %d too large", size)
	}
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(data[backupHeaderSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("backup: decompress failed: %w", err)
	}
	return dst[:n], nil
}

func decodePages(data []byte) ([]types.Page, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("backup: empty input")
	}
	if data[0] == '{' {
		var doc jsonExport
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("backup: %w", err)
		}
		out := make([]types.Page, len(doc.Pages))
		for i, p := range doc.Pages {
			out[i] = p.Page
		}
		return out, nil
	}
	var pages []types.Page
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("backup: %w", err)
	}
	return pages, nil
}

// storeBlock encodes src as a valid lz4 block made of one literal sequence.
func storeBlock(src, dst []byte) (int, error) {
	need := 1 + len(src)/255 + 1 + len(src)
	if need > len(dst) {
		return 0, errors.New("backup: output buffer too small")
	}
	lit := len(src)
	i := 0
	if lit < 15 {
		dst[i] = byte(lit << 4)
		i++
	} else {
		dst[i] = 0xF0
		i++
		rest := lit - 15
		for rest >= 255 {
			dst[i] = 255
			i++
			rest -= 255
		}
		dst[i] = byte(rest)
		i++
	}
	i += copy(dst[i:], src)
	return i, nil
}
