package globe

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Snapshot format: entity and folder counts, then fixed numeric fields with
// length-prefixed strings, zstd-compressed. Little-endian throughout.

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// SaveCompressed writes the dataset to a zstd-compressed snapshot file.
func (d *Dataset) SaveCompressed(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	bufWriter := bufio.NewWriterSize(file, 1024*1024)
	enc, err := zstd.NewWriter(bufWriter,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %v", err)
	}

	if err := writeString(enc, d.Name); err != nil {
		return err
	}
	binary.Write(enc, binary.LittleEndian, uint32(len(d.Entities)))
	binary.Write(enc, binary.LittleEndian, uint32(len(d.Folders)))

	for _, e := range d.Entities {
		if err := writeString(enc, e.ID); err != nil {
			return err
		}
		binary.Write(enc, binary.LittleEndian, e.Lat)
		binary.Write(enc, binary.LittleEndian, e.Lon)
		binary.Write(enc, binary.LittleEndian, uint8(e.Classification))
		binary.Write(enc, binary.LittleEndian, uint32(e.BookmarkCount))
		writeString(enc, e.Country)
		writeString(enc, e.City)
		if err := writeString(enc, e.Org); err != nil {
			return err
		}
	}

	for _, f := range d.Folders {
		if err := writeString(enc, f.Path); err != nil {
			return err
		}
		binary.Write(enc, binary.LittleEndian, uint32(f.Count))
		binary.Write(enc, binary.LittleEndian, uint32(len(f.Domains)))
		for _, dom := range f.Domains {
			if err := writeString(enc, dom); err != nil {
				return err
			}
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %v", err)
	}
	if err := bufWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %v", err)
	}
	return nil
}

// LoadCompressedDataset reads a snapshot written by SaveCompressed. Offsets
// are not persisted; they are recomputed on the first frame after a load.
func LoadCompressedDataset(filename string) (*Dataset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %v", err)
	}
	defer file.Close()

	dec, err := zstd.NewReader(bufio.NewReaderSize(file, 1024*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %v", err)
	}
	defer dec.Close()

	d := &Dataset{}
	if d.Name, err = readString(dec); err != nil {
		return nil, fmt.Errorf("failed to read header: %v", err)
	}

	var numEntities, numFolders uint32
	binary.Read(dec, binary.LittleEndian, &numEntities)
	binary.Read(dec, binary.LittleEndian, &numFolders)

	d.Entities = make([]*GeoEntity, 0, numEntities)
	for i := uint32(0); i < numEntities; i++ {
		e := &GeoEntity{}
		if e.ID, err = readString(dec); err != nil {
			return nil, fmt.Errorf("failed to read entity %d: %v", i, err)
		}
		binary.Read(dec, binary.LittleEndian, &e.Lat)
		binary.Read(dec, binary.LittleEndian, &e.Lon)
		var class uint8
		binary.Read(dec, binary.LittleEndian, &class)
		e.Classification = Classification(class)
		var count uint32
		binary.Read(dec, binary.LittleEndian, &count)
		e.BookmarkCount = int(count)
		e.Country, _ = readString(dec)
		e.City, _ = readString(dec)
		if e.Org, err = readString(dec); err != nil {
			return nil, fmt.Errorf("failed to read entity %d: %v", i, err)
		}
		d.Entities = append(d.Entities, e)
	}

	d.Folders = make([]FolderGroup, 0, numFolders)
	for i := uint32(0); i < numFolders; i++ {
		f := FolderGroup{}
		if f.Path, err = readString(dec); err != nil {
			return nil, fmt.Errorf("failed to read folder %d: %v", i, err)
		}
		var count, numDomains uint32
		binary.Read(dec, binary.LittleEndian, &count)
		binary.Read(dec, binary.LittleEndian, &numDomains)
		f.Count = int(count)
		for j := uint32(0); j < numDomains; j++ {
			dom, err := readString(dec)
			if err != nil {
				return nil, fmt.Errorf("failed to read folder %d: %v", i, err)
			}
			f.Domains = append(f.Domains, dom)
		}
		d.Folders = append(d.Folders, f)
	}

	return d, nil
}
