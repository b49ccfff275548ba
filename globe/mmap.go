package globe

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/klauspost/compress/zstd"
)

// MMapWriter handles writing to memory-mapped files
type MMapWriter struct {
	data   mmap.MMap
	offset int
}

func NewMMapWriter(data mmap.MMap) *MMapWriter {
	return &MMapWriter{data: data}
}

func (w *MMapWriter) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.data[w.offset:], v)
	w.offset += 4
}

func (w *MMapWriter) WriteUint8(v uint8) {
	w.data[w.offset] = v
	w.offset++
}

func (w *MMapWriter) WriteFloat64(v float64) {
	binary.LittleEndian.PutUint64(w.data[w.offset:], math.Float64bits(v))
	w.offset += 8
}

func (w *MMapWriter) WriteString(s string) {
	w.WriteUint32(uint32(len(s)))
	copy(w.data[w.offset:], s)
	w.offset += len(s)
}

// MMapReader handles reading from memory-mapped files
type MMapReader struct {
	data   mmap.MMap
	offset int
}

func NewMMapReader(data mmap.MMap) *MMapReader {
	return &MMapReader{data: data}
}

func (r *MMapReader) ReadUint32() uint32 {
	v := binary.LittleEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v
}

func (r *MMapReader) ReadUint8() uint8 {
	v := r.data[r.offset]
	r.offset++
	return v
}

func (r *MMapReader) ReadFloat64() float64 {
	v := binary.LittleEndian.Uint64(r.data[r.offset:])
	r.offset += 8
	return math.Float64frombits(v)
}

func (r *MMapReader) ReadString() string {
	n := int(r.ReadUint32())
	s := string(r.data[r.offset : r.offset+n])
	r.offset += n
	return s
}

// calculateSize returns the exact byte size of the mmap snapshot layout.
func (d *Dataset) calculateSize() int64 {
	size := int64(4 + len(d.Name)) // name
	size += 8                      // entity + folder counts

	for _, e := range d.Entities {
		size += 4 + int64(len(e.ID))
		size += 16 // lat, lon
		size += 1  // classification
		size += 4  // bookmark count
		size += 4 + int64(len(e.Country))
		size += 4 + int64(len(e.City))
		size += 4 + int64(len(e.Org))
	}

	for _, f := range d.Folders {
		size += 4 + int64(len(f.Path))
		size += 8 // count + domain count
		for _, dom := range f.Domains {
			size += 4 + int64(len(dom))
		}
	}

	return size
}

// SaveMMap writes the dataset snapshot through a memory-mapped file.
func (d *Dataset) SaveMMap(filename string) error {
	size := d.calculateSize()

	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	if err := file.Truncate(size); err != nil {
		return fmt.Errorf("failed to truncate file: %v", err)
	}

	mmapData, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to mmap file: %v", err)
	}
	defer mmapData.Unmap()

	writer := NewMMapWriter(mmapData)

	writer.WriteString(d.Name)
	writer.WriteUint32(uint32(len(d.Entities)))
	writer.WriteUint32(uint32(len(d.Folders)))

	for _, e := range d.Entities {
		writer.WriteString(e.ID)
		writer.WriteFloat64(e.Lat)
		writer.WriteFloat64(e.Lon)
		writer.WriteUint8(uint8(e.Classification))
		writer.WriteUint32(uint32(e.BookmarkCount))
		writer.WriteString(e.Country)
		writer.WriteString(e.City)
		writer.WriteString(e.Org)
	}

	for _, f := range d.Folders {
		writer.WriteString(f.Path)
		writer.WriteUint32(uint32(f.Count))
		writer.WriteUint32(uint32(len(f.Domains)))
		for _, dom := range f.Domains {
			writer.WriteString(dom)
		}
	}

	return mmapData.Flush()
}

// LoadMMapDataset reads a snapshot written by SaveMMap.
func LoadMMapDataset(filename string) (*Dataset, error) {
	file, err := os.OpenFile(filename, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %v", err)
	}
	defer file.Close()

	mmapData, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap file: %v", err)
	}
	defer mmapData.Unmap()

	reader := NewMMapReader(mmapData)

	d := &Dataset{Name: reader.ReadString()}
	numEntities := reader.ReadUint32()
	numFolders := reader.ReadUint32()

	d.Entities = make([]*GeoEntity, 0, numEntities)
	for i := uint32(0); i < numEntities; i++ {
		e := &GeoEntity{ID: reader.ReadString()}
		e.Lat = reader.ReadFloat64()
		e.Lon = reader.ReadFloat64()
		e.Classification = Classification(reader.ReadUint8())
		e.BookmarkCount = int(reader.ReadUint32())
		e.Country = reader.ReadString()
		e.City = reader.ReadString()
		e.Org = reader.ReadString()
		d.Entities = append(d.Entities, e)
	}

	d.Folders = make([]FolderGroup, 0, numFolders)
	for i := uint32(0); i < numFolders; i++ {
		f := FolderGroup{Path: reader.ReadString()}
		f.Count = int(reader.ReadUint32())
		numDomains := reader.ReadUint32()
		for j := uint32(0); j < numDomains; j++ {
			f.Domains = append(f.Domains, reader.ReadString())
		}
		d.Folders = append(d.Folders, f)
	}

	return d, nil
}

// SaveCompressedMMap writes the mmap snapshot and compresses it with zstd.
func (d *Dataset) SaveCompressedMMap(filename string) error {
	tempFile := filename + ".tmp"
	if err := d.SaveMMap(tempFile); err != nil {
		return fmt.Errorf("failed to save mmap: %v", err)
	}
	defer os.Remove(tempFile)

	src, err := os.Open(tempFile)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %v", err)
	}
	defer src.Close()

	dst, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create compressed file: %v", err)
	}
	defer dst.Close()

	enc, err := zstd.NewWriter(dst,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %v", err)
	}

	if _, err := io.Copy(enc, src); err != nil {
		return fmt.Errorf("failed to compress data: %v", err)
	}
	return enc.Close()
}

// LoadCompressedMMap decompresses a snapshot to a temp file and maps it.
func LoadCompressedMMap(filename string) (*Dataset, error) {
	tempFile := filename + ".tmp"
	dst, err := os.Create(tempFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %v", err)
	}
	defer os.Remove(tempFile)
	defer dst.Close()

	src, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open compressed file: %v", err)
	}
	defer src.Close()

	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %v", err)
	}
	defer dec.Close()

	if _, err := io.Copy(dst, dec); err != nil {
		return nil, fmt.Errorf("failed to decompress data: %v", err)
	}
	if err := dst.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync temp file: %v", err)
	}

	return LoadMMapDataset(tempFile)
}
