package core

import (
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Serializers for stored records. Each follows the mus-go serializer shape:
// Marshal writes into a buffer sized by Size, Unmarshal returns the value and
// the number of bytes consumed, Skip advances past an encoded value.
var (
	ChunkRecordMUS    = chunkRecordMUS{}
	CollectionInfoMUS = collectionInfoMUS{}
	SourceManifestMUS = sourceManifestMUS{}
)

type chunkRecordMUS struct{}

func (chunkRecordMUS) Marshal(v ChunkRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Text, bs[n:])
	n += marshalStringMap(v.Metadata, bs[n:])
	n += marshalVector(v.Vector, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return
}

func (chunkRecordMUS) Unmarshal(bs []byte) (v ChunkRecord, n int, err error) {
	var n1 int
	if v.ID, n1, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	n += n1
	if v.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Metadata, n1, err = unmarshalStringMap(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Vector, n1, err = unmarshalVector(bs[n:]); err != nil {
		return
	}
	n += n1
	v.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (chunkRecordMUS) Size(v ChunkRecord) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.Text)
	size += sizeStringMap(v.Metadata)
	size += sizeVector(v.Vector)
	return size + sizeTime(v.UpdatedAt)
}

func (s chunkRecordMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type collectionInfoMUS struct{}

func (collectionInfoMUS) Marshal(v CollectionInfo, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += ord.String.Marshal(v.EmbeddingModel, bs[n:])
	n += varint.Int.Marshal(v.Dimensions, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return
}

func (collectionInfoMUS) Unmarshal(bs []byte) (v CollectionInfo, n int, err error) {
	var n1 int
	if v.Name, n1, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	n += n1
	if v.EmbeddingModel, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Dimensions, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.CreatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return
	}
	n += n1
	v.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (collectionInfoMUS) Size(v CollectionInfo) (size int) {
	size = ord.String.Size(v.Name)
	size += ord.String.Size(v.EmbeddingModel)
	size += varint.Int.Size(v.Dimensions)
	return size + sizeTime(v.CreatedAt) + sizeTime(v.UpdatedAt)
}

func (s collectionInfoMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type sourceManifestMUS struct{}

func (sourceManifestMUS) Marshal(v SourceManifest, bs []byte) (n int) {
	n = ord.String.Marshal(v.Collection, bs)
	n += ord.String.Marshal(v.Source, bs[n:])
	n += ord.String.Marshal(v.RunID, bs[n:])
	n += marshalStrings(v.Current, bs[n:])
	n += marshalStrings(v.Known, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return
}

func (sourceManifestMUS) Unmarshal(bs []byte) (v SourceManifest, n int, err error) {
	var n1 int
	if v.Collection, n1, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	n += n1
	if v.Source, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.RunID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Current, n1, err = unmarshalStrings(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Known, n1, err = unmarshalStrings(bs[n:]); err != nil {
		return
	}
	n += n1
	v.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (sourceManifestMUS) Size(v SourceManifest) (size int) {
	size = ord.String.Size(v.Collection)
	size += ord.String.Size(v.Source)
	size += ord.String.Size(v.RunID)
	size += sizeStrings(v.Current)
	size += sizeStrings(v.Known)
	return size + sizeTime(v.UpdatedAt)
}

func (s sourceManifestMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// Timestamps are stored as UTC unix microseconds; the zero time round-trips as zero.

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(timeToMicro(t), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micro, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	if micro == 0 {
		return time.Time{}, n, nil
	}
	return time.UnixMicro(micro).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(timeToMicro(t))
}

func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func marshalLength(length int, bs []byte) int {
	return varint.Int.Marshal(length, bs)
}

func unmarshalLength(bs []byte, minElemSize int) (int, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return 0, n, err
	}
	if length < 0 || length*minElemSize > len(bs)-n {
		return 0, n, ErrTruncatedRecord
	}
	return length, n, nil
}

func marshalVector(v []float32, bs []byte) (n int) {
	n = marshalLength(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return
}

func unmarshalVector(bs []byte) ([]float32, int, error) {
	length, n, err := unmarshalLength(bs, 4)
	if err != nil || length == 0 {
		return nil, n, err
	}
	v := make([]float32, length)
	for i := range v {
		f, n1, err := raw.Float32.Unmarshal(bs[n:])
		if err != nil {
			return nil, n, err
		}
		v[i] = f
		n += n1
	}
	return v, n, nil
}

func sizeVector(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return
}

func marshalStrings(v []string, bs []byte) (n int) {
	n = marshalLength(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return
}

func unmarshalStrings(bs []byte) ([]string, int, error) {
	length, n, err := unmarshalLength(bs, 1)
	if err != nil || length == 0 {
		return nil, n, err
	}
	v := make([]string, length)
	for i := range v {
		s, n1, err := ord.String.Unmarshal(bs[n:])
		if err != nil {
			return nil, n, err
		}
		v[i] = s
		n += n1
	}
	return v, n, nil
}

func sizeStrings(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return
}

// Map entries are written in sorted key order so equal maps encode identically.

func marshalStringMap(m map[string]string, bs []byte) (n int) {
	n = marshalLength(len(m), bs)
	for _, k := range sortedKeys(m) {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(m[k], bs[n:])
	}
	return
}

func unmarshalStringMap(bs []byte) (map[string]string, int, error) {
	length, n, err := unmarshalLength(bs, 2)
	if err != nil || length == 0 {
		return nil, n, err
	}
	m := make(map[string]string, length)
	for range length {
		k, n1, err := ord.String.Unmarshal(bs[n:])
		if err != nil {
			return nil, n, err
		}
		n += n1
		v, n1, err := ord.String.Unmarshal(bs[n:])
		if err != nil {
			return nil, n, err
		}
		n += n1
		m[k] = v
	}
	return m, n, nil
}

func sizeStringMap(m map[string]string) (size int) {
	size = varint.Int.Size(len(m))
	for k, v := range m {
		size += ord.String.Size(k) + ord.String.Size(v)
	}
	return
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
