// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package archive saves and loads snapshots of particle models in a bbolt database.
package archive

import (
	"bytes"
	"context"
	"encoding/binary"
	"strings"
	"time"

	"github.com/gx-org/prtcl/build/fmterr"
	"github.com/gx-org/prtcl/build/ir"
	"github.com/gx-org/prtcl/build/ir/irkind"
	"github.com/gx-org/prtcl/internal/ctxlog"
	"github.com/gx-org/prtcl/rt/store"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const bucketSnapshots = "snapshots"

// Keys of a snapshot bucket.
const (
	keyName   = "name"
	keyTime   = "time"
	keyDims   = "dims"
	keyGlobal = "global"
	keyGroups = "groups"
	keyType   = "type"
	keySize   = "size"
	keyTags   = "tags"
	keyFields = "fields"
	keyMeta   = "meta"
	keyData   = "data"
)

const (
	tagSep      = "\x00"
	openTimeout = time.Second
)

// Snapshot describes a model saved in an archive.
type Snapshot struct {
	Seq  uint64
	Name string
	Time time.Time
}

// Archive stores model snapshots.
type Archive struct {
	db *bolt.DB
}

// Open an archive, creating it if it does not exist.
func Open(path string) (*Archive, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open archive %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSnapshots))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Archive{db: db}, nil
}

// Close the archive.
func (a *Archive) Close() error {
	return a.db.Close()
}

func marshalSeq(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, seq)
}

func unmarshalSeq(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

func marshalInt(i int) []byte {
	return binary.LittleEndian.AppendUint64(nil, uint64(i))
}

func unmarshalInt(b []byte) (int, error) {
	if len(b) != 8 {
		return 0, errors.Errorf("invalid integer encoding of %d bytes", len(b))
	}
	return int(binary.LittleEndian.Uint64(b)), nil
}

func marshalField(f ir.Field) []byte {
	meta := []byte{byte(f.Kind), byte(f.Type), byte(f.Shape.Rank())}
	for _, ext := range f.Shape.Extents() {
		meta = binary.LittleEndian.AppendUint64(meta, uint64(ext))
	}
	return meta
}

func unmarshalField(name string, meta []byte) (ir.Field, error) {
	if len(meta) < 3 || len(meta) != 3+8*int(meta[2]) {
		return ir.Field{}, errors.Errorf("invalid metadata for field %s", name)
	}
	exts := make([]int, meta[2])
	for i := range exts {
		exts[i] = int(binary.LittleEndian.Uint64(meta[3+8*i:]))
	}
	shape, err := ir.NewShape(exts...)
	if err != nil {
		return ir.Field{}, err
	}
	return ir.NewField(irkind.Kind(meta[0]), irkind.Type(meta[1]), shape, name)
}

func marshalData(t store.Tensor) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch t.Field().Type {
	case irkind.Real:
		var data []float64
		if data, err = store.Slice[float64](t); err == nil {
			err = binary.Write(&buf, binary.LittleEndian, data)
		}
	case irkind.Index:
		var data []int64
		if data, err = store.Slice[int64](t); err == nil {
			err = binary.Write(&buf, binary.LittleEndian, data)
		}
	case irkind.Boolean:
		var data []bool
		if data, err = store.Slice[bool](t); err == nil {
			err = binary.Write(&buf, binary.LittleEndian, data)
		}
	default:
		err = fmterr.Errorf(fmterr.InvalidEnumerator, "cannot archive a field of type %s", t.Field().Type)
	}
	return buf.Bytes(), err
}

func unmarshalData(t store.Tensor, b []byte) error {
	r := bytes.NewReader(b)
	switch t.Field().Type {
	case irkind.Real:
		data, err := store.Slice[float64](t)
		if err != nil {
			return err
		}
		return binary.Read(r, binary.LittleEndian, data)
	case irkind.Index:
		data, err := store.Slice[int64](t)
		if err != nil {
			return err
		}
		return binary.Read(r, binary.LittleEndian, data)
	case irkind.Boolean:
		data, err := store.Slice[bool](t)
		if err != nil {
			return err
		}
		return binary.Read(r, binary.LittleEndian, data)
	}
	return fmterr.Errorf(fmterr.InvalidEnumerator, "cannot restore a field of type %s", t.Field().Type)
}

func putFields(b *bolt.Bucket, tensors []store.Tensor) error {
	for _, t := range tensors {
		fb, err := b.CreateBucket([]byte(t.Field().Name))
		if err != nil {
			return err
		}
		data, err := marshalData(t)
		if err != nil {
			return err
		}
		if err := fb.Put([]byte(keyMeta), marshalField(t.Field())); err != nil {
			return err
		}
		if err := fb.Put([]byte(keyData), data); err != nil {
			return err
		}
	}
	return nil
}

// Save a snapshot of a model. It returns the sequence number of the snapshot.
func (a *Archive) Save(ctx context.Context, name string, m *store.Model) (uint64, error) {
	var seq uint64
	err := a.db.Update(func(tx *bolt.Tx) error {
		snapshots := tx.Bucket([]byte(bucketSnapshots))
		var err error
		if seq, err = snapshots.NextSequence(); err != nil {
			return err
		}
		sb, err := snapshots.CreateBucket(marshalSeq(seq))
		if err != nil {
			return err
		}
		now, err := time.Now().UTC().MarshalBinary()
		if err != nil {
			return err
		}
		for k, v := range map[string][]byte{
			keyName: []byte(name),
			keyTime: now,
			keyDims: marshalInt(m.Dims()),
		} {
			if err := sb.Put([]byte(k), v); err != nil {
				return err
			}
		}
		global, err := sb.CreateBucket([]byte(keyGlobal))
		if err != nil {
			return err
		}
		if err := putFields(global, m.Globals()); err != nil {
			return err
		}
		groups, err := sb.CreateBucket([]byte(keyGroups))
		if err != nil {
			return err
		}
		for i, g := range m.Groups() {
			// Groups are keyed by their index to restore them in order.
			gb, err := groups.CreateBucket(marshalSeq(uint64(i)))
			if err != nil {
				return err
			}
			for k, v := range map[string][]byte{
				keyName: []byte(g.Name()),
				keyType: []byte(g.Type()),
				keySize: marshalInt(g.Size()),
				keyTags: []byte(strings.Join(g.Tags(), tagSep)),
			} {
				if err := gb.Put([]byte(k), v); err != nil {
					return err
				}
			}
			fb, err := gb.CreateBucket([]byte(keyFields))
			if err != nil {
				return err
			}
			if err := putFields(fb, g.Fields()); err != nil {
				return errors.Wrapf(err, "group %s", g.Name())
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	ctxlog.FromContext(ctx).Debug("model saved", "snapshot", seq, "name", name, "groups", len(m.Groups()), "particles", m.ParticleCount())
	return seq, nil
}

type adder func(ir.Field) (store.Tensor, error)

func loadFields(b *bolt.Bucket, add adder) error {
	return b.ForEachBucket(func(k []byte) error {
		fb := b.Bucket(k)
		f, err := unmarshalField(string(k), fb.Get([]byte(keyMeta)))
		if err != nil {
			return err
		}
		t, err := add(f)
		if err != nil {
			return err
		}
		return unmarshalData(t, fb.Get([]byte(keyData)))
	})
}

// Load a model from a snapshot.
func (a *Archive) Load(ctx context.Context, seq uint64) (*store.Model, error) {
	var m *store.Model
	err := a.db.View(func(tx *bolt.Tx) error {
		sb := tx.Bucket([]byte(bucketSnapshots)).Bucket(marshalSeq(seq))
		if sb == nil {
			return errors.Errorf("snapshot %d not found", seq)
		}
		dims, err := unmarshalInt(sb.Get([]byte(keyDims)))
		if err != nil {
			return err
		}
		if m, err = store.NewModel(dims); err != nil {
			return err
		}
		if err := loadFields(sb.Bucket([]byte(keyGlobal)), m.AddGlobal); err != nil {
			return err
		}
		groups := sb.Bucket([]byte(keyGroups))
		return groups.ForEachBucket(func(k []byte) error {
			gb := groups.Bucket(k)
			g, err := m.AddGroup(string(gb.Get([]byte(keyName))), string(gb.Get([]byte(keyType))))
			if err != nil {
				return err
			}
			size, err := unmarshalInt(gb.Get([]byte(keySize)))
			if err != nil {
				return err
			}
			if err := g.Resize(size); err != nil {
				return err
			}
			if tags := string(gb.Get([]byte(keyTags))); tags != "" {
				for _, tag := range strings.Split(tags, tagSep) {
					g.AddTag(tag)
				}
			}
			return loadFields(gb.Bucket([]byte(keyFields)), g.Add)
		})
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "cannot load snapshot %d", seq)
	}
	ctxlog.FromContext(ctx).Debug("model loaded", "snapshot", seq, "groups", len(m.Groups()), "particles", m.ParticleCount())
	return m, nil
}

// Snapshots returns all the snapshots of the archive, ordered by sequence number.
func (a *Archive) Snapshots() ([]Snapshot, error) {
	var snapshots []Snapshot
	err := a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketSnapshots))
		return b.ForEachBucket(func(k []byte) error {
			sb := b.Bucket(k)
			s := Snapshot{Seq: unmarshalSeq(k), Name: string(sb.Get([]byte(keyName)))}
			if err := s.Time.UnmarshalBinary(sb.Get([]byte(keyTime))); err != nil {
				return err
			}
			snapshots = append(snapshots, s)
			return nil
		})
	})
	return snapshots, err
}

// Latest returns the sequence number of the last snapshot.
func (a *Archive) Latest() (uint64, bool, error) {
	var seq uint64
	var ok bool
	err := a.db.View(func(tx *bolt.Tx) error {
		k, _ := tx.Bucket([]byte(bucketSnapshots)).Cursor().Last()
		if k != nil {
			seq, ok = unmarshalSeq(k), true
		}
		return nil
	})
	return seq, ok, err
}
