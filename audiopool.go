package stagefile

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/stagefmt/stagefile/audiocodec"
	"github.com/stagefmt/stagefile/binio"
)

// AudioKey identifies an encoded clip by the SHA-1 of its bytes and their
// length. Keys are equal only when both match.
type AudioKey struct {
	Hash   [sha1.Size]byte
	Length int
}

// KeyOf returns the key of encoded bytes.
func KeyOf(encoded []byte) AudioKey {
	return AudioKey{Hash: sha1.Sum(encoded), Length: len(encoded)}
}

func (k AudioKey) String() string {
	return fmt.Sprintf("%x:%d", k.Hash, k.Length)
}

// IsZero reports whether k refers to no clip.
func (k AudioKey) IsZero() bool {
	return k == AudioKey{}
}

// AudioCodec encodes and decodes clips stored in an AudioPool.
type AudioCodec interface {
	Encode(samples []float32, channels, frequency int) ([]byte, audiocodec.StorageType, error)
	Decode(data []byte, channels, frequency int, st audiocodec.StorageType) ([]float32, error)
}

// AudioEntry is an encoded clip. Entries are never modified after being
// added to a pool.
type AudioEntry struct {
	Channels    int
	Frequency   int
	StorageType audiocodec.StorageType
	Data        []byte
}

var ErrAudioKey = errors.New("audio key not in pool")

// AudioPool deduplicates encoded clips by content. Decoded clips are cached
// per key.
//
// The pool is safe for concurrent use.
type AudioPool struct {
	// Codec encodes added clips and decodes retrieved ones. If nil,
	// audiocodec.Default is used.
	Codec AudioCodec

	mu      sync.Mutex
	entries map[AudioKey]*AudioEntry
	decoded map[AudioKey][]float32
}

// NewAudioPool returns an empty pool using the default codec.
func NewAudioPool() *AudioPool {
	return &AudioPool{
		entries: map[AudioKey]*AudioEntry{},
		decoded: map[AudioKey][]float32{},
	}
}

func (p *AudioPool) codec() AudioCodec {
	if p.Codec == nil {
		return audiocodec.Default
	}
	return p.Codec
}

func (p *AudioPool) init() {
	if p.entries == nil {
		p.entries = map[AudioKey]*AudioEntry{}
	}
	if p.decoded == nil {
		p.decoded = map[AudioKey][]float32{}
	}
}

// Add encodes samples and stores the result unless an identical encoding is
// already present. It returns the key of the encoding either way.
func (p *AudioPool) Add(samples []float32, channels, frequency int) (AudioKey, error) {
	data, st, err := p.codec().Encode(samples, channels, frequency)
	if err != nil {
		Logger().Warn("audio encode failed", "err", err)
		return AudioKey{}, err
	}
	key := KeyOf(data)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.init()
	if _, ok := p.entries[key]; !ok {
		p.entries[key] = &AudioEntry{
			Channels:    channels,
			Frequency:   frequency,
			StorageType: st,
			Data:        data,
		}
	}
	return key, nil
}

// Insert stores an already encoded entry under its computed key.
func (p *AudioPool) Insert(e AudioEntry) AudioKey {
	key := KeyOf(e.Data)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.init()
	if _, ok := p.entries[key]; !ok {
		p.entries[key] = &e
	}
	return key
}

// Entry returns the encoded entry for key.
func (p *AudioPool) Entry(key AudioKey) (AudioEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[key]
	if !ok {
		return AudioEntry{}, false
	}
	return *e, true
}

// Contains reports whether key is in the pool.
func (p *AudioPool) Contains(key AudioKey) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[key]
	return ok
}

// Len returns the number of entries.
func (p *AudioPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Keys returns every key in the pool.
func (p *AudioPool) Keys() []AudioKey {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]AudioKey, 0, len(p.entries))
	for k := range p.entries {
		keys = append(keys, k)
	}
	return keys
}

// Retrieve returns the decoded samples of key. The first decode of a key is
// cached; the returned slice must not be modified.
func (p *AudioPool) Retrieve(key AudioKey) (audiocodec.Clip, error) {
	p.mu.Lock()
	e, ok := p.entries[key]
	samples, cached := p.decoded[key]
	p.mu.Unlock()
	if !ok {
		return audiocodec.Clip{}, fmt.Errorf("%w: %s", ErrAudioKey, key)
	}
	clip := audiocodec.Clip{Channels: e.Channels, Frequency: e.Frequency}
	if cached {
		clip.Samples = samples
		return clip, nil
	}

	samples, err := p.codec().Decode(e.Data, e.Channels, e.Frequency, e.StorageType)
	if err != nil {
		Logger().Warn("audio decode failed", "key", key.String(), "err", err)
		return audiocodec.Clip{}, err
	}

	p.mu.Lock()
	p.init()
	p.decoded[key] = samples
	p.mu.Unlock()
	clip.Samples = samples
	return clip, nil
}

// RetrieveAsync decodes key on a background job.
func (p *AudioPool) RetrieveAsync(key AudioKey) *audiocodec.Job {
	return audiocodec.Start(func() (audiocodec.Clip, error) {
		return p.Retrieve(key)
	})
}

// Prune removes every entry whose key is not in live.
func (p *AudioPool) Prune(live map[AudioKey]struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k := range p.entries {
		if _, ok := live[k]; !ok {
			delete(p.entries, k)
			delete(p.decoded, k)
		}
	}
}

// DeepCopy returns a pool with the same codec and its own entry and cache
// maps. Entries and decoded samples are immutable and shared.
func (p *AudioPool) DeepCopy() *AudioPool {
	if p == nil {
		return nil
	}
	c := NewAudioPool()
	c.Codec = p.Codec
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, e := range p.entries {
		c.entries[k] = e
	}
	for k, samples := range p.decoded {
		c.decoded[k] = samples
	}
	return c
}

////////////////////////////////////////////////////////////////

type audioEntryRecord struct {
	Hash        string                 `json:"hash"`
	Length      int                    `json:"length"`
	Channels    int                    `json:"channels"`
	Frequency   int                    `json:"frequency"`
	StorageType audiocodec.StorageType `json:"storageType"`
	Data        *binio.Range           `json:"data,omitempty"`
}

func encodeAudioKey(k AudioKey) (string, int) {
	return hex.EncodeToString(k.Hash[:]), k.Length
}

func decodeAudioKey(hash string, length int) (k AudioKey, err error) {
	if hash == "" && length == 0 {
		return k, nil
	}
	b, err := hex.DecodeString(hash)
	if err != nil || len(b) != sha1.Size {
		return k, fmt.Errorf("%w: audio key %q", binio.ErrCorruptContainer, hash)
	}
	copy(k.Hash[:], b)
	k.Length = length
	return k, nil
}

func encodeAudioPool(p *AudioPool, w *binio.Writer) (recs []audioEntryRecord, err error) {
	if p == nil {
		return nil, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	recs = make([]audioEntryRecord, 0, len(p.entries))
	for k, e := range p.entries {
		rec := audioEntryRecord{
			Channels:    e.Channels,
			Frequency:   e.Frequency,
			StorageType: e.StorageType,
		}
		rec.Hash, rec.Length = encodeAudioKey(k)
		if rec.Data, err = w.WriteBytes(e.Data); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	// Stable output for identical pools.
	sortAudioRecords(recs)
	return recs, nil
}

// decodeAudioPool rebuilds a pool. An entry whose bytes do not match its key
// is dropped and reported as a warning.
func decodeAudioPool(recs []audioEntryRecord, r *binio.Reader) (p *AudioPool, warn []error, err error) {
	p = NewAudioPool()
	for i := range recs {
		rec := &recs[i]
		key, err := decodeAudioKey(rec.Hash, rec.Length)
		if err != nil {
			return nil, warn, err
		}
		data, err := r.ReadBytes(rec.Data)
		if err != nil {
			return nil, warn, fmt.Errorf("audio entry %d: %w", i, err)
		}
		if KeyOf(data) != key {
			warn = append(warn, fmt.Errorf("audio entry %d: content does not match key %s", i, key))
			continue
		}
		p.entries[key] = &AudioEntry{
			Channels:    rec.Channels,
			Frequency:   rec.Frequency,
			StorageType: rec.StorageType,
			Data:        data,
		}
	}
	return p, warn, nil
}

func sortAudioRecords(recs []audioEntryRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Hash != recs[j].Hash {
			return recs[i].Hash < recs[j].Hash
		}
		return recs[i].Length < recs[j].Length
	})
}
