// =============================================================================
// pkg/store/codec.go - Result Value Codec
// =============================================================================
//
// Stored values are protobuf wire format, hand encoded with protowire, then
// zstd compressed. There are no generated message types; field numbers are
// fixed below and must never be reused.
//
// SERIES ENCODING:
//
//	field 1  packed zigzag varints: second deltas (first entry is absolute)
//	field 2  packed zigzag varints: counts, aligned with field 1
//
// Seconds are written in ascending order, so deltas are small and positive.
//
// KEY LAYOUT (components joined by a NUL byte, shown here as /):
//
//	run/<run>/summary
//	run/<run>/pv/<client>/<pv>
//
// PV and directory names may contain ':' but never NUL, so every key splits
// back into exactly one (run, client, pv).
//
// =============================================================================

package store

import (
	"math"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/analysis"
	"github.com/karthikiyer56/epics-stress-test-analysis/stress-test-analysis/pkg/types"
)

// =============================================================================
// Keys
// =============================================================================

const keySep = "\x00"

// SummaryKey returns the key of a run summary.
func SummaryKey(run string) []byte {
	return joinKey("run", run, "summary")
}

// ChannelKey returns the key of one client PV series.
func ChannelKey(run, client, pv string) []byte {
	return joinKey("run", run, "pv", client, pv)
}

func joinKey(parts ...string) []byte {
	return []byte(strings.Join(parts, keySep))
}

// =============================================================================
// Codec
// =============================================================================

// Codec encodes and compresses stored values. A Codec is safe for concurrent
// use; zstd EncodeAll and DecodeAll are.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCodec creates a codec.
func NewCodec() (*Codec, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, errors.Wrap(err, "failed to create zstd decoder")
	}
	return &Codec{enc: enc, dec: dec}, nil
}

// Close releases the zstd encoder and decoder.
func (c *Codec) Close() {
	c.enc.Close()
	c.dec.Close()
}

// EncodeRunSummary returns the stored form of a run summary.
func (c *Codec) EncodeRunSummary(s analysis.RunSummary) []byte {
	return c.enc.EncodeAll(marshalRunSummary(s), nil)
}

// DecodeRunSummary parses a value written by EncodeRunSummary.
func (c *Codec) DecodeRunSummary(value []byte) (analysis.RunSummary, error) {
	raw, err := c.dec.DecodeAll(value, nil)
	if err != nil {
		return analysis.RunSummary{}, errors.Wrap(err, "failed to decompress run summary")
	}
	s, err := unmarshalRunSummary(raw)
	return s, errors.Wrap(err, "failed to decode run summary")
}

// EncodeChannelSeries returns the stored form of a PV series.
func (c *Codec) EncodeChannelSeries(s analysis.ChannelSeries) []byte {
	return c.enc.EncodeAll(marshalChannelSeries(s), nil)
}

// DecodeChannelSeries parses a value written by EncodeChannelSeries.
func (c *Codec) DecodeChannelSeries(value []byte) (analysis.ChannelSeries, error) {
	raw, err := c.dec.DecodeAll(value, nil)
	if err != nil {
		return analysis.ChannelSeries{}, errors.Wrap(err, "failed to decompress channel series")
	}
	s, err := unmarshalChannelSeries(raw)
	return s, errors.Wrap(err, "failed to decode channel series")
}

// Entry is one key/value pair ready to be written.
type Entry struct {
	Key   []byte
	Value []byte
}

// RunEntries returns every entry stored for an analysed run: the summary and
// one series per client PV.
func (c *Codec) RunEntries(st *analysis.StressTest) []Entry {
	entries := []Entry{{Key: SummaryKey(st.Name), Value: c.EncodeRunSummary(st.Summary())}}
	for _, name := range st.ClientNames() {
		client := st.Clients[name]
		for _, pvName := range client.PVNames() {
			series := client.ChannelSeries(st.Name, client.PVs[pvName])
			entries = append(entries, Entry{
				Key:   ChannelKey(st.Name, name, pvName),
				Value: c.EncodeChannelSeries(series),
			})
		}
	}
	return entries
}

// =============================================================================
// Wire Helpers
// =============================================================================

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendInt(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

func appendFloat(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// field is one decoded field. Exactly one of v (varint, fixed64) or bytes
// (length delimited) is meaningful, depending on typ.
type field struct {
	num   protowire.Number
	typ   protowire.Type
	v     uint64
	bytes []byte
}

func (f field) int() int64 {
	return protowire.DecodeZigZag(f.v)
}

func (f field) float() float64 {
	return math.Float64frombits(f.v)
}

// eachField walks the top level fields of a message. Unknown wire types are
// skipped.
func eachField(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.v, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// consumePacked decodes a packed run of zigzag varints.
func consumePacked(b []byte) ([]int64, error) {
	var out []int64
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, protowire.DecodeZigZag(v))
		b = b[n:]
	}
	return out, nil
}

// =============================================================================
// Series
// =============================================================================

func marshalSeries(s analysis.Series) []byte {
	var secs, counts []byte
	var prior int64
	for _, sec := range s.Seconds() {
		secs = protowire.AppendVarint(secs, protowire.EncodeZigZag(sec-prior))
		counts = protowire.AppendVarint(counts, protowire.EncodeZigZag(s[sec]))
		prior = sec
	}

	var b []byte
	if len(secs) > 0 {
		b = appendMessage(b, 1, secs)
		b = appendMessage(b, 2, counts)
	}
	return b
}

func unmarshalSeries(b []byte) (analysis.Series, error) {
	var deltas, counts []int64
	err := eachField(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			deltas, err = consumePacked(f.bytes)
		case 2:
			counts, err = consumePacked(f.bytes)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(deltas) != len(counts) {
		return nil, errors.Errorf("series has %d seconds but %d counts", len(deltas), len(counts))
	}

	s := make(analysis.Series, len(deltas))
	var sec int64
	for i, d := range deltas {
		sec += d
		s[sec] = counts[i]
	}
	return s, nil
}

// =============================================================================
// Summaries
// =============================================================================

func marshalClientSummary(s analysis.ClientSummary) []byte {
	var b []byte
	b = appendString(b, 1, s.Name)
	b = appendString(b, 2, s.HostName)
	b = appendString(b, 3, string(s.Role))
	b = appendString(b, 4, string(s.FileType))
	b = appendInt(b, 5, int64(s.NumPVs))
	b = appendInt(b, 6, s.NumSamples)
	b = appendInt(b, 7, s.NumMissed)
	b = appendInt(b, 8, s.NumTimeouts)
	b = appendFloat(b, 9, s.StartTime)
	b = appendFloat(b, 10, s.EndTime)
	return b
}

func unmarshalClientSummary(b []byte) (analysis.ClientSummary, error) {
	var s analysis.ClientSummary
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			s.Name = string(f.bytes)
		case 2:
			s.HostName = string(f.bytes)
		case 3:
			s.Role = types.Role(f.bytes)
		case 4:
			s.FileType = types.FileType(f.bytes)
		case 5:
			s.NumPVs = int(f.int())
		case 6:
			s.NumSamples = f.int()
		case 7:
			s.NumMissed = f.int()
		case 8:
			s.NumTimeouts = f.int()
		case 9:
			s.StartTime = f.float()
		case 10:
			s.EndTime = f.float()
		}
		return nil
	})
	return s, err
}

func marshalRunSummary(s analysis.RunSummary) []byte {
	var b []byte
	b = appendString(b, 1, s.Name)
	b = appendString(b, 2, s.Path)
	b = appendInt(b, 3, int64(s.NumFiles))
	b = appendInt(b, 4, int64(s.NumPVs))
	b = appendInt(b, 5, s.NumSamples)
	b = appendInt(b, 6, s.NumMissed)
	b = appendInt(b, 7, s.NumTimeouts)
	b = appendFloat(b, 8, s.StartTime)
	b = appendFloat(b, 9, s.EndTime)
	for _, c := range s.Clients {
		b = appendMessage(b, 10, marshalClientSummary(c))
	}
	for _, c := range s.Servers {
		b = appendMessage(b, 11, marshalClientSummary(c))
	}
	return b
}

func unmarshalRunSummary(b []byte) (analysis.RunSummary, error) {
	s := analysis.RunSummary{
		Clients: []analysis.ClientSummary{},
		Servers: []analysis.ClientSummary{},
	}
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			s.Name = string(f.bytes)
		case 2:
			s.Path = string(f.bytes)
		case 3:
			s.NumFiles = int(f.int())
		case 4:
			s.NumPVs = int(f.int())
		case 5:
			s.NumSamples = f.int()
		case 6:
			s.NumMissed = f.int()
		case 7:
			s.NumTimeouts = f.int()
		case 8:
			s.StartTime = f.float()
		case 9:
			s.EndTime = f.float()
		case 10, 11:
			c, err := unmarshalClientSummary(f.bytes)
			if err != nil {
				return err
			}
			if f.num == 10 {
				s.Clients = append(s.Clients, c)
			} else {
				s.Servers = append(s.Servers, c)
			}
		}
		return nil
	})
	return s, err
}

func marshalChannelSeries(s analysis.ChannelSeries) []byte {
	var b []byte
	b = appendString(b, 1, s.Run)
	b = appendString(b, 2, s.Client)
	b = appendString(b, 3, s.PV)
	b = appendInt(b, 4, s.NumSamples)
	b = appendInt(b, 5, s.NumMissed)
	b = appendInt(b, 6, s.NumTimeouts)
	b = appendFloat(b, 7, s.StartTime)
	b = appendFloat(b, 8, s.EndTime)
	b = appendMessage(b, 9, marshalSeries(s.Rate))
	b = appendMessage(b, 10, marshalSeries(s.MissRate))
	b = appendMessage(b, 11, marshalSeries(s.TimeoutRate))
	return b
}

func unmarshalChannelSeries(b []byte) (analysis.ChannelSeries, error) {
	s := analysis.ChannelSeries{
		Rate:        analysis.Series{},
		MissRate:    analysis.Series{},
		TimeoutRate: analysis.Series{},
	}
	err := eachField(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			s.Run = string(f.bytes)
		case 2:
			s.Client = string(f.bytes)
		case 3:
			s.PV = string(f.bytes)
		case 4:
			s.NumSamples = f.int()
		case 5:
			s.NumMissed = f.int()
		case 6:
			s.NumTimeouts = f.int()
		case 7:
			s.StartTime = f.float()
		case 8:
			s.EndTime = f.float()
		case 9:
			s.Rate, err = unmarshalSeries(f.bytes)
		case 10:
			s.MissRate, err = unmarshalSeries(f.bytes)
		case 11:
			s.TimeoutRate, err = unmarshalSeries(f.bytes)
		}
		return err
	})
	return s, err
}
