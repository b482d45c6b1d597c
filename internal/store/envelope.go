/*
file: lucidkv/internal/store/envelope.go

Binary envelope used by the persistent backend to store an Item as an
opaque bbolt value (spec.md §4.2: "structured stored values are
serialized into a self-describing binary envelope"). The format is a
one-byte kind tag, an 8-byte big-endian expire-at unix-millis (0 = no
TTL), followed by a kind-specific payload of length-prefixed byte
strings. JSON payloads are encoded with encoding/json, itself
self-describing, rather than reinventing a tree codec.
*/
package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

func encodeItem(it *Item) ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = append(buf, byte(it.Kind))
	var expMillis int64
	if it.HasTTL() {
		expMillis = it.Expire.UnixMilli()
	}
	var millisBuf [8]byte
	binary.BigEndian.PutUint64(millisBuf[:], uint64(expMillis))
	buf = append(buf, millisBuf[:]...)

	switch it.Kind {
	case KindString:
		buf = appendChunk(buf, it.Str)

	case KindList:
		buf = appendUvarint(buf, uint64(len(it.List)))
		for _, e := range it.List {
			buf = appendChunk(buf, e)
		}

	case KindHash:
		fields := it.Hash.Fields()
		buf = appendUvarint(buf, uint64(len(fields)))
		for _, f := range fields {
			v, _ := it.Hash.Get(f)
			buf = appendChunk(buf, []byte(f))
			buf = appendChunk(buf, v)
		}

	case KindSet:
		buf = appendUvarint(buf, uint64(len(it.Set)))
		for m := range it.Set {
			buf = appendChunk(buf, []byte(m))
		}

	case KindZSet:
		all := it.ZSet.All()
		buf = appendUvarint(buf, uint64(len(all)))
		for _, m := range all {
			buf = appendChunk(buf, []byte(m.Member))
			var scoreBuf [8]byte
			binary.BigEndian.PutUint64(scoreBuf[:], float64Bits(m.Score))
			buf = append(buf, scoreBuf[:]...)
		}

	case KindJSON:
		data, err := json.Marshal(it.JSON)
		if err != nil {
			return nil, fmt.Errorf("envelope: encode json: %w", err)
		}
		buf = appendChunk(buf, data)

	default:
		return nil, fmt.Errorf("envelope: unknown kind %d", it.Kind)
	}
	return buf, nil
}

func decodeItem(data []byte) (*Item, error) {
	if len(data) < 9 {
		return nil, fmt.Errorf("envelope: truncated header")
	}
	kind := Kind(data[0])
	expMillis := int64(binary.BigEndian.Uint64(data[1:9]))
	rest := data[9:]

	it := &Item{Kind: kind}
	if expMillis != 0 {
		it.Expire = millisToTime(expMillis)
	}

	var err error
	switch kind {
	case KindString:
		it.Str, rest, err = readChunk(rest)

	case KindList:
		var n uint64
		n, rest, err = readUvarint(rest)
		if err != nil {
			break
		}
		it.List = make([][]byte, 0, n)
		for i := uint64(0); i < n; i++ {
			var chunk []byte
			chunk, rest, err = readChunk(rest)
			if err != nil {
				break
			}
			it.List = append(it.List, chunk)
		}

	case KindHash:
		var n uint64
		n, rest, err = readUvarint(rest)
		if err != nil {
			break
		}
		h := NewOrderedHash()
		for i := uint64(0); i < n; i++ {
			var field, val []byte
			field, rest, err = readChunk(rest)
			if err != nil {
				break
			}
			val, rest, err = readChunk(rest)
			if err != nil {
				break
			}
			h.Set(string(field), val)
		}
		it.Hash = h

	case KindSet:
		var n uint64
		n, rest, err = readUvarint(rest)
		if err != nil {
			break
		}
		s := make(map[string]struct{}, n)
		for i := uint64(0); i < n; i++ {
			var m []byte
			m, rest, err = readChunk(rest)
			if err != nil {
				break
			}
			s[string(m)] = struct{}{}
		}
		it.Set = s

	case KindZSet:
		var n uint64
		n, rest, err = readUvarint(rest)
		if err != nil {
			break
		}
		z := NewSortedSet()
		for i := uint64(0); i < n; i++ {
			var m []byte
			m, rest, err = readChunk(rest)
			if err != nil {
				break
			}
			if len(rest) < 8 {
				err = fmt.Errorf("envelope: truncated zset score")
				break
			}
			score := bitsToFloat64(binary.BigEndian.Uint64(rest[:8]))
			rest = rest[8:]
			z.Add(string(m), score)
		}
		it.ZSet = z

	case KindJSON:
		var raw []byte
		raw, rest, err = readChunk(rest)
		if err == nil {
			err = json.Unmarshal(raw, &it.JSON)
		}

	default:
		return nil, fmt.Errorf("envelope: unknown kind %d", kind)
	}
	if err != nil {
		return nil, err
	}
	return it, nil
}

func appendChunk(buf, data []byte) []byte {
	buf = appendUvarint(buf, uint64(len(data)))
	return append(buf, data...)
}

func readChunk(data []byte) ([]byte, []byte, error) {
	n, rest, err := readUvarint(data)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < n {
		return nil, nil, fmt.Errorf("envelope: truncated chunk")
	}
	return append([]byte(nil), rest[:n]...), rest[n:], nil
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func readUvarint(data []byte) (uint64, []byte, error) {
	v, n := binary.Uvarint(data)
	if n <= 0 {
		return 0, nil, fmt.Errorf("envelope: invalid varint")
	}
	return v, data[n:], nil
}
