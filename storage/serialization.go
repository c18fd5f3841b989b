// Copyright 2025 Poiesic Systems
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

package storage

import (
	"encoding/json"
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
)

var (
	vectorMUS = ord.NewSliceSer[float32](raw.Float32)
	stringMUS = ord.String
)

// MarshalVector serializes an embedding to bytes.
func MarshalVector(v []float32) []byte {
	buf := make([]byte, vectorMUS.Size(v))
	vectorMUS.Marshal(v, buf)
	return buf
}

// UnmarshalVector deserializes an embedding from bytes.
// Trailing or missing bytes are reported as ErrTruncatedData.
func UnmarshalVector(data []byte) (v []float32, err error) {
	defer recoverSerialization(&err)
	v, n, err := vectorMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, ErrTruncatedData)
	}
	return v, nil
}

// MarshalString serializes a string to bytes.
func MarshalString(s string) []byte {
	buf := make([]byte, stringMUS.Size(s))
	stringMUS.Marshal(s, buf)
	return buf
}

// UnmarshalString deserializes a string from bytes.
func UnmarshalString(data []byte) (s string, err error) {
	defer recoverSerialization(&err)
	s, n, err := stringMUS.Unmarshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return "", fmt.Errorf("%w: %w", ErrSerializationFailed, ErrTruncatedData)
	}
	return s, nil
}

// MarshalVectorRecord serializes a VectorRecord to bytes.
// Layout: id, values, metadata as a JSON document.
func MarshalVectorRecord(record *VectorRecord) ([]byte, error) {
	md, err := json.Marshal(record.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %w", ErrSerializationFailed, err)
	}
	mds := string(md)

	size := stringMUS.Size(record.ID) + vectorMUS.Size(record.Values) + stringMUS.Size(mds)
	buf := make([]byte, size)
	n := stringMUS.Marshal(record.ID, buf)
	n += vectorMUS.Marshal(record.Values, buf[n:])
	stringMUS.Marshal(mds, buf[n:])
	return buf, nil
}

// UnmarshalVectorRecord deserializes a VectorRecord from bytes.
func UnmarshalVectorRecord(data []byte) (record *VectorRecord, err error) {
	defer recoverSerialization(&err)

	id, n, err := stringMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %w", ErrSerializationFailed, err)
	}
	values, n1, err := vectorMUS.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: values: %w", ErrSerializationFailed, err)
	}
	n += n1
	mds, n2, err := stringMUS.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %w", ErrSerializationFailed, err)
	}
	if n+n2 != len(data) {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, ErrTruncatedData)
	}

	record = &VectorRecord{ID: id, Values: values}
	if mds != "" && mds != "null" {
		if err := json.Unmarshal([]byte(mds), &record.Metadata); err != nil {
			return nil, fmt.Errorf("%w: metadata: %w", ErrSerializationFailed, err)
		}
	}
	return record, nil
}

// recoverSerialization converts a decoder panic on malformed input into an error.
func recoverSerialization(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrSerializationFailed, r)
	}
}
