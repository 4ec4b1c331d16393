// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

// Package streamjson decodes record arrays incrementally so batch files far
// larger than memory can be loaded. Only one record is materialized at a
// time; the surrounding array or object structure is walked token by token.
package streamjson

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// ErrStop signals early termination from a record callback. Each returns
// nil when the callback stops iteration this way.
var ErrStop = errors.New("streamjson: stop iteration")

// Each streams every record of type T out of r, invoking fn per record.
// The input may be a top-level JSON array of records, or an object whose
// (possibly nested) values contain record arrays; all arrays found during
// the walk are streamed in document order.
func Each[T any](r io.Reader, fn func(T) error) error {
	dec := json.NewDecoder(bufio.NewReaderSize(r, 64<<10))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read opening token: %w", err)
	}
	switch delim := tok.(type) {
	case json.Delim:
		var walkErr error
		switch delim {
		case '[':
			walkErr = streamArray(dec, fn)
		case '{':
			walkErr = walkObject(dec, fn)
		default:
			return fmt.Errorf("unexpected opening delimiter %q", delim)
		}
		if errors.Is(walkErr, ErrStop) {
			return nil
		}
		return walkErr
	default:
		return fmt.Errorf("input is not a JSON array or object (leading token %v)", tok)
	}
}

// EachFile is Each over the contents of path.
func EachFile[T any](path string, fn func(T) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open batch file: %w", err)
	}
	defer f.Close()
	if err := Each(f, fn); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// streamArray decodes elements one at a time. The opening '[' has already
// been consumed.
func streamArray[T any](dec *json.Decoder, fn func(T) error) error {
	for dec.More() {
		var v T
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	// Closing ']'.
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("read array close: %w", err)
	}
	return nil
}

// walkObject visits every member of an object whose opening '{' has been
// consumed, streaming arrays and descending into nested objects. Scalar
// members are consumed and ignored.
func walkObject[T any](dec *json.Decoder, fn func(T) error) error {
	for dec.More() {
		// Member key.
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("read object key: %w", err)
		}
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read object value: %w", err)
		}
		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '[':
				if err := streamArray(dec, fn); err != nil {
					return err
				}
			case '{':
				if err := walkObject(dec, fn); err != nil {
					return err
				}
			}
		}
		// Scalars are fully consumed by Token.
	}
	// Closing '}'.
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("read object close: %w", err)
	}
	return nil
}
