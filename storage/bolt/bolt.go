/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package bolt is a storage.Storage that uses bbolt.
//
// Each session gets a bucket, and each fact is a JSON value keyed by
// its external id.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/Comcast/rete/storage"

	bolt "go.etcd.io/bbolt"
)

// NotOpen is returned when the Storage hasn't been opened.
var NotOpen = errors.New("storage not open")

func JS(x interface{}) string {
	js, err := json.Marshal(&x)
	if err != nil {
		panic(err)
	}
	return string(js)
}

type Storage struct {
	Debug    bool
	filename string
	db       *bolt.DB

	// Timeout is how long Open waits for the file lock.
	Timeout time.Duration
}

func NewStorage(filename string) (*Storage, error) {
	return &Storage{
		filename: filename,
		Timeout:  time.Second,
	}, nil
}

func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: s.Timeout,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Storage) logf(format string, args ...interface{}) {
	if s.Debug {
		log.Printf("BoltDB Storage."+format, args...)
	}
}

func (s *Storage) MakeSession(ctx context.Context, sid string) error {
	s.logf("MakeSession %s", sid)
	if s.db == nil {
		return NotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sid))
		return err
	})
}

func (s *Storage) RemSession(ctx context.Context, sid string) error {
	s.logf("RemSession %s", sid)
	if s.db == nil {
		return NotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(sid))
		if err == bolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
}

// Sessions returns the ids of the stored sessions.
func (s *Storage) Sessions(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, NotOpen
	}
	var acc []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			acc = append(acc, string(name))
			return nil
		})
	})
	return acc, err
}

func (s *Storage) GetSession(ctx context.Context, sid string) ([]*storage.FactState, error) {
	s.logf("GetSession %s", sid)
	if s.db == nil {
		return nil, NotOpen
	}
	fss := make([]*storage.FactState, 0, 32)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(sid))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for id, bs := c.First(); id != nil; id, bs = c.Next() {
			var fs storage.FactState
			if err := json.Unmarshal(bs, &fs); err != nil {
				return err
			}
			fs.Id = string(id)
			fss = append(fss, &fs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logf("GetSession %s found %d facts", sid, len(fss))

	if len(fss) == 0 {
		return nil, nil
	}

	storage.SortBySeq(fss)

	return fss, nil
}

func (s *Storage) WriteState(ctx context.Context, sid string, fss []*storage.FactState) error {
	s.logf("WriteState %s %s", sid, JS(fss))

	if 0 == len(fss) {
		return nil
	}
	if s.db == nil {
		return NotOpen
	}

	vals := make(map[string][]byte, len(fss))

	for _, fs := range fss {
		id := fs.Id
		if fs.Deleted {
			vals[id] = nil
		} else {
			// To save some space, remove id.
			fs = &storage.FactState{
				Seq:    fs.Seq,
				Object: fs.Object,
			}
			js, err := json.Marshal(&fs)
			if err != nil {
				return err
			}
			vals[id] = js
		}
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(sid))
		if err != nil {
			return err
		}
		for id, bs := range vals {
			var (
				key = []byte(id)
				err error
			)
			if bs == nil {
				err = b.Delete(key)
			} else {
				err = b.Put(key, bs)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}
