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

package storage

import (
	"context"
	"sync"
)

// MemStorage keeps sessions' facts in memory.
type MemStorage struct {
	sync.Mutex
	sessions map[string]map[string]*FactState
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		sessions: make(map[string]map[string]*FactState),
	}
}

func (s *MemStorage) MakeSession(ctx context.Context, sid string) error {
	s.Lock()
	defer s.Unlock()
	if _, have := s.sessions[sid]; !have {
		s.sessions[sid] = make(map[string]*FactState)
	}
	return nil
}

func (s *MemStorage) RemSession(ctx context.Context, sid string) error {
	s.Lock()
	delete(s.sessions, sid)
	s.Unlock()
	return nil
}

func (s *MemStorage) GetSession(ctx context.Context, sid string) ([]*FactState, error) {
	s.Lock()
	defer s.Unlock()
	fs, have := s.sessions[sid]
	if !have || len(fs) == 0 {
		return nil, nil
	}
	acc := make([]*FactState, 0, len(fs))
	for _, f := range fs {
		g := *f
		acc = append(acc, &g)
	}
	SortBySeq(acc)
	return acc, nil
}

func (s *MemStorage) WriteState(ctx context.Context, sid string, fss []*FactState) error {
	s.Lock()
	defer s.Unlock()
	fs, have := s.sessions[sid]
	if !have {
		fs = make(map[string]*FactState)
		s.sessions[sid] = fs
	}
	for _, f := range fss {
		if f.Deleted {
			delete(fs, f.Id)
			continue
		}
		g := *f
		fs[f.Id] = &g
	}
	return nil
}
