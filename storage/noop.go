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

import "context"

// NoopStorage remembers nothing.
type NoopStorage struct {
}

func (s *NoopStorage) MakeSession(ctx context.Context, sid string) error {
	return nil
}

func (s *NoopStorage) RemSession(ctx context.Context, sid string) error {
	return nil
}

func (s *NoopStorage) GetSession(ctx context.Context, sid string) ([]*FactState, error) {
	return nil, nil
}

func (s *NoopStorage) WriteState(ctx context.Context, sid string, fss []*FactState) error {
	return nil
}
