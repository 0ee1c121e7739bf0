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

package sio

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

// NotStarted occurs when using Couplings that haven't been started.
var NotStarted = errors.New("couplings not started")

// WebSocketCouplings is a Couplings that connects to a WebSocket
// server.  Each text message from the server is a JSON message (see
// ParseOp), and each Result is written back as JSON.
type WebSocketCouplings struct {
	URL string

	// Verbose turns on logging.
	Verbose bool

	in   chan interface{}
	out  chan *Result
	done chan bool
	stop chan bool
	conn *websocket.Conn

	// wmu serializes writes to conn.
	wmu  sync.Mutex
	wg   sync.WaitGroup
	once sync.Once
}

// NewWebSocketCouplings makes Couplings for the given URL.
func NewWebSocketCouplings(u string) *WebSocketCouplings {
	return &WebSocketCouplings{
		URL: u,
	}
}

func (c *WebSocketCouplings) logf(format string, args ...interface{}) {
	if c.Verbose {
		log.Printf(format, args...)
	}
}

// Start creates the WebSocket session and starts processing it.
func (c *WebSocketCouplings) Start(ctx context.Context) error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return err
	}

	c.in = make(chan interface{})
	c.out = make(chan *Result)
	c.done = make(chan bool)
	c.stop = make(chan bool)

	c.logf("WebSocketCouplings connecting to %s", u)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	c.conn = conn

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.closeDone()
		for {
			_, bs, err := conn.ReadMessage()
			if err != nil {
				c.logf("WebSocketCouplings read: %s", err)
				return
			}
			if len(bs) == 0 {
				continue
			}
			c.logf("WebSocketCouplings heard %s", bs)

			var msg interface{}
			if err = json.Unmarshal(bs, &msg); err != nil {
				res := &Result{
					Error: "bad input: " + err.Error(),
				}
				if err = c.write(res); err != nil {
					return
				}
				continue
			}

			select {
			case <-ctx.Done():
				return
			case c.in <- msg:
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case r, ok := <-c.out:
				if !ok {
					return
				}
				if err := c.write(r); err != nil {
					log.Printf("WebSocketCouplings write error %s", err)
					return
				}
			}
		}
	}()

	return nil
}

func (c *WebSocketCouplings) write(r *Result) error {
	js, err := json.Marshal(r)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, js)
}

func (c *WebSocketCouplings) closeDone() {
	c.once.Do(func() {
		close(c.done)
	})
}

// IO just returns the channels that Start() initialized.
func (c *WebSocketCouplings) IO(ctx context.Context) (chan interface{}, chan *Result, chan bool, error) {
	if c.conn == nil {
		return nil, nil, nil, NotStarted
	}
	return c.in, c.out, c.done, nil
}

// Stop terminates the WebSocket connection.  Stop can only be called
// once.
func (c *WebSocketCouplings) Stop(ctx context.Context) error {
	if c.conn == nil {
		return NotStarted
	}
	c.logf("WebSocketCouplings disconnecting")
	close(c.stop)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.wmu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage, msg)
	c.wmu.Unlock()
	err := c.conn.Close()
	c.closeDone()
	c.wg.Wait()
	return err
}
