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
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Stalled occurs when an incoming MQTT message couldn't be queued
// before MQTTCouplings.InTimeout.
var Stalled = errors.New("input stalled")

// MQTTCouplings is a Couplings for an MQTT broker.
//
// Messages from subscribed topics are input.  Each emitted message is
// published to the topic given by its "topic" property (or
// DefaultOutboundTopic), and the QoS is given by the optional "qos"
// property.
type MQTTCouplings struct {
	Client mqtt.Client

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint

	// SubTopics is a comma-separated list of TOPIC[:QOS] to
	// subscribe to.
	SubTopics string

	// InjectTopic adds a "topic" property to incoming maps.
	InjectTopic bool

	// WrapWithTopic wraps incoming non-maps in a map along with
	// the topic.
	WrapWithTopic bool

	// DefaultOutboundTopic is TOPIC[:QOS] for emitted messages
	// that don't specify a topic.
	DefaultOutboundTopic string

	// ResultsTopic, if not empty, is TOPIC[:QOS] that gets each
	// entire Result.
	ResultsTopic string

	// InTimeout is the timeout for queuing incoming messages.
	InTimeout time.Duration

	// Publish sends a payload to the broker.  NewMQTTCouplings
	// sets it to publish with the Client.
	Publish func(topic string, qos byte, payload []byte) error

	Verbose bool

	in   chan interface{}
	out  chan *Result
	done chan bool
	stop chan bool
	once sync.Once
}

// NewMQTTCouplings makes Couplings with a Client made from the given
// options.
func NewMQTTCouplings(opts *mqtt.ClientOptions) *MQTTCouplings {
	c := &MQTTCouplings{
		Client:               mqtt.NewClient(opts),
		Quiesce:              100,
		DefaultOutboundTopic: "misc",
		InTimeout:            5 * time.Second,
	}
	c.Publish = c.publish
	c.init()
	return c
}

func (c *MQTTCouplings) init() {
	c.in = make(chan interface{})
	c.out = make(chan *Result)
	c.done = make(chan bool)
	c.stop = make(chan bool)
}

func (c *MQTTCouplings) logf(format string, args ...interface{}) {
	if c.Verbose {
		log.Printf(format, args...)
	}
}

func (c *MQTTCouplings) publish(topic string, qos byte, payload []byte) error {
	t := c.Client.Publish(topic, qos, false, payload)
	t.Wait()
	return t.Error()
}

// Start connects to the broker, subscribes, and starts publishing
// Results.
func (c *MQTTCouplings) Start(ctx context.Context) error {
	if c.in == nil {
		c.init()
	}
	c.logf("MQTTCouplings connecting")
	if t := c.Client.Connect(); t.Wait() && t.Error() != nil {
		return t.Error()
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		if err := c.In(ctx, msg.Topic(), msg.Payload()); err != nil {
			log.Printf("MQTTCouplings dropped message on %s: %s", msg.Topic(), err)
		}
	}

	for _, topic := range strings.Split(c.SubTopics, ",") {
		topic, qos := parseTopic(strings.TrimSpace(topic))
		if topic == "" {
			continue
		}
		c.logf("MQTTCouplings subscribing to %s (%d)", topic, qos)
		if t := c.Client.Subscribe(topic, qos, handler); t.Wait() && t.Error() != nil {
			return t.Error()
		}
	}

	go c.outLoop(ctx)

	return nil
}

// IO returns the channels for the Runner.
func (c *MQTTCouplings) IO(ctx context.Context) (chan interface{}, chan *Result, chan bool, error) {
	if c.in == nil {
		return nil, nil, nil, NotStarted
	}
	return c.in, c.out, c.done, nil
}

// In queues an incoming message.
//
// A payload that isn't JSON is queued as a string.
func (c *MQTTCouplings) In(ctx context.Context, topic string, payload []byte) error {
	var x interface{}
	if err := json.Unmarshal(payload, &x); err != nil {
		c.logf("MQTTCouplings couldn't JSON-parse payload: %s", payload)
		x = string(payload)
	}
	if m, is := x.(map[string]interface{}); is {
		if c.InjectTopic {
			m["topic"] = topic
		}
	} else if c.WrapWithTopic {
		x = map[string]interface{}{
			"topic":   topic,
			"payload": x,
		}
	}

	to := time.NewTimer(c.InTimeout)
	defer to.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stop:
		return context.Canceled
	case c.in <- x:
		c.logf("MQTTCouplings forwarded %s", payload)
		return nil
	case <-to.C:
		return Stalled
	}
}

// outbound returns the topic and QoS for an emitted message.
func (c *MQTTCouplings) outbound(x interface{}) (string, byte) {
	topic, qos := parseTopic(c.DefaultOutboundTopic)
	m, is := x.(map[string]interface{})
	if !is {
		return topic, qos
	}
	if s, is := m["topic"].(string); is {
		topic = s
	}
	if n, have := m["qos"]; have {
		if f, is := n.(float64); is && 0 <= f && f <= 2 {
			qos = byte(f)
		} else {
			log.Printf("Warning: ignoring qos %#v %T", n, n)
		}
	}
	return topic, qos
}

// outLoop publishes Results until the Runner closes the result
// channel.
func (c *MQTTCouplings) outLoop(ctx context.Context) {
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
			c.send(r)
		}
	}
}

func (c *MQTTCouplings) send(r *Result) {
	for _, e := range r.Emitted {
		topic, qos := c.outbound(e.Message)
		js, err := json.Marshal(e.Message)
		if err != nil {
			log.Printf("MQTTCouplings failed to marshal %#v", e.Message)
			continue
		}
		c.logf("MQTTCouplings publishing %s %s", topic, js)
		if err = c.Publish(topic, qos, js); err != nil {
			log.Printf("MQTTCouplings publish error: %s", err)
		}
	}
	if c.ResultsTopic != "" {
		topic, qos := parseTopic(c.ResultsTopic)
		if err := c.Publish(topic, qos, []byte(JS(r))); err != nil {
			log.Printf("MQTTCouplings publish error: %s", err)
		}
	}
}

// Stop terminates the MQTT session.  Stop can only be called once.
func (c *MQTTCouplings) Stop(context.Context) error {
	if c.in == nil {
		return NotStarted
	}
	c.logf("MQTTCouplings disconnecting")
	close(c.stop)
	c.once.Do(func() {
		close(c.done)
	})
	if c.Client != nil && c.Client.IsConnected() {
		c.Client.Disconnect(c.Quiesce)
	}
	return nil
}

// parseTopic extracts QoS from a topic name of the form TOPIC:QOS.
func parseTopic(s string) (string, byte) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, 0
	}
	n, err := strconv.ParseUint(s[i+1:], 10, 8)
	if err != nil || 2 < n {
		return s, 0
	}
	return s[:i], byte(n)
}
