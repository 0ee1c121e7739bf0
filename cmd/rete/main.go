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

// Package main is a rete process that runs one session of a rule set.
//
//	rete -rules orders.yaml -autofire
//
// Input lines are facts to insert or ops like {"op":"fire"}.  With
// -db, the session's external facts persist in a BoltDB file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/Comcast/rete/ruleset"
	"github.com/Comcast/rete/sio"
	"github.com/Comcast/rete/storage"
	"github.com/Comcast/rete/storage/bolt"
	"github.com/Comcast/rete/tools"
	"github.com/Comcast/rete/util"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

func main() {
	var (
		rulesFile = flag.String("rules", "", "rule set filename (YAML or JSON)")
		couplings = flag.String("io", "std", "couplings: std, ws, or mq")
		dbFile    = flag.String("db", "", "optional BoltDB filename for persistence")
		sid       = flag.String("session", "default", "session id")
		autoFire  = flag.Bool("autofire", false, "fire rules after each change")
		verbose   = flag.Bool("v", false, "verbosity")
		trace     = flag.Bool("trace", false, "trace propagation")
		dotFile   = flag.String("dot", "", "write the network as Graphviz dot to this file and exit")
		htmlFile  = flag.String("html", "", "write the rule set as HTML to this file and exit")
		noFacts   = flag.Bool("no-facts", false, "don't insert the rule set's facts into a new session")

		echo       = flag.Bool("echo", false, "echo input (std)")
		timestamps = flag.Bool("ts", false, "print timestamps (std)")
		shellExp   = flag.Bool("sh", false, "shell-expand input (std)")
		pad        = flag.Bool("pad", false, "pad tags (std)")
		results    = flag.Bool("results", false, "print entire results (std)")

		wsURL = flag.String("url", "ws://localhost:8080", "WebSocket server URL (ws)")

		broker        = flag.String("h", "tcp://localhost", "Broker hostname (mq)")
		port          = flag.Int("p", 1883, "Broker port (mq)")
		clientId      = flag.String("i", "", "Client id (mq)")
		userName      = flag.String("u", "", "Username (mq)")
		password      = flag.String("P", "", "Password (mq)")
		keepAlive     = flag.Int("k", 600, "Keep-alive in seconds (mq)")
		subTopics     = flag.String("t", "", "subscription topic(s) (mq)")
		injectTopic   = flag.Bool("inject-topic", true, "put topic in map of incoming messages (mq)")
		wrapWithTopic = flag.Bool("wrap-with-topic", false, "wrap non-maps in a map along with the topic (mq)")
		outTopic      = flag.String("def-outbound-topic", "misc", "Default out-bound message topic (mq)")
		resultsTopic  = flag.String("results-topic", "", "Optional topic for entire results (mq)")
		inTimeout     = flag.Duration("in-timeout", 5*time.Second, "timeout for in-bound queuing (mq)")
	)

	flag.Parse()

	if *rulesFile == "" {
		fmt.Fprintf(os.Stderr, "need -rules\n")
		flag.Usage()
		os.Exit(1)
	}

	util.Logging = *trace

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rs, err := ruleset.ReadFile(*rulesFile)
	if err != nil {
		log.Fatal(err)
	}

	if *htmlFile != "" {
		out, err := os.Create(*htmlFile)
		if err != nil {
			log.Fatal(err)
		}
		if err = tools.RenderRuleSetPage(rs, out, nil); err != nil {
			log.Fatal(err)
		}
		if err = out.Close(); err != nil {
			log.Fatal(err)
		}
	}

	net, err := ruleset.Compile(ctx, rs)
	if err != nil {
		log.Fatal(err)
	}

	if *dotFile != "" {
		out, err := os.Create(*dotFile)
		if err != nil {
			log.Fatal(err)
		}
		if err = tools.Dot(net, out); err != nil {
			log.Fatal(err)
		}
		if err = out.Close(); err != nil {
			log.Fatal(err)
		}
	}

	if *htmlFile != "" || *dotFile != "" {
		return
	}

	var st storage.Storage
	if *dbFile != "" {
		db, err := bolt.NewStorage(*dbFile)
		if err != nil {
			log.Fatal(err)
		}
		db.Debug = *verbose
		if err = db.Open(ctx); err != nil {
			log.Fatal(err)
		}
		defer db.Close(context.Background())
		st = db
	}

	r, err := sio.NewRunner(ctx, net, st, *sid)
	if err != nil {
		log.Fatal(err)
	}
	r.AutoFire = *autoFire
	r.Verbose = *verbose

	if !*noFacts && len(r.Session.Facts()) == 0 {
		for _, x := range rs.Facts {
			if _, err := r.Process(ctx, &sio.Op{Op: sio.OpInsert, Fact: x}); err != nil {
				log.Fatal(err)
			}
		}
		r.Logf("inserted %d facts from %s", len(rs.Facts), rs.Name)
	}

	var c sio.Couplings
	switch *couplings {
	case "std":
		s := sio.NewStdio(*shellExp)
		s.EchoInput = *echo
		s.Timestamps = *timestamps
		s.PadTags = *pad
		s.Tags = true
		s.PrintResults = *results
		c = s
	case "ws":
		ws := sio.NewWebSocketCouplings(*wsURL)
		ws.Verbose = *verbose
		c = ws
	case "mq":
		mq := mqCouplings(*broker, *port, *clientId, *userName, *password, *keepAlive)
		mq.SubTopics = *subTopics
		mq.InjectTopic = *injectTopic
		mq.WrapWithTopic = *wrapWithTopic
		mq.DefaultOutboundTopic = *outTopic
		mq.ResultsTopic = *resultsTopic
		mq.InTimeout = *inTimeout
		mq.Verbose = *verbose
		c = mq
	default:
		log.Fatalf("unknown couplings '%s'", *couplings)
	}

	if err = run(ctx, r, c); err != nil {
		log.Fatal(err)
	}
}

func mqCouplings(broker string, port int, clientId, userName, password string, keepAlive int) *sio.MQTTCouplings {
	mqtt.ERROR = log.New(os.Stderr, "mqtt.error", 0)

	if port != 0 {
		broker = fmt.Sprintf("%s:%d", broker, port)
	}
	log.Printf("broker: %s", broker)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientId)
	opts.SetKeepAlive(time.Second * time.Duration(keepAlive))
	opts.SetPingTimeout(10 * time.Second)
	opts.Username = userName
	opts.Password = password
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost")
	}

	return sio.NewMQTTCouplings(opts)
}

func run(ctx context.Context, r *sio.Runner, c sio.Couplings) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	in, out, done, err := c.IO(ctx)
	if err != nil {
		return err
	}
	if err = r.Loop(ctx, in, out, done); err != nil {
		return err
	}
	return c.Stop(context.Background())
}
