// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/r3labs/sse/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teradata-labs/remlc/internal/log"
	"github.com/teradata-labs/remlc/pkg/capability"
	"github.com/teradata-labs/remlc/pkg/lower"
	"github.com/teradata-labs/remlc/pkg/mir"
)

// loweringStream is the SSE stream id clients subscribe to for live
// re-lowering results.
const loweringStream = "lowering"

var (
	watchServe string
	watchStage string
)

var watchCmd = &cobra.Command{
	Use:   "watch <mir.json>",
	Short: "Re-lower a MIR fixture whenever the file changes",
	Long:  `watch gates the filesystem watcher behind the fs.watcher.native capability, then re-lowers the MIR function on every write to the file. With --serve, a Prometheus /metrics endpoint exposes the capability audit counters and an /events endpoint pushes each re-lowered IR dump to SSE subscribers.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchServe, "serve", "", "Serve /metrics and /events on this address (e.g. :9090)")
	watchCmd.Flags().StringVar(&watchStage, "stage", "stable", "Minimum stage required of the watcher capability")
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]
	registry := capability.Global()

	stage, err := capability.ParseStage(watchStage)
	if err != nil {
		return err
	}
	if _, err := registry.Verify("fs.watcher.native", capability.AtLeast(stage), []string{"io", "watcher"}); err != nil {
		return fmt.Errorf("watcher capability check failed: %w", err)
	}

	var events *sse.Server
	if watchServe != "" {
		exporter, err := capability.NewPrometheusExporter(prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		exporter.Attach(registry)
		events = sse.New()
		events.AutoReplay = false
		events.CreateStream(loweringStream)
		defer events.Close()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/events", events.ServeHTTP)
		go func() {
			if err := http.ListenAndServe(watchServe, mux); err != nil {
				log.Error("serve endpoint failed", zap.Error(err))
			}
		}()
		log.Info("serving metrics and lowering events", zap.String("addr", watchServe))
	}

	watcher, err := capability.NewWatcher(path)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	relower := func() {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("read failed", zap.String("path", path), zap.Error(err))
			return
		}
		fn, err := mir.DecodeFunction(data)
		if err != nil {
			log.Warn("decode failed", zap.String("path", path), zap.Error(err))
			return
		}
		emitter := lower.NewEmitter(lower.TargetMachine{Triple: lowerTriple}, nil)
		generated := emitter.EmitFunction(fn)
		fmt.Println(generated.IR)
		if events != nil {
			events.Publish(loweringStream, &sse.Event{
				Event: []byte("lowered"),
				Data:  []byte(generated.IR),
			})
		}
	}
	relower()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	for {
		select {
		case event, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			log.Info("change detected", zap.String("path", event.Path), zap.String("op", event.Op))
			relower()
		case <-interrupt:
			return nil
		}
	}
}
