// Package workers runs the asynchronous half of the click pipeline: a pool of
// goroutines draining the click event buffer into the durable click log and
// the cache-side click-count accumulator.
package workers

import (
	"context"
	"log"
	"sync"

	"github.com/llamino/UrlShortener/internal/services"
)

// StartClickWorkers launches a pool of worker goroutines processing click
// events from the ClickService buffer. Each worker ranges over the same
// channel; when the service is closed the workers drain what remains and
// exit, and the returned WaitGroup reports when they are all done.
func StartClickWorkers(workerCount int, clickService *services.ClickService) *sync.WaitGroup {
	log.Printf("Starting %d click worker(s)...", workerCount)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clickWorker(clickService)
		}()
	}
	return &wg
}

// clickWorker is the loop executed by each worker goroutine. Processing is
// best-effort end to end: Record logs and swallows its own failures, so a bad
// event can never stop the pool.
func clickWorker(clickService *services.ClickService) {
	for event := range clickService.Events() {
		// Background work carries its own context: the originating request
		// is long gone by the time the event is processed.
		clickService.Record(context.Background(), event)
	}
}
