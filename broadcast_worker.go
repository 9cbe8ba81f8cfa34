package main

import (
	"context"
	"log"
)

// broadcastWorker receives StatusData and fans out to the front end workers.
// A slow consumer misses updates rather than holding up the others.
func broadcastWorker(ctx context.Context, inputChan <-chan StatusData, outputChans []chan<- StatusData) {
	for {
		select {
		case data := <-inputChan:
			for i, ch := range outputChans {
				select {
				case ch <- data:
				case <-ctx.Done():
					return
				default:
					log.Printf("Warning: front end %d channel full, dropping update\n", i)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}
