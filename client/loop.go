package client

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// RunQueryLoop submits one search per line read from r. Only lines
// terminated by a newline count as submitted queries; a trailing partial
// line at EOF is discarded, the same way typing without pressing Enter
// submits nothing. The loop returns once the input ends and every
// submitted search has completed.
func RunQueryLoop(ctx context.Context, r io.Reader, dispatcher *Dispatcher) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			dispatcher.Submit(ctx, strings.TrimRight(line, "\r\n"))
			continue
		}
		if err == io.EOF {
			break
		}
		return err
	}

	return dispatcher.Wait(ctx)
}
