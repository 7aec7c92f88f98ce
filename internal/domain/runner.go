package domain

import (
	"context"
	"time"
)

// Dispatcher defines the contract for turning a raw command invocation into a rendered response.
// Implementations own the whole pipeline: input resolution, language resolution, remote execution
// and output formatting.
type Dispatcher interface {
	// Dispatch runs the invocation to completion. Failures are rendered into the returned
	// Response rather than returned, so the caller always has something to send back.
	Dispatch(ctx context.Context, inv Invocation) Response
}

// Executor sends a prepared request to the remote execution provider and returns its raw output.
type Executor interface {
	Run(ctx context.Context, req ExecutionRequest) (string, error)
}

// Paster uploads text to a paste service and returns the public link.
type Paster interface {
	Upload(ctx context.Context, text string) (string, error)
}

// Fetcher retrieves remote text content (attachments and paste links).
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Job represents a unit of work to be dispatched.
// It carries the Invocation payload, along with a channel to report the result.
type Job struct {
	ID         string     `json:"id"`
	Invocation Invocation `json:"invocation"`

	// RawID is the internal Stream ID from Redis (e.g. 1700000-0).
	// We need this to Acknowledge the message later.
	RawID string `json:"-"`

	// Delivered is when this consumer received the entry. Redis counts the entry's idle time
	// from the same moment.
	Delivered time.Time `json:"-"`

	// ResultCh is where the worker sends the dispatch result.
	// It is a send only channel (chan<-) to ensure the worker cannot read from it.
	ResultCh chan<- JobResult `json:"-"`
}

// JobResult encapsulates the result of a job dispatch.
type JobResult struct {
	JobID    string   `json:"job_id"`
	RawID    string   `json:"-"`
	Response Response `json:"response"`
}
