package talentq

import "errors"

// ErrJobNotFound is returned when a job with the given ID is unknown to the queue.
var ErrJobNotFound = errors.New("talentq: job not found")

// ErrDuplicateJob is returned when CreateJob is called with an ID that already exists for the queue.
var ErrDuplicateJob = errors.New("talentq: duplicate job id")

// ErrUnknownStatus is returned when an invalid status string is parsed.
var ErrUnknownStatus = errors.New("talentq: unknown status")

// ErrInvalidTransition is returned when a state transition violates the
// pending -> active -> terminal order, e.g. completing a job twice.
var ErrInvalidTransition = errors.New("talentq: invalid status transition")

// ErrEmptyPayload is returned when CreateJob is called with no payload.
var ErrEmptyPayload = errors.New("talentq: empty job payload")

// ErrEngineClosed is returned when a job is submitted to an engine that is shut down.
var ErrEngineClosed = errors.New("talentq: engine closed")

// ErrUnknownQueue is returned by the manager when no engine is registered under the name.
var ErrUnknownQueue = errors.New("talentq: unknown queue")
