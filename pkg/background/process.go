package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

// Process :
// Defines a process that can be started with a certain
// repeatability and will spawn a go routine to do so.
// The function to execute is provided as input so that
// it is customizable. The user can also specify whether
// the function should be retried in case of a failure.
//
// The `interval` defines the duration between two calls
// of the function by this process.
//
// The `retryInterval` defines the interval to wait in
// case the `operation` fails. The default value is `1`
// second.
//
// The `operation` defines the function to be executed
// by the process.
//
// The `retry` defines whether the operation should be
// rescheduled before the next tick in case it fails.
//
// The `log` defines a way for this process to notify
// information and failures to the user.
//
// The `module` defines a string identifying the func
// attached to this process to make logs more relevant.
//
// The `lock` protects the configuration and the state
// of the process.
//
// The `cancel` interrupts the running loop. It is `nil`
// when the process is not running.
//
// The `waiter` allows to wait for this process to
// complete before returning from the `Stop` func.
type Process struct {
	interval      time.Duration
	retryInterval time.Duration
	operation     OperationFunc
	retry         bool
	log           logger.Logger
	module        string

	lock   sync.Mutex
	cancel context.CancelFunc
	waiter sync.WaitGroup
}

// OperationFunc :
// Defines an operation that can be associated to a
// process object. It receives a context cancelled
// when the process stops and returns whether it ran
// successfully along with any error.
type OperationFunc func(ctx context.Context) (bool, error)

// ErrAlreadyRunning : Indicates that this process is
// already running and cannot be started again.
var ErrAlreadyRunning = errors.New("unable to start already running process")

// ErrInvalidOperation : Indicates that the operation
// associated to this process is not valid.
var ErrInvalidOperation = errors.New("invalid operation to start process")

// ErrInvalidInterval : Indicates that the interval of
// the process is not strictly positive.
var ErrInvalidInterval = errors.New("invalid interval to start process")

// NewProcess :
// Defines a new process object with the specified
// interval and logger.
//
// The `interval` defines the time interval between
// two consecutive calls to the main process func.
//
// The `log` defines the logger to use to notify
// info and errors.
//
// Returns the built-in object.
func NewProcess(interval time.Duration, log logger.Logger) *Process {
	return &Process{
		interval:      interval,
		retryInterval: 1 * time.Second,
		retry:         false,
		log:           log,
		module:        "process",
	}
}

// WithModule :
// Assigns a new string as the module name for this
// process.
//
// Returns this process to allow chain calling.
func (p *Process) WithModule(module string) *Process {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.module = module

	return p
}

// WithRetry :
// Defines that this process should try to execute
// the operation again after `retryInterval` when it
// fails, until it succeeds or the process stops.
//
// Returns this process to allow chain calling.
func (p *Process) WithRetry() *Process {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.retry = true

	return p
}

// WithRetryInterval :
// Defines a new retry interval for the time to
// wait when the main operation fails to execute.
//
// Returns this process to allow chain calling.
func (p *Process) WithRetryInterval(interval time.Duration) *Process {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.retryInterval = interval

	return p
}

// WithOperation :
// Defines the core processing function to execute
// at each tick.
//
// Returns this process to allow chain calling.
func (p *Process) WithOperation(operation OperationFunc) *Process {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.operation = operation

	return p
}

// Running :
// Returns whether the active loop of the process is
// currently started.
func (p *Process) Running() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.cancel != nil
}

// Start :
// Used to start the process associated with this
// object. The operation must be set beforehand.
//
// Returns any error.
func (p *Process) Start() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.cancel != nil {
		return ErrAlreadyRunning
	}
	if p.operation == nil {
		return ErrInvalidOperation
	}
	if p.interval <= 0 {
		return ErrInvalidInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.waiter.Add(1)

	go p.activeLoop(ctx)

	return nil
}

// Stop :
// Interrupts the active loop and waits for the
// operation currently executing (if any) to end.
// Stopping a process which is not running does
// nothing.
func (p *Process) Stop() {
	p.lock.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.lock.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	p.waiter.Wait()
}

// activeLoop :
// Main processing loop for this object. It waits
// for the ticker and executes the operation until
// the context is cancelled.
func (p *Process) activeLoop(ctx context.Context) {
	defer p.waiter.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := p.execute(ctx)
			if err != nil {
				p.trace(logger.Error, fmt.Sprintf("Caught error while executing process (err: %v)", err))
			}
		}
	}
}

// execute :
// Runs the operation once, and again after the
// retry interval while it fails in case the retry
// flag is set. Panics are converted into errors so
// that a faulty tick does not kill the loop.
//
// Returns the last error.
func (p *Process) execute(ctx context.Context) error {
	p.lock.Lock()
	operation := p.operation
	retry := p.retry
	wait := p.retryInterval
	p.lock.Unlock()

	for {
		success, err := p.safeCall(ctx, operation)
		if success || !retry {
			return err
		}

		p.trace(logger.Verbose, fmt.Sprintf("Failed to execute process, retrying in %v", wait))

		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait):
		}
	}
}

// safeCall :
// Executes the operation and recovers from panics.
func (p *Process) safeCall(ctx context.Context, operation OperationFunc) (success bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.trace(logger.Critical, fmt.Sprintf("Recovered from error in process (err: %v)", r))
			success = false
			err = fmt.Errorf("panic in process: %v", r)
		}
	}()

	return operation(ctx)
}

// trace :
// Logs a message with the module of this process.
func (p *Process) trace(level logger.Severity, msg string) {
	p.lock.Lock()
	module := p.module
	p.lock.Unlock()

	p.log.Trace(level, module, msg)
}
