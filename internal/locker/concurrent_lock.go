package locker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
	"github.com/spf13/viper"
)

// ConcurrentLocker :
// Used to serialize the processing of a single game entity
// (a planet, a fleet or a player) while letting different
// entities be processed in parallel.
// A sweep advancing the queue of a planet and a player who
// cancels an entry of the same queue both need to look at
// the same data: only one of them should do so at any time.
// Creating a mutex per entity is not reasonable as there
// can be a lot of them, so a finite pool of locks is used
// instead. A client needing to work on an entity acquires
// a lock from the pool for this entity's key: clients using
// the same key receive the same lock and wait on it, while
// clients with other keys get other locks. Once every user
// of a lock released it, it goes back to the pool.
// When all the locks are in use a call to `Acquire` blocks
// until one of them is released.
//
// The `locker` protects the internal state of the pool.
//
// The `locks` defines the slice of locks that can be handed
// out to clients.
//
// The `availableLocks` holds the indices of the locks which
// are not assigned to any resource.
//
// The `registered` associates the resources currently being
// protected to the index of their lock.
//
// The `log` allows to notify errors and information about
// the process going on internally within this element.
type ConcurrentLocker struct {
	locker         sync.Mutex
	locks          []*Lock
	availableLocks chan int
	registered     map[string]int
	log            logger.Logger
}

// Lock :
// Allows to protect the access to a single resource by
// providing a way for concurrent clients to wait on it.
//
// The `id` defines the index of this lock in the pool. It
// is negative in case the lock is not in use at the moment.
//
// The `res` defines the resource currently assigned to this
// lock.
//
// The `use` defines how many clients currently rely on this
// lock. The lock goes back to the pool when it reaches `0`.
//
// The `waiter` holds a single token which is taken by the
// client owning the resource.
type Lock struct {
	id     int
	res    string
	use    int
	waiter chan struct{}
}

// ErrNotLocked :
// Indicates that a lock is released while it is not held.
var ErrNotLocked = errors.New("cannot release lock on resource, seems already released")

// configuration :
// Defines the settings of the pool of locks.
//
// The `LockCount` defines the number of locks that can be
// distributed amongst clients before a call to `Acquire`
// becomes blocking.
// The default value is `10`.
type configuration struct {
	LockCount int
}

// parseConfiguration :
// Reads the `Concurrent.LockCount` key.
func parseConfiguration() configuration {
	config := configuration{
		LockCount: 10,
	}

	if viper.IsSet("Concurrent.LockCount") {
		config.LockCount = viper.GetInt("Concurrent.LockCount")
	}
	if config.LockCount <= 0 {
		config.LockCount = 1
	}

	return config
}

// NewConcurrentLocker :
// Creates a new pool of locks sized from the configuration.
//
// The `log` will be assigned as the internal logging mean.
//
// Returns the created pool.
func NewConcurrentLocker(log logger.Logger) *ConcurrentLocker {
	return NewConcurrentLockerWithSize(parseConfiguration().LockCount, log)
}

// NewConcurrentLockerWithSize :
// Similar to `NewConcurrentLocker` with an explicit size.
func NewConcurrentLockerWithSize(count int, log logger.Logger) *ConcurrentLocker {
	if count <= 0 {
		count = 1
	}

	cl := &ConcurrentLocker{
		locks:          make([]*Lock, count),
		availableLocks: make(chan int, count),
		registered:     make(map[string]int),
		log:            log,
	}

	for id := range cl.locks {
		cl.locks[id] = &Lock{
			id:     -1,
			waiter: make(chan struct{}, 1),
		}
		cl.locks[id].waiter <- struct{}{}

		cl.availableLocks <- id
	}

	return cl
}

// Acquire :
// Returns the lock associated to the resource, assigning
// a free one from the pool if none exists yet. Blocks in
// case no lock is available. The returned lock still has
// to be locked through `Lock` before using the resource.
//
// The `resource` defines the key of the resource.
//
// Returns the lock for this resource.
func (cl *ConcurrentLocker) Acquire(resource string) *Lock {
	cl.locker.Lock()
	if id, ok := cl.registered[resource]; ok {
		l := cl.locks[id]
		l.use++
		cl.locker.Unlock()

		cl.log.Trace(logger.Verbose, "locker", fmt.Sprintf("Adding user to resource \"%s\" (id: %d)", resource, id))

		return l
	}
	cl.locker.Unlock()

	id := <-cl.availableLocks

	cl.locker.Lock()

	// Another client may have registered the resource while
	// we were waiting for a free lock: in this case give the
	// lock back and share the other one.
	if existing, ok := cl.registered[resource]; ok {
		l := cl.locks[existing]
		l.use++
		cl.locker.Unlock()

		cl.availableLocks <- id

		return l
	}

	cl.registered[resource] = id

	l := cl.locks[id]
	l.id = id
	l.res = resource
	l.use = 1
	cl.locker.Unlock()

	cl.log.Trace(logger.Verbose, "locker", fmt.Sprintf("Creating lock on \"%s\" (id: %d)", resource, id))

	return l
}

// Release :
// Gives back a lock obtained through `Acquire`. The lock
// returns to the pool once its last user released it.
//
// The `lock` defines the lock to release. If this value
// is `nil` nothing happens.
func (cl *ConcurrentLocker) Release(lock *Lock) {
	if lock == nil {
		return
	}

	cl.locker.Lock()
	defer cl.locker.Unlock()

	lock.use--
	if lock.use > 0 {
		return
	}

	res, id := lock.res, lock.id

	delete(cl.registered, res)
	lock.id = -1
	lock.res = ""

	cl.availableLocks <- id

	cl.log.Trace(logger.Verbose, "locker", fmt.Sprintf("Releasing lock on \"%s\" at index %d", res, id))
}

// Run :
// Convenience wrapper acquiring the lock of the resource,
// executing the function while holding it and releasing
// everything afterwards.
//
// Returns the error of the function.
func (cl *ConcurrentLocker) Run(resource string, fn func() error) error {
	l := cl.Acquire(resource)
	defer cl.Release(l)

	l.Lock()
	defer l.Release()

	return fn()
}

// Lock :
// Waits until the resource protected by this lock is free
// and takes it.
func (l *Lock) Lock() {
	<-l.waiter
}

// Release :
// Gives back the resource so that other clients waiting in
// `Lock` can proceed.
//
// Returns an error in case the lock is not held.
func (l *Lock) Release() error {
	select {
	case l.waiter <- struct{}{}:
		return nil
	default:
		return ErrNotLocked
	}
}
