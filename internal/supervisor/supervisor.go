// Package supervisor owns actor lifecycle: spawning, respawning on exit,
// and the stall-recovery path that reinitializes synchronization
// primitives without losing data.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dronesim/internal/obslog"
	"dronesim/internal/shared"
)

// ActorFunc is one actor's control loop, already closed over its own
// dependencies (State, Log, and anything role-specific). It must return
// when ctx is canceled.
type ActorFunc func(ctx context.Context) error

// respawnBackoff bounds how fast a crash-looping actor gets re-spawned;
// the original has no analogous guard (fork() is expensive enough on its
// own), but a goroutine loop with no backoff at all can busy-spin.
const respawnBackoff = 10 * time.Millisecond

// Supervisor holds the registered actors and coordinates their lifecycle.
type Supervisor struct {
	state  *shared.State
	log    *obslog.Logger
	actors map[string]ActorFunc

	stall    chan string
	shutdown chan struct{}
}

// New returns a Supervisor ready to have actors registered via Register.
func New(state *shared.State, log *obslog.Logger) *Supervisor {
	return &Supervisor{
		state:    state,
		log:      log,
		actors:   make(map[string]ActorFunc),
		stall:    make(chan string, 1),
		shutdown: make(chan struct{}, 1),
	}
}

// Register adds a role to the spawn set. Must be called before Run.
func (s *Supervisor) Register(role string, fn ActorFunc) {
	s.actors[role] = fn
}

// StallChan returns the channel the watchdog actor reports stalls on.
func (s *Supervisor) StallChan() chan<- string {
	return s.stall
}

// ShutdownChan returns the channel the battery actor reports a hard
// (0% charge) shutdown on.
func (s *Supervisor) ShutdownChan() chan<- struct{} {
	return s.shutdown
}

// Run spawns every registered actor and blocks until ctx is canceled, a
// hard shutdown is requested, or is interrupted for stall recovery
// (which it handles internally by looping into a fresh epoch rather than
// returning).
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		epochCtx, cancel := context.WithCancel(ctx)
		var wg sync.WaitGroup

		for role, fn := range s.actors {
			wg.Add(1)
			go s.runRole(epochCtx, &wg, role, fn)
		}

		select {
		case <-ctx.Done():
			cancel()
			wg.Wait()
			return nil

		case <-s.shutdown:
			if s.log != nil {
				s.log.Info().Log("hard shutdown requested, terminating actor group")
			}
			cancel()
			wg.Wait()
			return nil

		case role := <-s.stall:
			if s.log != nil {
				s.log.Err().Str("actor", role).Log("stall detected, reinitializing primitives")
			}
			cancel()
			wg.Wait()
			s.state.ReinitPrimitives()
			// loop: a fresh epoch respawns every actor, including the
			// watchdog that just reported the stall.
		}
	}
}

// runRole respawns fn under role until epochCtx is canceled. A panic
// inside fn is recovered and treated exactly like a returned error —
// both trigger respawn, mirroring the supervisor reaping a crashed
// child and restarting it under the same role name.
func (s *Supervisor) runRole(epochCtx context.Context, wg *sync.WaitGroup, role string, fn ActorFunc) {
	defer wg.Done()

	for {
		gen := s.state.Identity.Bump(role)
		if s.log != nil {
			s.log.Info().Str("role", role).Int64("generation", int64(gen)).Log("spawning actor")
		}

		err := runRecovered(epochCtx, fn)

		select {
		case <-epochCtx.Done():
			return
		default:
		}

		if err != nil && s.log != nil {
			s.log.Err().Err(err).Str("role", role).Log("actor exited, respawning")
		}

		select {
		case <-epochCtx.Done():
			return
		case <-time.After(respawnBackoff):
		}
	}
}

func runRecovered(ctx context.Context, fn ActorFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
