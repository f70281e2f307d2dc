package detector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// idleTimeout stops a service that has not seen a frame for this long.
// The next request restarts it.
const idleTimeout = 30 * time.Second

// stopTimeout bounds how long a service may take to exit after its stdin
// is closed.
const stopTimeout = 2 * time.Second

// process is a lazily started detector subprocess. Requests are framed as a
// 4-byte big-endian length followed by the payload; the first line written
// after start is the JSON options object.
type process struct {
	svc     *Service
	python  string
	options any

	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	closed    bool
	idleTimer *time.Timer
}

func newProcess(svc *Service, python string, options any) *process {
	return &process{svc: svc, python: python, options: options}
}

// do runs fn with exclusive access to a started process. Cancelling ctx
// kills the process so a stalled reply cannot block the caller; the next
// request starts a fresh one.
func (p *process) do(ctx context.Context, payload []byte, fn func(r *bufio.Reader) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("%s service closed", p.svc.Manifest.Name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.ensureStarted(); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	proc := p.cmd.Process
	go func() {
		select {
		case <-ctx.Done():
			proc.Kill()
		case <-done:
		}
	}()

	if err := writeFrame(p.stdin, payload); err != nil {
		p.kill()
		return p.cancelled(ctx, err)
	}
	if err := fn(p.stdout); err != nil {
		p.kill()
		return p.cancelled(ctx, err)
	}

	p.resetIdleTimer()
	return nil
}

// cancelled reports ctx's error in place of the I/O error a kill caused.
func (p *process) cancelled(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		log.Debug().Str("service", p.svc.Manifest.Name).Err(err).Msg("detector request cancelled")
		return ctxErr
	}
	return err
}

func (p *process) start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("%s service closed", p.svc.Manifest.Name)
	}
	return p.ensureStarted()
}

func (p *process) ensureStarted() error {
	if p.started {
		return nil
	}

	p.cmd = p.svc.Command(p.python)
	p.cmd.Dir = p.svc.Path
	p.cmd.Stderr = os.Stderr

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("start %s service: %w", p.svc.Manifest.Name, err)
	}

	p.stdin = stdin
	p.stdout = bufio.NewReader(stdout)
	p.started = true

	opts, err := json.Marshal(p.options)
	if err != nil {
		p.kill()
		return fmt.Errorf("encode options: %w", err)
	}
	if _, err := p.stdin.Write(append(opts, '\n')); err != nil {
		p.kill()
		return fmt.Errorf("write options: %w", err)
	}

	log.Debug().Str("service", p.svc.Manifest.Name).Int("pid", p.cmd.Process.Pid).Msg("detector service started")
	p.resetIdleTimer()
	return nil
}

func (p *process) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.shutdown()
}

func (p *process) shutdown() error {
	if !p.started {
		return nil
	}

	if p.idleTimer != nil {
		p.idleTimer.Stop()
		p.idleTimer = nil
	}
	if p.stdin != nil {
		p.stdin.Close()
	}

	cmd := p.cmd
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	var err error
	select {
	case err = <-exited:
	case <-time.After(stopTimeout):
		log.Warn().Str("service", p.svc.Manifest.Name).Msg("detector service ignored stdin close, killing")
		cmd.Process.Kill()
		err = <-exited
	}
	p.started = false
	p.cmd = nil
	p.stdin = nil
	p.stdout = nil

	return err
}

// kill drops a process whose stream is out of sync.
func (p *process) kill() {
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.shutdown()
}

func (p *process) resetIdleTimer() {
	if p.idleTimer != nil {
		p.idleTimer.Stop()
	}
	p.idleTimer = time.AfterFunc(idleTimeout, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.shutdown()
	})
}

func writeFrame(w io.Writer, data []byte) error {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := w.Write(length); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

func readFrame(r io.Reader) ([]byte, error) {
	length := make([]byte, 4)
	if _, err := io.ReadFull(r, length); err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}
	data := make([]byte, binary.BigEndian.Uint32(length))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	return data, nil
}
