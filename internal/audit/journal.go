// Package audit is an append-only, checksummed journal of scheduler
// lifecycle transitions: schedule, promote, soft-reset, finish,
// retry-exhaustion, pause, resume, stop, restart. It exists purely for
// operational forensics — "what did the scheduler do and when" — and
// is never consulted for recovery; internal/snapshot's single lockfile
// is the sole source of truth on restart.
package audit

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type appendRequest struct {
	event Event
	errCh chan error
}

// Journal is one append-only audit log file with async batch commit.
type Journal struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	path    string
	seq     uint64

	batchCh       chan appendRequest
	bufferSize    int
	flushInterval time.Duration
	closed        chan struct{}
	wg            sync.WaitGroup
	isClosed      bool
}

// Open creates or appends to the journal file at path, starting the
// background batch writer. bufferSize and flushInterval default to
// 100 events / 10ms.
func Open(path string, bufferSize int, flushInterval time.Duration) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("audit: create dir: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}

	if bufferSize <= 0 {
		bufferSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 10 * time.Millisecond
	}

	j := &Journal{
		file:          f,
		encoder:       json.NewEncoder(f),
		path:          path,
		batchCh:       make(chan appendRequest, bufferSize*2),
		bufferSize:    bufferSize,
		flushInterval: flushInterval,
		closed:        make(chan struct{}),
	}

	j.wg.Add(1)
	go j.batchWriter()
	return j, nil
}

// Append records one lifecycle event. It returns once the event has
// been flushed (and fsynced) to disk, or an error if the journal is
// closed or the write failed.
func (j *Journal) Append(eventType EventType, jobType string) error {
	j.mu.Lock()
	j.seq++
	seq := j.seq
	j.mu.Unlock()

	event := Event{
		Seq:       seq,
		Type:      eventType,
		JobType:   jobType,
		Timestamp: time.Now().UnixMilli(),
		Checksum:  checksum(eventType, jobType, seq),
	}

	errCh := make(chan error, 1)
	select {
	case j.batchCh <- appendRequest{event: event, errCh: errCh}:
		return <-errCh
	case <-j.closed:
		return fmt.Errorf("audit: journal closed")
	}
}

func (j *Journal) batchWriter() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.flushInterval)
	defer ticker.Stop()

	batch := make([]appendRequest, 0, j.bufferSize)
	for {
		select {
		case req := <-j.batchCh:
			batch = append(batch, req)
			if len(batch) >= j.bufferSize {
				j.flushBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				j.flushBatch(batch)
				batch = batch[:0]
			}
		case <-j.closed:
			if len(batch) > 0 {
				j.flushBatch(batch)
			}
			return
		}
	}
}

func (j *Journal) flushBatch(batch []appendRequest) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var flushErr error
	for i := range batch {
		if err := j.encoder.Encode(batch[i].event); err != nil {
			flushErr = fmt.Errorf("audit: encode event: %w", err)
			break
		}
	}
	if flushErr == nil {
		if err := j.file.Sync(); err != nil {
			flushErr = fmt.Errorf("audit: sync: %w", err)
		}
	}
	for i := range batch {
		batch[i].errCh <- flushErr
		close(batch[i].errCh)
	}
}

// Replay decodes every event in the journal and invokes handler for
// each, verifying checksums along the way. Forensic use only.
func (j *Journal) Replay(handler EventHandler) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		return fmt.Errorf("audit: open for replay: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	for {
		var e Event
		if err := dec.Decode(&e); err == io.EOF {
			break
		} else if err != nil {
			return fmt.Errorf("audit: decode: %w", err)
		}
		if !verifyChecksum(e) {
			return fmt.Errorf("audit: checksum mismatch at seq %d", e.Seq)
		}
		if err := handler(e); err != nil {
			return err
		}
	}
	return nil
}

// Rotate closes the current file, gzip-compresses it to a timestamped
// backup, and starts a fresh empty journal. Compression only happens
// at rotation time, never per-write.
func (j *Journal) Rotate() error {
	j.mu.Lock()
	if j.isClosed {
		j.mu.Unlock()
		return fmt.Errorf("audit: journal closed")
	}
	j.isClosed = true
	j.mu.Unlock()

	close(j.closed)
	j.wg.Wait()

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.file.Close(); err != nil {
		return fmt.Errorf("audit: close before rotate: %w", err)
	}

	backupPath := j.path + "." + time.Now().Format("20060102_150405") + ".gz"
	if err := compressAndRemove(j.path, backupPath); err != nil {
		return fmt.Errorf("audit: compress rotated file: %w", err)
	}

	newFile, err := os.OpenFile(j.path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("audit: create new journal file: %w", err)
	}
	j.file = newFile
	j.encoder = json.NewEncoder(newFile)
	j.seq = 0

	j.closed = make(chan struct{})
	j.wg.Add(1)
	go j.batchWriter()
	j.isClosed = false
	return nil
}

func compressAndRemove(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	gw := gzip.NewWriter(dst)
	if _, err := io.Copy(gw, src); err != nil {
		gw.Close()
		return err
	}
	if err := gw.Close(); err != nil {
		return err
	}
	return os.Remove(srcPath)
}

// Close flushes and closes the journal. The Journal must not be used
// afterward.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.isClosed {
		j.mu.Unlock()
		return nil
	}
	j.isClosed = true
	j.mu.Unlock()

	close(j.closed)
	j.wg.Wait()

	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// LastSeq returns the most recently assigned sequence number.
func (j *Journal) LastSeq() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq
}
