package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"vocab-go/internal/config"
	"vocab-go/internal/encryption"
	"vocab-go/internal/metrics"
	"vocab-go/internal/model"
	"vocab-go/internal/storage"
	"vocab-go/internal/vocab"
)

// VocabApp is the application layer between the CLI and the vocab services.
// It constructs all dependencies from config, exposes operations for one
// user that accept raw CLI input, and flushes metrics and closes the backend
// on Close.
type VocabApp struct {
	cfg       *config.Config
	backend   vocab.Storage
	encryptor vocab.Encryptor // nil if the encryption section is unusable
	metrics   metrics.Provider
	clock     vocab.Clock
	logger    vocab.Logger
	logFile   *os.File
	op        *Operation

	snapshots   *vocab.SnapshotManager
	maintenance *vocab.MaintenanceScheduler
	courses     *vocab.CourseService
}

// deps are the process-level collaborators tests replace.
type deps struct {
	clock  vocab.Clock
	ids    vocab.IDGenerator
	stderr io.Writer
}

// NewVocabApp creates a fully wired VocabApp from the given config.
// operation identifies the CLI command being run (e.g. "CreateSnapshot"),
// user the account it acts on. The caller must call Close when done.
func NewVocabApp(ctx context.Context, cfg *config.Config, operation, user string) (*VocabApp, error) {
	return newVocabApp(ctx, cfg, operation, user, deps{
		clock:  vocab.RealClock{},
		ids:    vocab.UUIDGenerator{},
		stderr: os.Stderr,
	})
}

func newVocabApp(ctx context.Context, cfg *config.Config, operation, user string, d deps) (*VocabApp, error) {
	op := NewOperation(operation, user, d.clock.Now())

	zl, logFile, err := newLogger(cfg.LogDir, cfg.LogLevel, op.ID, d.stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &zerologAdapter{l: zl}

	backend, err := storage.NewStorageFromConfig(ctx, cfg.Storage, d.clock, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating storage: %w", err)
	}

	prov := metrics.NewProvider(cfg.Metrics)
	var observer storage.Observer
	if cfg.Metrics.Enabled {
		observer = prov
	}
	store := storage.Decorate(backend, cfg.Cache, observer)

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		if cfg.Snapshots.Encrypt {
			closeBackend(backend)
			logFile.Close()
			return nil, fmt.Errorf("creating encryptor: %w", err)
		}
	}

	snapOpts := vocab.SnapshotOptions{
		MaxNoteLength: cfg.Snapshots.MaxNoteLength,
		Compress:      cfg.Snapshots.Compress,
	}
	if cfg.Snapshots.Encrypt {
		snapOpts.Encryptor = enc
	}

	repo := vocab.NewUserRepository(store, logger)
	snapshots, err := vocab.NewSnapshotManager(repo, d.clock, logger, snapOpts)
	if err != nil {
		closeBackend(backend)
		logFile.Close()
		return nil, fmt.Errorf("creating snapshot manager: %w", err)
	}
	maintenance := vocab.NewMaintenanceScheduler(repo, snapshots, d.clock, logger, prov, cfg.DefaultPageSize)
	courses := vocab.NewCourseService(repo, maintenance, d.clock, d.ids, logger, cfg.DefaultPageSize)

	logger.Debug("operation started", "operation", op.Name, "user", op.User, "storage", cfg.Storage.Type)

	return &VocabApp{
		cfg:         cfg,
		backend:     backend,
		encryptor:   enc,
		metrics:     prov,
		clock:       d.clock,
		logger:      logger,
		logFile:     logFile,
		op:          op,
		snapshots:   snapshots,
		maintenance: maintenance,
		courses:     courses,
	}, nil
}

func closeBackend(s vocab.Storage) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (a *VocabApp) user() string { return a.op.User }

// Fail marks the current operation as failed; Close logs it that way.
func (a *VocabApp) Fail() { a.op.Fail() }

// ValidateSetup checks that the storage backend is reachable.
func (a *VocabApp) ValidateSetup(ctx context.Context) error {
	return a.backend.ValidateSetup(ctx)
}

// ListCourses returns the user's courses in display order.
func (a *VocabApp) ListCourses(ctx context.Context) ([]model.Course, error) {
	return a.courses.ListCourses(ctx, a.user())
}

// CreateCourse adds an empty course. pageSize 0 selects the default.
func (a *VocabApp) CreateCourse(ctx context.Context, name string, pageSize int) (model.Course, error) {
	return a.courses.CreateCourse(ctx, a.user(), name, pageSize)
}

// RenameCourse changes the display name of a course.
func (a *VocabApp) RenameCourse(ctx context.Context, filename, name string) (model.Course, error) {
	return a.courses.RenameCourse(ctx, a.user(), filename, name)
}

// SetPageSize changes the page size of a course.
func (a *VocabApp) SetPageSize(ctx context.Context, filename string, size int) (model.Course, error) {
	return a.courses.SetPageSize(ctx, a.user(), filename, size)
}

// ReorderCourses sets the display order to the order of filenames.
func (a *VocabApp) ReorderCourses(ctx context.Context, filenames []string) ([]model.Course, error) {
	return a.courses.ReorderCourses(ctx, a.user(), filenames)
}

// DeleteCourse removes a course and its vocab file.
func (a *VocabApp) DeleteCourse(ctx context.Context, filename string) error {
	return a.courses.DeleteCourse(ctx, a.user(), filename)
}

// GetVocab returns the items of a course.
func (a *VocabApp) GetVocab(ctx context.Context, filename string) ([]model.VocabItem, error) {
	return a.courses.GetVocab(ctx, a.user(), filename)
}

// SetItemState records a review mark given as text ("tick", "cross", ...).
func (a *VocabApp) SetItemState(ctx context.Context, filename, itemID string, slot int, rawState string) (model.VocabItem, error) {
	state, err := model.ParseState(rawState)
	if err != nil {
		return model.VocabItem{}, vocab.InvalidInput("set item state", "%v", err)
	}
	return a.courses.UpdateItemState(ctx, a.user(), filename, itemID, slot, state)
}

// ImportFile appends the items of a local vocab file (any supported format)
// to a course and returns how many were imported.
func (a *VocabApp) ImportFile(ctx context.Context, filename, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading import file: %w", err)
	}
	file, _, err := model.DecodeVocabFile(data)
	if err != nil {
		return 0, vocab.InvalidInput("import items", "%s: %v", path, err)
	}
	return a.courses.ImportItems(ctx, a.user(), filename, file.Content)
}

// CreateSnapshot bundles the user's current courses.
func (a *VocabApp) CreateSnapshot(ctx context.Context, note string) (model.SnapshotInfo, error) {
	return a.snapshots.Create(ctx, a.user(), note)
}

// ListSnapshots returns snapshot metadata, newest first.
func (a *VocabApp) ListSnapshots(ctx context.Context) ([]model.SnapshotInfo, error) {
	return a.snapshots.List(ctx, a.user())
}

// RestoreSnapshot overwrites the user's courses with a snapshot.
func (a *VocabApp) RestoreSnapshot(ctx context.Context, id string) (model.SnapshotInfo, error) {
	return a.snapshots.Restore(ctx, a.user(), id)
}

// DeleteSnapshot removes a snapshot.
func (a *VocabApp) DeleteSnapshot(ctx context.Context, id string) error {
	return a.snapshots.Delete(ctx, a.user(), id)
}

// ErrNoEncryption is returned by key operations when the encryption section
// of the config cannot build an encryptor.
var ErrNoEncryption = errors.New("encryption is not configured")

// SetupKeys generates the snapshot key pair.
func (a *VocabApp) SetupKeys(passphrase string) error {
	if a.encryptor == nil {
		return ErrNoEncryption
	}
	if err := a.encryptor.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up keys: %w", err)
	}
	a.logger.Info("snapshot keys created")
	return nil
}

// Unlock makes encrypted snapshots readable for the rest of this run.
func (a *VocabApp) Unlock(passphrase string) error {
	if a.encryptor == nil {
		return ErrNoEncryption
	}
	dec, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking snapshot key: %w", err)
	}
	a.snapshots.SetDecryptionContext(dec)
	return nil
}

// NeedsUnlock reports whether reading snapshots may require the passphrase.
func (a *VocabApp) NeedsUnlock() bool {
	return a.encryptor != nil && a.cfg.Snapshots.Encrypt
}

// Maintain runs the due maintenance checks for today.
func (a *VocabApp) Maintain(ctx context.Context) vocab.MaintenanceReport {
	return a.maintenance.RunDue(ctx, a.user(), a.maintenance.Today())
}

// Close logs the operation outcome, writes metrics, and closes the storage
// backend and the log file.
func (a *VocabApp) Close() error {
	var firstErr error

	a.logger.Info("operation finished",
		"operation", a.op.Name,
		"user", a.op.User,
		"status", a.op.Status,
		"duration_ms", a.op.Elapsed(a.clock.Now()).Milliseconds())

	if err := a.metrics.Flush(); err != nil {
		firstErr = err
	}
	if err := closeBackend(a.backend); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing storage: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
