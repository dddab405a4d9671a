package vocab

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"vocab-go/internal/model"
)

// UserRepository owns every user's directory: course index, vocab files and
// maintenance state. It initializes a user's namespace lazily on first use.
//
// Initialization runs at most once per namespace even under concurrent first
// access: callers for the same namespace share one in-flight call. The
// in-flight entry is dropped when the call returns, successful or not, so a
// failed initialization is retried by the next caller.
type UserRepository struct {
	storage Storage
	logger  Logger

	inflight    singleflight.Group
	initialized sync.Map // namespace -> struct{}
}

// NewUserRepository creates a repository over the given storage backend.
func NewUserRepository(storage Storage, logger Logger) *UserRepository {
	return &UserRepository{
		storage: storage,
		logger:  logger,
	}
}

// ensureUser resolves userID to its namespace and initializes it if needed.
func (r *UserRepository) ensureUser(ctx context.Context, userID string) (string, error) {
	ns, err := Namespace(userID)
	if err != nil {
		return "", err
	}
	if _, ok := r.initialized.Load(ns); ok {
		return ns, nil
	}

	// The flight is shared by every concurrent caller, so it must not end
	// when the first caller's context does.
	initCtx := context.WithoutCancel(ctx)
	_, err, _ = r.inflight.Do(ns, func() (any, error) {
		if _, ok := r.initialized.Load(ns); ok {
			return nil, nil
		}
		if err := r.initialize(initCtx, ns); err != nil {
			return nil, err
		}
		r.initialized.Store(ns, struct{}{})
		return nil, nil
	})
	if err != nil {
		return "", err
	}
	return ns, nil
}

// initialize creates the user's root and copies the default course set.
// The course index is written last: its presence marks a finished setup.
func (r *UserRepository) initialize(ctx context.Context, ns string) error {
	exists, err := r.storage.Exists(ctx, courseIndexPath(ns))
	if err != nil {
		return StorageFailure("initialize user", err)
	}
	if exists {
		return nil
	}

	if err := r.storage.EnsureDir(ctx, userRoot(ns)); err != nil {
		return StorageFailure("initialize user", err)
	}

	courses, err := r.copyDefaults(ctx, ns)
	if err != nil {
		return err
	}

	if err := r.writeCourseIndex(ctx, ns, courses); err != nil {
		return err
	}

	r.logger.Info("user namespace initialized", "namespace", ns, "default_courses", len(courses))
	return nil
}

// copyDefaults copies the system-wide default course set, if one exists,
// into the namespace and returns the course entries that were copied.
func (r *UserRepository) copyDefaults(ctx context.Context, ns string) ([]model.Course, error) {
	exists, err := r.storage.Exists(ctx, defaultIndexPath())
	if err != nil {
		return nil, StorageFailure("copy defaults", err)
	}
	if !exists {
		return []model.Course{}, nil
	}

	data, err := r.storage.Read(ctx, defaultIndexPath())
	if err != nil {
		return nil, StorageFailure("copy defaults", err)
	}
	var defaults []model.Course
	if err := json.Unmarshal(data, &defaults); err != nil {
		return nil, StorageFailure("copy defaults", fmt.Errorf("decoding default course index: %w", err))
	}

	copied := make([]model.Course, 0, len(defaults))
	for _, c := range defaults {
		if err := ValidateFilename(c.Filename); err != nil {
			r.logger.Warn("skipping default course with invalid filename", "filename", c.Filename)
			continue
		}

		raw, err := r.storage.Read(ctx, defaultVocabPath(c.Filename))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				r.logger.Warn("default course has no vocab file", "filename", c.Filename)
				continue
			}
			return nil, StorageFailure("copy defaults", err)
		}
		file, _, err := model.DecodeVocabFile(raw)
		if err != nil {
			r.logger.Warn("skipping malformed default vocab file", "filename", c.Filename, "error", err)
			continue
		}
		if err := r.writeVocabFile(ctx, ns, c.Filename, file); err != nil {
			return nil, err
		}
		copied = append(copied, c)
	}
	return copied, nil
}

// LoadCourseIndex returns the user's course index in stored order.
func (r *UserRepository) LoadCourseIndex(ctx context.Context, userID string) ([]model.Course, error) {
	ns, err := r.ensureUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.readCourseIndex(ctx, ns)
}

func (r *UserRepository) readCourseIndex(ctx context.Context, ns string) ([]model.Course, error) {
	data, err := r.storage.Read(ctx, courseIndexPath(ns))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []model.Course{}, nil
		}
		return nil, StorageFailure("load course index", err)
	}

	var courses []model.Course
	if err := json.Unmarshal(data, &courses); err != nil {
		return nil, StorageFailure("load course index", fmt.Errorf("decoding course index: %w", err))
	}
	if courses == nil {
		courses = []model.Course{}
	}
	return courses, nil
}

// SaveCourseIndex validates and replaces the user's course index.
func (r *UserRepository) SaveCourseIndex(ctx context.Context, userID string, courses []model.Course) error {
	if err := validateCourseIndex(courses); err != nil {
		return err
	}
	ns, err := r.ensureUser(ctx, userID)
	if err != nil {
		return err
	}
	return r.writeCourseIndex(ctx, ns, courses)
}

func validateCourseIndex(courses []model.Course) error {
	seen := make(map[string]struct{}, len(courses))
	for i := range courses {
		if err := ValidateFilename(courses[i].Filename); err != nil {
			return err
		}
		if err := model.ValidateCourse(&courses[i]); err != nil {
			return InvalidInput("save course index", "%v", err)
		}
		if _, dup := seen[courses[i].Filename]; dup {
			return InvalidInput("save course index", "duplicate course filename %q", courses[i].Filename)
		}
		seen[courses[i].Filename] = struct{}{}
	}
	return nil
}

func (r *UserRepository) writeCourseIndex(ctx context.Context, ns string, courses []model.Course) error {
	if courses == nil {
		courses = []model.Course{}
	}
	data, err := json.Marshal(courses)
	if err != nil {
		return fmt.Errorf("encoding course index: %w", err)
	}
	if err := r.storage.Write(ctx, courseIndexPath(ns), data); err != nil {
		return StorageFailure("save course index", err)
	}
	return nil
}

// LoadVocab returns the items of a course's vocab file.
// Fails with NotFound if the file is absent.
func (r *UserRepository) LoadVocab(ctx context.Context, userID, filename string) ([]model.VocabItem, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}
	ns, err := r.ensureUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	file, err := r.readVocabFile(ctx, ns, filename)
	if err != nil {
		return nil, err
	}
	return file.Content, nil
}

func (r *UserRepository) readVocabFile(ctx context.Context, ns, filename string) (*model.VocabFile, error) {
	data, err := r.storage.Read(ctx, vocabPath(ns, filename))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NotFound("load vocab", "vocab file %q not found", filename)
		}
		return nil, StorageFailure("load vocab", err)
	}

	file, version, err := model.DecodeVocabFile(data)
	if err != nil {
		return nil, &Error{Kind: KindInvalidInput, Op: "load vocab", Msg: fmt.Sprintf("vocab file %q is malformed", filename), Err: err}
	}
	if version != model.FormatTagged {
		r.logger.Debug("read legacy vocab file", "filename", filename, "format", version.String())
	}
	return file, nil
}

// SaveVocab validates items and atomically replaces the vocab file.
// Metadata of an existing file is carried forward; the file is always
// written in the canonical tagged format.
func (r *UserRepository) SaveVocab(ctx context.Context, userID, filename string, items []model.VocabItem) error {
	if err := ValidateFilename(filename); err != nil {
		return err
	}
	if err := model.ValidateItems(items); err != nil {
		return InvalidInput("save vocab", "%v", err)
	}
	ns, err := r.ensureUser(ctx, userID)
	if err != nil {
		return err
	}
	return r.saveItems(ctx, ns, filename, items)
}

// saveItems replaces the content of a vocab file, keeping its metadata.
func (r *UserRepository) saveItems(ctx context.Context, ns, filename string, items []model.VocabItem) error {
	file := &model.VocabFile{Content: items}
	existing, err := r.readVocabFile(ctx, ns, filename)
	switch {
	case err == nil:
		file.Metadata = existing.Metadata
	case errors.Is(err, ErrNotFound):
	case errors.Is(err, ErrInvalidInput):
		r.logger.Warn("replacing malformed vocab file", "filename", filename, "error", err)
	default:
		return err
	}
	return r.writeVocabFile(ctx, ns, filename, file)
}

func (r *UserRepository) writeVocabFile(ctx context.Context, ns, filename string, file *model.VocabFile) error {
	data, err := model.EncodeVocabFile(file)
	if err != nil {
		return err
	}
	if err := r.storage.Write(ctx, vocabPath(ns, filename), data); err != nil {
		return StorageFailure("save vocab", err)
	}
	return nil
}

// DeleteVocab removes a vocab file. Deleting an absent file succeeds.
func (r *UserRepository) DeleteVocab(ctx context.Context, userID, filename string) error {
	if err := ValidateFilename(filename); err != nil {
		return err
	}
	ns, err := r.ensureUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := r.storage.Delete(ctx, vocabPath(ns, filename)); err != nil {
		return StorageFailure("delete vocab", err)
	}
	return nil
}

// VocabExists reports whether a course's vocab file is stored.
func (r *UserRepository) VocabExists(ctx context.Context, userID, filename string) (bool, error) {
	if err := ValidateFilename(filename); err != nil {
		return false, err
	}
	ns, err := r.ensureUser(ctx, userID)
	if err != nil {
		return false, err
	}
	exists, err := r.storage.Exists(ctx, vocabPath(ns, filename))
	if err != nil {
		return false, StorageFailure("vocab exists", err)
	}
	return exists, nil
}

// LoadMaintenanceState returns the user's maintenance state. A user that
// never ran maintenance gets the zero state.
func (r *UserRepository) LoadMaintenanceState(ctx context.Context, userID string) (model.MaintenanceState, error) {
	ns, err := r.ensureUser(ctx, userID)
	if err != nil {
		return model.MaintenanceState{}, err
	}

	data, err := r.storage.Read(ctx, statePath(ns))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.MaintenanceState{}, nil
		}
		return model.MaintenanceState{}, StorageFailure("load maintenance state", err)
	}

	var state model.MaintenanceState
	if err := json.Unmarshal(data, &state); err != nil {
		r.logger.Warn("resetting unreadable maintenance state", "namespace", ns, "error", err)
		return model.MaintenanceState{}, nil
	}
	return state, nil
}

// SaveMaintenanceState replaces the user's maintenance state.
func (r *UserRepository) SaveMaintenanceState(ctx context.Context, userID string, state model.MaintenanceState) error {
	ns, err := r.ensureUser(ctx, userID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(&state)
	if err != nil {
		return fmt.Errorf("encoding maintenance state: %w", err)
	}
	if err := r.storage.Write(ctx, statePath(ns), data); err != nil {
		return StorageFailure("save maintenance state", err)
	}
	return nil
}
