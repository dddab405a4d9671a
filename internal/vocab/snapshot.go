package vocab

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"vocab-go/internal/model"
)

// DefaultMaxNoteLength bounds snapshot notes, in runes.
const DefaultMaxNoteLength = 500

var (
	snapshotIDPattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-\d+$`)
	snapshotFilePattern = regexp.MustCompile(`^snapshot-(\d{4}-\d{2}-\d{2}-\d+)\.json$`)
)

// SnapshotOptions configures bundle creation.
type SnapshotOptions struct {
	MaxNoteLength int       // runes; <= 0 means DefaultMaxNoteLength
	Compress      bool      // zstd-compress bundles
	Encryptor     Encryptor // encrypt bundles; nil stores them unencrypted
}

// SnapshotManager creates, lists, restores and deletes point-in-time bundles
// of a user's course index and vocab content.
//
// Restore is not transactional across files: vocab files are written first,
// the course index last. An interrupted restore leaves some files at the
// snapshot's content and others at their previous content.
type SnapshotManager struct {
	repo    *UserRepository
	storage Storage
	clock   Clock
	logger  Logger
	codec   *bundleCodec

	maxNote int

	mu         sync.RWMutex
	decryption DecryptionContext
}

// NewSnapshotManager creates a manager on top of repo.
func NewSnapshotManager(repo *UserRepository, clock Clock, logger Logger, opts SnapshotOptions) (*SnapshotManager, error) {
	codec, err := newBundleCodec(opts.Compress, opts.Encryptor)
	if err != nil {
		return nil, err
	}
	maxNote := opts.MaxNoteLength
	if maxNote <= 0 {
		maxNote = DefaultMaxNoteLength
	}
	return &SnapshotManager{
		repo:    repo,
		storage: repo.storage,
		clock:   clock,
		logger:  logger,
		codec:   codec,
		maxNote: maxNote,
	}, nil
}

// SetDecryptionContext makes encrypted bundles readable for the rest of the
// session. Pass nil to lock them again.
func (m *SnapshotManager) SetDecryptionContext(dec DecryptionContext) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decryption = dec
}

func (m *SnapshotManager) decryptionContext() DecryptionContext {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.decryption
}

// ValidateSnapshotID checks the {YYYY-MM-DD}-{epochMillis} shape.
func ValidateSnapshotID(id string) error {
	if !snapshotIDPattern.MatchString(id) {
		return InvalidInput("validate snapshot id", "invalid snapshot id %q", id)
	}
	return nil
}

func snapshotPath(ns, id string) string {
	return snapshotDir(ns) + "/snapshot-" + id + ".json"
}

// Create bundles the user's current course index and every course's vocab
// content into one stored object and returns its metadata.
func (m *SnapshotManager) Create(ctx context.Context, userID, note string) (model.SnapshotInfo, error) {
	ns, err := m.repo.ensureUser(ctx, userID)
	if err != nil {
		return model.SnapshotInfo{}, err
	}

	courses, err := m.repo.readCourseIndex(ctx, ns)
	if err != nil {
		return model.SnapshotInfo{}, err
	}

	// Courses with an invalid filename are left out entirely; a bundle
	// naming them could never be restored.
	bundled := make([]model.Course, 0, len(courses))
	vocabFiles := make(map[string][]model.VocabItem, len(courses))
	for _, c := range courses {
		if err := ValidateFilename(c.Filename); err != nil {
			m.logger.Warn("skipping course with invalid filename in snapshot", "namespace", ns, "filename", c.Filename)
			continue
		}
		bundled = append(bundled, c)
		file, err := m.repo.readVocabFile(ctx, ns, c.Filename)
		switch {
		case err == nil:
			vocabFiles[c.Filename] = file.Content
		case errors.Is(err, ErrNotFound):
			vocabFiles[c.Filename] = []model.VocabItem{}
		default:
			return model.SnapshotInfo{}, err
		}
	}

	if err := m.storage.EnsureDir(ctx, snapshotDir(ns)); err != nil {
		return model.SnapshotInfo{}, StorageFailure("create snapshot", err)
	}

	now := m.clock.Now().UTC()
	id, err := m.nextID(ctx, ns, now)
	if err != nil {
		return model.SnapshotInfo{}, err
	}

	snap := model.Snapshot{
		ID:         id,
		Date:       now.Format(time.DateOnly),
		CreatedAt:  now,
		Note:       truncateRunes(note, m.maxNote),
		Courses:    bundled,
		VocabFiles: vocabFiles,
	}

	data, err := json.Marshal(&snap)
	if err != nil {
		return model.SnapshotInfo{}, fmt.Errorf("encoding snapshot: %w", err)
	}
	sealed, err := m.codec.seal(data)
	if err != nil {
		return model.SnapshotInfo{}, err
	}
	if err := m.storage.Write(ctx, snapshotPath(ns, id), sealed); err != nil {
		return model.SnapshotInfo{}, StorageFailure("create snapshot", err)
	}

	m.logger.Info("snapshot created", "namespace", ns, "id", id, "courses", len(bundled))
	return snap.Info(), nil
}

// nextID returns {date}-{millis} for now, stepping the millisecond part when
// a snapshot with that id already exists.
func (m *SnapshotManager) nextID(ctx context.Context, ns string, now time.Time) (string, error) {
	date := now.Format(time.DateOnly)
	millis := now.UnixMilli()
	for {
		id := date + "-" + strconv.FormatInt(millis, 10)
		exists, err := m.storage.Exists(ctx, snapshotPath(ns, id))
		if err != nil {
			return "", StorageFailure("create snapshot", err)
		}
		if !exists {
			return id, nil
		}
		millis++
	}
}

// List returns metadata of every readable snapshot, newest first.
// Corrupt objects are skipped with a warning.
func (m *SnapshotManager) List(ctx context.Context, userID string) ([]model.SnapshotInfo, error) {
	ns, err := m.repo.ensureUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	names, err := m.storage.List(ctx, snapshotDir(ns))
	if err != nil {
		return nil, StorageFailure("list snapshots", err)
	}

	dec := m.decryptionContext()
	infos := make([]model.SnapshotInfo, 0, len(names))
	for _, name := range names {
		match := snapshotFilePattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		id := match[1]

		data, err := m.storage.Read(ctx, snapshotPath(ns, id))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, StorageFailure("list snapshots", err)
		}

		plain, err := m.codec.open(data, dec)
		if errors.Is(err, errSealed) {
			infos = append(infos, sealedInfo(id))
			continue
		}
		if err != nil {
			m.logger.Warn("skipping unreadable snapshot", "namespace", ns, "id", id, "error", err)
			continue
		}

		var snap model.Snapshot
		if err := json.Unmarshal(plain, &snap); err != nil {
			m.logger.Warn("skipping corrupt snapshot", "namespace", ns, "id", id, "error", err)
			continue
		}
		infos = append(infos, snap.Info())
	}

	slices.SortStableFunc(infos, func(a, b model.SnapshotInfo) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return infos, nil
}

// sealedInfo derives what it can from the id of a bundle that cannot be
// decrypted in this session.
func sealedInfo(id string) model.SnapshotInfo {
	info := model.SnapshotInfo{ID: id, Sealed: true}
	if len(id) > len(time.DateOnly) {
		info.Date = id[:len(time.DateOnly)]
		if ms, err := strconv.ParseInt(id[len(time.DateOnly)+1:], 10, 64); err == nil {
			info.CreatedAt = time.UnixMilli(ms).UTC()
		}
	}
	return info
}

// Restore overwrites every vocab file named in the snapshot and then the
// course index. Vocab files not named in the snapshot are left in place.
func (m *SnapshotManager) Restore(ctx context.Context, userID, id string) (model.SnapshotInfo, error) {
	if err := ValidateSnapshotID(id); err != nil {
		return model.SnapshotInfo{}, err
	}
	ns, err := m.repo.ensureUser(ctx, userID)
	if err != nil {
		return model.SnapshotInfo{}, err
	}

	snap, err := m.load(ctx, ns, id)
	if err != nil {
		return model.SnapshotInfo{}, err
	}

	filenames := make([]string, 0, len(snap.VocabFiles))
	for filename, items := range snap.VocabFiles {
		if err := ValidateFilename(filename); err != nil {
			return model.SnapshotInfo{}, err
		}
		for i := range items {
			items[i].States.Normalize()
		}
		if err := model.ValidateItems(items); err != nil {
			return model.SnapshotInfo{}, InvalidInput("restore snapshot", "snapshot %s: %v", id, err)
		}
		filenames = append(filenames, filename)
	}
	if err := validateCourseIndex(snap.Courses); err != nil {
		return model.SnapshotInfo{}, err
	}
	slices.Sort(filenames)

	for _, filename := range filenames {
		if err := m.repo.saveItems(ctx, ns, filename, snap.VocabFiles[filename]); err != nil {
			return model.SnapshotInfo{}, err
		}
	}
	if err := m.repo.writeCourseIndex(ctx, ns, snap.Courses); err != nil {
		return model.SnapshotInfo{}, err
	}

	m.logger.Info("snapshot restored", "namespace", ns, "id", id, "vocab_files", len(filenames))
	return snap.Info(), nil
}

func (m *SnapshotManager) load(ctx context.Context, ns, id string) (*model.Snapshot, error) {
	data, err := m.storage.Read(ctx, snapshotPath(ns, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NotFound("load snapshot", "snapshot %s not found", id)
		}
		return nil, StorageFailure("load snapshot", err)
	}

	plain, err := m.codec.open(data, m.decryptionContext())
	if errors.Is(err, errSealed) {
		return nil, InvalidInput("load snapshot", "snapshot %s is encrypted; unlock the snapshot key first", id)
	}
	if err != nil {
		return nil, StorageFailure("load snapshot", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(plain, &snap); err != nil {
		return nil, StorageFailure("load snapshot", fmt.Errorf("decoding snapshot %s: %w", id, err))
	}
	return &snap, nil
}

// Delete removes a snapshot. Unlike vocab deletes, a missing snapshot is
// reported as NotFound.
func (m *SnapshotManager) Delete(ctx context.Context, userID, id string) error {
	if err := ValidateSnapshotID(id); err != nil {
		return err
	}
	ns, err := m.repo.ensureUser(ctx, userID)
	if err != nil {
		return err
	}

	path := snapshotPath(ns, id)
	exists, err := m.storage.Exists(ctx, path)
	if err != nil {
		return StorageFailure("delete snapshot", err)
	}
	if !exists {
		return NotFound("delete snapshot", "snapshot %s not found", id)
	}
	if err := m.storage.Delete(ctx, path); err != nil {
		return StorageFailure("delete snapshot", err)
	}

	m.logger.Info("snapshot deleted", "namespace", ns, "id", id)
	return nil
}

func truncateRunes(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
