package vocab

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"vocab-go/internal/model"
)

const (
	maxCourseName = 100
	minPageSize   = 1
	maxPageSize   = 100
)

// CourseService implements the course and item operations a request layer
// exposes on top of UserRepository.
type CourseService struct {
	repo        *UserRepository
	maintenance *MaintenanceScheduler // optional; drives auto-snapshots on listing
	clock       Clock
	ids         IDGenerator
	logger      Logger

	defaultPageSize int
}

// NewCourseService creates a CourseService. maintenance may be nil.
func NewCourseService(repo *UserRepository, maintenance *MaintenanceScheduler, clock Clock, ids IDGenerator, logger Logger, defaultPageSize int) *CourseService {
	if defaultPageSize < minPageSize || defaultPageSize > maxPageSize {
		defaultPageSize = DefaultPageSize
	}
	return &CourseService{
		repo:            repo,
		maintenance:     maintenance,
		clock:           clock,
		ids:             ids,
		logger:          logger,
		defaultPageSize: defaultPageSize,
	}
}

// ListCourses returns the user's courses sorted by Order. A due automatic
// snapshot is taken first; its failure is logged and does not fail the listing.
func (s *CourseService) ListCourses(ctx context.Context, userID string) ([]model.Course, error) {
	if s.maintenance != nil {
		s.maintenance.autoSnapshotBestEffort(ctx, userID)
	}

	courses, err := s.repo.LoadCourseIndex(ctx, userID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(courses, func(a, b model.Course) int {
		return a.Order - b.Order
	})
	for i := range courses {
		if courses[i].PageSize == 0 {
			courses[i].PageSize = s.defaultPageSize
		}
	}
	return courses, nil
}

func normalizeCourseName(op, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", InvalidInput(op, "course name is empty")
	}
	if utf8.RuneCountInString(name) > maxCourseName {
		return "", InvalidInput(op, "course name longer than %d characters", maxCourseName)
	}
	return name, nil
}

func checkPageSize(op string, size int) error {
	if size < minPageSize || size > maxPageSize {
		return InvalidInput(op, "page size %d out of range %d..%d", size, minPageSize, maxPageSize)
	}
	return nil
}

func findCourse(courses []model.Course, filename string) int {
	return slices.IndexFunc(courses, func(c model.Course) bool {
		return c.Filename == filename
	})
}

func nameTaken(courses []model.Course, name, except string) bool {
	return slices.ContainsFunc(courses, func(c model.Course) bool {
		return c.Filename != except && strings.EqualFold(c.Name, name)
	})
}

// CreateCourse adds an empty course. pageSize 0 selects the default.
// The empty vocab file is written before the index entry that names it.
func (s *CourseService) CreateCourse(ctx context.Context, userID, name string, pageSize int) (model.Course, error) {
	const op = "create course"
	name, err := normalizeCourseName(op, name)
	if err != nil {
		return model.Course{}, err
	}
	if pageSize == 0 {
		pageSize = s.defaultPageSize
	}
	if err := checkPageSize(op, pageSize); err != nil {
		return model.Course{}, err
	}

	ns, err := s.repo.ensureUser(ctx, userID)
	if err != nil {
		return model.Course{}, err
	}
	courses, err := s.repo.readCourseIndex(ctx, ns)
	if err != nil {
		return model.Course{}, err
	}
	if nameTaken(courses, name, "") {
		return model.Course{}, Conflict(op, "a course named %q already exists", name)
	}

	course := model.Course{
		Filename: CourseFilename(name, s.ids.New()),
		Name:     name,
		PageSize: pageSize,
	}
	for _, c := range courses {
		if c.Order >= course.Order {
			course.Order = c.Order + 1
		}
		if c.Filename == course.Filename {
			return model.Course{}, Conflict(op, "course file %q already exists", course.Filename)
		}
	}

	if err := s.repo.writeVocabFile(ctx, ns, course.Filename, &model.VocabFile{}); err != nil {
		return model.Course{}, err
	}
	courses = append(courses, course)
	if err := s.repo.writeCourseIndex(ctx, ns, courses); err != nil {
		return model.Course{}, err
	}

	s.logger.Info("course created", "namespace", ns, "filename", course.Filename)
	return course, nil
}

// RenameCourse changes a course's display name. The filename stays.
func (s *CourseService) RenameCourse(ctx context.Context, userID, filename, name string) (model.Course, error) {
	const op = "rename course"
	if err := ValidateFilename(filename); err != nil {
		return model.Course{}, err
	}
	name, err := normalizeCourseName(op, name)
	if err != nil {
		return model.Course{}, err
	}

	return s.updateCourse(ctx, userID, op, filename, func(courses []model.Course, i int) error {
		if nameTaken(courses, name, filename) {
			return Conflict(op, "a course named %q already exists", name)
		}
		courses[i].Name = name
		return nil
	})
}

// SetPageSize changes a course's page size, 1..100.
func (s *CourseService) SetPageSize(ctx context.Context, userID, filename string, size int) (model.Course, error) {
	const op = "set page size"
	if err := ValidateFilename(filename); err != nil {
		return model.Course{}, err
	}
	if err := checkPageSize(op, size); err != nil {
		return model.Course{}, err
	}

	return s.updateCourse(ctx, userID, op, filename, func(courses []model.Course, i int) error {
		courses[i].PageSize = size
		return nil
	})
}

func (s *CourseService) updateCourse(ctx context.Context, userID, op, filename string, mutate func([]model.Course, int) error) (model.Course, error) {
	ns, err := s.repo.ensureUser(ctx, userID)
	if err != nil {
		return model.Course{}, err
	}
	courses, err := s.repo.readCourseIndex(ctx, ns)
	if err != nil {
		return model.Course{}, err
	}
	i := findCourse(courses, filename)
	if i < 0 {
		return model.Course{}, NotFound(op, "course %q not found", filename)
	}
	if err := mutate(courses, i); err != nil {
		return model.Course{}, err
	}
	if err := s.repo.writeCourseIndex(ctx, ns, courses); err != nil {
		return model.Course{}, err
	}
	return courses[i], nil
}

// ReorderCourses assigns Order by position in filenames, which must name
// every course exactly once.
func (s *CourseService) ReorderCourses(ctx context.Context, userID string, filenames []string) ([]model.Course, error) {
	const op = "reorder courses"
	for _, f := range filenames {
		if err := ValidateFilename(f); err != nil {
			return nil, err
		}
	}

	ns, err := s.repo.ensureUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	courses, err := s.repo.readCourseIndex(ctx, ns)
	if err != nil {
		return nil, err
	}
	if len(filenames) != len(courses) {
		return nil, InvalidInput(op, "got %d filenames for %d courses", len(filenames), len(courses))
	}

	position := make(map[string]int, len(filenames))
	for i, f := range filenames {
		if _, dup := position[f]; dup {
			return nil, InvalidInput(op, "course %q listed twice", f)
		}
		position[f] = i
	}
	for i := range courses {
		p, ok := position[courses[i].Filename]
		if !ok {
			return nil, InvalidInput(op, "course %q missing from new order", courses[i].Filename)
		}
		courses[i].Order = p
	}
	slices.SortStableFunc(courses, func(a, b model.Course) int {
		return a.Order - b.Order
	})

	if err := s.repo.writeCourseIndex(ctx, ns, courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// DeleteCourse removes the index entry and then the vocab file.
func (s *CourseService) DeleteCourse(ctx context.Context, userID, filename string) error {
	const op = "delete course"
	if err := ValidateFilename(filename); err != nil {
		return err
	}

	ns, err := s.repo.ensureUser(ctx, userID)
	if err != nil {
		return err
	}
	courses, err := s.repo.readCourseIndex(ctx, ns)
	if err != nil {
		return err
	}
	i := findCourse(courses, filename)
	if i < 0 {
		return NotFound(op, "course %q not found", filename)
	}

	courses = slices.Delete(courses, i, i+1)
	if err := s.repo.writeCourseIndex(ctx, ns, courses); err != nil {
		return err
	}
	if err := s.repo.DeleteVocab(ctx, userID, filename); err != nil {
		return err
	}

	s.logger.Info("course deleted", "namespace", ns, "filename", filename)
	return nil
}

// GetVocab returns a course's items.
func (s *CourseService) GetVocab(ctx context.Context, userID, filename string) ([]model.VocabItem, error) {
	return s.repo.LoadVocab(ctx, userID, filename)
}

// UpdateItemState sets one review mark of an item and stamps LastUpdated.
func (s *CourseService) UpdateItemState(ctx context.Context, userID, filename, itemID string, slot int, state model.State) (model.VocabItem, error) {
	const op = "update item state"
	if err := ValidateFilename(filename); err != nil {
		return model.VocabItem{}, err
	}
	if slot < 0 || slot >= model.StateSlots {
		return model.VocabItem{}, InvalidInput(op, "slot %d out of range 0..%d", slot, model.StateSlots-1)
	}
	if !state.Valid() {
		return model.VocabItem{}, InvalidInput(op, "unknown state %q", state)
	}

	ns, err := s.repo.ensureUser(ctx, userID)
	if err != nil {
		return model.VocabItem{}, err
	}
	file, err := s.repo.readVocabFile(ctx, ns, filename)
	if err != nil {
		return model.VocabItem{}, err
	}
	i := slices.IndexFunc(file.Content, func(it model.VocabItem) bool {
		return it.ID == itemID
	})
	if i < 0 {
		return model.VocabItem{}, NotFound(op, "item %q not found in %q", itemID, filename)
	}

	file.Content[i].States[slot] = state
	file.Content[i].LastUpdated = model.NewTimestamp(s.clock.Now())
	if err := s.repo.writeVocabFile(ctx, ns, filename, file); err != nil {
		return model.VocabItem{}, err
	}
	return file.Content[i], nil
}

// ImportItems appends items to an existing course. Missing ids are assigned,
// empty states normalized, and the merged list validated as a whole before
// anything is written.
func (s *CourseService) ImportItems(ctx context.Context, userID, filename string, items []model.VocabItem) (int, error) {
	const op = "import items"
	if err := ValidateFilename(filename); err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	ns, err := s.repo.ensureUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	file, err := s.repo.readVocabFile(ctx, ns, filename)
	if err != nil {
		return 0, err
	}

	now := model.NewTimestamp(s.clock.Now())
	incoming := make([]model.VocabItem, len(items))
	for i, it := range items {
		it.ID = strings.TrimSpace(it.ID)
		if it.ID == "" {
			it.ID = s.ids.New()
		}
		it.Word = strings.TrimSpace(it.Word)
		it.Answer = strings.TrimSpace(it.Answer)
		it.States.Normalize()
		if it.LastUpdated.IsZero() {
			it.LastUpdated = now
		}
		incoming[i] = it
	}

	merged := append(slices.Clone(file.Content), incoming...)
	if err := model.ValidateItems(merged); err != nil {
		return 0, InvalidInput(op, "%v", err)
	}

	file.Content = merged
	if err := s.repo.writeVocabFile(ctx, ns, filename, file); err != nil {
		return 0, err
	}
	s.logger.Info("items imported", "namespace", ns, "filename", filename, "count", len(incoming))
	return len(incoming), nil
}

// GenerateItems asks gen for new items and imports them into a course.
func (s *CourseService) GenerateItems(ctx context.Context, userID, filename string, gen Generator, req GenerateRequest) (int, error) {
	if err := ValidateFilename(filename); err != nil {
		return 0, err
	}
	items, err := gen.Generate(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("generating items: %w", err)
	}
	return s.ImportItems(ctx, userID, filename, items)
}
